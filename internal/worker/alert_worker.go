package worker

import (
	"context"
	"fmt"
	"sync"

	"bilancio/internal/amqp"
	"bilancio/internal/core"
	"bilancio/internal/log"
)

// Notifier delivers a budget alert to the user.
type Notifier interface {
	Notify(ctx context.Context, msg *amqp.BudgetAlertMessage) error
}

// LogNotifier writes alerts to the log.
type LogNotifier struct {
	Logger *log.Logger
}

func (n LogNotifier) Notify(ctx context.Context, msg *amqp.BudgetAlertMessage) error {
	n.Logger.WarnContext(ctx, "Budget alert",
		log.FieldUser, msg.User,
		log.FieldGranularity, msg.Granularity,
		log.FieldCategory, msg.Category,
		"period", msg.Period,
		"predicted", core.Money{Cents: msg.PredictedCents}.String(),
		"threshold", core.Money{Cents: msg.ThresholdCents}.String())
	return nil
}

// AlertWorker handles budget alerts consumed from AMQP. The same user,
// period and category is notified once per worker lifetime.
type AlertWorker struct {
	notifier Notifier
	logger   *log.Logger

	mu       sync.Mutex
	notified map[string]struct{}
}

func NewAlertWorker(notifier Notifier, logger *log.Logger) *AlertWorker {
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentWorker)
	if notifier == nil {
		notifier = LogNotifier{Logger: logger}
	}
	return &AlertWorker{
		notifier: notifier,
		logger:   logger,
		notified: make(map[string]struct{}),
	}
}

func alertKey(msg *amqp.BudgetAlertMessage) string {
	return fmt.Sprintf("%s|%s|%s|%s", msg.User, msg.Granularity, msg.Period, core.CategoryKey(msg.Category))
}

// HandleBudgetAlert notifies once per alert key. A failed notification is
// returned so the message is requeued.
func (w *AlertWorker) HandleBudgetAlert(ctx context.Context, msg *amqp.BudgetAlertMessage) error {
	key := alertKey(msg)

	w.mu.Lock()
	_, seen := w.notified[key]
	w.mu.Unlock()
	if seen {
		w.logger.DebugContext(ctx, "Duplicate budget alert skipped", log.FieldUser, msg.User, "period", msg.Period)
		return nil
	}

	if err := w.notifier.Notify(ctx, msg); err != nil {
		return fmt.Errorf("notify %s: %w", msg.User, err)
	}

	w.mu.Lock()
	w.notified[key] = struct{}{}
	w.mu.Unlock()
	return nil
}

// Notified returns how many distinct alerts were delivered.
func (w *AlertWorker) Notified() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.notified)
}
