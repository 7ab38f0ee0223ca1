package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"bilancio/internal/amqp"
	"bilancio/internal/log"
	"bilancio/internal/worker"
)

var alertsCmd = &cobra.Command{
	Use:   "alerts",
	Short: "Consume budget alerts from AMQP and notify",
	Long: `Runs until interrupted, delivering each budget alert published by
forecasts once per user, period and category.`,
	Args: cobra.NoArgs,
	RunE: runAlerts,
}

func init() {
	rootCmd.AddCommand(alertsCmd)
}

func runAlerts(cmd *cobra.Command, args []string) error {
	if state.cfg.AMQPURL == "" {
		return fmt.Errorf("AMQP_URL is required to consume budget alerts")
	}
	ctx, stop := SignalContext(cmd.Context())
	defer stop()
	logger := state.logger.WithComponent(log.ComponentWorker)

	client, err := amqp.NewClient(state.cfg.AMQPURL, state.cfg.AMQPExchange, state.cfg.AMQPQueue)
	if err != nil {
		return fmt.Errorf("initialize AMQP client: %w", err)
	}
	defer client.Close()

	w := worker.NewAlertWorker(nil, state.logger)
	logger.Info("Starting budget alert consumer", "queue", state.cfg.AMQPQueue)
	err = client.ConsumeBudgetAlerts(ctx, w.HandleBudgetAlert)
	logger.Info("Budget alert consumer stopped", "notified", w.Notified())
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
