package amqp

import (
	"encoding/json"
	"time"
)

// BudgetAlertMessage announces that the forecast for the next period exceeds
// the budget threshold.
type BudgetAlertMessage struct {
	User           string    `json:"user"`
	Granularity    string    `json:"granularity"`
	Category       string    `json:"category,omitempty"`
	Period         string    `json:"period"`
	PredictedCents int64     `json:"predicted_cents"`
	ReferenceCents int64     `json:"reference_cents"`
	ThresholdCents int64     `json:"threshold_cents"`
	Ratio          float64   `json:"ratio"`
	Timestamp      time.Time `json:"timestamp"`
}

func (m *BudgetAlertMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func BudgetAlertMessageFromJSON(data []byte) (*BudgetAlertMessage, error) {
	var msg BudgetAlertMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
