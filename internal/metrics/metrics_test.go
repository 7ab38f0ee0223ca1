package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestCollectorsRegistered(t *testing.T) {
	ObserveForecast("month", true)
	RecordsSkipped.WithLabelValues("amount").Inc()

	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	found := map[string]bool{}
	for _, f := range families {
		found[f.GetName()] = true
	}
	for _, name := range []string{
		"bilancio_forecast_predictions_total",
		"bilancio_ledger_records_skipped_total",
		"bilancio_ledger_records_loaded_total",
		"bilancio_http_rate_limited_total",
	} {
		if !found[name] {
			t.Errorf("metric %s not registered", name)
		}
	}
}

func TestResult(t *testing.T) {
	if Result(nil) != "ok" {
		t.Errorf("Result(nil) = %q, want ok", Result(nil))
	}
	if Result(errors.New("boom")) != "error" {
		t.Errorf("Result(err) = %q, want error", Result(errors.New("boom")))
	}
}
