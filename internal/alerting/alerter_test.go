package alerting

import (
	"context"
	"testing"
)

func TestSeverityString(t *testing.T) {
	tests := []struct {
		severity Severity
		want     string
	}{
		{SeverityInfo, "INFO"},
		{SeverityWarning, "WARNING"},
		{SeverityCritical, "CRITICAL"},
		{Severity(99), "INFO"},
	}

	for _, tt := range tests {
		if got := tt.severity.String(); got != tt.want {
			t.Errorf("Severity(%d).String() = %s, want %s", tt.severity, got, tt.want)
		}
	}
}

func TestEventSeverity(t *testing.T) {
	if EventSeverity(EventOrderRejected) != SeverityWarning {
		t.Error("rejection should alert at warning")
	}
	for _, event := range []Event{EventOrderFilled, EventOrderCanceled, EventDailySummary} {
		if EventSeverity(event) != SeverityInfo {
			t.Errorf("%s should alert at info", event)
		}
	}
}

func TestMockAlerterCaptures(t *testing.T) {
	m := NewMockAlerter()

	if err := m.Alert(context.Background(), SeverityInfo, "Order filled", "symbol", "XYZ"); err != nil {
		t.Fatalf("alert: %v", err)
	}
	if err := m.Alert(context.Background(), SeverityWarning, "Order rejected"); err != nil {
		t.Fatalf("alert: %v", err)
	}

	if m.Count() != 2 {
		t.Errorf("count = %d, want 2", m.Count())
	}
	if !m.HasAlertContaining("rejected") {
		t.Error("missing captured alert")
	}
	if m.HasAlertContaining("canceled") {
		t.Error("matched an alert that was never sent")
	}
}

func TestConsoleAlerterNilLogger(t *testing.T) {
	c := NewConsoleAlerter(nil)

	if c.Name() != "console" {
		t.Errorf("name = %s", c.Name())
	}
	if err := c.Alert(context.Background(), SeverityCritical, "Order rejected", "reason", "sizing_zero_qty"); err != nil {
		t.Fatalf("alert: %v", err)
	}
}
