// Package alerting provides notifications for order lifecycle events.
package alerting

import "context"

// Severity is the alert severity level.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityCritical
)

// String returns the string representation of the severity.
func (s Severity) String() string {
	switch s {
	case SeverityWarning:
		return "WARNING"
	case SeverityCritical:
		return "CRITICAL"
	default:
		return "INFO"
	}
}

// Alerter sends alerts to a notification channel.
type Alerter interface {
	// Alert sends an alert; fields are alternating key/value pairs.
	Alert(ctx context.Context, severity Severity, message string, fields ...any) error
	// Name identifies the alerter.
	Name() string
}

// Event names the order lifecycle moments worth notifying about.
type Event string

const (
	EventOrderFilled   Event = "order_filled"
	EventOrderRejected Event = "order_rejected"
	EventOrderCanceled Event = "order_canceled"
	EventDailySummary  Event = "daily_summary"
)

// EventSeverity returns the default severity for an event.
func EventSeverity(event Event) Severity {
	switch event {
	case EventOrderRejected:
		return SeverityWarning
	default:
		return SeverityInfo
	}
}
