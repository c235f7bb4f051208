package types

import "errors"

// Sentinel errors for the execution engine. Business-rule outcomes
// (sizing rejections, disallowed cancels, unfilled limit orders) are
// encoded in return values, not errors; these cover genuine failures.
var (
	ErrOrderNotFound = errors.New("order not found")
	ErrInvalidSpec   = errors.New("invalid order spec")
	ErrInvalidConfig = errors.New("invalid configuration")
	ErrLiveDisabled  = errors.New("live execution disabled")
)
