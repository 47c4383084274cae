package hyperliquid

import (
	"fmt"
	"strings"
)

// NetworkError is a transient transport failure (timeouts, connection
// resets, 5xx, rate limiting). Callers may retry on the next cycle.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error during %s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// AuthError is fatal for the current call: the exchange refused the
// request signature or the wallet is not authorized.
type AuthError struct {
	Op     string
	Reason string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("auth error during %s: %s", e.Op, e.Reason)
}

// RejectedOrderError means the exchange understood the request and
// refused it, e.g. a trigger price outside the allowed band around the
// oracle price.
type RejectedOrderError struct {
	Symbol string
	Reason string
}

func (e *RejectedOrderError) Error() string {
	return fmt.Sprintf("order rejected for %s: %s", e.Symbol, e.Reason)
}

// cancelStatusIsIdempotent reports whether a cancel failure status means
// the order is already gone, which the gateway treats as success.
func cancelStatusIsIdempotent(status string) bool {
	s := strings.ToLower(status)
	return strings.Contains(s, "never placed") ||
		strings.Contains(s, "already canceled") ||
		strings.Contains(s, "already cancelled") ||
		strings.Contains(s, "filled")
}

// classifyExchangeStatus maps a per-order error string from the exchange
// into the gateway error taxonomy.
func classifyExchangeStatus(op, symbol, status string) error {
	s := strings.ToLower(status)
	if strings.Contains(s, "signature") || strings.Contains(s, "does not exist") ||
		strings.Contains(s, "unauthorized") || strings.Contains(s, "user or api wallet") {
		return &AuthError{Op: op, Reason: status}
	}
	return &RejectedOrderError{Symbol: symbol, Reason: status}
}
