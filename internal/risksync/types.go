// Package risksync reconciles desired take-profit / stop-loss levels
// against the trigger orders actually resting on the exchange, issuing
// the minimal set of cancel/create operations needed to converge.
package risksync

import (
	"fmt"
	"strings"

	"hyperliquid-trading-bot/internal/orders"
)

// DesiredLevels carries the levels the decision loop wants in place.
// A nil field means "no change requested for that leg".
type DesiredLevels struct {
	TakeProfitPrice *float64 `json:"take_profit_price,omitempty"`
	StopLossPrice   *float64 `json:"stop_loss_price,omitempty"`
}

// PositionContext identifies whose orders to reconcile and which side a
// trigger order must oppose.
type PositionContext struct {
	WalletAddress string  `json:"wallet_address"`
	Symbol        string  `json:"symbol"`
	IsLong        bool    `json:"is_long"`
	PositionSize  float64 `json:"position_size"`
}

// LegAction is the per-leg outcome of a reconciliation pass.
type LegAction string

const (
	ActionNone    LegAction = "NONE"    // no level requested for the leg
	ActionSkip    LegAction = "SKIP"    // existing order already within tolerance
	ActionCreate  LegAction = "CREATE"  // no existing order, one was needed
	ActionReplace LegAction = "REPLACE" // existing order at a stale price
)

// Severity grades reconciliation errors.
type Severity string

const (
	SeverityWarning  Severity = "warning"  // anomaly, reconciliation proceeded
	SeverityError    Severity = "error"    // leg unresolved this cycle, old state stands
	SeverityCritical Severity = "critical" // leg left without a working trigger
)

// LegError is one problem encountered while reconciling a leg.
type LegError struct {
	Leg      orders.Leg `json:"leg"`
	Severity Severity   `json:"severity"`
	Message  string     `json:"message"`
	Err      error      `json:"-"`
}

func (e LegError) Error() string {
	return fmt.Sprintf("%s leg %s: %s", e.Severity, e.Leg, e.Message)
}

func (e LegError) Unwrap() error { return e.Err }

// ReconciliationResult is returned to the decision loop; leg-level
// failures are collected here rather than aborting the call.
type ReconciliationResult struct {
	TakeProfitAction LegAction  `json:"take_profit_action"`
	StopLossAction   LegAction  `json:"stop_loss_action"`
	Degraded         bool       `json:"degraded"` // existing view came from the cache, not a live fetch
	Errors           []LegError `json:"errors,omitempty"`
}

// HasCritical reports whether any leg was left unprotected.
func (r ReconciliationResult) HasCritical() bool {
	for _, e := range r.Errors {
		if e.Severity == SeverityCritical {
			return true
		}
	}
	return false
}

// CacheEntry is the last-known TP/SL state for one (wallet, symbol) key.
type CacheEntry struct {
	WalletAddress   string   `json:"wallet_address"` // lower-cased
	Symbol          string   `json:"symbol"`         // upper-cased
	TakeProfitPrice *float64 `json:"take_profit_price,omitempty"`
	StopLossPrice   *float64 `json:"stop_loss_price,omitempty"`
	TPUnprotected   bool     `json:"tp_unprotected"` // cancel succeeded but create failed
	SLUnprotected   bool     `json:"sl_unprotected"`
	UpdatedAtMs     int64    `json:"updated_at_ms"`
}

// cacheKey normalizes a (wallet, symbol) pair into the canonical key.
func cacheKey(wallet, symbol string) string {
	return strings.ToLower(wallet) + "|" + strings.ToUpper(symbol)
}
