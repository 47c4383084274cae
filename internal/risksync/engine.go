package risksync

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"hyperliquid-trading-bot/internal/hyperliquid"
	"hyperliquid-trading-bot/internal/orders"
)

// DefaultPriceTolerance is the relative price difference treated as
// equal: 0.1%, inclusive at the boundary.
const DefaultPriceTolerance = 0.001

// EngineConfig holds reconciliation tuning.
type EngineConfig struct {
	// PriceTolerance is the relative diff below which an existing
	// trigger is considered in sync. Zero means DefaultPriceTolerance.
	PriceTolerance float64
	// TriggerBandPct rejects desired prices further than this fraction
	// from the current mid before any exchange call. Zero disables the
	// pre-flight check.
	TriggerBandPct float64
}

// Engine converges exchange trigger-order state to desired TP/SL levels
// with minimal churn. Reconciliation for the same (wallet, symbol) key
// is serialized; unrelated keys run in parallel.
type Engine struct {
	cfg     EngineConfig
	gateway OrderGateway
	cache   *LevelsCache
	prices  PriceSource // may be nil
	locks   *keyedMutex
	logger  zerolog.Logger
	nowMs   func() int64
}

// NewEngine creates a reconciliation engine. prices may be nil to
// disable the trigger-band pre-flight check.
func NewEngine(cfg EngineConfig, gateway OrderGateway, cache *LevelsCache, prices PriceSource, logger zerolog.Logger) *Engine {
	if cfg.PriceTolerance <= 0 {
		cfg.PriceTolerance = DefaultPriceTolerance
	}
	return &Engine{
		cfg:     cfg,
		gateway: gateway,
		cache:   cache,
		prices:  prices,
		locks:   newKeyedMutex(),
		logger:  logger.With().Str("component", "risksync").Logger(),
		nowMs:   func() int64 { return time.Now().UnixMilli() },
	}
}

// InspectCache exposes the cached entry for diagnostics.
func (e *Engine) InspectCache(wallet, symbol string) (CacheEntry, bool) {
	return e.cache.Get(wallet, symbol)
}

// Reconcile runs one compare-then-act pass for a position. Leg-level
// failures are collected in the result; the returned error is non-nil
// only for fatal auth failures, which abort the call.
func (e *Engine) Reconcile(ctx context.Context, pos PositionContext, desired DesiredLevels) (ReconciliationResult, error) {
	unlock := e.locks.Lock(cacheKey(pos.WalletAddress, pos.Symbol))
	defer unlock()

	result := ReconciliationResult{
		TakeProfitAction: ActionNone,
		StopLossAction:   ActionNone,
	}

	existing, degraded, legErrs, err := e.existingView(ctx, pos)
	if err != nil {
		return result, err
	}
	result.Degraded = degraded
	result.Errors = append(result.Errors, legErrs...)

	// A fatal auth failure on one leg aborts the call before the other
	// leg issues any exchange calls.
	tp := e.reconcileLeg(ctx, pos, orders.LegTakeProfit, desired.TakeProfitPrice, existing[orders.LegTakeProfit], degraded)
	result.TakeProfitAction = tp.action
	result.Errors = append(result.Errors, tp.errs...)
	if tp.fatal != nil {
		return result, tp.fatal
	}

	sl := e.reconcileLeg(ctx, pos, orders.LegStopLoss, desired.StopLossPrice, existing[orders.LegStopLoss], degraded)
	result.StopLossAction = sl.action
	result.Errors = append(result.Errors, sl.errs...)
	if sl.fatal != nil {
		return result, sl.fatal
	}

	// The cache only ever holds exchange-confirmed state; a degraded
	// pass observed nothing new.
	if !degraded {
		e.updateCache(pos, tp, sl)
	}

	e.logger.Info().
		Str("wallet", pos.WalletAddress).
		Str("symbol", pos.Symbol).
		Str("tp_action", string(tp.action)).
		Str("sl_action", string(sl.action)).
		Bool("degraded", degraded).
		Int("errors", len(result.Errors)).
		Msg("Reconciliation pass complete")

	return result, nil
}

// existingView builds the per-leg view of current trigger orders: from a
// live fetch when possible, from the cache when the fetch fails with a
// transient error.
func (e *Engine) existingView(ctx context.Context, pos PositionContext) (map[orders.Leg]*orders.ExistingOrder, bool, []LegError, error) {
	existing := map[orders.Leg]*orders.ExistingOrder{}

	raws, err := e.gateway.FetchOpenOrders(ctx, pos.WalletAddress, pos.Symbol)
	if err != nil {
		var authErr *hyperliquid.AuthError
		if errors.As(err, &authErr) {
			return nil, false, nil, err
		}

		e.logger.Warn().
			Err(err).
			Str("wallet", pos.WalletAddress).
			Str("symbol", pos.Symbol).
			Msg("Open-order fetch failed, falling back to cached view")

		// A leg flagged unprotected has no live order behind its cached
		// price; synthesizing one would let a degraded pass report SKIP
		// for a position with no working trigger. Treat it as absent so
		// the pass defers it as unresolved instead.
		if entry, ok := e.cache.Get(pos.WalletAddress, pos.Symbol); ok {
			if entry.TakeProfitPrice != nil && !entry.TPUnprotected {
				existing[orders.LegTakeProfit] = &orders.ExistingOrder{Leg: orders.LegTakeProfit, TriggerPrice: *entry.TakeProfitPrice}
			}
			if entry.StopLossPrice != nil && !entry.SLUnprotected {
				existing[orders.LegStopLoss] = &orders.ExistingOrder{Leg: orders.LegStopLoss, TriggerPrice: *entry.StopLossPrice}
			}
		}
		return existing, true, nil, nil
	}

	var errs []LegError
	counts := map[orders.Leg]int{}
	for _, raw := range raws {
		order, ok := orders.Classify(raw)
		if !ok {
			continue
		}
		counts[order.Leg]++
		current := existing[order.Leg]
		if current == nil || order.CreatedAtMs > current.CreatedAtMs {
			o := order
			existing[order.Leg] = &o
		}
	}

	// More than one live order per leg means something else has been
	// writing trigger orders for this position. Most recently created
	// wins; the anomaly is surfaced, not fatal.
	for leg, n := range counts {
		if n > 1 {
			e.logger.Warn().
				Str("wallet", pos.WalletAddress).
				Str("symbol", pos.Symbol).
				Str("leg", string(leg)).
				Int("count", n).
				Msg("Multiple live orders for one leg, using most recent")
			errs = append(errs, LegError{
				Leg:      leg,
				Severity: SeverityWarning,
				Message:  fmt.Sprintf("%d live orders found for leg, using most recently created", n),
			})
		}
	}

	return existing, false, errs, nil
}

// legOutcome is the result of reconciling one leg.
type legOutcome struct {
	leg         orders.Leg
	action      LegAction
	confirmed   *float64 // exchange-confirmed price; nil retains the cached value
	unprotected bool     // cancel succeeded but create failed
	errs        []LegError
	fatal       error
}

func (e *Engine) reconcileLeg(ctx context.Context, pos PositionContext, leg orders.Leg, desired *float64, existing *orders.ExistingOrder, degraded bool) legOutcome {
	out := legOutcome{leg: leg, action: ActionNone}

	switch {
	case desired == nil:
		// No change requested; refresh the cache with what the live
		// fetch observed for this leg.
		if !degraded && existing != nil {
			out.confirmed = &existing.TriggerPrice
		}
		return out

	case existing == nil:
		out.action = ActionCreate

	case relativeDiff(existing.TriggerPrice, *desired) <= e.cfg.PriceTolerance:
		// Already in sync: no exchange calls, but the cache is still
		// refreshed to the confirmed value.
		out.action = ActionSkip
		out.confirmed = &existing.TriggerPrice
		return out

	default:
		out.action = ActionReplace
	}

	// Degraded mode is read-only: a create against an unobserved order
	// book risks duplicate triggers, so mutations wait for a live view.
	if degraded {
		out.errs = append(out.errs, LegError{
			Leg:      leg,
			Severity: SeverityError,
			Message:  fmt.Sprintf("%s deferred: operating on cached view after fetch failure", out.action),
		})
		return out
	}

	if mid, violated := e.bandViolation(pos.Symbol, *desired); violated {
		out.errs = append(out.errs, LegError{
			Leg:      leg,
			Severity: SeverityError,
			Message:  fmt.Sprintf("trigger price %v outside allowed band around mid %v, not sent", *desired, mid),
			Err:      &hyperliquid.RejectedOrderError{Symbol: pos.Symbol, Reason: "trigger price outside allowed band"},
		})
		if existing != nil {
			out.confirmed = &existing.TriggerPrice
		}
		return out
	}

	if out.action == ActionReplace {
		// Cancel before create, never the other way around. If the
		// cancel fails the old order keeps protecting the position and
		// the leg is retried next cycle.
		if err := e.gateway.CancelOrder(ctx, pos.Symbol, existing.ID); err != nil {
			var authErr *hyperliquid.AuthError
			if errors.As(err, &authErr) {
				out.fatal = err
				return out
			}
			out.errs = append(out.errs, LegError{
				Leg:      leg,
				Severity: SeverityError,
				Message:  "cancel failed, existing order left standing",
				Err:      err,
			})
			out.confirmed = &existing.TriggerPrice
			return out
		}
	}

	orderID, err := e.gateway.CreateTriggerOrder(ctx, pos.Symbol, leg, *desired, pos.PositionSize, pos.IsLong)
	if err != nil {
		var authErr *hyperliquid.AuthError
		if errors.As(err, &authErr) {
			out.fatal = err
			return out
		}
		if out.action == ActionReplace {
			// The old order is gone and the new one was refused: the
			// position has no working trigger for this leg.
			out.unprotected = true
			out.errs = append(out.errs, LegError{
				Leg:      leg,
				Severity: SeverityCritical,
				Message:  "cancel succeeded but create failed, leg is unprotected",
				Err:      err,
			})
			e.logger.Error().
				Err(err).
				Str("wallet", pos.WalletAddress).
				Str("symbol", pos.Symbol).
				Str("leg", string(leg)).
				Msg("Leg left unprotected after failed replace")
			return out
		}
		out.errs = append(out.errs, LegError{
			Leg:      leg,
			Severity: SeverityError,
			Message:  "create failed",
			Err:      err,
		})
		return out
	}

	e.logger.Info().
		Str("wallet", pos.WalletAddress).
		Str("symbol", pos.Symbol).
		Str("leg", string(leg)).
		Float64("trigger_price", *desired).
		Int64("oid", orderID).
		Str("action", string(out.action)).
		Msg("Trigger order placed")

	out.confirmed = desired
	return out
}

// updateCache merges the pass outcome into the cache entry for the key.
// Legs without a confirmed value retain their previous last-known-good
// price; an unprotected leg keeps its stale value plus the marker.
func (e *Engine) updateCache(pos PositionContext, tp, sl legOutcome) {
	prev, _ := e.cache.Get(pos.WalletAddress, pos.Symbol)

	entry := CacheEntry{
		WalletAddress:   pos.WalletAddress,
		Symbol:          pos.Symbol,
		TakeProfitPrice: mergeLeg(prev.TakeProfitPrice, tp),
		StopLossPrice:   mergeLeg(prev.StopLossPrice, sl),
		TPUnprotected:   tp.unprotected,
		SLUnprotected:   sl.unprotected,
		UpdatedAtMs:     e.nowMs(),
	}
	e.cache.Set(entry)
}

func mergeLeg(prev *float64, out legOutcome) *float64 {
	if out.confirmed != nil {
		v := *out.confirmed
		return &v
	}
	return prev
}

// bandViolation reports whether a desired trigger price sits outside the
// allowed band around the current mid.
func (e *Engine) bandViolation(symbol string, price float64) (float64, bool) {
	if e.prices == nil || e.cfg.TriggerBandPct <= 0 {
		return 0, false
	}
	mid, ok := e.prices.Mid(symbol)
	if !ok || mid <= 0 {
		return 0, false
	}
	if math.Abs(price-mid)/mid > e.cfg.TriggerBandPct {
		return mid, true
	}
	return 0, false
}

// relativeDiff is |existing - desired| / existing.
func relativeDiff(existing, desired float64) float64 {
	return math.Abs(existing-desired) / existing
}
