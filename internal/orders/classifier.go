package orders

import (
	"strings"

	"hyperliquid-trading-bot/internal/hyperliquid"
)

// Classify maps one raw exchange order record to its canonical form.
// The exchange has shipped three incompatible representations of the
// same fact; they are tried in fixed priority order and the first match
// wins. Returns ok=false when the record is not a TP/SL trigger order
// this engine manages — that is never an error, just not relevant.
func Classify(raw hyperliquid.RawOrder) (ExistingOrder, bool) {
	if leg, price, ok := classifyTriggerObject(raw); ok {
		return canonical(raw, leg, price, SourceTriggerObject), true
	}
	if leg, price, ok := classifyOrderTypeLabel(raw); ok {
		return canonical(raw, leg, price, SourceOrderTypeLabel), true
	}
	if leg, price, ok := classifyConditionString(raw); ok {
		return canonical(raw, leg, price, SourceConditionString), true
	}
	return ExistingOrder{}, false
}

func canonical(raw hyperliquid.RawOrder, leg Leg, price float64, source SourceFormat) ExistingOrder {
	return ExistingOrder{
		ID:           raw.OID,
		Leg:          leg,
		TriggerPrice: price,
		SourceFormat: source,
		CreatedAtMs:  raw.Timestamp,
	}
}

// classifyTriggerObject handles the structured shape: a nested trigger
// block naming the kind explicitly.
func classifyTriggerObject(raw hyperliquid.RawOrder) (Leg, float64, bool) {
	if raw.Trigger == nil {
		return "", 0, false
	}
	var leg Leg
	switch strings.ToLower(raw.Trigger.Tpsl) {
	case "tp":
		leg = LegTakeProfit
	case "sl":
		leg = LegStopLoss
	default:
		return "", 0, false
	}
	price := raw.Trigger.TriggerPx.Float64()
	if price <= 0 {
		return "", 0, false
	}
	return leg, price, true
}

// classifyOrderTypeLabel handles the labeled shape: a human-readable
// order type string plus the trigger flag, price in a separate field.
func classifyOrderTypeLabel(raw hyperliquid.RawOrder) (Leg, float64, bool) {
	if !raw.IsTrigger || raw.OrderType == "" {
		return "", 0, false
	}
	label := strings.ToLower(raw.OrderType)

	var leg Leg
	switch {
	case strings.Contains(label, "take profit"):
		leg = LegTakeProfit
	case strings.Contains(label, "stop"):
		leg = LegStopLoss
	default:
		return "", 0, false
	}

	price, ok := triggerPrice(raw)
	if !ok {
		return "", 0, false
	}
	return leg, price, true
}

// classifyConditionString is the fallback shape: no type label, only a
// free-text condition. "above" implies TP, "below" implies SL.
func classifyConditionString(raw hyperliquid.RawOrder) (Leg, float64, bool) {
	if !raw.IsTrigger || raw.TriggerCondition == "" {
		return "", 0, false
	}
	condition := strings.ToLower(raw.TriggerCondition)

	var leg Leg
	switch {
	case strings.Contains(condition, "above"):
		leg = LegTakeProfit
	case strings.Contains(condition, "below"):
		leg = LegStopLoss
	default:
		return "", 0, false
	}

	price, ok := triggerPrice(raw)
	if !ok {
		return "", 0, false
	}
	return leg, price, true
}

func triggerPrice(raw hyperliquid.RawOrder) (float64, bool) {
	if raw.TriggerPx == nil {
		return 0, false
	}
	price := raw.TriggerPx.Float64()
	if price <= 0 {
		return 0, false
	}
	return price, true
}
