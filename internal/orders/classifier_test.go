package orders

import (
	"testing"

	"hyperliquid-trading-bot/internal/hyperliquid"
)

func flexPtr(v float64) *hyperliquid.FlexFloat {
	f := hyperliquid.FlexFloat(v)
	return &f
}

// The same trigger order expressed in any of the three wire shapes must
// classify to the same canonical leg and price.
func TestClassifyShapeEquivalence(t *testing.T) {
	shapes := []struct {
		name   string
		tp     hyperliquid.RawOrder
		sl     hyperliquid.RawOrder
		source SourceFormat
	}{
		{
			name: "structured trigger object",
			tp: hyperliquid.RawOrder{
				OID:     1,
				Coin:    "ETH",
				Trigger: &hyperliquid.TriggerInfo{Tpsl: "tp", TriggerPx: 3500, IsMarket: true},
			},
			sl: hyperliquid.RawOrder{
				OID:     2,
				Coin:    "ETH",
				Trigger: &hyperliquid.TriggerInfo{Tpsl: "sl", TriggerPx: 2800, IsMarket: true},
			},
			source: SourceTriggerObject,
		},
		{
			name: "order type label",
			tp: hyperliquid.RawOrder{
				OID:       1,
				Coin:      "ETH",
				OrderType: "Take Profit Market",
				IsTrigger: true,
				TriggerPx: flexPtr(3500),
			},
			sl: hyperliquid.RawOrder{
				OID:       2,
				Coin:      "ETH",
				OrderType: "Stop Market",
				IsTrigger: true,
				TriggerPx: flexPtr(2800),
			},
			source: SourceOrderTypeLabel,
		},
		{
			name: "free-text condition",
			tp: hyperliquid.RawOrder{
				OID:              1,
				Coin:             "ETH",
				IsTrigger:        true,
				TriggerCondition: "Price above 3500",
				TriggerPx:        flexPtr(3500),
			},
			sl: hyperliquid.RawOrder{
				OID:              2,
				Coin:             "ETH",
				IsTrigger:        true,
				TriggerCondition: "Price below 2800",
				TriggerPx:        flexPtr(2800),
			},
			source: SourceConditionString,
		},
	}

	for _, shape := range shapes {
		t.Run(shape.name, func(t *testing.T) {
			tp, ok := Classify(shape.tp)
			if !ok {
				t.Fatal("TP order did not classify")
			}
			if tp.Leg != LegTakeProfit || tp.TriggerPrice != 3500 {
				t.Errorf("TP classified as (%s, %v), want (tp, 3500)", tp.Leg, tp.TriggerPrice)
			}
			if tp.SourceFormat != shape.source {
				t.Errorf("TP source = %s, want %s", tp.SourceFormat, shape.source)
			}

			sl, ok := Classify(shape.sl)
			if !ok {
				t.Fatal("SL order did not classify")
			}
			if sl.Leg != LegStopLoss || sl.TriggerPrice != 2800 {
				t.Errorf("SL classified as (%s, %v), want (sl, 2800)", sl.Leg, sl.TriggerPrice)
			}
		})
	}
}

// The structured trigger object wins when several shapes are present.
func TestClassifyShapePriority(t *testing.T) {
	raw := hyperliquid.RawOrder{
		OID:              7,
		Coin:             "BTC",
		Trigger:          &hyperliquid.TriggerInfo{Tpsl: "sl", TriggerPx: 87000},
		OrderType:        "Take Profit Market",
		IsTrigger:        true,
		TriggerCondition: "Price above 90000",
		TriggerPx:        flexPtr(90000),
	}

	order, ok := Classify(raw)
	if !ok {
		t.Fatal("order did not classify")
	}
	if order.SourceFormat != SourceTriggerObject {
		t.Errorf("source = %s, want %s", order.SourceFormat, SourceTriggerObject)
	}
	if order.Leg != LegStopLoss || order.TriggerPrice != 87000 {
		t.Errorf("classified as (%s, %v), want (sl, 87000) from the trigger object", order.Leg, order.TriggerPrice)
	}
}

func TestClassifyRejectsNonTriggerOrders(t *testing.T) {
	cases := []struct {
		name string
		raw  hyperliquid.RawOrder
	}{
		{"plain limit order", hyperliquid.RawOrder{OID: 1, Coin: "ETH", OrderType: "Limit", LimitPx: 3500}},
		{"trigger flag without price", hyperliquid.RawOrder{OID: 2, Coin: "ETH", OrderType: "Stop Market", IsTrigger: true}},
		{"unknown tpsl kind", hyperliquid.RawOrder{OID: 3, Coin: "ETH", Trigger: &hyperliquid.TriggerInfo{Tpsl: "tw", TriggerPx: 3500}}},
		{"zero trigger price", hyperliquid.RawOrder{OID: 4, Coin: "ETH", Trigger: &hyperliquid.TriggerInfo{Tpsl: "tp", TriggerPx: 0}}},
		{"condition without direction", hyperliquid.RawOrder{OID: 5, Coin: "ETH", IsTrigger: true, TriggerCondition: "Triggered at close", TriggerPx: flexPtr(3500)}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, ok := Classify(tc.raw); ok {
				t.Error("expected record to be ignored")
			}
		})
	}
}

func TestClassifyPreservesIdentity(t *testing.T) {
	raw := hyperliquid.RawOrder{
		OID:       42,
		Coin:      "SOL",
		Trigger:   &hyperliquid.TriggerInfo{Tpsl: "tp", TriggerPx: 210.5},
		Timestamp: 1700000000000,
	}
	order, ok := Classify(raw)
	if !ok {
		t.Fatal("order did not classify")
	}
	if order.ID != 42 {
		t.Errorf("ID = %d, want 42", order.ID)
	}
	if order.CreatedAtMs != 1700000000000 {
		t.Errorf("CreatedAtMs = %d, want 1700000000000", order.CreatedAtMs)
	}
}
