package hyperliquid

import (
	"encoding/json"
	"testing"
)

func TestFlexFloatAcceptsBothEncodings(t *testing.T) {
	var parsed struct {
		A FlexFloat  `json:"a"`
		B FlexFloat  `json:"b"`
		C *FlexFloat `json:"c"`
	}
	payload := []byte(`{"a":"3505.25","b":2800,"c":null}`)
	if err := json.Unmarshal(payload, &parsed); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if parsed.A.Float64() != 3505.25 {
		t.Errorf("quoted value = %v, want 3505.25", parsed.A.Float64())
	}
	if parsed.B.Float64() != 2800 {
		t.Errorf("bare value = %v, want 2800", parsed.B.Float64())
	}
	if parsed.C != nil {
		t.Errorf("null value = %v, want nil", parsed.C)
	}
}

func TestFlexFloatRejectsGarbage(t *testing.T) {
	var f FlexFloat
	if err := json.Unmarshal([]byte(`"not a price"`), &f); err == nil {
		t.Error("expected parse error for non-numeric string")
	}
}

// frontendOpenOrders has shipped the same order in three shapes over
// time; RawOrder must parse each without losing the trigger fields.
func TestRawOrderParsesAllShapes(t *testing.T) {
	payloads := []struct {
		name string
		body string
	}{
		{
			"trigger object",
			`{"oid":1,"coin":"ETH","side":"A","triggerPx":"3500",
			  "trigger":{"tpsl":"tp","triggerPx":"3500","isMarket":true},
			  "reduceOnly":true,"timestamp":1700000000000}`,
		},
		{
			"order type label",
			`{"oid":2,"coin":"ETH","side":"A","orderType":"Stop Market",
			  "isTrigger":true,"triggerPx":2800,"reduceOnly":true,
			  "timestamp":1700000000000}`,
		},
		{
			"condition string",
			`{"oid":3,"coin":"ETH","side":"A","isTrigger":true,
			  "triggerCondition":"Price above 3500","triggerPx":"3500",
			  "timestamp":1700000000000}`,
		},
	}
	for _, tc := range payloads {
		t.Run(tc.name, func(t *testing.T) {
			var raw RawOrder
			if err := json.Unmarshal([]byte(tc.body), &raw); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if raw.TriggerPx == nil || raw.TriggerPx.Float64() <= 0 {
				t.Errorf("trigger price missing: %+v", raw.TriggerPx)
			}
			if raw.Timestamp != 1700000000000 {
				t.Errorf("timestamp = %d", raw.Timestamp)
			}
		})
	}
}

func TestOrderStatusWireBareSuccess(t *testing.T) {
	var resp exchangeResponse
	body := `{"status":"ok","response":{"type":"cancel","data":{"statuses":["success"]}}}`
	if err := json.Unmarshal([]byte(body), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	statuses := resp.Response.Data.Statuses
	if len(statuses) != 1 || !statuses[0].success {
		t.Errorf("expected bare success status, got %+v", statuses)
	}
}

func TestOrderStatusWireResting(t *testing.T) {
	var resp exchangeResponse
	body := `{"status":"ok","response":{"type":"order","data":{"statuses":[{"resting":{"oid":77}}]}}}`
	if err := json.Unmarshal([]byte(body), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	statuses := resp.Response.Data.Statuses
	if len(statuses) != 1 || statuses[0].Resting == nil || statuses[0].Resting.OID != 77 {
		t.Errorf("expected resting oid 77, got %+v", statuses)
	}
}

func TestCancelStatusIdempotence(t *testing.T) {
	gone := []string{
		"Order was never placed, already canceled, or filled",
		"Order already cancelled",
		"Order filled",
	}
	for _, s := range gone {
		if !cancelStatusIsIdempotent(s) {
			t.Errorf("%q should count as already gone", s)
		}
	}
	if cancelStatusIsIdempotent("Insufficient margin") {
		t.Error("real failure must not count as idempotent success")
	}
}

func TestClassifyExchangeStatus(t *testing.T) {
	err := classifyExchangeStatus("order", "ETH", "User or API Wallet 0xabc does not exist")
	if _, ok := err.(*AuthError); !ok {
		t.Errorf("expected AuthError, got %T", err)
	}

	err = classifyExchangeStatus("order", "ETH", "Price too far from oracle")
	rej, ok := err.(*RejectedOrderError)
	if !ok {
		t.Fatalf("expected RejectedOrderError, got %T", err)
	}
	if rej.Symbol != "ETH" {
		t.Errorf("symbol = %s, want ETH", rej.Symbol)
	}
}
