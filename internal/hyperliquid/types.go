package hyperliquid

import (
	"encoding/json"
	"strconv"
)

// FlexFloat unmarshals a JSON number that the exchange may serialize as
// either a bare number or a quoted string. The API is inconsistent about
// this across endpoints and response versions.
type FlexFloat float64

func (f *FlexFloat) UnmarshalJSON(data []byte) error {
	if len(data) == 0 || string(data) == "null" {
		*f = 0
		return nil
	}
	s := string(data)
	if s[0] == '"' {
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == "" {
			*f = 0
			return nil
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return err
		}
		*f = FlexFloat(v)
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*f = FlexFloat(v)
	return nil
}

func (f FlexFloat) Float64() float64 { return float64(f) }

// TriggerInfo is the structured trigger block present on newer order
// representations: the trigger kind is named explicitly.
type TriggerInfo struct {
	Tpsl      string    `json:"tpsl"` // "tp" or "sl"
	TriggerPx FlexFloat `json:"triggerPx"`
	IsMarket  bool      `json:"isMarket"`
}

// RawOrder is one open order as reported by the frontendOpenOrders info
// endpoint. The exchange has shipped three incompatible ways of saying
// "this is a TP/SL trigger at price X"; all three sets of fields are kept
// here and the orders package decides which one applies.
type RawOrder struct {
	OID              int64        `json:"oid"`
	Coin             string       `json:"coin"`
	Side             string       `json:"side"` // "B" buy, "A" ask/sell
	LimitPx          FlexFloat    `json:"limitPx"`
	Sz               FlexFloat    `json:"sz"`
	OrigSz           FlexFloat    `json:"origSz"`
	OrderType        string       `json:"orderType"` // e.g. "Limit", "Stop Limit", "Take Profit Limit"
	IsTrigger        bool         `json:"isTrigger"`
	TriggerCondition string       `json:"triggerCondition"` // e.g. "Price above 87500"
	TriggerPx        *FlexFloat   `json:"triggerPx"`
	Trigger          *TriggerInfo `json:"trigger"`
	IsPositionTpsl   bool         `json:"isPositionTpsl"`
	ReduceOnly       bool         `json:"reduceOnly"`
	Timestamp        int64        `json:"timestamp"` // placement time, ms
}

// Position is the engine-relevant slice of a clearinghouse position.
type Position struct {
	Symbol     string
	Size       float64 // signed: positive long, negative short
	EntryPrice float64
	Leverage   int
}

// IsLong reports the position direction. Zero-size positions are not long.
func (p Position) IsLong() bool { return p.Size > 0 }

// AbsSize returns the unsigned position size.
func (p Position) AbsSize() float64 {
	if p.Size < 0 {
		return -p.Size
	}
	return p.Size
}

// assetMeta is the per-asset metadata from the meta info endpoint.
type assetMeta struct {
	index      int
	szDecimals int
}

// info endpoint wire types

type infoRequest struct {
	Type string `json:"type"`
	User string `json:"user,omitempty"`
}

type metaResponse struct {
	Universe []struct {
		Name       string `json:"name"`
		SzDecimals int    `json:"szDecimals"`
	} `json:"universe"`
}

type clearinghouseResponse struct {
	AssetPositions []struct {
		Position struct {
			Coin     string    `json:"coin"`
			Szi      FlexFloat `json:"szi"`
			EntryPx  FlexFloat `json:"entryPx"`
			Leverage struct {
				Value int `json:"value"`
			} `json:"leverage"`
		} `json:"position"`
	} `json:"assetPositions"`
}

// exchange endpoint wire types

type orderWire struct {
	Asset      int           `json:"a"`
	IsBuy      bool          `json:"b"`
	LimitPx    string        `json:"p"`
	Sz         string        `json:"s"`
	ReduceOnly bool          `json:"r"`
	Type       orderTypeWire `json:"t"`
	Cloid      string        `json:"c,omitempty"`
}

type orderTypeWire struct {
	Trigger *triggerWire `json:"trigger,omitempty"`
	Limit   *limitWire   `json:"limit,omitempty"`
}

type triggerWire struct {
	TriggerPx string `json:"triggerPx"`
	IsMarket  bool   `json:"isMarket"`
	Tpsl      string `json:"tpsl"`
}

type limitWire struct {
	Tif string `json:"tif"`
}

type orderAction struct {
	Type     string      `json:"type"`
	Orders   []orderWire `json:"orders"`
	Grouping string      `json:"grouping"`
}

type cancelAction struct {
	Type    string       `json:"type"`
	Cancels []cancelWire `json:"cancels"`
}

type cancelWire struct {
	Asset int   `json:"a"`
	OID   int64 `json:"o"`
}

type exchangeRequest struct {
	Action    interface{}   `json:"action"`
	Nonce     int64         `json:"nonce"`
	Signature signatureWire `json:"signature"`
}

type signatureWire struct {
	R string `json:"r"`
	S string `json:"s"`
	V byte   `json:"v"`
}

type exchangeResponse struct {
	Status   string `json:"status"`
	Response struct {
		Type string `json:"type"`
		Data struct {
			Statuses []orderStatusWire `json:"statuses"`
		} `json:"data"`
	} `json:"response"`
}

// orderStatusWire is one per-order status in an exchange response. It is
// either the string "success", or an object with exactly one of the
// fields set.
type orderStatusWire struct {
	Resting *struct {
		OID int64 `json:"oid"`
	} `json:"resting"`
	Filled *struct {
		OID int64 `json:"oid"`
	} `json:"filled"`
	Error string `json:"error"`

	// success is set when the wire value was the bare string "success"
	success bool
}

func (s *orderStatusWire) UnmarshalJSON(data []byte) error {
	if string(data) == `"success"` {
		s.success = true
		return nil
	}
	type alias orderStatusWire
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*s = orderStatusWire(a)
	return nil
}
