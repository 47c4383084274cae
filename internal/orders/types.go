// Package orders defines the canonical trigger-order model and the
// classifier that maps raw exchange order records into it.
package orders

// Leg identifies one of the two trigger slots tracked per position.
type Leg string

const (
	LegTakeProfit Leg = "tp"
	LegStopLoss   Leg = "sl"
)

// SourceFormat tags which raw representation an order was classified from.
type SourceFormat string

const (
	SourceTriggerObject   SourceFormat = "trigger_object"   // structured trigger block
	SourceOrderTypeLabel  SourceFormat = "order_type_label" // human-readable order type string
	SourceConditionString SourceFormat = "condition_string" // free-text trigger condition
)

// ExistingOrder is the canonical view of a live TP/SL trigger order.
// Values are only ever constructed by Classify.
type ExistingOrder struct {
	ID           int64
	Leg          Leg
	TriggerPrice float64
	SourceFormat SourceFormat
	CreatedAtMs  int64
}
