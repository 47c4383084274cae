package risksync

import (
	"context"

	"hyperliquid-trading-bot/internal/hyperliquid"
	"hyperliquid-trading-bot/internal/orders"
)

// OrderGateway is the engine's view of the exchange. Implementations do
// no retrying; a failed call is surfaced and the next decision cycle
// retries. CancelOrder must be idempotent: canceling an order that no
// longer exists is success.
type OrderGateway interface {
	FetchOpenOrders(ctx context.Context, wallet, symbol string) ([]hyperliquid.RawOrder, error)
	CancelOrder(ctx context.Context, symbol string, orderID int64) error
	CreateTriggerOrder(ctx context.Context, symbol string, leg orders.Leg, triggerPrice, size float64, isLong bool) (int64, error)
}

// PriceSource supplies a current mid price for pre-flight trigger-band
// validation. Implementations return ok=false when no price is known.
type PriceSource interface {
	Mid(symbol string) (float64, bool)
}

// hyperliquidGateway adapts the exchange client to the OrderGateway
// interface.
type hyperliquidGateway struct {
	client *hyperliquid.Client
}

// NewHyperliquidGateway wraps an exchange client as an OrderGateway.
func NewHyperliquidGateway(client *hyperliquid.Client) OrderGateway {
	return &hyperliquidGateway{client: client}
}

func (g *hyperliquidGateway) FetchOpenOrders(ctx context.Context, wallet, symbol string) ([]hyperliquid.RawOrder, error) {
	return g.client.FetchOpenOrders(ctx, wallet, symbol)
}

func (g *hyperliquidGateway) CancelOrder(ctx context.Context, symbol string, orderID int64) error {
	return g.client.CancelOrder(ctx, symbol, orderID)
}

func (g *hyperliquidGateway) CreateTriggerOrder(ctx context.Context, symbol string, leg orders.Leg, triggerPrice, size float64, isLong bool) (int64, error) {
	return g.client.PlaceTriggerOrder(ctx, symbol, string(leg), triggerPrice, size, isLong)
}
