package bot

import (
	"context"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"hyperliquid-trading-bot/config"
	"hyperliquid-trading-bot/internal/hyperliquid"
	"hyperliquid-trading-bot/internal/orders"
	"hyperliquid-trading-bot/internal/risksync"
)

type stubGateway struct {
	mu      sync.Mutex
	creates int
}

func (g *stubGateway) FetchOpenOrders(ctx context.Context, wallet, symbol string) ([]hyperliquid.RawOrder, error) {
	return nil, nil
}

func (g *stubGateway) CancelOrder(ctx context.Context, symbol string, orderID int64) error {
	return nil
}

func (g *stubGateway) CreateTriggerOrder(ctx context.Context, symbol string, leg orders.Leg, triggerPrice, size float64, isLong bool) (int64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.creates++
	return int64(g.creates), nil
}

type stubPositions struct {
	position hyperliquid.Position
	exists   bool
	err      error
}

func (p *stubPositions) FetchPosition(ctx context.Context, wallet, symbol string) (hyperliquid.Position, bool, error) {
	return p.position, p.exists, p.err
}

var testInstrument = config.Instrument{WalletAddress: "0xabc", Symbol: "ETH"}

func newTestOrchestrator(gw risksync.OrderGateway, positions PositionFetcher) (*Orchestrator, *LevelsStore) {
	engine := risksync.NewEngine(risksync.EngineConfig{}, gw, risksync.NewLevelsCache(), nil, zerolog.Nop())
	levels := NewLevelsStore()
	return NewOrchestrator(engine, positions, levels, []config.Instrument{testInstrument}, 0, zerolog.Nop()), levels
}

func TestCycleReconcilesOpenPosition(t *testing.T) {
	gw := &stubGateway{}
	positions := &stubPositions{
		position: hyperliquid.Position{Symbol: "ETH", Size: 1.5, EntryPrice: 3000},
		exists:   true,
	}
	orch, levels := newTestOrchestrator(gw, positions)

	tp, sl := 3500.0, 2800.0
	levels.Set("0xabc", "ETH", risksync.DesiredLevels{TakeProfitPrice: &tp, StopLossPrice: &sl})

	orch.runCycle(context.Background(), testInstrument)

	if gw.creates != 2 {
		t.Errorf("expected 2 trigger orders created, got %d", gw.creates)
	}
}

func TestCycleSkipsWithoutDesiredLevels(t *testing.T) {
	gw := &stubGateway{}
	positions := &stubPositions{
		position: hyperliquid.Position{Symbol: "ETH", Size: 1.5},
		exists:   true,
	}
	orch, _ := newTestOrchestrator(gw, positions)

	orch.runCycle(context.Background(), testInstrument)

	if gw.creates != 0 {
		t.Errorf("expected no orders without desired levels, got %d", gw.creates)
	}
}

func TestCycleSkipsClosedPosition(t *testing.T) {
	gw := &stubGateway{}
	positions := &stubPositions{exists: false}
	orch, levels := newTestOrchestrator(gw, positions)

	tp := 3500.0
	levels.Set("0xabc", "ETH", risksync.DesiredLevels{TakeProfitPrice: &tp})

	orch.runCycle(context.Background(), testInstrument)

	if gw.creates != 0 {
		t.Errorf("expected no orders for a closed position, got %d", gw.creates)
	}
}

func TestLevelsStoreKeyNormalization(t *testing.T) {
	store := NewLevelsStore()
	tp := 3500.0
	store.Set("0xABC", "eth", risksync.DesiredLevels{TakeProfitPrice: &tp})

	stored, ok := store.Get("0xabc", "ETH")
	if !ok {
		t.Fatal("expected hit on normalized key")
	}
	if stored.Levels.TakeProfitPrice == nil || *stored.Levels.TakeProfitPrice != 3500 {
		t.Errorf("TP = %v, want 3500", stored.Levels.TakeProfitPrice)
	}

	store.Clear("0XABC", "Eth")
	if _, ok := store.Get("0xabc", "ETH"); ok {
		t.Error("expected miss after Clear")
	}
}
