package bot

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"hyperliquid-trading-bot/config"
	"hyperliquid-trading-bot/internal/hyperliquid"
	"hyperliquid-trading-bot/internal/risksync"
)

// PositionFetcher supplies the current position for an instrument.
type PositionFetcher interface {
	FetchPosition(ctx context.Context, wallet, symbol string) (hyperliquid.Position, bool, error)
}

// Orchestrator drives one reconciliation loop per configured instrument.
// Every cycle it reads the desired levels from the store, fetches the
// live position, and hands both to the engine.
type Orchestrator struct {
	engine      *risksync.Engine
	positions   PositionFetcher
	levels      *LevelsStore
	instruments []config.Instrument
	interval    time.Duration
	logger      zerolog.Logger

	wg     sync.WaitGroup
	cancel context.CancelFunc
	mu     sync.Mutex
}

// NewOrchestrator creates an orchestrator over the configured instruments.
func NewOrchestrator(engine *risksync.Engine, positions PositionFetcher, levels *LevelsStore, instruments []config.Instrument, interval time.Duration, logger zerolog.Logger) *Orchestrator {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Orchestrator{
		engine:      engine,
		positions:   positions,
		levels:      levels,
		instruments: instruments,
		interval:    interval,
		logger:      logger.With().Str("component", "orchestrator").Logger(),
	}
}

// Start launches one loop goroutine per instrument.
func (o *Orchestrator) Start(ctx context.Context) {
	o.mu.Lock()
	defer o.mu.Unlock()

	runCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel

	for _, inst := range o.instruments {
		o.wg.Add(1)
		go o.runInstrument(runCtx, inst)
	}
	o.logger.Info().
		Int("instruments", len(o.instruments)).
		Dur("interval", o.interval).
		Msg("Orchestrator started")
}

// Stop cancels all loops and waits for them to finish.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	cancel := o.cancel
	o.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	o.wg.Wait()
	o.logger.Info().Msg("Orchestrator stopped")
}

func (o *Orchestrator) runInstrument(ctx context.Context, inst config.Instrument) {
	defer o.wg.Done()

	ticker := time.NewTicker(o.interval)
	defer ticker.Stop()

	// First pass immediately, then on the ticker.
	o.runCycle(ctx, inst)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			o.runCycle(ctx, inst)
		}
	}
}

func (o *Orchestrator) runCycle(ctx context.Context, inst config.Instrument) {
	cycleID := uuid.New().String()
	log := o.logger.With().
		Str("cycle_id", cycleID).
		Str("wallet", inst.WalletAddress).
		Str("symbol", inst.Symbol).
		Logger()

	stored, ok := o.levels.Get(inst.WalletAddress, inst.Symbol)
	if !ok {
		log.Debug().Msg("No desired levels set, skipping cycle")
		return
	}

	cycleCtx, cancel := context.WithTimeout(ctx, o.interval)
	defer cancel()

	position, exists, err := o.positions.FetchPosition(cycleCtx, inst.WalletAddress, inst.Symbol)
	if err != nil {
		log.Warn().Err(err).Msg("Position fetch failed, skipping cycle")
		return
	}
	if !exists || position.Size == 0 {
		log.Debug().Msg("No open position, skipping cycle")
		return
	}

	pos := risksync.PositionContext{
		WalletAddress: inst.WalletAddress,
		Symbol:        inst.Symbol,
		IsLong:        position.IsLong(),
		PositionSize:  position.AbsSize(),
	}

	result, err := o.engine.Reconcile(cycleCtx, pos, stored.Levels)
	if err != nil {
		var authErr *hyperliquid.AuthError
		if errors.As(err, &authErr) {
			log.Error().Err(err).Msg("Reconciliation aborted on auth failure")
			return
		}
		log.Error().Err(err).Msg("Reconciliation failed")
		return
	}

	for _, legErr := range result.Errors {
		event := log.Warn()
		switch legErr.Severity {
		case risksync.SeverityError:
			event = log.Error()
		case risksync.SeverityCritical:
			event = log.Error().Bool("unprotected", true)
		}
		event.Str("leg", string(legErr.Leg)).Msg(legErr.Message)
	}
}
