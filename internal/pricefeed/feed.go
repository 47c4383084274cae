package pricefeed

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// Config holds the websocket feed settings.
type Config struct {
	URL              string // e.g. wss://api.hyperliquid.xyz/ws
	ReconnectBackoff time.Duration
	StaleAfter       time.Duration
}

// Feed maintains a live mid-price table from the exchange allMids
// websocket channel. Mids are advisory: a missing or stale mid disables
// the pre-flight band check rather than blocking reconciliation.
type Feed struct {
	cfg    Config
	logger zerolog.Logger

	mu   sync.RWMutex
	mids map[string]midPoint
}

type midPoint struct {
	price   float64
	updated time.Time
}

// NewFeed creates a feed; Run must be called to start consuming.
func NewFeed(cfg Config, logger zerolog.Logger) *Feed {
	if cfg.ReconnectBackoff <= 0 {
		cfg.ReconnectBackoff = 3 * time.Second
	}
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = 30 * time.Second
	}
	return &Feed{
		cfg:    cfg,
		logger: logger.With().Str("component", "pricefeed").Logger(),
		mids:   make(map[string]midPoint),
	}
}

// Mid returns the current mid price for a symbol. ok is false when the
// symbol is unknown or the last update is older than StaleAfter.
func (f *Feed) Mid(symbol string) (float64, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	point, ok := f.mids[strings.ToUpper(symbol)]
	if !ok || time.Since(point.updated) > f.cfg.StaleAfter {
		return 0, false
	}
	return point.price, true
}

// Run connects and consumes until ctx is canceled, reconnecting with a
// fixed backoff on any failure.
func (f *Feed) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		if err := f.consume(ctx); err != nil && ctx.Err() == nil {
			f.logger.Warn().Err(err).
				Dur("backoff", f.cfg.ReconnectBackoff).
				Msg("Price feed connection lost, reconnecting")
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(f.cfg.ReconnectBackoff):
		}
	}
}

type subscribeMessage struct {
	Method       string `json:"method"`
	Subscription struct {
		Type string `json:"type"`
	} `json:"subscription"`
}

type wsEnvelope struct {
	Channel string `json:"channel"`
	Data    struct {
		Mids map[string]string `json:"mids"`
	} `json:"data"`
}

func (f *Feed) consume(ctx context.Context) error {
	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	conn, _, err := websocket.DefaultDialer.DialContext(dialCtx, f.cfg.URL, nil)
	cancel()
	if err != nil {
		return err
	}
	defer conn.Close()

	sub := subscribeMessage{Method: "subscribe"}
	sub.Subscription.Type = "allMids"
	if err := conn.WriteJSON(sub); err != nil {
		return err
	}
	f.logger.Info().Str("url", f.cfg.URL).Msg("Subscribed to allMids")

	// Close the socket when ctx is canceled so ReadMessage unblocks.
	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		f.handleMessage(message)
	}
}

func (f *Feed) handleMessage(message []byte) {
	var env wsEnvelope
	if err := json.Unmarshal(message, &env); err != nil {
		f.logger.Debug().Err(err).Msg("Skipping unparseable feed message")
		return
	}
	if env.Channel != "allMids" || len(env.Data.Mids) == 0 {
		return
	}

	now := time.Now()
	f.mu.Lock()
	for coin, raw := range env.Data.Mids {
		price, err := strconv.ParseFloat(raw, 64)
		if err != nil || price <= 0 {
			continue
		}
		f.mids[strings.ToUpper(coin)] = midPoint{price: price, updated: now}
	}
	f.mu.Unlock()
}
