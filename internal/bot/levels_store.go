package bot

import (
	"strings"
	"sync"
	"time"

	"hyperliquid-trading-bot/internal/risksync"
)

// LevelsStore holds the desired TP/SL levels per (wallet, symbol). The
// API writes it, the orchestrator reads it each cycle. Distinct from the
// engine's cache, which reflects exchange-confirmed state.
type LevelsStore struct {
	mu      sync.RWMutex
	desired map[string]StoredLevels
}

// StoredLevels is one desired-levels record with its update time.
type StoredLevels struct {
	Levels    risksync.DesiredLevels
	UpdatedAt time.Time
}

// NewLevelsStore creates an empty store.
func NewLevelsStore() *LevelsStore {
	return &LevelsStore{desired: make(map[string]StoredLevels)}
}

// Set replaces the desired levels for a key.
func (s *LevelsStore) Set(wallet, symbol string, levels risksync.DesiredLevels) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.desired[storeKey(wallet, symbol)] = StoredLevels{Levels: levels, UpdatedAt: time.Now()}
}

// Get returns the desired levels for a key, if any were set.
func (s *LevelsStore) Get(wallet, symbol string) (StoredLevels, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stored, ok := s.desired[storeKey(wallet, symbol)]
	return stored, ok
}

// Clear removes the desired levels for a key.
func (s *LevelsStore) Clear(wallet, symbol string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.desired, storeKey(wallet, symbol))
}

func storeKey(wallet, symbol string) string {
	return strings.ToLower(wallet) + "|" + strings.ToUpper(symbol)
}
