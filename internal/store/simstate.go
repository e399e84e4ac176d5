package store

import (
	"sync"

	"github.com/efreitasn/papervenue/internal/domain"
)

// SimStateStore holds the singleton simulator state record: the active
// configuration, the feed's running flag, and the per-symbol bar cursor
// indexes. It is the persistence boundary for feed resumption: the feed
// re-reads it on start so a restart resumes the bar replay rather than
// restarting it.
type SimStateStore struct {
	mu      sync.RWMutex
	config  domain.SimConfig
	risk    domain.RiskConfig
	running bool
	cursors map[string]int // symbol -> bar cursor index
}

// NewSimStateStore creates a SimStateStore seeded with the given
// configuration records.
func NewSimStateStore(cfg domain.SimConfig, risk domain.RiskConfig) *SimStateStore {
	return &SimStateStore{
		config:  cfg,
		risk:    risk,
		cursors: make(map[string]int),
	}
}

// Config returns a snapshot of the simulator configuration.
func (s *SimStateStore) Config() domain.SimConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.config
}

// SetConfig replaces the simulator configuration as a whole record, so
// readers never observe a partially updated config.
func (s *SimStateStore) SetConfig(cfg domain.SimConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.config = cfg
}

// RiskConfig returns a snapshot of the risk configuration.
func (s *SimStateStore) RiskConfig() domain.RiskConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.risk
}

// SetRiskConfig replaces the risk configuration as a whole record.
func (s *SimStateStore) SetRiskConfig(cfg domain.RiskConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.risk = cfg
}

// Running returns the persisted feed running flag.
func (s *SimStateStore) Running() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// SetRunning persists the feed running flag.
func (s *SimStateStore) SetRunning(running bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = running
}

// Cursor returns the persisted bar cursor for a symbol, zero if unset.
func (s *SimStateStore) Cursor(symbol string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cursors[symbol]
}

// SetCursor persists the bar cursor for a symbol.
func (s *SimStateStore) SetCursor(symbol string, cursor int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cursors[symbol] = cursor
}
