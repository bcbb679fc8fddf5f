package session

import (
	"sync"

	"github.com/rxtech-lab/argo-arbitrage/internal/types"
)

// SettingsStore owns the mutable risk settings for one session. Set merges
// a partial update; an invalid result is rejected and the prior settings
// are kept.
type SettingsStore interface {
	Get() types.RiskSettings
	Set(patch types.RiskSettingsPatch) (types.RiskSettings, error)
	Reset() types.RiskSettings
}

// MemorySettingsStore is the in-memory SettingsStore implementation.
type MemorySettingsStore struct {
	mu       sync.RWMutex
	current  types.RiskSettings
	defaults types.RiskSettings
}

// NewMemorySettingsStore creates a store seeded with defaults.
func NewMemorySettingsStore(defaults types.RiskSettings) *MemorySettingsStore {
	return &MemorySettingsStore{
		current:  defaults,
		defaults: defaults,
	}
}

// Get implements SettingsStore.
func (s *MemorySettingsStore) Get() types.RiskSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.current
}

// Set implements SettingsStore. The patch is applied to a copy and
// validated before replacing the current settings.
func (s *MemorySettingsStore) Set(patch types.RiskSettingsPatch) (types.RiskSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	merged := s.current.Apply(patch)
	if err := merged.Validate(); err != nil {
		return s.current, err
	}

	s.current = merged

	return s.current, nil
}

// Reset implements SettingsStore.
func (s *MemorySettingsStore) Reset() types.RiskSettings {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.current = s.defaults

	return s.current
}
