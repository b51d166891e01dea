// Package risk implements portfolio-level signal admission. A manager is
// shared by every engine and serializes its per-profile state, so concurrent
// ticks from different keys cannot over-commit the open position limits.
package risk

import (
	"context"
	"fmt"
	"sync"

	"cryptoSignalBot/internal/domain"
	"cryptoSignalBot/internal/ports"
)

// ProfileConfig holds the admission limits for one risk profile.
type ProfileConfig struct {
	MaxOpenPositions int
	// MaxPerSymbol caps concurrently open positions for a single symbol
	// within the profile. Zero means unlimited.
	MaxPerSymbol int
}

// Manager implements ports.RiskController. Strategies are mapped onto named
// profiles; strategies without an explicit mapping share the default profile.
type Manager struct {
	logger   ports.Logger
	profiles map[string]ProfileConfig
	mapping  map[string]string

	mu    sync.Mutex
	state map[string]*profileState
}

type profileState struct {
	open      map[string]bool
	perSymbol map[string]int
}

const defaultProfile = "default"

// NewManager creates a manager with the given profiles. A "default" profile
// must be present; strategyMapping routes a StrategyID to a profile name and
// may be nil.
func NewManager(logger ports.Logger, profiles map[string]ProfileConfig, strategyMapping map[string]string) (*Manager, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if _, ok := profiles[defaultProfile]; !ok {
		return nil, fmt.Errorf("%w: risk profiles must include %q", ports.ErrConfigurationError, defaultProfile)
	}
	for name, p := range profiles {
		if p.MaxOpenPositions <= 0 {
			return nil, fmt.Errorf("%w: profile %q has non-positive MaxOpenPositions", ports.ErrConfigurationError, name)
		}
	}
	for strategy, profile := range strategyMapping {
		if _, ok := profiles[profile]; !ok {
			return nil, fmt.Errorf("%w: strategy %q mapped to unknown profile %q", ports.ErrConfigurationError, strategy, profile)
		}
	}

	m := &Manager{
		logger:   logger,
		profiles: profiles,
		mapping:  strategyMapping,
		state:    make(map[string]*profileState, len(profiles)),
	}
	for name := range profiles {
		m.state[name] = &profileState{
			open:      make(map[string]bool),
			perSymbol: make(map[string]int),
		}
	}
	return m, nil
}

func (m *Manager) profileFor(strategyID string) string {
	if name, ok := m.mapping[strategyID]; ok {
		return name
	}
	return defaultProfile
}

// CheckSignal admits or rejects a proposal against the profile's limits.
// Admission does not reserve a slot; the engine registers the position only
// once it actually opens.
func (m *Manager) CheckSignal(ctx context.Context, proposal *domain.SignalProposal, key domain.Key) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	name := m.profileFor(key.StrategyID)
	cfg := m.profiles[name]
	st := m.state[name]

	if len(st.open) >= cfg.MaxOpenPositions {
		return fmt.Errorf("%w: profile %q at its limit of %d open positions", ports.ErrRiskRejected, name, cfg.MaxOpenPositions)
	}
	if cfg.MaxPerSymbol > 0 && st.perSymbol[key.Symbol] >= cfg.MaxPerSymbol {
		return fmt.Errorf("%w: profile %q at its limit of %d open positions for %s", ports.ErrRiskRejected, name, cfg.MaxPerSymbol, key.Symbol)
	}
	return nil
}

// RegisterOpenPosition records an opened position against its profile.
func (m *Manager) RegisterOpenPosition(ctx context.Context, key domain.Key) {
	m.mu.Lock()
	defer m.mu.Unlock()

	name := m.profileFor(key.StrategyID)
	st := m.state[name]
	if st.open[key.String()] {
		return
	}
	st.open[key.String()] = true
	st.perSymbol[key.Symbol]++

	m.logger.Debug(ctx, "Position registered with risk profile", map[string]interface{}{
		"profile": name, "key": key.String(), "openPositions": len(st.open),
	})
}

// ReleasePosition frees the slot held by a closed or aborted position.
// Releasing a key that holds no slot is a no-op.
func (m *Manager) ReleasePosition(ctx context.Context, key domain.Key) {
	m.mu.Lock()
	defer m.mu.Unlock()

	name := m.profileFor(key.StrategyID)
	st := m.state[name]
	if !st.open[key.String()] {
		return
	}
	delete(st.open, key.String())
	if st.perSymbol[key.Symbol] > 0 {
		st.perSymbol[key.Symbol]--
	}

	m.logger.Debug(ctx, "Position released from risk profile", map[string]interface{}{
		"profile": name, "key": key.String(), "openPositions": len(st.open),
	})
}

// OpenPositions reports the number of open positions in the given profile.
func (m *Manager) OpenPositions(profile string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.state[profile]
	if !ok {
		return 0
	}
	return len(st.open)
}
