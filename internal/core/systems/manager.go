package systems

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"
)

var (
	ErrSystemExists   = errors.New("system already registered")
	ErrSystemNotFound = errors.New("system not found")
)

// ManagerMetrics provides system manager statistics
type ManagerMetrics struct {
	RegisteredSystems uint32
	TotalUpdateTime   time.Duration
	AverageUpdateTime time.Duration
	SystemErrorCount  map[string]uint32
	LastUpdateTime    time.Time
	Frames            uint64
}

// Manager runs registered systems phase by phase. Within a phase, systems
// run in descending priority, ties in registration order.
type Manager struct {
	mu      sync.RWMutex
	systems []System
	metrics ManagerMetrics
}

func NewManager(systems ...System) (*Manager, error) {
	m := &Manager{metrics: ManagerMetrics{SystemErrorCount: make(map[string]uint32)}}
	for _, s := range systems {
		if err := m.RegisterSystem(s); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Manager) RegisterSystem(s System) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.find(s.Name()) >= 0 {
		return fmt.Errorf("%w: %s", ErrSystemExists, s.Name())
	}
	m.systems = append(m.systems, s)
	slices.SortStableFunc(m.systems, func(a, b System) int {
		return int(b.Priority()) - int(a.Priority())
	})
	m.metrics.RegisteredSystems = uint32(len(m.systems))
	return nil
}

func (m *Manager) UnregisterSystem(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.find(name)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrSystemNotFound, name)
	}
	m.systems = slices.Delete(m.systems, i, i+1)
	m.metrics.RegisteredSystems = uint32(len(m.systems))
	return nil
}

func (m *Manager) GetSystem(name string) (System, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if i := m.find(name); i >= 0 {
		return m.systems[i], true
	}
	return nil, false
}

// GetExecutionOrder lists system names in the order every phase runs them.
func (m *Manager) GetExecutionOrder() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, len(m.systems))
	for i, s := range m.systems {
		names[i] = s.Name()
	}
	return names
}

// Update runs the update phase and counts a frame.
func (m *Manager) Update(deltaTime float64) error {
	start := time.Now()
	err := m.UpdatePhase(PhaseUpdate, deltaTime)

	m.mu.Lock()
	m.metrics.Frames++
	m.metrics.TotalUpdateTime += time.Since(start)
	m.metrics.AverageUpdateTime = m.metrics.TotalUpdateTime / time.Duration(m.metrics.Frames)
	m.metrics.LastUpdateTime = start
	m.mu.Unlock()
	return err
}

func (m *Manager) FixedUpdate(fixedDeltaTime float64) error {
	return m.UpdatePhase(PhaseFixedUpdate, fixedDeltaTime)
}

func (m *Manager) LateUpdate(deltaTime float64) error {
	return m.UpdatePhase(PhaseLateUpdate, deltaTime)
}

// UpdatePhase runs one phase on every system. A failing system does not stop
// the others; errors are joined.
func (m *Manager) UpdatePhase(phase ExecutionPhase, deltaTime float64) error {
	m.mu.RLock()
	systems := slices.Clone(m.systems)
	m.mu.RUnlock()

	var errs []error
	for _, s := range systems {
		var err error
		switch phase {
		case PhaseUpdate:
			err = s.Update(deltaTime)
		case PhaseFixedUpdate:
			err = s.FixedUpdate(deltaTime)
		case PhaseLateUpdate:
			err = s.LateUpdate(deltaTime)
		default:
			return fmt.Errorf("unsupported phase %s", phase)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("%s %s: %w", s.Name(), phase, err))
			m.mu.Lock()
			m.metrics.SystemErrorCount[s.Name()]++
			m.mu.Unlock()
		}
	}
	return errors.Join(errs...)
}

// GetMetrics returns a copy of the manager statistics.
func (m *Manager) GetMetrics() ManagerMetrics {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := m.metrics
	out.SystemErrorCount = make(map[string]uint32, len(m.metrics.SystemErrorCount))
	for k, v := range m.metrics.SystemErrorCount {
		out.SystemErrorCount[k] = v
	}
	return out
}

// GetSystemMetrics returns the metrics reported by the named system.
func (m *Manager) GetSystemMetrics(name string) (Metrics, bool) {
	s, ok := m.GetSystem(name)
	if !ok {
		return Metrics{}, false
	}
	return s.GetMetrics(), true
}

func (m *Manager) find(name string) int {
	return slices.IndexFunc(m.systems, func(s System) bool { return s.Name() == name })
}
