package systems

import (
	"time"
)

// System represents a per-frame processor driven by the host loop.
// Update runs once per rendered frame, FixedUpdate once per physics step and
// LateUpdate after every Update of the frame has returned.
type System interface {
	Name() string

	// Execution

	Update(deltaTime float64) error
	FixedUpdate(fixedDeltaTime float64) error
	LateUpdate(deltaTime float64) error

	Priority() Priority
	GetMetrics() Metrics
}

// Priority defines execution order priority
type Priority uint16

// System priorities
const (
	PriorityLowest  Priority = 200
	PriorityLow     Priority = 500
	PriorityNormal  Priority = 600
	PriorityHigh    Priority = 1000
	PriorityHighest Priority = 1300
)

// ExecutionPhase defines when a system runs
type ExecutionPhase uint8

const (
	PhasePreUpdate ExecutionPhase = iota
	PhaseUpdate
	PhasePostUpdate
	PhaseFixedUpdate
	PhaseLateUpdate
	PhasePreRender
)

func (p ExecutionPhase) String() string {
	switch p {
	case PhasePreUpdate:
		return "pre_update"
	case PhaseUpdate:
		return "update"
	case PhasePostUpdate:
		return "post_update"
	case PhaseFixedUpdate:
		return "fixed_update"
	case PhaseLateUpdate:
		return "late_update"
	case PhasePreRender:
		return "pre_render"
	default:
		return "unknown"
	}
}

// Metrics provides runtime metrics for a system
type Metrics struct {
	ExecutionCount       uint64
	TotalExecutionTime   time.Duration
	AverageExecutionTime time.Duration
	MaxExecutionTime     time.Duration
	LastExecutionTime    time.Duration
	ErrorCount           uint64
	LastError            error
	EntitiesProcessed    uint64
}

// Observe folds one execution into the metrics.
func (m *Metrics) Observe(elapsed time.Duration, entities int, err error) {
	m.ExecutionCount++
	m.TotalExecutionTime += elapsed
	m.AverageExecutionTime = m.TotalExecutionTime / time.Duration(m.ExecutionCount)
	m.LastExecutionTime = elapsed
	if elapsed > m.MaxExecutionTime {
		m.MaxExecutionTime = elapsed
	}
	m.EntitiesProcessed += uint64(entities)
	if err != nil {
		m.ErrorCount++
		m.LastError = err
	}
}
