package postprocess

import (
	"github.com/zeusync/muvr/internal/core/systems/physics"
)

// Policy computes the next processed pose of a slot from its current
// processed pose, its latest raw pose and the elapsed time in seconds.
// Implementations must be pure: they are called concurrently from parallel
// passes.
type Policy interface {
	Blend(processed, raw physics.Pose, dt float64) physics.Pose
}

// PolicyFunc adapts a function to Policy.
type PolicyFunc func(processed, raw physics.Pose, dt float64) physics.Pose

func (f PolicyFunc) Blend(processed, raw physics.Pose, dt float64) physics.Pose {
	return f(processed, raw, dt)
}

const (
	DefaultPositionAlpha = 0.9
	DefaultRotationAlpha = 0.9
	DefaultTimeScale     = 60.0
)

// Weighted is exponential smoothing toward the raw pose. Each call moves the
// processed pose toward a target weighted by the alphas, and scales that step
// by dt*TimeScale so that convergence is roughly frame-rate independent.
type Weighted struct {
	// PositionAlpha and RotationAlpha are in [0, 1]; 1 never moves, 0 jumps
	// straight to the raw pose.
	PositionAlpha float64
	RotationAlpha float64
	TimeScale     float64
}

func NewWeighted() *Weighted {
	return &Weighted{
		PositionAlpha: DefaultPositionAlpha,
		RotationAlpha: DefaultRotationAlpha,
		TimeScale:     DefaultTimeScale,
	}
}

func (w *Weighted) Blend(processed, raw physics.Pose, dt float64) physics.Pose {
	modified := physics.Pose{
		Position: processed.Position.Mul(w.PositionAlpha).Add(raw.Position.Mul(1 - w.PositionAlpha)),
		Rotation: physics.Slerp(processed.Rotation, raw.Rotation, 1-w.RotationAlpha),
	}
	return physics.LerpPose(processed, modified, dt*w.TimeScale)
}
