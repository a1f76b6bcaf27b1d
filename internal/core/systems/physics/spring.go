package physics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

const (
	DefaultSpringConstant = 1.0
	DefaultMaxForce       = 2000.0
)

// SpringJoint pulls a body toward a target position with a linear spring
// whose force magnitude is capped at MaxForce.
type SpringJoint struct {
	SpringConstant float64
	MaxForce       float64
}

func NewSpringJoint() *SpringJoint {
	return &SpringJoint{SpringConstant: DefaultSpringConstant, MaxForce: DefaultMaxForce}
}

// Force returns the spring force for a body at current following target.
func (s *SpringJoint) Force(current, target mgl64.Vec3) mgl64.Vec3 {
	force := target.Sub(current).Mul(s.SpringConstant)
	magnitude := force.Len()
	if magnitude == 0 {
		return mgl64.Vec3{}
	}
	return force.Mul(math.Min(magnitude, s.MaxForce) / magnitude)
}

// FixedUpdate applies the spring force to body for this step.
func (s *SpringJoint) FixedUpdate(body RigidBody, target Target) mgl64.Vec3 {
	force := s.Force(body.Position(), target.Position())
	body.AddForce(force)
	return force
}
