package physics

import "github.com/go-gl/mathgl/mgl64"

const (
	DefaultRotationStrength  = 30.0
	DefaultRotationThreshold = 5.0
)

// BodyState is the per-step input of the rotation matcher.
type BodyState struct {
	Rotation              mgl64.Quat
	AngularVelocity       mgl64.Vec3
	InertiaTensor         mgl64.Vec3
	InertiaTensorRotation mgl64.Quat
}

// StateOf reads a BodyState from a host body.
func StateOf(body RigidBody) BodyState {
	return BodyState{
		Rotation:              body.Rotation(),
		AngularVelocity:       body.AngularVelocity(),
		InertiaTensor:         body.InertiaTensor(),
		InertiaTensorRotation: body.InertiaTensorRotation(),
	}
}

// Command is what the rotation matcher asks the host to do this step.
// When Snap is set the body must be moved to Rotation and Torque is zero.
type Command struct {
	Snap     bool
	Rotation mgl64.Quat
	Torque   mgl64.Vec3
}

// RotationMatcher is a PD controller steering a body toward a target
// orientation. Gains are derived from RotationStrength so that a body with
// unit inertia is close to critically damped.
type RotationMatcher struct {
	RotationStrength float64
	// RotationThreshold is in degrees. Below it the body is snapped to the
	// target instead of being driven by torque.
	RotationThreshold float64
}

func NewRotationMatcher() *RotationMatcher {
	return &RotationMatcher{
		RotationStrength:  DefaultRotationStrength,
		RotationThreshold: DefaultRotationThreshold,
	}
}

// Gains returns the proportional and derivative gains.
func (m *RotationMatcher) Gains() (kp, kd float64) {
	s := m.RotationStrength
	return 9 * s * s, 4.5 * s
}

// Step computes the command for one fixed physics step.
func (m *RotationMatcher) Step(state BodyState, target mgl64.Quat) Command {
	if AngleDeg(state.Rotation, target) < m.RotationThreshold {
		return Command{Snap: true, Rotation: target}
	}

	kp, kd := m.Gains()
	angle, axis := ToAngleAxis(target.Mul(state.Rotation.Inverse()))

	torque := axis.Mul(kp * angle).Sub(state.AngularVelocity.Mul(kd))

	// world -> principal inertia frame, scale, and back. The tensor rotation
	// is local to the body, so it is applied first and the body rotation
	// second; the reverse order would mix the axes of a rotated body.
	inertiaToWorld := state.Rotation.Mul(state.InertiaTensorRotation).Normalize()
	torque = inertiaToWorld.Inverse().Rotate(torque)
	torque = scale(torque, state.InertiaTensor)
	torque = inertiaToWorld.Rotate(torque)

	return Command{Rotation: state.Rotation, Torque: torque}
}

// FixedUpdate runs one step against a host body.
func (m *RotationMatcher) FixedUpdate(body RigidBody, target Target) Command {
	cmd := m.Step(StateOf(body), target.Rotation())
	if cmd.Snap {
		body.MoveRotation(cmd.Rotation)
	} else {
		body.AddTorque(cmd.Torque)
	}
	return cmd
}
