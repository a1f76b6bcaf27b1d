package physics

import "github.com/go-gl/mathgl/mgl64"

// Host-facing abstractions. The physics engine owns integration; these
// interfaces only expose what the control laws read and write each step.

// Target is a live transform followed by a joint. It is read every step and
// never cached.
type Target interface {
	Position() mgl64.Vec3
	Rotation() mgl64.Quat
}

// RigidBody is the subset of a simulated body driven by the joint controllers.
type RigidBody interface {
	Position() mgl64.Vec3
	Rotation() mgl64.Quat
	AngularVelocity() mgl64.Vec3

	// InertiaTensor is the diagonal of the principal inertia tensor.
	InertiaTensor() mgl64.Vec3
	// InertiaTensorRotation rotates the principal axes into body space.
	InertiaTensorRotation() mgl64.Quat

	// MoveRotation overwrites the orientation for this step.
	MoveRotation(rotation mgl64.Quat)
	// AddTorque applies a world-space torque for this step.
	AddTorque(torque mgl64.Vec3)
	// AddForce applies a world-space force at the center of mass.
	AddForce(force mgl64.Vec3)
}
