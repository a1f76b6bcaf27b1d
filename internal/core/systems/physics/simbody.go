package physics

import (
	"github.com/go-gl/mathgl/mgl64"
)

var _ RigidBody = (*SimBody)(nil)

// SimBody is a minimal rigid body integrated with semi-implicit Euler. It
// stands in for an engine body where no physics host is available, such as
// in the demo server and in controller tests.
type SimBody struct {
	Mass            float64
	Inertia         mgl64.Vec3
	InertiaRotation mgl64.Quat

	position        mgl64.Vec3
	rotation        mgl64.Quat
	velocity        mgl64.Vec3
	angularVelocity mgl64.Vec3

	force  mgl64.Vec3
	torque mgl64.Vec3
}

// NewSimBody returns a unit-mass body with unit principal inertia.
func NewSimBody(pose Pose) *SimBody {
	return &SimBody{
		Mass:            1,
		Inertia:         mgl64.Vec3{1, 1, 1},
		InertiaRotation: mgl64.QuatIdent(),
		position:        pose.Position,
		rotation:        pose.Rotation.Normalize(),
	}
}

func (b *SimBody) Position() mgl64.Vec3              { return b.position }
func (b *SimBody) Rotation() mgl64.Quat              { return b.rotation }
func (b *SimBody) Velocity() mgl64.Vec3              { return b.velocity }
func (b *SimBody) AngularVelocity() mgl64.Vec3       { return b.angularVelocity }
func (b *SimBody) InertiaTensor() mgl64.Vec3         { return b.Inertia }
func (b *SimBody) InertiaTensorRotation() mgl64.Quat { return b.InertiaRotation }
func (b *SimBody) Pose() Pose                        { return Pose{Position: b.position, Rotation: b.rotation} }

// MoveRotation teleports the orientation and cancels angular velocity.
func (b *SimBody) MoveRotation(rotation mgl64.Quat) {
	b.rotation = rotation.Normalize()
	b.angularVelocity = mgl64.Vec3{}
}

func (b *SimBody) AddTorque(torque mgl64.Vec3) { b.torque = b.torque.Add(torque) }
func (b *SimBody) AddForce(force mgl64.Vec3)   { b.force = b.force.Add(force) }

// Integrate advances the body by dt and clears accumulated force and torque.
func (b *SimBody) Integrate(dt float64) {
	if b.Mass > 0 {
		b.velocity = b.velocity.Add(b.force.Mul(dt / b.Mass))
	}
	b.position = b.position.Add(b.velocity.Mul(dt))

	// torque is world space; the inertia tensor is diagonal in the principal frame
	toWorld := b.rotation.Mul(b.InertiaRotation).Normalize()
	local := toWorld.Inverse().Rotate(b.torque)
	for i := range local {
		if b.Inertia[i] > 0 {
			local[i] /= b.Inertia[i]
		} else {
			local[i] = 0
		}
	}
	b.angularVelocity = b.angularVelocity.Add(toWorld.Rotate(local).Mul(dt))

	if w := b.angularVelocity.Len(); w > 0 {
		delta := mgl64.QuatRotate(w*dt, b.angularVelocity.Mul(1/w))
		b.rotation = delta.Mul(b.rotation).Normalize()
	}

	b.force = mgl64.Vec3{}
	b.torque = mgl64.Vec3{}
}
