package physics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Pose is a position and orientation in world space.
type Pose struct {
	Position mgl64.Vec3
	Rotation mgl64.Quat
}

// IdentityPose returns a pose at the origin with no rotation.
func IdentityPose() Pose {
	return Pose{Rotation: mgl64.QuatIdent()}
}

// ApproxEqual reports whether both components are within eps.
func (p Pose) ApproxEqual(other Pose, eps float64) bool {
	if !Near(p.Position, other.Position, eps) {
		return false
	}
	// q and -q encode the same orientation
	return nearQuat(p.Rotation, other.Rotation, eps) || nearQuat(p.Rotation, other.Rotation.Scale(-1), eps)
}

// Near reports whether every component of a and b differs by at most eps.
func Near(a, b mgl64.Vec3, eps float64) bool {
	for i := range a {
		if math.Abs(a[i]-b[i]) > eps {
			return false
		}
	}
	return true
}

func nearQuat(a, b mgl64.Quat, eps float64) bool {
	return math.Abs(a.W-b.W) <= eps && Near(a.V, b.V, eps)
}

// PoseRef is a mutable cell holding exactly one Pose.
type PoseRef struct {
	Pose Pose
}

// NewPoseRef returns a cell initialized to the identity pose.
func NewPoseRef() PoseRef {
	return PoseRef{Pose: IdentityPose()}
}

func (r *PoseRef) Get() Pose     { return r.Pose }
func (r *PoseRef) Set(pose Pose) { r.Pose = pose }

// LerpPose interpolates position linearly and rotation with a normalized
// lerp. t is clamped to [0, 1].
func LerpPose(a, b Pose, t float64) Pose {
	t = mgl64.Clamp(t, 0, 1)
	return Pose{
		Position: a.Position.Add(b.Position.Sub(a.Position).Mul(t)),
		Rotation: Nlerp(a.Rotation, b.Rotation, t),
	}
}

// Nlerp is a normalized lerp along the shortest path.
func Nlerp(a, b mgl64.Quat, t float64) mgl64.Quat {
	t = mgl64.Clamp(t, 0, 1)
	if a.Dot(b) < 0 {
		b = b.Scale(-1)
	}
	return mgl64.QuatLerp(a, b, t).Normalize()
}

// Slerp is a spherical interpolation along the shortest path.
func Slerp(a, b mgl64.Quat, t float64) mgl64.Quat {
	t = mgl64.Clamp(t, 0, 1)
	if a.Dot(b) < 0 {
		b = b.Scale(-1)
	}
	return mgl64.QuatSlerp(a, b, t)
}

// AngleRad is the angular distance between two orientations in radians.
func AngleRad(a, b mgl64.Quat) float64 {
	d := a.Normalize().Inverse().Mul(b.Normalize())
	return 2 * math.Atan2(d.V.Len(), math.Abs(d.W))
}

// AngleDeg is the angular distance between two orientations in degrees.
func AngleDeg(a, b mgl64.Quat) float64 {
	return mgl64.RadToDeg(AngleRad(a, b))
}

// ToAngleAxis decomposes q into an angle in radians on [0, pi] and a unit
// axis. The axis is zero when the rotation is too small to define one.
func ToAngleAxis(q mgl64.Quat) (float64, mgl64.Vec3) {
	q = q.Normalize()
	if q.W < 0 {
		q = q.Scale(-1)
	}
	w := mgl64.Clamp(q.W, -1, 1)
	angle := 2 * math.Acos(w)
	s := math.Sqrt(1 - w*w)
	if s < 1e-9 {
		return angle, mgl64.Vec3{}
	}
	return angle, q.V.Mul(1 / s)
}

// Distance3 is the Euclidean distance between two points.
func Distance3(a, b mgl64.Vec3) float64 {
	return b.Sub(a).Len()
}

// scale multiplies two vectors component-wise.
func scale(a, b mgl64.Vec3) mgl64.Vec3 {
	return mgl64.Vec3{a[0] * b[0], a[1] * b[1], a[2] * b[2]}
}
