package app

import (
	"math"
	"math/rand/v2"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/zeusync/muvr/internal/core/avatar"
	"github.com/zeusync/muvr/internal/core/systems/physics"
)

// Tracker produces noisy raw poses for every slot of an avatar, standing in
// for a headset runtime. Each slot orbits its own anchor.
type Tracker struct {
	avatar *avatar.Avatar
	noise  float64
	rng    *rand.Rand
	time   float64
}

func NewTracker(a *avatar.Avatar, noise float64, seed uint64) *Tracker {
	return &Tracker{avatar: a, noise: noise, rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Sample writes one raw pose per slot. It must run before the pass of the tick
// is dispatched.
func (t *Tracker) Sample(dt float64) {
	t.time += dt
	for i := 0; i < t.avatar.Len(); i++ {
		s := t.avatar.SlotAt(i)
		phase := t.time + float64(i)*math.Pi/3
		anchor := mgl64.Vec3{float64(i) * 0.3, 1.5 - float64(i)*0.2, 0}
		position := anchor.Add(mgl64.Vec3{
			0.1*math.Sin(phase) + t.jitter(),
			0.05*math.Cos(2*phase) + t.jitter(),
			t.jitter(),
		})
		yaw := 0.5*math.Sin(0.5*phase) + t.jitter()
		s.Raw().Set(physics.Pose{
			Position: position,
			Rotation: mgl64.QuatRotate(yaw, mgl64.Vec3{0, 1, 0}),
		})
	}
}

func (t *Tracker) jitter() float64 {
	return (t.rng.Float64()*2 - 1) * t.noise
}
