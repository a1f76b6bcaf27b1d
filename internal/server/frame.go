package server

import (
	"github.com/zeusync/muvr/internal/core/avatar"
)

// Frame is the JSON message sent to viewers once per tick.
type Frame struct {
	Tick    uint64        `json:"tick"`
	Avatars []AvatarFrame `json:"avatars"`
}

type AvatarFrame struct {
	ID    string      `json:"id"`
	Name  string      `json:"name"`
	Slots []SlotFrame `json:"slots"`
}

type SlotFrame struct {
	Name     string     `json:"name"`
	Mode     string     `json:"mode"`
	Position [3]float64 `json:"position"`
	// Rotation is x, y, z, w.
	Rotation [4]float64 `json:"rotation"`
}

// Snapshot copies the processed poses of avatars into a frame. It must only
// be called after the post-process barrier of the tick.
func Snapshot(tick uint64, avatars ...*avatar.Avatar) Frame {
	frame := Frame{Tick: tick, Avatars: make([]AvatarFrame, 0, len(avatars))}
	for _, a := range avatars {
		af := AvatarFrame{
			ID:    a.ID().String(),
			Name:  a.Name(),
			Slots: make([]SlotFrame, 0, a.Len()),
		}
		for i := 0; i < a.Len(); i++ {
			s := a.SlotAt(i)
			pose := s.Processed().Get()
			af.Slots = append(af.Slots, SlotFrame{
				Name:     s.Name(),
				Mode:     s.Mode().String(),
				Position: [3]float64(pose.Position),
				Rotation: [4]float64{pose.Rotation.V[0], pose.Rotation.V[1], pose.Rotation.V[2], pose.Rotation.W},
			})
		}
		frame.Avatars = append(frame.Avatars, af)
	}
	return frame
}
