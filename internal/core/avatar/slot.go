package avatar

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/zeusync/muvr/internal/core/systems/physics"
)

// ProcessMode selects what a post-process pass does with a slot.
type ProcessMode uint8

const (
	// ModeProcess blends the raw pose into the processed pose.
	ModeProcess ProcessMode = iota
	// ModeCopy overwrites the processed pose with the raw pose.
	ModeCopy
	// ModeIgnore leaves the processed pose untouched.
	ModeIgnore
)

func (m ProcessMode) String() string {
	switch m {
	case ModeProcess:
		return "process"
	case ModeCopy:
		return "copy"
	case ModeIgnore:
		return "ignore"
	default:
		return fmt.Sprintf("mode(%d)", uint8(m))
	}
}

// ParseProcessMode is the inverse of ProcessMode.String.
func ParseProcessMode(s string) (ProcessMode, error) {
	switch s {
	case "process":
		return ModeProcess, nil
	case "copy":
		return ModeCopy, nil
	case "ignore":
		return ModeIgnore, nil
	default:
		return ModeProcess, fmt.Errorf("unknown process mode %q", s)
	}
}

// Slot is the record owned by an avatar for one named attachment point.
// Raw is written by tracking input, Processed by post-process passes.
type Slot struct {
	name      string
	mode      ProcessMode
	raw       physics.PoseRef
	processed physics.PoseRef
}

func newSlot(name string) *Slot {
	return &Slot{
		name:      name,
		mode:      ModeProcess,
		raw:       physics.NewPoseRef(),
		processed: physics.NewPoseRef(),
	}
}

func (s *Slot) Name() string                { return s.name }
func (s *Slot) Mode() ProcessMode           { return s.mode }
func (s *Slot) Raw() *physics.PoseRef       { return &s.raw }
func (s *Slot) Processed() *physics.PoseRef { return &s.processed }

// Target exposes the processed pose of a slot as a joint target.
type Target struct {
	slot *Slot
}

var _ physics.Target = Target{}

// ProcessedTarget returns a joint target following the slot's processed pose.
// It must only be read after the post-process barrier of the tick.
func ProcessedTarget(s *Slot) Target {
	return Target{slot: s}
}

func (t Target) Position() mgl64.Vec3 { return t.slot.processed.Pose.Position }
func (t Target) Rotation() mgl64.Quat { return t.slot.processed.Pose.Rotation }
