package avatar

import (
	"iter"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"

	"github.com/zeusync/muvr/internal/core/systems/physics"
)

// Avatar owns the raw/processed pose pair and process mode of every slot.
//
// Slots are kept in registration order, which is the iteration order of
// AllSlots and the order both post-process strategies walk. The slot set and
// modes must only change between passes: while a pass is in flight,
// Register, Remove and SetMode fail with ErrPassInFlight.
type Avatar struct {
	id    uuid.UUID
	name  string
	slots []*Slot
	index map[string]int

	fingerprint uint64
	passes      atomic.Int32
}

// New creates an avatar with the declared slots, all in ModeProcess.
func New(name string, slots ...string) *Avatar {
	a := &Avatar{
		id:    uuid.New(),
		name:  name,
		index: make(map[string]int, len(slots)),
	}
	for _, slot := range slots {
		a.insert(slot)
	}
	a.rehash()
	return a
}

func (a *Avatar) ID() uuid.UUID { return a.id }
func (a *Avatar) Name() string  { return a.name }
func (a *Avatar) Len() int      { return len(a.slots) }

// Fingerprint identifies the ordered slot set. It changes whenever a slot is
// added or removed.
func (a *Avatar) Fingerprint() uint64 { return a.fingerprint }

// Register adds slot with ModeProcess. Registering an existing slot is a no-op.
func (a *Avatar) Register(slot string) error {
	if a.passes.Load() > 0 {
		return ErrPassInFlight
	}
	if a.insert(slot) {
		a.rehash()
	}
	return nil
}

// Remove deletes slot and its poses.
func (a *Avatar) Remove(slot string) error {
	if a.passes.Load() > 0 {
		return ErrPassInFlight
	}
	i, ok := a.index[slot]
	if !ok {
		return a.unknown(slot)
	}
	a.slots = append(a.slots[:i], a.slots[i+1:]...)
	delete(a.index, slot)
	for j := i; j < len(a.slots); j++ {
		a.index[a.slots[j].name] = j
	}
	a.rehash()
	return nil
}

// Slot returns the record for slot.
func (a *Avatar) Slot(slot string) (*Slot, error) {
	i, ok := a.index[slot]
	if !ok {
		return nil, a.unknown(slot)
	}
	return a.slots[i], nil
}

// SlotAt returns the i-th slot in registration order.
func (a *Avatar) SlotAt(i int) *Slot {
	return a.slots[i]
}

// SetMode changes the process mode of slot.
func (a *Avatar) SetMode(slot string, mode ProcessMode) error {
	if a.passes.Load() > 0 {
		return ErrPassInFlight
	}
	s, err := a.Slot(slot)
	if err != nil {
		return err
	}
	s.mode = mode
	return nil
}

func (a *Avatar) Mode(slot string) (ProcessMode, error) {
	s, err := a.Slot(slot)
	if err != nil {
		return ModeProcess, err
	}
	return s.mode, nil
}

func (a *Avatar) RawPose(slot string) (physics.Pose, error) {
	s, err := a.Slot(slot)
	if err != nil {
		return physics.Pose{}, err
	}
	return s.raw.Pose, nil
}

func (a *Avatar) ProcessedPose(slot string) (physics.Pose, error) {
	s, err := a.Slot(slot)
	if err != nil {
		return physics.Pose{}, err
	}
	return s.processed.Pose, nil
}

// GetterPoseRef returns the processed cell read by downstream consumers.
func (a *Avatar) GetterPoseRef(slot string) (*physics.PoseRef, error) {
	s, err := a.Slot(slot)
	if err != nil {
		return nil, err
	}
	return &s.processed, nil
}

// SetterPoseRef returns the raw cell written by tracking input.
func (a *Avatar) SetterPoseRef(slot string) (*physics.PoseRef, error) {
	s, err := a.Slot(slot)
	if err != nil {
		return nil, err
	}
	return &s.raw, nil
}

// AllSlots yields slot names in registration order.
func (a *Avatar) AllSlots() iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, s := range a.slots {
			if !yield(s.name) {
				return
			}
		}
	}
}

// BeginPass marks a pass as referencing this avatar's slots.
func (a *Avatar) BeginPass() { a.passes.Add(1) }

// EndPass releases a mark taken by BeginPass.
func (a *Avatar) EndPass() { a.passes.Add(-1) }

// InFlight reports whether a pass currently references the avatar.
func (a *Avatar) InFlight() bool { return a.passes.Load() > 0 }

func (a *Avatar) insert(slot string) bool {
	if _, ok := a.index[slot]; ok {
		return false
	}
	a.index[slot] = len(a.slots)
	a.slots = append(a.slots, newSlot(slot))
	return true
}

func (a *Avatar) rehash() {
	d := xxhash.New()
	for _, s := range a.slots {
		_, _ = d.WriteString(s.name)
		_, _ = d.Write([]byte{0})
	}
	a.fingerprint = d.Sum64()
}

func (a *Avatar) unknown(slot string) error {
	return &UnknownSlotError{Avatar: a.name, Slot: slot}
}
