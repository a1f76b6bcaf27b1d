package avatar

import (
	"errors"
	"slices"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/muvr/internal/core/systems/physics"
)

func TestNewAvatarDefaultsToProcess(t *testing.T) {
	a := New("player", "head", "leftHand", "rightHand")

	assert.Equal(t, 3, a.Len())
	assert.Equal(t, []string{"head", "leftHand", "rightHand"}, slices.Collect(a.AllSlots()))
	for slot := range a.AllSlots() {
		mode, err := a.Mode(slot)
		require.NoError(t, err)
		assert.Equal(t, ModeProcess, mode)

		raw, err := a.RawPose(slot)
		require.NoError(t, err)
		assert.Equal(t, physics.IdentityPose(), raw)
	}
}

func TestRegisterIsIdempotent(t *testing.T) {
	a := New("player", "head")
	require.NoError(t, a.SetMode("head", ModeIgnore))
	fp := a.Fingerprint()

	require.NoError(t, a.Register("head"))
	assert.Equal(t, 1, a.Len())
	assert.Equal(t, fp, a.Fingerprint())

	mode, err := a.Mode("head")
	require.NoError(t, err)
	assert.Equal(t, ModeIgnore, mode, "re-registering must not reset the mode")

	require.NoError(t, a.Register("hips"))
	assert.Equal(t, 2, a.Len())
	assert.NotEqual(t, fp, a.Fingerprint())
}

func TestUnknownSlot(t *testing.T) {
	a := New("player", "head")

	_, err := a.Mode("tail")
	assert.ErrorIs(t, err, ErrUnknownSlot)

	var unknown *UnknownSlotError
	require.True(t, errors.As(a.SetMode("tail", ModeCopy), &unknown))
	assert.Equal(t, "tail", unknown.Slot)
	assert.Equal(t, "player", unknown.Avatar)

	_, err = a.RawPose("tail")
	assert.ErrorIs(t, err, ErrUnknownSlot)
	_, err = a.ProcessedPose("tail")
	assert.ErrorIs(t, err, ErrUnknownSlot)
	_, err = a.GetterPoseRef("tail")
	assert.ErrorIs(t, err, ErrUnknownSlot)
	_, err = a.SetterPoseRef("tail")
	assert.ErrorIs(t, err, ErrUnknownSlot)
	assert.ErrorIs(t, a.Remove("tail"), ErrUnknownSlot)
}

func TestPoseRefsAreDistinctCells(t *testing.T) {
	a := New("player", "head")

	raw, err := a.SetterPoseRef("head")
	require.NoError(t, err)
	processed, err := a.GetterPoseRef("head")
	require.NoError(t, err)

	raw.Set(physics.Pose{Position: mgl64.Vec3{1, 0, 0}, Rotation: mgl64.QuatIdent()})

	got, err := a.RawPose("head")
	require.NoError(t, err)
	assert.Equal(t, mgl64.Vec3{1, 0, 0}, got.Position)

	got, err = a.ProcessedPose("head")
	require.NoError(t, err)
	assert.Equal(t, mgl64.Vec3{}, got.Position)
	assert.Equal(t, physics.IdentityPose(), processed.Get())
}

func TestRemoveKeepsOrder(t *testing.T) {
	a := New("player", "head", "leftHand", "rightHand", "hips")
	require.NoError(t, a.SetMode("hips", ModeCopy))

	require.NoError(t, a.Remove("leftHand"))

	assert.Equal(t, []string{"head", "rightHand", "hips"}, slices.Collect(a.AllSlots()))
	_, err := a.Slot("leftHand")
	assert.ErrorIs(t, err, ErrUnknownSlot)
	s, err := a.Slot("hips")
	require.NoError(t, err)
	assert.Same(t, s, a.SlotAt(2))
	assert.Equal(t, ModeCopy, s.Mode())
}

func TestFingerprintTracksNamesNotCount(t *testing.T) {
	a := New("a", "head", "leftHand")
	b := New("b", "head", "rightHand")
	c := New("c", "head", "leftHand")

	assert.Equal(t, a.Len(), b.Len())
	assert.NotEqual(t, a.Fingerprint(), b.Fingerprint())
	assert.Equal(t, a.Fingerprint(), c.Fingerprint())
}

func TestMutationRejectedDuringPass(t *testing.T) {
	a := New("player", "head")
	a.BeginPass()
	assert.True(t, a.InFlight())

	assert.ErrorIs(t, a.Register("hips"), ErrPassInFlight)
	assert.ErrorIs(t, a.Remove("head"), ErrPassInFlight)
	assert.ErrorIs(t, a.SetMode("head", ModeCopy), ErrPassInFlight)

	a.EndPass()
	assert.False(t, a.InFlight())
	assert.NoError(t, a.SetMode("head", ModeCopy))
}

func TestProcessModeStrings(t *testing.T) {
	for _, m := range []ProcessMode{ModeProcess, ModeCopy, ModeIgnore} {
		parsed, err := ParseProcessMode(m.String())
		require.NoError(t, err)
		assert.Equal(t, m, parsed)
	}
	_, err := ParseProcessMode("blend")
	assert.Error(t, err)
}

func TestProcessedTarget(t *testing.T) {
	a := New("player", "leftHand")
	s, err := a.Slot("leftHand")
	require.NoError(t, err)

	target := ProcessedTarget(s)
	pose := physics.Pose{Position: mgl64.Vec3{0, 2, 0}, Rotation: mgl64.QuatRotate(1, mgl64.Vec3{1, 0, 0})}
	s.Processed().Set(pose)

	assert.Equal(t, pose.Position, target.Position())
	assert.Equal(t, pose.Rotation, target.Rotation())
}
