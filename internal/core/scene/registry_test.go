package scene

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/muvr/internal/core/avatar"
	"github.com/zeusync/muvr/internal/core/observability/log"
)

func TestRegisterAssignsIndices(t *testing.T) {
	r := NewRegistry(log.NewNop())
	a, b := avatar.New("a"), avatar.New("b")

	assert.Equal(t, 0, r.Register(a))
	assert.Equal(t, 1, r.Register(b))
	assert.Equal(t, 0, r.Register(a), "registering twice returns the existing index")
	assert.Equal(t, 2, r.Len())

	got, err := r.Resolve(1)
	require.NoError(t, err)
	assert.Same(t, b, got)
}

func TestUnregisterCompacts(t *testing.T) {
	r := NewRegistry(log.NewNop())
	a, b, c := avatar.New("a"), avatar.New("b"), avatar.New("c")
	r.Register(a)
	r.Register(b)
	r.Register(c)

	require.NoError(t, r.Unregister(b))
	assert.Equal(t, uint64(1), r.Generation())

	idx, err := r.IndexOf(c)
	require.NoError(t, err)
	assert.Equal(t, 1, idx)

	assert.ErrorIs(t, r.Unregister(b), ErrNotRegistered)
	_, err = r.IndexOf(b)
	assert.ErrorIs(t, err, ErrNotRegistered)
}

func TestResolveOutOfRange(t *testing.T) {
	r := NewRegistry(log.NewNop())
	r.Register(avatar.New("a"))

	for _, index := range []int{-1, 1, 5} {
		_, err := r.Resolve(index)
		var stale *StaleIndexError
		require.True(t, errors.As(err, &stale), "index %d", index)
		assert.Equal(t, index, stale.Index)
		assert.Equal(t, 1, stale.Len)
		assert.ErrorIs(t, err, ErrStaleIndex)
	}
}

func TestUnregisterRefusedWhileLeaseHeld(t *testing.T) {
	r := NewRegistry(log.NewNop())
	a, b := avatar.New("a"), avatar.New("b")
	r.Register(a)
	r.Register(b)

	lease := r.Acquire()
	assert.Equal(t, int64(1), r.Leases())
	assert.ErrorIs(t, r.Unregister(a), ErrPassInFlight)
	assert.Equal(t, 2, r.Len())

	got, err := lease.Resolve(1)
	require.NoError(t, err)
	assert.Same(t, b, got)

	lease.Release()
	lease.Release()
	assert.Equal(t, int64(0), r.Leases())
	assert.NoError(t, r.Unregister(a))
}

func TestLeaseDetectsCompaction(t *testing.T) {
	r := NewRegistry(log.NewNop())
	a, b := avatar.New("a"), avatar.New("b")
	r.Register(a)
	r.Register(b)

	// a lease kept past its release must not resolve index 0 to b
	lease := r.Acquire()
	lease.Release()
	require.NoError(t, r.Unregister(a))

	_, err := lease.Resolve(0)
	var stale *StaleIndexError
	require.True(t, errors.As(err, &stale))
	assert.Equal(t, uint64(0), stale.Generation)
	assert.Equal(t, uint64(1), stale.Current)

	got, err := r.Resolve(0)
	require.NoError(t, err)
	assert.Same(t, b, got)
}
