package concurrent

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunks(t *testing.T) {
	tests := []struct {
		name    string
		n, size int
		want    [][2]int
	}{
		{name: "empty", n: 0, size: 3, want: nil},
		{name: "exact", n: 6, size: 3, want: [][2]int{{0, 3}, {3, 6}}},
		{name: "remainder", n: 7, size: 3, want: [][2]int{{0, 3}, {3, 6}, {6, 7}}},
		{name: "zero size is one chunk", n: 5, size: 0, want: [][2]int{{0, 5}}},
		{name: "size above n", n: 2, size: 10, want: [][2]int{{0, 2}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Chunks(tt.n, tt.size))
		})
	}
}

func TestForEachChunkCoversRange(t *testing.T) {
	const n = 101
	var hits [n]atomic.Int32

	err := ForEachChunk(n, 4, 3, func(lo, hi int) error {
		for i := lo; i < hi; i++ {
			hits[i].Add(1)
		}
		return nil
	})
	require.NoError(t, err)
	for i := range hits {
		assert.Equal(t, int32(1), hits[i].Load(), "index %d", i)
	}
}

func TestForEachChunkReturnsError(t *testing.T) {
	boom := errors.New("boom")
	var calls atomic.Int32

	err := ForEachChunk(10, 1, 2, func(lo, hi int) error {
		calls.Add(1)
		if lo == 5 {
			return boom
		}
		return nil
	})
	assert.ErrorIs(t, err, boom)
	// errgroup without a context still runs every chunk
	assert.Equal(t, int32(10), calls.Load())
}

func TestForEachChunkBoundsWorkers(t *testing.T) {
	const workers = 2
	var running, peak, calls atomic.Int32
	release := make(chan struct{})
	done := make(chan error, 1)

	go func() {
		done <- ForEachChunk(6, 1, workers, func(lo, hi int) error {
			n := running.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			calls.Add(1)
			<-release
			running.Add(-1)
			return nil
		})
	}()

	require.Eventually(t, func() bool { return calls.Load() == workers }, time.Second, time.Millisecond)
	select {
	case <-done:
		t.Fatal("returned before its chunks finished")
	case <-time.After(20 * time.Millisecond):
	}
	assert.Equal(t, int32(workers), calls.Load(), "chunks beyond the limit wait for a free worker")

	close(release)
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("did not finish")
	}
	assert.Equal(t, int32(6), calls.Load())
	assert.LessOrEqual(t, peak.Load(), int32(workers))
}
