package concurrent

import (
	"golang.org/x/sync/errgroup"
)

// Chunks splits [0, n) into consecutive ranges of at most size elements.
func Chunks(n, size int) [][2]int {
	if n <= 0 {
		return nil
	}
	if size <= 0 {
		size = n
	}
	out := make([][2]int, 0, (n+size-1)/size)
	for lo := 0; lo < n; lo += size {
		out = append(out, [2]int{lo, min(lo+size, n)})
	}
	return out
}

// ForEachChunk runs action for every chunk of [0, n) on at most workers
// goroutines and waits for all of them. It returns the first error. Chunks
// beyond the worker limit are started as earlier ones finish, so the call
// blocks the caller for the whole run.
func ForEachChunk(n, size, workers int, action func(lo, hi int) error) error {
	g := &errgroup.Group{}
	if workers > 0 {
		g.SetLimit(workers)
	}
	for _, c := range Chunks(n, size) {
		lo, hi := c[0], c[1]
		g.Go(func() error {
			return action(lo, hi)
		})
	}
	return g.Wait()
}
