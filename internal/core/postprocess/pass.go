package postprocess

import (
	"sync/atomic"
	"time"

	"github.com/zeusync/muvr/internal/core/avatar"
)

// Stats counts what a pass did to each slot.
type Stats struct {
	Processed int
	Copied    int
	Ignored   int
}

func (s *Stats) add(mode avatar.ProcessMode) {
	switch mode {
	case avatar.ModeProcess:
		s.Processed++
	case avatar.ModeCopy:
		s.Copied++
	default:
		s.Ignored++
	}
}

func (s Stats) Total() int { return s.Processed + s.Copied + s.Ignored }

// Pass is a dispatched parallel post-process pass. Its results must not be
// read before Wait returns.
type Pass struct {
	done    chan struct{}
	err     error
	elapsed time.Duration

	processed atomic.Int64
	copied    atomic.Int64
	ignored   atomic.Int64
}

func newPass() *Pass {
	return &Pass{done: make(chan struct{})}
}

// Wait blocks until every worker of the pass has finished and returns the
// first worker error.
func (p *Pass) Wait() error {
	<-p.done
	return p.err
}

// Done reports whether the pass has finished without blocking.
func (p *Pass) Done() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

// Stats is only meaningful after Wait.
func (p *Pass) Stats() Stats {
	return Stats{
		Processed: int(p.processed.Load()),
		Copied:    int(p.copied.Load()),
		Ignored:   int(p.ignored.Load()),
	}
}

// Elapsed is the wall time from dispatch to the last worker finishing.
func (p *Pass) Elapsed() time.Duration {
	<-p.done
	return p.elapsed
}

func (p *Pass) collect(s Stats) {
	p.processed.Add(int64(s.Processed))
	p.copied.Add(int64(s.Copied))
	p.ignored.Add(int64(s.Ignored))
}

func (p *Pass) finish(err error, elapsed time.Duration) {
	p.err = err
	p.elapsed = elapsed
	close(p.done)
}
