package postprocess

import (
	"runtime"
	"time"

	"github.com/zeusync/muvr/internal/core/avatar"
	"github.com/zeusync/muvr/internal/core/observability/log"
	"github.com/zeusync/muvr/internal/core/scene"
	"github.com/zeusync/muvr/internal/core/systems"
	"github.com/zeusync/muvr/pkg/concurrent"
)

// Config selects the execution strategy of a Processor.
type Config struct {
	UseParallel bool
	// Workers caps concurrent worker goroutines; zero means GOMAXPROCS.
	Workers int
	// BatchSize is the number of slots handled by one worker unit.
	BatchSize int
}

func DefaultConfig() Config {
	return Config{BatchSize: 4}
}

// Metrics accumulates per-processor pass statistics.
type Metrics struct {
	systems.Metrics
	SerialPasses   uint64
	ParallelPasses uint64
	SlotsProcessed uint64
	SlotsCopied    uint64
	SlotsIgnored   uint64
	TableRebuilds  uint64
}

// Processor runs post-process passes over the slots of one avatar.
//
// A Processor is driven from a single goroutine. In parallel mode Schedule
// returns immediately and the pass runs on worker goroutines; Complete (or
// Wait on the returned Pass) is the barrier after which processed poses may
// be read and the slot set, modes or scene may be mutated again.
type Processor struct {
	avatar *avatar.Avatar
	scene  *scene.Registry
	policy Policy
	config Config
	logger log.Log

	table   *slotTable
	pending *Pass
	closed  bool
	metrics Metrics
}

// NewProcessor creates a processor for a, which must be registered in sc
// before the first parallel pass.
func NewProcessor(a *avatar.Avatar, sc *scene.Registry, policy Policy, config Config, logger log.Log) *Processor {
	if config.Workers <= 0 {
		config.Workers = runtime.GOMAXPROCS(0)
	}
	if config.BatchSize <= 0 {
		config.BatchSize = 1
	}
	return &Processor{
		avatar: a,
		scene:  sc,
		policy: policy,
		config: config,
		logger: logger.With(log.Stringer("avatar_id", a.ID()), log.String("avatar", a.Name())),
	}
}

func (p *Processor) Avatar() *avatar.Avatar { return p.avatar }
func (p *Processor) Config() Config         { return p.config }

// SetParallel switches strategy for subsequent passes.
func (p *Processor) SetParallel(enabled bool) { p.config.UseParallel = enabled }

// Run performs one pass with the configured strategy and returns after it
// has completed.
func (p *Processor) Run(dt float64) error {
	if !p.config.UseParallel {
		return p.Tick(dt)
	}
	if _, err := p.Schedule(dt); err != nil {
		return err
	}
	return p.Complete()
}

// Tick runs a serial pass in registration order on the calling goroutine.
func (p *Processor) Tick(dt float64) error {
	if err := p.ready(); err != nil {
		return err
	}

	start := time.Now()
	var stats Stats
	for i := 0; i < p.avatar.Len(); i++ {
		stats.add(apply(p.avatar.SlotAt(i), p.policy, dt))
	}

	p.metrics.SerialPasses++
	p.observe(stats, time.Since(start), nil)
	return nil
}

// Schedule dispatches a parallel pass and returns without waiting for it.
func (p *Processor) Schedule(dt float64) (*Pass, error) {
	if err := p.ready(); err != nil {
		return nil, err
	}

	if p.table.stale(p.avatar) {
		if p.table == nil {
			p.table = &slotTable{}
		}
		p.table.rebuild(p.avatar)
		p.metrics.TableRebuilds++
		p.logger.Debug("slot table rebuilt",
			log.Int("slots", p.table.len()),
			log.Uint64("fingerprint", p.table.fingerprint))
	}

	lease := p.scene.Acquire()
	owner, err := p.scene.IndexOf(p.avatar)
	if err != nil {
		lease.Release()
		return nil, err
	}

	p.avatar.BeginPass()
	pass := newPass()
	p.pending = pass

	table, policy := p.table.indices, p.policy
	batch, workers := p.config.BatchSize, p.config.Workers
	start := time.Now()

	go func() {
		err := concurrent.ForEachChunk(len(table), batch, workers, func(lo, hi int) error {
			a, err := lease.Resolve(owner)
			if err != nil {
				return err
			}
			var stats Stats
			for _, i := range table[lo:hi] {
				stats.add(apply(a.SlotAt(int(i)), policy, dt))
			}
			pass.collect(stats)
			return nil
		})
		p.avatar.EndPass()
		lease.Release()
		pass.finish(err, time.Since(start))
	}()

	return pass, nil
}

// Complete waits for the outstanding pass, if any, and folds its result into
// the metrics.
func (p *Processor) Complete() error {
	if p.pending == nil {
		return nil
	}
	pass := p.pending
	err := pass.Wait()
	p.pending = nil

	p.metrics.ParallelPasses++
	p.observe(pass.Stats(), pass.Elapsed(), err)
	if err != nil {
		p.logger.Error("post-process pass failed", log.Error(err))
		return err
	}
	p.logger.Debug("post-process pass completed", log.Duration("elapsed", pass.Elapsed()))
	return nil
}

// Pending returns the outstanding pass or nil.
func (p *Processor) Pending() *Pass { return p.pending }

// Close completes any outstanding pass and releases the slot table.
func (p *Processor) Close() error {
	if p.closed {
		return nil
	}
	err := p.Complete()
	p.table = nil
	p.closed = true
	return err
}

func (p *Processor) GetMetrics() Metrics { return p.metrics }

// ready reaps a finished pass and rejects new work while one is running.
func (p *Processor) ready() error {
	if p.closed {
		return ErrClosed
	}
	if p.pending == nil {
		return nil
	}
	if !p.pending.Done() {
		return ErrPassPending
	}
	return p.Complete()
}

func (p *Processor) observe(stats Stats, elapsed time.Duration, err error) {
	p.metrics.Observe(elapsed, stats.Total(), err)
	p.metrics.SlotsProcessed += uint64(stats.Processed)
	p.metrics.SlotsCopied += uint64(stats.Copied)
	p.metrics.SlotsIgnored += uint64(stats.Ignored)
}

// apply runs the per-slot step shared by both strategies. It writes only the
// slot's processed cell.
func apply(s *avatar.Slot, policy Policy, dt float64) avatar.ProcessMode {
	mode := s.Mode()
	switch mode {
	case avatar.ModeProcess:
		s.Processed().Set(policy.Blend(s.Processed().Get(), s.Raw().Get(), dt))
	case avatar.ModeCopy:
		s.Processed().Set(s.Raw().Get())
	}
	return mode
}
