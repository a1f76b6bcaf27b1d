package postprocess

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/zeusync/muvr/internal/core/avatar"
	"github.com/zeusync/muvr/internal/core/observability/log"
	"github.com/zeusync/muvr/internal/core/scene"
	"github.com/zeusync/muvr/internal/core/systems"
)

var _ systems.System = (*System)(nil)

// System drives the processors of every attached avatar through the frame
// phases. Parallel passes are dispatched in Update and completed in
// LateUpdate, so processed poses are valid once LateUpdate returns.
type System struct {
	mu         sync.Mutex
	scene      *scene.Registry
	policy     Policy
	config     Config
	logger     log.Log
	processors []*Processor
	metrics    systems.Metrics
}

func NewSystem(sc *scene.Registry, policy Policy, config Config, logger log.Log) *System {
	return &System{
		scene:  sc,
		policy: policy,
		config: config,
		logger: logger.Named("postprocess"),
	}
}

func (s *System) Name() string               { return "postprocess" }
func (s *System) Priority() systems.Priority { return systems.PriorityNormal }
func (s *System) Scene() *scene.Registry     { return s.scene }

// Attach registers a in the scene and creates its processor.
func (s *System) Attach(a *avatar.Avatar) *Processor {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.processors {
		if p.avatar == a {
			return p
		}
	}
	s.scene.Register(a)
	p := NewProcessor(a, s.scene, s.policy, s.config, s.logger)
	s.processors = append(s.processors, p)
	return p
}

// Detach completes every outstanding pass, closes a's processor and removes
// a from the scene. Passes of other avatars are completed as well because
// unregistering renumbers the scene.
func (s *System) Detach(a *avatar.Avatar) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.completeAll(); err != nil {
		return fmt.Errorf("detach %s: %w", a.Name(), err)
	}
	for i, p := range s.processors {
		if p.avatar != a {
			continue
		}
		if err := p.Close(); err != nil {
			return fmt.Errorf("detach %s: %w", a.Name(), err)
		}
		s.processors = append(s.processors[:i], s.processors[i+1:]...)
		return s.scene.Unregister(a)
	}
	return scene.ErrNotRegistered
}

// Processor returns the processor attached for a.
func (s *System) Processor(a *avatar.Avatar) (*Processor, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.processors {
		if p.avatar == a {
			return p, true
		}
	}
	return nil, false
}

// Update runs serial passes and dispatches parallel ones.
func (s *System) Update(dt float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	var errs []error
	for _, p := range s.processors {
		var err error
		if p.config.UseParallel {
			_, err = p.Schedule(dt)
		} else {
			err = p.Tick(dt)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", p.avatar.Name(), err))
		}
	}
	err := errors.Join(errs...)
	s.metrics.Observe(time.Since(start), len(s.processors), err)
	return err
}

func (s *System) FixedUpdate(float64) error { return nil }

// LateUpdate is the completion barrier for passes dispatched in Update.
func (s *System) LateUpdate(float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.completeAll()
}

// Close completes all passes and detaches every avatar.
func (s *System) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	errs := []error{s.completeAll()}
	for _, p := range s.processors {
		errs = append(errs, p.Close())
		if err := s.scene.Unregister(p.avatar); err != nil && !errors.Is(err, scene.ErrNotRegistered) {
			errs = append(errs, err)
		}
	}
	s.processors = nil
	s.logger.Info("post-process system closed")
	return errors.Join(errs...)
}

func (s *System) GetMetrics() systems.Metrics {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.metrics
}

func (s *System) completeAll() error {
	var errs []error
	for _, p := range s.processors {
		if err := p.Complete(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", p.avatar.Name(), err))
		}
	}
	return errors.Join(errs...)
}
