package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/zeusync/muvr/internal/config"
	"github.com/zeusync/muvr/internal/core/avatar"
	"github.com/zeusync/muvr/internal/core/observability/log"
	"github.com/zeusync/muvr/internal/core/postprocess"
	"github.com/zeusync/muvr/internal/core/scene"
	"github.com/zeusync/muvr/internal/core/systems"
	"github.com/zeusync/muvr/internal/core/systems/physics"
	"github.com/zeusync/muvr/internal/server"
)

// App runs the tick loop: sample tracking, post-process, step joints,
// publish processed poses.
type App struct {
	config      config.Config
	logger      log.Log
	scene       *scene.Registry
	postProcess *postprocess.System
	joints      *physics.JointSystem
	systems     *systems.Manager
	broadcaster *server.Broadcaster
	http        *server.HTTPServer
	quic        *server.QUICPublisher

	avatars  []*avatar.Avatar
	trackers []*Tracker
	bodies   []*physics.SimBody
	tick     uint64
	// physics time not yet consumed by a fixed step
	accumulator float64
}

// maxSubsteps bounds the physics catch-up after a stalled tick.
const maxSubsteps = 250

func New(
	cfg config.Config,
	logger log.Log,
	sc *scene.Registry,
	postProcess *postprocess.System,
	joints *physics.JointSystem,
	broadcaster *server.Broadcaster,
	http *server.HTTPServer,
	quic *server.QUICPublisher,
) (*App, error) {
	a := &App{
		config:      cfg,
		logger:      logger,
		scene:       sc,
		postProcess: postProcess,
		joints:      joints,
		broadcaster: broadcaster,
		http:        http,
		quic:        quic,
	}
	manager, err := systems.NewManager(postProcess, joints)
	if err != nil {
		return nil, err
	}
	a.systems = manager
	for i, ac := range cfg.Avatars {
		if err := a.spawn(ac, uint64(i+1)); err != nil {
			return nil, fmt.Errorf("spawn %s: %w", ac.Name, err)
		}
	}
	return a, nil
}

// spawn creates an avatar from its declaration and attaches a physics hand
// to every slot in process mode.
func (a *App) spawn(ac config.AvatarConfig, seed uint64) error {
	av := avatar.New(ac.Name, ac.Slots...)
	for slot, m := range ac.Modes {
		mode, err := avatar.ParseProcessMode(m)
		if err != nil {
			return err
		}
		if err = av.SetMode(slot, mode); err != nil {
			return err
		}
	}
	a.postProcess.Attach(av)
	a.avatars = append(a.avatars, av)
	a.trackers = append(a.trackers, NewTracker(av, 0.005, seed))

	for i := 0; i < av.Len(); i++ {
		s := av.SlotAt(i)
		if s.Mode() != avatar.ModeProcess {
			continue
		}
		body := physics.NewSimBody(s.Processed().Get())
		a.bodies = append(a.bodies, body)
		a.joints.Add(&physics.Joint{
			Name:     ac.Name + "/" + s.Name(),
			Body:     body,
			Target:   avatar.ProcessedTarget(s),
			Rotation: a.config.Controller.Matcher(),
			Spring:   a.config.Spring.Joint(),
		})
	}
	a.logger.Info("avatar spawned", log.String("avatar", ac.Name), log.Int("slots", av.Len()))
	return nil
}

func (a *App) Avatars() []*avatar.Avatar { return a.avatars }

// Bodies returns the simulated bodies driven by the joints, in spawn order.
func (a *App) Bodies() []*physics.SimBody { return a.bodies }

// Tick is the number of completed ticks.
func (a *App) Tick() uint64 { return a.tick }

func (a *App) Systems() *systems.Manager { return a.systems }

// Step runs one tick of dt seconds.
func (a *App) Step(dt float64) error {
	for _, t := range a.trackers {
		t.Sample(dt)
	}
	// the barrier for passes dispatched in Update runs even when dispatch
	// failed for some avatars
	if err := errors.Join(a.systems.Update(dt), a.systems.LateUpdate(dt)); err != nil {
		return err
	}

	// processed poses are final from here on
	if err := a.stepPhysics(dt); err != nil {
		return err
	}
	a.tick++
	if a.broadcaster == nil && a.quic == nil {
		return nil
	}
	frame := server.Snapshot(a.tick, a.scene.Avatars()...)
	if a.broadcaster != nil {
		a.broadcaster.Publish(frame)
	}
	if a.quic != nil {
		a.quic.Publish(frame)
	}
	return nil
}

// stepPhysics runs as many fixed joint steps as fit into dt plus the time
// carried over from earlier ticks.
func (a *App) stepPhysics(dt float64) error {
	step := a.config.Server.FixedStep.Seconds()
	a.accumulator += dt
	n := 0
	for a.accumulator >= step {
		if n == maxSubsteps {
			a.logger.Warn("physics falling behind", log.Float64("dropped", a.accumulator))
			a.accumulator = 0
			break
		}
		if err := a.systems.FixedUpdate(step); err != nil {
			return err
		}
		for _, b := range a.bodies {
			b.Integrate(step)
		}
		a.accumulator -= step
		n++
	}
	return nil
}

// Run serves viewers and ticks at the configured rate until ctx is done.
func (a *App) Run(ctx context.Context) error {
	if err := a.http.Start(ctx); err != nil {
		return err
	}
	if a.quic != nil {
		if err := a.quic.Start(ctx); err != nil {
			return errors.Join(err, a.http.Stop(context.Background()))
		}
	}

	ticker := time.NewTicker(a.config.Server.TickRate)
	defer ticker.Stop()
	last := time.Now()

	for {
		select {
		case <-ctx.Done():
			return a.shutdown()
		case now := <-ticker.C:
			dt := now.Sub(last).Seconds()
			last = now
			if err := a.Step(dt); err != nil {
				a.logger.Error("tick failed", log.Uint64("tick", a.tick), log.Error(err))
			}
		}
	}
}

func (a *App) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	errs := []error{a.http.Stop(ctx)}
	if a.quic != nil {
		errs = append(errs, a.quic.Stop())
	}
	errs = append(errs, a.postProcess.Close())
	return errors.Join(errs...)
}
