package app

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/muvr/internal/config"
	"github.com/zeusync/muvr/internal/core/avatar"
	"github.com/zeusync/muvr/internal/core/observability/log"
	"github.com/zeusync/muvr/internal/core/scene"
	"github.com/zeusync/muvr/internal/core/systems/physics"
	"github.com/zeusync/muvr/internal/server"
)

func newTestApp(t *testing.T, cfg config.Config) *App {
	t.Helper()
	require.NoError(t, cfg.Validate())

	logger := log.NewNop()
	sc := scene.NewRegistry(logger)
	pp := ProvidePostProcess(cfg, sc, ProvidePolicy(cfg), logger)
	b := server.NewBroadcaster(logger)
	a, err := New(cfg, logger, sc, pp, physics.NewJointSystem(logger), b, ProvideHTTPServer(cfg, b, logger), ProvideQUICPublisher(cfg, logger))
	require.NoError(t, err)
	t.Cleanup(func() { _ = pp.Close() })
	return a
}

func testConfig(parallel bool) config.Config {
	cfg := config.Default()
	cfg.Scheduler.UseParallel = parallel
	cfg.Scheduler.Workers = 2
	cfg.Scheduler.BatchSize = 1
	cfg.Avatars = []config.AvatarConfig{
		{Name: "player", Slots: []string{"head", "leftHand", "rightHand"}, Modes: map[string]string{"head": "copy"}},
		{Name: "remote", Slots: []string{"head", "hips"}, Modes: map[string]string{"hips": "ignore"}},
	}
	return cfg
}

func TestNewSpawnsJointsForProcessedSlots(t *testing.T) {
	a := newTestApp(t, testConfig(false))

	require.Len(t, a.Avatars(), 2)
	// player hands and remote head
	assert.Len(t, a.Bodies(), 3)
	assert.Equal(t, 3, a.joints.Len())
	assert.Equal(t, 2, a.scene.Len())
	assert.Equal(t, []string{"joints", "postprocess"}, a.Systems().GetExecutionOrder())

	mode, err := a.Avatars()[1].Mode("hips")
	require.NoError(t, err)
	assert.Equal(t, avatar.ModeIgnore, mode)
}

func TestNewRejectsUnknownSlotMode(t *testing.T) {
	cfg := config.Default()
	cfg.Avatars = []config.AvatarConfig{{Name: "p", Slots: []string{"head"}, Modes: map[string]string{"tail": "copy"}}}

	logger := log.NewNop()
	sc := scene.NewRegistry(logger)
	pp := ProvidePostProcess(cfg, sc, ProvidePolicy(cfg), logger)
	_, err := New(cfg, logger, sc, pp, physics.NewJointSystem(logger), nil, nil, nil)
	assert.ErrorIs(t, err, avatar.ErrUnknownSlot)
}

func TestStepStrategiesAgree(t *testing.T) {
	serial := newTestApp(t, testConfig(false))
	parallel := newTestApp(t, testConfig(true))

	const dt = 1.0 / 60
	for i := 0; i < 120; i++ {
		require.NoError(t, serial.Step(dt))
		require.NoError(t, parallel.Step(dt))
	}
	assert.Equal(t, uint64(120), serial.Tick())
	assert.Equal(t, uint64(120), serial.Systems().GetMetrics().Frames)

	for i, sa := range serial.Avatars() {
		pa := parallel.Avatars()[i]
		for slot := range sa.AllSlots() {
			want, err := sa.ProcessedPose(slot)
			require.NoError(t, err)
			got, err := pa.ProcessedPose(slot)
			require.NoError(t, err)
			assert.Equal(t, want, got, "%s/%s", sa.Name(), slot)
		}
	}
	for i, b := range serial.Bodies() {
		assert.Equal(t, b.Pose(), parallel.Bodies()[i].Pose(), "body %d", i)
	}
}

func TestStepKeepsBodiesOnTarget(t *testing.T) {
	a := newTestApp(t, testConfig(false))

	const dt = 1.0 / 60
	for i := 0; i < 180; i++ {
		require.NoError(t, a.Step(dt))
	}

	player := a.Avatars()[0]
	for i, b := range a.Bodies() {
		pose := b.Pose()
		for _, v := range pose.Position {
			require.False(t, math.IsNaN(v) || math.IsInf(v, 0), "body %d position %v", i, pose.Position)
		}
		require.False(t, math.IsNaN(pose.Rotation.W), "body %d rotation", i)
	}

	// the first body follows the player's left hand
	target, err := player.ProcessedPose("leftHand")
	require.NoError(t, err)
	assert.Less(t, physics.AngleDeg(a.Bodies()[0].Rotation(), target.Rotation), 10.0)

	// copy slots mirror the tracker exactly
	raw, err := player.RawPose("head")
	require.NoError(t, err)
	processed, err := player.ProcessedPose("head")
	require.NoError(t, err)
	assert.Equal(t, raw, processed)

	// ignored slots are never written
	hips, err := a.Avatars()[1].ProcessedPose("hips")
	require.NoError(t, err)
	assert.Equal(t, physics.IdentityPose(), hips)
}

func TestStepPhysicsCarriesRemainder(t *testing.T) {
	a := newTestApp(t, testConfig(false))
	joints := a.joints

	// 2.5 fixed steps, then another half completes the third
	step := a.config.Server.FixedStep.Seconds()
	require.NoError(t, a.stepPhysics(2.5*step))
	assert.Equal(t, uint64(2), joints.GetMetrics().ExecutionCount)
	require.NoError(t, a.stepPhysics(0.5*step+1e-12))
	assert.Equal(t, uint64(3), joints.GetMetrics().ExecutionCount)

	// a long stall is capped
	require.NoError(t, a.stepPhysics(10))
	assert.Equal(t, uint64(3+maxSubsteps), joints.GetMetrics().ExecutionCount)
	assert.Equal(t, 0.0, a.accumulator)
}

func TestStepCompletesPassesWhenDispatchFails(t *testing.T) {
	a := newTestApp(t, testConfig(true))
	player, remote := a.Avatars()[0], a.Avatars()[1]

	// remote's processor can no longer dispatch; player's pass still starts
	require.NoError(t, a.scene.Unregister(remote))
	assert.Equal(t, []*avatar.Avatar{player}, a.scene.Avatars())

	err := a.Step(1.0 / 60)
	assert.ErrorIs(t, err, scene.ErrNotRegistered)

	for _, av := range a.Avatars() {
		p, ok := a.postProcess.Processor(av)
		require.True(t, ok)
		assert.Nil(t, p.Pending(), av.Name())
		assert.False(t, av.InFlight(), av.Name())
	}
	assert.Equal(t, int64(0), a.scene.Leases())

	p, _ := a.postProcess.Processor(player)
	assert.Equal(t, uint64(1), p.GetMetrics().ParallelPasses)
}
