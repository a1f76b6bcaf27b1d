package config

import (
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/zeusync/muvr/internal/core/observability/log"
	"github.com/zeusync/muvr/internal/core/postprocess"
	"github.com/zeusync/muvr/internal/core/systems/physics"
)

// Config is the runtime configuration of the pose service.
type Config struct {
	Blend      BlendConfig      `yaml:"blend"`
	Controller ControllerConfig `yaml:"controller"`
	Spring     SpringConfig     `yaml:"spring"`
	Scheduler  SchedulerConfig  `yaml:"scheduler"`
	Log        LogConfig        `yaml:"log"`
	Server     ServerConfig     `yaml:"server"`
	Avatars    []AvatarConfig   `yaml:"avatars,omitempty"`
}

type BlendConfig struct {
	PositionAlpha float64 `yaml:"position_alpha"`
	RotationAlpha float64 `yaml:"rotation_alpha"`
	TimeScale     float64 `yaml:"time_scale"`
}

type ControllerConfig struct {
	RotationStrength  float64 `yaml:"rotation_strength"`
	RotationThreshold float64 `yaml:"rotation_threshold"`
}

type SpringConfig struct {
	SpringConstant float64 `yaml:"spring_constant"`
	MaxForce       float64 `yaml:"max_force"`
}

type SchedulerConfig struct {
	UseParallel bool `yaml:"use_parallel"`
	Workers     int  `yaml:"workers,omitempty"`
	BatchSize   int  `yaml:"batch_size,omitempty"`
}

type LogConfig struct {
	Level    string `yaml:"level"`
	Encoding string `yaml:"encoding"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	// QUICPort enables the QUIC frame stream on Host; zero disables it.
	QUICPort int           `yaml:"quic_port,omitempty"`
	TickRate time.Duration `yaml:"tick_rate"`
	// FixedStep is the physics substep; joints are stepped as many times
	// per tick as fit into the tick's elapsed time.
	FixedStep time.Duration `yaml:"fixed_step"`
}

// AvatarConfig declares an avatar and the process mode of its slots.
type AvatarConfig struct {
	Name  string            `yaml:"name"`
	Slots []string          `yaml:"slots"`
	Modes map[string]string `yaml:"modes,omitempty"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Blend: BlendConfig{
			PositionAlpha: postprocess.DefaultPositionAlpha,
			RotationAlpha: postprocess.DefaultRotationAlpha,
			TimeScale:     postprocess.DefaultTimeScale,
		},
		Controller: ControllerConfig{
			RotationStrength:  physics.DefaultRotationStrength,
			RotationThreshold: physics.DefaultRotationThreshold,
		},
		Spring: SpringConfig{
			SpringConstant: physics.DefaultSpringConstant,
			MaxForce:       physics.DefaultMaxForce,
		},
		Scheduler: SchedulerConfig{BatchSize: postprocess.DefaultConfig().BatchSize},
		Log:       LogConfig{Level: "info", Encoding: "json"},
		Server:    ServerConfig{Host: "127.0.0.1", Port: 8080, TickRate: time.Second / 60, FixedStep: time.Millisecond},
		Avatars: []AvatarConfig{
			{Name: "player", Slots: []string{"head", "leftHand", "rightHand"}},
		},
	}
}

// Load decodes YAML from r on top of Default and validates the result.
func Load(r io.Reader) (Config, error) {
	c := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil && err != io.EOF {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// LoadFile reads the configuration at path.
func LoadFile(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if err := c.Blend.Validate(); err != nil {
		return fmt.Errorf("blend: %w", err)
	}
	if err := c.Controller.Validate(); err != nil {
		return fmt.Errorf("controller: %w", err)
	}
	if c.Spring.SpringConstant < 0 || c.Spring.MaxForce < 0 {
		return fmt.Errorf("spring: constant and max force must be non-negative")
	}
	if c.Scheduler.Workers < 0 || c.Scheduler.BatchSize < 0 {
		return fmt.Errorf("scheduler: workers and batch size must be non-negative")
	}
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log: %w", err)
	}
	if c.Log.Encoding != "json" && c.Log.Encoding != "console" {
		return fmt.Errorf("log: unknown encoding %q", c.Log.Encoding)
	}
	if c.Server.TickRate <= 0 {
		return fmt.Errorf("server: tick rate must be positive")
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 || c.Server.QUICPort < 0 || c.Server.QUICPort > 65535 {
		return fmt.Errorf("server: port out of range")
	}
	if c.Server.FixedStep <= 0 || c.Server.FixedStep > c.Server.TickRate {
		return fmt.Errorf("server: fixed step must be positive and not exceed the tick rate")
	}
	for i, a := range c.Avatars {
		if err := a.Validate(); err != nil {
			return fmt.Errorf("avatar %d: %w", i, err)
		}
	}
	return nil
}

func (b BlendConfig) Validate() error {
	if b.PositionAlpha < 0 || b.PositionAlpha > 1 {
		return fmt.Errorf("position alpha %v out of [0, 1]", b.PositionAlpha)
	}
	if b.RotationAlpha < 0 || b.RotationAlpha > 1 {
		return fmt.Errorf("rotation alpha %v out of [0, 1]", b.RotationAlpha)
	}
	if b.TimeScale <= 0 {
		return fmt.Errorf("time scale must be positive")
	}
	return nil
}

func (c ControllerConfig) Validate() error {
	if c.RotationStrength <= 0 {
		return fmt.Errorf("rotation strength must be positive")
	}
	if c.RotationThreshold < 0 {
		return fmt.Errorf("rotation threshold must be non-negative")
	}
	return nil
}

func (a AvatarConfig) Validate() error {
	if a.Name == "" {
		return fmt.Errorf("avatar name is required")
	}
	declared := make(map[string]bool, len(a.Slots))
	for _, s := range a.Slots {
		declared[s] = true
	}
	for slot, mode := range a.Modes {
		if !declared[slot] {
			return fmt.Errorf("mode set for undeclared slot %q", slot)
		}
		if mode != "process" && mode != "copy" && mode != "ignore" {
			return fmt.Errorf("slot %q: unknown mode %q", slot, mode)
		}
	}
	return nil
}

// Policy builds the weighted blend policy.
func (b BlendConfig) Policy() *postprocess.Weighted {
	return &postprocess.Weighted{
		PositionAlpha: b.PositionAlpha,
		RotationAlpha: b.RotationAlpha,
		TimeScale:     b.TimeScale,
	}
}

func (c ControllerConfig) Matcher() *physics.RotationMatcher {
	return &physics.RotationMatcher{
		RotationStrength:  c.RotationStrength,
		RotationThreshold: c.RotationThreshold,
	}
}

func (s SpringConfig) Joint() *physics.SpringJoint {
	return &physics.SpringJoint{SpringConstant: s.SpringConstant, MaxForce: s.MaxForce}
}

func (s SchedulerConfig) Processor() postprocess.Config {
	return postprocess.Config{
		UseParallel: s.UseParallel,
		Workers:     s.Workers,
		BatchSize:   s.BatchSize,
	}
}

// Logger returns the logger configuration.
func (l LogConfig) Logger() (log.Config, error) {
	level, err := log.ParseLevel(l.Level)
	if err != nil {
		return log.Config{}, err
	}
	return log.Config{Level: level, Encoding: l.Encoding}, nil
}

// Addr is the listen address of the broadcaster.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// QUICAddr is the listen address of the QUIC publisher.
func (s ServerConfig) QUICAddr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.QUICPort)
}
