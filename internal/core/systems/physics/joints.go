package physics

import (
	"sync"
	"time"

	"github.com/zeusync/muvr/internal/core/observability/log"
	"github.com/zeusync/muvr/internal/core/systems"
)

var _ systems.System = (*JointSystem)(nil)

// Joint binds a body to a target with optional rotation and position laws.
type Joint struct {
	Name     string
	Body     RigidBody
	Target   Target
	Rotation *RotationMatcher
	Spring   *SpringJoint
}

// JointSystem steps every registered joint on each fixed update.
type JointSystem struct {
	mu      sync.Mutex
	joints  []*Joint
	metrics systems.Metrics
	logger  log.Log
}

func NewJointSystem(logger log.Log) *JointSystem {
	return &JointSystem{logger: logger}
}

func (s *JointSystem) Name() string               { return "joints" }
func (s *JointSystem) Priority() systems.Priority { return systems.PriorityHigh }

func (s *JointSystem) Add(joint *Joint) {
	s.mu.Lock()
	s.joints = append(s.joints, joint)
	s.mu.Unlock()
	s.logger.Debug("joint added", log.String("joint", joint.Name))
}

func (s *JointSystem) Remove(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, j := range s.joints {
		if j.Name == name {
			s.joints = append(s.joints[:i], s.joints[i+1:]...)
			return true
		}
	}
	return false
}

func (s *JointSystem) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.joints)
}

func (s *JointSystem) Update(float64) error     { return nil }
func (s *JointSystem) LateUpdate(float64) error { return nil }

// FixedUpdate applies each joint's control laws once.
func (s *JointSystem) FixedUpdate(float64) error {
	start := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, j := range s.joints {
		if j.Rotation != nil {
			j.Rotation.FixedUpdate(j.Body, j.Target)
		}
		if j.Spring != nil {
			j.Spring.FixedUpdate(j.Body, j.Target)
		}
	}
	s.metrics.Observe(time.Since(start), len(s.joints), nil)
	return nil
}

func (s *JointSystem) GetMetrics() systems.Metrics {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.metrics
}
