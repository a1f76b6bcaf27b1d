package scene

import (
	"sync"
	"sync/atomic"

	"github.com/zeusync/muvr/internal/core/avatar"
	"github.com/zeusync/muvr/internal/core/observability/log"
)

// Registry is the list of live avatars in a scene.
//
// Indices are positions in the list and are reassigned when an avatar is
// unregistered. Parallel passes resolve their owner by index, so every pass
// must hold a Lease from dispatch until its completion barrier, and the
// owner of the registry must complete outstanding passes before calling
// Unregister. Unregister refuses to run while any lease is held.
type Registry struct {
	mu         sync.RWMutex
	avatars    []*avatar.Avatar
	generation uint64
	leases     atomic.Int64
	logger     log.Log
}

func NewRegistry(logger log.Log) *Registry {
	return &Registry{logger: logger}
}

// Register appends a and returns its index. Registering an avatar twice
// returns its existing index.
func (r *Registry) Register(a *avatar.Avatar) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	if i := r.indexOf(a); i >= 0 {
		return i
	}
	r.avatars = append(r.avatars, a)
	index := len(r.avatars) - 1
	r.logger.Info("avatar registered",
		log.Stringer("avatar_id", a.ID()),
		log.String("avatar", a.Name()),
		log.Int("index", index))
	return index
}

// Unregister removes a by identity and compacts the list.
func (r *Registry) Unregister(a *avatar.Avatar) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.leases.Load() > 0 {
		return ErrPassInFlight
	}
	i := r.indexOf(a)
	if i < 0 {
		return ErrNotRegistered
	}
	r.avatars = append(r.avatars[:i], r.avatars[i+1:]...)
	r.generation++
	r.logger.Info("avatar unregistered",
		log.Stringer("avatar_id", a.ID()),
		log.String("avatar", a.Name()),
		log.Uint64("generation", r.generation))
	return nil
}

// Resolve returns the avatar at index.
func (r *Registry) Resolve(index int) (*avatar.Avatar, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.resolve(index, r.generation)
}

// IndexOf returns the current index of a.
func (r *Registry) IndexOf(a *avatar.Avatar) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if i := r.indexOf(a); i >= 0 {
		return i, nil
	}
	return -1, ErrNotRegistered
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.avatars)
}

// Generation increases every time the list is compacted.
func (r *Registry) Generation() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.generation
}

// Avatars returns a copy of the current list.
func (r *Registry) Avatars() []*avatar.Avatar {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]*avatar.Avatar(nil), r.avatars...)
}

// Acquire pins the current generation for the duration of one pass.
func (r *Registry) Acquire() *Lease {
	r.mu.RLock()
	defer r.mu.RUnlock()
	r.leases.Add(1)
	return &Lease{registry: r, generation: r.generation}
}

// Leases returns the number of leases currently held.
func (r *Registry) Leases() int64 {
	return r.leases.Load()
}

func (r *Registry) resolve(index int, generation uint64) (*avatar.Avatar, error) {
	if generation != r.generation || index < 0 || index >= len(r.avatars) {
		return nil, &StaleIndexError{
			Index:      index,
			Len:        len(r.avatars),
			Generation: generation,
			Current:    r.generation,
		}
	}
	return r.avatars[index], nil
}

func (r *Registry) indexOf(a *avatar.Avatar) int {
	for i, v := range r.avatars {
		if v == a {
			return i
		}
	}
	return -1
}

// Lease is a pass-scoped view of the registry. Indices resolved through a
// lease fail with StaleIndexError if the registry was compacted after the
// lease was acquired.
type Lease struct {
	registry   *Registry
	generation uint64
	released   atomic.Bool
}

func (l *Lease) Generation() uint64 { return l.generation }

// Resolve returns the avatar at index as of the lease's generation.
func (l *Lease) Resolve(index int) (*avatar.Avatar, error) {
	l.registry.mu.RLock()
	defer l.registry.mu.RUnlock()
	return l.registry.resolve(index, l.generation)
}

// Release returns the lease. Calling it more than once is a no-op.
func (l *Lease) Release() {
	if l.released.CompareAndSwap(false, true) {
		l.registry.leases.Add(-1)
	}
}
