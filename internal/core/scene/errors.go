package scene

import (
	"errors"
	"fmt"
)

var (
	ErrStaleIndex    = errors.New("stale avatar index")
	ErrNotRegistered = errors.New("avatar not registered")
	ErrPassInFlight  = errors.New("cannot unregister while a pass is in flight")
)

// StaleIndexError reports an index that no longer designates the avatar it
// was issued for, either because it is out of range or because the registry
// was compacted after the index was captured.
type StaleIndexError struct {
	Index      int
	Len        int
	Generation uint64
	Current    uint64
}

func (e *StaleIndexError) Error() string {
	if e.Generation != e.Current {
		return fmt.Sprintf("%s %d: registry generation %d, lease generation %d",
			ErrStaleIndex, e.Index, e.Current, e.Generation)
	}
	return fmt.Sprintf("%s %d: registry holds %d avatars", ErrStaleIndex, e.Index, e.Len)
}

func (e *StaleIndexError) Unwrap() error {
	return ErrStaleIndex
}
