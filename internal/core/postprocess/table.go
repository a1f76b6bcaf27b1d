package postprocess

import (
	"github.com/zeusync/muvr/internal/core/avatar"
)

// slotTable maps work items of a parallel pass onto slot positions in the
// avatar. It is rebuilt only when the slot set changes and is read-only
// while a pass is in flight.
type slotTable struct {
	count       int
	fingerprint uint64
	indices     []int32
}

func (t *slotTable) stale(a *avatar.Avatar) bool {
	return t == nil || t.count != a.Len() || t.fingerprint != a.Fingerprint()
}

// rebuild refills the table from a, reusing its storage when it is large
// enough.
func (t *slotTable) rebuild(a *avatar.Avatar) {
	n := a.Len()
	if cap(t.indices) < n {
		t.indices = make([]int32, n)
	}
	t.indices = t.indices[:n]
	for i := range t.indices {
		t.indices[i] = int32(i)
	}
	t.count = n
	t.fingerprint = a.Fingerprint()
}

func (t *slotTable) len() int {
	if t == nil {
		return 0
	}
	return len(t.indices)
}
