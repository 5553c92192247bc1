package worker

import (
	"io"
	"sync/atomic"

	"github.com/puzpuzpuz/xsync/v4"
)

// Tracker keeps every open socket and session registered so shutdown can
// force-close them instead of waiting for worker units to notice a cancelled
// context mid-dial.
type Tracker struct {
	resources *xsync.Map[uint64, io.Closer]
	seq       atomic.Uint64
	closed    atomic.Bool
}

func NewTracker() *Tracker {
	return &Tracker{resources: xsync.NewMap[uint64, io.Closer]()}
}

// Register records a resource for forced cleanup and returns an unregister
// callback the owner calls on normal close. Registration is refused once
// CloseAll has run; the caller must close the resource itself and bail out.
func (t *Tracker) Register(c io.Closer) (unregister func(), ok bool) {
	if t.closed.Load() {
		return nil, false
	}
	id := t.seq.Add(1)
	t.resources.Store(id, c)
	if t.closed.Load() {
		// lost the race with CloseAll
		t.resources.Delete(id)
		return nil, false
	}
	return func() { t.resources.Delete(id) }, nil
}

// CloseAll closes every registered resource and refuses new registrations.
func (t *Tracker) CloseAll() {
	t.closed.Store(true)
	t.resources.Range(func(id uint64, c io.Closer) bool {
		_ = c.Close()
		t.resources.Delete(id)
		return true
	})
}

// Len reports how many resources are currently registered.
func (t *Tracker) Len() int {
	return t.resources.Size()
}
