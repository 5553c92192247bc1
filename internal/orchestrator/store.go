// Package orchestrator accepts validated test requests, routes them to the
// worker fleet serving the method's protocol, monitors them to completion and
// aggregates results.
package orchestrator

import (
	"sync"
	"time"

	"github.com/puzpuzpuz/xsync/v4"

	"github.com/Gh05t666nero/nrtf/internal/core/domain"
)

// Store is the in-memory test registry. Record mutation goes through one
// mutex so the stop handler and the executor cannot interleave a status
// write; reads hand out copies.
type Store struct {
	mu      sync.RWMutex
	tests   *xsync.Map[string, *domain.Test]
	results *xsync.Map[string, map[string]any]
}

func NewStore() *Store {
	return &Store{
		tests:   xsync.NewMap[string, *domain.Test](),
		results: xsync.NewMap[string, map[string]any](),
	}
}

func (s *Store) Add(t *domain.Test) {
	s.tests.Store(t.ID, t)
}

// Snapshot returns a copy of the record.
func (s *Store) Snapshot(id string) (domain.Test, bool) {
	t, ok := s.tests.Load(id)
	if !ok {
		return domain.Test{}, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return *t, true
}

// List returns copies of every test belonging to user.
func (s *Store) List(user string) []domain.Test {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Test
	s.tests.Range(func(_ string, t *domain.Test) bool {
		if t.User == user {
			out = append(out, *t)
		}
		return true
	})
	return out
}

func (s *Store) Status(id string) (domain.TestStatus, bool) {
	t, ok := s.tests.Load(id)
	if !ok {
		return "", false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return t.Status, true
}

// MarkRunning moves a queued test to RUNNING and stamps start_time.
func (s *Store) MarkRunning(id string) bool {
	t, ok := s.tests.Load(id)
	if !ok {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.Status != domain.StatusQueued {
		return false
	}
	t.Status = domain.StatusRunning
	t.StartTime = time.Now()
	return true
}

func (s *Store) SetModuleTestID(id, moduleID string) {
	t, ok := s.tests.Load(id)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t.ModuleTestID = moduleID
}

// MarkStopped records a user stop: RUNNING moves to STOPPED with end_time
// set; any other state is returned unchanged. The returned copy reflects the
// record after the call.
func (s *Store) MarkStopped(id string) (domain.Test, bool) {
	t, ok := s.tests.Load(id)
	if !ok {
		return domain.Test{}, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.Status == domain.StatusRunning {
		t.Status = domain.StatusStopped
		t.EndTime = time.Now()
	}
	return *t, true
}

// Finish records the executor's outcome. STOPPED is never overwritten; a
// terminal record keeps its status but still gets an end_time when missing.
func (s *Store) Finish(id string, status domain.TestStatus) {
	t, ok := s.tests.Load(id)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.EndTime.IsZero() {
		t.EndTime = time.Now()
	}
	if t.Status.IsTerminal() {
		return
	}
	t.Status = status
}

// StoreResult records results for a test once; later writes are dropped so a
// terminal record's results stay immutable.
func (s *Store) StoreResult(id string, result map[string]any) {
	if result == nil {
		result = map[string]any{}
	}
	s.results.LoadOrStore(id, result)
}

func (s *Store) Result(id string) (map[string]any, bool) {
	return s.results.Load(id)
}

// ActiveCount reports tests currently QUEUED or RUNNING.
func (s *Store) ActiveCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	s.tests.Range(func(_ string, t *domain.Test) bool {
		if !t.Status.IsTerminal() {
			n++
		}
		return true
	})
	return n
}
