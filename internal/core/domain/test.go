package domain

import (
	"time"
)

// TestStatus is the lifecycle state of a test. QUEUED moves to RUNNING, which
// moves to exactly one of the terminal states. Terminal states are absorbing.
type TestStatus string

const (
	StatusQueued    TestStatus = "queued"
	StatusRunning   TestStatus = "running"
	StatusCompleted TestStatus = "completed"
	StatusFailed    TestStatus = "failed"
	StatusStopped   TestStatus = "stopped"
)

// IsTerminal reports whether the status is absorbing.
func (s TestStatus) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusStopped:
		return true
	}
	return false
}

const (
	MaxDuration = 300  // seconds
	MaxThreads  = 1000 // worker units per test
)

// TestRequest is the client-submitted description of a test. ProxyType nil
// means no proxies; 0 means any type.
type TestRequest struct {
	Target    string         `json:"target"`
	Method    string         `json:"method"`
	Duration  int            `json:"duration"`
	Threads   int            `json:"threads"`
	ProxyType *int           `json:"proxy_type,omitempty"`
	Parameters map[string]any `json:"parameters,omitempty"`
}

// Validate applies the safety bounds before a test is accepted.
func (r *TestRequest) Validate() error {
	if r.Target == "" {
		return NewValidationError("target", "target cannot be empty")
	}
	if r.Duration < 1 || r.Duration > MaxDuration {
		return NewValidationError("duration", "duration must be between 1 and 300 seconds")
	}
	if r.Threads < 1 || r.Threads > MaxThreads {
		return NewValidationError("threads", "threads must be between 1 and 1000")
	}
	if r.ProxyType != nil {
		switch *r.ProxyType {
		case 0, int(ProxyHTTP), int(ProxySOCKS4), int(ProxySOCKS5):
		default:
			return NewValidationError("proxy_type", "proxy type must be 0 (any), 1 (HTTP), 4 (SOCKS4) or 5 (SOCKS5)")
		}
	}
	return nil
}

// Test is the orchestrator's record of a submitted test. User never mutates;
// once the status is terminal the record is immutable apart from results
// stored alongside it.
type Test struct {
	ID           string
	User         string
	Target       string
	Method       string
	Duration     int
	Threads      int
	ProxyType    *int
	Parameters   map[string]any
	CreatedAt    time.Time
	StartTime    time.Time
	EndTime      time.Time
	ModuleTestID string
	Status       TestStatus
}

// TestResponse is the wire form of a Test. Epoch-second timestamps keep the
// public contract identical across services.
type TestResponse struct {
	ID        string     `json:"id"`
	Target    string     `json:"target"`
	Method    string     `json:"method"`
	Status    TestStatus `json:"status"`
	StartTime *float64   `json:"start_time,omitempty"`
	EndTime   *float64   `json:"end_time,omitempty"`
	User      string     `json:"user"`
}

// Response converts the record to its wire form.
func (t *Test) Response() TestResponse {
	return TestResponse{
		ID:        t.ID,
		Target:    t.Target,
		Method:    t.Method,
		Status:    t.Status,
		StartTime: epochSeconds(t.StartTime),
		EndTime:   epochSeconds(t.EndTime),
		User:      t.User,
	}
}

func epochSeconds(t time.Time) *float64 {
	if t.IsZero() {
		return nil
	}
	s := float64(t.UnixNano()) / float64(time.Second)
	return &s
}
