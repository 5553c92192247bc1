package worker

import "sync"

// Signal is a set-once, level-triggered boolean that goroutines can either
// poll or select on. Once set it never resets.
type Signal struct {
	once sync.Once
	ch   chan struct{}
}

func NewSignal() *Signal {
	return &Signal{ch: make(chan struct{})}
}

// Set trips the signal. Safe to call repeatedly from any goroutine.
func (s *Signal) Set() {
	s.once.Do(func() { close(s.ch) })
}

// IsSet polls the signal without blocking.
func (s *Signal) IsSet() bool {
	select {
	case <-s.ch:
		return true
	default:
		return false
	}
}

// Done returns a channel closed when the signal is set.
func (s *Signal) Done() <-chan struct{} {
	return s.ch
}
