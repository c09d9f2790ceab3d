package mainloop

import (
	"sync"
	"sync/atomic"
)

// Source is an idle wake-up source. Any goroutine may mark it ready; the
// loop it is attached to then calls its callback on the loop goroutine.
// Several SetReady calls before a dispatch coalesce into one callback.
type Source struct {
	callback func() bool
	ready    atomic.Bool

	mu        sync.Mutex
	loop      *Loop
	destroyed bool
}

// NewIdleSource creates a source that runs cb when ready. If cb returns
// false the source destroys itself.
func NewIdleSource(cb func() bool) *Source {
	return &Source{callback: cb}
}

// Attach binds the source to l.
func (s *Source) Attach(l *Loop) {
	s.mu.Lock()
	if s.destroyed || s.loop != nil {
		s.mu.Unlock()
		return
	}
	s.loop = l
	s.mu.Unlock()
	l.attach(s)
}

// SetReady schedules a dispatch. It is a no-op on a destroyed source.
func (s *Source) SetReady() {
	s.ready.Store(true)

	s.mu.Lock()
	l := s.loop
	destroyed := s.destroyed
	s.mu.Unlock()

	if l != nil && !destroyed {
		l.poke()
	}
}

// Destroy detaches the source. Pending dispatches are dropped.
func (s *Source) Destroy() {
	s.mu.Lock()
	if s.destroyed {
		s.mu.Unlock()
		return
	}
	s.destroyed = true
	l := s.loop
	s.loop = nil
	s.mu.Unlock()

	if l != nil {
		l.detach(s)
	}
}

// IsDestroyed reports whether Destroy has been called.
func (s *Source) IsDestroyed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.destroyed
}

func (s *Source) dispatch() {
	if s.IsDestroyed() || !s.ready.CompareAndSwap(true, false) {
		return
	}
	if !s.callback() {
		s.Destroy()
	}
}
