// Package mainloop provides the single-threaded execution context that hosts
// the producer side of the pipeline.
//
// Everything scheduled on a Loop runs on the goroutine that called Run, one
// task at a time, so state touched only from loop tasks needs no locking.
// Other goroutines hand work to the loop with Invoke, or wake an attached
// Source, which the loop dispatches at idle priority: only when no invoked
// task is waiting.
package mainloop

import (
	"context"
	"errors"
	"sync"
)

// ErrNotRunning is returned by InvokeSync once the loop has exited.
var ErrNotRunning = errors.New("mainloop: loop is not running")

// Loop is a cooperative task loop.
type Loop struct {
	tasks chan func()
	wake  chan struct{}
	done  chan struct{}

	mu      sync.Mutex
	sources []*Source
	running bool
}

// New creates a loop whose task queue holds up to backlog pending tasks
// before Invoke blocks.
func New(backlog int) *Loop {
	if backlog <= 0 {
		backlog = 64
	}
	return &Loop{
		tasks: make(chan func(), backlog),
		wake:  make(chan struct{}, 1),
		done:  make(chan struct{}),
	}
}

// Run services tasks and sources until ctx is done. It must be called at
// most once.
func (l *Loop) Run(ctx context.Context) error {
	l.mu.Lock()
	if l.running {
		l.mu.Unlock()
		return errors.New("mainloop: already running")
	}
	l.running = true
	l.mu.Unlock()
	defer close(l.done)

	for {
		// Invoked tasks take priority over idle sources
		select {
		case <-ctx.Done():
			return ctx.Err()
		case fn := <-l.tasks:
			fn()
			continue
		default:
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case fn := <-l.tasks:
			fn()
		case <-l.wake:
			l.dispatch()
		}
	}
}

// Done is closed when Run returns.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

// Invoke queues fn to run on the loop. It blocks only while the backlog is
// full.
func (l *Loop) Invoke(ctx context.Context, fn func()) error {
	select {
	case <-l.done:
		return ErrNotRunning
	default:
	}

	select {
	case l.tasks <- fn:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		return ErrNotRunning
	}
}

// InvokeSync runs fn on the loop and waits for it to finish.
func (l *Loop) InvokeSync(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	if err := l.Invoke(ctx, func() {
		defer close(finished)
		fn()
	}); err != nil {
		return err
	}
	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		// fn may have run just before the loop exited
		select {
		case <-finished:
			return nil
		default:
			return ErrNotRunning
		}
	}
}

func (l *Loop) poke() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

func (l *Loop) attach(s *Source) {
	l.mu.Lock()
	l.sources = append(l.sources, s)
	l.mu.Unlock()
	// A source may have been marked ready before it was attached
	l.poke()
}

func (l *Loop) detach(s *Source) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, src := range l.sources {
		if src == s {
			l.sources = append(l.sources[:i], l.sources[i+1:]...)
			return
		}
	}
}

// dispatch runs every ready source once.
func (l *Loop) dispatch() {
	l.mu.Lock()
	sources := make([]*Source, len(l.sources))
	copy(sources, l.sources)
	l.mu.Unlock()

	for _, s := range sources {
		s.dispatch()
	}
}
