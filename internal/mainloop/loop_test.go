package mainloop

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func runLoop(t *testing.T) (*Loop, context.CancelFunc) {
	t.Helper()
	l := New(16)
	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = l.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-l.Done()
	})
	return l, cancel
}

func TestInvokeRunsTasksInOrder(t *testing.T) {
	l, _ := runLoop(t)
	ctx := context.Background()

	var got []int
	for i := 0; i < 10; i++ {
		i := i
		if err := l.Invoke(ctx, func() { got = append(got, i) }); err != nil {
			t.Fatalf("Invoke: %v", err)
		}
	}
	// InvokeSync orders after every earlier task, so got is safe to read.
	if err := l.InvokeSync(ctx, func() {}); err != nil {
		t.Fatalf("InvokeSync: %v", err)
	}

	for i, v := range got {
		if v != i {
			t.Fatalf("task order = %v", got)
		}
	}
	if len(got) != 10 {
		t.Fatalf("ran %d tasks, want 10", len(got))
	}
}

func TestSourceCoalescesWakeups(t *testing.T) {
	l := New(4)

	var calls atomic.Int32
	src := NewIdleSource(func() bool {
		calls.Add(1)
		return true
	})
	src.Attach(l)

	// Not running yet: wake-ups pile up into a single pending dispatch.
	src.SetReady()
	src.SetReady()
	src.SetReady()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = l.Run(ctx) }()

	deadline := time.Now().Add(time.Second)
	for calls.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	// Flush the loop before counting
	_ = l.InvokeSync(ctx, func() {})

	if got := calls.Load(); got != 1 {
		t.Errorf("callback ran %d times, want 1", got)
	}
}

func TestSourceRunsOnLoopGoroutine(t *testing.T) {
	l, _ := runLoop(t)

	// Loop-only state: written by tasks and by the source callback, never
	// locked. The race detector flags this test if dispatch leaks to
	// another goroutine.
	counter := 0
	fired := make(chan struct{}, 8)
	src := NewIdleSource(func() bool {
		counter++
		fired <- struct{}{}
		return true
	})
	src.Attach(l)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			src.SetReady()
		}()
	}
	wg.Wait()

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("source never dispatched")
	}
	_ = l.InvokeSync(context.Background(), func() { counter++ })
}

func TestDestroyedSourceIsNotDispatched(t *testing.T) {
	l, _ := runLoop(t)

	var calls atomic.Int32
	src := NewIdleSource(func() bool {
		calls.Add(1)
		return true
	})
	src.Attach(l)
	src.Destroy()
	src.SetReady()

	_ = l.InvokeSync(context.Background(), func() {})
	time.Sleep(10 * time.Millisecond)

	if calls.Load() != 0 {
		t.Error("destroyed source was dispatched")
	}
	if !src.IsDestroyed() {
		t.Error("IsDestroyed() = false after Destroy")
	}
}

func TestSourceReturningFalseDestroysItself(t *testing.T) {
	l, _ := runLoop(t)

	done := make(chan struct{})
	src := NewIdleSource(func() bool {
		close(done)
		return false
	})
	src.Attach(l)
	src.SetReady()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("source never dispatched")
	}
	_ = l.InvokeSync(context.Background(), func() {})
	if !src.IsDestroyed() {
		t.Error("source should destroy itself after returning false")
	}
}

func TestInvokeAfterExit(t *testing.T) {
	l := New(1)
	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = l.Run(ctx) }()
	cancel()
	<-l.Done()

	if err := l.Invoke(context.Background(), func() {}); !errors.Is(err, ErrNotRunning) {
		t.Errorf("Invoke after exit: err = %v, want ErrNotRunning", err)
	}
}
