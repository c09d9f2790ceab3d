package queue

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestFIFOOrder(t *testing.T) {
	q := New[int]()
	for i := 0; i < 100; i++ {
		q.Push(i)
	}
	if q.Len() != 100 {
		t.Fatalf("Len() = %d, want 100", q.Len())
	}
	for i := 0; i < 100; i++ {
		if got := q.Pop(); got != i {
			t.Fatalf("Pop() = %d, want %d", got, i)
		}
	}
	if _, ok := q.TryPop(); ok {
		t.Error("TryPop on empty queue returned an item")
	}
}

func TestPopBlocksUntilPush(t *testing.T) {
	q := New[string]()
	got := make(chan string)

	go func() {
		got <- q.Pop()
	}()

	select {
	case v := <-got:
		t.Fatalf("Pop returned %q before any Push", v)
	case <-time.After(20 * time.Millisecond):
	}

	q.Push("frame")

	select {
	case v := <-got:
		if v != "frame" {
			t.Errorf("Pop() = %q, want frame", v)
		}
	case <-time.After(time.Second):
		t.Fatal("Pop did not wake after Push")
	}
}

func TestConcurrentProducers(t *testing.T) {
	q := New[int]()
	const producers, perProducer = 8, 500

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				q.Push(i)
			}
		}()
	}

	var received atomic.Int64
	done := make(chan struct{})
	go func() {
		for received.Load() < producers*perProducer {
			q.Pop()
			received.Add(1)
		}
		close(done)
	}()

	wg.Wait()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("consumer stuck after %d items", received.Load())
	}
}
