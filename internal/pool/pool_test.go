package pool

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"poolserv/internal/events"
)

func TestNewSizeGuard(t *testing.T) {
	if _, err := New(0); err == nil {
		t.Error("expected error for size 0")
	}
	if _, err := New(-3); err == nil {
		t.Error("expected error for negative size")
	}

	p, err := New(4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer p.Shutdown()

	if p.Size() != 4 {
		t.Errorf("expected 4 workers, got %d", p.Size())
	}
}

func TestExecuteRunsEachJobOnce(t *testing.T) {
	p, err := New(4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var counter atomic.Int32
	for _i := 0; _i < 100; _i++ {
		if !p.Execute(func() {
			counter.Add(1)
		}) {
			t.Fatal("expected Execute to accept job")
		}
	}

	// Shutdown drains all accepted jobs before the workers see a terminate
	p.Shutdown()

	if counter.Load() != 100 {
		t.Errorf("expected 100 jobs executed, got %d", counter.Load())
	}
}

func TestParallelExecution(t *testing.T) {
	// 8 sleeping jobs on 4 workers should take ~2 rounds, not 8
	p, err := New(4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	const sleep = 10 * time.Millisecond
	var counter atomic.Int32

	start := time.Now()
	for _i := 0; _i < 8; _i++ {
		p.Execute(func() {
			time.Sleep(sleep)
			counter.Add(1)
		})
	}
	p.Shutdown()
	elapsed := time.Since(start)

	if counter.Load() != 8 {
		t.Errorf("expected 8 jobs executed, got %d", counter.Load())
	}
	if elapsed >= 8*sleep {
		t.Errorf("jobs appear serialized: 8 x %v jobs took %v on 4 workers", sleep, elapsed)
	}
}

func TestConcurrentSubmitters(t *testing.T) {
	p, err := New(4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var counter atomic.Int32
	const numGoroutines = 10
	const jobsPerGoroutine = 100

	var wg sync.WaitGroup
	for _i := 0; _i < numGoroutines; _i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for _i := 0; _i < jobsPerGoroutine; _i++ {
				p.Execute(func() {
					counter.Add(1)
				})
			}
		}()
	}
	wg.Wait()

	p.Shutdown()

	expected := int32(numGoroutines * jobsPerGoroutine)
	if counter.Load() != expected {
		t.Errorf("expected %d jobs executed, got %d", expected, counter.Load())
	}
}

func TestShutdownCompletesWhileWorkersBusy(t *testing.T) {
	p, err := New(3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Occupy every worker when shutdown begins
	for _i := 0; _i < 3; _i++ {
		p.Execute(func() {
			time.Sleep(50 * time.Millisecond)
		})
	}

	done := make(chan struct{})
	go func() {
		p.Shutdown()
		close(done)
	}()

	select {
	case <-done:
		// Success
	case <-time.After(2 * time.Second):
		t.Fatal("shutdown did not complete with busy workers")
	}
}

func TestShutdownRightAfterNew(t *testing.T) {
	// Shutdown can run before a worker goroutine has even been scheduled;
	// that must not panic or hang
	for _i := 0; _i < 10000; _i++ {
		p, err := New(1)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		p.Shutdown()
	}
}

func TestAcceptedJobsAlwaysRun(t *testing.T) {
	// Every Execute that returns true must have its job run, even when
	// submitters race Shutdown
	for _i := 0; _i < 50; _i++ {
		p, err := New(2)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var accepted, executed atomic.Int32
		var wg sync.WaitGroup
		for _i := 0; _i < 4; _i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for _i := 0; _i < 50; _i++ {
					if p.Execute(func() {
						executed.Add(1)
					}) {
						accepted.Add(1)
					}
				}
			}()
		}

		p.Shutdown()
		wg.Wait()

		if executed.Load() != accepted.Load() {
			t.Fatalf("accepted %d jobs but executed %d", accepted.Load(), executed.Load())
		}
	}
}

func TestShutdownIdempotent(t *testing.T) {
	p, err := New(2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	p.Shutdown()
	// Second shutdown should be a no-op, not a deadlock
	done := make(chan struct{})
	go func() {
		p.Shutdown()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("second shutdown did not return")
	}
}

func TestExecuteAfterShutdown(t *testing.T) {
	p, err := New(2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	p.Shutdown()

	if p.Execute(func() {}) {
		t.Error("expected Execute to refuse jobs after shutdown")
	}
}

func TestPanickingJobDoesNotKillWorker(t *testing.T) {
	// With a single worker, a later job only runs if the worker
	// survived the panicking one
	p, err := New(1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var counter atomic.Int32

	p.Execute(func() {
		panic("job failure")
	})
	p.Execute(func() {
		counter.Add(1)
	})

	p.Shutdown()

	if counter.Load() != 1 {
		t.Errorf("expected job after panic to run, counter = %d", counter.Load())
	}
}

func TestPoolLifecycleEvents(t *testing.T) {
	bus := events.NewBus()
	ch := bus.Subscribe()

	p, err := NewWithBus(2, bus)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	p.Shutdown()

	seen := map[events.EventType]int{}
	timeout := time.After(time.Second)
	for seen[events.EventPoolShutdown] == 0 {
		select {
		case ev := <-ch:
			seen[ev.Type]++
		case <-timeout:
			t.Fatalf("timeout waiting for shutdown event, seen: %v", seen)
		}
	}

	if seen[events.EventPoolStarted] != 1 {
		t.Errorf("expected 1 pool_started event, got %d", seen[events.EventPoolStarted])
	}
	if seen[events.EventWorkerTerminated] != 2 {
		t.Errorf("expected 2 worker_terminated events, got %d", seen[events.EventWorkerTerminated])
	}
}

func TestWorkerJoinTakesHandleOnce(t *testing.T) {
	q := newDispatchQueue()
	w := newWorker(0, q, nil)

	q.send(message{kind: msgTerminate})

	done := make(chan struct{})
	go func() {
		w.join()
		w.join() // second join must not block
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("double join did not return")
	}
}
