package interpreter

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestJobPoolRunsWithinConcurrencyLimit(t *testing.T) {
	pool := newJobPool(2)
	var running, maxRunning atomic.Int32

	for i := 0; i < 10; i++ {
		pool.Submit(context.Background(), func(ctx context.Context) {
			n := running.Add(1)
			for {
				cur := maxRunning.Load()
				if n <= cur || maxRunning.CompareAndSwap(cur, n) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			running.Add(-1)
		})
	}
	pool.Wait()

	if maxRunning.Load() > 2 {
		t.Fatalf("expected at most 2 concurrent jobs, saw %d", maxRunning.Load())
	}
}

// TestJobPoolSubmitNested saturates a capacity-1 pool with the one job that
// then submits a nested job from inside itself (mirroring a popup or
// enqueueLinks link discovered mid-run). With every slot already held by a
// running job, a blocking Submit would deadlock forever; Wait must still
// return once both the outer and nested job have run.
func TestJobPoolSubmitNested(t *testing.T) {
	pool := newJobPool(1)
	var ran atomic.Int32

	pool.Submit(context.Background(), func(ctx context.Context) {
		ran.Add(1)
		pool.Submit(ctx, func(ctx context.Context) {
			ran.Add(1)
		})
	})

	done := make(chan struct{})
	go func() {
		pool.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("pool.Wait() did not return: nested Submit deadlocked against a saturated pool")
	}

	if ran.Load() != 2 {
		t.Fatalf("expected both the outer and nested job to run, got %d", ran.Load())
	}
}
