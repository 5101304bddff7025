package interpreter

import (
	"context"
	"log/slog"
	"sync"
)

// jobPool is the bounded concurrency coordinator: a counting semaphore
// sized to maxConcurrency. It bounds *jobs* rather than adaptively scaling
// a page pool.
type jobPool struct {
	sem chan struct{}
	wg  sync.WaitGroup
}

func newJobPool(maxConcurrency int) *jobPool {
	if maxConcurrency < 1 {
		maxConcurrency = 1
	}
	return &jobPool{sem: make(chan struct{}, maxConcurrency)}
}

// Submit never blocks the calling goroutine: it hands fn to a manager
// goroutine that waits for a concurrency slot and only then runs it. Jobs
// submit nested jobs from inside themselves (a popup discovered mid-run, a
// link enqueued mid-run) — if Submit blocked the caller on acquiring its own
// slot, a pool running at capacity would deadlock the instant any running
// job tried to submit one more: every slot would be held by a job blocked
// waiting for a slot only a currently-running job can free. Moving the
// semaphore wait into its own goroutine means the caller (itself a running
// job, holding a slot) returns immediately and keeps running toward
// releasing that slot, rather than waiting on the very capacity it occupies.
func (p *jobPool) Submit(ctx context.Context, fn func(ctx context.Context)) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		select {
		case p.sem <- struct{}{}:
		case <-ctx.Done():
			return
		}
		defer func() { <-p.sem }()
		defer func() {
			if r := recover(); r != nil {
				slog.Error("workflow job panicked", "recover", r)
			}
		}()
		fn(ctx)
	}()
}

// Wait blocks until every submitted job (including ones submitted by other
// jobs while they ran, e.g. nested popups/links) has completed.
func (p *jobPool) Wait() {
	p.wg.Wait()
}
