package engine

import (
	"context"
	"sync"
	"time"
)

// runScheduler drains the pending queue on a fixed tick. Batches never
// overlap: a tick that arrives while a previous batch is still running is
// skipped, so the scheduler stays logically single-threaded at the batch
// level even though tasks within a batch run concurrently.
func (e *Engine) runScheduler(ctx context.Context) {
	defer e.loops.Done()

	ticker := time.NewTicker(e.config.BatchInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.drainBatch(ctx)
		}
	}
}

func (e *Engine) drainBatch(ctx context.Context) {
	e.mu.Lock()
	if e.draining || len(e.pending) == 0 {
		e.mu.Unlock()
		return
	}

	n := e.config.BatchSize
	if n > len(e.pending) {
		n = len(e.pending)
	}
	batch := e.pending[:n:n]
	e.pending = e.pending[n:]
	e.draining = true
	depth := len(e.pending)
	e.mu.Unlock()

	if e.metrics != nil {
		e.metrics.SetQueueDepth(depth)
	}
	e.logger.Debugw("draining batch", "tasks", len(batch), "queueDepth", depth)

	go func() {
		var wg sync.WaitGroup
		for _, t := range batch {
			wg.Add(1)
			go func(t *task) {
				defer wg.Done()
				e.processTask(ctx, t)
			}(t)
		}
		wg.Wait()

		e.mu.Lock()
		e.draining = false
		e.mu.Unlock()
	}()
}

// runStatsPersistence periodically writes the stats aggregate to the
// cache store. Best-effort: a dead store only costs restart survival.
func (e *Engine) runStatsPersistence(ctx context.Context) {
	defer e.loops.Done()

	ticker := time.NewTicker(e.config.StatsPersistInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			// Final write so a clean shutdown keeps its counters.
			persistCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			e.collector.Persist(persistCtx, e.store)
			cancel()
			return
		case <-ticker.C:
			e.collector.Persist(ctx, e.store)
		}
	}
}
