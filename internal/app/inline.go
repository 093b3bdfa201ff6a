package app

import (
	"context"
	"sync"

	"github.com/xelth-com/berrycheck/internal/logger"
	"github.com/xelth-com/berrycheck/internal/queue"
)

// inlineQueue renders in a goroutine when no redis is available.
// Stop cancels running renders and waits for them to return.
type inlineQueue struct {
	renderer queue.Renderer
	log      *logger.Logger

	ctx    context.Context
	cancel context.CancelFunc
	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

func newInlineQueue(renderer queue.Renderer, log *logger.Logger) *inlineQueue {
	ctx, cancel := context.WithCancel(context.Background())
	return &inlineQueue{renderer: renderer, log: log, ctx: ctx, cancel: cancel}
}

func (q *inlineQueue) EnqueueRender(_ context.Context, inspectionID uint) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		q.log.Warn("render dropped, shutting down", "inspection_id", inspectionID)
		return nil
	}
	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		if _, err := q.renderer.Generate(q.ctx, inspectionID); err != nil {
			q.log.Warn("in-process render failed", "inspection_id", inspectionID, "error", err)
		}
	}()
	return nil
}

// Stop is safe to call more than once
func (q *inlineQueue) Stop() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.cancel()
	q.wg.Wait()
}
