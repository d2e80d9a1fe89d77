package store

import (
	"context"
	"log"
	"sync"

	"github.com/dori/taskdeck/internal/docstore"
)

type write struct {
	id     string
	doc    map[string]any
	delete bool
}

// writeQueue persists writes in the order they were issued from a single
// goroutine. Failures are logged and dropped.
type writeQueue struct {
	client     docstore.Client
	collection string
	logger     *log.Logger

	mu      sync.Mutex
	pending []write
	closed  bool

	wake     chan struct{}
	done     chan struct{}
	stopped  chan struct{}
	inflight sync.WaitGroup
}

func newWriteQueue(client docstore.Client, collection string, logger *log.Logger) *writeQueue {
	q := &writeQueue{
		client:     client,
		collection: collection,
		logger:     logger,
		wake:       make(chan struct{}, 1),
		done:       make(chan struct{}),
		stopped:    make(chan struct{}),
	}
	go q.run()
	return q
}

func (q *writeQueue) push(w write) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		q.logger.Printf("dropping write to %s after close", w.id)
		return
	}
	q.inflight.Add(1)
	q.pending = append(q.pending, w)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

func (q *writeQueue) pop() (write, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.pending) == 0 {
		return write{}, false
	}
	w := q.pending[0]
	q.pending = q.pending[1:]
	return w, true
}

func (q *writeQueue) run() {
	defer close(q.stopped)
	for {
		select {
		case <-q.wake:
		case <-q.done:
			q.drain()
			return
		}
		q.drain()
	}
}

func (q *writeQueue) drain() {
	for {
		w, ok := q.pop()
		if !ok {
			return
		}
		q.apply(w)
		q.inflight.Done()
	}
}

func (q *writeQueue) apply(w write) {
	ctx := context.Background()
	if w.delete {
		if err := q.client.Delete(ctx, q.collection, w.id); err != nil {
			q.logger.Printf("failed to delete task %s: %v", w.id, err)
		}
		return
	}
	if err := q.client.Write(ctx, q.collection, w.id, w.doc); err != nil {
		q.logger.Printf("failed to save task %s: %v", w.id, err)
	}
}

func (q *writeQueue) wait() {
	q.inflight.Wait()
}

func (q *writeQueue) close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	q.mu.Unlock()

	close(q.done)
	<-q.stopped
}
