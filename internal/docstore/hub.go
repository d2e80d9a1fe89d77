package docstore

import (
	"sync"
)

// Hub fans snapshots out to the watchers of each collection.
type Hub struct {
	mu       sync.RWMutex
	watchers map[string]map[*Watcher]struct{}
}

// NewHub creates an empty hub
func NewHub() *Hub {
	return &Hub{
		watchers: make(map[string]map[*Watcher]struct{}),
	}
}

// Watcher delivers snapshots to one subscriber from its own goroutine.
// Only the latest undelivered snapshot is kept.
type Watcher struct {
	onSnapshot SnapshotFunc

	mu      sync.Mutex
	pending []Document
	has     bool

	wake chan struct{}
	done chan struct{}
	once sync.Once
}

func newWatcher(fn SnapshotFunc) *Watcher {
	w := &Watcher{
		onSnapshot: fn,
		wake:       make(chan struct{}, 1),
		done:       make(chan struct{}),
	}
	go w.run()
	return w
}

func (w *Watcher) offer(docs []Document) {
	w.mu.Lock()
	w.pending = cloneDocs(docs)
	w.has = true
	w.mu.Unlock()

	select {
	case w.wake <- struct{}{}:
	default:
	}
}

func (w *Watcher) run() {
	for {
		select {
		case <-w.done:
			return
		case <-w.wake:
			w.mu.Lock()
			docs, has := w.pending, w.has
			w.pending, w.has = nil, false
			w.mu.Unlock()

			select {
			case <-w.done:
				return
			default:
			}
			if has {
				w.onSnapshot(docs)
			}
		}
	}
}

func (w *Watcher) stop() {
	w.once.Do(func() { close(w.done) })
}

// Register adds a watcher for collection. The caller must offer the
// initial snapshot.
func (h *Hub) Register(collection string, fn SnapshotFunc) *Watcher {
	w := newWatcher(fn)
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.watchers[collection]; !ok {
		h.watchers[collection] = make(map[*Watcher]struct{})
	}
	h.watchers[collection][w] = struct{}{}
	return w
}

// Unregister removes and stops a watcher; empty collections are cleaned up.
func (h *Hub) Unregister(collection string, w *Watcher) {
	h.mu.Lock()
	if ws, ok := h.watchers[collection]; ok {
		delete(ws, w)
		if len(ws) == 0 {
			delete(h.watchers, collection)
		}
	}
	h.mu.Unlock()
	w.stop()
}

// Publish sends a snapshot to every watcher of collection
func (h *Hub) Publish(collection string, docs []Document) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for w := range h.watchers[collection] {
		w.offer(docs)
	}
}

// Watching returns the number of watchers on collection
func (h *Hub) Watching(collection string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.watchers[collection])
}
