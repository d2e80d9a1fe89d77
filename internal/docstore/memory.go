package docstore

import (
	"context"
	"sync"
	"time"
)

// Memory is an in-process document store. It backs tests and the
// ephemeral "memory" backend.
type Memory struct {
	mu          sync.Mutex
	collections map[string]*memCollection
	hub         *Hub
	now         func() time.Time
}

type memCollection struct {
	order []string
	docs  map[string]Document
}

// NewMemory creates an empty in-memory store
func NewMemory() *Memory {
	return &Memory{
		collections: make(map[string]*memCollection),
		hub:         NewHub(),
		now:         time.Now,
	}
}

func (m *Memory) collection(name string) *memCollection {
	c, ok := m.collections[name]
	if !ok {
		c = &memCollection{docs: make(map[string]Document)}
		m.collections[name] = c
	}
	return c
}

func (m *Memory) snapshotLocked(name string) []Document {
	c, ok := m.collections[name]
	if !ok {
		return []Document{}
	}
	docs := make([]Document, 0, len(c.order))
	for _, id := range c.order {
		docs = append(docs, c.docs[id])
	}
	return cloneDocs(docs)
}

// Subscribe implements Client
func (m *Memory) Subscribe(ctx context.Context, collection string, onSnapshot SnapshotFunc, onError ErrorFunc) func() {
	if !ValidCollection(collection) {
		if onError != nil {
			onError(ErrInvalidPath)
		}
		return func() {}
	}

	m.mu.Lock()
	w := m.hub.Register(collection, onSnapshot)
	w.offer(m.snapshotLocked(collection))
	m.mu.Unlock()

	return stopOnDone(ctx, func() { m.hub.Unregister(collection, w) })
}

// Write implements Client
func (m *Memory) Write(ctx context.Context, collection, id string, record map[string]any) error {
	if err := checkPath(collection, id); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now().UTC()
	c := m.collection(collection)
	doc, exists := c.docs[id]
	if !exists {
		doc = Document{ID: id, CreateTime: now}
		c.order = append(c.order, id)
	}
	doc.Data = merge(doc.Data, record)
	doc.UpdateTime = now
	c.docs[id] = doc

	m.hub.Publish(collection, m.snapshotLocked(collection))
	return nil
}

// Delete implements Client
func (m *Memory) Delete(ctx context.Context, collection, id string) error {
	if err := checkPath(collection, id); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.collections[collection]
	if !ok {
		return nil
	}
	if _, ok := c.docs[id]; !ok {
		return nil
	}
	delete(c.docs, id)
	for i, existing := range c.order {
		if existing == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}

	m.hub.Publish(collection, m.snapshotLocked(collection))
	return nil
}

// List implements Client
func (m *Memory) List(ctx context.Context, collection string) ([]Document, error) {
	if !ValidCollection(collection) {
		return nil, ErrInvalidPath
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked(collection), nil
}

// stopOnDone returns an idempotent cancel func that also fires when ctx ends
func stopOnDone(ctx context.Context, stop func()) func() {
	var once sync.Once
	stopped := make(chan struct{})
	cancel := func() {
		once.Do(func() {
			stop()
			close(stopped)
		})
	}
	if ctx.Done() != nil {
		go func() {
			select {
			case <-ctx.Done():
				cancel()
			case <-stopped:
			}
		}()
	}
	return cancel
}

var _ Client = (*Memory)(nil)
