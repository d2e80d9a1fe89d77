// Package store keeps the signed-in user's tasks in memory and mirrors them
// to and from a document store.
//
// Every mutation is applied locally first and persisted in the background;
// every snapshot from the subscription replaces the in-memory collection
// wholesale, including snapshots of the store's own writes.
package store

import (
	"context"
	"io"
	"log"
	"sync"
	"time"

	"github.com/dori/taskdeck/internal/docstore"
	"github.com/dori/taskdeck/internal/model"
	"github.com/google/uuid"
)

// TasksCollection is the per-user sub-collection holding tasks
const TasksCollection = "tasks"

// Notifier surfaces transient messages to the user
type Notifier interface {
	Info(msg string)
	Error(msg string)
}

type nopNotifier struct{}

func (nopNotifier) Info(string)  {}
func (nopNotifier) Error(string) {}

// Options configures a Store. Zero values pick sensible defaults.
type Options struct {
	Notifier Notifier
	Logger   *log.Logger
	Now      func() time.Time
	NewID    func() string
	// Samples replaces the tasks seeded into an empty collection
	Samples []map[string]any
	// NoSeed disables seeding entirely
	NoSeed bool
}

// Store owns the in-memory task collection of one principal
type Store struct {
	session    Session
	client     docstore.Client
	collection string
	notifier   Notifier
	logger     *log.Logger
	now        func() time.Time
	newID      func() string
	samples    []map[string]any
	noSeed     bool

	mu          sync.Mutex
	tasks       []model.Task
	loaded      bool
	seeded      bool
	unsubscribe func()
	listeners   []func()

	queue  *writeQueue
	closed sync.Once
}

// New creates a store for session backed by client
func New(session Session, client docstore.Client, opts Options) (*Store, error) {
	if session.UserID == "" {
		return nil, ErrNoSession
	}

	s := &Store{
		session:    session,
		client:     client,
		collection: docstore.UserCollection(session.UserID, TasksCollection),
		notifier:   opts.Notifier,
		logger:     opts.Logger,
		now:        opts.Now,
		newID:      opts.NewID,
		samples:    opts.Samples,
		noSeed:     opts.NoSeed,
		tasks:      []model.Task{},
	}
	if s.notifier == nil {
		s.notifier = nopNotifier{}
	}
	if s.logger == nil {
		s.logger = log.New(io.Discard, "", 0)
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newID == nil {
		s.newID = newID
	}
	if s.samples == nil {
		s.samples = SampleTasks()
	}
	s.queue = newWriteQueue(client, s.collection, s.logger)

	return s, nil
}

func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// Session returns the principal the store was created for
func (s *Store) Session() Session {
	return s.session
}

// Collection returns the document path the store mirrors
func (s *Store) Collection() string {
	return s.collection
}

// Load opens the live subscription. Calling it again is a no-op.
func (s *Store) Load(ctx context.Context) {
	s.mu.Lock()
	if s.unsubscribe != nil {
		s.mu.Unlock()
		return
	}
	// Hold a placeholder so concurrent Loads do not subscribe twice
	s.unsubscribe = func() {}
	s.mu.Unlock()

	stop := s.client.Subscribe(ctx, s.collection, s.applySnapshot, s.subscriptionFailed)

	s.mu.Lock()
	s.unsubscribe = stop
	s.mu.Unlock()
}

func (s *Store) applySnapshot(docs []docstore.Document) {
	tasks := make([]model.Task, 0, len(docs))
	for _, d := range docs {
		t := model.Normalize(d.Data)
		t.ID = d.ID
		tasks = append(tasks, t)
	}

	s.mu.Lock()
	first := !s.loaded
	s.loaded = true
	s.tasks = tasks
	seed := first && len(tasks) == 0 && !s.seeded && !s.noSeed
	if seed {
		s.seeded = true
	}
	s.mu.Unlock()

	s.emit()

	if seed {
		s.seed()
	}
}

func (s *Store) subscriptionFailed(err error) {
	s.logger.Printf("task subscription failed: %v", err)
	s.notifier.Error("Failed to load tasks")
}

func (s *Store) seed() {
	n := 0
	for _, sample := range s.samples {
		if _, err := s.create(sample, "Created"); err == nil {
			n++
		}
	}
	s.logger.Printf("seeded %d sample tasks for %s", n, s.session.UserID)
	if n > 0 {
		s.emit()
	}
}

// Loaded reports whether the first snapshot has arrived
func (s *Store) Loaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaded
}

// Tasks returns a copy of the in-memory collection in snapshot order
func (s *Store) Tasks() []model.Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.Task, len(s.tasks))
	for i, t := range s.tasks {
		out[i] = t.Clone()
	}
	return out
}

// Get returns a copy of one task
func (s *Store) Get(id string) (model.Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i := s.indexLocked(id); i >= 0 {
		return s.tasks[i].Clone(), true
	}
	return model.Task{}, false
}

// OnChange registers fn to run after every change to the collection.
// fn runs outside the store lock and may call back into the store.
func (s *Store) OnChange(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

func (s *Store) emit() {
	s.mu.Lock()
	listeners := append([]func(){}, s.listeners...)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn()
	}
}

// Wait blocks until every queued write has been attempted
func (s *Store) Wait() {
	s.queue.wait()
}

// Close ends the subscription and flushes pending writes. In-flight writes
// are never cancelled.
func (s *Store) Close() {
	s.closed.Do(func() {
		s.mu.Lock()
		stop := s.unsubscribe
		s.mu.Unlock()
		if stop != nil {
			stop()
		}
		s.queue.close()
	})
}

func (s *Store) indexLocked(id string) int {
	for i := range s.tasks {
		if s.tasks[i].ID == id {
			return i
		}
	}
	return -1
}

// stamp returns a timestamp strictly after prev
func (s *Store) stamp(prev time.Time) time.Time {
	now := s.now().UTC().Truncate(time.Millisecond)
	if !now.After(prev) {
		now = prev.Add(time.Millisecond)
	}
	return now
}
