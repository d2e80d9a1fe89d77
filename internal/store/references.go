package store

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"sort"
	"sync"

	"github.com/dori/taskdeck/internal/cache"
	"github.com/dori/taskdeck/internal/docstore"
	"github.com/dori/taskdeck/internal/model"
)

// Shared reference collections
const (
	UsersCollection    = "users"
	ProjectsCollection = "projects"
	LabelsCollection   = "labels"
)

// References caches the users, projects and labels the board refers to.
// The core never writes them; they are refreshed wholesale from their
// subscriptions.
type References struct {
	client docstore.Client
	logger *log.Logger

	users    *cache.Map[string, model.User]
	projects *cache.Map[string, model.Project]
	labels   *cache.Map[string, model.Label]

	mu        sync.Mutex
	stops     []func()
	listeners []func()
}

// NewReferences creates empty caches fed by client
func NewReferences(client docstore.Client, logger *log.Logger) *References {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	opts := cache.Options{ConcurrencySafe: true}
	return &References{
		client:   client,
		logger:   logger,
		users:    cache.New[string, model.User](opts),
		projects: cache.New[string, model.Project](opts),
		labels:   cache.New[string, model.Label](opts),
	}
}

// Load subscribes to the three reference collections
func (r *References) Load(ctx context.Context) {
	stops := []func(){
		subscribeInto(ctx, r, UsersCollection, r.users, func(u *model.User, id string) { u.ID = id }),
		subscribeInto(ctx, r, ProjectsCollection, r.projects, func(p *model.Project, id string) { p.ID = id }),
		subscribeInto(ctx, r, LabelsCollection, r.labels, func(l *model.Label, id string) { l.ID = id }),
	}

	r.mu.Lock()
	r.stops = append(r.stops, stops...)
	r.mu.Unlock()
}

func subscribeInto[V any](ctx context.Context, r *References, collection string, into *cache.Map[string, V], setID func(*V, string)) func() {
	return r.client.Subscribe(ctx, collection,
		func(docs []docstore.Document) {
			items := make(map[string]V, len(docs))
			for _, d := range docs {
				v, err := decode[V](d.Data)
				if err != nil {
					r.logger.Printf("%s/%s: %v", collection, d.ID, err)
					continue
				}
				setID(&v, d.ID)
				items[d.ID] = v
			}
			into.Replace(items)
			r.emit()
		},
		func(err error) {
			r.logger.Printf("%s subscription failed: %v", collection, err)
		},
	)
}

func decode[V any](data map[string]any) (V, error) {
	var v V
	b, err := json.Marshal(data)
	if err != nil {
		return v, err
	}
	err = json.Unmarshal(b, &v)
	return v, err
}

// OnChange registers fn to run after any reference collection refreshes
func (r *References) OnChange(fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = append(r.listeners, fn)
}

func (r *References) emit() {
	r.mu.Lock()
	listeners := append([]func(){}, r.listeners...)
	r.mu.Unlock()
	for _, fn := range listeners {
		fn()
	}
}

// Close ends all subscriptions
func (r *References) Close() {
	r.mu.Lock()
	stops := r.stops
	r.stops = nil
	r.mu.Unlock()
	for _, stop := range stops {
		stop()
	}
}

func (r *References) User(id string) (model.User, bool) {
	return r.users.Get(id)
}

func (r *References) Project(id string) (model.Project, bool) {
	return r.projects.Get(id)
}

func (r *References) Label(id string) (model.Label, bool) {
	return r.labels.Get(id)
}

// LabelName resolves a label id to its palette name, or returns the id
func (r *References) LabelName(id string) string {
	if l, ok := r.labels.Get(id); ok && l.Name != "" {
		return l.Name
	}
	return id
}

// UserName resolves a user id to a display name, or returns the id
func (r *References) UserName(id string) string {
	if u, ok := r.users.Get(id); ok {
		return u.Name()
	}
	return id
}

// Users returns all cached users sorted by name
func (r *References) Users() []model.User {
	users := r.users.Values()
	sort.Slice(users, func(i, j int) bool { return users[i].Name() < users[j].Name() })
	return users
}

// Projects returns active projects sorted by name
func (r *References) Projects() []model.Project {
	var out []model.Project
	for _, p := range r.projects.Values() {
		if !p.Archived {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DisplayName() < out[j].DisplayName() })
	return out
}

// Labels returns the label palette sorted by name
func (r *References) Labels() []model.Label {
	labels := r.labels.Values()
	sort.Slice(labels, func(i, j int) bool { return labels[i].Name < labels[j].Name })
	return labels
}
