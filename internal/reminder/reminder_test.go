package reminder

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/dori/taskdeck/internal/model"
	"github.com/dori/taskdeck/internal/rpc"
	"github.com/stretchr/testify/require"
)

type fakeTasks struct {
	mu    sync.Mutex
	tasks []model.Task
}

func (f *fakeTasks) Tasks() []model.Task {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.Task{}, f.tasks...)
}

func (f *fakeTasks) MarkReminderSent(id string) (model.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.tasks {
		if f.tasks[i].ID == id {
			f.tasks[i].ReminderSent = true
			return f.tasks[i], nil
		}
	}
	return model.Task{}, nil
}

type fakeAlerter struct{ titles []string }

func (a *fakeAlerter) SendDueReminder(title string, _ time.Duration) error {
	a.titles = append(a.titles, title)
	return nil
}

func at(t time.Time) *time.Time { return &t }

func TestCheckFiresOnce(t *testing.T) {
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	tasks := &fakeTasks{tasks: []model.Task{
		{ID: "soon", Title: "Soon", Status: model.StatusTodo, DueDate: at(now.Add(30 * time.Minute))},
		{ID: "late", Title: "Late", Status: model.StatusInProgress, DueDate: at(now.Add(-time.Hour))},
		{ID: "later", Title: "Later", Status: model.StatusTodo, DueDate: at(now.Add(5 * time.Hour))},
		{ID: "done", Title: "Done", Status: model.StatusDone, DueDate: at(now)},
		{ID: "sent", Title: "Sent", Status: model.StatusTodo, DueDate: at(now), ReminderSent: true},
		{ID: "nodue", Title: "No due", Status: model.StatusTodo},
	}}
	alerter := &fakeAlerter{}

	registry := rpc.NewRegistry()
	var mails []rpc.EmailRequest
	registry.Register(rpc.SendEmail, func(_ context.Context, params json.RawMessage) (any, error) {
		var req rpc.EmailRequest
		require.NoError(t, json.Unmarshal(params, &req))
		mails = append(mails, req)
		return map[string]bool{"sent": true}, nil
	})

	s := New(tasks, alerter, registry, Config{Lead: time.Hour, Email: "ann@example.com"}, nil)
	s.now = func() time.Time { return now }

	ctx := rpc.WithPrincipal(context.Background(), rpc.Principal{UserID: "u1"})
	require.Equal(t, 2, s.Check(ctx))
	require.Equal(t, []string{"Soon", "Late"}, alerter.titles)
	require.Len(t, mails, 2)
	require.Equal(t, []string{"ann@example.com"}, mails[0].To)

	require.Zero(t, s.Check(ctx))
	require.Len(t, alerter.titles, 2)
}
