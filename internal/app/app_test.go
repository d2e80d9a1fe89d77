package app

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/dori/taskdeck/internal/config"
	"github.com/dori/taskdeck/internal/docstore"
	"github.com/dori/taskdeck/internal/model"
	"github.com/dori/taskdeck/internal/rpc"
	"github.com/stretchr/testify/require"
)

const (
	timeout = 2 * time.Second
	tick    = 10 * time.Millisecond
)

func findDoc(t *testing.T, client docstore.Client, collection, id string) (map[string]any, bool) {
	t.Helper()
	docs, err := client.List(context.Background(), collection)
	require.NoError(t, err)
	for _, d := range docs {
		if d.ID == id {
			return d.Data, true
		}
	}
	return nil, false
}

func testConfig(t *testing.T, backend string) *config.Config {
	cfg := config.DefaultConfig()
	cfg.DataDir = t.TempDir()
	cfg.Backend = backend
	cfg.Notifications = false
	cfg.Reminders.Enabled = false
	cfg.User = config.UserConfig{ID: "u1", Name: "Ada", Email: "ada@example.com", Roles: []string{"member"}}
	return cfg
}

func TestNewMemoryBackend(t *testing.T) {
	a, err := New(testConfig(t, config.BackendMemory), Options{NoSeed: true})
	require.NoError(t, err)
	defer a.Close()

	a.Start(context.Background())
	require.Eventually(t, a.Tasks.Loaded, timeout, tick)

	task, err := a.Tasks.Add(map[string]any{"title": "Write report"})
	require.NoError(t, err)
	a.Tasks.Wait()

	rec, ok := findDoc(t, a.Docs, docstore.UserCollection("u1", "tasks"), task.ID)
	require.True(t, ok)
	require.Equal(t, "Write report", rec["title"])
}

func TestLocalBackendPersists(t *testing.T) {
	cfg := testConfig(t, config.BackendLocal)

	a, err := New(cfg, Options{NoSeed: true})
	require.NoError(t, err)
	a.Start(context.Background())
	require.Eventually(t, a.Tasks.Loaded, timeout, tick)
	_, err = a.Tasks.Add(map[string]any{"title": "Survives restart"})
	require.NoError(t, err)
	a.Tasks.Wait()
	require.NoError(t, a.Close())

	b, err := New(cfg, Options{NoSeed: true})
	require.NoError(t, err)
	defer b.Close()
	b.Start(context.Background())
	require.Eventually(t, func() bool { return len(b.Tasks.Tasks()) == 1 }, timeout, tick)
	require.Equal(t, "Survives restart", b.Tasks.Tasks()[0].Title)
}

func TestLockPreventsSecondInstance(t *testing.T) {
	cfg := testConfig(t, config.BackendMemory)

	a, err := New(cfg, Options{Lock: true})
	require.NoError(t, err)

	_, err = New(cfg, Options{Lock: true})
	require.ErrorContains(t, err, "already running")

	require.NoError(t, a.Close())
	b, err := New(cfg, Options{Lock: true})
	require.NoError(t, err)
	require.NoError(t, b.Close())
}

func TestLogFile(t *testing.T) {
	cfg := testConfig(t, config.BackendMemory)
	a, err := New(cfg, Options{LogFile: true})
	require.NoError(t, err)
	a.Logger.Printf("hello from test")
	require.NoError(t, a.Close())

	data, err := os.ReadFile(cfg.LogPath())
	require.NoError(t, err)
	require.Contains(t, string(data), "hello from test")
}

func TestGatewayLogsTimeEntry(t *testing.T) {
	a, err := New(testConfig(t, config.BackendMemory), Options{NoSeed: true})
	require.NoError(t, err)
	defer a.Close()

	entry := model.TimeEntry{ID: "e1", TaskID: "t1", UserID: "u1", Minutes: 25}
	a.LogTimeEntry(entry, model.Task{ID: "t1", Title: "Deep work"})

	path := docstore.UserCollection("u1", "timeEntries")
	require.Eventually(t, func() bool {
		_, ok := findDoc(t, a.Docs, path, "e1")
		return ok
	}, timeout, tick)
}

func TestGatewayRunsAsConfiguredUser(t *testing.T) {
	a, err := New(testConfig(t, config.BackendMemory), Options{})
	require.NoError(t, err)
	defer a.Close()

	err = a.Gateway.Call(context.Background(), rpc.UpdateUserRole, rpc.UpdateRoleRequest{UserID: "u2", Role: "admin"}, nil)
	require.Equal(t, rpc.CodePermissionDenied, rpc.CodeOf(err))
}

func TestExportCSV(t *testing.T) {
	a, err := New(testConfig(t, config.BackendMemory), Options{})
	require.NoError(t, err)
	defer a.Close()

	path, err := a.ExportCSV([]model.Task{{ID: "t1", Title: "Ship it"}})
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "Ship it")
}

func TestCloseWaitsForTimeEntry(t *testing.T) {
	cfg := testConfig(t, config.BackendLocal)
	a, err := New(cfg, Options{NoSeed: true})
	require.NoError(t, err)

	a.LogTimeEntry(model.TimeEntry{ID: "e1", TaskID: "t1", UserID: "u1", Minutes: 5}, model.Task{ID: "t1", Title: "Deep work"})
	require.NoError(t, a.Close())

	db, err := docstore.OpenSQLite(cfg.DBPath())
	require.NoError(t, err)
	defer db.Close()
	rec, ok := findDoc(t, db, docstore.UserCollection("u1", "timeEntries"), "e1")
	require.True(t, ok)
	require.EqualValues(t, 5, rec["minutes"])
}
