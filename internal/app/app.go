// Package app wires configuration, storage and services into a running
// taskdeck client.
package app

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/dori/taskdeck/internal/config"
	"github.com/dori/taskdeck/internal/docstore"
	"github.com/dori/taskdeck/internal/model"
	"github.com/dori/taskdeck/internal/notify"
	"github.com/dori/taskdeck/internal/prefs"
	"github.com/dori/taskdeck/internal/reminder"
	"github.com/dori/taskdeck/internal/rpc"
	"github.com/dori/taskdeck/internal/server"
	"github.com/dori/taskdeck/internal/store"
	"github.com/dori/taskdeck/internal/timer"
	"github.com/gofrs/flock"
)

// App holds the application state and dependencies
type App struct {
	Config    *config.Config
	Logger    *log.Logger
	Session   store.Session
	Docs      docstore.Client
	Gateway   rpc.Caller
	Tasks     *store.Store
	Refs      *store.References
	Timer     *timer.Timer
	Reminders *reminder.Scheduler
	Desktop   *notify.Notifier
	Status    *notify.Status

	lockFile *flock.Flock
	logFile  *os.File
	cancel   context.CancelFunc
	closers  []func() error
	// Gateway calls still in flight
	calls sync.WaitGroup
}

// Options selects what New sets up
type Options struct {
	// Lock takes the single-instance lock on the data directory
	Lock bool
	// LogFile sends the log to the data directory instead of Logger
	LogFile bool
	Logger  *log.Logger
	// NoSeed leaves an empty collection empty
	NoSeed bool
}

// New creates a new application instance. Nothing is loaded until Start.
func New(cfg *config.Config, opts Options) (*App, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	// Ensure data directory exists
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	a := &App{
		Config: cfg,
		Logger: opts.Logger,
		Session: store.Session{
			UserID:      cfg.User.ID,
			DisplayName: cfg.User.Name,
			Email:       cfg.User.Email,
			Roles:       cfg.User.Roles,
		},
	}
	if a.Logger == nil {
		a.Logger = log.New(io.Discard, "", 0)
	}
	if opts.LogFile {
		f, err := os.OpenFile(cfg.LogPath(), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		a.logFile = f
		a.Logger = log.New(f, "", log.LstdFlags)
	}

	if opts.Lock {
		if err := a.acquireLock(); err != nil {
			a.Close()
			return nil, err
		}
	}

	if err := a.openBackend(); err != nil {
		a.Close()
		return nil, err
	}

	a.Desktop = notify.NewNotifier(cfg.Notifications)
	a.Status = notify.NewStatus(5*time.Second, a.Logger)

	tasks, err := store.New(a.Session, a.Docs, store.Options{
		Notifier: a.Status,
		Logger:   a.Logger,
		NoSeed:   opts.NoSeed,
	})
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Tasks = tasks
	a.Refs = store.NewReferences(a.Docs, a.Logger)
	a.Timer = timer.New(a.Tasks, a.Session.UserID, nil)

	if cfg.Reminders.Enabled {
		rc := reminder.Config{Lead: cfg.Reminders.Lead, Interval: cfg.Reminders.Interval}
		if cfg.Reminders.Email {
			rc.Email = cfg.User.Email
		}
		a.Reminders = reminder.New(a.Tasks, a.Desktop, a.Gateway, rc, a.Logger)
	}
	return a, nil
}

// openBackend connects the document store and procedure gateway for the
// configured backend
func (a *App) openBackend() error {
	cfg := a.Config
	switch cfg.Backend {
	case config.BackendRemote:
		a.Docs = docstore.NewRemote(cfg.Remote.URL, cfg.Remote.Token, a.Logger)
		a.Gateway = rpc.NewClient(cfg.Remote.URL, cfg.Remote.Token)
		return nil

	case config.BackendMemory:
		a.Docs = docstore.NewMemory()

	default:
		db, err := docstore.OpenSQLite(cfg.DBPath())
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		a.Docs = db
		a.closers = append(a.closers, db.Close)
	}

	var mailer server.Mailer = server.LogMailer{Logger: a.Logger}
	if cfg.Email.Enabled() {
		mailer = server.NewSMTPMailer(server.SMTPConfig{
			Host:     cfg.Email.SMTPHost,
			Port:     cfg.Email.SMTPPort,
			User:     cfg.Email.SMTPUser,
			Password: cfg.Email.SMTPPassword,
			From:     cfg.Email.From,
		})
	}
	registry := server.NewRegistry(a.Docs, mailer, a.Logger)
	a.Gateway = registry.As(rpc.Principal{
		UserID: cfg.User.ID,
		Email:  cfg.User.Email,
		Roles:  cfg.User.Roles,
	})
	return nil
}

// Start subscribes to the task and reference collections and starts the
// reminder loop. Everything stops on Close.
func (a *App) Start(ctx context.Context) {
	ctx, a.cancel = context.WithCancel(ctx)
	a.Tasks.Load(ctx)
	a.Refs.Load(ctx)
	if a.Reminders != nil {
		go a.Reminders.Run(ctx)
	}
}

// LogTimeEntry reports a finished timer session to the gateway and the
// desktop. Failures are logged only.
func (a *App) LogTimeEntry(entry model.TimeEntry, task model.Task) {
	if err := a.Desktop.SendTimeLogged(task.Title, entry.Minutes); err != nil {
		a.Logger.Printf("desktop notification: %v", err)
	}
	a.calls.Add(1)
	go func() {
		defer a.calls.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		req := rpc.TimeEntryRequest{
			ID:        entry.ID,
			TaskID:    entry.TaskID,
			UserID:    entry.UserID,
			StartedAt: entry.StartedAt,
			EndedAt:   entry.EndedAt,
			Minutes:   entry.Minutes,
		}
		if err := a.Gateway.Call(ctx, rpc.LogTimeEntry, req, nil); err != nil {
			a.Logger.Printf("log time entry %s: %v", entry.ID, err)
		}
	}()
}

// LoadPrefs reads the device-local UI preferences. Unreadable prefs are
// logged and ignored.
func (a *App) LoadPrefs() prefs.Prefs {
	p, err := prefs.Load(a.Config.PrefsPath())
	if err != nil {
		a.Logger.Printf("load prefs: %v", err)
	}
	return p
}

// SavePrefs stores the device-local UI preferences
func (a *App) SavePrefs(p prefs.Prefs) error {
	return prefs.Save(a.Config.PrefsPath(), p)
}

// ExportPath returns a timestamped file name in the data directory
func (a *App) ExportPath(ext string) string {
	name := fmt.Sprintf("tasks-%s.%s", time.Now().Format("20060102-150405"), ext)
	return filepath.Join(a.Config.DataDir, name)
}

// acquireLock acquires an exclusive file lock to prevent multiple instances
func (a *App) acquireLock() error {
	lockPath := filepath.Join(a.Config.DataDir, "taskdeck.lock")
	a.lockFile = flock.New(lockPath)

	locked, err := a.lockFile.TryLock()
	if err != nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}

	if !locked {
		return fmt.Errorf("another instance of taskdeck is already running")
	}

	return nil
}

// releaseLock releases the file lock
func (a *App) releaseLock() {
	if a.lockFile != nil {
		a.lockFile.Unlock()
	}
}

// Close waits for pending writes and gateway calls, then releases every
// resource
func (a *App) Close() error {
	var errs []error

	if a.cancel != nil {
		a.cancel()
	}
	a.calls.Wait()
	if a.Refs != nil {
		a.Refs.Close()
	}
	if a.Tasks != nil {
		a.Tasks.Close()
	}
	for _, c := range a.closers {
		if err := c(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		}
	}

	a.releaseLock()
	if a.logFile != nil {
		a.logFile.Close()
	}

	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}
