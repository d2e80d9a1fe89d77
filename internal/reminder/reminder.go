// Package reminder fires one reminder per task as its due date approaches.
package reminder

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/dori/taskdeck/internal/model"
	"github.com/dori/taskdeck/internal/rpc"
)

// Tasks is the part of the task store reminders need
type Tasks interface {
	Tasks() []model.Task
	MarkReminderSent(id string) (model.Task, error)
}

// Alerter shows a reminder to the user
type Alerter interface {
	SendDueReminder(taskTitle string, dueIn time.Duration) error
}

// Config controls when and how reminders fire
type Config struct {
	// Lead is how long before the due date a reminder fires
	Lead     time.Duration
	Interval time.Duration
	// Email receives reminder mail when set and a gateway is available
	Email string
}

// Scheduler checks due dates and fires reminders
type Scheduler struct {
	tasks   Tasks
	alerter Alerter
	gateway rpc.Caller
	cfg     Config
	logger  *log.Logger
	now     func() time.Time
}

// New creates a scheduler. gateway may be nil to skip email.
func New(tasks Tasks, alerter Alerter, gateway rpc.Caller, cfg Config, logger *log.Logger) *Scheduler {
	if cfg.Lead <= 0 {
		cfg.Lead = time.Hour
	}
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Scheduler{
		tasks:   tasks,
		alerter: alerter,
		gateway: gateway,
		cfg:     cfg,
		logger:  logger,
		now:     time.Now,
	}
}

// Due returns the tasks whose reminder should fire now
func (s *Scheduler) Due() []model.Task {
	now := s.now()
	var due []model.Task
	for _, t := range s.tasks.Tasks() {
		if t.ReminderSent || t.DueDate == nil {
			continue
		}
		if t.Status == model.StatusDone || t.Status == model.StatusCancelled {
			continue
		}
		if t.DueDate.Sub(now) <= s.cfg.Lead {
			due = append(due, t)
		}
	}
	return due
}

// Check fires every due reminder once and returns how many fired
func (s *Scheduler) Check(ctx context.Context) int {
	fired := 0
	for _, t := range s.Due() {
		// Mark first so a failing channel never repeats the reminder
		if _, err := s.tasks.MarkReminderSent(t.ID); err != nil {
			s.logger.Printf("reminder for %s: %v", t.ID, err)
			continue
		}
		fired++

		dueIn := t.DueDate.Sub(s.now())
		if s.alerter != nil {
			if err := s.alerter.SendDueReminder(t.Title, dueIn); err != nil {
				s.logger.Printf("desktop reminder for %s: %v", t.ID, err)
			}
		}
		if s.gateway != nil && s.cfg.Email != "" {
			req := rpc.EmailRequest{
				To:      []string{s.cfg.Email},
				Subject: "Reminder: " + t.Title,
				Body:    reminderBody(t, dueIn),
			}
			if err := s.gateway.Call(ctx, rpc.SendEmail, req, nil); err != nil {
				s.logger.Printf("email reminder for %s: %v", t.ID, err)
			}
		}
	}
	return fired
}

// Run checks on every interval until ctx ends
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	s.Check(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Check(ctx)
		}
	}
}

func reminderBody(t model.Task, dueIn time.Duration) string {
	when := "is overdue"
	if dueIn > 0 {
		when = fmt.Sprintf("is due in %s", dueIn.Round(time.Minute))
	}
	return fmt.Sprintf("%q %s (due %s).", t.Title, when, t.DueDate.Local().Format("Mon Jan 2 15:04"))
}
