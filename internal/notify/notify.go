// Package notify surfaces messages to the user: desktop notifications via
// notify-send and the in-app status line.
package notify

import (
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// Urgency levels for notifications
type Urgency int

const (
	UrgencyLow Urgency = iota
	UrgencyNormal
	UrgencyCritical
)

var urgencyNames = map[Urgency]string{
	UrgencyLow:      "low",
	UrgencyNormal:   "normal",
	UrgencyCritical: "critical",
}

// Notification represents a desktop notification
type Notification struct {
	Title   string
	Body    string
	Urgency Urgency
	Timeout time.Duration
	Icon    string
}

// Notifier sends desktop notifications. A disabled notifier drops them.
type Notifier struct {
	enabled bool
	run     func(name string, args ...string) error
}

func NewNotifier(enabled bool) *Notifier {
	return &Notifier{
		enabled: enabled,
		run: func(name string, args ...string) error {
			return exec.Command(name, args...).Run()
		},
	}
}

func (n *Notifier) SetEnabled(enabled bool) {
	n.enabled = enabled
}

func (n *Notifier) Enabled() bool {
	return n.enabled
}

// Args builds the notify-send command line for a notification
func Args(nt Notification) []string {
	var args []string
	if name, ok := urgencyNames[nt.Urgency]; ok {
		args = append(args, "-u", name)
	}
	if nt.Timeout > 0 {
		args = append(args, "-t", strconv.FormatInt(nt.Timeout.Milliseconds(), 10))
	}
	if nt.Icon != "" {
		args = append(args, "-i", nt.Icon)
	}
	return append(args, "-a", "taskdeck", nt.Title, nt.Body)
}

// Send shows nt on the desktop
func (n *Notifier) Send(nt Notification) error {
	if !n.enabled {
		return nil
	}
	return n.run("notify-send", Args(nt)...)
}

// SendSimple shows a title and body with default urgency
func (n *Notifier) SendSimple(title, body string) error {
	return n.Send(Notification{Title: title, Body: body, Urgency: UrgencyNormal, Timeout: 5 * time.Second})
}

// SendTimeLogged reports a finished timer session
func (n *Notifier) SendTimeLogged(taskTitle string, minutes int) error {
	return n.Send(Notification{
		Title:   "Time logged",
		Body:    fmt.Sprintf("%d min on %s", minutes, taskTitle),
		Urgency: UrgencyLow,
		Timeout: 5 * time.Second,
		Icon:    "alarm-symbolic",
	})
}

// SendDueReminder warns that a task is due within dueIn, or overdue when
// dueIn is not positive
func (n *Notifier) SendDueReminder(taskTitle string, dueIn time.Duration) error {
	nt := Notification{
		Title:   taskTitle,
		Urgency: UrgencyNormal,
		Timeout: 15 * time.Second,
		Icon:    "emblem-important-symbolic",
	}
	switch {
	case dueIn <= 0:
		nt.Body = "Task is now overdue!"
		nt.Urgency = UrgencyCritical
	case dueIn < time.Minute:
		nt.Body = "Due in less than a minute"
	default:
		nt.Body = "Due in " + strings.TrimSuffix(dueIn.Round(time.Minute).String(), "0s")
	}
	return n.Send(nt)
}
