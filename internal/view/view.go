// Package view derives everything the screen shows from the task list and
// the active UI state. Nothing here mutates tasks or keeps state between
// calls.
package view

import (
	"sort"
	"strings"
	"time"

	"github.com/dori/taskdeck/internal/model"
)

// Mode selects the board layout
type Mode string

const (
	ModeBoard Mode = "board"
	ModeList  Mode = "list"
)

// Filter narrows the visible tasks
type Filter struct {
	Search   string
	Category string
}

// Active reports whether the filter hides anything
func (f Filter) Active() bool {
	return strings.TrimSpace(f.Search) != "" || f.Category != ""
}

// Options is the UI state a projection is computed from
type Options struct {
	Filter        Filter
	Mode          Mode
	StatusOrder   []model.Status
	CategoryOrder []string
	Now           time.Time

	// LabelName resolves a label id to its palette name; nil leaves ids as-is
	LabelName func(id string) string
	// Running reports whether a timer session is open for a task
	Running func(id string) bool
}

// Card is one task as rendered on the board or in a list row
type Card struct {
	Task          model.Task
	Labels        []string // Resolved label names
	Overdue       bool
	DueToday      bool
	Running       bool
	SubtasksDone  int
	SubtasksTotal int
}

// Group is a status column (board) or section (list)
type Group struct {
	Status model.Status
	Title  string
	Cards  []Card
}

// Projection is the complete view model for one render
type Projection struct {
	Mode       Mode
	Filter     Filter
	Groups     []Group
	Categories []string
	Total      int
	Visible    int
	Stats      Stats
	Insights   []string
}

// Project computes the projection of tasks under opts
func Project(tasks []model.Task, opts Options) Projection {
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}
	if opts.Mode == "" {
		opts.Mode = ModeBoard
	}
	labelName := opts.LabelName
	if labelName == nil {
		labelName = func(id string) string { return id }
	}

	visible := FilterTasks(tasks, opts.Filter, labelName)

	order := StatusOrder(opts.StatusOrder)
	byStatus := make(map[model.Status][]model.Task, len(order))
	for _, t := range visible {
		byStatus[t.Status] = append(byStatus[t.Status], t)
	}

	groups := make([]Group, 0, len(order))
	for _, status := range order {
		sorted := SortByPriority(byStatus[status])
		cards := make([]Card, 0, len(sorted))
		for _, t := range sorted {
			cards = append(cards, newCard(t, opts, labelName))
		}
		groups = append(groups, Group{Status: status, Title: status.Label(), Cards: cards})
	}

	stats := ComputeStats(tasks, opts.Now)
	return Projection{
		Mode:       opts.Mode,
		Filter:     opts.Filter,
		Groups:     groups,
		Categories: Categories(tasks, opts.CategoryOrder),
		Total:      len(tasks),
		Visible:    len(visible),
		Stats:      stats,
		Insights:   Insights(stats),
	}
}

func newCard(t model.Task, opts Options, labelName func(string) string) Card {
	done, total := t.SubtaskProgress()
	labels := make([]string, 0, len(t.Labels))
	for _, id := range t.Labels {
		labels = append(labels, labelName(id))
	}
	running := false
	if opts.Running != nil {
		running = opts.Running(t.ID)
	}
	return Card{
		Task:          t,
		Labels:        labels,
		Overdue:       t.IsOverdue(opts.Now),
		DueToday:      t.IsDueOn(opts.Now),
		Running:       running,
		SubtasksDone:  done,
		SubtasksTotal: total,
	}
}

// FilterTasks keeps tasks matching the search term (case-insensitive
// substring of title, description, category, tags or labels) and the
// category filter. Input order is preserved.
func FilterTasks(tasks []model.Task, f Filter, labelName func(id string) string) []model.Task {
	term := strings.ToLower(strings.TrimSpace(f.Search))
	out := make([]model.Task, 0, len(tasks))
	for _, t := range tasks {
		if f.Category != "" && t.Category != f.Category {
			continue
		}
		if term != "" && !matches(t, term, labelName) {
			continue
		}
		out = append(out, t)
	}
	return out
}

func matches(t model.Task, term string, labelName func(string) string) bool {
	contains := func(s string) bool {
		return strings.Contains(strings.ToLower(s), term)
	}
	if contains(t.Title) || contains(t.Description) || contains(t.Category) {
		return true
	}
	for _, tag := range t.Tags {
		if contains(tag) {
			return true
		}
	}
	for _, id := range t.Labels {
		if contains(id) {
			return true
		}
		if labelName != nil && contains(labelName(id)) {
			return true
		}
	}
	return false
}

// SortByPriority returns a copy ordered critical, high, medium, low, then
// unknown priorities. Equal ranks keep their input order.
func SortByPriority(tasks []model.Task) []model.Task {
	out := append([]model.Task(nil), tasks...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Priority.Rank() < out[j].Priority.Rank()
	})
	return out
}

// StatusOrder completes a user-defined column order: known statuses are
// kept in the given order without duplicates, and missing ones are
// appended in default order.
func StatusOrder(custom []model.Status) []model.Status {
	seen := make(map[model.Status]bool)
	out := make([]model.Status, 0, len(model.Statuses()))
	for _, s := range custom {
		if s.Valid() && !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	for _, s := range model.Statuses() {
		if !seen[s] {
			out = append(out, s)
		}
	}
	return out
}

// Categories lists the categories in use: those named in custom first (in
// that order, if present), then the rest alphabetically
func Categories(tasks []model.Task, custom []string) []string {
	present := make(map[string]bool)
	for _, t := range tasks {
		present[t.Category] = true
	}

	out := make([]string, 0, len(present))
	for _, c := range custom {
		if present[c] {
			out = append(out, c)
			delete(present, c)
		}
	}
	rest := make([]string, 0, len(present))
	for c := range present {
		rest = append(rest, c)
	}
	sort.Strings(rest)
	return append(out, rest...)
}
