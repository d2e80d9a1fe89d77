// Package views renders view projections as terminal text. Renderers are
// pure functions of their inputs.
package views

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dori/taskdeck/internal/model"
	"github.com/dori/taskdeck/internal/ui/theme"
	"github.com/dori/taskdeck/internal/view"
)

// Selection is the renderer's view of the controller cursor
type Selection struct {
	Col, Row int
	// Dragging is the id of the grabbed task, if any
	Dragging string
}

func (s Selection) at(col, row int) bool {
	return s.Col == col && s.Row == row
}

// priorityMark returns a colored one-character priority indicator
func priorityMark(p model.Priority) string {
	t := theme.Current.Theme
	style := lipgloss.NewStyle().Foreground(t.PriorityColor(p))
	switch p {
	case model.PriorityCritical:
		return style.Render("!")
	case model.PriorityHigh:
		return style.Render("▲")
	case model.PriorityMedium:
		return style.Render("●")
	case model.PriorityLow:
		return style.Render("▽")
	default:
		return style.Render("·")
	}
}

// cardLine renders the one-line summary shared by board and list.
// dragged marks the grabbed card.
func cardLine(c view.Card, width int, dragged bool) string {
	styles := theme.Current.Styles

	var suffix []string
	if dragged {
		suffix = append(suffix, "⇄")
	}
	if c.SubtasksTotal > 0 {
		suffix = append(suffix, fmt.Sprintf("(%d/%d)", c.SubtasksDone, c.SubtasksTotal))
	}
	if c.Running {
		suffix = append(suffix, "⏱")
	}
	if c.Overdue {
		suffix = append(suffix, styles.Overdue.Render("overdue"))
	} else if c.DueToday {
		suffix = append(suffix, styles.Tag.Render("today"))
	}
	tail := strings.Join(suffix, " ")

	titleWidth := width - 2 - lipgloss.Width(tail)
	if tail != "" {
		titleWidth--
	}
	line := priorityMark(c.Task.Priority) + " " + truncate(c.Task.Title, titleWidth)
	if tail != "" {
		line += " " + tail
	}
	return line
}

func truncate(s string, n int) string {
	if n < 4 {
		n = 4
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func formatDue(t *time.Time, now time.Time) string {
	if t == nil {
		return ""
	}
	y1, m1, d1 := t.Date()
	y2, m2, d2 := now.Date()
	if y1 == y2 && m1 == m2 && d1 == d2 {
		return "today"
	}
	tomorrow := now.AddDate(0, 0, 1)
	if t.Year() == tomorrow.Year() && t.YearDay() == tomorrow.YearDay() {
		return "tomorrow"
	}
	if t.Year() == now.Year() {
		return t.Format("Mon, Jan 2")
	}
	return t.Format("Jan 2, 2006")
}

func formatHours(h float64) string {
	d := time.Duration(h * float64(time.Hour)).Round(time.Minute)
	return fmt.Sprintf("%dh %02dm", int(d.Hours()), int(d.Minutes())%60)
}
