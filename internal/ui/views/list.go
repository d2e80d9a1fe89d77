package views

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dori/taskdeck/internal/ui/theme"
	"github.com/dori/taskdeck/internal/view"
)

// List renders every group as a section of rows with due date and
// category columns
func List(p view.Projection, sel Selection, now time.Time, width, height int) string {
	t := theme.Current.Theme
	styles := theme.Current.Styles

	metaWidth := 28
	titleWidth := width - metaWidth - 2
	if titleWidth < 20 {
		titleWidth = 20
	}

	var lines []string
	selectedLine := 0
	for i, g := range p.Groups {
		if len(g.Cards) == 0 {
			continue
		}
		header := lipgloss.NewStyle().Bold(true).Foreground(t.StatusColor(g.Status)).
			Render(fmt.Sprintf("%s (%d)", g.Title, len(g.Cards)))
		lines = append(lines, header)

		for j, c := range g.Cards {
			meta := fmt.Sprintf("%-12s %s", truncate(c.Task.Category, 12), formatDue(c.Task.DueDate, now))
			if len(c.Labels) > 0 {
				meta += " " + styles.Tag.Render(strings.Join(c.Labels, ","))
			}
			row := lipgloss.NewStyle().Width(titleWidth).Render(cardLine(c, titleWidth, c.Task.ID == sel.Dragging)) + styles.Muted.Render(meta)

			style := styles.Card
			switch {
			case c.Task.ID == sel.Dragging:
				style = styles.CardDragged
			case sel.at(i, j):
				style = styles.CardSelected
				selectedLine = len(lines)
			case c.Task.IsDone():
				style = styles.CardDone
			}
			lines = append(lines, style.Render(row))
		}
		lines = append(lines, "")
	}

	if len(lines) == 0 {
		return styles.Muted.Italic(true).Render("No tasks match.")
	}

	// Scroll so the selected row is visible
	if height > 0 && len(lines) > height {
		start := 0
		if selectedLine >= height {
			start = selectedLine - height + 1
		}
		end := min(start+height, len(lines))
		lines = lines[start:end]
	}
	return strings.Join(lines, "\n")
}
