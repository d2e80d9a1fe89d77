package views

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dori/taskdeck/internal/ui/theme"
	"github.com/dori/taskdeck/internal/view"
)

const minColumnWidth = 24

// Board renders one column per status. Columns that don't fit are paged
// so the selected one stays visible.
func Board(p view.Projection, sel Selection, width, height int) string {
	if len(p.Groups) == 0 {
		return ""
	}
	t := theme.Current.Theme
	styles := theme.Current.Styles

	visible := width / minColumnWidth
	if visible < 1 {
		visible = 1
	}
	if visible > len(p.Groups) {
		visible = len(p.Groups)
	}
	start := (sel.Col / visible) * visible
	end := start + visible
	if end > len(p.Groups) {
		end = len(p.Groups)
		start = max(end-visible, 0)
	}
	colWidth := width/visible - 2
	rows := height - 3
	if rows < 1 {
		rows = 1
	}

	var cols []string
	for i := start; i < end; i++ {
		g := p.Groups[i]
		active := i == sel.Col

		header := lipgloss.NewStyle().
			Bold(true).
			Foreground(t.StatusColor(g.Status)).
			Width(colWidth).
			Align(lipgloss.Center).
			Render(fmt.Sprintf("%s (%d)", g.Title, len(g.Cards)))

		// Keep the selected row on screen
		offset := 0
		if active && sel.Row >= rows {
			offset = sel.Row - rows + 1
		}

		var items []string
		for j := offset; j < len(g.Cards) && j < offset+rows; j++ {
			c := g.Cards[j]
			style := styles.Card
			switch {
			case c.Task.ID == sel.Dragging:
				style = styles.CardDragged
			case active && sel.at(i, j):
				style = styles.CardSelected
			case c.Task.IsDone():
				style = styles.CardDone
			}
			items = append(items, style.Width(colWidth).Render(cardLine(c, colWidth, c.Task.ID == sel.Dragging)))
		}
		if hidden := len(g.Cards) - offset - rows; hidden > 0 {
			items = append(items, styles.Muted.Width(colWidth).Align(lipgloss.Center).Render(fmt.Sprintf("↓ %d more", hidden)))
		}

		content := strings.Join(items, "\n")
		if len(g.Cards) == 0 {
			content = styles.Muted.Italic(true).Render("(empty)")
		}

		box := styles.Column
		if active {
			box = styles.ColumnActive
		}
		cols = append(cols, box.Width(colWidth).Height(rows).Render(header+"\n"+content))
	}

	board := lipgloss.JoinHorizontal(lipgloss.Top, cols...)
	if visible < len(p.Groups) {
		board += "\n" + styles.Muted.Render(fmt.Sprintf("[%d-%d/%d]", start+1, end, len(p.Groups)))
	}
	return board
}
