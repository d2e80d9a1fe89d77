package views

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dori/taskdeck/internal/ui/theme"
	"github.com/dori/taskdeck/internal/view"
)

// Stats renders the dashboard: summary cards, the weekly chart, category
// breakdown and insights
func Stats(p view.Projection, width int) string {
	t := theme.Current.Theme
	s := p.Stats

	var sections []string
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(t.Primary)
	sections = append(sections, titleStyle.Render("Statistics"), "")

	cardStyle := lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(t.Border).
		Padding(0, 2).
		Width(18)
	valueStyle := lipgloss.NewStyle().Bold(true).Foreground(t.Primary)
	labelStyle := lipgloss.NewStyle().Foreground(t.Subtle)

	card := func(value, label string) string {
		return cardStyle.Render(valueStyle.Render(value) + "\n" + labelStyle.Render(label))
	}
	bestDay := "-"
	if s.HasBestDay {
		bestDay = s.BestDay.String()
	}
	row1 := lipgloss.JoinHorizontal(lipgloss.Top,
		card(fmt.Sprintf("%d/%d", s.Completed, s.Total), "Completed"),
		card(fmt.Sprintf("%d days", s.Streak), "Streak"),
		card(fmt.Sprintf("%d%%", s.FocusScore), "Focus score"),
		card(bestDay, "Best day"),
	)
	row2 := lipgloss.JoinHorizontal(lipgloss.Top,
		card(fmt.Sprintf("%d", s.DueToday), "Due today"),
		card(fmt.Sprintf("%d", s.Upcoming), "Upcoming"),
		card(fmt.Sprintf("%d", s.Overdue), "Overdue"),
		card(formatHours(s.HoursSpent), "Time spent"),
	)
	sections = append(sections, row1, row2, "", weeklyChart(s.Weekly))

	if len(s.ByCategory) > 0 {
		sections = append(sections, "", categoryBreakdown(s.ByCategory, width))
	}
	if len(p.Insights) > 0 {
		header := lipgloss.NewStyle().Bold(true).Foreground(t.Secondary).Render("Insights")
		lines := []string{"", header}
		for _, in := range p.Insights {
			lines = append(lines, "• "+in)
		}
		sections = append(sections, lines...)
	}
	return strings.Join(sections, "\n")
}

// weeklyChart renders completions over the trailing seven days
func weeklyChart(days []view.DayCount) string {
	t := theme.Current.Theme
	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(t.Secondary)
	lines := []string{headerStyle.Render("Completed (last 7 days)")}

	maxCount := 1
	for _, d := range days {
		if d.Count > maxCount {
			maxCount = d.Count
		}
	}

	const chartHeight = 5
	const barWidth = 4
	for row := chartHeight; row >= 1; row-- {
		var b strings.Builder
		threshold := float64(row) / chartHeight
		for i, d := range days {
			ratio := float64(d.Count) / float64(maxCount)
			switch {
			case d.Count > 0 && ratio >= threshold:
				b.WriteString(lipgloss.NewStyle().Foreground(t.Success).Render(strings.Repeat("█", barWidth)))
			case d.Count > 0 && ratio >= threshold-0.2:
				b.WriteString(lipgloss.NewStyle().Foreground(t.Info).Render(strings.Repeat("▄", barWidth)))
			default:
				b.WriteString(strings.Repeat(" ", barWidth))
			}
			if i < len(days)-1 {
				b.WriteString(" ")
			}
		}
		lines = append(lines, b.String())
	}

	cell := lipgloss.NewStyle().Width(barWidth).Align(lipgloss.Center)
	var labels, counts []string
	for _, d := range days {
		labels = append(labels, cell.Foreground(t.Subtle).Render(d.Date.Weekday().String()[:3]))
		counts = append(counts, cell.Foreground(t.Foreground).Render(fmt.Sprintf("%d", d.Count)))
	}
	lines = append(lines, strings.Join(labels, " "), strings.Join(counts, " "))
	return strings.Join(lines, "\n")
}

func categoryBreakdown(byCategory map[string]int, width int) string {
	t := theme.Current.Theme
	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(t.Secondary)
	lines := []string{headerStyle.Render("By category")}

	names := make([]string, 0, len(byCategory))
	total := 0
	for name, n := range byCategory {
		names = append(names, name)
		total += n
	}
	sort.Slice(names, func(i, j int) bool {
		if byCategory[names[i]] != byCategory[names[j]] {
			return byCategory[names[i]] > byCategory[names[j]]
		}
		return names[i] < names[j]
	})

	barMax := min(max(width-30, 10), 40)
	for _, name := range names {
		n := byCategory[name]
		bar := strings.Repeat("▪", max(n*barMax/total, 1))
		lines = append(lines, fmt.Sprintf("%-16s %s %d",
			truncate(name, 16),
			lipgloss.NewStyle().Foreground(t.Info).Render(bar),
			n))
	}
	return strings.Join(lines, "\n")
}
