package theme

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/dori/taskdeck/internal/model"
)

// Theme defines the color scheme for the UI
type Theme struct {
	Name string

	// Base colors
	Background lipgloss.Color
	Foreground lipgloss.Color
	Subtle     lipgloss.Color
	Highlight  lipgloss.Color
	Border     lipgloss.Color

	// Semantic colors
	Primary   lipgloss.Color
	Secondary lipgloss.Color
	Success   lipgloss.Color
	Warning   lipgloss.Color
	Error     lipgloss.Color
	Info      lipgloss.Color

	// Priority colors
	PriorityLow      lipgloss.Color
	PriorityMedium   lipgloss.Color
	PriorityHigh     lipgloss.Color
	PriorityCritical lipgloss.Color

	// Status colors
	StatusTodo       lipgloss.Color
	StatusInProgress lipgloss.Color
	StatusReview     lipgloss.Color
	StatusDone       lipgloss.Color
	StatusBlocked    lipgloss.Color
	StatusCancelled  lipgloss.Color
}

// PriorityColor returns the color for a priority
func (t Theme) PriorityColor(p model.Priority) lipgloss.Color {
	switch p {
	case model.PriorityCritical:
		return t.PriorityCritical
	case model.PriorityHigh:
		return t.PriorityHigh
	case model.PriorityMedium:
		return t.PriorityMedium
	case model.PriorityLow:
		return t.PriorityLow
	default:
		return t.Subtle
	}
}

// StatusColor returns the column color for a status
func (t Theme) StatusColor(s model.Status) lipgloss.Color {
	switch s {
	case model.StatusTodo:
		return t.StatusTodo
	case model.StatusInProgress:
		return t.StatusInProgress
	case model.StatusReview:
		return t.StatusReview
	case model.StatusDone:
		return t.StatusDone
	case model.StatusBlocked:
		return t.StatusBlocked
	default:
		return t.StatusCancelled
	}
}

// Styles holds pre-computed lipgloss styles based on theme
type Styles struct {
	Header lipgloss.Style

	// Card styles
	Card         lipgloss.Style
	CardSelected lipgloss.Style
	CardDragged  lipgloss.Style
	CardDone     lipgloss.Style
	Overdue      lipgloss.Style
	Tag          lipgloss.Style
	Muted        lipgloss.Style

	// Panel styles
	Column       lipgloss.Style
	ColumnActive lipgloss.Style
	Panel        lipgloss.Style
	PanelTitle   lipgloss.Style
	Input        lipgloss.Style

	// Help styles
	HelpKey       lipgloss.Style
	HelpDesc      lipgloss.Style
	HelpSeparator lipgloss.Style

	// Status line
	StatusInfo  lipgloss.Style
	StatusError lipgloss.Style
}

// NewStyles creates styles from a theme
func NewStyles(t Theme) Styles {
	return Styles{
		Header: lipgloss.NewStyle().
			Foreground(t.Primary).
			Bold(true).
			Padding(0, 1),

		Card: lipgloss.NewStyle().
			Foreground(t.Foreground).
			Padding(0, 1),

		CardSelected: lipgloss.NewStyle().
			Foreground(t.Foreground).
			Background(t.Highlight).
			Padding(0, 1),

		CardDragged: lipgloss.NewStyle().
			Foreground(t.Background).
			Background(t.Warning).
			Bold(true).
			Padding(0, 1),

		CardDone: lipgloss.NewStyle().
			Foreground(t.Subtle).
			Strikethrough(true).
			Padding(0, 1),

		Overdue: lipgloss.NewStyle().
			Foreground(t.Error).
			Bold(true),

		Tag: lipgloss.NewStyle().
			Foreground(t.Info),

		Muted: lipgloss.NewStyle().
			Foreground(t.Subtle),

		Column: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(t.Border),

		ColumnActive: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(t.Primary),

		Panel: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(t.Border).
			Padding(1, 2),

		PanelTitle: lipgloss.NewStyle().
			Foreground(t.Primary).
			Bold(true),

		Input: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(t.Primary).
			Padding(0, 1),

		HelpKey: lipgloss.NewStyle().
			Foreground(t.Primary).
			Bold(true),

		HelpDesc: lipgloss.NewStyle().
			Foreground(t.Subtle),

		HelpSeparator: lipgloss.NewStyle().
			Foreground(t.Border),

		StatusInfo: lipgloss.NewStyle().
			Foreground(t.Info),

		StatusError: lipgloss.NewStyle().
			Foreground(t.Error).
			Bold(true),
	}
}

// Current holds the active theme and styles
var Current = struct {
	Theme  Theme
	Styles Styles
}{
	Theme:  Nord,
	Styles: NewStyles(Nord),
}
