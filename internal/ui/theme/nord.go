package theme

import "github.com/charmbracelet/lipgloss"

// Nord theme - Arctic, north-bluish color palette
// https://www.nordtheme.com/
var Nord = Theme{
	Name: "nord",

	// Polar Night
	Background: lipgloss.Color("#2E3440"),
	Foreground: lipgloss.Color("#ECEFF4"),
	Subtle:     lipgloss.Color("#4C566A"),
	Highlight:  lipgloss.Color("#3B4252"),
	Border:     lipgloss.Color("#4C566A"),

	// Frost
	Primary:   lipgloss.Color("#88C0D0"),
	Secondary: lipgloss.Color("#81A1C1"),
	Info:      lipgloss.Color("#5E81AC"),

	// Aurora
	Success: lipgloss.Color("#A3BE8C"),
	Warning: lipgloss.Color("#EBCB8B"),
	Error:   lipgloss.Color("#BF616A"),

	PriorityLow:      lipgloss.Color("#A3BE8C"),
	PriorityMedium:   lipgloss.Color("#EBCB8B"),
	PriorityHigh:     lipgloss.Color("#D08770"),
	PriorityCritical: lipgloss.Color("#BF616A"),

	StatusTodo:       lipgloss.Color("#5E81AC"),
	StatusInProgress: lipgloss.Color("#88C0D0"),
	StatusReview:     lipgloss.Color("#B48EAD"),
	StatusDone:       lipgloss.Color("#A3BE8C"),
	StatusBlocked:    lipgloss.Color("#BF616A"),
	StatusCancelled:  lipgloss.Color("#4C566A"),
}
