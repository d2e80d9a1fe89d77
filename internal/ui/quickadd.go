package ui

import (
	"strings"
	"time"

	"github.com/dori/taskdeck/internal/model"
)

// ParseQuickAdd turns a one-line task description into task fields.
//
//	Review PR @work !high due:tomorrow #Engineering
//
// @word adds a tag, !level sets the priority, due:<date> sets the due date
// and #word sets the category. Tokens that don't parse stay in the title.
func ParseQuickAdd(text string, now time.Time) map[string]any {
	fields := map[string]any{}
	var tags []string
	var titleParts []string

	for _, word := range strings.Fields(text) {
		switch {
		case strings.HasPrefix(word, "@") && len(word) > 1:
			tags = append(tags, strings.TrimPrefix(word, "@"))

		case strings.HasPrefix(word, "!") && len(word) > 1:
			if p, ok := parsePriority(strings.TrimPrefix(word, "!")); ok {
				fields["priority"] = string(p)
			} else {
				titleParts = append(titleParts, word)
			}

		case strings.HasPrefix(strings.ToLower(word), "due:"):
			if due := parseNaturalDate(word[len("due:"):], now); due != nil {
				fields["dueDate"] = *due
			} else {
				titleParts = append(titleParts, word)
			}

		case strings.HasPrefix(word, "#") && len(word) > 1:
			fields["category"] = strings.TrimPrefix(word, "#")

		default:
			titleParts = append(titleParts, word)
		}
	}

	fields["title"] = strings.Join(titleParts, " ")
	if len(tags) > 0 {
		fields["tags"] = tags
	}
	return fields
}

func parsePriority(s string) (model.Priority, bool) {
	switch strings.ToLower(s) {
	case "low", "l":
		return model.PriorityLow, true
	case "medium", "med", "m":
		return model.PriorityMedium, true
	case "high", "hi", "h":
		return model.PriorityHigh, true
	case "critical", "crit", "urgent", "c", "u":
		return model.PriorityCritical, true
	}
	return "", false
}

// parseNaturalDate parses natural language dates relative to now. Dates
// land at the end of the day.
func parseNaturalDate(s string, now time.Time) *time.Time {
	today := time.Date(now.Year(), now.Month(), now.Day(), 23, 59, 59, 0, now.Location())

	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "today":
		return &today
	case "tomorrow", "tom":
		t := today.AddDate(0, 0, 1)
		return &t
	case "nextweek", "next-week":
		t := today.AddDate(0, 0, 7)
		return &t
	}
	for day := time.Sunday; day <= time.Saturday; day++ {
		name := strings.ToLower(day.String())
		if s == name || s == name[:3] {
			return nextWeekday(today, day)
		}
	}

	formats := []string{
		"2006-01-02",
		"01/02/2006",
		"Jan 2",
		"Jan 2, 2006",
	}
	for _, format := range formats {
		t, err := time.ParseInLocation(format, s, now.Location())
		if err != nil {
			continue
		}
		year := t.Year()
		if year == 0 {
			year = now.Year()
		}
		t = time.Date(year, t.Month(), t.Day(), 23, 59, 59, 0, now.Location())
		return &t
	}
	return nil
}

// nextWeekday returns the next occurrence of day strictly after today
func nextWeekday(today time.Time, day time.Weekday) *time.Time {
	daysUntil := int(day - today.Weekday())
	if daysUntil <= 0 {
		daysUntil += 7
	}
	t := today.AddDate(0, 0, daysUntil)
	return &t
}
