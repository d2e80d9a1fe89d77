package view

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/dori/taskdeck/internal/model"
)

// StreakLookback is how many days back a completion streak is counted
const StreakLookback = 30

// DayCount is one bar of the weekly completion chart
type DayCount struct {
	Date  time.Time
	Count int
}

// Stats are aggregate numbers over the whole task list
type Stats struct {
	Total      int
	Completed  int
	ByStatus   map[model.Status]int
	ByCategory map[string]int
	DueToday   int
	Upcoming   int
	Overdue    int

	// Weekly holds the trailing seven days, oldest first, ending today
	Weekly []DayCount
	Streak int

	// FocusScore is the percentage of high and critical tasks completed
	FocusScore   int
	FocusDone    int
	FocusTotal   int
	BestDay      time.Weekday
	HasBestDay   bool
	HoursSpent   float64
	HoursPlanned float64
}

// ComputeStats derives Stats as of now. Calendar days are taken in now's
// location.
func ComputeStats(tasks []model.Task, now time.Time) Stats {
	s := Stats{
		Total:      len(tasks),
		ByStatus:   make(map[model.Status]int),
		ByCategory: make(map[string]int),
	}

	today := startOfDay(now)
	tomorrow := today.AddDate(0, 0, 1)

	var weekdays [7]int
	for i := range tasks {
		t := &tasks[i]
		s.ByStatus[t.Status]++
		s.ByCategory[t.Category]++
		s.HoursSpent += t.TimeSpent
		s.HoursPlanned += t.Estimate

		if t.Priority == model.PriorityHigh || t.Priority == model.PriorityCritical {
			s.FocusTotal++
			if t.IsDone() {
				s.FocusDone++
			}
		}

		if t.IsDone() {
			s.Completed++
			if at, ok := t.CompletedAt(); ok {
				weekdays[at.In(now.Location()).Weekday()]++
			}
			continue
		}

		if t.DueDate != nil {
			due := t.DueDate.In(now.Location())
			switch {
			case t.IsDueOn(now):
				s.DueToday++
			case !due.Before(tomorrow):
				s.Upcoming++
			}
		}
		if t.IsOverdue(now) {
			s.Overdue++
		}
	}

	if s.FocusTotal > 0 {
		s.FocusScore = int(math.Round(float64(s.FocusDone) * 100 / float64(s.FocusTotal)))
	}

	best := 0
	for d, n := range weekdays {
		if n > best {
			best = n
			s.BestDay = time.Weekday(d)
			s.HasBestDay = true
		}
	}

	s.Weekly = Weekly(tasks, now)
	s.Streak = Streak(tasks, now)
	return s
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// completionDays counts completions per calendar day in loc
func completionDays(tasks []model.Task, loc *time.Location) map[time.Time]int {
	days := make(map[time.Time]int)
	for i := range tasks {
		if at, ok := tasks[i].CompletedAt(); ok {
			days[startOfDay(at.In(loc))]++
		}
	}
	return days
}

// Weekly returns completions for each of the seven days ending today
func Weekly(tasks []model.Task, now time.Time) []DayCount {
	days := completionDays(tasks, now.Location())
	today := startOfDay(now)

	out := make([]DayCount, 7)
	for i := 0; i < 7; i++ {
		day := today.AddDate(0, 0, i-6)
		out[i] = DayCount{Date: day, Count: days[day]}
	}
	return out
}

// Streak counts consecutive days with at least one completion, ending
// today, looking back at most StreakLookback days
func Streak(tasks []model.Task, now time.Time) int {
	days := completionDays(tasks, now.Location())
	today := startOfDay(now)

	streak := 0
	for i := 0; i < StreakLookback; i++ {
		if days[today.AddDate(0, 0, -i)] == 0 {
			break
		}
		streak++
	}
	return streak
}

// Insights turns stats into short sentences for the stats panel
func Insights(s Stats) []string {
	if s.Total == 0 {
		return []string{"Add a few tasks to see insights here."}
	}

	var out []string
	if s.Overdue > 0 {
		out = append(out, fmt.Sprintf("%s overdue. Consider rescheduling or breaking %s down.",
			plural(s.Overdue, "task is", "tasks are"), pronoun(s.Overdue)))
	}
	if s.DueToday > 0 {
		out = append(out, fmt.Sprintf("%s due today.", plural(s.DueToday, "task", "tasks")))
	}
	if s.Streak > 1 {
		out = append(out, fmt.Sprintf("You are on a %d-day completion streak.", s.Streak))
	}
	if s.HasBestDay {
		out = append(out, fmt.Sprintf("You finish the most work on %ss.", s.BestDay))
	}
	if s.FocusTotal > 0 {
		out = append(out, fmt.Sprintf("Focus score %d%%: %d of %d high-priority tasks done.",
			s.FocusScore, s.FocusDone, s.FocusTotal))
	}
	if status, n := bottleneck(s.ByStatus); n >= 3 {
		out = append(out, fmt.Sprintf("Most open work is in %s (%d tasks).", status.Label(), n))
	}
	if s.HoursPlanned > 0 && s.HoursSpent > s.HoursPlanned {
		out = append(out, fmt.Sprintf("Logged time is %.0f%% over estimates.",
			(s.HoursSpent/s.HoursPlanned-1)*100))
	}
	if len(out) == 0 {
		out = append(out, "All caught up.")
	}
	return out
}

// bottleneck returns the open status holding the most tasks
func bottleneck(byStatus map[model.Status]int) (model.Status, int) {
	open := []model.Status{model.StatusTodo, model.StatusInProgress, model.StatusReview, model.StatusBlocked}
	sort.SliceStable(open, func(i, j int) bool { return byStatus[open[i]] > byStatus[open[j]] })
	return open[0], byStatus[open[0]]
}

func plural(n int, one, many string) string {
	if n == 1 {
		return "1 " + one
	}
	return fmt.Sprintf("%d %s", n, many)
}

func pronoun(n int) string {
	if n == 1 {
		return "it"
	}
	return "them"
}
