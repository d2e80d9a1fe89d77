package view

import (
	"testing"
	"time"

	"github.com/dori/taskdeck/internal/model"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2024, 5, 15, 14, 0, 0, 0, time.UTC) // a Wednesday

func task(id string, fields map[string]any) model.Task {
	t := model.Normalize(fields)
	t.ID = id
	return t
}

func doneOn(id string, at time.Time) model.Task {
	t := task(id, map[string]any{"title": id, "status": "done"})
	t.Activity = []model.Activity{{Action: model.MovedAction(model.StatusDone), Timestamp: at}}
	t.UpdatedAt = at
	return t
}

func ids(tasks []model.Task) []string {
	out := make([]string, len(tasks))
	for i, t := range tasks {
		out[i] = t.ID
	}
	return out
}

func TestFilterTasks(t *testing.T) {
	tasks := []model.Task{
		task("1", map[string]any{"title": "Write REPORT", "category": "Work"}),
		task("2", map[string]any{"title": "Groceries", "description": "milk for the report party", "category": "Personal"}),
		task("3", map[string]any{"title": "Gym", "category": "Personal", "tags": []any{"Reporting"}}),
		task("4", map[string]any{"title": "Taxes", "category": "Work", "labels": []any{"lbl-7"}}),
		task("5", map[string]any{"title": "Nothing here", "category": "Work"}),
	}
	labelName := func(id string) string {
		if id == "lbl-7" {
			return "Quarterly report"
		}
		return id
	}

	got := FilterTasks(tasks, Filter{Search: "report"}, labelName)
	require.Equal(t, []string{"1", "2", "3", "4"}, ids(got))

	got = FilterTasks(tasks, Filter{Search: "REPORT", Category: "Personal"}, labelName)
	require.Equal(t, []string{"2", "3"}, ids(got))

	got = FilterTasks(tasks, Filter{Category: "Work"}, labelName)
	require.Equal(t, []string{"1", "4", "5"}, ids(got))

	got = FilterTasks(tasks, Filter{Search: "lbl-7"}, nil)
	require.Equal(t, []string{"4"}, ids(got))

	got = FilterTasks(tasks, Filter{Search: "personal"}, labelName)
	require.Equal(t, []string{"2", "3"}, ids(got))

	require.Len(t, FilterTasks(tasks, Filter{Search: "  "}, labelName), 5)
}

func TestPriorityOrderWithinColumns(t *testing.T) {
	tasks := []model.Task{
		task("a", map[string]any{"title": "a", "priority": "low"}),
		task("b", map[string]any{"title": "b", "priority": "urgent"}),
		task("c", map[string]any{"title": "c", "priority": "critical"}),
		task("d", map[string]any{"title": "d", "priority": "medium"}),
		task("e", map[string]any{"title": "e", "priority": "high"}),
		task("f", map[string]any{"title": "f", "priority": "critical"}),
		task("g", map[string]any{"title": "g", "priority": "low", "status": "done"}),
	}

	p := Project(tasks, Options{Now: now})
	require.Equal(t, model.StatusTodo, p.Groups[0].Status)

	var order []string
	for _, g := range p.Groups {
		for i := 1; i < len(g.Cards); i++ {
			require.LessOrEqual(t, g.Cards[i-1].Task.Priority.Rank(), g.Cards[i].Task.Priority.Rank())
		}
		if g.Status == model.StatusTodo {
			for _, c := range g.Cards {
				order = append(order, c.Task.ID)
			}
		}
	}
	// ties keep insertion order
	require.Equal(t, []string{"c", "f", "e", "d", "a", "b"}, order)
}

func TestStatusOrder(t *testing.T) {
	custom := []model.Status{model.StatusDone, "bogus", model.StatusTodo, model.StatusDone}
	require.Equal(t, []model.Status{
		model.StatusDone,
		model.StatusTodo,
		model.StatusInProgress,
		model.StatusReview,
		model.StatusBlocked,
		model.StatusCancelled,
	}, StatusOrder(custom))

	p := Project(nil, Options{Now: now, StatusOrder: custom, Mode: ModeList})
	require.Equal(t, ModeList, p.Mode)
	require.Equal(t, model.StatusDone, p.Groups[0].Status)
	require.Len(t, p.Groups, len(model.Statuses()))
}

func TestCategories(t *testing.T) {
	tasks := []model.Task{
		task("1", map[string]any{"title": "x", "category": "Work"}),
		task("2", map[string]any{"title": "x", "category": "Home"}),
		task("3", map[string]any{"title": "x", "category": "Admin"}),
	}
	require.Equal(t, []string{"Work", "Admin", "Home"}, Categories(tasks, []string{"Work", "Gone"}))
}

func TestStreak(t *testing.T) {
	d := now
	tasks := []model.Task{
		doneOn("d0", d.Add(-time.Hour)),
		doneOn("d1", d.AddDate(0, 0, -1)),
		doneOn("d2", d.AddDate(0, 0, -2)),
		doneOn("d2b", d.AddDate(0, 0, -2).Add(time.Hour)),
		doneOn("d4", d.AddDate(0, 0, -4)),
	}
	require.Equal(t, 3, Streak(tasks, now))

	// nothing today means no streak
	require.Equal(t, 0, Streak(tasks[1:], now))
}

func TestStreakCappedAtLookback(t *testing.T) {
	var tasks []model.Task
	for i := 0; i < 40; i++ {
		tasks = append(tasks, doneOn("t", now.AddDate(0, 0, -i)))
	}
	require.Equal(t, StreakLookback, Streak(tasks, now))
}

func TestComputeStats(t *testing.T) {
	today := now.Add(2 * time.Hour)
	tomorrow := now.AddDate(0, 0, 1)
	yesterday := now.AddDate(0, 0, -1)

	tasks := []model.Task{
		task("due-today", map[string]any{"title": "x", "dueDate": today, "priority": "high"}),
		task("upcoming", map[string]any{"title": "x", "dueDate": tomorrow, "category": "Home"}),
		task("overdue", map[string]any{"title": "x", "dueDate": yesterday, "status": "in-progress"}),
		doneOn("done-mon", time.Date(2024, 5, 13, 10, 0, 0, 0, time.UTC)),
		doneOn("done-wed", now.Add(-time.Hour)),
		doneOn("done-wed2", now.AddDate(0, 0, -7)),
	}
	tasks[3].Priority = model.PriorityCritical
	tasks = append(tasks, task("due-today-done", map[string]any{"title": "x", "dueDate": today, "status": "done"}))

	s := ComputeStats(tasks, now)
	require.Equal(t, 7, s.Total)
	require.Equal(t, 4, s.Completed)
	require.Equal(t, 2, s.ByStatus[model.StatusTodo])
	require.Equal(t, 1, s.ByStatus[model.StatusInProgress])
	require.Equal(t, 1, s.ByCategory["Home"])
	require.Equal(t, 1, s.DueToday)
	require.Equal(t, 1, s.Upcoming)
	require.Equal(t, 1, s.Overdue)

	// one of two high/critical tasks is done
	require.Equal(t, 50, s.FocusScore)

	require.True(t, s.HasBestDay)
	require.Equal(t, time.Wednesday, s.BestDay)

	require.Len(t, s.Weekly, 7)
	require.Equal(t, time.Date(2024, 5, 9, 0, 0, 0, 0, time.UTC), s.Weekly[0].Date)
	require.Equal(t, 1, s.Weekly[4].Count) // Monday
	require.Equal(t, 1, s.Weekly[6].Count) // today
	require.Equal(t, 1, s.Streak)
}

func TestBestDayTieGoesToEarliestWeekday(t *testing.T) {
	tasks := []model.Task{
		doneOn("fri", time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)),
		doneOn("tue", time.Date(2024, 5, 14, 9, 0, 0, 0, time.UTC)),
	}
	s := ComputeStats(tasks, now)
	require.Equal(t, time.Tuesday, s.BestDay)
}

func TestProjectCards(t *testing.T) {
	tk := task("1", map[string]any{
		"title":    "x",
		"dueDate":  now.Add(-time.Hour),
		"labels":   []any{"l1"},
		"subtasks": []any{map[string]any{"text": "a", "completed": true}, map[string]any{"text": "b"}},
	})
	p := Project([]model.Task{tk}, Options{
		Now:       now,
		LabelName: func(string) string { return "Urgent" },
		Running:   func(id string) bool { return id == "1" },
	})

	card := p.Groups[0].Cards[0]
	require.True(t, card.Overdue)
	require.True(t, card.DueToday)
	require.True(t, card.Running)
	require.Equal(t, []string{"Urgent"}, card.Labels)
	require.Equal(t, 1, card.SubtasksDone)
	require.Equal(t, 2, card.SubtasksTotal)
	require.Equal(t, 1, p.Visible)
	require.NotEmpty(t, p.Insights)
}

func TestInsightsEmpty(t *testing.T) {
	require.Equal(t, []string{"Add a few tasks to see insights here."}, Insights(ComputeStats(nil, now)))
}
