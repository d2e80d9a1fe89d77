package store

// SampleTasks returns the tasks seeded into an empty collection on first load
func SampleTasks() []map[string]any {
	return []map[string]any{
		{
			"title":       "Welcome to taskdeck",
			"description": "Tasks live in columns by status. Move this one along when you have read it.",
			"priority":    "high",
			"category":    "Work",
			"tags":        []any{"getting-started"},
			"subtasks": []any{
				map[string]any{"id": "welcome-1", "text": "Open a task", "completed": false},
				map[string]any{"id": "welcome-2", "text": "Move it to another column", "completed": false},
			},
		},
		{
			"title":       "Plan the week",
			"description": "List the three things that matter most this week.",
			"priority":    "medium",
			"status":      "in-progress",
			"category":    "Personal",
			"estimate":    1,
		},
		{
			"title":       "Try the timer",
			"description": "Start the timer on a task and stop it to log time.",
			"priority":    "low",
			"category":    "Work",
			"type":        "Tutorial",
		},
		{
			"title":    "Fix the login redirect",
			"priority": "critical",
			"status":   "review",
			"category": "Work",
			"type":     "Bug",
			"tags":     []any{"auth"},
		},
	}
}
