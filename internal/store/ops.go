package store

import (
	"fmt"
	"strings"
	"time"

	"github.com/dori/taskdeck/internal/model"
)

// Fields the caller may never overwrite through Update
var protectedFields = map[string]bool{
	"id":        true,
	"createdAt": true,
	"updatedAt": true,
	"activity":  true,
}

// Add validates, normalizes and stores a new task, then persists it in
// the background. The returned task is the local copy.
func (s *Store) Add(fields map[string]any) (model.Task, error) {
	t, err := s.create(fields, "Created")
	if err != nil {
		s.notifier.Error(err.Error())
		return model.Task{}, err
	}
	s.emit()
	return t, nil
}

// Import adds every record with a title and returns how many were stored.
// Records without a title are skipped and logged.
func (s *Store) Import(records []map[string]any) int {
	n := 0
	for i, rec := range records {
		if _, err := s.create(rec, "Imported"); err != nil {
			s.logger.Printf("import: skipping record %d: %v", i+1, err)
			continue
		}
		n++
	}
	if n > 0 {
		s.emit()
	}
	return n
}

func (s *Store) create(fields map[string]any, action string) (model.Task, error) {
	title, _ := fields["title"].(string)
	if strings.TrimSpace(title) == "" {
		return model.Task{}, invalid("title", "Task title is required")
	}

	doc := make(map[string]any, len(fields))
	for k, v := range fields {
		if protectedFields[k] {
			continue
		}
		doc[k] = v
	}
	doc["title"] = strings.TrimSpace(title)

	t := model.Normalize(doc)
	at := s.stamp(time.Time{})
	t.ID = s.newID()
	t.CreatedAt = at
	t.UpdatedAt = at
	t.Activity = []model.Activity{{Action: action, Timestamp: at}}

	s.mu.Lock()
	s.tasks = append(s.tasks, t)
	s.mu.Unlock()

	s.queue.push(write{id: t.ID, doc: t.Document()})
	return t.Clone(), nil
}

// mutate runs fn on a copy of the task, stores the result with an advanced
// updatedAt and queues it for persistence
func (s *Store) mutate(id string, fn func(t *model.Task, at time.Time) error) (model.Task, error) {
	s.mu.Lock()
	i := s.indexLocked(id)
	if i < 0 {
		s.mu.Unlock()
		return model.Task{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	t := s.tasks[i].Clone()
	at := s.stamp(t.UpdatedAt)
	if err := fn(&t, at); err != nil {
		s.mu.Unlock()
		return model.Task{}, err
	}
	t.UpdatedAt = at
	s.tasks[i] = t
	s.mu.Unlock()

	s.queue.push(write{id: t.ID, doc: t.Document()})
	s.emit()
	return t.Clone(), nil
}

// Update merges fields over a task. Attachments and comments are appended
// to the existing lists; every other field replaces its current value.
func (s *Store) Update(id string, fields map[string]any) (model.Task, error) {
	if v, ok := fields["title"]; ok {
		if title, _ := v.(string); strings.TrimSpace(title) == "" {
			err := invalid("title", "Task title is required")
			s.notifier.Error(err.Error())
			return model.Task{}, err
		}
	}
	if v, ok := fields["status"]; ok {
		if status, _ := v.(string); !model.Status(status).Valid() {
			if st, isStatus := v.(model.Status); !isStatus || !st.Valid() {
				err := invalid("status", fmt.Sprintf("unknown status %v", v))
				s.notifier.Error(err.Error())
				return model.Task{}, err
			}
		}
	}

	return s.mutate(id, func(t *model.Task, at time.Time) error {
		doc := t.Document()
		for k, v := range fields {
			if protectedFields[k] || k == "attachments" || k == "comments" {
				continue
			}
			doc[k] = v
		}
		if title, ok := doc["title"].(string); ok {
			doc["title"] = strings.TrimSpace(title)
		}

		next := model.Normalize(doc)
		extra := model.Normalize(map[string]any{
			"attachments": fields["attachments"],
			"comments":    fields["comments"],
		})
		next.Attachments = append(next.Attachments, extra.Attachments...)
		next.Comments = append(next.Comments, extra.Comments...)

		next.ID = t.ID
		next.CreatedAt = t.CreatedAt
		next.Activity = append(t.Activity, model.Activity{Action: "Updated", Timestamp: at})
		*t = next
		return nil
	})
}

// Delete removes a task locally and deletes it remotely in the background
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	i := s.indexLocked(id)
	if i < 0 {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	s.tasks = append(s.tasks[:i], s.tasks[i+1:]...)
	s.mu.Unlock()

	s.queue.push(write{id: id, delete: true})
	s.emit()
	return nil
}

// Move changes only a task's status
func (s *Store) Move(id string, status model.Status) (model.Task, error) {
	if !status.Valid() {
		err := invalid("status", fmt.Sprintf("unknown status %q", status))
		s.notifier.Error(err.Error())
		return model.Task{}, err
	}
	return s.mutate(id, func(t *model.Task, at time.Time) error {
		t.Status = status
		t.Activity = append(t.Activity, model.Activity{Action: model.MovedAction(status), Timestamp: at})
		return nil
	})
}

// ToggleWatch adds or removes the signed-in user from a task's watchers
func (s *Store) ToggleWatch(id string) (model.Task, error) {
	uid := s.session.UserID
	return s.mutate(id, func(t *model.Task, at time.Time) error {
		for i, w := range t.Watchers {
			if w == uid {
				t.Watchers = append(t.Watchers[:i], t.Watchers[i+1:]...)
				return nil
			}
		}
		t.Watchers = append(t.Watchers, uid)
		return nil
	})
}

// AddComment appends a comment by the signed-in user
func (s *Store) AddComment(id, text string) (model.Task, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		err := invalid("comment", "Comment cannot be empty")
		s.notifier.Error(err.Error())
		return model.Task{}, err
	}
	return s.mutate(id, func(t *model.Task, at time.Time) error {
		t.Comments = append(t.Comments, model.Comment{
			Text:      text,
			Author:    s.session.Name(),
			UserID:    s.session.UserID,
			Timestamp: at,
			Reactions: map[string]int{},
		})
		t.Activity = append(t.Activity, model.Activity{Action: "Comment added", Timestamp: at})
		return nil
	})
}

// ReactToComment increments an emoji count on the comment at index
func (s *Store) ReactToComment(id string, index int, emoji string) (model.Task, error) {
	if emoji == "" {
		return model.Task{}, invalid("reaction", "Reaction cannot be empty")
	}
	return s.mutate(id, func(t *model.Task, at time.Time) error {
		if index < 0 || index >= len(t.Comments) {
			return fmt.Errorf("%w: comment %d", ErrNotFound, index)
		}
		t.Comments[index].Reactions[emoji]++
		return nil
	})
}

// AddAttachments appends file references. Entries without a name are
// ignored.
func (s *Store) AddAttachments(id string, files []model.Attachment) (model.Task, error) {
	var valid []model.Attachment
	for _, f := range files {
		if strings.TrimSpace(f.Name) == "" {
			continue
		}
		if f.Size < 0 {
			f.Size = 0
		}
		valid = append(valid, f)
	}
	if len(valid) == 0 {
		return model.Task{}, invalid("attachments", "No files to attach")
	}
	return s.mutate(id, func(t *model.Task, at time.Time) error {
		t.Attachments = append(t.Attachments, valid...)
		t.Activity = append(t.Activity, model.Activity{
			Action:    fmt.Sprintf("Attached %d file(s)", len(valid)),
			Timestamp: at,
		})
		return nil
	})
}

// AddSubtask appends an open checklist item
func (s *Store) AddSubtask(id, text string) (model.Task, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return model.Task{}, invalid("subtask", "Subtask cannot be empty")
	}
	subID := s.newID()
	return s.mutate(id, func(t *model.Task, at time.Time) error {
		t.Subtasks = append(t.Subtasks, model.Subtask{ID: subID, Text: text})
		return nil
	})
}

// ToggleSubtask flips the completion of one checklist item
func (s *Store) ToggleSubtask(id, subtaskID string) (model.Task, error) {
	return s.mutate(id, func(t *model.Task, at time.Time) error {
		for i := range t.Subtasks {
			if t.Subtasks[i].ID == subtaskID {
				t.Subtasks[i].Completed = !t.Subtasks[i].Completed
				return nil
			}
		}
		return fmt.Errorf("%w: subtask %s", ErrNotFound, subtaskID)
	})
}

// AddTimeSpent folds logged hours into a task
func (s *Store) AddTimeSpent(id string, hours float64) (model.Task, error) {
	if hours <= 0 {
		return model.Task{}, invalid("timeSpent", "Logged time must be positive")
	}
	return s.mutate(id, func(t *model.Task, at time.Time) error {
		t.TimeSpent += hours
		t.Activity = append(t.Activity, model.Activity{
			Action:    fmt.Sprintf("Logged %s", formatHours(hours)),
			Timestamp: at,
		})
		return nil
	})
}

// MarkReminderSent records that the due reminder for a task has fired
func (s *Store) MarkReminderSent(id string) (model.Task, error) {
	return s.mutate(id, func(t *model.Task, at time.Time) error {
		t.ReminderSent = true
		return nil
	})
}

func formatHours(h float64) string {
	d := time.Duration(h * float64(time.Hour)).Round(time.Minute)
	if d < time.Hour {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
	return fmt.Sprintf("%dh %dm", int(d.Hours()), int(d.Minutes())%60)
}
