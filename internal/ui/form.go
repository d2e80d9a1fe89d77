package ui

import (
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/dori/taskdeck/internal/model"
)

// formField is one labelled text input of a modal form
type formField struct {
	key   string
	label string
	input textinput.Model
}

func newField(key, label, placeholder, value string) formField {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.CharLimit = 500
	ti.Width = 50
	ti.SetValue(value)
	return formField{key: key, label: label, input: ti}
}

// newForm builds the inputs for a modal. task prefills the edit form.
func newForm(m Modal, task model.Task, now time.Time) []formField {
	switch m {
	case ModalAdd:
		return []formField{
			newField("title", "Title", "What needs doing?", ""),
			newField("description", "Description", "", ""),
			newField("priority", "Priority", "low, medium, high, critical", ""),
			newField("category", "Category", "Work", ""),
			newField("dueDate", "Due", "today, friday, 2024-06-01", ""),
			newField("tags", "Tags", "comma separated", ""),
		}
	case ModalEdit:
		due := ""
		if task.DueDate != nil {
			due = task.DueDate.In(now.Location()).Format("2006-01-02")
		}
		return []formField{
			newField("title", "Title", "", task.Title),
			newField("description", "Description", "", task.Description),
			newField("priority", "Priority", "low, medium, high, critical", string(task.Priority)),
			newField("status", "Status", "todo, in-progress, review, done, blocked, cancelled", string(task.Status)),
			newField("category", "Category", "", task.Category),
			newField("dueDate", "Due", "empty clears", due),
			newField("tags", "Tags", "comma separated", strings.Join(task.Tags, ", ")),
			newField("comment", "Comment", "add a comment", ""),
			newField("subtask", "Subtask", "add a checklist item", ""),
			newField("attach", "Attach", "file path or URL", ""),
		}
	case ModalQuickAdd:
		return []formField{
			newField("text", "Quick add", "Review PR @work !high due:tomorrow #Engineering", ""),
		}
	case ModalSearch:
		return []formField{
			newField("search", "Search", "title, description, category, tags, labels", ""),
		}
	}
	return nil
}

// formValues turns the inputs into task fields. Empty inputs are left out
// of a new task so defaults apply; on edit an empty due date clears it.
func formValues(fields []formField, editing bool, now time.Time) map[string]any {
	out := map[string]any{}
	for _, f := range fields {
		v := strings.TrimSpace(f.input.Value())
		switch f.key {
		case "title":
			out["title"] = v
		case "priority":
			if v == "" {
				continue
			}
			if p, ok := parsePriority(v); ok {
				out["priority"] = string(p)
			} else {
				out["priority"] = strings.ToLower(v)
			}
		case "dueDate":
			if v == "" {
				if editing {
					out["dueDate"] = nil
				}
				continue
			}
			if due := parseNaturalDate(v, now); due != nil {
				out["dueDate"] = *due
			}
		case "tags":
			if v == "" && !editing {
				continue
			}
			tags := []string{}
			for _, tag := range strings.Split(v, ",") {
				if tag = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(tag), "@")); tag != "" {
					tags = append(tags, tag)
				}
			}
			out["tags"] = tags
		default:
			if v == "" && !editing {
				continue
			}
			out[f.key] = v
		}
	}
	return out
}
