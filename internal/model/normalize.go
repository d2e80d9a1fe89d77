package model

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Defaults applied by Normalize to absent fields
const (
	DefaultCategory = "Work"
	DefaultType     = "General"
)

// Normalize maps an arbitrary, possibly partial or untrusted record into a
// fully populated Task. It never fails: malformed values degrade to their
// defaults. The input map is not modified.
func Normalize(raw map[string]any) Task {
	t := Task{
		ID:           asString(raw["id"]),
		Title:        asString(raw["title"]),
		Description:  asString(raw["description"]),
		Notes:        asString(raw["notes"]),
		Priority:     Priority(asString(raw["priority"])),
		Status:       Status(asString(raw["status"])),
		DueDate:      asOptionalTime(raw["dueDate"]),
		Category:     asString(raw["category"]),
		Type:         asString(raw["type"]),
		ProjectID:    asString(raw["projectId"]),
		AssignedTo:   asString(raw["assignedTo"]),
		Dependencies: asStrings(raw["dependencies"]),
		Estimate:     asHours(raw["estimate"]),
		TimeSpent:    asHours(raw["timeSpent"]),
		Attachments:  asAttachments(raw["attachments"]),
		Comments:     asComments(raw["comments"]),
		Tags:         asStrings(raw["tags"]),
		Watchers:     asStrings(raw["watchers"]),
		Labels:       asStrings(raw["labels"]),
		Subtasks:     asSubtasks(raw["subtasks"]),
		Activity:     asActivity(raw["activity"]),
		CreatedAt:    asTime(raw["createdAt"]),
		UpdatedAt:    asTime(raw["updatedAt"]),
		ReminderSent: asBool(raw["reminderSent"]),
	}

	if t.Priority == "" {
		t.Priority = PriorityMedium
	}
	if !t.Status.Valid() {
		t.Status = StatusTodo
	}
	if t.Category == "" {
		t.Category = DefaultCategory
	}
	if t.Type == "" {
		t.Type = DefaultType
	}
	return t
}

// plain converts in-process Go values (typed slices, time.Time, structs)
// into the shapes produced by decoding JSON.
func plain(v any) any {
	switch v.(type) {
	case nil, string, bool, float64, []any, map[string]any:
		return v
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil
	}
	return out
}

func asString(v any) string {
	switch x := plain(v).(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		return ""
	}
}

func asBool(v any) bool {
	switch x := plain(v).(type) {
	case bool:
		return x
	case string:
		b, _ := strconv.ParseBool(strings.TrimSpace(x))
		return b
	case float64:
		return x != 0
	default:
		return false
	}
}

func asNumber(v any) float64 {
	var f float64
	switch x := plain(v).(type) {
	case float64:
		f = x
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0
		}
		f = parsed
	default:
		return 0
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// asHours parses a non-negative duration in hours
func asHours(v any) float64 {
	f := asNumber(v)
	if f < 0 {
		return 0
	}
	return f
}

// asCount parses a non-negative whole number, saturating at math.MaxInt64
func asCount(v any) int64 {
	f := math.Floor(asHours(v))
	if f >= math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(f)
}

// Latest instant that still round-trips through RFC 3339
var maxEpochMillis = time.Date(9999, 12, 31, 23, 59, 59, 0, time.UTC).UnixMilli()

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func asTime(v any) time.Time {
	switch x := plain(v).(type) {
	case string:
		s := strings.TrimSpace(x)
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t.UTC()
			}
		}
	case float64:
		// Epoch milliseconds
		if x > 0 && x <= float64(maxEpochMillis) {
			return time.UnixMilli(int64(x)).UTC()
		}
	}
	return time.Time{}
}

func asOptionalTime(v any) *time.Time {
	t := asTime(v)
	if t.IsZero() {
		return nil
	}
	return &t
}

func asList(v any) []any {
	if list, ok := plain(v).([]any); ok {
		return list
	}
	return nil
}

func asStrings(v any) []string {
	out := []string{}
	for _, item := range asList(v) {
		switch x := item.(type) {
		case string:
			out = append(out, x)
		case float64:
			out = append(out, strconv.FormatFloat(x, 'f', -1, 64))
		}
	}
	return out
}

func asAttachments(v any) []Attachment {
	out := []Attachment{}
	for _, item := range asList(v) {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		out = append(out, Attachment{
			Name: asString(m["name"]),
			URL:  asString(m["url"]),
			Size: asCount(m["size"]),
		})
	}
	return out
}

func asComments(v any) []Comment {
	out := []Comment{}
	for _, item := range asList(v) {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		reactions := map[string]int{}
		if rm, ok := m["reactions"].(map[string]any); ok {
			for emoji, count := range rm {
				if n := min(asCount(count), math.MaxInt); n > 0 {
					reactions[emoji] = int(n)
				}
			}
		}
		out = append(out, Comment{
			Text:      asString(m["text"]),
			Author:    asString(m["author"]),
			UserID:    asString(m["userId"]),
			Timestamp: asTime(m["timestamp"]),
			Reactions: reactions,
		})
	}
	return out
}

func asSubtasks(v any) []Subtask {
	out := []Subtask{}
	for i, item := range asList(v) {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		id := asString(m["id"])
		if id == "" {
			id = fmt.Sprintf("st-%d", i+1)
		}
		out = append(out, Subtask{
			ID:        id,
			Text:      asString(m["text"]),
			Completed: asBool(m["completed"]),
		})
	}
	return out
}

func asActivity(v any) []Activity {
	out := []Activity{}
	for _, item := range asList(v) {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		out = append(out, Activity{
			Action:    asString(m["action"]),
			Timestamp: asTime(m["timestamp"]),
		})
	}
	return out
}
