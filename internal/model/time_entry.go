package model

import (
	"time"
)

// TimeEntry represents one finished timer session on a task
type TimeEntry struct {
	ID        string    `json:"id"`
	TaskID    string    `json:"taskId"`
	UserID    string    `json:"userId"`
	StartedAt time.Time `json:"startedAt"`
	EndedAt   time.Time `json:"endedAt"`
	Minutes   int       `json:"minutes"`
}

// Hours returns the logged duration as fractional hours
func (te *TimeEntry) Hours() float64 {
	return float64(te.Minutes) / 60
}
