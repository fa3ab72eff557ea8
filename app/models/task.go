// Package models defines the task, profile, and usage rows backing the API.
package models

import (
	"strings"
	"time"
)

// Label is one of the five fixed task categories.
type Label string

const (
	LabelWork     Label = "work"
	LabelPersonal Label = "personal"
	LabelShopping Label = "shopping"
	LabelHome     Label = "home"
	LabelPriority Label = "priority"
)

// Labels is the closed set a task label may take.
var Labels = []Label{LabelWork, LabelPersonal, LabelShopping, LabelHome, LabelPriority}

// ParseLabel validates a user- or model-supplied label against the fixed set.
// Matching is case-insensitive and ignores surrounding whitespace.
func ParseLabel(s string) (Label, bool) {
	normalized := Label(strings.ToLower(strings.TrimSpace(s)))
	for _, l := range Labels {
		if normalized == l {
			return l, true
		}
	}
	return "", false
}

type Task struct {
	TaskID      string     `json:"task_id" db:"task_id"`
	UserID      string     `json:"user_id" db:"user_id"`
	Title       string     `json:"title" db:"title"`
	Description *string    `json:"description" db:"description"`
	Completed   bool       `json:"completed" db:"completed"`
	DueDate     *time.Time `json:"due_date" db:"due_date"`
	Label       *Label     `json:"label" db:"label"`
	ImageURL    *string    `json:"image_url" db:"image_url"`
	Rank        *int       `json:"rank" db:"rank"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
}
