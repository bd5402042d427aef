package domain

import (
	"fmt"
	"strings"
	"time"
)

// Status - статус задачи
type Status string

const (
	StatusToDo       Status = "to-do"
	StatusInProgress Status = "in-progress"
	StatusDone       Status = "done"
)

func ParseStatus(s string) (Status, error) {
	switch st := Status(strings.ToLower(strings.TrimSpace(s))); st {
	case StatusToDo, StatusInProgress, StatusDone:
		return st, nil
	default:
		return "", fmt.Errorf("%w: unknown status %q", ErrValidation, s)
	}
}

// CanTransition reports whether from -> to is an edge of the task lifecycle:
// to-do -> in-progress -> done, plus in-progress -> to-do when the assignee
// did not finish. done is terminal.
func CanTransition(from, to Status) bool {
	switch from {
	case StatusToDo:
		return to == StatusInProgress
	case StatusInProgress:
		return to == StatusDone || to == StatusToDo
	default:
		return false
	}
}

// Priority - приоритет задачи
type Priority string

const (
	PriorityLow    Priority = "Low"
	PriorityMedium Priority = "Medium"
	PriorityHigh   Priority = "High"
)

func ParsePriority(s string) (Priority, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return PriorityLow, nil
	case "medium":
		return PriorityMedium, nil
	case "high":
		return PriorityHigh, nil
	default:
		return "", fmt.Errorf("%w: unknown priority %q", ErrValidation, s)
	}
}

// Rank orders priorities High=1 < Medium=2 < Low=3.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 1
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 3
	default:
		return 4
	}
}

type Task struct {
	ID          int64     `db:"id" json:"id"`
	Title       string    `db:"title" json:"title"`
	Description string    `db:"description" json:"description"`
	Priority    Priority  `db:"priority" json:"priority"`
	Status      Status    `db:"status" json:"status"`
	CreatedBy   string    `db:"created_by" json:"createdBy"`
	CreatorRole Role      `db:"creator_role" json:"creatorRole"`
	AssignedTo  string    `db:"assigned_to" json:"assignedTo"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
	DueDate     time.Time `db:"due_date" json:"dueDate"`
}

// IsArchived is computed on read: finished tasks and tasks past their
// deadline both leave the active queue.
func (t *Task) IsArchived(now time.Time) bool {
	return t.Status == StatusDone || t.DueDate.Before(now)
}

// dueDateLayouts are tried in order; zone-less layouts are read in the
// caller's location. The mobile client sends "2006-01-02T15:04:05".
var dueDateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

func ParseDueDate(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: due date is required", ErrValidation)
	}
	if loc == nil {
		loc = time.UTC
	}
	for _, layout := range dueDateLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: unparseable due date %q", ErrValidation, s)
}
