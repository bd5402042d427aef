// Package query builds read-only views over task and user collections.
// Nothing here mutates its input; every function returns a fresh slice.
package query

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/SINTT/TODO/internal/domain"
)

type SortKey string

const (
	SortDueSoon  SortKey = "dueSoon"
	SortNewest   SortKey = "newest"
	SortOldest   SortKey = "oldest"
	SortPriority SortKey = "priority"
)

// ParseSortKey maps a query value to a key; empty means dueSoon.
func ParseSortKey(s string) (SortKey, error) {
	switch k := SortKey(strings.TrimSpace(s)); k {
	case "":
		return SortDueSoon, nil
	case SortDueSoon, SortNewest, SortOldest, SortPriority:
		return k, nil
	default:
		return "", fmt.Errorf("%w: unknown sort key %q", domain.ErrValidation, s)
	}
}

// SortBy returns tasks ordered by key. The sort is stable: tasks with equal
// keys keep their input order. An unknown key returns the input order.
func SortBy(tasks []*domain.Task, key SortKey) []*domain.Task {
	out := slices.Clone(tasks)

	var cmp func(a, b *domain.Task) int
	switch key {
	case SortDueSoon:
		cmp = func(a, b *domain.Task) int { return a.DueDate.Compare(b.DueDate) }
	case SortNewest:
		cmp = func(a, b *domain.Task) int { return b.CreatedAt.Compare(a.CreatedAt) }
	case SortOldest:
		cmp = func(a, b *domain.Task) int { return a.CreatedAt.Compare(b.CreatedAt) }
	case SortPriority:
		cmp = func(a, b *domain.Task) int { return a.Priority.Rank() - b.Priority.Rank() }
	default:
		return out
	}

	slices.SortStableFunc(out, cmp)
	return out
}

// PartitionActiveArchive splits tasks by their read-time bucket. A task is
// archived when done or when its due date is before now, so an overdue
// unfinished task drops out of the active queue.
func PartitionActiveArchive(tasks []*domain.Task, now time.Time) (active, archive []*domain.Task) {
	active = make([]*domain.Task, 0, len(tasks))
	archive = make([]*domain.Task, 0)
	for _, t := range tasks {
		if t.IsArchived(now) {
			archive = append(archive, t)
		} else {
			active = append(active, t)
		}
	}
	return active, archive
}

// FilterByTitle keeps tasks whose title contains q, ignoring case.
func FilterByTitle(tasks []*domain.Task, q string) []*domain.Task {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return slices.Clone(tasks)
	}
	out := make([]*domain.Task, 0, len(tasks))
	for _, t := range tasks {
		if strings.Contains(strings.ToLower(t.Title), q) {
			out = append(out, t)
		}
	}
	return out
}

// SearchUsersByName matches q against "last first patronymic", ignoring
// case. A nil role keeps every role; an empty q keeps every name.
func SearchUsersByName(users []*domain.User, q string, role *domain.Role) []*domain.User {
	q = strings.ToLower(strings.TrimSpace(q))
	out := make([]*domain.User, 0, len(users))
	for _, u := range users {
		if role != nil && u.Role != *role {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(u.FullName()), q) {
			continue
		}
		out = append(out, u)
	}
	return out
}

// View selects which partition of the task list is returned.
type View string

const (
	ViewAll     View = "all"
	ViewActive  View = "active"
	ViewArchive View = "archive"
)

func ParseView(s string) (View, error) {
	switch v := View(strings.ToLower(strings.TrimSpace(s))); v {
	case "":
		return ViewAll, nil
	case ViewAll, ViewActive, ViewArchive:
		return v, nil
	default:
		return "", fmt.Errorf("%w: unknown view %q", domain.ErrValidation, s)
	}
}

// TaskOptions describes a full task listing request.
type TaskOptions struct {
	Sort  SortKey
	Title string
	View  View
	Now   time.Time
}

// Tasks applies title filter, view partition and sort in that order.
func Tasks(tasks []*domain.Task, opts TaskOptions) []*domain.Task {
	out := FilterByTitle(tasks, opts.Title)
	switch opts.View {
	case ViewActive:
		out, _ = PartitionActiveArchive(out, opts.Now)
	case ViewArchive:
		_, out = PartitionActiveArchive(out, opts.Now)
	}
	return SortBy(out, opts.Sort)
}
