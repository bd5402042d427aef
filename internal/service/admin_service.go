package service

import (
	"context"
	"fmt"
	"time"

	"github.com/SINTT/TODO/internal/domain"
	"github.com/SINTT/TODO/internal/policy"
)

// AdminService provides admin statistics
type AdminService struct {
	users   UserStore
	tasks   TaskStore
	timeout time.Duration
	now     func() time.Time
}

// NewAdminService creates a new admin service
func NewAdminService(users UserStore, tasks TaskStore, timeout time.Duration) *AdminService {
	return &AdminService{users: users, tasks: tasks, timeout: timeout, now: time.Now}
}

// Stats represents workspace statistics
type Stats struct {
	TotalUsers    int                     `json:"totalUsers"`
	UsersByRole   map[domain.Role]int     `json:"usersByRole"`
	TotalTasks    int                     `json:"totalTasks"`
	TasksByStatus map[domain.Status]int   `json:"tasksByStatus"`
	TasksByPrio   map[domain.Priority]int `json:"tasksByPriority"`
	ActiveTasks   int                     `json:"activeTasks"`
	ArchivedTasks int                     `json:"archivedTasks"`
	OverdueTasks  int                     `json:"overdueTasks"` // past due and not done
	DueToday      int                     `json:"dueToday"`
}

// GetStats returns workspace statistics
func (s *AdminService) GetStats(ctx context.Context, actor domain.Actor) (*Stats, error) {
	if !policy.Can(actor.Role, policy.ActionViewStats, policy.Context{ActorNickname: actor.Nickname}) {
		return nil, fmt.Errorf("stats: %w", domain.ErrForbidden)
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	users, err := s.users.List(ctx)
	if err != nil {
		return nil, classify(err)
	}
	tasks, err := s.tasks.List(ctx)
	if err != nil {
		return nil, classify(err)
	}

	now := s.now()
	y, m, d := now.Date()
	dayStart := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	dayEnd := dayStart.AddDate(0, 0, 1)

	stats := &Stats{
		TotalUsers:    len(users),
		UsersByRole:   make(map[domain.Role]int, len(domain.Roles)),
		TotalTasks:    len(tasks),
		TasksByStatus: make(map[domain.Status]int, 3),
		TasksByPrio:   make(map[domain.Priority]int, 3),
	}
	for _, role := range domain.Roles {
		stats.UsersByRole[role] = 0
	}
	for _, u := range users {
		stats.UsersByRole[u.Role]++
	}

	for _, t := range tasks {
		stats.TasksByStatus[t.Status]++
		stats.TasksByPrio[t.Priority]++

		if t.IsArchived(now) {
			stats.ArchivedTasks++
		} else {
			stats.ActiveTasks++
		}
		if t.Status != domain.StatusDone && t.DueDate.Before(now) {
			stats.OverdueTasks++
		}
		if !t.DueDate.Before(dayStart) && t.DueDate.Before(dayEnd) {
			stats.DueToday++
		}
	}

	return stats, nil
}
