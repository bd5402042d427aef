package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/SINTT/TODO/internal/domain"
	"github.com/SINTT/TODO/internal/logger"
	"github.com/SINTT/TODO/internal/policy"
)

type CreateTaskInput struct {
	Title       string
	Description string
	Priority    string
	DueDate     string
	AssignedTo  string
}

// TaskService runs the task lifecycle. Every mutation is authorized by
// policy.Can against the actor of the request.
type TaskService struct {
	tasks   TaskStore
	timeout time.Duration
	loc     *time.Location
	now     func() time.Time
}

func NewTaskService(tasks TaskStore, timeout time.Duration, loc *time.Location) *TaskService {
	if loc == nil {
		loc = time.UTC
	}
	return &TaskService{
		tasks:   tasks,
		timeout: timeout,
		loc:     loc,
		now:     time.Now,
	}
}

// Now is the clock the service uses for createdAt and archive splits.
func (s *TaskService) Now() time.Time {
	return s.now()
}

// CreateTask stores a new to-do task. createdBy and creatorRole always
// come from actor.
func (s *TaskService) CreateTask(ctx context.Context, actor domain.Actor, in CreateTaskInput) (*domain.Task, error) {
	if !policy.Can(actor.Role, policy.ActionCreateTask, policy.Context{
		ActorNickname:    actor.Nickname,
		ActorDisplayName: actor.DisplayName,
	}) {
		taskErrors.WithLabelValues("create", "Forbidden").Inc()
		return nil, fmt.Errorf("create task: %w", domain.ErrForbidden)
	}

	t, err := s.buildTask(actor, in)
	if err != nil {
		taskErrors.WithLabelValues("create", domain.Code(err)).Inc()
		return nil, err
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.tasks.Create(ctx, t); err != nil {
		err = classify(err)
		taskErrors.WithLabelValues("create", domain.Code(err)).Inc()
		return nil, err
	}

	tasksCreated.Inc()
	logger.WithContext(ctx).Info("task created", "task_id", t.ID, "by", actor.Nickname, "assigned_to", t.AssignedTo)
	return t, nil
}

func (s *TaskService) buildTask(actor domain.Actor, in CreateTaskInput) (*domain.Task, error) {
	title := strings.TrimSpace(in.Title)
	description := strings.TrimSpace(in.Description)
	assignee := strings.TrimSpace(in.AssignedTo)

	switch {
	case title == "":
		return nil, fmt.Errorf("%w: title is required", domain.ErrValidation)
	case description == "":
		return nil, fmt.Errorf("%w: description is required", domain.ErrValidation)
	case assignee == "":
		return nil, fmt.Errorf("%w: assignee is required", domain.ErrValidation)
	}

	priority, err := domain.ParsePriority(in.Priority)
	if err != nil {
		return nil, err
	}
	due, err := domain.ParseDueDate(in.DueDate, s.loc)
	if err != nil {
		return nil, err
	}

	return &domain.Task{
		Title:       title,
		Description: description,
		Priority:    priority,
		Status:      domain.StatusToDo,
		CreatedBy:   actor.DisplayName,
		CreatorRole: actor.Role,
		AssignedTo:  assignee,
		CreatedAt:   s.now().UTC().Truncate(time.Microsecond),
		DueDate:     due.UTC().Truncate(time.Microsecond),
	}, nil
}

// ChangeStatus moves a task along the lifecycle. A missing task reports
// NotFound before authorization, and authorization is decided before
// the transition is checked.
func (s *TaskService) ChangeStatus(ctx context.Context, actor domain.Actor, id int64, to domain.Status) (*domain.Task, error) {
	to, err := domain.ParseStatus(string(to))
	if err != nil {
		return nil, err
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	var from domain.Status
	updated, err := s.tasks.Mutate(ctx, id, func(t *domain.Task) error {
		if !policy.Can(actor.Role, policy.ActionChangeTaskStatus, policy.Context{
			ActorNickname:    actor.Nickname,
			ActorDisplayName: actor.DisplayName,
			TaskAssignee:     t.AssignedTo,
		}) {
			return fmt.Errorf("task %d: %w", id, domain.ErrForbidden)
		}
		if !domain.CanTransition(t.Status, to) {
			return fmt.Errorf("task %d: %s -> %s: %w", id, t.Status, to, domain.ErrInvalidTransition)
		}
		from = t.Status
		t.Status = to
		return nil
	})
	if err != nil {
		err = classify(err)
		taskErrors.WithLabelValues("change_status", domain.Code(err)).Inc()
		return nil, err
	}

	statusTransitions.WithLabelValues(string(from), string(to)).Inc()
	logger.WithContext(ctx).Info("task status changed", "task_id", id, "from", from, "to", to, "by", actor.Nickname)
	return updated, nil
}

// AssignTask hands a task to someone else. Status is left as is.
func (s *TaskService) AssignTask(ctx context.Context, actor domain.Actor, id int64, assignee string) (*domain.Task, error) {
	assignee = strings.TrimSpace(assignee)
	if assignee == "" {
		return nil, fmt.Errorf("%w: assignee is required", domain.ErrValidation)
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	var previous string
	updated, err := s.tasks.Mutate(ctx, id, func(t *domain.Task) error {
		if !policy.Can(actor.Role, policy.ActionAssignTask, policy.Context{
			ActorNickname:    actor.Nickname,
			ActorDisplayName: actor.DisplayName,
			TaskAssignee:     t.AssignedTo,
		}) {
			return fmt.Errorf("task %d: %w", id, domain.ErrForbidden)
		}
		previous = t.AssignedTo
		t.AssignedTo = assignee
		return nil
	})
	if err != nil {
		err = classify(err)
		taskErrors.WithLabelValues("assign", domain.Code(err)).Inc()
		return nil, err
	}

	logger.WithContext(ctx).Info("task reassigned", "task_id", id, "from", previous, "to", assignee, "by", actor.Nickname)
	return updated, nil
}

func (s *TaskService) DeleteTask(ctx context.Context, actor domain.Actor, id int64) error {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	err := s.tasks.Delete(ctx, id, func(t *domain.Task) error {
		if !policy.Can(actor.Role, policy.ActionDeleteTask, policy.Context{
			ActorNickname:    actor.Nickname,
			ActorDisplayName: actor.DisplayName,
			TaskAssignee:     t.AssignedTo,
		}) {
			return fmt.Errorf("task %d: %w", id, domain.ErrForbidden)
		}
		return nil
	})
	if err != nil {
		err = classify(err)
		taskErrors.WithLabelValues("delete", domain.Code(err)).Inc()
		return err
	}

	logger.WithContext(ctx).Info("task deleted", "task_id", id, "by", actor.Nickname)
	return nil
}

func (s *TaskService) GetTask(ctx context.Context, actor domain.Actor, id int64) (*domain.Task, error) {
	if !policy.Can(actor.Role, policy.ActionViewTasks, policy.Context{ActorNickname: actor.Nickname}) {
		return nil, fmt.Errorf("view task %d: %w", id, domain.ErrForbidden)
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	t, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		return nil, classify(err)
	}
	return t, nil
}

// ListTasks returns every task ordered by id. Sorting, filtering and the
// active/archive split are left to the query package.
func (s *TaskService) ListTasks(ctx context.Context, actor domain.Actor) ([]*domain.Task, error) {
	if !policy.Can(actor.Role, policy.ActionViewTasks, policy.Context{ActorNickname: actor.Nickname}) {
		return nil, fmt.Errorf("list tasks: %w", domain.ErrForbidden)
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	tasks, err := s.tasks.List(ctx)
	if err != nil {
		return nil, classify(err)
	}
	return tasks, nil
}
