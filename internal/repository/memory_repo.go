package repository

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/SINTT/TODO/internal/domain"

	"go.uber.org/atomic"
)

// MemoryUserRepository keeps users in process memory. Used by
// STORAGE_DRIVER=memory and by tests.
type MemoryUserRepository struct {
	mu     sync.RWMutex
	nextID int64
	byNick map[string]*domain.User
	order  []string
}

func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{byNick: make(map[string]*domain.User)}
}

func (r *MemoryUserRepository) Create(ctx context.Context, u *domain.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byNick[u.Nickname]; ok {
		return fmt.Errorf("user %q: %w", u.Nickname, domain.ErrDuplicateIdentity)
	}
	r.nextID++
	u.ID = r.nextID
	u.CreatedAt = time.Now().UTC()

	cp := *u
	r.byNick[u.Nickname] = &cp
	r.order = append(r.order, u.Nickname)
	return nil
}

func (r *MemoryUserRepository) GetByNickname(ctx context.Context, nickname string) (*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byNick[nickname]
	if !ok {
		return nil, fmt.Errorf("user %q: %w", nickname, domain.ErrNotFound)
	}
	cp := *u
	return &cp, nil
}

func (r *MemoryUserRepository) List(ctx context.Context) ([]*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	res := make([]*domain.User, 0, len(r.order))
	for _, nick := range r.order {
		cp := *r.byNick[nick]
		res = append(res, &cp)
	}
	return res, nil
}

func (r *MemoryUserRepository) UpdateRole(ctx context.Context, nickname string, role domain.Role) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byNick[nickname]
	if !ok {
		return fmt.Errorf("user %q: %w", nickname, domain.ErrNotFound)
	}
	u.Role = role
	return nil
}

func (r *MemoryUserRepository) Delete(ctx context.Context, nickname string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byNick[nickname]; !ok {
		return fmt.Errorf("user %q: %w", nickname, domain.ErrNotFound)
	}
	delete(r.byNick, nickname)
	for i, n := range r.order {
		if n == nickname {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

// taskRecord guards one task; mutations of different tasks never contend.
type taskRecord struct {
	mu      sync.Mutex
	task    domain.Task
	deleted bool
}

// MemoryTaskRepository keeps tasks in process memory with per-record locks.
type MemoryTaskRepository struct {
	mu     sync.RWMutex
	nextID atomic.Int64
	tasks  map[int64]*taskRecord
}

func NewMemoryTaskRepository() *MemoryTaskRepository {
	return &MemoryTaskRepository{tasks: make(map[int64]*taskRecord)}
}

func (r *MemoryTaskRepository) Create(ctx context.Context, t *domain.Task) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.ID = r.nextID.Inc()

	r.mu.Lock()
	r.tasks[t.ID] = &taskRecord{task: *t}
	r.mu.Unlock()
	return nil
}

func (r *MemoryTaskRepository) GetByID(ctx context.Context, id int64) (*domain.Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rec, ok := r.record(id)
	if !ok {
		return nil, fmt.Errorf("task %d: %w", id, domain.ErrNotFound)
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if rec.deleted {
		return nil, fmt.Errorf("task %d: %w", id, domain.ErrNotFound)
	}
	cp := rec.task
	return &cp, nil
}

// List returns tasks ordered by id.
func (r *MemoryTaskRepository) List(ctx context.Context) ([]*domain.Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	ids := make([]int64, 0, len(r.tasks))
	for id := range r.tasks {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	recs := make([]*taskRecord, 0, len(ids))
	for _, id := range ids {
		recs = append(recs, r.tasks[id])
	}
	r.mu.RUnlock()

	res := make([]*domain.Task, 0, len(recs))
	for _, rec := range recs {
		rec.mu.Lock()
		if !rec.deleted {
			cp := rec.task
			res = append(res, &cp)
		}
		rec.mu.Unlock()
	}
	return res, nil
}

func (r *MemoryTaskRepository) Mutate(ctx context.Context, id int64, fn func(t *domain.Task) error) (*domain.Task, error) {
	rec, ok := r.record(id)
	if !ok {
		return nil, fmt.Errorf("task %d: %w", id, domain.ErrNotFound)
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if rec.deleted {
		return nil, fmt.Errorf("task %d: %w", id, domain.ErrNotFound)
	}

	cp := rec.task
	if err := fn(&cp); err != nil {
		return nil, err
	}
	rec.task.Status = cp.Status
	rec.task.AssignedTo = cp.AssignedTo

	out := rec.task
	return &out, nil
}

func (r *MemoryTaskRepository) Delete(ctx context.Context, id int64, check func(t *domain.Task) error) error {
	rec, ok := r.record(id)
	if !ok {
		return fmt.Errorf("task %d: %w", id, domain.ErrNotFound)
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	if rec.deleted {
		return fmt.Errorf("task %d: %w", id, domain.ErrNotFound)
	}

	cp := rec.task
	if err := check(&cp); err != nil {
		return err
	}
	rec.deleted = true

	r.mu.Lock()
	delete(r.tasks, id)
	r.mu.Unlock()
	return nil
}

func (r *MemoryTaskRepository) record(id int64) (*taskRecord, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.tasks[id]
	return rec, ok
}
