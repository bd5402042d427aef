package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/SINTT/TODO/internal/domain"
)

// UserStore is implemented by the Postgres, SQLite and memory user repositories.
type UserStore interface {
	Create(ctx context.Context, u *domain.User) error
	GetByNickname(ctx context.Context, nickname string) (*domain.User, error)
	List(ctx context.Context) ([]*domain.User, error)
	UpdateRole(ctx context.Context, nickname string, role domain.Role) error
	Delete(ctx context.Context, nickname string) error
}

// TaskStore is implemented by the Postgres, SQLite and memory task repositories.
//
// Mutate and Delete hold the task exclusively while fn/check runs, so two
// callers working on the same id are serialized; an error from fn/check
// aborts without writing.
type TaskStore interface {
	Create(ctx context.Context, t *domain.Task) error
	GetByID(ctx context.Context, id int64) (*domain.Task, error)
	List(ctx context.Context) ([]*domain.Task, error)
	Mutate(ctx context.Context, id int64, fn func(t *domain.Task) error) (*domain.Task, error)
	Delete(ctx context.Context, id int64, check func(t *domain.Task) error) error
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

// classify keeps domain errors as they are, turns an expired deadline into
// domain.ErrTimeout and everything else from storage into
// domain.ErrStorageUnavailable.
func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %w", domain.ErrTimeout, err)
	case domain.Code(err) != "InternalError":
		return err
	case errors.Is(err, context.Canceled):
		return err
	default:
		return fmt.Errorf("%w: %w", domain.ErrStorageUnavailable, err)
	}
}

// runCtx runs fn in its own goroutine and gives up when ctx is done.
// Used for bcrypt, which cannot be interrupted.
func runCtx[T any](ctx context.Context, fn func() (T, error)) (T, error) {
	type result struct {
		v   T
		err error
	}
	ch := make(chan result, 1)
	go func() {
		v, err := fn()
		ch <- result{v, err}
	}()

	select {
	case r := <-ch:
		return r.v, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
