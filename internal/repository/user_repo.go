package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/SINTT/TODO/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const pgUniqueViolation = "23505"

type UserRepository struct {
	db *pgxpool.Pool
}

func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts u and fills ID and CreatedAt. A taken nickname yields
// domain.ErrDuplicateIdentity.
func (r *UserRepository) Create(ctx context.Context, u *domain.User) error {
	err := r.db.QueryRow(ctx,
		`INSERT INTO users (nickname, password_hash, first_name, last_name, patronymic, role)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, created_at`,
		u.Nickname,
		u.PasswordHash,
		u.FirstName,
		u.LastName,
		u.Patronymic,
		string(u.Role),
	).Scan(&u.ID, &u.CreatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("user %q: %w", u.Nickname, domain.ErrDuplicateIdentity)
	}
	return err
}

func (r *UserRepository) GetByNickname(ctx context.Context, nickname string) (*domain.User, error) {
	row := r.db.QueryRow(ctx,
		`SELECT id, nickname, password_hash, first_name, last_name, patronymic, role, created_at
		 FROM users
		 WHERE nickname = $1`,
		nickname,
	)

	u, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("user %q: %w", nickname, domain.ErrNotFound)
	}
	return u, err
}

// List returns all users in registration order.
func (r *UserRepository) List(ctx context.Context) ([]*domain.User, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, nickname, password_hash, first_name, last_name, patronymic, role, created_at
		 FROM users
		 ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	res := make([]*domain.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, u)
	}
	return res, rows.Err()
}

func (r *UserRepository) UpdateRole(ctx context.Context, nickname string, role domain.Role) error {
	result, err := r.db.Exec(ctx,
		`UPDATE users SET role = $1 WHERE nickname = $2`,
		string(role), nickname,
	)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("user %q: %w", nickname, domain.ErrNotFound)
	}
	return nil
}

// Delete removes the account only; tasks keep their copied names.
func (r *UserRepository) Delete(ctx context.Context, nickname string) error {
	result, err := r.db.Exec(ctx, `DELETE FROM users WHERE nickname = $1`, nickname)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("user %q: %w", nickname, domain.ErrNotFound)
	}
	return nil
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var (
		u    domain.User
		role string
	)
	if err := row.Scan(
		&u.ID,
		&u.Nickname,
		&u.PasswordHash,
		&u.FirstName,
		&u.LastName,
		&u.Patronymic,
		&role,
		&u.CreatedAt,
	); err != nil {
		return nil, err
	}
	u.Role = domain.Role(role)
	return &u, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}
