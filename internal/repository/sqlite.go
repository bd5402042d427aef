package repository

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/SINTT/TODO/internal/domain"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type userRow struct {
	ID           int64  `gorm:"primaryKey;autoIncrement"`
	Nickname     string `gorm:"uniqueIndex;not null"`
	PasswordHash string `gorm:"not null"`
	FirstName    string `gorm:"not null"`
	LastName     string `gorm:"not null"`
	Patronymic   string `gorm:"not null"`
	Role         string `gorm:"not null;default:user"`
	CreatedAt    time.Time
}

func (userRow) TableName() string { return "users" }

type taskRow struct {
	ID          int64  `gorm:"primaryKey;autoIncrement"`
	Title       string `gorm:"not null"`
	Description string `gorm:"not null"`
	Priority    string `gorm:"not null"`
	Status      string `gorm:"not null;index"`
	CreatedBy   string `gorm:"not null"`
	CreatorRole string `gorm:"not null"`
	AssignedTo  string `gorm:"not null;index"`
	CreatedAt   time.Time
	DueDate     time.Time `gorm:"index"`
}

func (taskRow) TableName() string { return "tasks" }

// NewSQLiteDB opens a SQLite database and runs migrations. The pool is
// limited to one connection so transactions never interleave.
func NewSQLiteDB(dsn string) (*gorm.DB, error) {
	if dsn == "" {
		dsn = "tasks.db"
	}

	if err := ensureDirForSQLite(dsn); err != nil {
		return nil, err
	}

	dbLogger := gormlogger.New(
		log.New(os.Stdout, "", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         dbLogger,
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&userRow{}, &taskRow{}); err != nil {
		return nil, fmt.Errorf("migrate db: %w", err)
	}

	return db, nil
}

// ensureDirForSQLite creates parent dir for SQLite file if needed.
func ensureDirForSQLite(dsn string) error {
	if strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory") {
		return nil
	}
	clean := strings.TrimPrefix(dsn, "file:")
	clean = strings.Split(clean, "?")[0]
	dir := filepath.Dir(clean)
	if dir == "." || dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create db dir %q: %w", dir, err)
	}
	return nil
}

// SQLitePinger adapts *gorm.DB to the health checker.
type SQLitePinger struct {
	DB *gorm.DB
}

func (p SQLitePinger) Ping(ctx context.Context) error {
	sqlDB, err := p.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

type SQLiteUserRepository struct {
	db *gorm.DB
}

func NewSQLiteUserRepository(db *gorm.DB) *SQLiteUserRepository {
	return &SQLiteUserRepository{db: db}
}

func (r *SQLiteUserRepository) Create(ctx context.Context, u *domain.User) error {
	row := userRow{
		Nickname:     u.Nickname,
		PasswordHash: u.PasswordHash,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		Patronymic:   u.Patronymic,
		Role:         string(u.Role),
		CreatedAt:    time.Now().UTC(),
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("user %q: %w", u.Nickname, domain.ErrDuplicateIdentity)
		}
		return fmt.Errorf("create user: %w", err)
	}
	u.ID = row.ID
	u.CreatedAt = row.CreatedAt
	return nil
}

func (r *SQLiteUserRepository) GetByNickname(ctx context.Context, nickname string) (*domain.User, error) {
	var row userRow
	if err := r.db.WithContext(ctx).Where("nickname = ?", nickname).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("user %q: %w", nickname, domain.ErrNotFound)
		}
		return nil, err
	}
	return row.toDomain(), nil
}

func (r *SQLiteUserRepository) List(ctx context.Context) ([]*domain.User, error) {
	var rows []userRow
	if err := r.db.WithContext(ctx).Order("id").Find(&rows).Error; err != nil {
		return nil, err
	}
	res := make([]*domain.User, 0, len(rows))
	for i := range rows {
		res = append(res, rows[i].toDomain())
	}
	return res, nil
}

func (r *SQLiteUserRepository) UpdateRole(ctx context.Context, nickname string, role domain.Role) error {
	res := r.db.WithContext(ctx).Model(&userRow{}).Where("nickname = ?", nickname).Update("role", string(role))
	if res.Error != nil {
		return fmt.Errorf("update role: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("user %q: %w", nickname, domain.ErrNotFound)
	}
	return nil
}

func (r *SQLiteUserRepository) Delete(ctx context.Context, nickname string) error {
	res := r.db.WithContext(ctx).Where("nickname = ?", nickname).Delete(&userRow{})
	if res.Error != nil {
		return fmt.Errorf("delete user: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("user %q: %w", nickname, domain.ErrNotFound)
	}
	return nil
}

type SQLiteTaskRepository struct {
	db *gorm.DB
}

func NewSQLiteTaskRepository(db *gorm.DB) *SQLiteTaskRepository {
	return &SQLiteTaskRepository{db: db}
}

func (r *SQLiteTaskRepository) Create(ctx context.Context, t *domain.Task) error {
	row := taskRowFromDomain(t)
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	t.ID = row.ID
	return nil
}

func (r *SQLiteTaskRepository) GetByID(ctx context.Context, id int64) (*domain.Task, error) {
	return findTask(r.db.WithContext(ctx), id)
}

func (r *SQLiteTaskRepository) List(ctx context.Context) ([]*domain.Task, error) {
	var rows []taskRow
	if err := r.db.WithContext(ctx).Order("id").Find(&rows).Error; err != nil {
		return nil, err
	}
	res := make([]*domain.Task, 0, len(rows))
	for i := range rows {
		res = append(res, rows[i].toDomain())
	}
	return res, nil
}

func (r *SQLiteTaskRepository) Mutate(ctx context.Context, id int64, fn func(t *domain.Task) error) (*domain.Task, error) {
	var out *domain.Task
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		t, err := findTask(tx, id)
		if err != nil {
			return err
		}
		if err := fn(t); err != nil {
			return err
		}
		if err := tx.Model(&taskRow{}).Where("id = ?", id).Updates(map[string]any{
			"status":      string(t.Status),
			"assigned_to": t.AssignedTo,
		}).Error; err != nil {
			return fmt.Errorf("update task: %w", err)
		}
		out = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *SQLiteTaskRepository) Delete(ctx context.Context, id int64, check func(t *domain.Task) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		t, err := findTask(tx, id)
		if err != nil {
			return err
		}
		if err := check(t); err != nil {
			return err
		}
		if err := tx.Delete(&taskRow{}, id).Error; err != nil {
			return fmt.Errorf("delete task: %w", err)
		}
		return nil
	})
}

func findTask(db *gorm.DB, id int64) (*domain.Task, error) {
	var row taskRow
	if err := db.First(&row, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("task %d: %w", id, domain.ErrNotFound)
		}
		return nil, err
	}
	return row.toDomain(), nil
}

func (row *userRow) toDomain() *domain.User {
	return &domain.User{
		ID:           row.ID,
		Nickname:     row.Nickname,
		PasswordHash: row.PasswordHash,
		FirstName:    row.FirstName,
		LastName:     row.LastName,
		Patronymic:   row.Patronymic,
		Role:         domain.Role(row.Role),
		CreatedAt:    row.CreatedAt,
	}
}

func taskRowFromDomain(t *domain.Task) taskRow {
	return taskRow{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Priority:    string(t.Priority),
		Status:      string(t.Status),
		CreatedBy:   t.CreatedBy,
		CreatorRole: string(t.CreatorRole),
		AssignedTo:  t.AssignedTo,
		CreatedAt:   t.CreatedAt,
		DueDate:     t.DueDate,
	}
}

func (row *taskRow) toDomain() *domain.Task {
	return &domain.Task{
		ID:          row.ID,
		Title:       row.Title,
		Description: row.Description,
		Priority:    domain.Priority(row.Priority),
		Status:      domain.Status(row.Status),
		CreatedBy:   row.CreatedBy,
		CreatorRole: domain.Role(row.CreatorRole),
		AssignedTo:  row.AssignedTo,
		CreatedAt:   row.CreatedAt,
		DueDate:     row.DueDate,
	}
}
