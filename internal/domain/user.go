package domain

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// Role - роль пользователя
type Role string

const (
	RoleUser    Role = "user"
	RoleManager Role = "manager"
	RoleAdmin   Role = "admin"
)

// Roles lists every role in ascending privilege order.
var Roles = []Role{RoleUser, RoleManager, RoleAdmin}

// ParseRole accepts only the three known roles.
func ParseRole(s string) (Role, error) {
	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case RoleUser, RoleManager, RoleAdmin:
		return r, nil
	default:
		return "", fmt.Errorf("%w: unknown role %q", ErrValidation, s)
	}
}

// IsPrivileged reports whether the role may manage tasks of others.
func (r Role) IsPrivileged() bool {
	return r == RoleManager || r == RoleAdmin
}

type User struct {
	ID           int64     `db:"id" json:"-"`
	Nickname     string    `db:"nickname" json:"nickname"`
	PasswordHash string    `db:"password_hash" json:"-"`
	FirstName    string    `db:"first_name" json:"firstName"`
	LastName     string    `db:"last_name" json:"lastName"`
	Patronymic   string    `db:"patronymic" json:"patronymic"`
	Role         Role      `db:"role" json:"role"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
}

// DisplayName returns "Lastname F.P." - the form copied into tasks.
func (u *User) DisplayName() string {
	return DisplayName(u.FirstName, u.LastName, u.Patronymic)
}

// FullName is what assignee search matches against.
func (u *User) FullName() string {
	return u.LastName + " " + u.FirstName + " " + u.Patronymic
}

func DisplayName(firstName, lastName, patronymic string) string {
	var b strings.Builder
	b.WriteString(lastName)
	b.WriteByte(' ')
	if r, _ := utf8.DecodeRuneInString(firstName); r != utf8.RuneError {
		b.WriteRune(r)
		b.WriteByte('.')
	}
	if r, _ := utf8.DecodeRuneInString(patronymic); r != utf8.RuneError {
		b.WriteRune(r)
		b.WriteByte('.')
	}
	return b.String()
}

// Actor is the authenticated caller of a single request.
type Actor struct {
	Nickname    string
	DisplayName string
	Role        Role
}

func ActorFromUser(u *User) Actor {
	return Actor{
		Nickname:    u.Nickname,
		DisplayName: u.DisplayName(),
		Role:        u.Role,
	}
}
