// Package policy decides which role may perform which mutation.
//
// Can is a pure function: it never touches storage, and every
// (role, action) pair has a defined answer. Anything it does not
// recognise is denied.
package policy

import "github.com/SINTT/TODO/internal/domain"

type Action int

const (
	ActionCreateTask Action = iota + 1
	ActionDeleteTask
	ActionViewTasks
	ActionChangeTaskStatus
	ActionAssignTask
	ActionUpdateUserRole
	ActionDeleteOwnAccount
	ActionViewStats
)

// Actions lists every known action.
var Actions = []Action{
	ActionCreateTask,
	ActionDeleteTask,
	ActionViewTasks,
	ActionChangeTaskStatus,
	ActionAssignTask,
	ActionUpdateUserRole,
	ActionDeleteOwnAccount,
	ActionViewStats,
}

func (a Action) String() string {
	switch a {
	case ActionCreateTask:
		return "CreateTask"
	case ActionDeleteTask:
		return "DeleteTask"
	case ActionViewTasks:
		return "ViewTasks"
	case ActionChangeTaskStatus:
		return "ChangeTaskStatus"
	case ActionAssignTask:
		return "AssignTask"
	case ActionUpdateUserRole:
		return "UpdateUserRole"
	case ActionDeleteOwnAccount:
		return "DeleteOwnAccount"
	case ActionViewStats:
		return "ViewStats"
	default:
		return "Unknown"
	}
}

// Context carries the facts a decision may depend on.
type Context struct {
	// ActorNickname / ActorDisplayName identify the caller.
	ActorNickname    string
	ActorDisplayName string
	// TaskAssignee is the denormalized assignedTo of the task being changed.
	TaskAssignee string
	// TargetNickname is the account a user-level action applies to.
	TargetNickname string
}

// Can reports whether role may perform action in the given context.
func Can(role domain.Role, action Action, c Context) bool {
	if !known(role) {
		return false
	}

	switch action {
	case ActionCreateTask, ActionDeleteTask, ActionAssignTask:
		return role.IsPrivileged()

	case ActionUpdateUserRole:
		// Админ не может менять роль самому себе
		return role == domain.RoleAdmin &&
			c.TargetNickname != "" &&
			c.TargetNickname != c.ActorNickname

	case ActionChangeTaskStatus:
		if role.IsPrivileged() {
			return true
		}
		return c.ActorDisplayName != "" && c.ActorDisplayName == c.TaskAssignee

	case ActionViewTasks:
		return true

	case ActionViewStats:
		return role == domain.RoleAdmin

	case ActionDeleteOwnAccount:
		return c.ActorNickname != "" && c.TargetNickname == c.ActorNickname

	default:
		return false
	}
}

func known(role domain.Role) bool {
	switch role {
	case domain.RoleUser, domain.RoleManager, domain.RoleAdmin:
		return true
	default:
		return false
	}
}
