package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/SINTT/TODO/internal/domain"
	"github.com/SINTT/TODO/internal/policy"
	"github.com/SINTT/TODO/internal/service"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	Identity *service.IdentityService
	Tasks    *service.TaskService
	Tokens   *service.TokenService
	Admin    *service.AdminService
}

func NewHandler(identity *service.IdentityService, tasks *service.TaskService, tokens *service.TokenService, admin *service.AdminService) *Handler {
	return &Handler{
		Identity: identity,
		Tasks:    tasks,
		Tokens:   tokens,
		Admin:    admin,
	}
}

// getActor извлекает actor из контекста Gin (кладёт middleware.Auth)
func getActor(c *gin.Context) (domain.Actor, bool) {
	v, ok := c.Get("actor")
	if !ok {
		return domain.Actor{}, false
	}
	actor, ok := v.(domain.Actor)
	return actor, ok
}

func mustActor(c *gin.Context) (domain.Actor, bool) {
	actor, ok := getActor(c)
	if !ok {
		respondFail(c, http.StatusUnauthorized, codeUnauthenticated, "authentication required")
	}
	return actor, ok
}

func parseTaskID(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid task id %q", domain.ErrValidation, c.Param("id"))
	}
	return id, nil
}

func queryInt(c *gin.Context, key string) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be a number", domain.ErrValidation, key)
	}
	return n, nil
}

// authorize checks a role-only action before the handler touches other
// stores, so a denied caller never learns whether an assignee exists.
func authorize(c *gin.Context, actor domain.Actor, action policy.Action) bool {
	if policy.Can(actor.Role, action, policy.Context{
		ActorNickname:    actor.Nickname,
		ActorDisplayName: actor.DisplayName,
	}) {
		return true
	}
	respondError(c, fmt.Errorf("%s: %w", action, domain.ErrForbidden))
	return false
}

// resolveAssignee returns the display name tasks store for assignee.
// A nickname wins over a ready display name when both are sent.
func (h *Handler) resolveAssignee(ctx context.Context, displayName, nickname string) (string, error) {
	if nickname == "" {
		return displayName, nil
	}
	u, err := h.Identity.GetUser(ctx, nickname)
	if err != nil {
		return "", err
	}
	return u.DisplayName(), nil
}
