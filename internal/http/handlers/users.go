package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/SINTT/TODO/internal/domain"
	"github.com/SINTT/TODO/internal/query"

	"github.com/gin-gonic/gin"
)

type UpdateRoleRequest struct {
	Nickname string `json:"nickname"`
	Role     string `json:"role"`
}

type DeleteUserRequest struct {
	Nickname string `json:"nickname"`
}

// ListUsers serves both the admin list (exclude_self=true) and the
// assignee picker (q=..., role=user).
func (h *Handler) ListUsers(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}

	var roleFilter *domain.Role
	if raw := c.Query("role"); raw != "" {
		role, err := domain.ParseRole(raw)
		if err != nil {
			respondError(c, err)
			return
		}
		roleFilter = &role
	}

	excluding := ""
	if raw := c.Query("exclude_self"); raw != "" {
		exclude, err := strconv.ParseBool(raw)
		if err != nil {
			badRequest(c, "exclude_self must be a boolean")
			return
		}
		if exclude {
			excluding = actor.Nickname
		}
	}

	page, err := queryInt(c, "page")
	if err != nil {
		respondError(c, err)
		return
	}
	size, err := queryInt(c, "page_size")
	if err != nil {
		respondError(c, err)
		return
	}

	users, err := h.Identity.ListUsers(c.Request.Context(), excluding)
	if err != nil {
		respondError(c, err)
		return
	}
	users = query.SearchUsersByName(users, c.Query("q"), roleFilter)

	views := make([]userView, 0, len(users))
	for _, u := range users {
		views = append(views, newUserView(u))
	}
	respondOK(c, http.StatusOK, query.Paginate(views, page, size))
}

func (h *Handler) UpdateRole(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}

	var req UpdateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	if req.Nickname == "" {
		badRequest(c, "nickname is required")
		return
	}

	role, err := domain.ParseRole(req.Role)
	if err != nil {
		respondError(c, err)
		return
	}

	if err := h.Identity.UpdateRole(c.Request.Context(), actor, req.Nickname, role); err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, gin.H{"nickname": req.Nickname, "role": role})
}

// DeleteUser removes the caller's account. The body is optional; a
// nickname other than the caller's is refused by the service.
func (h *Handler) DeleteUser(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}

	var req DeleteUserRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		badRequest(c, "invalid request body")
		return
	}
	if req.Nickname == "" {
		req.Nickname = actor.Nickname
	}

	if err := h.Identity.DeleteUser(c.Request.Context(), actor, req.Nickname); err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, gin.H{"nickname": req.Nickname})
}
