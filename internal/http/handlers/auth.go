package handlers

import (
	"net/http"
	"time"

	"github.com/SINTT/TODO/internal/domain"
	"github.com/SINTT/TODO/internal/service"

	"github.com/gin-gonic/gin"
)

type RegisterRequest struct {
	Nickname   string `json:"nickname"`
	Password   string `json:"password"`
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
	Patronymic string `json:"patronymic"`
}

type LoginRequest struct {
	Nickname string `json:"nickname" form:"nickname"`
	Password string `json:"password" form:"password"`
}

type userView struct {
	Nickname    string      `json:"nickname"`
	FirstName   string      `json:"firstName"`
	LastName    string      `json:"lastName"`
	Patronymic  string      `json:"patronymic"`
	DisplayName string      `json:"displayName"`
	Role        domain.Role `json:"role"`
}

func newUserView(u *domain.User) userView {
	return userView{
		Nickname:    u.Nickname,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		Patronymic:  u.Patronymic,
		DisplayName: u.DisplayName(),
		Role:        u.Role,
	}
}

func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	u, err := h.Identity.Register(c.Request.Context(), service.RegisterInput{
		Nickname:   req.Nickname,
		Credential: req.Password,
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		Patronymic: req.Patronymic,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusCreated, gin.H{"nickname": u.Nickname})
}

// Login accepts a JSON body on POST and query parameters on GET; the
// mobile client still uses the GET form.
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	var err error
	if c.Request.Method == http.MethodGet {
		err = c.ShouldBindQuery(&req)
	} else {
		err = c.ShouldBindJSON(&req)
	}
	if err != nil {
		badRequest(c, "invalid request")
		return
	}
	if req.Nickname == "" || req.Password == "" {
		badRequest(c, "nickname and password are required")
		return
	}

	u, err := h.Identity.Authenticate(c.Request.Context(), req.Nickname, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	token, err := h.Tokens.Generate(u.Nickname)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, gin.H{
		"token":       token,
		"expiresAt":   time.Now().Add(h.Tokens.TTL()).UTC(),
		"nickname":    u.Nickname,
		"role":        u.Role,
		"firstName":   u.FirstName,
		"lastName":    u.LastName,
		"patronymic":  u.Patronymic,
		"displayName": u.DisplayName(),
	})
}

func (h *Handler) Me(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}

	u, err := h.Identity.GetUser(c.Request.Context(), actor.Nickname)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, newUserView(u))
}
