package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Stats отдаёт сводку по пользователям и задачам (только admin)
func (h *Handler) Stats(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}

	stats, err := h.Admin.GetStats(c.Request.Context(), actor)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, stats)
}
