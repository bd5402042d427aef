package handlers

import (
	"net/http"

	"github.com/SINTT/TODO/internal/domain"
	"github.com/SINTT/TODO/internal/logger"

	"github.com/gin-gonic/gin"
)

const codeUnauthenticated = "Unauthenticated"

func respondOK(c *gin.Context, status int, data any) {
	c.JSON(status, gin.H{"success": true, "data": data})
}

func respondFail(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{
		"success": false,
		"error":   gin.H{"code": code, "message": message},
	})
}

// respondError maps err onto the status and code of its domain kind.
func respondError(c *gin.Context, err error) {
	code := domain.Code(err)
	status := StatusFor(code)

	msg := err.Error()
	if status >= http.StatusInternalServerError {
		logger.WithContext(c.Request.Context()).Error("request failed",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"code", code,
			"error", err,
		)
		msg = http.StatusText(status)
	}
	respondFail(c, status, code, msg)
}

func StatusFor(code string) int {
	switch code {
	case "ValidationError":
		return http.StatusBadRequest
	case "DuplicateIdentity", "InvalidTransition":
		return http.StatusConflict
	case "NotFound":
		return http.StatusNotFound
	case "InvalidCredential", codeUnauthenticated:
		return http.StatusUnauthorized
	case "Forbidden":
		return http.StatusForbidden
	case "RateLimited":
		return http.StatusTooManyRequests
	case "Timeout":
		return http.StatusGatewayTimeout
	case "StorageUnavailable":
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func badRequest(c *gin.Context, message string) {
	respondFail(c, http.StatusBadRequest, "ValidationError", message)
}
