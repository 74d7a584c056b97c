package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"deepfake-guard/internal/model"
	"github.com/gin-gonic/gin"
)

// StatusFor maps a taxonomy error to its HTTP status.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, model.ErrDuplicateEmail):
		return http.StatusConflict
	case errors.Is(err, model.ErrWeakPassword),
		errors.Is(err, model.ErrMissingInput),
		errors.Is(err, model.ErrUnsupportedContentType):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrUserNotFound), errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrInvalidCredentials), errors.Is(err, model.ErrInvalidToken):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, logger *slog.Logger, err error) {
	status := StatusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		if logger != nil {
			logger.Error("request failed", "path", c.FullPath(), "err", err)
		}
		msg = model.ErrOperationFailed.Error()
	}
	c.JSON(status, gin.H{"error": msg, "code": model.Code(err)})
}

func badRequest(c *gin.Context) {
	c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "code": model.Code(model.ErrMissingInput)})
}
