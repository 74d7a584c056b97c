package handler

import (
	"net/http"

	"deepfake-guard/internal/middleware"
	"github.com/gin-gonic/gin"
)

type AccountHandler struct{}

func (h *AccountHandler) Profile(c *gin.Context) {
	user, ok := middleware.UserFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid authentication token", "code": "InvalidToken"})
		return
	}
	c.JSON(http.StatusOK, user)
}
