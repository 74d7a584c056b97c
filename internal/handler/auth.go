package handler

import (
	"log/slog"
	"net/http"

	"deepfake-guard/internal/auth"
	"deepfake-guard/internal/middleware"
	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	Auth   *auth.Service
	Logger *slog.Logger
}

type registerBody struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type loginBody struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type federatedBody struct {
	Credential string `json:"credential"`
}

func (h *AuthHandler) Register(c *gin.Context) {
	var body registerBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c)
		return
	}
	res, err := h.Auth.Register(c.Request.Context(), body.Email, body.Password, body.Name)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (h *AuthHandler) Login(c *gin.Context) {
	var body loginBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c)
		return
	}
	res, err := h.Auth.Login(c.Request.Context(), body.Email, body.Password)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *AuthHandler) Federated(c *gin.Context) {
	var body federatedBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c)
		return
	}
	res, err := h.Auth.FederatedLogin(c.Request.Context(), body.Credential)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Logout never revokes anything server side.
func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.Auth.Logout(c.Request.Context()); err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Verify runs the full token check, simulated latency included. RequireAuth
// has already resolved the token by the time this runs.
func (h *AuthHandler) Verify(c *gin.Context) {
	user, err := h.Auth.VerifyToken(c.Request.Context(), middleware.TokenFromContext(c))
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}
