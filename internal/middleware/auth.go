package middleware

import (
	"context"
	"net/http"
	"strings"

	"deepfake-guard/internal/model"
	"github.com/gin-gonic/gin"
)

const (
	userIDContextKey = "userID"
	userContextKey   = "user"
	tokenContextKey  = "token"
)

// TokenVerifier resolves a bearer token to the user currently holding it.
type TokenVerifier interface {
	ResolveToken(ctx context.Context, token string) (model.User, error)
}

func UserIDFromContext(c *gin.Context) (string, bool) {
	userID, ok := c.Get(userIDContextKey)
	if !ok {
		return "", false
	}
	value, ok := userID.(string)
	return value, ok && value != ""
}

func UserFromContext(c *gin.Context) (model.User, bool) {
	v, ok := c.Get(userContextKey)
	if !ok {
		return model.User{}, false
	}
	u, ok := v.(model.User)
	return u, ok
}

func TokenFromContext(c *gin.Context) string {
	return c.GetString(tokenContextKey)
}

// BearerToken extracts the token from an "Authorization: Bearer" header.
func BearerToken(header string) (string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}

func RequireAuth(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := BearerToken(c.GetHeader("Authorization"))
		if !ok {
			abortUnauthorized(c)
			return
		}

		user, err := verifier.ResolveToken(c.Request.Context(), token)
		if err != nil {
			abortUnauthorized(c)
			return
		}

		c.Set(userIDContextKey, user.ID)
		c.Set(userContextKey, user)
		c.Set(tokenContextKey, token)
		c.Next()
	}
}

func abortUnauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error": "Invalid authentication token",
		"code":  model.Code(model.ErrInvalidToken),
	})
}
