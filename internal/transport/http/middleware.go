package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/chantalk-server/internal/auth"
	"github.com/vovakirdan/chantalk-server/internal/core"
	"github.com/vovakirdan/chantalk-server/internal/store"
)

const (
	// ContextKeyUserID is the context key for storing user ID.
	ContextKeyUserID = "user_id"
	// ContextKeyUsername is the context key for storing username.
	ContextKeyUsername = "username"
	// ContextKeyIsModerator is the context key for storing moderator status.
	ContextKeyIsModerator = "is_moderator"
)

// AuthMiddleware creates a middleware that validates JWT tokens.
func AuthMiddleware(authService *auth.Service, logger *zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			logger.Debug().Msg("missing authorization header")
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "missing authorization header"})
			c.Abort()
			return
		}

		// Extract token from "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			logger.Debug().Msg("invalid authorization header format")
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid authorization header format"})
			c.Abort()
			return
		}

		token := parts[1]
		claims, err := authService.ValidateToken(token)
		if err != nil {
			logger.Debug().Err(err).Msg("invalid token")
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid token"})
			c.Abort()
			return
		}

		// Store user info in context
		c.Set(ContextKeyUserID, claims.UserID)
		c.Set(ContextKeyUsername, claims.Username)
		c.Set(ContextKeyIsModerator, claims.IsModerator)

		c.Next()
	}
}

// RequireModerator gates a route group to moderators. The flag is re-read
// from the store so a freshly revoked moderator cannot keep acting on an
// old token.
func RequireModerator(users store.UserStore, logger *zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := identityFromContext(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
			c.Abort()
			return
		}

		user, err := users.GetUserByID(c.Request.Context(), id.UserID)
		if err != nil {
			logger.Debug().Err(err).Int64("user_id", id.UserID).Msg("moderator lookup failed")
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
			c.Abort()
			return
		}
		if !user.IsModerator {
			c.JSON(http.StatusForbidden, ErrorResponse{Error: "moderator access required"})
			c.Abort()
			return
		}

		c.Next()
	}
}

// LoggerMiddleware creates a middleware that logs HTTP requests.
func LoggerMiddleware(logger *zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Process request
		c.Next()

		// Log after request
		logger.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Msg("http request")
	}
}

// identityFromContext rebuilds the authenticated identity placed into the
// gin context by AuthMiddleware.
func identityFromContext(c *gin.Context) (core.Identity, bool) {
	rawID, exists := c.Get(ContextKeyUserID)
	if !exists {
		return core.Identity{}, false
	}
	userID, ok := rawID.(int64)
	if !ok {
		return core.Identity{}, false
	}

	username, _ := c.Get(ContextKeyUsername)
	name, _ := username.(string)

	rawMod, _ := c.Get(ContextKeyIsModerator)
	isModerator, _ := rawMod.(bool)

	return core.Identity{UserID: userID, Username: name, IsModerator: isModerator}, true
}
