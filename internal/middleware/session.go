package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/emilythestrangee/readit/backend/internal/auth"
	"github.com/emilythestrangee/readit/backend/internal/models"
)

const (
	userKey   = "user"
	userIDKey = "user_id"
)

type UserFinder interface {
	FindByID(ctx context.Context, id int) (*models.User, error)
}

// User loads the session user, if any, into the context. Requests without
// a valid session continue anonymously.
func User(users UserFinder, tokens *auth.Tokens) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := sessionToken(c)
		if tokenString == "" {
			c.Next()
			return
		}

		claims, err := tokens.Parse(tokenString)
		if err != nil {
			log.Debug().Err(err).Msg("ignoring invalid session token")
			c.Next()
			return
		}

		user, err := users.FindByID(c.Request.Context(), claims.UserID)
		if err != nil {
			log.Debug().Err(err).Int("user_id", claims.UserID).Msg("session user not found")
			c.Next()
			return
		}

		SetUser(c, user)
		c.Next()
	}
}

// Auth rejects requests that User did not authenticate.
func Auth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentUser(c) == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthenticated"})
			return
		}
		c.Next()
	}
}

func SetUser(c *gin.Context, user *models.User) {
	c.Set(userKey, user)
	c.Set(userIDKey, user.ID)
}

// CurrentUser returns the authenticated user, or nil.
func CurrentUser(c *gin.Context) *models.User {
	raw, exists := c.Get(userKey)
	if !exists {
		return nil
	}
	user, _ := raw.(*models.User)
	return user
}

// sessionToken prefers the session cookie and falls back to a bearer header.
func sessionToken(c *gin.Context) string {
	if cookie, err := c.Cookie(auth.CookieName); err == nil && cookie != "" {
		return cookie
	}
	header := c.GetHeader("Authorization")
	const prefix = "Bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}
