// auth.go validates the bearer JWT, loads the account, and binds the resolved
// actor to the request context. This is the single place where "who is making
// this request" enters the system: repositories, the attribution injector, and
// the audit recorder all read the actor from the context this middleware
// derives. No handler or service threads a user id by hand.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/agrocore/agrocore/internal/actor"
	"github.com/agrocore/agrocore/internal/auth"
	"github.com/agrocore/agrocore/internal/db/repositories"
)

// Gin context keys populated by AuthMiddleware.
const (
	UserKey     = "user"
	UserIDKey   = "user_id"
	UserRoleKey = "user_role"
)

// AuthMiddleware validates the Authorization header and opens the actor scope
// for the remainder of the request.
func AuthMiddleware(userRepo *repositories.UserRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Missing authorization header",
			})
			return
		}

		if !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Authorization header must start with 'Bearer '",
			})
			return
		}

		token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Authorization token is empty",
			})
			return
		}

		claims, err := auth.ValidateJWT(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid or expired token",
			})
			return
		}

		user, err := userRepo.GetByID(c.Request.Context(), claims.UserID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to load user",
			})
			return
		}
		if user == nil || !user.IsActive {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "User not found or deactivated",
			})
			return
		}

		c.Set(UserKey, user)
		c.Set(UserIDKey, user.ID)
		c.Set(UserRoleKey, user.Role)

		// Bind the actor and request metadata to the request context. Every
		// mutation performed while handling this request is attributed to this
		// user, and only this request observes the binding.
		ctx := actor.WithActor(c.Request.Context(), user.ID)
		ctx = actor.WithRequestInfo(ctx, actor.RequestInfo{
			IPAddress: c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
		})
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// RequireAdmin rejects requests whose authenticated user lacks the admin
// role. Must run after AuthMiddleware.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetString(UserRoleKey)
		if role != "admin" {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "Admin privileges required",
			})
			return
		}
		c.Next()
	}
}
