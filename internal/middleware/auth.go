package middleware

import (
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/yukikurage/workspace-task-api/internal/constants"
	apierrors "github.com/yukikurage/workspace-task-api/internal/errors"
)

// RequireAuth lets a request through only when its session carries a user id
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := toUserID(sessions.Default(c).Get(constants.ContextKeyUserID))
		if !ok {
			apierrors.Unauthorized(c, "")
			return
		}

		c.Set(constants.ContextKeyUserID, userID)
		c.Next()
	}
}

// StartSession binds the session to userID
func StartSession(c *gin.Context, userID uint64) error {
	session := sessions.Default(c)
	session.Clear()
	session.Set(constants.ContextKeyUserID, userID)
	return session.Save()
}

// EndSession forgets the signed-in user
func EndSession(c *gin.Context) error {
	session := sessions.Default(c)
	session.Clear()
	session.Options(sessions.Options{Path: "/", MaxAge: -1})
	return session.Save()
}

// GetUserID retrieves the current user ID from context
func GetUserID(c *gin.Context) (uint64, bool) {
	userID, exists := c.Get(constants.ContextKeyUserID)
	if !exists {
		return 0, false
	}
	return toUserID(userID)
}

// toUserID accepts the integer types session stores decode to. Zero is never a user.
func toUserID(value any) (uint64, bool) {
	var id uint64
	switch v := value.(type) {
	case uint64:
		id = v
	case uint:
		id = uint64(v)
	case int:
		if v < 0 {
			return 0, false
		}
		id = uint64(v)
	case int64:
		if v < 0 {
			return 0, false
		}
		id = uint64(v)
	default:
		return 0, false
	}
	return id, id != 0
}
