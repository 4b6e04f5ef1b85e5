package authentication

import (
	"fmt"
	"strings"

	"devcamper-backend/apperror"
	"devcamper-backend/users"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const userKey = "user"

// Protect resolves the caller from a Bearer header, falling back to the
// session cookie, and stores the user on the context.
func (h *Handler) Protect() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := h.service.Authenticate(c.Request.Context(), bearerToken(c))
		if err != nil {
			apperror.Respond(c, h.logger, err)
			return
		}
		SetCurrentUser(c, user)
		c.Next()
	}
}

// Authorize admits only the given roles. It must run after Protect.
func (h *Handler) Authorize(roles ...users.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil {
			apperror.Respond(c, h.logger, apperror.NewUnauthorized("Not authorized to access this route"))
			return
		}
		for _, r := range roles {
			if user.Role == r {
				c.Next()
				return
			}
		}
		apperror.Respond(c, h.logger, apperror.NewForbidden(fmt.Sprintf("User role %s is not authorized to access this route", user.Role)))
	}
}

// SetCurrentUser attaches an authenticated user to the request.
func SetCurrentUser(c *gin.Context, user *users.User) {
	c.Set(userKey, user)
	c.Set("user_id", user.ID.Hex())
}

// CurrentUser returns the user stored by Protect, or nil.
func CurrentUser(c *gin.Context) *users.User {
	v, ok := c.Get(userKey)
	if !ok {
		return nil
	}
	user, _ := v.(*users.User)
	return user
}

// CanModify reports whether user may change a resource owned by ownerID.
func CanModify(user *users.User, ownerID primitive.ObjectID) bool {
	if user == nil {
		return false
	}
	return user.Role == users.RoleAdmin || user.ID == ownerID
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if token, ok := strings.CutPrefix(header, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	if token, err := c.Cookie(cookieName); err == nil && token != "none" {
		return token
	}
	return ""
}
