package httpkit

import (
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Identity is the authenticated caller as set by AuthRequired. Every pipeline
// record is scoped to UserID, which handlers pass down as the owner id.
type Identity struct {
	UserID uuid.UUID
	Roles  []string
}

// HasRole reports whether the token carried role.
func (i Identity) HasRole(role string) bool {
	return slices.Contains(i.Roles, role)
}

// GetIdentity reads the caller from c. ok is false on routes without
// AuthRequired or when the stored subject is not a uuid.
func GetIdentity(c *gin.Context) (Identity, bool) {
	raw, exists := c.Get(ContextUserIDKey)
	if !exists {
		return Identity{}, false
	}
	userID, ok := raw.(uuid.UUID)
	if !ok || userID == uuid.Nil {
		return Identity{}, false
	}

	roles, _ := c.Get(ContextRolesKey)
	roleList, _ := roles.([]string)
	return Identity{UserID: userID, Roles: roleList}, true
}

// MustGetOwnerID returns the caller's id, or aborts with 401 and false.
func MustGetOwnerID(c *gin.Context) (uuid.UUID, bool) {
	id, ok := GetIdentity(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return uuid.Nil, false
	}
	return id.UserID, true
}
