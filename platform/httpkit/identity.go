package httpkit

import (
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Identity is the caller as established by AuthRequired. Jurors sign in with
// their juror id as the token subject.
type Identity interface {
	UserID() uuid.UUID
	HasRole(role string) bool
	IsManager() bool
	// JurorScope is nil for managers and the caller's own juror id otherwise.
	// List endpoints use it to restrict jurors to their own rows.
	JurorScope() *uuid.UUID
	IsAuthenticated() bool
}

type identity struct {
	userID uuid.UUID
	roles  []string
}

func (i *identity) UserID() uuid.UUID { return i.userID }

func (i *identity) HasRole(role string) bool { return slices.Contains(i.roles, role) }

func (i *identity) IsManager() bool { return i.HasRole(RoleManager) }

func (i *identity) JurorScope() *uuid.UUID {
	if i.IsManager() {
		return nil
	}
	id := i.userID
	return &id
}

func (i *identity) IsAuthenticated() bool { return i.userID != uuid.Nil }

// GetIdentity reads the identity stored by AuthRequired. The result is
// unauthenticated when no valid user id is present.
func GetIdentity(c *gin.Context) Identity {
	id := &identity{}
	if v, ok := c.Get(ContextUserIDKey); ok {
		id.userID, _ = v.(uuid.UUID)
	}
	if v, ok := c.Get(ContextRolesKey); ok {
		id.roles, _ = v.([]string)
	}
	return id
}

// MustGetIdentity aborts with 401 and returns nil for unauthenticated callers.
func MustGetIdentity(c *gin.Context) Identity {
	id := GetIdentity(c)
	if !id.IsAuthenticated() {
		Error(c, http.StatusUnauthorized, "unauthorized", nil)
		c.Abort()
		return nil
	}
	return id
}
