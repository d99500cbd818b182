package auth

import (
	"github.com/gin-gonic/gin"
)

// ContextIdentityKey is the gin context key under which the auth middleware
// stores the resolved *Identity.
const ContextIdentityKey = "identity"

// IdentityFromContext returns the resolved identity for the request, or nil
// when the request was not authenticated (optional-auth endpoints).
func IdentityFromContext(c *gin.Context) *Identity {
	v, ok := c.Get(ContextIdentityKey)
	if !ok {
		return nil
	}
	identity, _ := v.(*Identity)
	return identity
}
