package middleware

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/notevault/backend/internal/auth"
	"github.com/notevault/backend/pkg/response"
)

// Authenticate returns a middleware that resolves the bearer token into a
// verified tenant-scoped identity and stores it in the request context.
// Every auth error maps to 401; resolution never guesses an identity.
func Authenticate(resolver *auth.Resolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, err := resolver.Resolve(c.Request.Context(), c.GetHeader("Authorization"))
		if err != nil {
			response.Unauthorized(c, authErrorMessage(err))
			c.Abort()
			return
		}
		c.Set(auth.ContextIdentityKey, identity)
		c.Next()
	}
}

// OptionalAuthenticate resolves the identity when a valid token is present
// and proceeds anonymously otherwise. Handlers see a nil identity for
// unauthenticated callers.
func OptionalAuthenticate(resolver *auth.Resolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		if identity := resolver.ResolveOptional(c.Request.Context(), c.GetHeader("Authorization")); identity != nil {
			c.Set(auth.ContextIdentityKey, identity)
		}
		c.Next()
	}
}

func authErrorMessage(err error) string {
	switch {
	case errors.Is(err, auth.ErrMissingToken),
		errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrRevoked),
		errors.Is(err, auth.ErrTenantInactive):
		return err.Error()
	default:
		return "authentication failed"
	}
}
