package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/credisave/internal/auth"
	"github.com/congo-pay/credisave/internal/identity"
)

const (
	localUserID       = "user_id"
	localRole         = "role"
	localTokenVersion = "token_version"
)

// JWTAuth returns a middleware that validates JWT access tokens and checks
// that the token version is still current for an active user.
func JWTAuth(svc *auth.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authz := c.Get(fiber.HeaderAuthorization)
		if !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			return fiber.NewError(http.StatusUnauthorized, "missing bearer token")
		}
		tokenStr := strings.TrimSpace(authz[len("Bearer "):])

		user, err := svc.Authorize(c.UserContext(), tokenStr)
		if err != nil {
			if errors.Is(err, auth.ErrTokenRevoked) {
				return fiber.NewError(http.StatusUnauthorized, "token invalidated")
			}
			return fiber.NewError(http.StatusUnauthorized, "invalid token")
		}

		c.Locals(localUserID, user.ID)
		c.Locals(localRole, string(user.Role))
		c.Locals(localTokenVersion, user.TokenVersion)
		return c.Next()
	}
}

// RequireRole rejects callers whose authenticated role differs from role.
// It must run after JWTAuth.
func RequireRole(role identity.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		got, _ := c.Locals(localRole).(string)
		if got == "" {
			return fiber.NewError(http.StatusUnauthorized, "unauthorized")
		}
		if identity.Role(got) != role {
			return fiber.NewError(http.StatusForbidden, "insufficient permissions")
		}
		return c.Next()
	}
}
