package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/authgate/authgate/internal/apperr"
	"github.com/authgate/authgate/internal/token"
)

const accountIDKey = "account_id"

// BearerAuth validates the access token and stashes the account id for
// downstream handlers. Refresh tokens are rejected on this path.
func BearerAuth(tokens *token.Engine) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authz := c.Get(fiber.HeaderAuthorization)
		if !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			return apperr.ErrUnauthorized
		}

		claims, err := tokens.Verify(strings.TrimSpace(authz[len("Bearer "):]))
		if err != nil {
			return err
		}
		if claims.IsRefresh {
			return apperr.ErrUnauthorized
		}

		c.Locals(accountIDKey, claims.Subject)
		return c.Next()
	}
}

// AccountID returns the authenticated account id set by BearerAuth, or "".
func AccountID(c *fiber.Ctx) string {
	id, _ := c.Locals(accountIDKey).(string)
	return id
}
