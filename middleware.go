package accounts

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
)

// ContextKey is the locals key the session middleware stores the resolved
// identity under.
const ContextKey = "current_user"

// ErrMissingToken is returned when a protected route receives no bearer token
var ErrMissingToken = goerrors.New(
	"Not authenticated",
	goerrors.CategoryAuth,
).WithTextCode("MISSING_TOKEN").WithCode(goerrors.CodeUnauthorized)

// ErrNoSessionUser is returned when a handler expects an authenticated
// identity but the middleware did not run.
var ErrNoSessionUser = goerrors.New(
	"no authenticated user in request context",
	goerrors.CategoryAuth,
).WithCode(goerrors.CodeUnauthorized)

// ErrInactiveUser rejects tokens belonging to deactivated accounts. The
// token itself is valid, so this is a 400 rather than a 401.
var ErrInactiveUser = goerrors.New(
	"Inactive user",
	goerrors.CategoryBadInput,
).WithTextCode("INACTIVE_USER").WithCode(goerrors.CodeBadRequest)

// Protected returns a middleware that requires a valid bearer token, resolves
// the identity it names, and stores it in locals for downstream handlers.
// A token for a deleted account is treated the same as an invalid token.
func Protected(tokens *TokenService, repo RepositoryManager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := extractBearer(c.Get(fiber.HeaderAuthorization))
		if raw == "" {
			return ErrMissingToken
		}

		claims, err := tokens.Validate(raw)
		if err != nil {
			return err
		}

		user, err := repo.Users().GetByEmail(c.Context(), claims.Email())
		if err != nil {
			if goerrors.IsNotFound(err) {
				return ErrTokenMalformed
			}
			return err
		}

		if !user.Active {
			return ErrInactiveUser
		}

		c.Locals(ContextKey, user)
		return c.Next()
	}
}

// CurrentUser retrieves the identity stored by Protected.
func CurrentUser(c *fiber.Ctx) (*User, error) {
	user, ok := c.Locals(ContextKey).(*User)
	if !ok || user == nil {
		return nil, ErrNoSessionUser
	}
	return user, nil
}

func extractBearer(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
