package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/task-tracker/internal/domain"
	"github.com/spec-kit/task-tracker/internal/repository"
	apperrors "github.com/spec-kit/task-tracker/pkg/util"
)

const principalKey = "auth_principal"

// Principal represents the authenticated caller. The password hash is
// stripped before the user is attached to the request.
type Principal struct {
	User *domain.User
}

// AuthMiddleware validates bearer tokens and loads the acting user.
type AuthMiddleware struct {
	tokens *TokenManager
	users  repository.UserRepository
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(tokens *TokenManager, users repository.UserRepository) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, users: users}
}

// Handle enforces authentication for protected routes.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return apperrors.NewAuthenticationError("No token, authorization denied")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return apperrors.NewAuthenticationError("No token, authorization denied")
	}

	claims, err := m.tokens.ParseToken(parts[1])
	if err != nil {
		return apperrors.NewAuthenticationError("Token is not valid")
	}

	user, err := m.users.GetByID(c.Context(), claims.UserID)
	if err != nil {
		// Fail closed when the subject no longer exists.
		if err == pgx.ErrNoRows {
			return apperrors.NewAuthenticationError("Token is not valid")
		}
		return apperrors.MapError(err)
	}
	user.PasswordHash = ""

	c.Locals(principalKey, &Principal{User: user})
	return c.Next()
}

// PrincipalFromContext retrieves the authenticated user.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}
