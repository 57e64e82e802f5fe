package auth

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/auth-service/internal/domain"
	apperrors "github.com/spec-kit/auth-service/pkg/util"
)

const principalKey = "auth_principal"

// PrincipalResolver turns a presented bearer token into the current account,
// or a rejection. Implemented by service.AuthService.
type PrincipalResolver interface {
	Resolve(ctx context.Context, token string) (*domain.Account, error)
}

// Middleware validates bearer tokens and loads principals.
type Middleware struct {
	resolver PrincipalResolver
}

// NewMiddleware constructs middleware.
func NewMiddleware(resolver PrincipalResolver) *Middleware {
	return &Middleware{resolver: resolver}
}

// Handle enforces authentication for protected routes. Every failure shape,
// missing header, bad scheme, or a rejected token, yields the same 401.
func (m *Middleware) Handle(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return apperrors.NewUnauthorized("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return apperrors.NewUnauthorized("invalid authorization header")
	}

	principal, err := m.resolver.Resolve(c.UserContext(), parts[1])
	if err != nil {
		return apperrors.MapError(err)
	}

	c.Locals(principalKey, principal)
	return c.Next()
}

// PrincipalFromContext retrieves the authenticated account.
func PrincipalFromContext(c *fiber.Ctx) (*domain.Account, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*domain.Account)
	return principal, ok
}
