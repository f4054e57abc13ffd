package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/deskops/itsm-service/internal/domain"
	apperrors "github.com/deskops/itsm-service/pkg/util/errorutil"
)

// RequireRole ensures the principal has one of the allowed roles.
func RequireRole(allowed ...domain.AgentRole) fiber.Handler {
	allowedSet := make(map[domain.AgentRole]struct{}, len(allowed))
	for _, role := range allowed {
		allowedSet[role] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if len(allowedSet) == 0 {
			return c.Next()
		}
		if _, exists := allowedSet[principal.Role]; !exists {
			return apperrors.NewForbidden("insufficient role")
		}
		return c.Next()
	}
}

// RequireStaff admits admins and agents.
func RequireStaff() fiber.Handler {
	return RequireRole(domain.EligibleAgentRoles...)
}

// RequireAdmin admits admins only.
func RequireAdmin() fiber.Handler {
	return RequireRole(domain.AgentRoleAdmin)
}
