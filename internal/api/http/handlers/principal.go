package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/deskops/itsm-service/internal/auth"
	"github.com/deskops/itsm-service/internal/domain"
	apperrors "github.com/deskops/itsm-service/pkg/util/errorutil"
)

func principalFrom(c *fiber.Ctx) (domain.Principal, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.TenantID == "" {
		return domain.Principal{}, apperrors.NewUnauthorized("authentication required")
	}
	return *principal, nil
}
