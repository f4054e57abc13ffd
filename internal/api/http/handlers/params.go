package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	apperrors "github.com/deskops/itsm-service/pkg/util/errorutil"
)

// idParam reads the :id path segment. Every stored id is a UUID, so anything
// else names a resource that cannot exist.
func idParam(c *fiber.Ctx, resource string) (string, error) {
	id := c.Params("id")
	if _, err := uuid.Parse(id); err != nil {
		return "", apperrors.NewNotFound(resource, map[string]any{"id": id})
	}
	return id, nil
}

// bodyID checks an id supplied in a request body. Empty is allowed and left to
// the caller.
func bodyID(field, id string) error {
	if id == "" {
		return nil
	}
	if _, err := uuid.Parse(id); err != nil {
		return apperrors.NewValidationError("malformed identifier", map[string]any{field: id})
	}
	return nil
}
