package handlers

import (
	"context"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/deskops/itsm-service/internal/api/dto"
	"github.com/deskops/itsm-service/internal/domain"
	apperrors "github.com/deskops/itsm-service/pkg/util/errorutil"
)

// NoticePoster emits external notices.
type NoticePoster interface {
	PostNotice(ctx context.Context, actor domain.Principal, typ domain.NotificationType, subject, body string) (string, error)
}

// NotificationsHandler accepts monitoring and system notices.
type NotificationsHandler struct {
	notices NoticePoster
}

// NewNotificationsHandler constructs handler.
func NewNotificationsHandler(notices NoticePoster) *NotificationsHandler {
	return &NotificationsHandler{notices: notices}
}

// PostNotice POST /api/v1/notifications/:type. Delivery is asynchronous.
func (h *NotificationsHandler) PostNotice(c *fiber.Ctx) error {
	principal, err := principalFrom(c)
	if err != nil {
		return err
	}
	typ, err := typeParam(c)
	if err != nil {
		return err
	}
	var req dto.NoticeRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	id, err := h.notices.PostNotice(c.UserContext(), principal, typ, req.Subject, req.Body)
	if err != nil {
		return err
	}
	return c.Status(http.StatusAccepted).JSON(fiber.Map{"data": dto.NoticeResponse{EventID: id}})
}
