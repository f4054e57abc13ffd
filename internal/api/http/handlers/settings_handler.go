package handlers

import (
	"context"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/deskops/itsm-service/internal/api/dto"
	"github.com/deskops/itsm-service/internal/domain"
	"github.com/deskops/itsm-service/internal/service"
	apperrors "github.com/deskops/itsm-service/pkg/util/errorutil"
)

// SettingsManager is the settings service surface the handler calls.
type SettingsManager interface {
	Load(ctx context.Context, tenantID string) (*domain.NotificationSettings, error)
	Resolve(ctx context.Context, tenantID string, typ domain.NotificationType) (*service.Resolution, error)
	CreateAccount(ctx context.Context, tenantID string, input service.EmailAccountInput) (*domain.EmailAccount, error)
	UpdateAccount(ctx context.Context, tenantID, accountID string, input service.EmailAccountInput) (*domain.EmailAccount, error)
	DeleteAccount(ctx context.Context, tenantID, accountID string) error
	SetDefaultAccount(ctx context.Context, tenantID, accountID string) ([]domain.EmailAccount, error)
	UpsertMapping(ctx context.Context, tenantID string, typ domain.NotificationType, accountID string) ([]domain.NotificationMapping, error)
	DeleteMapping(ctx context.Context, tenantID string, typ domain.NotificationType) ([]domain.NotificationMapping, error)
	CreateSlackChannel(ctx context.Context, tenantID string, input service.SlackChannelInput) (*domain.SlackChannel, error)
	DeleteSlackChannel(ctx context.Context, tenantID, channelID string) error
	SetDefaultSlackChannel(ctx context.Context, tenantID, channelID string) ([]domain.SlackChannel, error)
	UpsertSlackMapping(ctx context.Context, tenantID string, typ domain.NotificationType, channelID string) ([]domain.SlackMapping, error)
}

// SettingsHandler exposes notification routing administration.
type SettingsHandler struct {
	settings SettingsManager
}

// NewSettingsHandler constructs handler.
func NewSettingsHandler(settings SettingsManager) *SettingsHandler {
	return &SettingsHandler{settings: settings}
}

func typeParam(c *fiber.Ctx) (domain.NotificationType, error) {
	typ := domain.NotificationType(c.Params("type"))
	if !typ.Valid() {
		return "", apperrors.NewValidationError("unknown notification type", map[string]any{"type": string(typ)})
	}
	return typ, nil
}

func accountInput(req dto.EmailAccountRequest) service.EmailAccountInput {
	return service.EmailAccountInput{
		Name:        req.Name,
		SMTPHost:    req.SMTPHost,
		SMTPPort:    req.SMTPPort,
		Username:    req.Username,
		Password:    req.Password,
		FromAddress: req.FromAddress,
		Secure:      req.Secure,
	}
}

// GetSettings GET /api/v1/settings/notifications.
func (h *SettingsHandler) GetSettings(c *fiber.Ctx) error {
	principal, err := principalFrom(c)
	if err != nil {
		return err
	}
	settings, err := h.settings.Load(c.UserContext(), principal.TenantID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewNotificationSettingsResponse(settings)})
}

// Resolve GET /api/v1/settings/resolve/:type.
func (h *SettingsHandler) Resolve(c *fiber.Ctx) error {
	principal, err := principalFrom(c)
	if err != nil {
		return err
	}
	typ, err := typeParam(c)
	if err != nil {
		return err
	}
	res, err := h.settings.Resolve(c.UserContext(), principal.TenantID, typ)
	if err != nil {
		return err
	}
	resp := dto.ResolutionResponse{Type: res.Type}
	if res.Account != nil {
		account := dto.NewEmailAccountResponse(*res.Account)
		resp.Account = &account
	}
	if res.Channel != nil {
		channel := dto.NewSlackChannelResponse(*res.Channel)
		resp.Channel = &channel
	}
	return c.JSON(fiber.Map{"data": resp})
}

// CreateAccount POST /api/v1/settings/email-accounts.
func (h *SettingsHandler) CreateAccount(c *fiber.Ctx) error {
	principal, err := principalFrom(c)
	if err != nil {
		return err
	}
	var req dto.EmailAccountRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	account, err := h.settings.CreateAccount(c.UserContext(), principal.TenantID, accountInput(req))
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewEmailAccountResponse(*account)})
}

// UpdateAccount PUT /api/v1/settings/email-accounts/:id.
func (h *SettingsHandler) UpdateAccount(c *fiber.Ctx) error {
	principal, err := principalFrom(c)
	if err != nil {
		return err
	}
	id, err := idParam(c, "email account")
	if err != nil {
		return err
	}
	var req dto.EmailAccountRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	account, err := h.settings.UpdateAccount(c.UserContext(), principal.TenantID, id, accountInput(req))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewEmailAccountResponse(*account)})
}

// DeleteAccount DELETE /api/v1/settings/email-accounts/:id.
func (h *SettingsHandler) DeleteAccount(c *fiber.Ctx) error {
	principal, err := principalFrom(c)
	if err != nil {
		return err
	}
	id, err := idParam(c, "email account")
	if err != nil {
		return err
	}
	if err := h.settings.DeleteAccount(c.UserContext(), principal.TenantID, id); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// SetDefaultAccount POST /api/v1/settings/email-accounts/:id/default.
func (h *SettingsHandler) SetDefaultAccount(c *fiber.Ctx) error {
	principal, err := principalFrom(c)
	if err != nil {
		return err
	}
	id, err := idParam(c, "email account")
	if err != nil {
		return err
	}
	accounts, err := h.settings.SetDefaultAccount(c.UserContext(), principal.TenantID, id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewEmailAccountResponses(accounts)})
}

// UpsertMapping PUT /api/v1/settings/mappings/:type.
func (h *SettingsHandler) UpsertMapping(c *fiber.Ctx) error {
	principal, err := principalFrom(c)
	if err != nil {
		return err
	}
	typ, err := typeParam(c)
	if err != nil {
		return err
	}
	var req dto.MappingRequest
	if err := c.BodyParser(&req); err != nil || req.AccountID == "" {
		return apperrors.NewValidationError("account_id required", nil)
	}
	mappings, err := h.settings.UpsertMapping(c.UserContext(), principal.TenantID, typ, req.AccountID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": mappings})
}

// DeleteMapping DELETE /api/v1/settings/mappings/:type.
func (h *SettingsHandler) DeleteMapping(c *fiber.Ctx) error {
	principal, err := principalFrom(c)
	if err != nil {
		return err
	}
	typ, err := typeParam(c)
	if err != nil {
		return err
	}
	mappings, err := h.settings.DeleteMapping(c.UserContext(), principal.TenantID, typ)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": mappings})
}

// CreateSlackChannel POST /api/v1/settings/slack-channels.
func (h *SettingsHandler) CreateSlackChannel(c *fiber.Ctx) error {
	principal, err := principalFrom(c)
	if err != nil {
		return err
	}
	var req dto.SlackChannelRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	channel, err := h.settings.CreateSlackChannel(c.UserContext(), principal.TenantID, service.SlackChannelInput{
		Name:       req.Name,
		WebhookURL: req.WebhookURL,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewSlackChannelResponse(*channel)})
}

// DeleteSlackChannel DELETE /api/v1/settings/slack-channels/:id.
func (h *SettingsHandler) DeleteSlackChannel(c *fiber.Ctx) error {
	principal, err := principalFrom(c)
	if err != nil {
		return err
	}
	id, err := idParam(c, "slack channel")
	if err != nil {
		return err
	}
	if err := h.settings.DeleteSlackChannel(c.UserContext(), principal.TenantID, id); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// SetDefaultSlackChannel POST /api/v1/settings/slack-channels/:id/default.
func (h *SettingsHandler) SetDefaultSlackChannel(c *fiber.Ctx) error {
	principal, err := principalFrom(c)
	if err != nil {
		return err
	}
	id, err := idParam(c, "slack channel")
	if err != nil {
		return err
	}
	channels, err := h.settings.SetDefaultSlackChannel(c.UserContext(), principal.TenantID, id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewSlackChannelResponses(channels)})
}

// UpsertSlackMapping PUT /api/v1/settings/slack-mappings/:type.
func (h *SettingsHandler) UpsertSlackMapping(c *fiber.Ctx) error {
	principal, err := principalFrom(c)
	if err != nil {
		return err
	}
	typ, err := typeParam(c)
	if err != nil {
		return err
	}
	var req dto.SlackMappingRequest
	if err := c.BodyParser(&req); err != nil || req.ChannelID == "" {
		return apperrors.NewValidationError("channel_id required", nil)
	}
	mappings, err := h.settings.UpsertSlackMapping(c.UserContext(), principal.TenantID, typ, req.ChannelID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": mappings})
}
