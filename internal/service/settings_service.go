package service

import (
	"context"
	"errors"
	"net/mail"
	"net/url"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/deskops/itsm-service/internal/cache"
	"github.com/deskops/itsm-service/internal/domain"
	"github.com/deskops/itsm-service/internal/repository"
	"github.com/deskops/itsm-service/internal/routing"
	apperrors "github.com/deskops/itsm-service/pkg/util/errorutil"
)

// Sealer encrypts credentials before they are stored.
type Sealer interface {
	Seal(plain string) (string, error)
}

// SettingsService manages per-tenant notification routing configuration.
type SettingsService struct {
	accounts repository.EmailAccountRepository
	channels repository.SlackChannelRepository
	mappings repository.MappingRepository
	cache    cache.SettingsCache
	sealer   Sealer
	logger   *zap.Logger
}

// SettingsDependencies bundles collaborators.
type SettingsDependencies struct {
	AccountRepo repository.EmailAccountRepository
	ChannelRepo repository.SlackChannelRepository
	MappingRepo repository.MappingRepository
	Cache       cache.SettingsCache
	Sealer      Sealer
	Logger      *zap.Logger
}

// EmailAccountInput describes an account create or update. A nil Password keeps
// the stored one on update.
type EmailAccountInput struct {
	Name        string
	SMTPHost    string
	SMTPPort    int
	Username    string
	Password    *string
	FromAddress string
	Secure      bool
}

// SlackChannelInput describes a new Slack webhook target.
type SlackChannelInput struct {
	Name       string
	WebhookURL string
}

// Resolution reports which targets a notification type would be delivered to.
type Resolution struct {
	Type    domain.NotificationType
	Account *domain.EmailAccount
	Channel *domain.SlackChannel
}

// NewSettingsService constructs the service.
func NewSettingsService(deps SettingsDependencies) *SettingsService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	c := deps.Cache
	if c == nil {
		c = cache.NewRedisSettingsCache(nil, "", 0)
	}
	return &SettingsService{
		accounts: deps.AccountRepo,
		channels: deps.ChannelRepo,
		mappings: deps.MappingRepo,
		cache:    c,
		sealer:   deps.Sealer,
		logger:   logger,
	}
}

// Load returns the tenant's settings, from cache when possible. Cache failures are
// logged and fall through to Postgres; the result is then not cached because the
// generation to store it under is unknown.
func (s *SettingsService) Load(ctx context.Context, tenantID string) (*domain.NotificationSettings, error) {
	cached, gen, err := s.cache.Get(ctx, tenantID)
	cacheable := true
	switch {
	case err == nil:
		return cached, nil
	case !errors.Is(err, cache.ErrMiss):
		s.logger.Warn("settings cache read failed", zap.String("tenant_id", tenantID), zap.Error(err))
		cacheable = false
	}

	settings := &domain.NotificationSettings{TenantID: tenantID}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		settings.Accounts, err = s.accounts.List(gctx, tenantID)
		return err
	})
	g.Go(func() error {
		var err error
		settings.Mappings, err = s.mappings.ListEmail(gctx, tenantID)
		return err
	})
	g.Go(func() error {
		var err error
		settings.Channels, err = s.channels.List(gctx, tenantID)
		return err
	})
	g.Go(func() error {
		var err error
		settings.SlackMappings, err = s.mappings.ListSlack(gctx, tenantID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, apperrors.MapError(err)
	}

	if !cacheable {
		return settings, nil
	}
	if err := s.cache.Set(ctx, settings, gen); err != nil {
		s.logger.Warn("settings cache write failed", zap.String("tenant_id", tenantID), zap.Error(err))
	}
	return settings, nil
}

// Resolve reports the account and channel a notification type currently routes to.
func (s *SettingsService) Resolve(ctx context.Context, tenantID string, typ domain.NotificationType) (*Resolution, error) {
	if !typ.Valid() {
		return nil, apperrors.NewValidationError("unknown notification type", map[string]any{"type": typ})
	}
	settings, err := s.Load(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return &Resolution{
		Type:    typ,
		Account: routing.ResolveAccount(typ, settings.Accounts, settings.Mappings),
		Channel: routing.ResolveSlackChannel(typ, settings.Channels, settings.SlackMappings),
	}, nil
}

// CreateAccount stores a new SMTP account. The first account of a tenant becomes
// the default.
func (s *SettingsService) CreateAccount(ctx context.Context, tenantID string, input EmailAccountInput) (*domain.EmailAccount, error) {
	if err := validateAccountInput(input); err != nil {
		return nil, err
	}
	existing, err := s.accounts.List(ctx, tenantID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	account := &domain.EmailAccount{TenantID: tenantID, IsDefault: len(existing) == 0}
	applyAccountInput(account, input)
	if input.Password != nil {
		if account.SealedPassword, err = s.seal(*input.Password); err != nil {
			return nil, err
		}
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.invalidate(ctx, tenantID)
	return account, nil
}

// UpdateAccount replaces the editable fields of an account.
func (s *SettingsService) UpdateAccount(ctx context.Context, tenantID, accountID string, input EmailAccountInput) (*domain.EmailAccount, error) {
	if err := validateAccountInput(input); err != nil {
		return nil, err
	}
	account, err := s.accounts.GetByID(ctx, tenantID, accountID)
	if err != nil {
		return nil, notFound(err, "email account", map[string]any{"account_id": accountID})
	}
	applyAccountInput(account, input)
	if input.Password != nil {
		if account.SealedPassword, err = s.seal(*input.Password); err != nil {
			return nil, err
		}
	}
	if err := s.accounts.Update(ctx, account); err != nil {
		return nil, notFound(err, "email account", map[string]any{"account_id": accountID})
	}
	s.invalidate(ctx, tenantID)
	return account, nil
}

// DeleteAccount removes an account. Mappings pointing at it are left dangling and
// resolve through the default. Deleting the default promotes the lowest remaining ID.
func (s *SettingsService) DeleteAccount(ctx context.Context, tenantID, accountID string) error {
	settings, err := s.Load(ctx, tenantID)
	if err != nil {
		return err
	}
	target, ok := routing.FindAccount(settings.Accounts, accountID)
	if !ok {
		return apperrors.NewNotFound("email account", map[string]any{"account_id": accountID})
	}
	if err := s.accounts.Delete(ctx, tenantID, accountID); err != nil {
		return notFound(err, "email account", map[string]any{"account_id": accountID})
	}
	defer s.invalidate(ctx, tenantID)

	if target.IsDefault {
		for _, a := range settings.Accounts {
			if a.ID == accountID {
				continue
			}
			if err := s.accounts.SetDefault(ctx, tenantID, a.ID); err != nil {
				return apperrors.MapError(err)
			}
			break
		}
	}
	return nil
}

// SetDefaultAccount makes accountID the tenant's only default account.
func (s *SettingsService) SetDefaultAccount(ctx context.Context, tenantID, accountID string) ([]domain.EmailAccount, error) {
	settings, err := s.Load(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if _, ok := routing.FindAccount(settings.Accounts, accountID); !ok {
		return nil, apperrors.NewNotFound("email account", map[string]any{"account_id": accountID})
	}
	if err := s.accounts.SetDefault(ctx, tenantID, accountID); err != nil {
		return nil, notFound(err, "email account", map[string]any{"account_id": accountID})
	}
	s.invalidate(ctx, tenantID)
	return routing.SetDefaultAccount(settings.Accounts, accountID), nil
}

// UpsertMapping routes typ to accountID, replacing any existing mapping for typ.
func (s *SettingsService) UpsertMapping(ctx context.Context, tenantID string, typ domain.NotificationType, accountID string) ([]domain.NotificationMapping, error) {
	if !typ.Valid() {
		return nil, apperrors.NewValidationError("unknown notification type", map[string]any{"type": typ})
	}
	settings, err := s.Load(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if _, ok := routing.FindAccount(settings.Accounts, accountID); !ok {
		return nil, apperrors.NewNotFound("email account", map[string]any{"account_id": accountID})
	}
	if err := s.mappings.UpsertEmail(ctx, tenantID, domain.NotificationMapping{Type: typ, AccountID: accountID}); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.invalidate(ctx, tenantID)
	return routing.UpsertMapping(settings.Mappings, typ, accountID), nil
}

// DeleteMapping removes the mapping for typ so it resolves through the default.
func (s *SettingsService) DeleteMapping(ctx context.Context, tenantID string, typ domain.NotificationType) ([]domain.NotificationMapping, error) {
	if !typ.Valid() {
		return nil, apperrors.NewValidationError("unknown notification type", map[string]any{"type": typ})
	}
	settings, err := s.Load(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if err := s.mappings.DeleteEmail(ctx, tenantID, typ); err != nil {
		return nil, notFound(err, "notification mapping", map[string]any{"type": typ})
	}
	s.invalidate(ctx, tenantID)
	return routing.RemoveMapping(settings.Mappings, typ), nil
}

// CreateSlackChannel stores a webhook target. The first channel becomes the default.
func (s *SettingsService) CreateSlackChannel(ctx context.Context, tenantID string, input SlackChannelInput) (*domain.SlackChannel, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperrors.NewValidationError("name is required", nil)
	}
	if err := validateWebhookURL(input.WebhookURL); err != nil {
		return nil, err
	}
	existing, err := s.channels.List(ctx, tenantID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	channel := &domain.SlackChannel{
		TenantID:   tenantID,
		Name:       name,
		WebhookURL: strings.TrimSpace(input.WebhookURL),
		IsDefault:  len(existing) == 0,
	}
	if err := s.channels.Create(ctx, channel); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.invalidate(ctx, tenantID)
	return channel, nil
}

// DeleteSlackChannel removes a channel, promoting the next one if it was the default.
func (s *SettingsService) DeleteSlackChannel(ctx context.Context, tenantID, channelID string) error {
	settings, err := s.Load(ctx, tenantID)
	if err != nil {
		return err
	}
	target, ok := routing.FindSlackChannel(settings.Channels, channelID)
	if !ok {
		return apperrors.NewNotFound("slack channel", map[string]any{"channel_id": channelID})
	}
	if err := s.channels.Delete(ctx, tenantID, channelID); err != nil {
		return notFound(err, "slack channel", map[string]any{"channel_id": channelID})
	}
	defer s.invalidate(ctx, tenantID)

	if target.IsDefault {
		for _, c := range settings.Channels {
			if c.ID == channelID {
				continue
			}
			if err := s.channels.SetDefault(ctx, tenantID, c.ID); err != nil {
				return apperrors.MapError(err)
			}
			break
		}
	}
	return nil
}

// SetDefaultSlackChannel makes channelID the tenant's only default channel.
func (s *SettingsService) SetDefaultSlackChannel(ctx context.Context, tenantID, channelID string) ([]domain.SlackChannel, error) {
	settings, err := s.Load(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if _, ok := routing.FindSlackChannel(settings.Channels, channelID); !ok {
		return nil, apperrors.NewNotFound("slack channel", map[string]any{"channel_id": channelID})
	}
	if err := s.channels.SetDefault(ctx, tenantID, channelID); err != nil {
		return nil, notFound(err, "slack channel", map[string]any{"channel_id": channelID})
	}
	s.invalidate(ctx, tenantID)
	return routing.SetDefaultSlackChannel(settings.Channels, channelID), nil
}

// UpsertSlackMapping routes typ to channelID.
func (s *SettingsService) UpsertSlackMapping(ctx context.Context, tenantID string, typ domain.NotificationType, channelID string) ([]domain.SlackMapping, error) {
	if !typ.Valid() {
		return nil, apperrors.NewValidationError("unknown notification type", map[string]any{"type": typ})
	}
	settings, err := s.Load(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if _, ok := routing.FindSlackChannel(settings.Channels, channelID); !ok {
		return nil, apperrors.NewNotFound("slack channel", map[string]any{"channel_id": channelID})
	}
	if err := s.mappings.UpsertSlack(ctx, tenantID, domain.SlackMapping{Type: typ, ChannelID: channelID}); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.invalidate(ctx, tenantID)
	return routing.UpsertSlackMapping(settings.SlackMappings, typ, channelID), nil
}

func (s *SettingsService) seal(plain string) (string, error) {
	if s.sealer == nil || plain == "" {
		return plain, nil
	}
	sealed, err := s.sealer.Seal(plain)
	if err != nil {
		return "", apperrors.NewInternalError(err)
	}
	return sealed, nil
}

func (s *SettingsService) invalidate(ctx context.Context, tenantID string) {
	if err := s.cache.Invalidate(ctx, tenantID); err != nil {
		s.logger.Warn("settings cache invalidate failed", zap.String("tenant_id", tenantID), zap.Error(err))
	}
}

func applyAccountInput(account *domain.EmailAccount, input EmailAccountInput) {
	account.Name = strings.TrimSpace(input.Name)
	account.SMTPHost = strings.TrimSpace(input.SMTPHost)
	account.SMTPPort = input.SMTPPort
	account.Username = strings.TrimSpace(input.Username)
	account.FromAddress = strings.TrimSpace(input.FromAddress)
	account.Secure = input.Secure
}

func validateAccountInput(input EmailAccountInput) error {
	details := map[string]any{}
	if strings.TrimSpace(input.Name) == "" {
		details["name"] = "required"
	}
	if strings.TrimSpace(input.SMTPHost) == "" {
		details["smtp_host"] = "required"
	}
	if input.SMTPPort <= 0 || input.SMTPPort > 65535 {
		details["smtp_port"] = "must be between 1 and 65535"
	}
	if _, err := mail.ParseAddress(strings.TrimSpace(input.FromAddress)); err != nil {
		details["from_address"] = "invalid email address"
	}
	if len(details) > 0 {
		return apperrors.NewValidationError("invalid email account", details)
	}
	return nil
}

func validateWebhookURL(raw string) error {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || (u.Scheme != "https" && u.Scheme != "http") || u.Host == "" {
		return apperrors.NewValidationError("invalid webhook url", map[string]any{"webhook_url": "must be an http(s) url"})
	}
	return nil
}
