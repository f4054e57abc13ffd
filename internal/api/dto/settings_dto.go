package dto

import (
	"net/url"
	"time"

	"github.com/deskops/itsm-service/internal/domain"
)

// EmailAccountRequest creates or updates an account. Omit password to keep the stored one.
type EmailAccountRequest struct {
	Name        string  `json:"name"`
	SMTPHost    string  `json:"smtp_host"`
	SMTPPort    int     `json:"smtp_port"`
	Username    string  `json:"username"`
	Password    *string `json:"password"`
	FromAddress string  `json:"from_address"`
	Secure      bool    `json:"secure"`
}

// EmailAccountResponse never carries the password.
type EmailAccountResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	SMTPHost    string    `json:"smtp_host"`
	SMTPPort    int       `json:"smtp_port"`
	Username    string    `json:"username"`
	HasPassword bool      `json:"has_password"`
	FromAddress string    `json:"from_address"`
	Secure      bool      `json:"secure"`
	IsDefault   bool      `json:"is_default"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// SlackChannelRequest payload.
type SlackChannelRequest struct {
	Name       string `json:"name"`
	WebhookURL string `json:"webhook_url"`
}

// SlackChannelResponse hides the webhook secret path.
type SlackChannelResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	WebhookHost string    `json:"webhook_host"`
	IsDefault   bool      `json:"is_default"`
	CreatedAt   time.Time `json:"created_at"`
}

// MappingRequest payload for email mappings.
type MappingRequest struct {
	AccountID string `json:"account_id"`
}

// SlackMappingRequest payload.
type SlackMappingRequest struct {
	ChannelID string `json:"channel_id"`
}

// NotificationSettingsResponse is the full routing view of a tenant.
type NotificationSettingsResponse struct {
	Accounts      []EmailAccountResponse       `json:"accounts"`
	Mappings      []domain.NotificationMapping `json:"mappings"`
	Channels      []SlackChannelResponse       `json:"channels"`
	SlackMappings []domain.SlackMapping        `json:"slack_mappings"`
}

// ResolutionResponse reports where a notification type would be delivered.
type ResolutionResponse struct {
	Type    domain.NotificationType `json:"type"`
	Account *EmailAccountResponse   `json:"account"`
	Channel *SlackChannelResponse   `json:"channel"`
}

// NewEmailAccountResponse maps an account.
func NewEmailAccountResponse(a domain.EmailAccount) EmailAccountResponse {
	return EmailAccountResponse{
		ID:          a.ID,
		Name:        a.Name,
		SMTPHost:    a.SMTPHost,
		SMTPPort:    a.SMTPPort,
		Username:    a.Username,
		HasPassword: a.SealedPassword != "",
		FromAddress: a.FromAddress,
		Secure:      a.Secure,
		IsDefault:   a.IsDefault,
		CreatedAt:   a.CreatedAt,
		UpdatedAt:   a.UpdatedAt,
	}
}

// NewEmailAccountResponses maps a list.
func NewEmailAccountResponses(accounts []domain.EmailAccount) []EmailAccountResponse {
	out := make([]EmailAccountResponse, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, NewEmailAccountResponse(a))
	}
	return out
}

// NewSlackChannelResponse maps a channel.
func NewSlackChannelResponse(c domain.SlackChannel) SlackChannelResponse {
	host := ""
	if u, err := url.Parse(c.WebhookURL); err == nil {
		host = u.Host
	}
	return SlackChannelResponse{
		ID:          c.ID,
		Name:        c.Name,
		WebhookHost: host,
		IsDefault:   c.IsDefault,
		CreatedAt:   c.CreatedAt,
	}
}

// NewSlackChannelResponses maps a list.
func NewSlackChannelResponses(channels []domain.SlackChannel) []SlackChannelResponse {
	out := make([]SlackChannelResponse, 0, len(channels))
	for _, c := range channels {
		out = append(out, NewSlackChannelResponse(c))
	}
	return out
}

// NewNotificationSettingsResponse maps the full settings view.
func NewNotificationSettingsResponse(s *domain.NotificationSettings) NotificationSettingsResponse {
	resp := NotificationSettingsResponse{
		Accounts:      NewEmailAccountResponses(s.Accounts),
		Mappings:      s.Mappings,
		Channels:      NewSlackChannelResponses(s.Channels),
		SlackMappings: s.SlackMappings,
	}
	if resp.Mappings == nil {
		resp.Mappings = []domain.NotificationMapping{}
	}
	if resp.SlackMappings == nil {
		resp.SlackMappings = []domain.SlackMapping{}
	}
	return resp
}
