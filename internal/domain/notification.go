package domain

import "time"

// NotificationType classifies outbound notifications for routing.
type NotificationType string

const (
	NotificationIncident       NotificationType = "incident"
	NotificationServiceRequest NotificationType = "service_request"
	NotificationChangeRequest  NotificationType = "change_request"
	NotificationMonitoring     NotificationType = "monitoring"
	NotificationSystem         NotificationType = "system"
)

// NotificationTypes lists every routable type.
var NotificationTypes = []NotificationType{
	NotificationIncident,
	NotificationServiceRequest,
	NotificationChangeRequest,
	NotificationMonitoring,
	NotificationSystem,
}

// Valid reports whether t is a known notification type.
func (t NotificationType) Valid() bool {
	for _, known := range NotificationTypes {
		if t == known {
			return true
		}
	}
	return false
}

// EmailAccount is an outbound SMTP configuration owned by a tenant.
type EmailAccount struct {
	ID             string    `json:"id"`
	TenantID       string    `json:"tenant_id"`
	Name           string    `json:"name"`
	SMTPHost       string    `json:"smtp_host"`
	SMTPPort       int       `json:"smtp_port"`
	Username       string    `json:"username"`
	SealedPassword string    `json:"sealed_password,omitempty"`
	FromAddress    string    `json:"from_address"`
	Secure         bool      `json:"secure"`
	IsDefault      bool      `json:"is_default"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// SlackChannel is an incoming-webhook target owned by a tenant.
type SlackChannel struct {
	ID         string    `json:"id"`
	TenantID   string    `json:"tenant_id"`
	Name       string    `json:"name"`
	WebhookURL string    `json:"webhook_url"`
	IsDefault  bool      `json:"is_default"`
	CreatedAt  time.Time `json:"created_at"`
}

// NotificationMapping routes one notification type to an email account.
type NotificationMapping struct {
	Type      NotificationType `json:"type"`
	AccountID string           `json:"account_id"`
}

// SlackMapping routes one notification type to a Slack channel.
type SlackMapping struct {
	Type      NotificationType `json:"type"`
	ChannelID string           `json:"channel_id"`
}

// NotificationSettings is the routing configuration of one tenant.
type NotificationSettings struct {
	TenantID      string                `json:"tenant_id"`
	Accounts      []EmailAccount        `json:"accounts"`
	Mappings      []NotificationMapping `json:"mappings"`
	Channels      []SlackChannel        `json:"channels"`
	SlackMappings []SlackMapping        `json:"slack_mappings"`
}
