package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/deskops/itsm-service/internal/delivery"
	"github.com/deskops/itsm-service/internal/domain"
	"github.com/deskops/itsm-service/internal/events"
	"github.com/deskops/itsm-service/internal/observability"
	"github.com/deskops/itsm-service/internal/repository"
	"github.com/deskops/itsm-service/internal/routing"
	"github.com/deskops/itsm-service/internal/worker"
	apperrors "github.com/deskops/itsm-service/pkg/util/errorutil"
)

const (
	channelEmail = "email"
	channelSlack = "slack"
)

// SettingsLoader returns a tenant's routing configuration.
type SettingsLoader interface {
	Load(ctx context.Context, tenantID string) (*domain.NotificationSettings, error)
}

// JobQueue accepts delivery jobs.
type JobQueue interface {
	Enqueue(job worker.Job) error
}

// NotificationService turns domain events into email and Slack deliveries.
type NotificationService struct {
	dispatcher events.Dispatcher
	settings   SettingsLoader
	agents     repository.AgentRepository
	mailer     delivery.Mailer
	slack      delivery.SlackPoster
	queue      JobQueue
	logger     *zap.Logger
	metrics    *observability.Metrics
	prefix     string
}

// NotificationDependencies bundles collaborators.
type NotificationDependencies struct {
	Dispatcher    events.Dispatcher
	Settings      SettingsLoader
	AgentRepo     repository.AgentRepository
	Mailer        delivery.Mailer
	Slack         delivery.SlackPoster
	Queue         JobQueue
	Logger        *zap.Logger
	Metrics       *observability.Metrics
	SubjectPrefix string
}

// NewNotificationService creates the service.
func NewNotificationService(deps NotificationDependencies) *NotificationService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		dispatcher: deps.Dispatcher,
		settings:   deps.Settings,
		agents:     deps.AgentRepo,
		mailer:     deps.Mailer,
		slack:      deps.Slack,
		queue:      deps.Queue,
		logger:     logger,
		metrics:    deps.Metrics,
		prefix:     strings.TrimSpace(deps.SubjectPrefix),
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTicketCreated, n.handle)
	n.dispatcher.Subscribe(events.EventTicketStatusChanged, n.handle)
	n.dispatcher.Subscribe(events.EventTicketAssigned, n.handle)
	n.dispatcher.Subscribe(events.EventNoticePosted, n.handle)
}

// PostNotice publishes a monitoring or system notice for the tenant.
func (n *NotificationService) PostNotice(ctx context.Context, actor domain.Principal, typ domain.NotificationType, subject, body string) (string, error) {
	if typ != domain.NotificationMonitoring && typ != domain.NotificationSystem {
		return "", apperrors.NewValidationError("notices must be monitoring or system", map[string]any{"type": typ})
	}
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return "", apperrors.NewValidationError("subject is required", nil)
	}
	event := events.Event{
		ID:               uuid.NewString(),
		Type:             events.EventNoticePosted,
		TenantID:         actor.TenantID,
		NotificationType: typ,
		Actor:            agentActor(actor),
		Payload:          events.NoticePayload{Subject: subject, Body: strings.TrimSpace(body)},
	}
	publish(ctx, n.dispatcher, n.logger, event)
	return event.ID, nil
}

func (n *NotificationService) handle(ctx context.Context, event events.Event) error {
	settings, err := n.settings.Load(ctx, event.TenantID)
	if err != nil {
		n.metrics.RecordNotification(channelEmail, observability.OutcomeFailed)
		n.metrics.RecordNotification(channelSlack, observability.OutcomeFailed)
		return fmt.Errorf("load notification settings: %w", err)
	}

	subject, body := n.render(event)
	logger := n.logger.With(
		zap.String("event_id", event.ID),
		zap.String("event_type", string(event.Type)),
		zap.String("tenant_id", event.TenantID),
		zap.String("notification_type", string(event.NotificationType)))

	if account := routing.ResolveAccount(event.NotificationType, settings.Accounts, settings.Mappings); account == nil {
		logger.Debug("no email account for notification type")
		n.metrics.RecordNotification(channelEmail, observability.OutcomeUnresolved)
	} else if n.mailer != nil {
		n.enqueueEmail(ctx, logger, event, *account, subject, body)
	}

	if channel := routing.ResolveSlackChannel(event.NotificationType, settings.Channels, settings.SlackMappings); channel == nil {
		logger.Debug("no slack channel for notification type")
		n.metrics.RecordNotification(channelSlack, observability.OutcomeUnresolved)
	} else if n.slack != nil {
		text := subject
		if body != "" {
			text += "\n" + body
		}
		n.enqueue(logger, worker.Job{
			ID:   event.ID,
			Kind: channelSlack,
			Run: func(ctx context.Context) error {
				return n.record(channelSlack, n.slack.Post(ctx, *channel, text))
			},
		})
	}
	return nil
}

func (n *NotificationService) enqueueEmail(ctx context.Context, logger *zap.Logger, event events.Event, account domain.EmailAccount, subject, body string) {
	to, err := n.recipients(ctx, event)
	if err != nil {
		logger.Warn("resolve recipients failed", zap.Error(err))
		n.metrics.RecordNotification(channelEmail, observability.OutcomeFailed)
		return
	}
	if len(to) == 0 {
		logger.Debug("no email recipients")
		n.metrics.RecordNotification(channelEmail, observability.OutcomeSkipped)
		return
	}
	msg := delivery.EmailMessage{To: to, Subject: subject, Body: body}
	n.enqueue(logger, worker.Job{
		ID:   event.ID,
		Kind: channelEmail,
		Run: func(ctx context.Context) error {
			return n.record(channelEmail, n.mailer.Send(ctx, account, msg))
		},
	})
}

func (n *NotificationService) enqueue(logger *zap.Logger, job worker.Job) {
	if n.queue == nil {
		return
	}
	if err := n.queue.Enqueue(job); err != nil {
		logger.Warn("notification dropped", zap.String("channel", job.Kind), zap.Error(err))
		n.metrics.RecordNotification(job.Kind, observability.OutcomeDropped)
	}
}

func (n *NotificationService) record(channel string, err error) error {
	if err != nil {
		n.metrics.RecordNotification(channel, observability.OutcomeFailed)
		return err
	}
	n.metrics.RecordNotification(channel, observability.OutcomeSent)
	return nil
}

// recipients returns the assignee for ticket events, and the tenant admins for
// notices and unassigned tickets.
func (n *NotificationService) recipients(ctx context.Context, event events.Event) ([]string, error) {
	if n.agents == nil {
		return nil, nil
	}
	if assigneeID := eventAssignee(event); assigneeID != nil {
		agent, err := n.agents.GetByID(ctx, event.TenantID, *assigneeID)
		if err == nil && agent.Email != "" {
			return []string{agent.Email}, nil
		}
		if err != nil {
			n.logger.Warn("assignee lookup failed, notifying admins",
				zap.String("agent_id", *assigneeID), zap.Error(err))
		}
	}

	admins, err := n.agents.ListByRole(ctx, event.TenantID, domain.AgentRoleAdmin)
	if err != nil {
		return nil, err
	}
	to := make([]string, 0, len(admins))
	for _, admin := range admins {
		if admin.Email != "" {
			to = append(to, admin.Email)
		}
	}
	return to, nil
}

func eventAssignee(event events.Event) *string {
	switch p := event.Payload.(type) {
	case events.TicketCreatedPayload:
		return p.AssigneeID
	case events.TicketStatusChangedPayload:
		return p.AssigneeID
	case events.TicketAssignedPayload:
		return p.AssigneeID
	}
	return nil
}

func (n *NotificationService) render(event events.Event) (string, string) {
	var subject string
	var lines []string

	switch p := event.Payload.(type) {
	case events.TicketCreatedPayload:
		subject = fmt.Sprintf("New %s: %s", categoryLabel(p.Category), p.Title)
		lines = append(lines,
			"Ticket: "+event.TicketID,
			"Priority: "+string(p.Priority),
			"Assignee: "+valueOr(p.AssigneeID, "unassigned"))
	case events.TicketStatusChangedPayload:
		subject = fmt.Sprintf("%s status changed: %s", categoryLabel(p.Category), p.Title)
		lines = append(lines,
			"Ticket: "+event.TicketID,
			fmt.Sprintf("Status: %s -> %s", p.OldStatus, p.NewStatus))
	case events.TicketAssignedPayload:
		subject = fmt.Sprintf("%s assigned: %s", categoryLabel(p.Category), p.Title)
		lines = append(lines,
			"Ticket: "+event.TicketID,
			fmt.Sprintf("Assignee: %s -> %s", valueOr(p.OldAssigneeID, "unassigned"), valueOr(p.AssigneeID, "unassigned")))
	case events.NoticePayload:
		subject = p.Subject
		if p.Body != "" {
			lines = append(lines, p.Body)
		}
	default:
		subject = string(event.Type)
	}

	if n.prefix != "" {
		subject = n.prefix + " " + subject
	}
	return subject, strings.Join(lines, "\n")
}

func categoryLabel(c domain.TicketCategory) string {
	switch c {
	case domain.CategoryIncident:
		return "Incident"
	case domain.CategoryServiceRequest:
		return "Service request"
	case domain.CategoryChangeRequest:
		return "Change request"
	}
	return "Ticket"
}

func valueOr(v *string, fallback string) string {
	if v == nil || *v == "" {
		return fallback
	}
	return *v
}
