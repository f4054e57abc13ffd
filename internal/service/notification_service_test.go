package service

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/deskops/itsm-service/internal/domain"
	"github.com/deskops/itsm-service/internal/events"
	"github.com/deskops/itsm-service/internal/observability"
	"github.com/deskops/itsm-service/internal/worker"
)

type notificationFixture struct {
	dispatcher events.Dispatcher
	agents     *mockAgentRepo
	mailer     *recordingMailer
	slack      *recordingSlack
	queue      *inlineQueue
	metrics    *observability.Metrics
	service    *NotificationService
}

func newNotificationFixture(settings SettingsLoader) *notificationFixture {
	f := &notificationFixture{
		dispatcher: events.NewInMemoryDispatcher(),
		agents:     &mockAgentRepo{},
		mailer:     &recordingMailer{},
		slack:      &recordingSlack{},
		queue:      &inlineQueue{},
		metrics:    observability.NewMetrics(),
	}
	f.service = NewNotificationService(NotificationDependencies{
		Dispatcher:    f.dispatcher,
		Settings:      settings,
		AgentRepo:     f.agents,
		Mailer:        f.mailer,
		Slack:         f.slack,
		Queue:         f.queue,
		Metrics:       f.metrics,
		SubjectPrefix: "[ITSM]",
	})
	f.service.RegisterHandlers()
	return f
}

func (f *notificationFixture) count(channel, outcome string) float64 {
	return testutil.ToFloat64(f.metrics.Notifications().WithLabelValues(channel, outcome))
}

var routedSettings = &domain.NotificationSettings{
	TenantID: tenantID,
	Accounts: []domain.EmailAccount{
		{ID: "a", FromAddress: "incidents@example.com"},
		{ID: "b", FromAddress: "desk@example.com", IsDefault: true},
	},
	Mappings: []domain.NotificationMapping{{Type: domain.NotificationIncident, AccountID: "a"}},
	Channels: []domain.SlackChannel{{ID: "c1", WebhookURL: "https://hooks.example.com/1", IsDefault: true}},
}

func TestTicketCreatedRoutesToMappedAccount(t *testing.T) {
	f := newNotificationFixture(staticSettings{settings: routedSettings})
	f.agents.On("GetByID", mock.Anything, tenantID, "102").Return(&domain.Agent{ID: "102", Email: "bob@example.com"}, nil)

	assignee := "102"
	err := f.dispatcher.Publish(context.Background(), events.Event{
		ID:               "e1",
		Type:             events.EventTicketCreated,
		TenantID:         tenantID,
		NotificationType: domain.NotificationIncident,
		TicketID:         "inc-1",
		Payload: events.TicketCreatedPayload{
			Category:   domain.CategoryIncident,
			Title:      "Printer on fire",
			Priority:   domain.TicketPriorityCritical,
			AssigneeID: &assignee,
		},
	})
	require.NoError(t, err)

	require.Len(t, f.mailer.sent, 1)
	sent := f.mailer.sent[0]
	assert.Equal(t, "a", sent.account.ID)
	assert.Equal(t, []string{"bob@example.com"}, sent.msg.To)
	assert.Equal(t, "[ITSM] New Incident: Printer on fire", sent.msg.Subject)
	assert.Contains(t, sent.msg.Body, "Priority: critical")

	require.Len(t, f.slack.posts["c1"], 1)
	assert.Contains(t, f.slack.posts["c1"][0], "Printer on fire")
	assert.Equal(t, 1.0, f.count(channelEmail, observability.OutcomeSent))
	assert.Equal(t, 1.0, f.count(channelSlack, observability.OutcomeSent))
}

func TestUnassignedTicketNotifiesAdmins(t *testing.T) {
	f := newNotificationFixture(staticSettings{settings: routedSettings})
	f.agents.On("ListByRole", mock.Anything, tenantID, []domain.AgentRole{domain.AgentRoleAdmin}).Return([]domain.Agent{
		{ID: "1", Email: "root@example.com"},
		{ID: "2"},
	}, nil)

	err := f.dispatcher.Publish(context.Background(), events.Event{
		Type:             events.EventTicketCreated,
		TenantID:         tenantID,
		NotificationType: domain.NotificationServiceRequest,
		Payload:          events.TicketCreatedPayload{Category: domain.CategoryServiceRequest, Title: "Laptop"},
	})
	require.NoError(t, err)

	require.Len(t, f.mailer.sent, 1)
	assert.Equal(t, "b", f.mailer.sent[0].account.ID, "unmapped type uses the default")
	assert.Equal(t, []string{"root@example.com"}, f.mailer.sent[0].msg.To)
}

func TestNoticeWithoutTargetsIsSkipped(t *testing.T) {
	f := newNotificationFixture(staticSettings{settings: &domain.NotificationSettings{TenantID: tenantID}})

	id, err := f.service.PostNotice(context.Background(), domain.Principal{TenantID: tenantID, AgentID: "admin"},
		domain.NotificationMonitoring, "Disk 95%", "db-01")

	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.Empty(t, f.mailer.sent)
	assert.Empty(t, f.slack.posts)
	assert.Equal(t, 1.0, f.count(channelEmail, observability.OutcomeUnresolved))
	assert.Equal(t, 1.0, f.count(channelSlack, observability.OutcomeUnresolved))
}

func TestPostNoticeValidation(t *testing.T) {
	f := newNotificationFixture(staticSettings{settings: routedSettings})
	actor := domain.Principal{TenantID: tenantID}

	_, err := f.service.PostNotice(context.Background(), actor, domain.NotificationIncident, "x", "")
	assert.Error(t, err)

	_, err = f.service.PostNotice(context.Background(), actor, domain.NotificationSystem, "  ", "")
	assert.Error(t, err)
}

func TestDeliveryFailureRecorded(t *testing.T) {
	f := newNotificationFixture(staticSettings{settings: routedSettings})
	f.slack.err = errors.New("403 invalid_token")
	f.agents.On("ListByRole", mock.Anything, tenantID, mock.Anything).Return([]domain.Agent{{Email: "root@example.com"}}, nil)

	_, err := f.service.PostNotice(context.Background(), domain.Principal{TenantID: tenantID}, domain.NotificationSystem, "Maintenance", "")
	require.NoError(t, err)

	assert.Equal(t, 1.0, f.count(channelSlack, observability.OutcomeFailed))
	assert.Equal(t, 1.0, f.count(channelEmail, observability.OutcomeSent))
}

func TestFullQueueDrops(t *testing.T) {
	f := newNotificationFixture(staticSettings{settings: routedSettings})
	f.queue.err = worker.ErrQueueFull
	f.agents.On("ListByRole", mock.Anything, tenantID, mock.Anything).Return([]domain.Agent{{Email: "root@example.com"}}, nil)

	_, err := f.service.PostNotice(context.Background(), domain.Principal{TenantID: tenantID}, domain.NotificationSystem, "Maintenance", "")
	require.NoError(t, err)

	assert.Empty(t, f.mailer.sent)
	assert.Equal(t, 1.0, f.count(channelEmail, observability.OutcomeDropped))
	assert.Equal(t, 1.0, f.count(channelSlack, observability.OutcomeDropped))
}

func TestSettingsFailureSurfacesToPublisher(t *testing.T) {
	f := newNotificationFixture(staticSettings{err: errors.New("db down")})

	err := f.dispatcher.Publish(context.Background(), events.Event{
		Type:             events.EventNoticePosted,
		TenantID:         tenantID,
		NotificationType: domain.NotificationSystem,
		Payload:          events.NoticePayload{Subject: "x"},
	})

	assert.ErrorContains(t, err, "load notification settings")
}

func TestRenderStatusChange(t *testing.T) {
	n := NewNotificationService(NotificationDependencies{})
	subject, body := n.render(events.Event{
		TicketID: "chg-9",
		Payload: events.TicketStatusChangedPayload{
			Category:  domain.CategoryChangeRequest,
			Title:     "Rotate certs",
			OldStatus: domain.ChangeStatusApproved,
			NewStatus: domain.ChangeStatusScheduled,
		},
	})

	assert.Equal(t, "Change request status changed: Rotate certs", subject)
	assert.Equal(t, "Ticket: chg-9\nStatus: approved -> scheduled", body)
}
