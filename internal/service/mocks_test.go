package service

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/deskops/itsm-service/internal/cache"
	"github.com/deskops/itsm-service/internal/delivery"
	"github.com/deskops/itsm-service/internal/domain"
	"github.com/deskops/itsm-service/internal/worker"
)

type mockAgentRepo struct{ mock.Mock }

func (m *mockAgentRepo) ListEligible(ctx context.Context, tenantID string) ([]domain.Agent, error) {
	args := m.Called(ctx, tenantID)
	agents, _ := args.Get(0).([]domain.Agent)
	return agents, args.Error(1)
}

func (m *mockAgentRepo) ListByRole(ctx context.Context, tenantID string, roles ...domain.AgentRole) ([]domain.Agent, error) {
	args := m.Called(ctx, tenantID, roles)
	agents, _ := args.Get(0).([]domain.Agent)
	return agents, args.Error(1)
}

func (m *mockAgentRepo) GetByID(ctx context.Context, tenantID, id string) (*domain.Agent, error) {
	args := m.Called(ctx, tenantID, id)
	agent, _ := args.Get(0).(*domain.Agent)
	return agent, args.Error(1)
}

type mockTicketRepo struct{ mock.Mock }

func (m *mockTicketRepo) Create(ctx context.Context, ticket *domain.Ticket) error {
	return m.Called(ctx, ticket).Error(0)
}

func (m *mockTicketRepo) GetByID(ctx context.Context, tenantID string, category domain.TicketCategory, id string) (*domain.Ticket, error) {
	args := m.Called(ctx, tenantID, category, id)
	ticket, _ := args.Get(0).(*domain.Ticket)
	return ticket, args.Error(1)
}

func (m *mockTicketRepo) UpdateStatus(ctx context.Context, ticket *domain.Ticket) error {
	return m.Called(ctx, ticket).Error(0)
}

func (m *mockTicketRepo) UpdateAssignee(ctx context.Context, ticket *domain.Ticket) error {
	return m.Called(ctx, ticket).Error(0)
}

func (m *mockTicketRepo) CountOpenByAssignee(ctx context.Context, tenantID string, category domain.TicketCategory) (map[string]int, error) {
	args := m.Called(ctx, tenantID, category)
	counts, _ := args.Get(0).(map[string]int)
	return counts, args.Error(1)
}

type mockAccountRepo struct{ mock.Mock }

func (m *mockAccountRepo) List(ctx context.Context, tenantID string) ([]domain.EmailAccount, error) {
	args := m.Called(ctx, tenantID)
	accounts, _ := args.Get(0).([]domain.EmailAccount)
	return accounts, args.Error(1)
}

func (m *mockAccountRepo) GetByID(ctx context.Context, tenantID, id string) (*domain.EmailAccount, error) {
	args := m.Called(ctx, tenantID, id)
	account, _ := args.Get(0).(*domain.EmailAccount)
	return account, args.Error(1)
}

func (m *mockAccountRepo) Create(ctx context.Context, account *domain.EmailAccount) error {
	return m.Called(ctx, account).Error(0)
}

func (m *mockAccountRepo) Update(ctx context.Context, account *domain.EmailAccount) error {
	return m.Called(ctx, account).Error(0)
}

func (m *mockAccountRepo) Delete(ctx context.Context, tenantID, id string) error {
	return m.Called(ctx, tenantID, id).Error(0)
}

func (m *mockAccountRepo) SetDefault(ctx context.Context, tenantID, id string) error {
	return m.Called(ctx, tenantID, id).Error(0)
}

type mockChannelRepo struct{ mock.Mock }

func (m *mockChannelRepo) List(ctx context.Context, tenantID string) ([]domain.SlackChannel, error) {
	args := m.Called(ctx, tenantID)
	channels, _ := args.Get(0).([]domain.SlackChannel)
	return channels, args.Error(1)
}

func (m *mockChannelRepo) Create(ctx context.Context, channel *domain.SlackChannel) error {
	return m.Called(ctx, channel).Error(0)
}

func (m *mockChannelRepo) Delete(ctx context.Context, tenantID, id string) error {
	return m.Called(ctx, tenantID, id).Error(0)
}

func (m *mockChannelRepo) SetDefault(ctx context.Context, tenantID, id string) error {
	return m.Called(ctx, tenantID, id).Error(0)
}

type mockMappingRepo struct{ mock.Mock }

func (m *mockMappingRepo) ListEmail(ctx context.Context, tenantID string) ([]domain.NotificationMapping, error) {
	args := m.Called(ctx, tenantID)
	mappings, _ := args.Get(0).([]domain.NotificationMapping)
	return mappings, args.Error(1)
}

func (m *mockMappingRepo) UpsertEmail(ctx context.Context, tenantID string, mapping domain.NotificationMapping) error {
	return m.Called(ctx, tenantID, mapping).Error(0)
}

func (m *mockMappingRepo) DeleteEmail(ctx context.Context, tenantID string, typ domain.NotificationType) error {
	return m.Called(ctx, tenantID, typ).Error(0)
}

func (m *mockMappingRepo) ListSlack(ctx context.Context, tenantID string) ([]domain.SlackMapping, error) {
	args := m.Called(ctx, tenantID)
	mappings, _ := args.Get(0).([]domain.SlackMapping)
	return mappings, args.Error(1)
}

func (m *mockMappingRepo) UpsertSlack(ctx context.Context, tenantID string, mapping domain.SlackMapping) error {
	return m.Called(ctx, tenantID, mapping).Error(0)
}

type mockCache struct{ mock.Mock }

func (m *mockCache) Get(ctx context.Context, tenantID string) (*domain.NotificationSettings, cache.Generation, error) {
	args := m.Called(ctx, tenantID)
	settings, _ := args.Get(0).(*domain.NotificationSettings)
	gen, _ := args.Get(1).(cache.Generation)
	return settings, gen, args.Error(2)
}

func (m *mockCache) Set(ctx context.Context, settings *domain.NotificationSettings, gen cache.Generation) error {
	return m.Called(ctx, settings, gen).Error(0)
}

func (m *mockCache) Invalidate(ctx context.Context, tenantID string) error {
	return m.Called(ctx, tenantID).Error(0)
}

// recordingMailer and recordingSlack capture deliveries.
type recordingMailer struct {
	mu   sync.Mutex
	sent []sentEmail
	err  error
}

type sentEmail struct {
	account domain.EmailAccount
	msg     delivery.EmailMessage
}

func (r *recordingMailer) Send(_ context.Context, account domain.EmailAccount, msg delivery.EmailMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, sentEmail{account: account, msg: msg})
	return r.err
}

type recordingSlack struct {
	mu    sync.Mutex
	posts map[string][]string
	err   error
}

func (r *recordingSlack) Post(_ context.Context, channel domain.SlackChannel, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.posts == nil {
		r.posts = make(map[string][]string)
	}
	r.posts[channel.ID] = append(r.posts[channel.ID], text)
	return r.err
}

// inlineQueue runs jobs synchronously.
type inlineQueue struct {
	jobs []worker.Job
	err  error
}

func (q *inlineQueue) Enqueue(job worker.Job) error {
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, job)
	_ = job.Run(context.Background())
	return nil
}

type staticSettings struct {
	settings *domain.NotificationSettings
	err      error
}

func (s staticSettings) Load(context.Context, string) (*domain.NotificationSettings, error) {
	return s.settings, s.err
}

type fakeSealer struct{}

func (fakeSealer) Seal(plain string) (string, error) { return "sealed:" + plain, nil }
