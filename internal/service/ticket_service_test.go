package service

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/deskops/itsm-service/internal/domain"
	"github.com/deskops/itsm-service/internal/events"
	apperrors "github.com/deskops/itsm-service/pkg/util/errorutil"
)

type TicketServiceSuite struct {
	suite.Suite

	agents     *mockAgentRepo
	tickets    *mockTicketRepo
	dispatcher events.Dispatcher
	published  []events.Event
	service    *TicketService
	assignment *AssignmentService
	actor      domain.Principal
}

func TestTicketServiceSuite(t *testing.T) {
	suite.Run(t, new(TicketServiceSuite))
}

func (s *TicketServiceSuite) SetupTest() {
	s.agents = &mockAgentRepo{}
	s.tickets = &mockTicketRepo{}
	s.published = nil
	s.dispatcher = events.NewInMemoryDispatcher()
	for _, typ := range []events.EventType{events.EventTicketCreated, events.EventTicketStatusChanged, events.EventTicketAssigned} {
		s.dispatcher.Subscribe(typ, func(_ context.Context, e events.Event) error {
			s.published = append(s.published, e)
			return nil
		})
	}

	balancer := NewWorkloadBalancer(WorkloadDependencies{AgentRepo: s.agents, TicketRepo: s.tickets})
	s.service = NewTicketService(TicketDependencies{
		TicketRepo: s.tickets,
		AgentRepo:  s.agents,
		Balancer:   balancer,
		Dispatcher: s.dispatcher,
	})
	s.assignment = NewAssignmentService(AssignmentDependencies{
		TicketRepo: s.tickets,
		AgentRepo:  s.agents,
		Balancer:   balancer,
		Dispatcher: s.dispatcher,
	})
	s.actor = domain.Principal{AgentID: "admin-1", TenantID: tenantID, Role: domain.AgentRoleAdmin}
}

func (s *TicketServiceSuite) expectWorkload(counts map[domain.TicketCategory]map[string]int, ids ...string) {
	s.agents.On("ListEligible", mock.Anything, tenantID).Return(agents(ids...), nil)
	countsFor(s.tickets, counts)
}

func (s *TicketServiceSuite) TestCreateAutoAssigns() {
	s.expectWorkload(map[domain.TicketCategory]map[string]int{
		domain.CategoryIncident:       {"101": 3},
		domain.CategoryServiceRequest: {"101": 1},
	}, "101", "102")
	s.tickets.On("Create", mock.Anything, mock.MatchedBy(func(t *domain.Ticket) bool {
		return t.AssigneeID != nil && *t.AssigneeID == "102"
	})).Run(func(args mock.Arguments) {
		args.Get(1).(*domain.Ticket).ID = "inc-1"
	}).Return(nil)

	ticket, err := s.service.CreateTicket(context.Background(), s.actor, domain.CategoryIncident, TicketCreateInput{
		Title:    "  VPN down ",
		Priority: domain.TicketPriorityHigh,
	})

	s.Require().NoError(err)
	s.Equal("VPN down", ticket.Title)
	s.Equal(domain.IncidentStatusNew, ticket.Status)
	s.Require().NotNil(ticket.AssigneeID)
	s.Equal("102", *ticket.AssigneeID)

	s.Require().Len(s.published, 1)
	event := s.published[0]
	s.Equal(events.EventTicketCreated, event.Type)
	s.Equal(domain.NotificationIncident, event.NotificationType)
	s.Equal("inc-1", event.TicketID)
	s.NotEmpty(event.ID)
	s.Require().NotNil(event.Actor.AgentID)
	s.Equal("admin-1", *event.Actor.AgentID)
}

func (s *TicketServiceSuite) TestCreateStaysUnassignedWhenNoAgents() {
	s.expectWorkload(nil)
	s.tickets.On("Create", mock.Anything, mock.MatchedBy(func(t *domain.Ticket) bool {
		return t.AssigneeID == nil
	})).Return(nil)

	ticket, err := s.service.CreateTicket(context.Background(), s.actor, domain.CategoryServiceRequest, TicketCreateInput{Title: "New laptop"})

	s.Require().NoError(err)
	s.Nil(ticket.AssigneeID)
	s.Equal(domain.ServiceRequestStatusSubmitted, ticket.Status)
	s.Equal(domain.TicketPriorityMedium, ticket.Priority)
}

func (s *TicketServiceSuite) TestCreateStaysUnassignedWhenWorkloadFails() {
	s.agents.On("ListEligible", mock.Anything, tenantID).Return(nil, errors.New("timeout"))
	s.tickets.On("Create", mock.Anything, mock.Anything).Return(nil)

	ticket, err := s.service.CreateTicket(context.Background(), s.actor, domain.CategoryChangeRequest, TicketCreateInput{Title: "Patch DB"})

	s.Require().NoError(err)
	s.Nil(ticket.AssigneeID)
	s.Equal(domain.ChangeStatusDraft, ticket.Status)
}

func (s *TicketServiceSuite) TestCreateExplicitAssignee() {
	s.agents.On("GetByID", mock.Anything, tenantID, "a-7").Return(&domain.Agent{ID: "a-7", Role: domain.AgentRoleAgent}, nil)
	s.tickets.On("Create", mock.Anything, mock.Anything).Return(nil)

	assignee := "a-7"
	ticket, err := s.service.CreateTicket(context.Background(), s.actor, domain.CategoryIncident, TicketCreateInput{Title: "x", AssigneeID: &assignee})

	s.Require().NoError(err)
	s.Equal("a-7", *ticket.AssigneeID)
	s.agents.AssertNotCalled(s.T(), "ListEligible", mock.Anything, mock.Anything)
}

func (s *TicketServiceSuite) TestCreateValidation() {
	requester := "r-1"
	s.agents.On("GetByID", mock.Anything, tenantID, requester).Return(&domain.Agent{ID: requester, Role: domain.AgentRoleRequester}, nil)

	cases := []struct {
		name     string
		category domain.TicketCategory
		input    TicketCreateInput
	}{
		{"unknown category", "problem", TicketCreateInput{Title: "x"}},
		{"blank title", domain.CategoryIncident, TicketCreateInput{Title: "   "}},
		{"bad priority", domain.CategoryIncident, TicketCreateInput{Title: "x", Priority: "urgent"}},
		{"requester as assignee", domain.CategoryIncident, TicketCreateInput{Title: "x", AssigneeID: &requester}},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			_, err := s.service.CreateTicket(context.Background(), s.actor, tc.category, tc.input)
			s.Equal("VALIDATION_FAILED", apperrors.ToDomainError(err).Code)
		})
	}
	s.tickets.AssertNotCalled(s.T(), "Create", mock.Anything, mock.Anything)
}

func (s *TicketServiceSuite) TestGetTicketNotFound() {
	s.tickets.On("GetByID", mock.Anything, tenantID, domain.CategoryIncident, "missing").Return(nil, pgx.ErrNoRows)

	_, err := s.service.GetTicket(context.Background(), s.actor, domain.CategoryIncident, "missing")
	s.Equal("NOT_FOUND", apperrors.ToDomainError(err).Code)
}

func (s *TicketServiceSuite) TestUpdateStatusClose() {
	assignee := "101"
	s.tickets.On("GetByID", mock.Anything, tenantID, domain.CategoryIncident, "inc-1").Return(&domain.Ticket{
		ID: "inc-1", TenantID: tenantID, Category: domain.CategoryIncident,
		Status: domain.IncidentStatusInProgress, AssigneeID: &assignee,
	}, nil)
	s.tickets.On("UpdateStatus", mock.Anything, mock.Anything).Return(nil)

	ticket, err := s.service.UpdateStatus(context.Background(), s.actor, domain.CategoryIncident, "inc-1", domain.IncidentStatusClosed)

	s.Require().NoError(err)
	s.False(ticket.IsOpen())
	s.NotNil(ticket.ClosedAt)
	s.Require().Len(s.published, 1)
	payload := s.published[0].Payload.(events.TicketStatusChangedPayload)
	s.Equal(domain.IncidentStatusInProgress, payload.OldStatus)
	s.Equal(domain.IncidentStatusClosed, payload.NewStatus)
}

func (s *TicketServiceSuite) TestUpdateStatusRejectsForeignStatus() {
	_, err := s.service.UpdateStatus(context.Background(), s.actor, domain.CategoryIncident, "inc-1", domain.ChangeStatusScheduled)
	s.Equal("VALIDATION_FAILED", apperrors.ToDomainError(err).Code)
}

func (s *TicketServiceSuite) TestUpdateStatusUnchangedPublishesNothing() {
	s.tickets.On("GetByID", mock.Anything, tenantID, domain.CategoryIncident, "inc-1").Return(&domain.Ticket{
		ID: "inc-1", Category: domain.CategoryIncident, Status: domain.IncidentStatusNew,
	}, nil)

	_, err := s.service.UpdateStatus(context.Background(), s.actor, domain.CategoryIncident, "inc-1", domain.IncidentStatusNew)
	s.Require().NoError(err)
	s.Empty(s.published)
	s.tickets.AssertNotCalled(s.T(), "UpdateStatus", mock.Anything, mock.Anything)
}

func (s *TicketServiceSuite) TestAssignTicketManual() {
	s.tickets.On("GetByID", mock.Anything, tenantID, domain.CategoryIncident, "inc-1").Return(&domain.Ticket{
		ID: "inc-1", TenantID: tenantID, Category: domain.CategoryIncident, Status: domain.IncidentStatusNew,
	}, nil)
	s.agents.On("GetByID", mock.Anything, tenantID, "102").Return(&domain.Agent{ID: "102", Role: domain.AgentRoleAdmin}, nil)
	s.tickets.On("UpdateAssignee", mock.Anything, mock.Anything).Return(nil)

	ticket, err := s.assignment.AssignTicket(context.Background(), s.actor, domain.CategoryIncident, "inc-1", "102")

	s.Require().NoError(err)
	s.Equal("102", *ticket.AssigneeID)
	s.Require().Len(s.published, 1)
	payload := s.published[0].Payload.(events.TicketAssignedPayload)
	s.Nil(payload.OldAssigneeID)
	s.Equal("102", *payload.AssigneeID)
}

func (s *TicketServiceSuite) TestAssignTicketRebalance() {
	s.tickets.On("GetByID", mock.Anything, tenantID, domain.CategoryIncident, "inc-1").Return(&domain.Ticket{
		ID: "inc-1", TenantID: tenantID, Category: domain.CategoryIncident, Status: domain.IncidentStatusNew,
	}, nil)
	s.expectWorkload(map[domain.TicketCategory]map[string]int{domain.CategoryIncident: {"a": 2, "b": 2}}, "a", "b", "c")
	s.tickets.On("UpdateAssignee", mock.Anything, mock.Anything).Return(nil)

	ticket, err := s.assignment.AssignTicket(context.Background(), s.actor, domain.CategoryIncident, "inc-1", "")

	s.Require().NoError(err)
	s.Equal("c", *ticket.AssigneeID)
}

func (s *TicketServiceSuite) TestAssignTicketRebalanceKeepsHolderOnTie() {
	holder := "b"
	s.tickets.On("GetByID", mock.Anything, tenantID, domain.CategoryIncident, "inc-1").Return(&domain.Ticket{
		ID: "inc-1", TenantID: tenantID, Category: domain.CategoryIncident, Status: domain.IncidentStatusNew, AssigneeID: &holder,
	}, nil)
	// b's count of two includes inc-1 itself.
	s.expectWorkload(map[domain.TicketCategory]map[string]int{domain.CategoryIncident: {"a": 1, "b": 2}}, "a", "b")

	ticket, err := s.assignment.AssignTicket(context.Background(), s.actor, domain.CategoryIncident, "inc-1", "")

	s.Require().NoError(err)
	s.Equal("b", *ticket.AssigneeID)
	s.tickets.AssertNotCalled(s.T(), "UpdateAssignee", mock.Anything, mock.Anything)
	s.Empty(s.published)
}

func (s *TicketServiceSuite) TestAssignClosedTicketConflicts() {
	s.tickets.On("GetByID", mock.Anything, tenantID, domain.CategoryChangeRequest, "chg-1").Return(&domain.Ticket{
		ID: "chg-1", Category: domain.CategoryChangeRequest, Status: domain.ChangeStatusClosed,
	}, nil)

	_, err := s.assignment.AssignTicket(context.Background(), s.actor, domain.CategoryChangeRequest, "chg-1", "102")
	s.Equal("CONFLICT", apperrors.ToDomainError(err).Code)
}

func (s *TicketServiceSuite) TestAssignUnknownAgent() {
	s.tickets.On("GetByID", mock.Anything, tenantID, domain.CategoryIncident, "inc-1").Return(&domain.Ticket{
		ID: "inc-1", Category: domain.CategoryIncident, Status: domain.IncidentStatusNew,
	}, nil)
	s.agents.On("GetByID", mock.Anything, tenantID, "ghost").Return(nil, pgx.ErrNoRows)

	_, err := s.assignment.AssignTicket(context.Background(), s.actor, domain.CategoryIncident, "inc-1", "ghost")
	s.Equal("NOT_FOUND", apperrors.ToDomainError(err).Code)
}
