package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/deskops/itsm-service/internal/domain"
	"github.com/deskops/itsm-service/internal/events"
	"github.com/deskops/itsm-service/internal/repository"
	apperrors "github.com/deskops/itsm-service/pkg/util/errorutil"
)

// AssignmentService handles manual reassignment and rebalancing of existing tickets.
type AssignmentService struct {
	tickets    repository.TicketRepository
	agents     repository.AgentRepository
	balancer   *WorkloadBalancer
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// AssignmentDependencies bundles repositories.
type AssignmentDependencies struct {
	TicketRepo repository.TicketRepository
	AgentRepo  repository.AgentRepository
	Balancer   *WorkloadBalancer
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// NewAssignmentService creates the service.
func NewAssignmentService(deps AssignmentDependencies) *AssignmentService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AssignmentService{
		tickets:    deps.TicketRepo,
		agents:     deps.AgentRepo,
		balancer:   deps.Balancer,
		dispatcher: deps.Dispatcher,
		logger:     logger,
	}
}

// AssignTicket sets the assignee of a ticket. An empty agentID hands the choice to
// the workload balancer; if it has no recommendation the ticket becomes unassigned.
func (s *AssignmentService) AssignTicket(ctx context.Context, actor domain.Principal, category domain.TicketCategory, ticketID, agentID string) (*domain.Ticket, error) {
	if !category.Valid() {
		return nil, apperrors.NewValidationError("unknown ticket category", map[string]any{"category": category})
	}

	ticket, err := s.tickets.GetByID(ctx, actor.TenantID, category, ticketID)
	if err != nil {
		return nil, notFound(err, "ticket", map[string]any{"ticket_id": ticketID})
	}
	if !ticket.IsOpen() {
		return nil, apperrors.NewConflict("ticket is closed", map[string]any{"ticket_id": ticketID})
	}

	var assignee *string
	if agentID != "" {
		agent, err := s.agents.GetByID(ctx, actor.TenantID, agentID)
		if err != nil {
			return nil, notFound(err, "agent", map[string]any{"agent_id": agentID})
		}
		if !agent.Role.Eligible() {
			return nil, apperrors.NewValidationError("agent cannot be assigned tickets", map[string]any{
				"agent_id": agentID,
				"role":     agent.Role,
			})
		}
		assignee = &agent.ID
	} else if s.balancer != nil {
		if next, ok := s.balancer.Reassign(ctx, actor.TenantID, ticket.AssigneeID); ok {
			assignee = &next
		}
	}

	if sameAssignee(ticket.AssigneeID, assignee) {
		return ticket, nil
	}

	old := ticket.AssigneeID
	ticket.AssigneeID = assignee
	if err := s.tickets.UpdateAssignee(ctx, ticket); err != nil {
		return nil, notFound(err, "ticket", map[string]any{"ticket_id": ticketID})
	}

	publish(ctx, s.dispatcher, s.logger, events.Event{
		Type:             events.EventTicketAssigned,
		TenantID:         ticket.TenantID,
		NotificationType: category.NotificationType(),
		TicketID:         ticket.ID,
		Actor:            agentActor(actor),
		Payload: events.TicketAssignedPayload{
			Category:      category,
			Title:         ticket.Title,
			OldAssigneeID: old,
			AssigneeID:    ticket.AssigneeID,
		},
	})
	return ticket, nil
}

func sameAssignee(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
