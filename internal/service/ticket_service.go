package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/deskops/itsm-service/internal/domain"
	"github.com/deskops/itsm-service/internal/events"
	"github.com/deskops/itsm-service/internal/repository"
	apperrors "github.com/deskops/itsm-service/pkg/util/errorutil"
)

const maxTitleLength = 200

// TicketService coordinates ticket workflows.
type TicketService struct {
	tickets    repository.TicketRepository
	agents     repository.AgentRepository
	balancer   *WorkloadBalancer
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

// TicketDependencies bundles repositories for ticket service.
type TicketDependencies struct {
	TicketRepo repository.TicketRepository
	AgentRepo  repository.AgentRepository
	Balancer   *WorkloadBalancer
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Title       string
	Description string
	Priority    domain.TicketPriority
	AssigneeID  *string
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TicketService{
		tickets:    deps.TicketRepo,
		agents:     deps.AgentRepo,
		balancer:   deps.Balancer,
		dispatcher: deps.Dispatcher,
		logger:     logger,
		now:        time.Now,
	}
}

// CreateTicket stores a new ticket in its category's initial status. Without an
// explicit assignee the workload balancer picks one; no recommendation leaves the
// ticket unassigned and never fails the creation.
func (s *TicketService) CreateTicket(ctx context.Context, actor domain.Principal, category domain.TicketCategory, input TicketCreateInput) (*domain.Ticket, error) {
	if !category.Valid() {
		return nil, apperrors.NewValidationError("unknown ticket category", map[string]any{"category": category})
	}
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, apperrors.NewValidationError("title is required", nil)
	}
	if len(title) > maxTitleLength {
		return nil, apperrors.NewValidationError("title too long", map[string]any{"max": maxTitleLength})
	}
	priority := input.Priority
	if priority == "" {
		priority = domain.TicketPriorityMedium
	}
	if !priority.Valid() {
		return nil, apperrors.NewValidationError("invalid priority", map[string]any{"priority": priority})
	}

	ticket := &domain.Ticket{
		TenantID:    actor.TenantID,
		Category:    category,
		Title:       title,
		Description: strings.TrimSpace(input.Description),
		Status:      category.InitialStatus(),
		Priority:    priority,
	}

	switch {
	case input.AssigneeID != nil && *input.AssigneeID != "":
		agent, err := s.agents.GetByID(ctx, actor.TenantID, *input.AssigneeID)
		if err != nil {
			return nil, notFound(err, "agent", map[string]any{"agent_id": *input.AssigneeID})
		}
		if !agent.Role.Eligible() {
			return nil, apperrors.NewValidationError("agent cannot be assigned tickets", map[string]any{"agent_id": agent.ID})
		}
		ticket.AssigneeID = &agent.ID
	case s.balancer != nil:
		if agentID, ok := s.balancer.AutoAssign(ctx, actor.TenantID); ok {
			ticket.AssigneeID = &agentID
		}
	}

	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}

	publish(ctx, s.dispatcher, s.logger, events.Event{
		Type:             events.EventTicketCreated,
		TenantID:         ticket.TenantID,
		NotificationType: category.NotificationType(),
		TicketID:         ticket.ID,
		Actor:            agentActor(actor),
		Payload: events.TicketCreatedPayload{
			Category:   category,
			Title:      ticket.Title,
			Priority:   ticket.Priority,
			AssigneeID: ticket.AssigneeID,
		},
	})
	return ticket, nil
}

// GetTicket fetches one ticket of the caller's tenant.
func (s *TicketService) GetTicket(ctx context.Context, actor domain.Principal, category domain.TicketCategory, ticketID string) (*domain.Ticket, error) {
	if !category.Valid() {
		return nil, apperrors.NewValidationError("unknown ticket category", map[string]any{"category": category})
	}
	ticket, err := s.tickets.GetByID(ctx, actor.TenantID, category, ticketID)
	if err != nil {
		return nil, notFound(err, "ticket", map[string]any{"ticket_id": ticketID})
	}
	return ticket, nil
}

// UpdateStatus moves a ticket to status. Moving to the closed status stamps ClosedAt,
// which drops the ticket out of its assignee's workload.
func (s *TicketService) UpdateStatus(ctx context.Context, actor domain.Principal, category domain.TicketCategory, ticketID string, status domain.TicketStatus) (*domain.Ticket, error) {
	if !category.Valid() {
		return nil, apperrors.NewValidationError("unknown ticket category", map[string]any{"category": category})
	}
	if !category.AllowsStatus(status) {
		return nil, apperrors.NewValidationError("status not allowed for category", map[string]any{
			"category": category,
			"status":   status,
		})
	}

	ticket, err := s.tickets.GetByID(ctx, actor.TenantID, category, ticketID)
	if err != nil {
		return nil, notFound(err, "ticket", map[string]any{"ticket_id": ticketID})
	}
	if ticket.Status == status {
		return ticket, nil
	}

	old := ticket.Status
	ticket.Status = status
	if status == category.ClosedStatus() {
		closedAt := s.now().UTC()
		ticket.ClosedAt = &closedAt
	} else {
		ticket.ClosedAt = nil
	}
	if err := s.tickets.UpdateStatus(ctx, ticket); err != nil {
		return nil, notFound(err, "ticket", map[string]any{"ticket_id": ticketID})
	}

	publish(ctx, s.dispatcher, s.logger, events.Event{
		Type:             events.EventTicketStatusChanged,
		TenantID:         ticket.TenantID,
		NotificationType: category.NotificationType(),
		TicketID:         ticket.ID,
		Actor:            agentActor(actor),
		Payload: events.TicketStatusChangedPayload{
			Category:   category,
			Title:      ticket.Title,
			OldStatus:  old,
			NewStatus:  status,
			AssigneeID: ticket.AssigneeID,
		},
	})
	return ticket, nil
}
