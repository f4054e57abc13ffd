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

// TicketWorkflow is the ticket service surface the handler calls.
type TicketWorkflow interface {
	CreateTicket(ctx context.Context, actor domain.Principal, category domain.TicketCategory, input service.TicketCreateInput) (*domain.Ticket, error)
	GetTicket(ctx context.Context, actor domain.Principal, category domain.TicketCategory, ticketID string) (*domain.Ticket, error)
	UpdateStatus(ctx context.Context, actor domain.Principal, category domain.TicketCategory, ticketID string, status domain.TicketStatus) (*domain.Ticket, error)
}

// TicketAssigner reassigns tickets.
type TicketAssigner interface {
	AssignTicket(ctx context.Context, actor domain.Principal, category domain.TicketCategory, ticketID, agentID string) (*domain.Ticket, error)
}

// TicketsHandler manages ticket endpoints.
type TicketsHandler struct {
	tickets    TicketWorkflow
	assignment TicketAssigner
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(tickets TicketWorkflow, assignment TicketAssigner) *TicketsHandler {
	return &TicketsHandler{tickets: tickets, assignment: assignment}
}

func categoryParam(c *fiber.Ctx) (domain.TicketCategory, error) {
	category := domain.TicketCategory(c.Params("category"))
	if !category.Valid() {
		return "", apperrors.NewNotFound("ticket category", map[string]any{"category": string(category)})
	}
	return category, nil
}

// CreateTicket POST /api/v1/tickets/:category.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	principal, err := principalFrom(c)
	if err != nil {
		return err
	}
	category, err := categoryParam(c)
	if err != nil {
		return err
	}
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.AssigneeID != nil {
		if err := bodyID("assignee_id", *req.AssigneeID); err != nil {
			return err
		}
	}

	ticket, err := h.tickets.CreateTicket(c.UserContext(), principal, category, service.TicketCreateInput{
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
		AssigneeID:  req.AssigneeID,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

// GetTicket GET /api/v1/tickets/:category/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	principal, err := principalFrom(c)
	if err != nil {
		return err
	}
	category, err := categoryParam(c)
	if err != nil {
		return err
	}
	id, err := idParam(c, "ticket")
	if err != nil {
		return err
	}
	ticket, err := h.tickets.GetTicket(c.UserContext(), principal, category, id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

// UpdateStatus PATCH /api/v1/tickets/:category/:id/status.
func (h *TicketsHandler) UpdateStatus(c *fiber.Ctx) error {
	principal, err := principalFrom(c)
	if err != nil {
		return err
	}
	category, err := categoryParam(c)
	if err != nil {
		return err
	}
	id, err := idParam(c, "ticket")
	if err != nil {
		return err
	}
	var req dto.UpdateStatusRequest
	if err := c.BodyParser(&req); err != nil || req.Status == "" {
		return apperrors.NewValidationError("status required", nil)
	}
	ticket, err := h.tickets.UpdateStatus(c.UserContext(), principal, category, id, req.Status)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

// AssignTicket PATCH /api/v1/tickets/:category/:id/assignee.
func (h *TicketsHandler) AssignTicket(c *fiber.Ctx) error {
	principal, err := principalFrom(c)
	if err != nil {
		return err
	}
	category, err := categoryParam(c)
	if err != nil {
		return err
	}
	id, err := idParam(c, "ticket")
	if err != nil {
		return err
	}
	var req dto.AssignTicketRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return apperrors.NewValidationError("invalid payload", nil)
		}
	}
	agentID := ""
	if req.AgentID != nil {
		agentID = *req.AgentID
	}
	if err := bodyID("agent_id", agentID); err != nil {
		return err
	}
	ticket, err := h.assignment.AssignTicket(c.UserContext(), principal, category, id, agentID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}
