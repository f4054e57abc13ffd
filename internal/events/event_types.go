package events

import (
	"time"

	"github.com/deskops/itsm-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated       EventType = "ticket_created"
	EventTicketStatusChanged EventType = "ticket_status_changed"
	EventTicketAssigned      EventType = "ticket_assigned"
	EventNoticePosted        EventType = "notice_posted"
)

// Actor identifies who caused an event. AgentID is nil for system actions.
type Actor struct {
	AgentID *string `json:"agent_id,omitempty"`
	System  bool    `json:"system,omitempty"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID               string                  `json:"id"`
	Type             EventType               `json:"type"`
	TenantID         string                  `json:"tenant_id"`
	NotificationType domain.NotificationType `json:"notification_type"`
	TicketID         string                  `json:"ticket_id,omitempty"`
	Actor            Actor                   `json:"actor"`
	Timestamp        time.Time               `json:"timestamp"`
	Payload          interface{}             `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Category   domain.TicketCategory `json:"category"`
	Title      string                `json:"title"`
	Priority   domain.TicketPriority `json:"priority"`
	AssigneeID *string               `json:"assignee_id,omitempty"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	Category   domain.TicketCategory `json:"category"`
	Title      string                `json:"title"`
	OldStatus  domain.TicketStatus   `json:"old_status"`
	NewStatus  domain.TicketStatus   `json:"new_status"`
	AssigneeID *string               `json:"assignee_id,omitempty"`
}

// TicketAssignedPayload payload.
type TicketAssignedPayload struct {
	Category      domain.TicketCategory `json:"category"`
	Title         string                `json:"title"`
	OldAssigneeID *string               `json:"old_assignee_id,omitempty"`
	AssigneeID    *string               `json:"assignee_id,omitempty"`
}

// NoticePayload carries a monitoring or system notice.
type NoticePayload struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}
