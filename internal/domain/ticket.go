package domain

import "time"

// TicketCategory identifies one of the three ticket kinds.
type TicketCategory string

const (
	CategoryIncident       TicketCategory = "incident"
	CategoryServiceRequest TicketCategory = "service_request"
	CategoryChangeRequest  TicketCategory = "change_request"
)

// TicketCategories lists every category in a fixed order.
var TicketCategories = []TicketCategory{CategoryIncident, CategoryServiceRequest, CategoryChangeRequest}

// TicketStatus enumerates lifecycle states; valid values depend on the category.
type TicketStatus string

const (
	IncidentStatusNew        TicketStatus = "new"
	IncidentStatusInProgress TicketStatus = "in_progress"
	IncidentStatusOnHold     TicketStatus = "on_hold"
	IncidentStatusResolved   TicketStatus = "resolved"
	IncidentStatusClosed     TicketStatus = "closed"

	ServiceRequestStatusSubmitted     TicketStatus = "submitted"
	ServiceRequestStatusApproved      TicketStatus = "approved"
	ServiceRequestStatusInFulfillment TicketStatus = "in_fulfillment"
	ServiceRequestStatusFulfilled     TicketStatus = "fulfilled"
	ServiceRequestStatusClosed        TicketStatus = "closed"

	ChangeStatusDraft           TicketStatus = "draft"
	ChangeStatusPendingApproval TicketStatus = "pending_approval"
	ChangeStatusApproved        TicketStatus = "approved"
	ChangeStatusScheduled       TicketStatus = "scheduled"
	ChangeStatusImplemented     TicketStatus = "implemented"
	ChangeStatusClosed          TicketStatus = "closed"
)

var categoryStatuses = map[TicketCategory][]TicketStatus{
	CategoryIncident: {
		IncidentStatusNew, IncidentStatusInProgress, IncidentStatusOnHold,
		IncidentStatusResolved, IncidentStatusClosed,
	},
	CategoryServiceRequest: {
		ServiceRequestStatusSubmitted, ServiceRequestStatusApproved, ServiceRequestStatusInFulfillment,
		ServiceRequestStatusFulfilled, ServiceRequestStatusClosed,
	},
	CategoryChangeRequest: {
		ChangeStatusDraft, ChangeStatusPendingApproval, ChangeStatusApproved,
		ChangeStatusScheduled, ChangeStatusImplemented, ChangeStatusClosed,
	},
}

// Valid reports whether c is a known category.
func (c TicketCategory) Valid() bool {
	_, ok := categoryStatuses[c]
	return ok
}

// ClosedStatus returns the terminal status of the category. Every other status counts as open.
func (c TicketCategory) ClosedStatus() TicketStatus {
	switch c {
	case CategoryIncident:
		return IncidentStatusClosed
	case CategoryServiceRequest:
		return ServiceRequestStatusClosed
	case CategoryChangeRequest:
		return ChangeStatusClosed
	}
	return ""
}

// InitialStatus returns the status new tickets of the category start in.
func (c TicketCategory) InitialStatus() TicketStatus {
	if statuses, ok := categoryStatuses[c]; ok {
		return statuses[0]
	}
	return ""
}

// AllowsStatus reports whether status belongs to the category's lifecycle.
func (c TicketCategory) AllowsStatus(status TicketStatus) bool {
	for _, s := range categoryStatuses[c] {
		if s == status {
			return true
		}
	}
	return false
}

// NotificationType maps a ticket category to its notification stream.
func (c TicketCategory) NotificationType() NotificationType {
	return NotificationType(c)
}

// TicketPriority enumerates urgency.
type TicketPriority string

const (
	TicketPriorityLow      TicketPriority = "low"
	TicketPriorityMedium   TicketPriority = "medium"
	TicketPriorityHigh     TicketPriority = "high"
	TicketPriorityCritical TicketPriority = "critical"
)

// Valid reports whether p is a known priority.
func (p TicketPriority) Valid() bool {
	switch p {
	case TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh, TicketPriorityCritical:
		return true
	}
	return false
}

// Ticket is an incident, service request or change request.
type Ticket struct {
	ID          string
	TenantID    string
	Category    TicketCategory
	AssigneeID  *string
	Title       string
	Description string
	Status      TicketStatus
	Priority    TicketPriority
	CreatedAt   time.Time
	UpdatedAt   time.Time
	ClosedAt    *time.Time
}

// IsOpen reports whether the ticket still counts towards its assignee's workload.
func (t *Ticket) IsOpen() bool {
	return t.Status != t.Category.ClosedStatus()
}
