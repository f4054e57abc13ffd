package dto

import "github.com/deskops/itsm-service/internal/domain"

// AgentLoad is one row of the workload view.
type AgentLoad struct {
	AgentID     string `json:"agent_id"`
	OpenTickets int    `json:"open_tickets"`
}

// WorkloadResponse lists every eligible agent in ascending ID order.
type WorkloadResponse struct {
	Agents     []AgentLoad `json:"agents"`
	TotalOpen  int         `json:"total_open"`
	AgentCount int         `json:"agent_count"`
}

// NextAgentResponse carries the recommendation; AgentID is null when there is none.
type NextAgentResponse struct {
	AgentID *string `json:"agent_id"`
}

// NewWorkloadResponse maps a snapshot.
func NewWorkloadResponse(snapshot domain.WorkloadSnapshot) WorkloadResponse {
	ids := snapshot.AgentIDs()
	rows := make([]AgentLoad, 0, len(ids))
	for _, id := range ids {
		rows = append(rows, AgentLoad{AgentID: id, OpenTickets: snapshot[id]})
	}
	return WorkloadResponse{Agents: rows, TotalOpen: snapshot.Total(), AgentCount: len(rows)}
}
