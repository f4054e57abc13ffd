package domain

import "time"

// AgentRole enumerates tenant member roles.
type AgentRole string

const (
	AgentRoleAdmin     AgentRole = "admin"
	AgentRoleAgent     AgentRole = "agent"
	AgentRoleRequester AgentRole = "requester"
)

// EligibleAgentRoles are the roles that can receive ticket assignments.
var EligibleAgentRoles = []AgentRole{AgentRoleAdmin, AgentRoleAgent}

// Eligible reports whether the role can be assigned tickets.
func (r AgentRole) Eligible() bool {
	return r == AgentRoleAdmin || r == AgentRoleAgent
}

// Agent models a tenant member who may work tickets.
type Agent struct {
	ID        string
	TenantID  string
	Name      string
	Email     string
	Role      AgentRole
	CreatedAt time.Time
	UpdatedAt time.Time
}
