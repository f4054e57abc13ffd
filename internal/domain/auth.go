package domain

// Principal is the verified caller of a tenant-scoped request.
type Principal struct {
	AgentID  string
	TenantID string
	Role     AgentRole
}
