package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/deskops/itsm-service/internal/domain"
)

// AgentRepository reads tenant members.
type AgentRepository interface {
	ListEligible(ctx context.Context, tenantID string) ([]domain.Agent, error)
	ListByRole(ctx context.Context, tenantID string, roles ...domain.AgentRole) ([]domain.Agent, error)
	GetByID(ctx context.Context, tenantID, id string) (*domain.Agent, error)
}

type agentRepository struct {
	pool Querier
}

// NewAgentRepository instantiates the repository.
func NewAgentRepository(pool Querier) AgentRepository {
	return &agentRepository{pool: pool}
}

func (r *agentRepository) ListEligible(ctx context.Context, tenantID string) ([]domain.Agent, error) {
	return r.ListByRole(ctx, tenantID, domain.EligibleAgentRoles...)
}

func (r *agentRepository) ListByRole(ctx context.Context, tenantID string, roles ...domain.AgentRole) ([]domain.Agent, error) {
	const query = `
        SELECT id, tenant_id, name, email, role, created_at, updated_at
        FROM agents
        WHERE tenant_id=$1 AND role = ANY($2)
        ORDER BY id`

	names := make([]string, len(roles))
	for i, role := range roles {
		names[i] = string(role)
	}

	rows, err := r.pool.Query(ctx, query, tenantID, names)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Agent
	for rows.Next() {
		agent, err := scanAgent(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *agent)
	}
	return result, rows.Err()
}

func (r *agentRepository) GetByID(ctx context.Context, tenantID, id string) (*domain.Agent, error) {
	const query = `
        SELECT id, tenant_id, name, email, role, created_at, updated_at
        FROM agents WHERE tenant_id=$1 AND id=$2`
	return scanAgent(r.pool.QueryRow(ctx, query, tenantID, id))
}

func scanAgent(row pgx.Row) (*domain.Agent, error) {
	var agent domain.Agent
	if err := row.Scan(
		&agent.ID,
		&agent.TenantID,
		&agent.Name,
		&agent.Email,
		&agent.Role,
		&agent.CreatedAt,
		&agent.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &agent, nil
}
