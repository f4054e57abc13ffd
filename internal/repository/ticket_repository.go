package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/deskops/itsm-service/internal/domain"
)

// TicketRepository encapsulates persistence for all three ticket categories.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, tenantID string, category domain.TicketCategory, id string) (*domain.Ticket, error)
	UpdateStatus(ctx context.Context, ticket *domain.Ticket) error
	UpdateAssignee(ctx context.Context, ticket *domain.Ticket) error
	CountOpenByAssignee(ctx context.Context, tenantID string, category domain.TicketCategory) (map[string]int, error)
}

// categoryTables is the only source of table names interpolated into SQL.
var categoryTables = map[domain.TicketCategory]string{
	domain.CategoryIncident:       "incidents",
	domain.CategoryServiceRequest: "service_requests",
	domain.CategoryChangeRequest:  "change_requests",
}

// TableFor returns the table backing category.
func TableFor(category domain.TicketCategory) (string, error) {
	table, ok := categoryTables[category]
	if !ok {
		return "", fmt.Errorf("unknown ticket category %q", category)
	}
	return table, nil
}

type ticketRepository struct {
	pool Querier
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool Querier) TicketRepository {
	return &ticketRepository{pool: pool}
}

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	table, err := TableFor(ticket.Category)
	if err != nil {
		return err
	}
	query := fmt.Sprintf(`
        INSERT INTO %s (tenant_id, assignee_id, title, description, status, priority)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at, updated_at`, table)
	return r.pool.QueryRow(ctx, query,
		ticket.TenantID,
		ticket.AssigneeID,
		ticket.Title,
		ticket.Description,
		ticket.Status,
		ticket.Priority,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt)
}

func (r *ticketRepository) GetByID(ctx context.Context, tenantID string, category domain.TicketCategory, id string) (*domain.Ticket, error) {
	table, err := TableFor(category)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`
        SELECT id, tenant_id, assignee_id, title, description, status, priority, created_at, updated_at, closed_at
        FROM %s WHERE tenant_id=$1 AND id=$2`, table)

	ticket := domain.Ticket{Category: category}
	if err := r.pool.QueryRow(ctx, query, tenantID, id).Scan(
		&ticket.ID,
		&ticket.TenantID,
		&ticket.AssigneeID,
		&ticket.Title,
		&ticket.Description,
		&ticket.Status,
		&ticket.Priority,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
		&ticket.ClosedAt,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *ticketRepository) UpdateStatus(ctx context.Context, ticket *domain.Ticket) error {
	table, err := TableFor(ticket.Category)
	if err != nil {
		return err
	}
	query := fmt.Sprintf(`
        UPDATE %s SET status=$1, closed_at=$2, updated_at=NOW()
        WHERE tenant_id=$3 AND id=$4
        RETURNING updated_at`, table)
	return r.pool.QueryRow(ctx, query,
		ticket.Status,
		ticket.ClosedAt,
		ticket.TenantID,
		ticket.ID,
	).Scan(&ticket.UpdatedAt)
}

func (r *ticketRepository) UpdateAssignee(ctx context.Context, ticket *domain.Ticket) error {
	table, err := TableFor(ticket.Category)
	if err != nil {
		return err
	}
	query := fmt.Sprintf(`
        UPDATE %s SET assignee_id=$1, updated_at=NOW()
        WHERE tenant_id=$2 AND id=$3
        RETURNING updated_at`, table)
	return r.pool.QueryRow(ctx, query,
		ticket.AssigneeID,
		ticket.TenantID,
		ticket.ID,
	).Scan(&ticket.UpdatedAt)
}

func (r *ticketRepository) CountOpenByAssignee(ctx context.Context, tenantID string, category domain.TicketCategory) (map[string]int, error) {
	table, err := TableFor(category)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`
        SELECT assignee_id, COUNT(*)
        FROM %s
        WHERE tenant_id=$1 AND status <> $2 AND assignee_id IS NOT NULL
        GROUP BY assignee_id`, table)

	rows, err := r.pool.Query(ctx, query, tenantID, category.ClosedStatus())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanCounts(rows)
}

func scanCounts(rows pgx.Rows) (map[string]int, error) {
	counts := make(map[string]int)
	for rows.Next() {
		var (
			assignee string
			count    int
		)
		if err := rows.Scan(&assignee, &count); err != nil {
			return nil, err
		}
		counts[assignee] = count
	}
	return counts, rows.Err()
}
