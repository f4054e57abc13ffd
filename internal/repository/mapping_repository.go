package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/deskops/itsm-service/internal/domain"
)

// MappingRepository persists per-type routing for email and Slack.
type MappingRepository interface {
	ListEmail(ctx context.Context, tenantID string) ([]domain.NotificationMapping, error)
	UpsertEmail(ctx context.Context, tenantID string, mapping domain.NotificationMapping) error
	DeleteEmail(ctx context.Context, tenantID string, typ domain.NotificationType) error
	ListSlack(ctx context.Context, tenantID string) ([]domain.SlackMapping, error)
	UpsertSlack(ctx context.Context, tenantID string, mapping domain.SlackMapping) error
}

type mappingRepository struct {
	pool Querier
}

// NewMappingRepository constructs repository.
func NewMappingRepository(pool Querier) MappingRepository {
	return &mappingRepository{pool: pool}
}

func (r *mappingRepository) ListEmail(ctx context.Context, tenantID string) ([]domain.NotificationMapping, error) {
	const query = `
        SELECT notification_type, account_id
        FROM notification_mappings WHERE tenant_id=$1 ORDER BY notification_type`
	rows, err := r.pool.Query(ctx, query, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.NotificationMapping
	for rows.Next() {
		var m domain.NotificationMapping
		if err := rows.Scan(&m.Type, &m.AccountID); err != nil {
			return nil, err
		}
		result = append(result, m)
	}
	return result, rows.Err()
}

func (r *mappingRepository) UpsertEmail(ctx context.Context, tenantID string, mapping domain.NotificationMapping) error {
	const query = `
        INSERT INTO notification_mappings (tenant_id, notification_type, account_id)
        VALUES ($1,$2,$3)
        ON CONFLICT (tenant_id, notification_type)
        DO UPDATE SET account_id=EXCLUDED.account_id, updated_at=NOW()`
	_, err := r.pool.Exec(ctx, query, tenantID, mapping.Type, mapping.AccountID)
	return err
}

func (r *mappingRepository) DeleteEmail(ctx context.Context, tenantID string, typ domain.NotificationType) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM notification_mappings WHERE tenant_id=$1 AND notification_type=$2`, tenantID, typ)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *mappingRepository) ListSlack(ctx context.Context, tenantID string) ([]domain.SlackMapping, error) {
	const query = `
        SELECT notification_type, channel_id
        FROM slack_mappings WHERE tenant_id=$1 ORDER BY notification_type`
	rows, err := r.pool.Query(ctx, query, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.SlackMapping
	for rows.Next() {
		var m domain.SlackMapping
		if err := rows.Scan(&m.Type, &m.ChannelID); err != nil {
			return nil, err
		}
		result = append(result, m)
	}
	return result, rows.Err()
}

func (r *mappingRepository) UpsertSlack(ctx context.Context, tenantID string, mapping domain.SlackMapping) error {
	const query = `
        INSERT INTO slack_mappings (tenant_id, notification_type, channel_id)
        VALUES ($1,$2,$3)
        ON CONFLICT (tenant_id, notification_type)
        DO UPDATE SET channel_id=EXCLUDED.channel_id, updated_at=NOW()`
	_, err := r.pool.Exec(ctx, query, tenantID, mapping.Type, mapping.ChannelID)
	return err
}
