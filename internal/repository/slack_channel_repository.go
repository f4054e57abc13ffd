package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/deskops/itsm-service/internal/domain"
)

// SlackChannelRepository manages Slack webhook targets.
type SlackChannelRepository interface {
	List(ctx context.Context, tenantID string) ([]domain.SlackChannel, error)
	Create(ctx context.Context, channel *domain.SlackChannel) error
	Delete(ctx context.Context, tenantID, id string) error
	SetDefault(ctx context.Context, tenantID, id string) error
}

type slackChannelRepository struct {
	pool Querier
}

// NewSlackChannelRepository constructs repository.
func NewSlackChannelRepository(pool Querier) SlackChannelRepository {
	return &slackChannelRepository{pool: pool}
}

func (r *slackChannelRepository) List(ctx context.Context, tenantID string) ([]domain.SlackChannel, error) {
	const query = `
        SELECT id, tenant_id, name, webhook_url, is_default, created_at
        FROM slack_channels WHERE tenant_id=$1 ORDER BY id`
	rows, err := r.pool.Query(ctx, query, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.SlackChannel
	for rows.Next() {
		var channel domain.SlackChannel
		if err := rows.Scan(&channel.ID, &channel.TenantID, &channel.Name, &channel.WebhookURL, &channel.IsDefault, &channel.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, channel)
	}
	return result, rows.Err()
}

func (r *slackChannelRepository) Create(ctx context.Context, channel *domain.SlackChannel) error {
	const query = `
        INSERT INTO slack_channels (tenant_id, name, webhook_url, is_default)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		channel.TenantID,
		channel.Name,
		channel.WebhookURL,
		channel.IsDefault,
	).Scan(&channel.ID, &channel.CreatedAt)
}

func (r *slackChannelRepository) Delete(ctx context.Context, tenantID, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM slack_channels WHERE tenant_id=$1 AND id=$2`, tenantID, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *slackChannelRepository) SetDefault(ctx context.Context, tenantID, id string) error {
	return setDefault(ctx, r.pool, "slack_channels", tenantID, id)
}
