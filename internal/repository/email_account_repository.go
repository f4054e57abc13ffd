package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/deskops/itsm-service/internal/domain"
)

// EmailAccountRepository manages outbound SMTP accounts.
type EmailAccountRepository interface {
	List(ctx context.Context, tenantID string) ([]domain.EmailAccount, error)
	GetByID(ctx context.Context, tenantID, id string) (*domain.EmailAccount, error)
	Create(ctx context.Context, account *domain.EmailAccount) error
	Update(ctx context.Context, account *domain.EmailAccount) error
	Delete(ctx context.Context, tenantID, id string) error
	SetDefault(ctx context.Context, tenantID, id string) error
}

type emailAccountRepository struct {
	pool Querier
}

// NewEmailAccountRepository constructs repository.
func NewEmailAccountRepository(pool Querier) EmailAccountRepository {
	return &emailAccountRepository{pool: pool}
}

const emailAccountColumns = `id, tenant_id, name, smtp_host, smtp_port, username, sealed_password,
               from_address, secure, is_default, created_at, updated_at`

func (r *emailAccountRepository) List(ctx context.Context, tenantID string) ([]domain.EmailAccount, error) {
	query := `SELECT ` + emailAccountColumns + ` FROM email_accounts WHERE tenant_id=$1 ORDER BY id`
	rows, err := r.pool.Query(ctx, query, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.EmailAccount
	for rows.Next() {
		account, err := scanEmailAccount(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *account)
	}
	return result, rows.Err()
}

func (r *emailAccountRepository) GetByID(ctx context.Context, tenantID, id string) (*domain.EmailAccount, error) {
	query := `SELECT ` + emailAccountColumns + ` FROM email_accounts WHERE tenant_id=$1 AND id=$2`
	return scanEmailAccount(r.pool.QueryRow(ctx, query, tenantID, id))
}

func (r *emailAccountRepository) Create(ctx context.Context, account *domain.EmailAccount) error {
	const query = `
        INSERT INTO email_accounts (tenant_id, name, smtp_host, smtp_port, username, sealed_password, from_address, secure, is_default)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		account.TenantID,
		account.Name,
		account.SMTPHost,
		account.SMTPPort,
		account.Username,
		account.SealedPassword,
		account.FromAddress,
		account.Secure,
		account.IsDefault,
	).Scan(&account.ID, &account.CreatedAt, &account.UpdatedAt)
}

func (r *emailAccountRepository) Update(ctx context.Context, account *domain.EmailAccount) error {
	const query = `
        UPDATE email_accounts
        SET name=$1, smtp_host=$2, smtp_port=$3, username=$4, sealed_password=$5, from_address=$6, secure=$7, updated_at=NOW()
        WHERE tenant_id=$8 AND id=$9`
	cmd, err := r.pool.Exec(ctx, query,
		account.Name,
		account.SMTPHost,
		account.SMTPPort,
		account.Username,
		account.SealedPassword,
		account.FromAddress,
		account.Secure,
		account.TenantID,
		account.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *emailAccountRepository) Delete(ctx context.Context, tenantID, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM email_accounts WHERE tenant_id=$1 AND id=$2`, tenantID, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// SetDefault flags id and clears every other default of the tenant in one transaction.
func (r *emailAccountRepository) SetDefault(ctx context.Context, tenantID, id string) error {
	return setDefault(ctx, r.pool, "email_accounts", tenantID, id)
}

func scanEmailAccount(row pgx.Row) (*domain.EmailAccount, error) {
	var account domain.EmailAccount
	if err := row.Scan(
		&account.ID,
		&account.TenantID,
		&account.Name,
		&account.SMTPHost,
		&account.SMTPPort,
		&account.Username,
		&account.SealedPassword,
		&account.FromAddress,
		&account.Secure,
		&account.IsDefault,
		&account.CreatedAt,
		&account.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &account, nil
}

// setDefault checks id exists, clears the current default, then sets id, all in
// one transaction. The clear runs first so the partial unique index on is_default
// never sees two defaults.
func setDefault(ctx context.Context, pool Querier, table, tenantID, id string) error {
	return inTx(ctx, pool, func(tx pgx.Tx) error {
		var exists bool
		if err := tx.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM `+table+` WHERE tenant_id=$1 AND id=$2)`,
			tenantID, id,
		).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return pgx.ErrNoRows
		}
		if _, err := tx.Exec(ctx,
			`UPDATE `+table+` SET is_default=FALSE WHERE tenant_id=$1 AND is_default AND id<>$2`,
			tenantID, id,
		); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `UPDATE `+table+` SET is_default=TRUE WHERE tenant_id=$1 AND id=$2`, tenantID, id)
		return err
	})
}
