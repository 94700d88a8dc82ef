package dao

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vadim/postpilot/internal/domain/post/entity"
)

// AccountPostgres implements AccountRepository for PostgreSQL. The table is
// owned by the connection-management layer; the queue only reads from it.
type AccountPostgres struct {
	pool *pgxpool.Pool
}

// NewAccountPostgres creates a new PostgreSQL account repository
func NewAccountPostgres(pool *pgxpool.Pool) *AccountPostgres {
	return &AccountPostgres{pool: pool}
}

// GetByID retrieves an account by ID
func (r *AccountPostgres) GetByID(ctx context.Context, id string) (*entity.Account, error) {
	query := `
		SELECT id, user_id, platform, platform_user_id, access_token, active
		FROM social_accounts
		WHERE id = $1
	`

	var account entity.Account
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&account.ID,
		&account.UserID,
		&account.Platform,
		&account.PlatformUserID,
		&account.AccessToken,
		&account.Active,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scanning account: %w", err)
	}

	return &account, nil
}

// ListByUser retrieves a user's connected accounts
func (r *AccountPostgres) ListByUser(ctx context.Context, userID string) ([]entity.Account, error) {
	query := `
		SELECT id, user_id, platform, platform_user_id, access_token, active
		FROM social_accounts
		WHERE user_id = $1
		ORDER BY platform
	`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("querying accounts: %w", err)
	}
	defer rows.Close()

	var accounts []entity.Account
	for rows.Next() {
		var account entity.Account
		if err := rows.Scan(
			&account.ID,
			&account.UserID,
			&account.Platform,
			&account.PlatformUserID,
			&account.AccessToken,
			&account.Active,
		); err != nil {
			return nil, fmt.Errorf("scanning account: %w", err)
		}
		accounts = append(accounts, account)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating accounts: %w", err)
	}

	return accounts, nil
}
