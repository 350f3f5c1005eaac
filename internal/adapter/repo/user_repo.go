package repo

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"server/internal/domain"
)

// UserRepositoryPG implements domain.UserRepository and domain.CreditLedger
// backed by PostgreSQL. The ledger operations act directly on the user's
// credit balance column.
type UserRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewUserRepository creates a new UserRepositoryPG.
func NewUserRepository(pool *pgxpool.Pool) *UserRepositoryPG {
	return &UserRepositoryPG{pool: pool}
}

// GetByID fetches a user by id.
func (r *UserRepositoryPG) GetByID(ctx context.Context, id string) (*domain.User, error) {
	row := r.pool.QueryRow(ctx, `SELECT id, email, name, credits, created_at, updated_at FROM users WHERE id = $1`, id)
	return scanUser(row)
}

// TryDebit atomically decrements the balance, succeeding only when it covers
// the amount. The conditional UPDATE is the single authority for whether a
// job may proceed; no in-process locking is involved.
func (r *UserRepositoryPG) TryDebit(ctx context.Context, userID string, amount int) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
UPDATE users
SET credits = credits - $2,
    updated_at = NOW()
WHERE id = $1
  AND credits >= $2;
`, userID, amount)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// Credit adds the amount back to the balance. Used as the compensating
// transaction after a failed dispatch; a plain additive increment.
func (r *UserRepositoryPG) Credit(ctx context.Context, userID string, amount int) error {
	tag, err := r.pool.Exec(ctx, `
UPDATE users
SET credits = credits + $2,
    updated_at = NOW()
WHERE id = $1;
`, userID, amount)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &u.Credits, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, mapNoRows(err)
	}
	return &u, nil
}
