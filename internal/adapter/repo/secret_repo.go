package repo

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SecretStorePG resolves named secrets from the provider_secrets table and
// satisfies secrets.Source. References unknown to the table resolve to the
// empty string so the caller can fall through to the next source.
type SecretStorePG struct {
	pool *pgxpool.Pool
}

// NewSecretStore creates a DB-backed secret store.
func NewSecretStore(pool *pgxpool.Pool) *SecretStorePG {
	return &SecretStorePG{pool: pool}
}

// Lookup returns the stored value for a secret name, or "" when absent.
func (s *SecretStorePG) Lookup(ctx context.Context, name string) (string, error) {
	row := s.pool.QueryRow(ctx, `SELECT value FROM provider_secrets WHERE name = $1`, name)
	var value string
	if err := row.Scan(&value); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(value), nil
}

// Upsert stores or replaces a secret value under the given name.
func (s *SecretStorePG) Upsert(ctx context.Context, name, value string) error {
	name = strings.TrimSpace(name)
	value = strings.TrimSpace(value)
	if name == "" || value == "" {
		return errors.New("secret name and value are required")
	}
	_, err := s.pool.Exec(ctx, `
INSERT INTO provider_secrets (name, value)
VALUES ($1, $2)
ON CONFLICT (name) DO UPDATE
SET value = EXCLUDED.value,
    updated_at = NOW();
`, name, value)
	return err
}
