package repo

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"server/internal/domain"
)

// JobRepositoryPG implements domain.JobRepository.
type JobRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewJobRepository creates a new job repository backed by PostgreSQL.
func NewJobRepository(pool *pgxpool.Pool) *JobRepositoryPG {
	return &JobRepositoryPG{pool: pool}
}

// Insert persists a new job record.
func (r *JobRepositoryPG) Insert(ctx context.Context, job *domain.Job) error {
	params, err := job.ResolvedParams.Encode()
	if err != nil {
		return fmt.Errorf("encode resolved params: %w", err)
	}
	query := `
INSERT INTO jobs (id, job_id, provider_job_id, user_id, kind, model_slug, version_tag, preset_id,
                  resolved_params, status, result_url, error_message, token_consumed,
                  duration_seconds, locale, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17);
`
	_, err = r.pool.Exec(ctx, query,
		job.ID,
		job.JobID,
		job.ProviderJobID,
		job.UserID,
		job.Kind,
		job.ModelSlug,
		job.VersionTag,
		nullableString(job.PresetID),
		params,
		job.Status,
		job.ResultURL,
		job.ErrorMessage,
		job.TokenConsumed,
		job.DurationSeconds,
		job.Locale,
		job.CreatedAt,
		job.UpdatedAt,
	)
	return err
}

// Update replaces the mutable fields of a job record. Full-record replace is
// the contract; the orchestrator writes the row at most twice.
func (r *JobRepositoryPG) Update(ctx context.Context, job *domain.Job) error {
	query := `
UPDATE jobs
SET provider_job_id = $2,
    status = $3,
    result_url = $4,
    error_message = $5,
    updated_at = $6
WHERE id = $1;
`
	_, err := r.pool.Exec(ctx, query,
		job.ID,
		job.ProviderJobID,
		job.Status,
		job.ResultURL,
		job.ErrorMessage,
		job.UpdatedAt,
	)
	return err
}

// GetByID fetches a job by its identifier.
func (r *JobRepositoryPG) GetByID(ctx context.Context, jobID string) (*domain.Job, error) {
	query := `
SELECT id, job_id, provider_job_id, user_id, kind, model_slug, version_tag, preset_id,
       resolved_params, status, result_url, error_message, token_consumed,
       duration_seconds, locale, created_at, updated_at
FROM jobs
WHERE id = $1;
`
	row := r.pool.QueryRow(ctx, query, jobID)
	var (
		job      domain.Job
		presetID *string
		params   []byte
	)
	if err := row.Scan(
		&job.ID,
		&job.JobID,
		&job.ProviderJobID,
		&job.UserID,
		&job.Kind,
		&job.ModelSlug,
		&job.VersionTag,
		&presetID,
		&params,
		&job.Status,
		&job.ResultURL,
		&job.ErrorMessage,
		&job.TokenConsumed,
		&job.DurationSeconds,
		&job.Locale,
		&job.CreatedAt,
		&job.UpdatedAt,
	); err != nil {
		return nil, mapNoRows(err)
	}
	if presetID != nil {
		job.PresetID = *presetID
	}
	if len(params) > 0 {
		if err := json.Unmarshal(params, &job.ResolvedParams); err != nil {
			return nil, fmt.Errorf("job %s resolved_params: %w", job.ID, err)
		}
	}
	return &job, nil
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
