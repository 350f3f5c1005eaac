package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"server/internal/domain"
)

// CatalogRepositoryPG implements domain.CatalogRepository backed by
// PostgreSQL. Structured columns (pricing, schema, defaults, auth, webhook)
// are stored as jsonb.
type CatalogRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewCatalogRepository creates a catalog repository.
func NewCatalogRepository(pool *pgxpool.Pool) *CatalogRepositoryPG {
	return &CatalogRepositoryPG{pool: pool}
}

const modelColumns = `id, slug, provider_id, status, default_version_id, pricing, created_at, updated_at`

// GetModelBySlug fetches a model by its unique slug.
func (r *CatalogRepositoryPG) GetModelBySlug(ctx context.Context, slug string) (*domain.Model, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+modelColumns+` FROM models WHERE slug = $1 AND deleted_at IS NULL`, slug)
	return scanModel(row)
}

// GetModelByID fetches a model by id.
func (r *CatalogRepositoryPG) GetModelByID(ctx context.Context, id string) (*domain.Model, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+modelColumns+` FROM models WHERE id = $1 AND deleted_at IS NULL`, id)
	return scanModel(row)
}

const versionColumns = `id, model_id, tag, endpoint_url, param_schema, defaults, limits, pricing, status, webhook, rollout, created_at, updated_at`

// GetVersionByID fetches a version by id.
func (r *CatalogRepositoryPG) GetVersionByID(ctx context.Context, id string) (*domain.Version, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+versionColumns+` FROM model_versions WHERE id = $1`, id)
	return scanVersion(row)
}

// GetVersionByModelAndTag fetches a version by its per-model unique tag.
func (r *CatalogRepositoryPG) GetVersionByModelAndTag(ctx context.Context, modelID, tag string) (*domain.Version, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+versionColumns+` FROM model_versions WHERE model_id = $1 AND tag = $2`, modelID, tag)
	return scanVersion(row)
}

// GetPresetByID fetches a preset by id.
func (r *CatalogRepositoryPG) GetPresetByID(ctx context.Context, id string) (*domain.Preset, error) {
	row := r.pool.QueryRow(ctx, `
SELECT id, model_id, version_id, slug, params, locks, status, created_at, updated_at
FROM presets
WHERE id = $1`, id)

	var (
		p      domain.Preset
		params []byte
		locks  []byte
	)
	if err := row.Scan(&p.ID, &p.ModelID, &p.VersionID, &p.Slug, &params, &locks, &p.Status, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, mapNoRows(err)
	}
	if err := unmarshalDoc(params, &p.Params); err != nil {
		return nil, fmt.Errorf("preset %s params: %w", p.ID, err)
	}
	if len(locks) > 0 {
		if err := json.Unmarshal(locks, &p.Locks); err != nil {
			return nil, fmt.Errorf("preset %s locks: %w", p.ID, err)
		}
	}
	return &p, nil
}

// GetProviderByID fetches a provider record by id.
func (r *CatalogRepositoryPG) GetProviderByID(ctx context.Context, id string) (*domain.Provider, error) {
	row := r.pool.QueryRow(ctx, `
SELECT id, name, type, auth, status, created_at, updated_at
FROM providers
WHERE id = $1`, id)

	var (
		p    domain.Provider
		auth []byte
	)
	if err := row.Scan(&p.ID, &p.Name, &p.Type, &auth, &p.Status, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, mapNoRows(err)
	}
	if len(auth) > 0 {
		if err := json.Unmarshal(auth, &p.Auth); err != nil {
			return nil, fmt.Errorf("provider %s auth: %w", p.ID, err)
		}
	}
	return &p, nil
}

func scanModel(row pgx.Row) (*domain.Model, error) {
	var (
		m                domain.Model
		defaultVersionID *string
		pricing          []byte
	)
	if err := row.Scan(&m.ID, &m.Slug, &m.ProviderID, &m.Status, &defaultVersionID, &pricing, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return nil, mapNoRows(err)
	}
	if defaultVersionID != nil {
		m.DefaultVersionID = *defaultVersionID
	}
	if len(pricing) > 0 {
		if err := json.Unmarshal(pricing, &m.Pricing); err != nil {
			return nil, fmt.Errorf("model %s pricing: %w", m.ID, err)
		}
	}
	return &m, nil
}

func scanVersion(row pgx.Row) (*domain.Version, error) {
	var (
		v                                                   domain.Version
		schema, defaults, limits, pricing, webhook, rollout []byte
	)
	if err := row.Scan(&v.ID, &v.ModelID, &v.Tag, &v.EndpointURL, &schema, &defaults, &limits, &pricing, &v.Status, &webhook, &rollout, &v.CreatedAt, &v.UpdatedAt); err != nil {
		return nil, mapNoRows(err)
	}
	if err := unmarshalDoc(schema, &v.ParamSchema); err != nil {
		return nil, fmt.Errorf("version %s param_schema: %w", v.ID, err)
	}
	if err := unmarshalDoc(defaults, &v.Defaults); err != nil {
		return nil, fmt.Errorf("version %s defaults: %w", v.ID, err)
	}
	if err := unmarshalDoc(limits, &v.Limits); err != nil {
		return nil, fmt.Errorf("version %s limits: %w", v.ID, err)
	}
	if len(pricing) > 0 {
		if err := json.Unmarshal(pricing, &v.Pricing); err != nil {
			return nil, fmt.Errorf("version %s pricing: %w", v.ID, err)
		}
	}
	if len(webhook) > 0 {
		if err := json.Unmarshal(webhook, &v.Webhook); err != nil {
			return nil, fmt.Errorf("version %s webhook: %w", v.ID, err)
		}
	}
	if len(rollout) > 0 {
		if err := json.Unmarshal(rollout, &v.Rollout); err != nil {
			return nil, fmt.Errorf("version %s rollout: %w", v.ID, err)
		}
	}
	return &v, nil
}

func unmarshalDoc(raw []byte, dst *domain.ParamDoc) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, dst)
}

func mapNoRows(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrNotFound
	}
	return err
}
