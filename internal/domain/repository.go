package domain

import "context"

// CatalogRepository reads catalog entities. Absence is reported as
// ErrNotFound, never wrapped in a lower-level store error.
type CatalogRepository interface {
	GetModelBySlug(ctx context.Context, slug string) (*Model, error)
	GetModelByID(ctx context.Context, id string) (*Model, error)
	GetVersionByID(ctx context.Context, id string) (*Version, error)
	GetVersionByModelAndTag(ctx context.Context, modelID, tag string) (*Version, error)
	GetPresetByID(ctx context.Context, id string) (*Preset, error)
	GetProviderByID(ctx context.Context, id string) (*Provider, error)
}

// UserRepository defines access methods for users.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*User, error)
}

// CreditLedger performs atomic balance movements. TryDebit succeeds only
// when the balance covers the amount; Credit is a plain additive increment
// used as the compensating transaction after a failed dispatch.
type CreditLedger interface {
	TryDebit(ctx context.Context, userID string, amount int) (bool, error)
	Credit(ctx context.Context, userID string, amount int) error
}

// JobRepository defines persistence for job entities. Insert and Update are
// full-record writes keyed by the job's id.
type JobRepository interface {
	Insert(ctx context.Context, job *Job) error
	Update(ctx context.Context, job *Job) error
	GetByID(ctx context.Context, jobID string) (*Job, error)
}
