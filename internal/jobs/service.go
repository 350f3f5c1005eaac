package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"server/internal/domain"
	"server/internal/providers"
	"server/internal/resolver"
)

// CreateJobRequest is the orchestrator's input. Either PresetID or ModelSlug
// selects the model; PresetID wins when both are present.
type CreateJobRequest struct {
	Kind       domain.JobKind
	ModelSlug  string
	VersionTag string
	PresetID   string
	Params     domain.ParamDoc
	Locale     string
}

// Service is the job orchestrator: it resolves parameters, debits credits,
// persists the job, dispatches to the provider and reconciles the outcome.
type Service struct {
	users    domain.UserRepository
	ledger   domain.CreditLedger
	jobs     domain.JobRepository
	catalog  domain.CatalogRepository
	resolver *resolver.Resolver
	registry *providers.Registry
	logger   zerolog.Logger
	now      func() time.Time
	newID    func() string
}

// Options wires the orchestrator's collaborators.
type Options struct {
	Users    domain.UserRepository
	Ledger   domain.CreditLedger
	Jobs     domain.JobRepository
	Catalog  domain.CatalogRepository
	Resolver *resolver.Resolver
	Registry *providers.Registry
	Logger   zerolog.Logger
}

// NewService constructs the orchestrator.
func NewService(opts Options) *Service {
	return &Service{
		users:    opts.Users,
		ledger:   opts.Ledger,
		jobs:     opts.Jobs,
		catalog:  opts.Catalog,
		resolver: opts.Resolver,
		registry: opts.Registry,
		logger:   opts.Logger,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// CreateJob runs the full create flow. The debit and the job insert always
// happen before the provider is called, so every debited credit corresponds
// to exactly one persisted job row. Any failure at or after client selection
// marks the job failed, refunds the cost and re-raises the original error.
func (s *Service) CreateJob(ctx context.Context, req CreateJobRequest, userID string) (domain.JobSummary, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return domain.JobSummary{}, fmt.Errorf("user %q: %w", userID, err)
	}

	res, err := s.resolve(ctx, req)
	if err != nil {
		return domain.JobSummary{}, err
	}

	provider, err := s.catalog.GetProviderByID(ctx, res.Model.ProviderID)
	if err != nil {
		return domain.JobSummary{}, fmt.Errorf("provider of model %q: %w", res.Model.Slug, err)
	}

	pricing := res.Version.EffectivePricing(res.Model)
	cost, err := computeCost(req.Kind, res.Model.Slug, pricing, res.Params)
	if err != nil {
		return domain.JobSummary{}, err
	}

	debited, err := s.ledger.TryDebit(ctx, userID, cost)
	if err != nil {
		return domain.JobSummary{}, fmt.Errorf("debit credits: %w", err)
	}
	if !debited {
		return domain.JobSummary{}, &domain.InsufficientCreditsError{Balance: user.Credits, Required: cost}
	}

	// From here on the flow runs to completion even if the caller goes
	// away: a debit must never be left without a job row, and a failed
	// dispatch must always be refunded.
	persistCtx := context.WithoutCancel(ctx)

	job := s.buildJob(req, res, userID)
	if err := s.jobs.Insert(persistCtx, job); err != nil {
		if cerr := s.ledger.Credit(persistCtx, userID, cost); cerr != nil {
			s.logger.Error().Err(cerr).Str("user_id", userID).Int("amount", cost).Msg("refund after failed job insert")
		}
		return domain.JobSummary{}, fmt.Errorf("persist job: %w", err)
	}

	result, err := s.dispatch(ctx, provider, res.Version, res.Params)
	if err != nil {
		s.failJob(persistCtx, job, err)
		if cerr := s.ledger.Credit(persistCtx, userID, cost); cerr != nil {
			s.logger.Error().Err(cerr).Str("job_id", job.ID).Int("amount", cost).Msg("compensating refund failed")
		}
		return domain.JobSummary{}, err
	}

	job.ProviderJobID = result.ProviderJobID
	job.Status = result.Status
	job.ResultURL = result.ResultURL
	job.UpdatedAt = s.now().UTC()
	if err := s.jobs.Update(persistCtx, job); err != nil {
		// The provider accepted the job, so the debit stands; the row
		// stays in created until the webhook path reconciles it.
		s.logger.Error().Err(err).Str("job_id", job.ID).Msg("persist dispatched job")
		return domain.JobSummary{}, fmt.Errorf("persist job update: %w", err)
	}

	s.logger.Info().
		Str("job_id", job.ID).
		Str("model", job.ModelSlug).
		Str("version", job.VersionTag).
		Str("status", string(job.Status)).
		Int("cost", cost).
		Msg("job dispatched")
	return job.Summary(), nil
}

func (s *Service) resolve(ctx context.Context, req CreateJobRequest) (*resolver.Resolution, error) {
	if req.PresetID != "" {
		return s.resolver.ResolveByPreset(ctx, req.PresetID, req.Params)
	}
	if req.ModelSlug == "" {
		return nil, domain.NewValidationError("model", "a model slug or preset id is required")
	}
	return s.resolver.ResolveByModelSlug(ctx, req.ModelSlug, req.VersionTag, req.Params)
}

// dispatch covers client selection and the provider call; both failure modes
// compensate identically.
func (s *Service) dispatch(ctx context.Context, provider *domain.Provider, version *domain.Version, params domain.ParamDoc) (providers.Result, error) {
	client, err := s.registry.Lookup(provider.Type)
	if err != nil {
		return providers.Result{}, err
	}
	return client.CreateJob(ctx, provider, version, params)
}

func (s *Service) buildJob(req CreateJobRequest, res *resolver.Resolution, userID string) *domain.Job {
	now := s.now().UTC()
	id := s.newID()
	presetID := ""
	if res.Preset != nil {
		presetID = res.Preset.ID
	}
	duration := 0
	if req.Kind == domain.JobKindVideo {
		duration = durationFromParams(res.Params)
	}
	return &domain.Job{
		ID:              id,
		JobID:           id,
		UserID:          userID,
		Kind:            req.Kind,
		ModelSlug:       res.Model.Slug,
		VersionTag:      res.Version.Tag,
		PresetID:        presetID,
		ResolvedParams:  res.Params,
		Status:          domain.JobStatusCreated,
		TokenConsumed:   true,
		DurationSeconds: duration,
		Locale:          req.Locale,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func (s *Service) failJob(ctx context.Context, job *domain.Job, cause error) {
	job.Status = domain.JobStatusFailed
	job.ErrorMessage = cause.Error()
	job.UpdatedAt = s.now().UTC()
	if err := s.jobs.Update(ctx, job); err != nil {
		s.logger.Error().Err(err).Str("job_id", job.ID).Msg("persist failed job")
	}
}

// GetJob loads a job, scoped to its owner.
func (s *Service) GetJob(ctx context.Context, jobID, userID string) (*domain.Job, error) {
	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.UserID != userID {
		return nil, domain.ErrNotFound
	}
	return job, nil
}
