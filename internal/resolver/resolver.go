package resolver

import (
	"context"
	"fmt"

	"server/internal/domain"
)

// Resolver produces the single merged, validated parameter document for a
// generation request, together with the catalog entities it resolved.
type Resolver struct {
	catalog domain.CatalogRepository
}

// New constructs a Resolver over the given catalog store.
func New(catalog domain.CatalogRepository) *Resolver {
	return &Resolver{catalog: catalog}
}

// Resolution bundles the resolved catalog entities with the merged document.
// Preset is nil when resolution went through a model slug.
type Resolution struct {
	Model   *domain.Model
	Version *domain.Version
	Preset  *domain.Preset
	Params  domain.ParamDoc
}

// ResolveByModelSlug resolves a model by slug, selects a version (explicit
// tag, else the model's default version) and merges request parameters over
// the version defaults.
func (r *Resolver) ResolveByModelSlug(ctx context.Context, slug, versionTag string, requestParams domain.ParamDoc) (*Resolution, error) {
	model, err := r.lookupModel(ctx, slug)
	if err != nil {
		return nil, err
	}

	var version *domain.Version
	if versionTag != "" {
		version, err = r.catalog.GetVersionByModelAndTag(ctx, model.ID, versionTag)
		if err != nil {
			return nil, wrapNotFound(err, "version %q of model %q", versionTag, slug)
		}
	} else {
		if model.DefaultVersionID == "" {
			return nil, domain.NewValidationError("version", "model %q has no default version and no version tag was given", slug)
		}
		version, err = r.catalog.GetVersionByID(ctx, model.DefaultVersionID)
		if err != nil {
			return nil, wrapNotFound(err, "default version of model %q", slug)
		}
	}
	if version.Status == domain.StatusArchived {
		return nil, domain.NewValidationError("version", "version %q is archived", version.Tag)
	}

	params, err := buildParams(version, nil, requestParams)
	if err != nil {
		return nil, err
	}
	return &Resolution{Model: model, Version: version, Params: params}, nil
}

// ResolveByPreset resolves through a preset, pinning the version the preset
// references and layering the preset parameters between the version defaults
// and the caller's parameters.
func (r *Resolver) ResolveByPreset(ctx context.Context, presetID string, requestParams domain.ParamDoc) (*Resolution, error) {
	preset, err := r.catalog.GetPresetByID(ctx, presetID)
	if err != nil {
		return nil, wrapNotFound(err, "preset %q", presetID)
	}
	if preset.Status == domain.StatusArchived {
		return nil, domain.NewValidationError("preset", "preset %q is archived", preset.Slug)
	}

	version, err := r.catalog.GetVersionByID(ctx, preset.VersionID)
	if err != nil {
		return nil, wrapNotFound(err, "version of preset %q", preset.Slug)
	}
	if version.ModelID != preset.ModelID {
		return nil, domain.NewValidationError("preset", "preset %q references a version of another model", preset.Slug)
	}
	if version.Status == domain.StatusArchived {
		return nil, domain.NewValidationError("version", "version %q is archived", version.Tag)
	}

	model, err := r.catalog.GetModelByID(ctx, preset.ModelID)
	if err != nil {
		return nil, wrapNotFound(err, "model of preset %q", preset.Slug)
	}
	if model.Status == domain.StatusArchived {
		return nil, domain.NewValidationError("model", "model %q is archived", model.Slug)
	}

	params, err := buildParams(version, preset, requestParams)
	if err != nil {
		return nil, err
	}
	return &Resolution{Model: model, Version: version, Preset: preset, Params: params}, nil
}

func (r *Resolver) lookupModel(ctx context.Context, slug string) (*domain.Model, error) {
	model, err := r.catalog.GetModelBySlug(ctx, slug)
	if err != nil {
		return nil, wrapNotFound(err, "model %q", slug)
	}
	if model.Status == domain.StatusArchived {
		return nil, domain.NewValidationError("model", "model %q is archived", slug)
	}
	return model, nil
}

// buildParams applies the three merge layers, the quality mapping and the
// required-field check. The layers are: version defaults, preset params,
// request params. Request fields named in the preset's locks are dropped
// when the merged document already carries a value for them.
func buildParams(version *domain.Version, preset *domain.Preset, requestParams domain.ParamDoc) (domain.ParamDoc, error) {
	merged := mergeDocs(domain.ParamDoc{}, version.Defaults)
	var locks []string
	if preset != nil {
		merged = mergeDocs(merged, preset.Params)
		locks = preset.Locks
	}

	request := requestParams.Clone()
	for _, name := range locks {
		if _, set := merged[name]; set {
			delete(request, name)
		}
	}
	merged = mergeDocs(merged, request)

	applyQualityMapping(merged)

	if err := validateRequired(version.ParamSchema, merged); err != nil {
		return nil, err
	}
	return merged, nil
}

func wrapNotFound(err error, format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, err)...)
}
