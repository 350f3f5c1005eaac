package resolver

import (
	"bytes"
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"server/internal/domain"
)

type stubCatalog struct {
	models    map[string]*domain.Model
	modelsByI map[string]*domain.Model
	versions  map[string]*domain.Version
	presets   map[string]*domain.Preset
	providers map[string]*domain.Provider
}

func (s *stubCatalog) GetModelBySlug(_ context.Context, slug string) (*domain.Model, error) {
	if m, ok := s.models[slug]; ok {
		return m, nil
	}
	return nil, domain.ErrNotFound
}

func (s *stubCatalog) GetModelByID(_ context.Context, id string) (*domain.Model, error) {
	if m, ok := s.modelsByI[id]; ok {
		return m, nil
	}
	return nil, domain.ErrNotFound
}

func (s *stubCatalog) GetVersionByID(_ context.Context, id string) (*domain.Version, error) {
	if v, ok := s.versions[id]; ok {
		return v, nil
	}
	return nil, domain.ErrNotFound
}

func (s *stubCatalog) GetVersionByModelAndTag(_ context.Context, modelID, tag string) (*domain.Version, error) {
	for _, v := range s.versions {
		if v.ModelID == modelID && v.Tag == tag {
			return v, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *stubCatalog) GetPresetByID(_ context.Context, id string) (*domain.Preset, error) {
	if p, ok := s.presets[id]; ok {
		return p, nil
	}
	return nil, domain.ErrNotFound
}

func (s *stubCatalog) GetProviderByID(_ context.Context, id string) (*domain.Provider, error) {
	if p, ok := s.providers[id]; ok {
		return p, nil
	}
	return nil, domain.ErrNotFound
}

func fixtureCatalog() *stubCatalog {
	model := &domain.Model{
		ID:               "m1",
		Slug:             "flux",
		ProviderID:       "p1",
		Status:           domain.StatusActive,
		DefaultVersionID: "v1",
	}
	version := &domain.Version{
		ID:      "v1",
		ModelID: "m1",
		Tag:     "v1.0",
		Status:  domain.StatusActive,
		Defaults: domain.ParamDoc{
			"a": 1, "b": 2,
			"prompt": "default prompt",
		},
		ParamSchema: domain.ParamDoc{
			"type":     "object",
			"required": []any{"prompt"},
		},
	}
	preset := &domain.Preset{
		ID:        "pr1",
		ModelID:   "m1",
		VersionID: "v1",
		Slug:      "studio",
		Status:    domain.StatusActive,
		Params:    domain.ParamDoc{"b": 3},
		Locks:     []string{"b"},
	}
	return &stubCatalog{
		models:    map[string]*domain.Model{"flux": model},
		modelsByI: map[string]*domain.Model{"m1": model},
		versions:  map[string]*domain.Version{"v1": version},
		presets:   map[string]*domain.Preset{"pr1": preset},
	}
}

func TestResolveByPresetDropsLockedRequestOverride(t *testing.T) {
	r := New(fixtureCatalog())

	res, err := r.ResolveByPreset(context.Background(), "pr1", domain.ParamDoc{"b": 4, "c": 5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := domain.ParamDoc{"a": 1, "b": 3, "c": 5, "prompt": "default prompt"}
	if !reflect.DeepEqual(res.Params, want) {
		t.Fatalf("params = %v, want %v", res.Params, want)
	}
	if res.Preset == nil || res.Preset.ID != "pr1" {
		t.Fatal("resolution should carry the preset")
	}
}

func TestResolveByModelSlugUsesDefaultVersion(t *testing.T) {
	r := New(fixtureCatalog())

	res, err := r.ResolveByModelSlug(context.Background(), "flux", "", domain.ParamDoc{"c": 5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Version.ID != "v1" {
		t.Fatalf("version = %s, want default v1", res.Version.ID)
	}
	if res.Params["c"] != 5 || res.Params["a"] != 1 {
		t.Fatalf("params = %v", res.Params)
	}
}

func TestResolveByModelSlugExplicitTag(t *testing.T) {
	cat := fixtureCatalog()
	r := New(cat)

	res, err := r.ResolveByModelSlug(context.Background(), "flux", "v1.0", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Version.Tag != "v1.0" {
		t.Fatalf("version tag = %s", res.Version.Tag)
	}

	if _, err := r.ResolveByModelSlug(context.Background(), "flux", "v9.9", nil); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("unknown tag should be not found, got %v", err)
	}
}

func TestResolveFailsWithoutDefaultVersion(t *testing.T) {
	cat := fixtureCatalog()
	cat.models["flux"].DefaultVersionID = ""
	r := New(cat)

	_, err := r.ResolveByModelSlug(context.Background(), "flux", "", nil)
	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("want validation error, got %v", err)
	}
}

func TestResolveRejectsArchivedEntities(t *testing.T) {
	t.Run("model", func(t *testing.T) {
		cat := fixtureCatalog()
		cat.models["flux"].Status = domain.StatusArchived
		_, err := New(cat).ResolveByModelSlug(context.Background(), "flux", "", nil)
		assertValidation(t, err, "archived")
	})
	t.Run("version", func(t *testing.T) {
		cat := fixtureCatalog()
		cat.versions["v1"].Status = domain.StatusArchived
		_, err := New(cat).ResolveByModelSlug(context.Background(), "flux", "", nil)
		assertValidation(t, err, "archived")
	})
	t.Run("version via preset", func(t *testing.T) {
		cat := fixtureCatalog()
		cat.versions["v1"].Status = domain.StatusArchived
		_, err := New(cat).ResolveByPreset(context.Background(), "pr1", nil)
		assertValidation(t, err, "archived")
	})
}

func TestResolveRejectsPresetVersionModelMismatch(t *testing.T) {
	cat := fixtureCatalog()
	cat.presets["pr1"].ModelID = "m2"
	cat.modelsByI["m2"] = &domain.Model{ID: "m2", Slug: "other", Status: domain.StatusActive}
	_, err := New(cat).ResolveByPreset(context.Background(), "pr1", nil)
	assertValidation(t, err, "another model")
}

func TestResolveFailsNamingMissingRequiredParam(t *testing.T) {
	cat := fixtureCatalog()
	delete(cat.versions["v1"].Defaults, "prompt")
	r := New(cat)

	_, err := r.ResolveByModelSlug(context.Background(), "flux", "", domain.ParamDoc{"c": 5})
	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("want validation error, got %v", err)
	}
	if verr.Field != "prompt" {
		t.Fatalf("field = %q, want prompt", verr.Field)
	}
	if !strings.Contains(verr.Reason, "missing required parameter 'prompt'") {
		t.Fatalf("reason = %q", verr.Reason)
	}
}

func TestResolutionIsByteIdentical(t *testing.T) {
	r := New(fixtureCatalog())
	req := domain.ParamDoc{"b": 4, "c": 5, "quality": float64(4)}

	first, err := r.ResolveByPreset(context.Background(), "pr1", req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := r.ResolveByPreset(context.Background(), "pr1", req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	a, err := first.Params.Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	b, err := second.Params.Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Fatalf("resolved documents differ:\n%s\n%s", a, b)
	}
}

func TestResolveDoesNotMutateCatalogDefaults(t *testing.T) {
	cat := fixtureCatalog()
	r := New(cat)

	if _, err := r.ResolveByModelSlug(context.Background(), "flux", "", domain.ParamDoc{"a": 42}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cat.versions["v1"].Defaults["a"] != 1 {
		t.Fatalf("version defaults mutated: %v", cat.versions["v1"].Defaults)
	}
}

func TestCheckParamSchema(t *testing.T) {
	good := domain.ParamDoc{
		"type":     "object",
		"required": []any{"prompt"},
		"properties": map[string]any{
			"prompt": map[string]any{"type": "string"},
		},
	}
	if err := CheckParamSchema(good); err != nil {
		t.Fatalf("well-formed schema rejected: %v", err)
	}

	bad := domain.ParamDoc{"type": 12345}
	if err := CheckParamSchema(bad); err == nil {
		t.Fatal("malformed schema accepted")
	}
}

func assertValidation(t *testing.T, err error, fragment string) {
	t.Helper()
	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("want validation error, got %v", err)
	}
	if !strings.Contains(verr.Reason, fragment) {
		t.Fatalf("reason %q missing %q", verr.Reason, fragment)
	}
}
