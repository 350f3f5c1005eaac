package domain

import "time"

// CatalogStatus enumerates lifecycle states shared by catalog entities.
type CatalogStatus string

const (
	StatusActive     CatalogStatus = "active"
	StatusCanary     CatalogStatus = "canary"
	StatusDeprecated CatalogStatus = "deprecated"
	StatusArchived   CatalogStatus = "archived"
)

// Pricing holds credit pricing for a model or version. Version pricing
// overrides model pricing field-group-wise: a version with a zero Pricing
// falls back to its model's Pricing entirely.
type Pricing struct {
	CostPerUnit      int     `json:"cost_per_unit"`
	MinCost          int     `json:"min_cost"`
	CreditsPerSecond float64 `json:"credits_per_second"`
	CreditsPerVideo  int     `json:"credits_per_video"`
}

// IsZero reports whether no pricing is configured at all.
func (p Pricing) IsZero() bool {
	return p.CostPerUnit == 0 && p.MinCost == 0 && p.CreditsPerSecond == 0 && p.CreditsPerVideo == 0
}

// Model is a logical generation capability ("flux", "kling") with one or
// more dispatchable versions.
type Model struct {
	ID               string
	Slug             string
	ProviderID       string
	Status           CatalogStatus
	DefaultVersionID string
	Pricing          Pricing
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Rollout carries staged-rollout hints for a version. CanaryPercent is
// advisory for upstream traffic directors; core version selection stays
// deterministic.
type Rollout struct {
	CanaryPercent int `json:"canary_percent"`
}

// WebhookConfig describes where a provider should deliver async completion
// callbacks. URL may be a literal http(s) URL or a named reference resolved
// from the environment at dispatch time.
type WebhookConfig struct {
	URL    string   `json:"url"`
	Events []string `json:"events"`
}

// Version is a concrete, dispatchable configuration of a Model.
type Version struct {
	ID          string
	ModelID     string
	Tag         string
	EndpointURL string
	ParamSchema ParamDoc
	Defaults    ParamDoc
	Limits      ParamDoc
	Pricing     Pricing
	Status      CatalogStatus
	Webhook     WebhookConfig
	Rollout     Rollout
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// EffectivePricing returns the version's pricing, falling back to the model's
// when the version carries none.
func (v *Version) EffectivePricing(m *Model) Pricing {
	if v != nil && !v.Pricing.IsZero() {
		return v.Pricing
	}
	if m != nil {
		return m.Pricing
	}
	return Pricing{}
}

// Preset is a curated parameter bundle pinned to one model version. Locks
// lists field names the caller may not override once defaults or the preset
// have set them.
type Preset struct {
	ID        string
	ModelID   string
	VersionID string
	Slug      string
	Params    ParamDoc
	Locks     []string
	Status    CatalogStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ProviderType discriminates which provider client implementation applies.
type ProviderType string

const (
	ProviderTypeReplicate ProviderType = "replicate"
	ProviderTypeFal       ProviderType = "fal"
	ProviderTypeDashScope ProviderType = "dashscope"
)

// AuthMode enumerates supported provider credential schemes.
type AuthMode string

const (
	AuthModeSecretRef AuthMode = "secret_ref"
	AuthModeEncrypted AuthMode = "encrypted"
)

// ProviderAuth describes how outbound requests to a provider authenticate.
type ProviderAuth struct {
	Mode      AuthMode `json:"mode"`
	SecretRef string   `json:"secret_ref,omitempty"`
	EncBlob   string   `json:"enc_blob,omitempty"`
	Header    string   `json:"header,omitempty"`
	Scheme    string   `json:"scheme,omitempty"`
	BaseURL   string   `json:"base_url,omitempty"`
}

// Provider is a third-party generation service plus its connection config.
type Provider struct {
	ID        string
	Name      string
	Type      ProviderType
	Auth      ProviderAuth
	Status    CatalogStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}
