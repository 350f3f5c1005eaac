package providers

import (
	"context"
	"net/http"
	"sort"
	"strings"
	"time"

	"server/internal/domain"
)

// Result is the provider-agnostic outcome of a dispatch. Status is already
// normalized onto the job state machine; ResultURL is set only when the
// provider produced output inline.
type Result struct {
	ProviderJobID string
	Status        domain.JobStatus
	ResultURL     string
}

// Client dispatches one generation job to a concrete provider. Implemented
// once per provider type.
type Client interface {
	CreateJob(ctx context.Context, provider *domain.Provider, version *domain.Version, params domain.ParamDoc) (Result, error)
}

// Registry maps provider types to client implementations. Populated at
// startup; unknown types are rejected explicitly rather than defaulted.
type Registry struct {
	clients map[domain.ProviderType]Client
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{clients: make(map[domain.ProviderType]Client)}
}

// Register binds a client to a provider type, replacing any previous binding.
func (r *Registry) Register(t domain.ProviderType, c Client) {
	r.clients[t] = c
}

// Lookup returns the client for the given type. A missing binding is a
// configuration error, surfaced as a validation failure naming the type.
func (r *Registry) Lookup(t domain.ProviderType) (Client, error) {
	c, ok := r.clients[t]
	if !ok {
		return nil, domain.NewValidationError("provider", "no client registered for provider type %q", t)
	}
	return c, nil
}

// Types lists the registered provider types, sorted for stable logs.
func (r *Registry) Types() []string {
	out := make([]string, 0, len(r.clients))
	for t := range r.clients {
		out = append(out, string(t))
	}
	sort.Strings(out)
	return out
}

// normalizeStatus maps a provider-reported status string onto the job state
// machine. An empty or unrecognized value defaults to queued: an opaque
// success payload is never guessed to be a failure.
func normalizeStatus(raw string) domain.JobStatus {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "processing", "running", "in_progress":
		return domain.JobStatusRunning
	case "succeeded", "completed", "ok", "success":
		return domain.JobStatusCompleted
	default:
		return domain.JobStatusQueued
	}
}

// endpointFor picks the dispatch URL: the version's endpoint when set, else
// the provider's base URL joined with the given default path.
func endpointFor(provider *domain.Provider, version *domain.Version, defaultPath string) (string, error) {
	if version != nil && strings.TrimSpace(version.EndpointURL) != "" {
		return strings.TrimSpace(version.EndpointURL), nil
	}
	base := strings.TrimRight(strings.TrimSpace(provider.Auth.BaseURL), "/")
	if base == "" {
		return "", domain.NewValidationError("provider", "provider %q has no endpoint configured", provider.Name)
	}
	return base + defaultPath, nil
}

// upstreamStatusError maps a non-2xx provider response onto the upstream
// error kind, carrying provider name and HTTP status.
func upstreamStatusError(provider *domain.Provider, status int, body []byte) error {
	msg := strings.TrimSpace(string(body))
	if len(msg) > 512 {
		msg = msg[:512]
	}
	return &domain.UpstreamError{Provider: provider.Name, StatusCode: status, Message: msg}
}

func upstreamTransportError(provider *domain.Provider, err error) error {
	return &domain.UpstreamError{Provider: provider.Name, Message: err.Error(), Err: err}
}

func defaultHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 45 * time.Second
	}
	return &http.Client{Timeout: timeout}
}
