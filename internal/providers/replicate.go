package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"server/internal/domain"
	"server/internal/secrets"
)

// ReplicateClient dispatches to a replicate-style prediction API: the
// resolved parameters travel under an `input` key and completion arrives
// later through the webhook configured on the version.
type ReplicateClient struct {
	httpClient *http.Client
	secrets    secrets.Source
	logger     zerolog.Logger
}

// ReplicateOptions configures a ReplicateClient.
type ReplicateOptions struct {
	HTTPClient     *http.Client
	Secrets        secrets.Source
	Logger         zerolog.Logger
	RequestTimeout time.Duration
}

// NewReplicateClient constructs a client with sane defaults.
func NewReplicateClient(opts ReplicateOptions) *ReplicateClient {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = defaultHTTPClient(opts.RequestTimeout)
	}
	return &ReplicateClient{httpClient: httpClient, secrets: opts.Secrets, logger: opts.Logger}
}

type replicatePayload struct {
	Input         map[string]any `json:"input"`
	Webhook       string         `json:"webhook,omitempty"`
	WebhookFilter []string       `json:"webhook_events_filter,omitempty"`
}

type replicateResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Output any    `json:"output"`
	Error  string `json:"error"`
}

// CreateJob implements Client.
func (c *ReplicateClient) CreateJob(ctx context.Context, provider *domain.Provider, version *domain.Version, params domain.ParamDoc) (Result, error) {
	endpoint, err := endpointFor(provider, version, "/v1/predictions")
	if err != nil {
		return Result{}, err
	}
	webhook, events, err := resolveWebhook(ctx, c.secrets, version)
	if err != nil {
		return Result{}, err
	}

	payload := replicatePayload{Input: params, Webhook: webhook, WebhookFilter: events}
	body, err := json.Marshal(payload)
	if err != nil {
		return Result{}, fmt.Errorf("replicate: encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("replicate: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if err := applyAuth(req, provider, c.secrets); err != nil {
		return Result{}, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Result{}, upstreamTransportError(provider, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, upstreamTransportError(provider, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Result{}, upstreamStatusError(provider, resp.StatusCode, raw)
	}

	var decoded replicateResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return Result{}, upstreamTransportError(provider, fmt.Errorf("decode response: %w", err))
	}

	result := Result{
		ProviderJobID: decoded.ID,
		Status:        normalizeStatus(decoded.Status),
		ResultURL:     firstOutputURL(decoded.Output),
	}
	if result.ProviderJobID == "" {
		result.ProviderJobID = uuid.NewString()
	}
	c.logger.Debug().
		Str("provider", provider.Name).
		Str("provider_job_id", result.ProviderJobID).
		Str("status", string(result.Status)).
		Msg("replicate dispatch accepted")
	return result, nil
}

// firstOutputURL extracts an immediate result URL when the prediction
// completed synchronously. Output may be a string or a list of strings.
func firstOutputURL(output any) string {
	switch t := output.(type) {
	case string:
		return t
	case []any:
		for _, item := range t {
			if s, ok := item.(string); ok && s != "" {
				return s
			}
		}
	}
	return ""
}

var _ Client = (*ReplicateClient)(nil)
