package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"server/internal/domain"
	"server/internal/secrets"
)

// FalClient dispatches to a fal-style queue API: the resolved parameters are
// the request body and the webhook rides along as a query parameter.
type FalClient struct {
	httpClient *http.Client
	secrets    secrets.Source
	logger     zerolog.Logger
}

// FalOptions configures a FalClient.
type FalOptions struct {
	HTTPClient     *http.Client
	Secrets        secrets.Source
	Logger         zerolog.Logger
	RequestTimeout time.Duration
}

// NewFalClient constructs a client with sane defaults.
func NewFalClient(opts FalOptions) *FalClient {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = defaultHTTPClient(opts.RequestTimeout)
	}
	return &FalClient{httpClient: httpClient, secrets: opts.Secrets, logger: opts.Logger}
}

type falResponse struct {
	RequestID string `json:"request_id"`
	Status    string `json:"status"`
}

// CreateJob implements Client.
func (c *FalClient) CreateJob(ctx context.Context, provider *domain.Provider, version *domain.Version, params domain.ParamDoc) (Result, error) {
	endpoint, err := endpointFor(provider, version, "")
	if err != nil {
		return Result{}, err
	}
	webhook, _, err := resolveWebhook(ctx, c.secrets, version)
	if err != nil {
		return Result{}, err
	}
	if webhook != "" {
		sep := "?"
		if u, perr := url.Parse(endpoint); perr == nil && u.RawQuery != "" {
			sep = "&"
		}
		endpoint = endpoint + sep + "fal_webhook=" + url.QueryEscape(webhook)
	}

	body, err := json.Marshal(params)
	if err != nil {
		return Result{}, fmt.Errorf("fal: encode payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("fal: build request: %w", err)
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

	var decoded falResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return Result{}, upstreamTransportError(provider, fmt.Errorf("decode response: %w", err))
	}

	result := Result{
		ProviderJobID: decoded.RequestID,
		Status:        normalizeStatus(decoded.Status),
	}
	if result.ProviderJobID == "" {
		result.ProviderJobID = uuid.NewString()
	}
	c.logger.Debug().
		Str("provider", provider.Name).
		Str("provider_job_id", result.ProviderJobID).
		Str("status", string(result.Status)).
		Msg("fal dispatch accepted")
	return result, nil
}

var _ Client = (*FalClient)(nil)
