package providers

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"server/internal/domain"
	"server/internal/secrets"
)

// ObjectStore is the storage collaborator the inline client writes results
// through.
type ObjectStore interface {
	Write(ctx context.Context, key string, data []byte) (string, error)
	PublicURL(key string) string
}

// DashScopeClient handles a synchronous "generate inline" provider: the
// response carries the image itself, so dispatch uploads it to the object
// store and reports the job completed immediately. There is no async job
// concept on the provider side.
type DashScopeClient struct {
	httpClient *http.Client
	secrets    secrets.Source
	store      ObjectStore
	logger     zerolog.Logger
}

// DashScopeOptions configures a DashScopeClient.
type DashScopeOptions struct {
	HTTPClient     *http.Client
	Secrets        secrets.Source
	Store          ObjectStore
	Logger         zerolog.Logger
	RequestTimeout time.Duration
}

// NewDashScopeClient constructs a client with sane defaults.
func NewDashScopeClient(opts DashScopeOptions) *DashScopeClient {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = defaultHTTPClient(opts.RequestTimeout)
	}
	return &DashScopeClient{httpClient: httpClient, secrets: opts.Secrets, store: opts.Store, logger: opts.Logger}
}

type dashscopePayload struct {
	Model string         `json:"model,omitempty"`
	Input map[string]any `json:"input"`
}

type dashscopeResponse struct {
	Output struct {
		Choices []struct {
			Message struct {
				Content []struct {
					Image string `json:"image"`
				} `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	} `json:"output"`
	RequestID string `json:"request_id"`
	Code      string `json:"code"`
	Message   string `json:"message"`
}

// CreateJob implements Client.
func (c *DashScopeClient) CreateJob(ctx context.Context, provider *domain.Provider, version *domain.Version, params domain.ParamDoc) (Result, error) {
	if c.store == nil {
		return Result{}, domain.NewValidationError("provider", "provider %q requires an object store for inline results", provider.Name)
	}
	endpoint, err := endpointFor(provider, version, "/services/aigc/multimodal-generation/generation")
	if err != nil {
		return Result{}, err
	}

	payload := dashscopePayload{Input: params}
	if model, ok := params["model"].(string); ok {
		payload.Model = model
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return Result{}, fmt.Errorf("dashscope: encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("dashscope: build request: %w", err)
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

	var decoded dashscopeResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return Result{}, upstreamTransportError(provider, fmt.Errorf("decode response: %w", err))
	}
	if decoded.Code != "" {
		return Result{}, &domain.UpstreamError{Provider: provider.Name, Message: fmt.Sprintf("%s (%s)", decoded.Message, decoded.Code)}
	}

	image := firstInlineImage(decoded)
	if image == "" {
		return Result{}, &domain.UpstreamError{Provider: provider.Name, Message: "response contains no image"}
	}
	data, format, err := c.materialize(ctx, image)
	if err != nil {
		return Result{}, upstreamTransportError(provider, err)
	}

	providerJobID := decoded.RequestID
	if providerJobID == "" {
		providerJobID = uuid.NewString()
	}
	key := fmt.Sprintf("generations/%s.%s", providerJobID, format)
	storedKey, err := c.store.Write(ctx, key, data)
	if err != nil {
		return Result{}, fmt.Errorf("dashscope: store result: %w", err)
	}

	c.logger.Debug().
		Str("provider", provider.Name).
		Str("provider_job_id", providerJobID).
		Str("storage_key", storedKey).
		Msg("inline generation stored")
	return Result{
		ProviderJobID: providerJobID,
		Status:        domain.JobStatusCompleted,
		ResultURL:     c.store.PublicURL(storedKey),
	}, nil
}

func firstInlineImage(resp dashscopeResponse) string {
	for _, choice := range resp.Output.Choices {
		for _, content := range choice.Message.Content {
			if content.Image != "" {
				return content.Image
			}
		}
	}
	return ""
}

// materialize turns the inline image reference into raw bytes. The API may
// return a data URI, bare base64, or a short-lived URL to fetch.
func (c *DashScopeClient) materialize(ctx context.Context, image string) ([]byte, string, error) {
	if isLiteralURL(image) {
		return c.download(ctx, image)
	}
	payload := image
	format := "png"
	if strings.HasPrefix(image, "data:") {
		idx := strings.Index(image, ",")
		if idx < 0 {
			return nil, "", fmt.Errorf("malformed data uri")
		}
		header := image[:idx]
		payload = image[idx+1:]
		if strings.Contains(header, "image/jpeg") {
			format = "jpg"
		} else if strings.Contains(header, "image/webp") {
			format = "webp"
		}
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", fmt.Errorf("decode inline image: %w", err)
	}
	return data, format, nil
}

func (c *DashScopeClient) download(ctx context.Context, rawURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("build download request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("download result: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, "", fmt.Errorf("download result: status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("read result: %w", err)
	}
	format := "png"
	switch resp.Header.Get("Content-Type") {
	case "image/jpeg":
		format = "jpg"
	case "image/webp":
		format = "webp"
	}
	return data, format, nil
}

var _ Client = (*DashScopeClient)(nil)
