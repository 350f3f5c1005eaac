package providers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"server/internal/domain"
	"server/internal/secrets"
)

func testProvider(baseURL string) *domain.Provider {
	return &domain.Provider{
		ID:   "p1",
		Name: "test-provider",
		Type: domain.ProviderTypeReplicate,
		Auth: domain.ProviderAuth{
			Mode:      domain.AuthModeSecretRef,
			SecretRef: "TEST_PROVIDER_TOKEN",
			Scheme:    "Bearer",
			BaseURL:   baseURL,
		},
		Status: domain.StatusActive,
	}
}

func testVersion(endpoint string) *domain.Version {
	return &domain.Version{
		ID:          "v1",
		ModelID:     "m1",
		Tag:         "v1.0",
		EndpointURL: endpoint,
		Status:      domain.StatusActive,
	}
}

type capturedRequest struct {
	header http.Header
	body   map[string]any
	rawURL string
}

func TestReplicateClientWrapsParamsUnderInput(t *testing.T) {
	t.Setenv("TEST_PROVIDER_TOKEN", "sk-123")
	var captured capturedRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.header = r.Header.Clone()
		captured.rawURL = r.URL.String()
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &captured.body)
		_ = json.NewEncoder(w).Encode(map[string]any{"id": "pred-1", "status": "starting"})
	}))
	defer srv.Close()

	client := NewReplicateClient(ReplicateOptions{Secrets: secrets.Env{}, Logger: zerolog.Nop()})
	version := testVersion(srv.URL + "/v1/predictions")
	version.Webhook = domain.WebhookConfig{URL: "https://hooks.example.com/done", Events: []string{"completed"}}

	result, err := client.CreateJob(context.Background(), testProvider(srv.URL), version, domain.ParamDoc{"prompt": "a cat"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := captured.header.Get("Authorization"); got != "Bearer sk-123" {
		t.Fatalf("auth header = %q", got)
	}
	input, ok := captured.body["input"].(map[string]any)
	if !ok || input["prompt"] != "a cat" {
		t.Fatalf("payload = %v, want params under input", captured.body)
	}
	if captured.body["webhook"] != "https://hooks.example.com/done" {
		t.Fatalf("webhook = %v", captured.body["webhook"])
	}
	if result.ProviderJobID != "pred-1" || result.Status != domain.JobStatusQueued {
		t.Fatalf("result = %+v", result)
	}
}

func TestReplicateClientDefaultsMissingStatusAndID(t *testing.T) {
	t.Setenv("TEST_PROVIDER_TOKEN", "sk-123")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{})
	}))
	defer srv.Close()

	client := NewReplicateClient(ReplicateOptions{Secrets: secrets.Env{}, Logger: zerolog.Nop()})
	result, err := client.CreateJob(context.Background(), testProvider(srv.URL), testVersion(srv.URL), domain.ParamDoc{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Status != domain.JobStatusQueued {
		t.Fatalf("status = %s, want queued", result.Status)
	}
	if result.ProviderJobID == "" {
		t.Fatal("missing provider id must be substituted, not fatal")
	}
}

func TestReplicateClientMapsNon2xxToUpstreamError(t *testing.T) {
	t.Setenv("TEST_PROVIDER_TOKEN", "sk-123")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		fmt.Fprint(w, `{"detail":"invalid input"}`)
	}))
	defer srv.Close()

	client := NewReplicateClient(ReplicateOptions{Secrets: secrets.Env{}, Logger: zerolog.Nop()})
	_, err := client.CreateJob(context.Background(), testProvider(srv.URL), testVersion(srv.URL), domain.ParamDoc{})

	var uerr *domain.UpstreamError
	if !errors.As(err, &uerr) {
		t.Fatalf("want upstream error, got %v", err)
	}
	if uerr.Provider != "test-provider" || uerr.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("upstream error = %+v", uerr)
	}
}

func TestReplicateClientResolvesNamedWebhookReference(t *testing.T) {
	t.Setenv("TEST_PROVIDER_TOKEN", "sk-123")
	t.Setenv("COMPLETION_WEBHOOK", "https://hooks.example.com/env")
	var captured capturedRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &captured.body)
		_ = json.NewEncoder(w).Encode(map[string]any{"id": "pred-2", "status": "starting"})
	}))
	defer srv.Close()

	client := NewReplicateClient(ReplicateOptions{Secrets: secrets.Env{}, Logger: zerolog.Nop()})
	version := testVersion(srv.URL)
	version.Webhook = domain.WebhookConfig{URL: "COMPLETION_WEBHOOK"}

	if _, err := client.CreateJob(context.Background(), testProvider(srv.URL), version, domain.ParamDoc{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if captured.body["webhook"] != "https://hooks.example.com/env" {
		t.Fatalf("webhook = %v, want the env-resolved url", captured.body["webhook"])
	}
}

func TestApplyAuthRejectsEncryptedMode(t *testing.T) {
	provider := testProvider("https://api.example.com")
	provider.Auth.Mode = domain.AuthModeEncrypted

	req, _ := http.NewRequest(http.MethodPost, "https://api.example.com", nil)
	err := applyAuth(req, provider, secrets.Env{})

	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("want validation error, got %v", err)
	}
	if req.Header.Get("Authorization") != "" {
		t.Fatal("encrypted mode must never inject a header")
	}
}

func TestApplyAuthFallsBackToLiteralToken(t *testing.T) {
	provider := testProvider("https://api.example.com")
	provider.Auth.SecretRef = "literal-token-value"
	provider.Auth.Header = "X-Key"
	provider.Auth.Scheme = "Key"

	req, _ := http.NewRequest(http.MethodPost, "https://api.example.com", nil)
	if err := applyAuth(req, provider, secrets.Env{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := req.Header.Get("X-Key"); got != "Key literal-token-value" {
		t.Fatalf("header = %q", got)
	}
}

func TestFalClientSendsParamsAsBodyAndWebhookAsQuery(t *testing.T) {
	t.Setenv("TEST_PROVIDER_TOKEN", "sk-123")
	var captured capturedRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.rawURL = r.URL.String()
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &captured.body)
		_ = json.NewEncoder(w).Encode(map[string]any{"request_id": "req-9", "status": "IN_QUEUE"})
	}))
	defer srv.Close()

	client := NewFalClient(FalOptions{Secrets: secrets.Env{}, Logger: zerolog.Nop()})
	version := testVersion(srv.URL + "/flux/dev")
	version.Webhook = domain.WebhookConfig{URL: "https://hooks.example.com/fal"}

	result, err := client.CreateJob(context.Background(), testProvider(srv.URL), version, domain.ParamDoc{"prompt": "a dog"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if captured.body["prompt"] != "a dog" {
		t.Fatalf("body = %v, want flat params", captured.body)
	}
	if !strings.Contains(captured.rawURL, "fal_webhook=") {
		t.Fatalf("url = %q, want fal_webhook query param", captured.rawURL)
	}
	if result.ProviderJobID != "req-9" || result.Status != domain.JobStatusQueued {
		t.Fatalf("result = %+v", result)
	}
}

type memoryStore struct {
	writes map[string][]byte
}

func (m *memoryStore) Write(_ context.Context, key string, data []byte) (string, error) {
	if m.writes == nil {
		m.writes = map[string][]byte{}
	}
	m.writes[key] = data
	return key, nil
}

func (m *memoryStore) PublicURL(key string) string {
	return "https://cdn.example.com/" + key
}

func TestDashScopeClientStoresInlineResultAndCompletes(t *testing.T) {
	t.Setenv("TEST_PROVIDER_TOKEN", "sk-123")
	pixel := base64.StdEncoding.EncodeToString([]byte("fake-png-bytes"))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"request_id": "ds-1",
			"output": map[string]any{
				"choices": []any{
					map[string]any{"message": map[string]any{"content": []any{
						map[string]any{"image": "data:image/png;base64," + pixel},
					}}},
				},
			},
		})
	}))
	defer srv.Close()

	store := &memoryStore{}
	client := NewDashScopeClient(DashScopeOptions{Secrets: secrets.Env{}, Store: store, Logger: zerolog.Nop()})
	provider := testProvider(srv.URL)
	provider.Type = domain.ProviderTypeDashScope

	result, err := client.CreateJob(context.Background(), provider, testVersion(srv.URL), domain.ParamDoc{"prompt": "a fox"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Status != domain.JobStatusCompleted {
		t.Fatalf("status = %s, want completed (synchronous provider)", result.Status)
	}
	if result.ProviderJobID != "ds-1" {
		t.Fatalf("provider job id = %q", result.ProviderJobID)
	}
	key := "generations/ds-1.png"
	if string(store.writes[key]) != "fake-png-bytes" {
		t.Fatalf("stored bytes missing under %q: %v", key, store.writes)
	}
	if result.ResultURL != "https://cdn.example.com/"+key {
		t.Fatalf("result url = %q", result.ResultURL)
	}
}

func TestDashScopeClientSurfacesAPIErrorCode(t *testing.T) {
	t.Setenv("TEST_PROVIDER_TOKEN", "sk-123")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"code": "InvalidParameter", "message": "size not supported"})
	}))
	defer srv.Close()

	client := NewDashScopeClient(DashScopeOptions{Secrets: secrets.Env{}, Store: &memoryStore{}, Logger: zerolog.Nop()})
	provider := testProvider(srv.URL)
	provider.Type = domain.ProviderTypeDashScope

	_, err := client.CreateJob(context.Background(), provider, testVersion(srv.URL), domain.ParamDoc{})
	var uerr *domain.UpstreamError
	if !errors.As(err, &uerr) {
		t.Fatalf("want upstream error, got %v", err)
	}
	if !strings.Contains(uerr.Message, "InvalidParameter") {
		t.Fatalf("message = %q", uerr.Message)
	}
}

func TestRegistryRejectsUnknownType(t *testing.T) {
	registry := NewRegistry()
	registry.Register(domain.ProviderTypeFal, NewFalClient(FalOptions{Secrets: secrets.Env{}, Logger: zerolog.Nop()}))

	if _, err := registry.Lookup(domain.ProviderTypeFal); err != nil {
		t.Fatalf("registered type rejected: %v", err)
	}
	_, err := registry.Lookup(domain.ProviderType("bogus"))
	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("want validation error, got %v", err)
	}
	if !strings.Contains(verr.Reason, "bogus") {
		t.Fatalf("reason %q should name the type", verr.Reason)
	}
}

func TestNormalizeStatus(t *testing.T) {
	cases := map[string]domain.JobStatus{
		"":            domain.JobStatusQueued,
		"starting":    domain.JobStatusQueued,
		"IN_QUEUE":    domain.JobStatusQueued,
		"processing":  domain.JobStatusRunning,
		"succeeded":   domain.JobStatusCompleted,
		"some-status": domain.JobStatusQueued,
	}
	for raw, want := range cases {
		if got := normalizeStatus(raw); got != want {
			t.Fatalf("normalizeStatus(%q) = %s, want %s", raw, got, want)
		}
	}
}
