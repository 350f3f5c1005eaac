package providers

import (
	"context"
	"strings"

	"server/internal/domain"
	"server/internal/secrets"
)

// resolveWebhook returns the completion callback URL and event filter for a
// version. A configured value that is not a literal http(s) URL is treated
// as a named reference and looked up through the secrets source; an
// unresolvable reference yields no webhook rather than a broken one.
func resolveWebhook(ctx context.Context, src secrets.Source, version *domain.Version) (string, []string, error) {
	if version == nil {
		return "", nil, nil
	}
	raw := strings.TrimSpace(version.Webhook.URL)
	if raw == "" {
		return "", nil, nil
	}
	if isLiteralURL(raw) {
		return raw, version.Webhook.Events, nil
	}
	resolved, err := src.Lookup(ctx, raw)
	if err != nil {
		return "", nil, err
	}
	if !isLiteralURL(resolved) {
		return "", nil, nil
	}
	return resolved, version.Webhook.Events, nil
}

func isLiteralURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}
