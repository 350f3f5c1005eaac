package providers

import (
	"net/http"
	"strings"

	"server/internal/domain"
	"server/internal/secrets"
)

const defaultAuthHeader = "Authorization"

// applyAuth injects the provider's credential header into an outbound
// request. secret_ref resolves the reference through the secrets source and
// sends `scheme + token`; encrypted credentials are an unsupported mode and
// fail fast rather than silently skipping auth.
func applyAuth(req *http.Request, provider *domain.Provider, src secrets.Source) error {
	switch provider.Auth.Mode {
	case domain.AuthModeSecretRef:
		token, err := secrets.Resolve(req.Context(), src, provider.Auth.SecretRef)
		if err != nil {
			return err
		}
		if token == "" {
			return domain.NewValidationError("provider", "provider %q has no credential configured", provider.Name)
		}
		header := strings.TrimSpace(provider.Auth.Header)
		if header == "" {
			header = defaultAuthHeader
		}
		req.Header.Set(header, authValue(provider.Auth.Scheme, token))
		return nil
	case domain.AuthModeEncrypted:
		return domain.NewValidationError("provider", "provider %q uses encrypted credentials, which dispatch does not support", provider.Name)
	default:
		return domain.NewValidationError("provider", "provider %q has unknown auth mode %q", provider.Name, provider.Auth.Mode)
	}
}

func authValue(scheme, token string) string {
	scheme = strings.TrimSpace(scheme)
	if scheme == "" {
		return token
	}
	return scheme + " " + token
}
