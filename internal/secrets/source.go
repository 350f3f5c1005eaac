package secrets

import (
	"context"
	"os"
	"strings"
)

// Source resolves a secret name to its value. An empty string means the
// source does not know the name.
type Source interface {
	Lookup(ctx context.Context, name string) (string, error)
}

// Env resolves secret names from environment variables.
type Env struct{}

func (Env) Lookup(_ context.Context, name string) (string, error) {
	v, ok := os.LookupEnv(name)
	if !ok {
		return "", nil
	}
	return strings.TrimSpace(v), nil
}

// Chain queries sources in order and returns the first non-empty value.
type Chain []Source

func (c Chain) Lookup(ctx context.Context, name string) (string, error) {
	for _, s := range c {
		v, err := s.Lookup(ctx, name)
		if err != nil {
			return "", err
		}
		if v != "" {
			return v, nil
		}
	}
	return "", nil
}

// Resolve looks the reference up through the source; when no source knows
// the name, the reference itself is used as the literal value. Catalog
// records may carry either a named reference or an inline token.
func Resolve(ctx context.Context, src Source, ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" || src == nil {
		return ref, nil
	}
	v, err := src.Lookup(ctx, ref)
	if err != nil {
		return "", err
	}
	if v != "" {
		return v, nil
	}
	return ref, nil
}
