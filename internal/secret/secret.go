// Package secret resolves credential references into secret material.
//
// Configuration carries references ("env:GEMINI_API_KEY",
// "file:/run/secrets/db_password"), never the material itself; the material
// is resolved once at startup and handed to the component that needs it.
// Nothing in this package persists or logs resolved values.
package secret

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
)

var (
	// ErrInvalidReference indicates a reference without a known scheme.
	ErrInvalidReference = errors.New("invalid secret reference")

	// ErrNotFound indicates the reference was well-formed but nothing was
	// stored behind it.
	ErrNotFound = errors.New("secret not found")
)

// Resolver turns a secret reference into secret material.
type Resolver interface {
	Resolve(ctx context.Context, ref string) (string, error)
}

// EnvResolver resolves "env:NAME" and "file:/path" references.
// The zero value is ready to use.
type EnvResolver struct{}

// Resolve returns the secret behind ref.
func (EnvResolver) Resolve(_ context.Context, ref string) (string, error) {
	scheme, rest, ok := strings.Cut(ref, ":")
	if !ok || rest == "" {
		return "", fmt.Errorf("%w: %q (expected env:NAME or file:/path)", ErrInvalidReference, ref)
	}

	switch scheme {
	case "env":
		value, ok := os.LookupEnv(rest)
		if !ok || value == "" {
			return "", fmt.Errorf("%w: environment variable %q is not set", ErrNotFound, rest)
		}
		return value, nil
	case "file":
		data, err := os.ReadFile(rest)
		if err != nil {
			return "", fmt.Errorf("%w: reading %q: %w", ErrNotFound, rest, err)
		}
		value := strings.TrimSpace(string(data))
		if value == "" {
			return "", fmt.Errorf("%w: file %q is empty", ErrNotFound, rest)
		}
		return value, nil
	default:
		return "", fmt.Errorf("%w: unknown scheme %q", ErrInvalidReference, scheme)
	}
}

// Static resolves references from a fixed map. Tests only.
type Static map[string]string

// Resolve returns the mapped value for ref.
func (s Static) Resolve(_ context.Context, ref string) (string, error) {
	value, ok := s[ref]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrNotFound, ref)
	}
	return value, nil
}
