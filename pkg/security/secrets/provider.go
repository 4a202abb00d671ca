package secrets

import "context"

// SecretProvider retrieves secrets from a backend.
type SecretProvider interface {
	// GetSecret retrieves a secret by name.
	GetSecret(ctx context.Context, name string) (string, error)

	// Provider returns the provider name ("env", "file").
	Provider() string

	// Supports reports whether the provider should be asked for name.
	Supports(name string) bool
}

// RefreshableProvider can drop what it has read so rotated values are
// picked up.
type RefreshableProvider interface {
	SecretProvider

	Refresh(ctx context.Context) error
}
