// Package secrets resolves credentials (database password, JWT signing key,
// SendGrid key, storage credentials) from the environment or Azure Key Vault.
package secrets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
)

// Source names the backing store for secrets
type Source string

const (
	SourceEnvironment Source = "environment"
	SourceVault       Source = "vault"
)

// ErrSecretNotFound is returned when neither the override nor the store has a value
var ErrSecretNotFound = errors.New("secret not found")

// Lookup fetches one secret by name from a backing store
type Lookup interface {
	GetSecret(ctx context.Context, name string) (string, error)
}

// envLookup treats the secret name as an environment variable name
type envLookup struct{}

func (envLookup) GetSecret(_ context.Context, name string) (string, error) {
	if value := os.Getenv(name); value != "" {
		return value, nil
	}
	return "", fmt.Errorf("%w: %s", ErrSecretNotFound, name)
}

// Provider resolves secrets from its store. An explicitly set environment
// variable always wins so operators can override a single vault entry.
type Provider struct {
	source Source
	store  Lookup
	getenv func(string) string
	logger *zap.Logger
}

// NewProvider wraps an existing store
func NewProvider(source Source, store Lookup, logger *zap.Logger) *Provider {
	return &Provider{source: source, store: store, getenv: os.Getenv, logger: logger}
}

// NewEnvironmentProvider reads everything from the process environment
func NewEnvironmentProvider(logger *zap.Logger) *Provider {
	return NewProvider(SourceEnvironment, envLookup{}, logger)
}

// NewVaultProvider connects to the named Key Vault. A zero cacheTTL disables caching.
func NewVaultProvider(vaultName string, cacheTTL time.Duration, logger *zap.Logger) (*Provider, error) {
	store, err := NewVaultStore(vaultName, cacheTTL, logger)
	if err != nil {
		return nil, err
	}
	return NewProvider(SourceVault, store, logger), nil
}

// Resolve returns envVar when it is set, otherwise the named secret from the store
func (p *Provider) Resolve(ctx context.Context, name, envVar string) (string, error) {
	if envVar != "" {
		if value := p.getenv(envVar); value != "" {
			p.logger.Debug("Secret overridden by environment", zap.String("env_var", envVar))
			return value, nil
		}
	}

	value, err := p.store.GetSecret(ctx, name)
	if err != nil {
		return "", fmt.Errorf("failed to resolve secret %q from %s: %w", name, p.source, err)
	}
	return value, nil
}

func (p *Provider) Source() Source {
	return p.source
}
