package secrets

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/security/keyvault/azsecrets"
	"go.uber.org/zap"
)

// secretGetter is the part of azsecrets.Client the store uses
type secretGetter interface {
	GetSecret(ctx context.Context, name string, version string, options *azsecrets.GetSecretOptions) (azsecrets.GetSecretResponse, error)
}

type cacheEntry struct {
	value   string
	expires time.Time
}

// VaultStore reads the latest version of Key Vault secrets, keeping values
// for cacheTTL
type VaultStore struct {
	client   secretGetter
	cacheTTL time.Duration
	logger   *zap.Logger
	now      func() time.Time

	mu    sync.Mutex
	cache map[string]cacheEntry
}

// NewVaultStore authenticates with DefaultAzureCredential (environment,
// managed identity or az login) against https://<vaultName>.vault.azure.net
func NewVaultStore(vaultName string, cacheTTL time.Duration, logger *zap.Logger) (*VaultStore, error) {
	if vaultName == "" {
		return nil, fmt.Errorf("key vault name is required")
	}

	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure credential: %w", err)
	}

	vaultURL := fmt.Sprintf("https://%s.vault.azure.net/", vaultName)
	client, err := azsecrets.NewClient(vaultURL, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Key Vault client: %w", err)
	}

	logger.Info("Key Vault secret store ready", zap.String("vault_url", vaultURL), zap.Duration("cache_ttl", cacheTTL))
	return newVaultStore(client, cacheTTL, logger), nil
}

func newVaultStore(client secretGetter, cacheTTL time.Duration, logger *zap.Logger) *VaultStore {
	return &VaultStore{
		client:   client,
		cacheTTL: cacheTTL,
		logger:   logger,
		now:      time.Now,
		cache:    make(map[string]cacheEntry),
	}
}

func (s *VaultStore) GetSecret(ctx context.Context, name string) (string, error) {
	if value, ok := s.fromCache(name); ok {
		return value, nil
	}

	resp, err := s.client.GetSecret(ctx, name, "", nil)
	if err != nil {
		s.logger.Warn("Key Vault lookup failed", zap.String("secret", name), zap.Error(err))
		return "", err
	}
	if resp.Value == nil || *resp.Value == "" {
		return "", fmt.Errorf("%w: %s is empty", ErrSecretNotFound, name)
	}

	if s.cacheTTL > 0 {
		s.mu.Lock()
		s.cache[name] = cacheEntry{value: *resp.Value, expires: s.now().Add(s.cacheTTL)}
		s.mu.Unlock()
	}
	return *resp.Value, nil
}

func (s *VaultStore) fromCache(name string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.cache[name]
	if !ok {
		return "", false
	}
	if !s.now().Before(entry.expires) {
		delete(s.cache, name)
		return "", false
	}
	return entry.value, true
}
