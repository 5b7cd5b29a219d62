// Package kms resolves external-service credentials from HashiCorp Vault.
package kms

import (
	"context"
	"fmt"
	"time"

	vault "github.com/hashicorp/vault/api"
	"github.com/patrickmn/go-cache"

	"github.com/turtacn/pdmews/internal/config"
	"github.com/turtacn/pdmews/internal/domain/service"
	"github.com/turtacn/pdmews/pkg/errors"
	"github.com/turtacn/pdmews/pkg/logger"
)

// VaultSecretProvider reads fields of KV v2 secrets.
// VaultSecretProvider 从 Vault KV v2 读取密钥字段，并做短时内存缓存。
type VaultSecretProvider struct {
	client    *vault.Client
	mountPath string
	l1Cache   *cache.Cache
	logger    logger.Logger
}

var _ service.SecretProvider = (*VaultSecretProvider)(nil)

// NewVaultClient creates a Vault API client from cfg.
func NewVaultClient(cfg config.VaultConfig) (*vault.Client, error) {
	vaultConfig := vault.DefaultConfig()
	vaultConfig.Address = cfg.Address

	client, err := vault.NewClient(vaultConfig)
	if err != nil {
		return nil, err
	}
	client.SetToken(cfg.Token)
	return client, nil
}

// NewVaultSecretProvider creates a provider reading secrets under mountPath.
func NewVaultSecretProvider(client *vault.Client, mountPath string, log logger.Logger) *VaultSecretProvider {
	if mountPath == "" {
		mountPath = "secret"
	}
	return &VaultSecretProvider{
		client:    client,
		mountPath: mountPath,
		l1Cache:   cache.New(5*time.Minute, 10*time.Minute),
		logger:    log.WithComponent("vault"),
	}
}

// GetSecret returns the string field of the secret at path.
func (p *VaultSecretProvider) GetSecret(ctx context.Context, path, field string) (string, error) {
	cacheKey := path + "#" + field
	if v, ok := p.l1Cache.Get(cacheKey); ok {
		return v.(string), nil
	}

	secret, err := p.client.KVv2(p.mountPath).Get(ctx, path)
	if err != nil {
		p.logger.Error(ctx, "failed to read secret from Vault", err, logger.String("path", path))
		return "", errors.ErrConfiguration("could not read secret from vault").WithCause(err)
	}
	if secret == nil || secret.Data == nil {
		return "", errors.ErrNotFound("secret", path)
	}

	value, ok := secret.Data[field].(string)
	if !ok || value == "" {
		return "", errors.ErrConfiguration(fmt.Sprintf("field %q not found or not a string in vault secret", field))
	}

	p.l1Cache.SetDefault(cacheKey, value)
	return value, nil
}
