package vault

import (
	"context"
	"fmt"
	"sync"

	"hyperliquid-trading-bot/config"

	"github.com/hashicorp/vault/api"
)

// WalletKeyData is the signing key material stored in Vault for one
// agent wallet.
type WalletKeyData struct {
	PrivateKey    string `json:"private_key"` // hex, no 0x prefix required
	WalletAddress string `json:"wallet_address"`
	IsTestnet     bool   `json:"is_testnet"`
}

// Client wraps the HashiCorp Vault client for wallet key storage. With
// Vault disabled it degrades to an in-memory store for development.
type Client struct {
	client *api.Client
	config config.VaultConfig
	mu     sync.RWMutex
	cache  map[string]*WalletKeyData
}

// NewClient creates a new Vault client.
func NewClient(cfg config.VaultConfig) (*Client, error) {
	if !cfg.Enabled {
		return &Client{
			config: cfg,
			cache:  make(map[string]*WalletKeyData),
		}, nil
	}

	vaultConfig := api.DefaultConfig()
	vaultConfig.Address = cfg.Address

	if cfg.TLSEnabled && cfg.CACert != "" {
		tlsConfig := &api.TLSConfig{CACert: cfg.CACert}
		if err := vaultConfig.ConfigureTLS(tlsConfig); err != nil {
			return nil, fmt.Errorf("failed to configure TLS: %w", err)
		}
	}

	client, err := api.NewClient(vaultConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}
	client.SetToken(cfg.Token)

	return &Client{
		client: client,
		config: cfg,
		cache:  make(map[string]*WalletKeyData),
	}, nil
}

// StoreWalletKey stores signing key material for a wallet.
func (c *Client) StoreWalletKey(ctx context.Context, data WalletKeyData) error {
	if !c.config.Enabled {
		c.mu.Lock()
		c.cache[c.cacheKey(data.WalletAddress, data.IsTestnet)] = &data
		c.mu.Unlock()
		return nil
	}

	path := c.secretPath(data.WalletAddress, data.IsTestnet)
	secretData := map[string]interface{}{
		"data": map[string]interface{}{
			"private_key":    data.PrivateKey,
			"wallet_address": data.WalletAddress,
			"is_testnet":     data.IsTestnet,
		},
	}

	if _, err := c.client.Logical().WriteWithContext(ctx, path, secretData); err != nil {
		return fmt.Errorf("failed to store wallet key in vault: %w", err)
	}

	c.mu.Lock()
	c.cache[c.cacheKey(data.WalletAddress, data.IsTestnet)] = &data
	c.mu.Unlock()
	return nil
}

// GetWalletKey retrieves signing key material for a wallet.
func (c *Client) GetWalletKey(ctx context.Context, walletAddress string, isTestnet bool) (*WalletKeyData, error) {
	c.mu.RLock()
	if cached, ok := c.cache[c.cacheKey(walletAddress, isTestnet)]; ok {
		c.mu.RUnlock()
		return cached, nil
	}
	c.mu.RUnlock()

	if !c.config.Enabled {
		return nil, fmt.Errorf("wallet key not found and vault is disabled")
	}

	path := c.secretPath(walletAddress, isTestnet)
	secret, err := c.client.Logical().ReadWithContext(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read wallet key from vault: %w", err)
	}
	if secret == nil || secret.Data == nil {
		return nil, fmt.Errorf("wallet key not found")
	}

	data, ok := secret.Data["data"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("invalid secret format")
	}

	keyData := &WalletKeyData{
		PrivateKey:    getString(data, "private_key"),
		WalletAddress: getString(data, "wallet_address"),
		IsTestnet:     getBool(data, "is_testnet"),
	}
	if keyData.PrivateKey == "" {
		return nil, fmt.Errorf("wallet key record has no private key")
	}

	c.mu.Lock()
	c.cache[c.cacheKey(walletAddress, isTestnet)] = keyData
	c.mu.Unlock()
	return keyData, nil
}

// DeleteWalletKey removes key material for a wallet.
func (c *Client) DeleteWalletKey(ctx context.Context, walletAddress string, isTestnet bool) error {
	c.mu.Lock()
	delete(c.cache, c.cacheKey(walletAddress, isTestnet))
	c.mu.Unlock()

	if !c.config.Enabled {
		return nil
	}

	path := c.metadataPath(walletAddress, isTestnet)
	if _, err := c.client.Logical().DeleteWithContext(ctx, path); err != nil {
		return fmt.Errorf("failed to delete wallet key from vault: %w", err)
	}
	return nil
}

// IsEnabled returns whether Vault is enabled.
func (c *Client) IsEnabled() bool {
	return c.config.Enabled
}

// Health checks the Vault connection.
func (c *Client) Health(ctx context.Context) error {
	if !c.config.Enabled {
		return nil
	}
	health, err := c.client.Sys().HealthWithContext(ctx)
	if err != nil {
		return fmt.Errorf("vault health check failed: %w", err)
	}
	if health.Sealed {
		return fmt.Errorf("vault is sealed")
	}
	return nil
}

func (c *Client) secretPath(walletAddress string, isTestnet bool) string {
	return fmt.Sprintf("%s/data/%s/%s_%s", c.config.MountPath, c.config.SecretPath, walletAddress, network(isTestnet))
}

func (c *Client) metadataPath(walletAddress string, isTestnet bool) string {
	return fmt.Sprintf("%s/metadata/%s/%s_%s", c.config.MountPath, c.config.SecretPath, walletAddress, network(isTestnet))
}

func (c *Client) cacheKey(walletAddress string, isTestnet bool) string {
	return fmt.Sprintf("%s_%s", walletAddress, network(isTestnet))
}

func network(isTestnet bool) string {
	if isTestnet {
		return "testnet"
	}
	return "mainnet"
}

func getString(data map[string]interface{}, key string) string {
	if val, ok := data[key]; ok {
		if str, ok := val.(string); ok {
			return str
		}
	}
	return ""
}

func getBool(data map[string]interface{}, key string) bool {
	if val, ok := data[key]; ok {
		switch v := val.(type) {
		case bool:
			return v
		case string:
			return v == "true"
		}
	}
	return false
}
