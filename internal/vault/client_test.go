package vault

import (
	"context"
	"testing"

	"hyperliquid-trading-bot/config"
)

func TestDisabledVaultUsesLocalStore(t *testing.T) {
	client, err := NewClient(config.VaultConfig{Enabled: false})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	data := WalletKeyData{
		PrivateKey:    "abc123",
		WalletAddress: "0xwallet",
		IsTestnet:     true,
	}
	if err := client.StoreWalletKey(context.Background(), data); err != nil {
		t.Fatalf("StoreWalletKey: %v", err)
	}

	got, err := client.GetWalletKey(context.Background(), "0xwallet", true)
	if err != nil {
		t.Fatalf("GetWalletKey: %v", err)
	}
	if got.PrivateKey != "abc123" {
		t.Errorf("PrivateKey = %q, want abc123", got.PrivateKey)
	}

	// Network is part of the key: mainnet lookup must miss.
	if _, err := client.GetWalletKey(context.Background(), "0xwallet", false); err == nil {
		t.Error("expected miss for mainnet key")
	}

	if err := client.DeleteWalletKey(context.Background(), "0xwallet", true); err != nil {
		t.Fatalf("DeleteWalletKey: %v", err)
	}
	if _, err := client.GetWalletKey(context.Background(), "0xwallet", true); err == nil {
		t.Error("expected miss after delete")
	}
}

func TestDisabledVaultHealthIsOK(t *testing.T) {
	client, _ := NewClient(config.VaultConfig{Enabled: false})
	if err := client.Health(context.Background()); err != nil {
		t.Errorf("Health: %v", err)
	}
}
