package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hyperliquid-trading-bot/config"
	"hyperliquid-trading-bot/internal/api"
	"hyperliquid-trading-bot/internal/audit"
	"hyperliquid-trading-bot/internal/auth"
	"hyperliquid-trading-bot/internal/bot"
	"hyperliquid-trading-bot/internal/hyperliquid"
	"hyperliquid-trading-bot/internal/logging"
	"hyperliquid-trading-bot/internal/pricefeed"
	"hyperliquid-trading-bot/internal/risksync"
	"hyperliquid-trading-bot/internal/vault"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger := logging.New(logging.Config{
		Level:      cfg.LoggingConfig.Level,
		JSONFormat: cfg.LoggingConfig.JSONFormat,
	})
	logger.Info().Bool("testnet", cfg.HyperliquidConfig.Testnet).Msg("Starting risk sync service")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Signing key: Vault when enabled, config/env otherwise.
	vaultClient, err := vault.NewClient(cfg.VaultConfig)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create vault client")
	}
	privateKey := cfg.HyperliquidConfig.PrivateKey
	if vaultClient.IsEnabled() {
		keyData, err := vaultClient.GetWalletKey(ctx, cfg.HyperliquidConfig.WalletAddress, cfg.HyperliquidConfig.Testnet)
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to load wallet key from vault")
		}
		privateKey = keyData.PrivateKey
		logger.Info().Msg("Wallet key loaded from vault")
	}

	signer, err := hyperliquid.NewSigner(privateKey, cfg.HyperliquidConfig.Testnet)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize signer")
	}

	client := hyperliquid.NewClient(hyperliquid.Config{
		BaseURL: cfg.HyperliquidConfig.BaseURL,
		Timeout: time.Duration(cfg.HyperliquidConfig.RequestTimeout) * time.Second,
	}, signer, logger)

	var recorder *audit.Recorder
	if cfg.AuditConfig.Enabled {
		recorder, err = audit.NewRecorder(ctx, audit.Config{
			Host:     cfg.AuditConfig.Host,
			Port:     cfg.AuditConfig.Port,
			User:     cfg.AuditConfig.User,
			Password: cfg.AuditConfig.Password,
			Database: cfg.AuditConfig.Database,
			SSLMode:  cfg.AuditConfig.SSLMode,
		}, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to start audit recorder")
		}
		defer recorder.Close()
		client.SetRecorder(recorder)
	}

	var prices risksync.PriceSource
	var feed *pricefeed.Feed
	if cfg.PriceFeedConfig.Enabled {
		feed = pricefeed.NewFeed(pricefeed.Config{
			URL:              cfg.HyperliquidConfig.WSURL,
			ReconnectBackoff: time.Duration(cfg.PriceFeedConfig.ReconnectDelaySec) * time.Second,
		}, logger)
		go feed.Run(ctx)
		prices = feed
	}

	gateway := risksync.NewHyperliquidGateway(client)
	engine := risksync.NewEngine(risksync.EngineConfig{
		PriceTolerance: cfg.RiskSyncConfig.PriceTolerance,
		TriggerBandPct: cfg.RiskSyncConfig.TriggerBandPct,
	}, gateway, risksync.NewLevelsCache(), prices, logger)

	levels := bot.NewLevelsStore()
	orchestrator := bot.NewOrchestrator(
		engine, client, levels, cfg.Instruments,
		time.Duration(cfg.RiskSyncConfig.DecisionIntervalSecs)*time.Second,
		logger,
	)
	orchestrator.Start(ctx)

	var jwtManager *auth.JWTManager
	if cfg.AuthConfig.Enabled {
		jwtManager = auth.NewJWTManager(cfg.AuthConfig.JWTSecret, cfg.AuthConfig.AccessTokenDuration)
		logger.Info().Msg("API authentication enabled")
	}

	server := api.NewServer(cfg.ServerConfig, api.Deps{
		Engine:    engine,
		Gateway:   gateway,
		Positions: client,
		Levels:    levels,
		Prices:    prices,
		Recorder:  recorder,
	}, jwtManager, logger)

	go func() {
		if err := server.Start(); err != nil {
			logger.Fatal().Err(err).Msg("API server failed")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	logger.Info().Msg("Shutdown signal received")

	cancel()
	orchestrator.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(
		context.Background(),
		time.Duration(cfg.ServerConfig.ShutdownTimeout)*time.Second,
	)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("API server shutdown failed")
	}

	logger.Info().Msg("Shutdown complete")
}
