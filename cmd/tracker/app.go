package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"solana-holder-tracker/internal/classifier"
	"solana-holder-tracker/internal/config"
	"solana-holder-tracker/internal/ingestion"
	"solana-holder-tracker/internal/ledger"
	"solana-holder-tracker/internal/orchestrator"
	"solana-holder-tracker/internal/snapshot"
	"solana-holder-tracker/internal/solana"
	"solana-holder-tracker/internal/storage"
	chstore "solana-holder-tracker/internal/storage/clickhouse"
	"solana-holder-tracker/internal/storage/memory"
	"solana-holder-tracker/internal/storage/migrations"
	pgstore "solana-holder-tracker/internal/storage/postgres"
)

// stores holds the configured store implementations.
type stores struct {
	holders      storage.HolderStore
	transactions storage.TransactionStore
	updates      storage.UpdateStatusStore
	closers      []func()
}

func (s *stores) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

// createStores opens the configured backends, applying migrations when
// storage.auto_migrate is set.
func createStores(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*stores, error) {
	s := &stores{}

	switch cfg.Storage.Backend {
	case config.BackendPostgres:
		pool, err := pgstore.NewPool(ctx, cfg.Storage.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("connect to postgres: %w", err)
		}
		s.closers = append(s.closers, pool.Close)

		if cfg.Storage.AutoMigrate {
			if _, err := migrations.RunPostgresMigrations(ctx, pool, logger); err != nil {
				s.Close()
				return nil, err
			}
		}
		s.holders = pgstore.NewHolderStore(pool)
		s.transactions = pgstore.NewTransactionStore(pool)
		s.updates = pgstore.NewUpdateStatusStore(pool)
	default:
		s.holders = memory.NewHolderStore()
		s.transactions = memory.NewTransactionStore()
		s.updates = memory.NewUpdateStatusStore()
	}

	if cfg.TransactionsBackend() == config.BackendClickhouse {
		conn, err := openClickhouse(ctx, cfg, logger)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.closers = append(s.closers, func() { _ = conn.Close() })
		s.transactions = chstore.NewTransactionStore(conn)
	}

	logger.Info("stores ready",
		zap.String("backend", cfg.Storage.Backend),
		zap.String("transactions_backend", cfg.TransactionsBackend()))
	return s, nil
}

func openClickhouse(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*chstore.Conn, error) {
	if cfg.Storage.AutoMigrate {
		return migrations.RunClickhouseMigrations(ctx, cfg.Storage.ClickhouseDSN, logger)
	}
	conn, err := chstore.NewConn(ctx, cfg.Storage.ClickhouseDSN)
	if err != nil {
		return nil, fmt.Errorf("connect to clickhouse: %w", err)
	}
	return conn, nil
}

// app is the wired tracker.
type app struct {
	stores       *stores
	gateway      *ledger.RPCGateway
	recorder     *ingestion.Recorder
	orchestrator *orchestrator.Orchestrator
}

func newApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*app, error) {
	s, err := createStores(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	rpc := solana.NewHTTPClient(cfg.RPC.Endpoint,
		solana.WithTimeout(cfg.RPC.Timeout),
		solana.WithMaxRetries(cfg.RPC.MaxRetries))
	gateway := ledger.NewRPCGateway(rpc,
		ledger.WithRateLimit(cfg.RPC.RateLimit, cfg.RPC.RateBurst),
		ledger.WithHolderMode(ledger.HolderMode(cfg.RPC.HolderMode)),
		ledger.WithLogger(logger))

	var fallback *snapshot.FallbackGenerator
	if cfg.Refresh.Fallback {
		fallback = snapshot.NewFallbackGenerator(nil)
	}
	builder := snapshot.NewBuilder(gateway,
		snapshot.WithFallback(fallback),
		snapshot.WithConcurrency(cfg.Refresh.BalanceConcurrency),
		snapshot.WithLogger(logger))

	protocols, err := cfg.ProtocolTable()
	if err != nil {
		s.Close()
		return nil, err
	}
	recorder := ingestion.NewRecorder(ingestion.RecorderOptions{
		Classifier:   classifier.New(cfg.Mint, protocols),
		Holders:      s.holders,
		Transactions: s.transactions,
		Logger:       logger,
	})

	orch := orchestrator.New(orchestrator.Options{
		Builder:            builder,
		Gateway:            gateway,
		Recorder:           recorder,
		Holders:            s.holders,
		Transactions:       s.transactions,
		Updates:            s.updates,
		Mint:               cfg.Mint,
		HolderLimit:        cfg.Refresh.HolderLimit,
		RefreshInterval:    cfg.Refresh.Interval,
		RefreshTimeout:     cfg.Refresh.Timeout,
		MonitorInterval:    cfg.Monitor.Interval,
		MonitorWallets:     cfg.Monitor.Wallets,
		MonitorSignatures:  cfg.Monitor.Signatures,
		MonitorConcurrency: cfg.Monitor.Concurrency,
		AddressTimeout:     cfg.Monitor.AddressTimeout,
		Logger:             logger,
	})

	return &app{
		stores:       s,
		gateway:      gateway,
		recorder:     recorder,
		orchestrator: orch,
	}, nil
}

func (a *app) Close() {
	a.orchestrator.Wait()
	a.stores.Close()
}
