package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"solana-holder-tracker/internal/config"
	"solana-holder-tracker/internal/storage/migrations"
	pgstore "solana-holder-tracker/internal/storage/postgres"
)

func newMigrateCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply PostgreSQL and ClickHouse migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg := c.cfg
			ran := false

			if cfg.Storage.Backend == config.BackendPostgres {
				pool, err := pgstore.NewPool(ctx, cfg.Storage.PostgresDSN)
				if err != nil {
					return fmt.Errorf("connect to postgres: %w", err)
				}
				defer pool.Close()

				applied, err := migrations.RunPostgresMigrations(ctx, pool, c.logger)
				if err != nil {
					return err
				}
				c.logger.Info("postgres migrations done", zap.Strings("applied", applied))
				ran = true
			}

			if cfg.TransactionsBackend() == config.BackendClickhouse {
				conn, err := migrations.RunClickhouseMigrations(ctx, cfg.Storage.ClickhouseDSN, c.logger)
				if err != nil {
					return err
				}
				_ = conn.Close()
				c.logger.Info("clickhouse migrations done")
				ran = true
			}

			if !ran {
				return errors.New("nothing to migrate: memory backend configured")
			}
			return nil
		},
	}
}
