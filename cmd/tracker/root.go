package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"solana-holder-tracker/internal/config"
	"solana-holder-tracker/internal/observability"
)

const flagConfig = "config"

// Persistent flags and the config keys they override.
var persistentFlags = []struct {
	name  string
	key   string
	usage string
}{
	{"mint", "mint", "SPL token mint address to track"},
	{"rpc-endpoint", "rpc.endpoint", "Solana RPC HTTP endpoint"},
	{"ws-endpoint", "rpc.ws_endpoint", "Solana WebSocket endpoint"},
	{"storage-backend", "storage.backend", "storage backend (memory, postgres)"},
	{"transactions-backend", "storage.transactions_backend", "transactions backend override (clickhouse)"},
	{"postgres-dsn", "storage.postgres_dsn", "PostgreSQL connection string"},
	{"clickhouse-dsn", "storage.clickhouse_dsn", "ClickHouse connection string"},
	{"log-level", "log.level", "log level (debug, info, warn, error)"},
}

// cli carries the loaded configuration between cobra hooks and commands.
type cli struct {
	v      *viper.Viper
	cfg    *config.Config
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{v: viper.New()}

	root := &cobra.Command{
		Use:           "tracker",
		Short:         "Track the top holders of an SPL token and their transactions",
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.load(cmd)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if c.logger != nil {
				_ = c.logger.Sync()
			}
		},
	}

	root.PersistentFlags().String(flagConfig, "", "config file (yaml, toml, json or env)")
	for _, f := range persistentFlags {
		root.PersistentFlags().String(f.name, "", f.usage)
	}

	root.AddCommand(
		newServeCmd(c),
		newRefreshCmd(c),
		newMigrateCmd(c),
	)
	return root
}

// load binds changed flags over file and environment values, then builds
// the config and logger.
func (c *cli) load(cmd *cobra.Command) error {
	for _, f := range persistentFlags {
		flag := cmd.Flags().Lookup(f.name)
		if flag == nil || !flag.Changed {
			continue
		}
		if err := c.v.BindPFlag(f.key, flag); err != nil {
			return fmt.Errorf("bind flag %s: %w", f.name, err)
		}
	}

	configFile, err := cmd.Flags().GetString(flagConfig)
	if err != nil {
		return err
	}
	cfg, err := config.Load(c.v, configFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := observability.NewLogger(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return err
	}

	c.cfg = cfg
	c.logger = logger
	return nil
}
