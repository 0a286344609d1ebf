package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newRefreshCmd(c *cli) *cobra.Command {
	var monitor bool

	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Run one holder refresh cycle and print its status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, c.cfg, c.logger)
			if err != nil {
				return err
			}
			defer a.Close()

			st, err := a.orchestrator.RunRefresh(ctx)
			if st != nil {
				if encErr := printJSON(cmd, st); encErr != nil {
					return encErr
				}
			}
			if err != nil {
				return fmt.Errorf("refresh: %w", err)
			}

			if monitor {
				res := a.orchestrator.RunMonitor(ctx)
				c.logger.Info("monitor pass finished",
					zap.Int("addresses", res.Addresses),
					zap.Int("failed", res.FailedAddresses),
					zap.Int("recorded", res.Recorded))
				return printJSON(cmd, res)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&monitor, "monitor", false, "also run one transaction monitor pass")
	return cmd
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
