package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"playsync/internal/ledger"
)

func newSyncCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Run one synchronization pass and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := newLogger(cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			led, err := ledger.Open(cfg.Paths.LedgerPath)
			if err != nil {
				return fmt.Errorf("open ledger: %w", err)
			}
			defer func() { _ = led.Close() }()

			runCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			runner := newRunner(cfg, led, logger)
			report, err := runner.Run(runCtx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Run %s finished in %s: %d acquired, %d tagged, %d failed\n",
				report.RunID, report.Duration.Round(time.Second), report.Acquired(), report.Tagged(), report.Failed())
			for _, pl := range report.Playlists {
				if pl.Err != nil {
					fmt.Fprintf(out, "  %s (%s): skipped: %v\n", pl.DisplayName, pl.PlaylistID, pl.Err)
				}
			}
			return nil
		},
	}
}
