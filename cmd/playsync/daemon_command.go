package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"playsync/internal/ledger"
)

func newDaemonCommand(ctx *commandContext) *cobra.Command {
	var intervalHours int

	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Run continuously, synchronizing on an interval",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := newLogger(cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			// The ledger's file lock doubles as the single-instance guard.
			led, err := ledger.Open(cfg.Paths.LedgerPath)
			if err != nil {
				return fmt.Errorf("open ledger: %w", err)
			}
			defer func() { _ = led.Close() }()

			runCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			interval := time.Duration(intervalHours) * time.Hour
			runner := newRunner(cfg, led, logger)
			return runner.RunLoop(runCtx, interval)
		},
	}

	cmd.Flags().IntVar(&intervalHours, "interval", 0, "Hours between runs (default from config)")
	return cmd
}
