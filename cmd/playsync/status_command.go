package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"playsync/internal/ledger"
	"playsync/internal/preflight"
)

const (
	ansiReset = "\x1b[0m"
	ansiGreen = "\x1b[32m"
	ansiRed   = "\x1b[31m"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show ledger state and host readiness",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			fmt.Fprintln(out, "Checks:")
			for _, result := range preflight.RunAll(cfg) {
				fmt.Fprintf(out, "  %s %s: %s\n", checkMark(result.Passed, colorize), result.Name, result.Detail)
			}
			fmt.Fprintln(out)

			// A read-only load: never takes the lock, so status works while
			// a sync is running.
			playlists, err := ledger.Read(cfg.Paths.LedgerPath)
			if err != nil {
				return fmt.Errorf("read ledger: %w", err)
			}
			if len(playlists) == 0 {
				fmt.Fprintln(out, "Ledger is empty; run `playsync sync` to get started.")
				return nil
			}

			ids := make([]string, 0, len(playlists))
			for id := range playlists {
				ids = append(ids, id)
			}
			sort.Strings(ids)

			rows := make([][]string, 0, len(ids))
			for _, id := range ids {
				pl := playlists[id]
				counts := pl.CountByStatus()
				rows = append(rows, []string{
					pl.DisplayName,
					id,
					strconv.Itoa(len(pl.Entries)),
					strconv.Itoa(counts[ledger.StatusTagged]),
					strconv.Itoa(counts[ledger.StatusAcquired]),
					strconv.Itoa(counts[ledger.StatusPending]),
					strconv.Itoa(counts[ledger.StatusFailed]),
				})
			}
			headers := []string{"Playlist", "ID", "Entries", "Tagged", "Acquired", "Pending", "Failed"}
			aligns := []columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight}
			fmt.Fprintln(out, renderTable(headers, rows, aligns))
			return nil
		},
	}
}

func checkMark(passed, colorize bool) string {
	if passed {
		if colorize {
			return ansiGreen + "ok" + ansiReset
		}
		return "ok"
	}
	if colorize {
		return ansiRed + "FAIL" + ansiReset
	}
	return "FAIL"
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
