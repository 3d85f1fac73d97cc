package testsupport

import (
	"testing"

	"playsync/internal/config"
	"playsync/internal/ledger"
)

// MustOpenLedger opens a ledger.Ledger for tests and registers cleanup.
func MustOpenLedger(t testing.TB, cfg *config.Config) *ledger.Ledger {
	t.Helper()

	led, err := ledger.Open(cfg.Paths.LedgerPath)
	if err != nil {
		t.Fatalf("ledger.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = led.Close()
	})
	return led
}
