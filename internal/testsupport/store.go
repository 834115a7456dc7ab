package testsupport

import (
	"testing"

	"podarchive/internal/config"
	"podarchive/internal/ledger"
)

// MustOpenLedger returns the ledger configured by cfg and registers cleanup.
func MustOpenLedger(t testing.TB, cfg *config.Config) *ledger.Ledger {
	t.Helper()

	l := ledger.New(cfg.LedgerPath(), nil)
	t.Cleanup(func() {
		_ = l.Close()
	})
	return l
}
