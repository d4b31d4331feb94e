// Package testutil provides shared test helpers for setting up ledgers.
package testutil

import (
	"context"
	"os"
	"testing"

	"github.com/starford/worksledger/internal/ledger"
)

// TestLedger creates a temporary SQLite ledger that is automatically cleaned up.
func TestLedger(t *testing.T) *ledger.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "worksledger-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := ledger.Open(ledger.DriverSQLite, dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// Begin starts a transaction on db that is rolled back when the test ends
// unless it was committed first.
func Begin(t *testing.T, db *ledger.DB) *ledger.Tx {
	t.Helper()
	tx, err := db.Begin(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = tx.Rollback() })
	return tx
}

// Commit commits tx and returns its event.
func Commit(t *testing.T, tx *ledger.Tx) *ledger.ChaincodeEvent {
	t.Helper()
	ev, err := tx.Commit()
	if err != nil {
		t.Fatal(err)
	}
	return ev
}
