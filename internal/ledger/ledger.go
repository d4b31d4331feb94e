// Package ledger provides a SQL-backed world-state ledger with transactional
// key/value access, JSON selector queries, bookmark pagination and
// per-transaction events.
package ledger

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/starford/worksledger/internal/checksum"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS world_state (
	state_key   TEXT PRIMARY KEY,
	state_value TEXT NOT NULL,
	tx_id       TEXT NOT NULL DEFAULT '',
	updated_at  TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// DB is the ledger host. Every read and write happens inside a Tx.
type DB struct {
	conn *sql.DB
	d    dialect
}

// Open opens (or creates) the ledger for the given driver and applies the schema.
func Open(driver, dsn string) (*DB, error) {
	d, err := dialectFor(driver)
	if err != nil {
		return nil, err
	}
	conn, err := sql.Open(d.driverName(), d.dataSource(dsn))
	if err != nil {
		return nil, fmt.Errorf("ledger: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ledger: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ledger: apply schema: %w", err)
	}
	return &DB{conn: conn, d: d}, nil
}

// Begin starts a transaction. The context bounds every statement the
// transaction runs.
func (db *DB) Begin(ctx context.Context) (*Tx, error) {
	sqlTx, err := db.conn.BeginTx(ctx, db.d.txOptions())
	if err != nil {
		return nil, fmt.Errorf("ledger: begin tx: %w", err)
	}
	return &Tx{ctx: ctx, tx: sqlTx, d: db.d, id: newTxID()}, nil
}

// Ping verifies the ledger is reachable.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// creator identifies this host in transaction ids.
var creator = []byte("worksledger")

func newTxID() string {
	nonce := uuid.New()
	return checksum.Sum(nonce[:], creator)
}
