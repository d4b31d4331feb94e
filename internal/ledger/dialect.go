package ledger

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"

	"github.com/starford/worksledger/internal/query"
)

// Supported drivers.
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

// dialect hides the SQL differences between the supported hosts.
type dialect interface {
	driverName() string
	dataSource(dsn string) string
	txOptions() *sql.TxOptions
	// keyExpr is the state key column under a byte-wise collation.
	keyExpr() string
	// match returns a predicate for one selector condition and its arguments.
	match(c query.Condition) (string, []any, error)
	rebind(q string) string
}

func dialectFor(driver string) (dialect, error) {
	switch driver {
	case DriverSQLite, "sqlite", "":
		return sqliteDialect{}, nil
	case DriverPostgres, "pgx":
		return postgresDialect{}, nil
	default:
		return nil, fmt.Errorf("ledger: unsupported driver %q", driver)
	}
}

type sqliteDialect struct{}

func (sqliteDialect) driverName() string { return "sqlite3" }

func (sqliteDialect) dataSource(dsn string) string {
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	// Immediate transactions take the write lock at BEGIN, so guarded
	// read-then-write operations are serialized against each other.
	return dsn + sep + "_journal_mode=WAL&_busy_timeout=5000&_txlock=immediate"
}

func (sqliteDialect) txOptions() *sql.TxOptions { return nil }

func (sqliteDialect) keyExpr() string { return "state_key" }

func (sqliteDialect) match(c query.Condition) (string, []any, error) {
	// Values that are not JSON never match instead of failing the query.
	pred := "CASE WHEN json_valid(state_value) THEN json_extract(state_value, ?) END = ?"
	return pred, []any{"$." + c.Field, c.Value}, nil
}

func (sqliteDialect) rebind(q string) string { return q }

type postgresDialect struct{}

func (postgresDialect) driverName() string { return "pgx" }

func (postgresDialect) dataSource(dsn string) string { return dsn }

func (postgresDialect) txOptions() *sql.TxOptions {
	return &sql.TxOptions{Isolation: sql.LevelSerializable}
}

func (postgresDialect) keyExpr() string { return `state_key COLLATE "C"` }

func (postgresDialect) match(c query.Condition) (string, []any, error) {
	v, err := json.Marshal(c.Value)
	if err != nil {
		return "", nil, err
	}
	pred := "CASE WHEN state_value IS JSON THEN (state_value::jsonb -> ?::text) = ?::jsonb END"
	return pred, []any{c.Field, string(v)}, nil
}

// rebind rewrites ? placeholders as $1, $2, ...
func (postgresDialect) rebind(q string) string {
	var b strings.Builder
	b.Grow(len(q) + 8)
	n := 0
	for i := 0; i < len(q); i++ {
		if q[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(q[i])
	}
	return b.String()
}
