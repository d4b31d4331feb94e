package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/starford/worksledger/internal/apperr"
	"github.com/starford/worksledger/internal/query"
)

var (
	// ErrEmptyKey is returned for an empty state key.
	ErrEmptyKey = errors.New("key must not be empty")
	// ErrInvalidPageSize is returned for a page size below one.
	ErrInvalidPageSize = errors.New("page size must be positive")
	// ErrEmptyEventName is returned by SetEvent for an empty name.
	ErrEmptyEventName = errors.New("event name must not be empty")
)

// Tx is one ledger transaction. It implements Stub.
type Tx struct {
	ctx   context.Context
	tx    *sql.Tx
	d     dialect
	id    string
	event *ChaincodeEvent
}

var _ Stub = (*Tx)(nil)

// TxID returns the transaction id.
func (t *Tx) TxID() string { return t.id }

// GetState returns the value at key, or nil when the key is absent.
func (t *Tx) GetState(key string) ([]byte, error) {
	if key == "" {
		return nil, ErrEmptyKey
	}
	var value string
	err := t.tx.QueryRowContext(t.ctx,
		t.d.rebind(`SELECT state_value FROM world_state WHERE state_key = ?`), key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ledger: get state %s: %w", key, err)
	}
	return []byte(value), nil
}

// PutState writes value at key.
func (t *Tx) PutState(key string, value []byte) error {
	if key == "" {
		return ErrEmptyKey
	}
	_, err := t.tx.ExecContext(t.ctx, t.d.rebind(`
		INSERT INTO world_state (state_key, state_value, tx_id, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(state_key) DO UPDATE SET
			state_value = excluded.state_value,
			tx_id       = excluded.tx_id,
			updated_at  = excluded.updated_at
	`), key, string(value), t.id, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("ledger: put state %s: %w", key, err)
	}
	return nil
}

// DelState removes key.
func (t *Tx) DelState(key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	if _, err := t.tx.ExecContext(t.ctx, t.d.rebind(`DELETE FROM world_state WHERE state_key = ?`), key); err != nil {
		return fmt.Errorf("ledger: delete state %s: %w", key, err)
	}
	return nil
}

// GetQueryResult runs a rich query over every record.
func (t *Tx) GetQueryResult(raw string) (StateIterator, error) {
	sel, err := query.Parse(raw)
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrQueryFailure, err, "ledger: query %s", raw)
	}
	kvs, err := t.selectState(sel, "", 0)
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrQueryFailure, err, "ledger: query %s", raw)
	}
	return newSliceIterator(kvs), nil
}

// GetQueryResultWithPagination runs a rich query and returns one page.
// The returned bookmark resumes after the last key of the page; for an empty
// page the incoming bookmark is returned unchanged.
func (t *Tx) GetQueryResultWithPagination(raw string, pageSize int32, bookmark string) (StateIterator, *QueryResponseMetadata, error) {
	if pageSize <= 0 {
		return nil, nil, apperr.Wrap(apperr.ErrQueryFailure, ErrInvalidPageSize, "ledger: paged query %s", raw)
	}
	sel, err := query.Parse(raw)
	if err != nil {
		return nil, nil, apperr.Wrap(apperr.ErrQueryFailure, err, "ledger: paged query %s", raw)
	}
	digest := queryDigest(sel)
	pos, err := decodeBookmark(bookmark, digest)
	if err != nil {
		return nil, nil, apperr.Wrap(apperr.ErrQueryFailure, err, "ledger: paged query %s", raw)
	}
	kvs, err := t.selectState(sel, pos.AfterKey, int(pageSize))
	if err != nil {
		return nil, nil, apperr.Wrap(apperr.ErrQueryFailure, err, "ledger: paged query %s", raw)
	}

	next := bookmark
	if len(kvs) > 0 {
		next = encodeBookmark(bookmarkData{Query: digest, AfterKey: kvs[len(kvs)-1].Key})
	}
	meta := &QueryResponseMetadata{
		FetchedRecordsCount: int32(len(kvs)),
		Bookmark:            next,
	}
	return newSliceIterator(kvs), meta, nil
}

// SetEvent attaches an event to the transaction, replacing any earlier one.
func (t *Tx) SetEvent(name string, payload []byte) error {
	if name == "" {
		return ErrEmptyEventName
	}
	t.event = &ChaincodeEvent{
		TxID:      t.id,
		EventName: name,
		Payload:   append([]byte(nil), payload...),
	}
	return nil
}

// Commit commits the transaction and returns its event, if one was set.
func (t *Tx) Commit() (*ChaincodeEvent, error) {
	if err := t.tx.Commit(); err != nil {
		return nil, fmt.Errorf("ledger: commit tx %s: %w", t.id, err)
	}
	return t.event, nil
}

// Rollback discards the transaction. It is safe to call after Commit.
func (t *Tx) Rollback() error {
	err := t.tx.Rollback()
	if errors.Is(err, sql.ErrTxDone) {
		return nil
	}
	return err
}

func (t *Tx) selectState(sel query.Selector, afterKey string, limit int) ([]KV, error) {
	var (
		where []string
		args  []any
	)
	for _, c := range sel.Conditions {
		pred, predArgs, err := t.d.match(c)
		if err != nil {
			return nil, err
		}
		where = append(where, pred)
		args = append(args, predArgs...)
	}
	if afterKey != "" {
		where = append(where, t.d.keyExpr()+" > ?")
		args = append(args, afterKey)
	}

	var b strings.Builder
	b.WriteString("SELECT state_key, state_value FROM world_state")
	if len(where) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(where, " AND "))
	}
	b.WriteString(" ORDER BY ")
	b.WriteString(t.d.keyExpr())
	if limit > 0 {
		b.WriteString(" LIMIT ?")
		args = append(args, limit)
	}

	rows, err := t.tx.QueryContext(t.ctx, t.d.rebind(b.String()), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []KV{}
	for rows.Next() {
		var (
			key   string
			value string
		)
		if err := rows.Scan(&key, &value); err != nil {
			return nil, err
		}
		out = append(out, KV{Key: key, Value: []byte(value)})
	}
	return out, rows.Err()
}
