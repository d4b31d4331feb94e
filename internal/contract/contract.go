// Package contract implements the Works transactions: existence-guarded
// create, update and delete, direct reads, and author queries with optional
// bookmark pagination.
//
// Operations take the ledger stub explicitly and hold no state between calls.
// Each one reads current state, decides, and writes within the caller's
// transaction; atomicity and ordering are the host's responsibility.
package contract

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/starford/worksledger/internal/apperr"
	"github.com/starford/worksledger/internal/codec"
	"github.com/starford/worksledger/internal/ledger"
	"github.com/starford/worksledger/internal/models"
	"github.com/starford/worksledger/internal/query"
)

// EventCreateWorks is emitted with the encoded record when a Works is created.
const EventCreateWorks = "createWorksEvent"

// Contract holds the Works transaction handlers.
type Contract struct {
	logger *slog.Logger
}

// New creates a Contract. A nil logger uses slog.Default.
func New(logger *slog.Logger) *Contract {
	if logger == nil {
		logger = slog.Default()
	}
	return &Contract{logger: logger}
}

// Get returns the record stored at key.
func (c *Contract) Get(_ context.Context, stub ledger.Stub, key string) (*models.Works, error) {
	state, err := stub.GetState(key)
	if err != nil {
		return nil, err
	}
	if isBlank(state) {
		return nil, apperr.New(apperr.ErrNotFound, "Works %s does not exist", key)
	}
	w, err := codec.Decode(state)
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrMalformedRecord, err, "Works %s", key)
	}
	return &w, nil
}

// Create stores w at key and emits EventCreateWorks. It fails if key already
// holds a non-blank value.
func (c *Contract) Create(_ context.Context, stub ledger.Stub, key string, w models.Works) (*models.Works, error) {
	state, err := stub.GetState(key)
	if err != nil {
		return nil, err
	}
	if !isBlank(state) {
		return nil, apperr.New(apperr.ErrAlreadyExists, "Works %s already exists", key)
	}

	data, err := codec.Encode(w)
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrMalformedRecord, err, "Works %s", key)
	}
	if err := stub.PutState(key, data); err != nil {
		return nil, err
	}

	if err := stub.SetEvent(EventCreateWorks, data); err != nil {
		c.logger.Warn("set event failed",
			slog.String("event", EventCreateWorks),
			slog.String("key", key),
			slog.String("tx_id", stub.TxID()),
			slog.String("error", err.Error()))
	}
	return &w, nil
}

// Update replaces the record at key with w. Every field is overwritten;
// nothing is carried over from the previous record.
func (c *Contract) Update(_ context.Context, stub ledger.Stub, key string, w models.Works) (*models.Works, error) {
	state, err := stub.GetState(key)
	if err != nil {
		return nil, err
	}
	if isBlank(state) {
		return nil, apperr.New(apperr.ErrNotFound, "Works %s does not exist", key)
	}
	data, err := codec.Encode(w)
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrMalformedRecord, err, "Works %s", key)
	}
	if err := stub.PutState(key, data); err != nil {
		return nil, err
	}
	return &w, nil
}

// Delete removes the record at key and returns what was stored there.
func (c *Contract) Delete(_ context.Context, stub ledger.Stub, key string) (*models.Works, error) {
	state, err := stub.GetState(key)
	if err != nil {
		return nil, err
	}
	if isBlank(state) {
		return nil, apperr.New(apperr.ErrNotFound, "Works %s does not exist", key)
	}
	prior, err := codec.Decode(state)
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrMalformedRecord, err, "Works %s", key)
	}
	if err := stub.DelState(key); err != nil {
		return nil, err
	}
	return &prior, nil
}

// ListByAuthor returns every record whose author equals author, in the order
// the ledger returns them.
func (c *Contract) ListByAuthor(_ context.Context, stub ledger.Stub, author string) (*models.WorksQueryResultList, error) {
	q := query.BuildAuthorFilter(author).String()
	c.logger.Debug("query works by author",
		slog.String("author", author),
		slog.String("query", q))

	it, err := stub.GetQueryResult(q)
	if err != nil {
		return nil, asQueryFailure(err, q)
	}
	results, err := collect(it)
	if err != nil {
		return nil, err
	}
	return &models.WorksQueryResultList{Works: results}, nil
}

// ListByAuthorPaged returns one page of records whose author equals author.
// The bookmark returned by the ledger is passed through unchanged.
func (c *Contract) ListByAuthorPaged(_ context.Context, stub ledger.Stub, author string, pageSize int32, bookmark string) (*models.WorksQueryPageResult, error) {
	q := query.BuildAuthorFilter(author).String()
	c.logger.Debug("query works page by author",
		slog.String("author", author),
		slog.String("query", q),
		slog.Int("page_size", int(pageSize)),
		slog.String("bookmark", bookmark))

	it, meta, err := stub.GetQueryResultWithPagination(q, pageSize, bookmark)
	if err != nil {
		return nil, asQueryFailure(err, q)
	}
	results, err := collect(it)
	if err != nil {
		return nil, err
	}

	page := &models.WorksQueryPageResult{Works: results}
	if meta != nil {
		page.Bookmark = meta.Bookmark
		page.FetchedRecordsCount = meta.FetchedRecordsCount
	}
	return page, nil
}

// isBlank reports whether a stored value counts as absent.
func isBlank(state []byte) bool {
	return len(strings.TrimSpace(string(state))) == 0
}

func asQueryFailure(err error, q string) error {
	if errors.Is(err, apperr.ErrQueryFailure) {
		return err
	}
	return apperr.Wrap(apperr.ErrQueryFailure, err, "query %s", q)
}
