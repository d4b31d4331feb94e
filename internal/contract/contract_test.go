package contract

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/worksledger/internal/apperr"
	"github.com/starford/worksledger/internal/codec"
	"github.com/starford/worksledger/internal/ledger"
	"github.com/starford/worksledger/internal/models"
	"github.com/starford/worksledger/internal/testutil"
)

var ctx = context.Background()

func dune() models.Works {
	return models.NewWorks(1, "Dune", "Herbert", "Ace", "published",
		models.Date{Year: 1965, Month: time.August, Day: 1})
}

func encoded(t *testing.T, w models.Works) []byte {
	t.Helper()
	data, err := codec.Encode(w)
	require.NoError(t, err)
	return data
}

// txRunner runs each call in its own committed transaction, the way the
// host invokes one operation per transaction.
type txRunner struct {
	t  *testing.T
	db *ledger.DB
	cc *Contract
}

func newRunner(t *testing.T) *txRunner {
	return &txRunner{t: t, db: testutil.TestLedger(t), cc: New(nil)}
}

func (r *txRunner) run(fn func(stub ledger.Stub) error) (*ledger.ChaincodeEvent, error) {
	r.t.Helper()
	tx := testutil.Begin(r.t, r.db)
	if err := fn(tx); err != nil {
		require.NoError(r.t, tx.Rollback())
		return nil, err
	}
	return testutil.Commit(r.t, tx), nil
}

func (r *txRunner) create(key string, w models.Works) (*models.Works, *ledger.ChaincodeEvent, error) {
	var out *models.Works
	ev, err := r.run(func(stub ledger.Stub) error {
		var err error
		out, err = r.cc.Create(ctx, stub, key, w)
		return err
	})
	return out, ev, err
}

func (r *txRunner) get(key string) (*models.Works, error) {
	var out *models.Works
	_, err := r.run(func(stub ledger.Stub) error {
		var err error
		out, err = r.cc.Get(ctx, stub, key)
		return err
	})
	return out, err
}

func (r *txRunner) update(key string, w models.Works) (*models.Works, *ledger.ChaincodeEvent, error) {
	var out *models.Works
	ev, err := r.run(func(stub ledger.Stub) error {
		var err error
		out, err = r.cc.Update(ctx, stub, key, w)
		return err
	})
	return out, ev, err
}

func (r *txRunner) delete(key string) (*models.Works, error) {
	var out *models.Works
	_, err := r.run(func(stub ledger.Stub) error {
		var err error
		out, err = r.cc.Delete(ctx, stub, key)
		return err
	})
	return out, err
}

func (r *txRunner) put(key, value string) {
	_, err := r.run(func(stub ledger.Stub) error { return stub.PutState(key, []byte(value)) })
	require.NoError(r.t, err)
}

func (r *txRunner) raw(key string) []byte {
	var out []byte
	_, err := r.run(func(stub ledger.Stub) error {
		var err error
		out, err = stub.GetState(key)
		return err
	})
	require.NoError(r.t, err)
	return out
}

func TestScenario(t *testing.T) {
	r := newRunner(t)
	want := dune()

	created, ev, err := r.create("w1", want)
	require.NoError(t, err)
	assert.Equal(t, want, *created)
	require.NotNil(t, ev)
	assert.Equal(t, EventCreateWorks, ev.EventName)
	assert.Equal(t, encoded(t, want), ev.Payload)

	got, err := r.get("w1")
	require.NoError(t, err)
	assert.Equal(t, want, *got)

	_, _, err = r.create("w1", models.NewWorks(2, "Other", "Someone", "", "", models.Date{}))
	assert.ErrorIs(t, err, apperr.ErrAlreadyExists)
	assert.EqualError(t, err, "Works w1 already exists")

	deleted, err := r.delete("w1")
	require.NoError(t, err)
	assert.Equal(t, want, *deleted)

	_, err = r.get("w1")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.EqualError(t, err, "Works w1 does not exist")
}

func TestDuplicateCreateKeepsFirstValue(t *testing.T) {
	r := newRunner(t)
	_, _, err := r.create("w1", dune())
	require.NoError(t, err)

	_, ev, err := r.create("w1", models.NewWorks(9, "Second", "X", "Y", "Z", models.Date{}))
	require.ErrorIs(t, err, apperr.ErrAlreadyExists)
	assert.Nil(t, ev)

	assert.Equal(t, encoded(t, dune()), r.raw("w1"))
}

func TestBlankValueCountsAsAbsent(t *testing.T) {
	r := newRunner(t)
	r.put("blank", "  \n\t")

	_, err := r.get("blank")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, _, err = r.update("blank", dune())
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = r.delete("blank")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	created, _, err := r.create("blank", dune())
	require.NoError(t, err)
	assert.Equal(t, dune(), *created)
}

func TestUpdateRequiresExistence(t *testing.T) {
	r := newRunner(t)
	_, _, err := r.update("ghost", dune())
	require.ErrorIs(t, err, apperr.ErrNotFound)
	assert.Nil(t, r.raw("ghost"), "failed update must not create a record")
}

func TestUpdateOverwritesWholeRecord(t *testing.T) {
	r := newRunner(t)
	_, _, err := r.create("w1", dune())
	require.NoError(t, err)

	partial := models.Works{Title: "Dune Messiah"}
	updated, ev, err := r.update("w1", partial)
	require.NoError(t, err)
	assert.Equal(t, partial, *updated)
	assert.Nil(t, ev, "update emits no event")

	got, err := r.get("w1")
	require.NoError(t, err)
	assert.Equal(t, partial, *got)
	assert.Empty(t, got.Author)
	assert.True(t, got.PressDate.IsZero())
}

func TestDeleteReturnsLastWritten(t *testing.T) {
	r := newRunner(t)
	_, _, err := r.create("w1", dune())
	require.NoError(t, err)
	second := models.NewWorks(2, "Children of Dune", "Herbert", "Putnam", "published",
		models.Date{Year: 1976, Month: time.April, Day: 1})
	_, _, err = r.update("w1", second)
	require.NoError(t, err)

	deleted, err := r.delete("w1")
	require.NoError(t, err)
	assert.Equal(t, second, *deleted)
	assert.Nil(t, r.raw("w1"))

	_, err = r.delete("w1")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestMalformedRecord(t *testing.T) {
	r := newRunner(t)
	r.put("bad", `{"isbn":"978-0441013593"}`)

	_, err := r.get("bad")
	assert.ErrorIs(t, err, apperr.ErrMalformedRecord)

	_, err = r.delete("bad")
	assert.ErrorIs(t, err, apperr.ErrMalformedRecord)
	assert.NotNil(t, r.raw("bad"), "failed delete must leave the record")

	_, _, err = r.create("bad", dune())
	assert.ErrorIs(t, err, apperr.ErrAlreadyExists)
}

func seedLibrary(t *testing.T, r *txRunner) map[string]models.Works {
	t.Helper()
	library := map[string]models.Works{
		"w03": models.NewWorks(3, "Dune Messiah", "Herbert", "Putnam", "published", models.Date{Year: 1969, Month: time.October, Day: 15}),
		"w01": dune(),
		"w02": models.NewWorks(2, "The Left Hand of Darkness", "Le Guin", "Ace", "published", models.Date{}),
		"w05": models.NewWorks(5, "Children of Dune", "Herbert", "Putnam", "draft", models.Date{}),
		"w04": models.NewWorks(4, "The Dispossessed", "Le Guin", "Harper", "published", models.Date{}),
		"w07": models.NewWorks(7, "God Emperor of Dune", "Herbert", "Putnam", "published", models.Date{}),
		"w06": models.NewWorks(6, "Herbert's Notes", "herbert", "", "", models.Date{}),
	}
	for k, w := range library {
		_, _, err := r.create(k, w)
		require.NoError(t, err)
	}
	return library
}

func (r *txRunner) listByAuthor(author string) []models.WorksQueryResult {
	r.t.Helper()
	var out *models.WorksQueryResultList
	_, err := r.run(func(stub ledger.Stub) error {
		var err error
		out, err = r.cc.ListByAuthor(ctx, stub, author)
		return err
	})
	require.NoError(r.t, err)
	return out.Works
}

func TestListByAuthor(t *testing.T) {
	r := newRunner(t)
	library := seedLibrary(t, r)

	got := r.listByAuthor("Herbert")
	want := []models.WorksQueryResult{
		{Key: "w01", Works: library["w01"]},
		{Key: "w03", Works: library["w03"]},
		{Key: "w05", Works: library["w05"]},
		{Key: "w07", Works: library["w07"]},
	}
	assert.Equal(t, want, got)

	empty := r.listByAuthor("Asimov")
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestListByAuthorInjection(t *testing.T) {
	r := newRunner(t)
	seedLibrary(t, r)

	got := r.listByAuthor(`Herbert"},"$or":[{"author":"Le Guin"}],"x":{"y":"`)
	assert.Empty(t, got)
}

func TestListByAuthorMalformedRecord(t *testing.T) {
	r := newRunner(t)
	r.put("w1", `{"author":"Herbert","extra":true}`)

	_, err := r.run(func(stub ledger.Stub) error {
		_, err := r.cc.ListByAuthor(ctx, stub, "Herbert")
		return err
	})
	assert.ErrorIs(t, err, apperr.ErrMalformedRecord)
	assert.Contains(t, err.Error(), "Works w1")
}

func TestListByAuthorPagedCoversAll(t *testing.T) {
	r := newRunner(t)
	seedLibrary(t, r)
	all := r.listByAuthor("Herbert")

	for _, pageSize := range []int32{1, 2, 3, 4, 10} {
		label := fmt.Sprintf("pageSize=%d", pageSize)
		var (
			collected []models.WorksQueryResult
			bookmark  string
			seen      = map[string]bool{}
		)
		for calls := 0; calls < 20; calls++ {
			var page *models.WorksQueryPageResult
			_, err := r.run(func(stub ledger.Stub) error {
				var err error
				page, err = r.cc.ListByAuthorPaged(ctx, stub, "Herbert", pageSize, bookmark)
				return err
			})
			require.NoError(t, err, label)
			assert.LessOrEqual(t, len(page.Works), int(pageSize), label)
			assert.Equal(t, int32(len(page.Works)), page.FetchedRecordsCount, label)
			if len(page.Works) == 0 {
				break
			}
			for _, item := range page.Works {
				assert.False(t, seen[item.Key], "%s: key %s repeated across pages", label, item.Key)
				seen[item.Key] = true
			}
			collected = append(collected, page.Works...)
			bookmark = page.Bookmark
		}
		assert.Equal(t, all, collected, label)
	}
}

func TestListByAuthorPagedErrors(t *testing.T) {
	r := newRunner(t)

	_, err := r.run(func(stub ledger.Stub) error {
		_, err := r.cc.ListByAuthorPaged(ctx, stub, "Herbert", 0, "")
		return err
	})
	assert.ErrorIs(t, err, apperr.ErrQueryFailure)

	_, err = r.run(func(stub ledger.Stub) error {
		_, err := r.cc.ListByAuthorPaged(ctx, stub, "Herbert", 5, "%%%")
		return err
	})
	assert.ErrorIs(t, err, apperr.ErrQueryFailure)
	assert.ErrorIs(t, err, ledger.ErrInvalidBookmark)
}

// faultyStub wraps a stub and injects failures.
type faultyStub struct {
	ledger.Stub
	eventErr error
	queryErr error
	iter     ledger.StateIterator
}

func (s *faultyStub) SetEvent(name string, payload []byte) error {
	if s.eventErr != nil {
		return s.eventErr
	}
	return s.Stub.SetEvent(name, payload)
}

func (s *faultyStub) GetQueryResult(q string) (ledger.StateIterator, error) {
	if s.queryErr != nil {
		return nil, s.queryErr
	}
	if s.iter != nil {
		return s.iter, nil
	}
	return s.Stub.GetQueryResult(q)
}

func TestCreateSurvivesEventFailure(t *testing.T) {
	r := newRunner(t)
	ev, err := r.run(func(stub ledger.Stub) error {
		_, err := r.cc.Create(ctx, &faultyStub{Stub: stub, eventErr: errors.New("event bus down")}, "w1", dune())
		return err
	})
	require.NoError(t, err)
	assert.Nil(t, ev)
	assert.Equal(t, encoded(t, dune()), r.raw("w1"))
}

func TestQueryEngineFailureIsQueryFailure(t *testing.T) {
	r := newRunner(t)
	_, err := r.run(func(stub ledger.Stub) error {
		_, err := r.cc.ListByAuthor(ctx, &faultyStub{Stub: stub, queryErr: errors.New("index missing")}, "Herbert")
		return err
	})
	assert.ErrorIs(t, err, apperr.ErrQueryFailure)
	assert.Contains(t, err.Error(), `{"selector":{"author":"Herbert"}}`)
}

type recordingIterator struct {
	kvs    []ledger.KV
	closed bool
}

func (it *recordingIterator) HasNext() bool { return len(it.kvs) > 0 }

func (it *recordingIterator) Next() (*ledger.KV, error) {
	kv := it.kvs[0]
	it.kvs = it.kvs[1:]
	return &kv, nil
}

func (it *recordingIterator) Close() error {
	it.closed = true
	return nil
}

func TestCollectClosesIterator(t *testing.T) {
	ok := &recordingIterator{kvs: []ledger.KV{
		{Key: "b", Value: encoded(t, models.Works{ID: 2})},
		{Key: "a", Value: encoded(t, models.Works{ID: 1})},
	}}
	results, err := collect(ok)
	require.NoError(t, err)
	assert.True(t, ok.closed)
	assert.Equal(t, []string{"b", "a"}, []string{results[0].Key, results[1].Key}, "order is preserved verbatim")

	bad := &recordingIterator{kvs: []ledger.KV{{Key: "x", Value: []byte("nope")}}}
	_, err = collect(bad)
	assert.ErrorIs(t, err, apperr.ErrMalformedRecord)
	assert.True(t, bad.closed)
}

func TestUnencodableRecordIsNeverStored(t *testing.T) {
	r := newRunner(t)
	feb30 := models.NewWorks(1, "Dune", "Herbert", "Ace", "published",
		models.Date{Year: 2024, Month: time.February, Day: 30})

	_, ev, err := r.create("w1", feb30)
	assert.ErrorIs(t, err, apperr.ErrMalformedRecord)
	assert.Nil(t, ev)
	assert.Nil(t, r.raw("w1"))

	_, _, err = r.create("w1", dune())
	require.NoError(t, err)

	_, _, err = r.update("w1", models.Works{Title: "bad\xffutf8"})
	assert.ErrorIs(t, err, apperr.ErrMalformedRecord)
	assert.Equal(t, encoded(t, dune()), r.raw("w1"))

	assert.Len(t, r.listByAuthor("Herbert"), 1)
}
