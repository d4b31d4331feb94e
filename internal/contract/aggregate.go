package contract

import (
	"github.com/starford/worksledger/internal/apperr"
	"github.com/starford/worksledger/internal/codec"
	"github.com/starford/worksledger/internal/ledger"
	"github.com/starford/worksledger/internal/models"
)

// collect drains it into (key, Works) pairs in iteration order and closes it.
// The result is never nil.
func collect(it ledger.StateIterator) (results []models.WorksQueryResult, err error) {
	defer func() {
		if cerr := it.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	results = []models.WorksQueryResult{}
	for it.HasNext() {
		kv, err := it.Next()
		if err != nil {
			return nil, err
		}
		w, err := codec.Decode(kv.Value)
		if err != nil {
			return nil, apperr.Wrap(apperr.ErrMalformedRecord, err, "Works %s", kv.Key)
		}
		results = append(results, models.WorksQueryResult{Key: kv.Key, Works: w})
	}
	return results, nil
}
