package ledger

import "errors"

// ErrIteratorClosed is returned by Next after Close.
var ErrIteratorClosed = errors.New("ledger: iterator closed")

// sliceIterator walks query results that were read in full while the
// statement was open, so the transaction's connection is free again
// before the caller starts iterating.
type sliceIterator struct {
	kvs    []KV
	pos    int
	closed bool
}

func newSliceIterator(kvs []KV) *sliceIterator {
	return &sliceIterator{kvs: kvs}
}

func (it *sliceIterator) HasNext() bool {
	return !it.closed && it.pos < len(it.kvs)
}

func (it *sliceIterator) Next() (*KV, error) {
	if it.closed {
		return nil, ErrIteratorClosed
	}
	if it.pos >= len(it.kvs) {
		return nil, errors.New("ledger: iterator exhausted")
	}
	kv := it.kvs[it.pos]
	it.pos++
	return &kv, nil
}

func (it *sliceIterator) Close() error {
	it.closed = true
	it.kvs = nil
	return nil
}
