package ledger

// Stub is the world-state surface a contract operation runs against.
// Every call is scoped to a single transaction.
type Stub interface {
	// TxID returns the id of the current transaction.
	TxID() string
	// GetState returns the value stored at key, or nil if there is none.
	GetState(key string) ([]byte, error)
	// PutState writes value at key, replacing any previous value.
	PutState(key string, value []byte) error
	// DelState removes key. Removing an absent key is a no-op.
	DelState(key string) error
	// GetQueryResult runs a rich query and returns every match ordered by key.
	GetQueryResult(query string) (StateIterator, error)
	// GetQueryResultWithPagination runs a rich query and returns at most
	// pageSize matches following bookmark.
	GetQueryResultWithPagination(query string, pageSize int32, bookmark string) (StateIterator, *QueryResponseMetadata, error)
	// SetEvent attaches a named event to the transaction. It is delivered
	// to listeners only if the transaction commits. A later call replaces
	// an earlier one.
	SetEvent(name string, payload []byte) error
}

// StateIterator is a forward-only cursor over query results.
// Callers must Close it when done.
type StateIterator interface {
	HasNext() bool
	Next() (*KV, error)
	Close() error
}

// KV is one key/value pair returned by a query.
type KV struct {
	Key   string
	Value []byte
}

// QueryResponseMetadata accompanies a page of query results.
type QueryResponseMetadata struct {
	FetchedRecordsCount int32
	Bookmark            string
}

// ChaincodeEvent is an event attached to a committed transaction.
type ChaincodeEvent struct {
	TxID      string
	EventName string
	Payload   []byte
}
