package ledger

import (
	"encoding/base64"
	"encoding/json"
	"errors"

	"github.com/starford/worksledger/internal/checksum"
	"github.com/starford/worksledger/internal/query"
)

// ErrInvalidBookmark is returned for a bookmark that does not decode or was
// issued for a different query.
var ErrInvalidBookmark = errors.New("invalid bookmark")

// bookmarkData is the position encoded in a bookmark.
type bookmarkData struct {
	Query    string `json:"query"`
	AfterKey string `json:"after_key"`
}

// queryDigest identifies the selector a bookmark was issued for.
func queryDigest(sel query.Selector) string {
	return checksum.Sum([]byte(sel.String()))[:16]
}

// encodeBookmark encodes a position as a URL-safe base64 string.
// An empty position encodes as "".
func encodeBookmark(data bookmarkData) string {
	if data.AfterKey == "" {
		return ""
	}
	jsonBytes, err := json.Marshal(data)
	if err != nil {
		return ""
	}
	return base64.URLEncoding.EncodeToString(jsonBytes)
}

// decodeBookmark decodes a bookmark issued for the query with the given
// digest. An empty bookmark is the start of the results.
func decodeBookmark(bookmark, digest string) (bookmarkData, error) {
	if bookmark == "" {
		return bookmarkData{}, nil
	}

	decoded, err := base64.URLEncoding.DecodeString(bookmark)
	if err != nil {
		return bookmarkData{}, errors.Join(ErrInvalidBookmark, err)
	}

	var data bookmarkData
	if err := json.Unmarshal(decoded, &data); err != nil {
		return bookmarkData{}, errors.Join(ErrInvalidBookmark, err)
	}
	if data.AfterKey == "" {
		return bookmarkData{}, errors.Join(ErrInvalidBookmark, errors.New("bookmark has no position"))
	}
	if data.Query != digest {
		return bookmarkData{}, errors.Join(ErrInvalidBookmark, errors.New("bookmark belongs to another query"))
	}
	return data, nil
}
