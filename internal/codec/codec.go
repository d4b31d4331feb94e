// Package codec converts Works records to and from their ledger value form.
package codec

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"unicode/utf8"

	"github.com/starford/worksledger/internal/apperr"
	"github.com/starford/worksledger/internal/models"
)

// Validate reports whether w has a canonical form that decodes back to w.
// Strings must be valid UTF-8 and a set pressDate must be a real date.
func Validate(w models.Works) error {
	fields := []struct {
		name  string
		value string
	}{
		{"title", w.Title},
		{"author", w.Author},
		{"press", w.Press},
		{"status", w.Status},
	}
	for _, f := range fields {
		if !utf8.ValidString(f.value) {
			return apperr.New(apperr.ErrMalformedRecord, "works %s is not valid UTF-8", f.name)
		}
	}
	if !w.PressDate.IsZero() && !w.PressDate.Valid() {
		return apperr.New(apperr.ErrMalformedRecord, "works pressDate %d-%d-%d is not a calendar date",
			w.PressDate.Year, int(w.PressDate.Month), w.PressDate.Day)
	}
	return nil
}

// Encode returns the canonical JSON form of w. Records that Validate
// rejects are ErrMalformedRecord and are never encoded.
func Encode(w models.Works) ([]byte, error) {
	if err := Validate(w); err != nil {
		return nil, err
	}
	data, err := json.Marshal(w)
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrMalformedRecord, err, "encode works")
	}
	return data, nil
}

// Decode parses a ledger value into a Works record.
// Anything other than a single JSON object with known fields is ErrMalformedRecord.
func Decode(data []byte) (models.Works, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return models.Works{}, apperr.New(apperr.ErrMalformedRecord, "value is not a JSON object")
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.DisallowUnknownFields()

	var w models.Works
	if err := dec.Decode(&w); err != nil {
		return models.Works{}, apperr.Wrap(apperr.ErrMalformedRecord, err, "decode works")
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return models.Works{}, apperr.New(apperr.ErrMalformedRecord, "trailing data after works record")
	}
	return w, nil
}
