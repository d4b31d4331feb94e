// Package query builds rich-query selectors over stored Works records.
//
// A Selector is a structured filter that serializes to the CouchDB-style
// form {"selector":{"field":value}}. Values are always emitted through the
// JSON encoder, never spliced into query text.
package query

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"regexp"
)

// AuthorField is the record field holding the author name.
const AuthorField = "author"

var fieldRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Condition is an equality match of a record field against a scalar value.
type Condition struct {
	Field string
	Value any
}

// Selector is a conjunction of conditions, kept in insertion order.
type Selector struct {
	Conditions []Condition
}

// Eq returns a condition matching records whose field equals value.
func Eq(field string, value any) Condition {
	return Condition{Field: field, Value: value}
}

// And combines conditions into a selector.
func And(conds ...Condition) Selector {
	return Selector{Conditions: conds}
}

// BuildAuthorFilter returns a selector matching records with the given author.
func BuildAuthorFilter(author string) Selector {
	return And(Eq(AuthorField, author))
}

// Validate checks field names and value types.
func (s Selector) Validate() error {
	for _, c := range s.Conditions {
		if !fieldRe.MatchString(c.Field) {
			return fmt.Errorf("query: invalid field name %q", c.Field)
		}
		switch c.Value.(type) {
		case string, bool, float64, int, int32, int64:
		default:
			return fmt.Errorf("query: unsupported value type %T for field %q", c.Value, c.Field)
		}
	}
	return nil
}

// MarshalJSON emits {"selector":{...}} with conditions in insertion order.
func (s Selector) MarshalJSON() ([]byte, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	buf.WriteString(`{"selector":{`)
	for i, c := range s.Conditions {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(c.Field)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(c.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteString(`}}`)
	return buf.Bytes(), nil
}

// String returns the rich-query string form of s, or "" if s is invalid.
func (s Selector) String() string {
	data, err := s.MarshalJSON()
	if err != nil {
		return ""
	}
	return string(data)
}

// Parse reads a rich-query string. It accepts implicit equality
// ("field": scalar) and explicit {"$eq": scalar} conditions.
func Parse(raw string) (Selector, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.UseNumber()

	var doc struct {
		Selector json.RawMessage `json:"selector"`
	}
	if err := dec.Decode(&doc); err != nil {
		return Selector{}, fmt.Errorf("query: parse: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return Selector{}, errors.New("query: parse: trailing data")
	}
	if len(doc.Selector) == 0 {
		return Selector{}, errors.New("query: parse: missing selector")
	}

	fields, err := orderedObject(doc.Selector)
	if err != nil {
		return Selector{}, err
	}

	sel := Selector{Conditions: make([]Condition, 0, len(fields))}
	for _, f := range fields {
		v, err := scalar(f.raw)
		if err != nil {
			return Selector{}, fmt.Errorf("query: field %q: %w", f.name, err)
		}
		sel.Conditions = append(sel.Conditions, Condition{Field: f.name, Value: v})
	}
	if err := sel.Validate(); err != nil {
		return Selector{}, err
	}
	return sel, nil
}

type rawField struct {
	name string
	raw  json.RawMessage
}

// orderedObject splits a JSON object into its members, preserving order.
func orderedObject(data json.RawMessage) ([]rawField, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("query: selector: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, errors.New("query: selector must be an object")
	}
	var out []rawField
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("query: selector: %w", err)
		}
		name, _ := tok.(string)
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("query: selector: %w", err)
		}
		out = append(out, rawField{name: name, raw: raw})
	}
	return out, nil
}

// scalar decodes a condition value, unwrapping an {"$eq": v} operator.
func scalar(raw json.RawMessage) (any, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var op map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &op); err != nil {
			return nil, err
		}
		eq, ok := op["$eq"]
		if !ok || len(op) != 1 {
			return nil, errors.New("only the $eq operator is supported")
		}
		trimmed = bytes.TrimSpace(eq)
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	switch x := v.(type) {
	case string, bool:
		return x, nil
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i, nil
		}
		f, err := x.Float64()
		if err != nil {
			return nil, err
		}
		return f, nil
	default:
		return nil, fmt.Errorf("unsupported value %s", string(trimmed))
	}
}
