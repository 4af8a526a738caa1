// Package lead models the loosely-typed lead records that flow through the
// enrichment pipeline and resolves canonical values out of their
// heterogeneous schemas.
package lead

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"
)

// Record is an ordered collection of key→value string pairs. Producers use
// wildly different schemas (camelCase Apify exports, snake_case internal
// files, Title Case Apollo exports), so keys are opaque here. Column order is
// preserved so exports line up with the source file.
type Record struct {
	keys   []string
	values map[string]string
}

// NewRecord creates an empty record.
func NewRecord() *Record {
	return &Record{values: make(map[string]string)}
}

// Get returns the value for key and whether the key is present.
func (r *Record) Get(key string) (string, bool) {
	v, ok := r.values[key]
	return v, ok
}

// Set writes a value, appending the key to the column order if it is new.
func (r *Record) Set(key, value string) {
	if r.values == nil {
		r.values = make(map[string]string)
	}
	if _, exists := r.values[key]; !exists {
		r.keys = append(r.keys, key)
	}
	r.values[key] = value
}

// Keys returns the column order. The returned slice must not be mutated.
func (r *Record) Keys() []string {
	return r.keys
}

// Len returns the number of fields.
func (r *Record) Len() int {
	return len(r.keys)
}

// Clone returns a deep copy of the record.
func (r *Record) Clone() *Record {
	c := &Record{
		keys:   make([]string, len(r.keys)),
		values: make(map[string]string, len(r.values)),
	}
	copy(c.keys, r.keys)
	for k, v := range r.values {
		c.values[k] = v
	}
	return c
}

// UnmarshalJSON decodes a JSON object preserving key order. Non-string
// scalar values are stringified; nested objects and arrays are kept as raw
// JSON text.
func (r *Record) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return eris.Wrap(err, "lead: decode record")
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return eris.New("lead: record must be a JSON object")
	}

	r.keys = nil
	r.values = make(map[string]string)

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return eris.Wrap(err, "lead: decode record key")
		}
		key := keyTok.(string)

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return eris.Wrapf(err, "lead: decode record value for %q", key)
		}
		r.Set(key, rawToString(raw))
	}

	// Consume closing brace.
	if _, err := dec.Token(); err != nil {
		return eris.Wrap(err, "lead: decode record close")
	}
	return nil
}

// MarshalJSON encodes the record as a JSON object in column order.
func (r *Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, eris.Wrapf(err, "lead: marshal key %q", k)
		}
		vb, err := json.Marshal(r.values[k])
		if err != nil {
			return nil, eris.Wrapf(err, "lead: marshal value for %q", k)
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func rawToString(raw json.RawMessage) string {
	s := strings.TrimSpace(string(raw))
	if s == "null" {
		return ""
	}
	if len(s) >= 2 && s[0] == '"' {
		var v string
		if err := json.Unmarshal(raw, &v); err == nil {
			return v
		}
	}
	// Numbers, booleans, nested structures: keep the raw text.
	return s
}
