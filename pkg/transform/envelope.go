// Package transform turns raw snapshot payloads into relational rows and
// writes them into the inactive generation table through the store's
// generation-swap primitive.
package transform

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/ed-andre/nowrepsync/pkg/entities"
)

// ErrShape is returned when a payload matches none of the accepted envelope
// shapes.
var ErrShape = errors.New("unrecognized payload shape")

// NormalizeEnvelope extracts the row array from a raw payload. Upstream has
// shipped four shapes over time and all remain in the wild:
//
//	[ ... ]                       bare array
//	{"data": [ ... ]}             data envelope
//	{"<entity>": [ ... ]}         entity-keyed envelope
//	{"k1": [...], "k2": [...]}    map of arrays, concatenated in key order
//
// Anything else is ErrShape. A JSON null or an empty envelope normalizes to
// an empty slice, which downstream treats as the empty-data case.
func NormalizeEnvelope(entity entities.Entity, payload json.RawMessage) ([]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return []json.RawMessage{}, nil
	}

	if trimmed[0] == '[' {
		return decodeArray(trimmed)
	}
	if trimmed[0] != '{' {
		return nil, fmt.Errorf("%w: payload is neither array nor object", ErrShape)
	}

	var object map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &object); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrShape, err)
	}

	if inner, ok := object["data"]; ok {
		return decodeKeyedArray("data", inner)
	}
	if inner, ok := object[entity.String()]; ok {
		return decodeKeyedArray(entity.String(), inner)
	}

	// Map-of-arrays fallback: every value must be an array. Keys are sorted
	// so the concatenation order is stable across runs.
	keys := make([]string, 0, len(object))
	for key, value := range object {
		if !isArray(value) {
			return nil, fmt.Errorf("%w: object value %q is not an array", ErrShape, key)
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	rows := make([]json.RawMessage, 0)
	for _, key := range keys {
		part, err := decodeKeyedArray(key, object[key])
		if err != nil {
			return nil, err
		}
		rows = append(rows, part...)
	}
	return rows, nil
}

func decodeArray(raw json.RawMessage) ([]json.RawMessage, error) {
	var rows []json.RawMessage
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrShape, err)
	}
	if rows == nil {
		rows = []json.RawMessage{}
	}
	return rows, nil
}

func decodeKeyedArray(key string, raw json.RawMessage) ([]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(raw)
	if bytes.Equal(trimmed, []byte("null")) {
		return []json.RawMessage{}, nil
	}
	if !isArray(trimmed) {
		return nil, fmt.Errorf("%w: value under %q is not an array", ErrShape, key)
	}
	return decodeArray(trimmed)
}

func isArray(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '['
}
