package transform

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ed-andre/nowrepsync/pkg/entities"
)

func TestNormalizeBareArray(t *testing.T) {
	rows, err := NormalizeEnvelope(entities.Boards, json.RawMessage(`[{"id":"1"},{"id":"2"}]`))
	require.NoError(t, err)
	assert.Len(t, rows, 2)
	assert.JSONEq(t, `{"id":"1"}`, string(rows[0]))
}

func TestNormalizeDataEnvelope(t *testing.T) {
	rows, err := NormalizeEnvelope(entities.Talents, json.RawMessage(`{"data":[{"id":"t1"}]}`))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.JSONEq(t, `{"id":"t1"}`, string(rows[0]))
}

func TestNormalizeEntityKeyedEnvelope(t *testing.T) {
	rows, err := NormalizeEnvelope(entities.MediaTags, json.RawMessage(`{"mediatags":[{"id":"m1"},{"id":"m2"}]}`))
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestNormalizeMapOfArrays(t *testing.T) {
	payload := json.RawMessage(`{"page2":[{"id":"3"}],"page1":[{"id":"1"},{"id":"2"}]}`)
	rows, err := NormalizeEnvelope(entities.Boards, payload)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	// Keys concatenate in sorted order.
	assert.JSONEq(t, `{"id":"1"}`, string(rows[0]))
	assert.JSONEq(t, `{"id":"3"}`, string(rows[2]))
}

func TestNormalizeDataKeyWinsOverEntityKey(t *testing.T) {
	payload := json.RawMessage(`{"data":[{"id":"d"}],"boards":[{"id":"b"}]}`)
	rows, err := NormalizeEnvelope(entities.Boards, payload)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.JSONEq(t, `{"id":"d"}`, string(rows[0]))
}

func TestNormalizeEmptyInputs(t *testing.T) {
	for _, payload := range []string{`[]`, `null`, `{"data":[]}`, `{"data":null}`, ``} {
		rows, err := NormalizeEnvelope(entities.Boards, json.RawMessage(payload))
		require.NoError(t, err, "payload %q", payload)
		assert.Empty(t, rows, "payload %q", payload)
	}
}

func TestNormalizeRejectsUnknownShapes(t *testing.T) {
	for _, payload := range []string{
		`"just a string"`,
		`42`,
		`{"data":{"id":"1"}}`,
		`{"boards":{"id":"1"}}`,
		`{"meta":{"count":1}}`,
		`{"page1":[{"id":"1"}],"meta":{"count":1}}`,
	} {
		_, err := NormalizeEnvelope(entities.Boards, json.RawMessage(payload))
		require.Error(t, err, "payload %q", payload)
		assert.True(t, errors.Is(err, ErrShape), "payload %q should be ErrShape, got %v", payload, err)
	}
}
