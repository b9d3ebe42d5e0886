package transform

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ed-andre/nowrepsync/pkg/entities"
)

func TestCodecsCoverAllEntities(t *testing.T) {
	for _, entity := range entities.All() {
		codec, err := codecFor(entity)
		require.NoError(t, err, "entity %s", entity)
		assert.NotEmpty(t, codec.columns)
		assert.NotNil(t, codec.parse)
	}
}

func TestBoardsParseValidRow(t *testing.T) {
	codec, _ := codecFor(entities.Boards)
	args, err := codec.parse(json.RawMessage(`{"id":"b1","title":"Main","description":"d"}`))
	require.NoError(t, err)
	require.Len(t, args, len(codec.columns))
	assert.Equal(t, "b1", args[0])
	assert.Equal(t, "Main", args[1])
}

func TestBoardsParseSkipsMissingRequired(t *testing.T) {
	codec, _ := codecFor(entities.Boards)

	_, err := codec.parse(json.RawMessage(`{"title":"no id"}`))
	assert.Error(t, err)

	_, err = codec.parse(json.RawMessage(`{"id":"b1"}`))
	assert.Error(t, err)
}

func TestNumericIdentifiersCoerceToText(t *testing.T) {
	codec, _ := codecFor(entities.BoardsTalents)
	args, err := codec.parse(json.RawMessage(`{"id":101,"board_id":7,"talent_id":"t9"}`))
	require.NoError(t, err)
	assert.Equal(t, "101", args[0])
	assert.Equal(t, "7", args[1])
	assert.Equal(t, "t9", args[2])
}

func TestMeasurementsParseDates(t *testing.T) {
	codec, _ := codecFor(entities.TalentsMeasurements)

	args, err := codec.parse(json.RawMessage(`{"id":"m1","talent_id":"t1","height_cm":180.5,"updated_at":"2026-08-01T10:00:00Z"}`))
	require.NoError(t, err)
	ts, ok := args[len(args)-1].(*time.Time)
	require.True(t, ok)
	require.NotNil(t, ts)
	assert.Equal(t, 2026, ts.Year())

	// Missing date is fine, it stores NULL.
	args, err = codec.parse(json.RawMessage(`{"id":"m2","talent_id":"t1"}`))
	require.NoError(t, err)
	ts, ok = args[len(args)-1].(*time.Time)
	require.True(t, ok)
	assert.Nil(t, ts)
}

func TestMeasurementsSkipUnparseableDate(t *testing.T) {
	codec, _ := codecFor(entities.TalentsMeasurements)
	_, err := codec.parse(json.RawMessage(`{"id":"m1","talent_id":"t1","updated_at":"not a date"}`))
	assert.Error(t, err)
}

func TestParseTimestampLayouts(t *testing.T) {
	for _, value := range []string{
		"2026-08-01T10:00:00Z",
		"2026-08-01T10:00:00.123Z",
		"2026-08-01 10:00:00",
		"2026-08-01",
	} {
		ts, err := parseTimestamp(value)
		require.NoError(t, err, "value %q", value)
		require.NotNil(t, ts)
		assert.Equal(t, time.August, ts.Month())
	}

	ts, err := parseTimestamp("")
	require.NoError(t, err)
	assert.Nil(t, ts)
}

func TestJunctionCodecsRequireBothSides(t *testing.T) {
	tests := []struct {
		entity entities.Entity
		row    string
	}{
		{entities.BoardsTalents, `{"id":"1","board_id":"b1"}`},
		{entities.BoardsPortfolios, `{"id":"1","portfolio_id":"p1"}`},
		{entities.MediaTags, `{"id":"1","media_id":"m1"}`},
	}
	for _, tt := range tests {
		codec, _ := codecFor(tt.entity)
		_, err := codec.parse(json.RawMessage(tt.row))
		assert.Error(t, err, "entity %s row %s", tt.entity, tt.row)
	}
}

func TestSocialsRequirePlatform(t *testing.T) {
	codec, _ := codecFor(entities.TalentsSocials)
	_, err := codec.parse(json.RawMessage(`{"id":"s1","talent_id":"t1"}`))
	assert.Error(t, err)

	args, err := codec.parse(json.RawMessage(`{"id":"s1","talent_id":"t1","platform":"instagram"}`))
	require.NoError(t, err)
	assert.Equal(t, "instagram", args[2])
}

func TestBuildInsertSQL(t *testing.T) {
	sql := buildInsertSQL("boards_v1", []string{"id", "title"})
	assert.Equal(t, "INSERT INTO boards_v1 (id, title) VALUES ($1, $2)", sql)
}
