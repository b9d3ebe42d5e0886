package entities

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestEntityNames verifies the derived table, view and endpoint names.
func TestEntityNames(t *testing.T) {
	tests := []struct {
		name         string
		entity       Entity
		endpoint     string
		snapshot     string
		generationV1 string
		currentView  string
	}{
		{
			name:         "Boards entity",
			entity:       Boards,
			endpoint:     "/boards",
			snapshot:     "boards_json",
			generationV1: "boards_v1",
			currentView:  "boards_current",
		},
		{
			name:         "Talents entity",
			entity:       Talents,
			endpoint:     "/talents",
			snapshot:     "talents_json",
			generationV1: "talents_v1",
			currentView:  "talents_current",
		},
		{
			name:         "BoardsTalents junction",
			entity:       BoardsTalents,
			endpoint:     "/boards/talents",
			snapshot:     "boardstalents_json",
			generationV1: "boardstalents_v1",
			currentView:  "boardstalents_current",
		},
		{
			name:         "MediaTags junction",
			entity:       MediaTags,
			endpoint:     "/portfolios/media/tags",
			snapshot:     "mediatags_json",
			generationV1: "mediatags_v1",
			currentView:  "mediatags_current",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.endpoint, tt.entity.EndpointPath())
			assert.Equal(t, tt.snapshot, tt.entity.SnapshotTable())
			assert.Equal(t, tt.currentView, tt.entity.CurrentView())
			assert.True(t, tt.entity.IsValid())

			v1, err := tt.entity.GenerationTable(1)
			require.NoError(t, err)
			assert.Equal(t, tt.generationV1, v1)
		})
	}
}

// TestGenerationTableRejectsInvalidGenerations guards the SQL interpolation
// path: only generations 1 and 2 may ever produce a table name.
func TestGenerationTableRejectsInvalidGenerations(t *testing.T) {
	for _, gen := range []int{-1, 0, 3, 42} {
		_, err := Boards.GenerationTable(gen)
		require.Error(t, err, "generation %d must be rejected", gen)
	}

	v2, err := Boards.GenerationTable(2)
	require.NoError(t, err)
	assert.Equal(t, "boards_v2", v2)
}

// TestFromString verifies validation of external input.
func TestFromString(t *testing.T) {
	entity, err := FromString("boards")
	require.NoError(t, err)
	assert.Equal(t, Boards, entity)

	// Case and whitespace are normalized before matching.
	entity, err = FromString("  BoardsTalents ")
	require.NoError(t, err)
	assert.Equal(t, BoardsTalents, entity)

	_, err = FromString("users")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown entity")

	_, err = FromString("boards_v1")
	require.Error(t, err, "derived table names are not entities")
}

// TestTransformOrderCoversAllEntities verifies the referential order is a
// permutation of All() with junctions after their referenced datasets.
func TestTransformOrderCoversAllEntities(t *testing.T) {
	order := TransformOrder()
	require.Len(t, order, Count())

	pos := make(map[Entity]int, len(order))
	for i, e := range order {
		pos[e] = i
	}
	for _, e := range All() {
		_, ok := pos[e]
		require.True(t, ok, "entity %s missing from transform order", e)
	}

	// Junctions must come after both sides they reference.
	assert.Greater(t, pos[BoardsTalents], pos[Boards])
	assert.Greater(t, pos[BoardsTalents], pos[Talents])
	assert.Greater(t, pos[BoardsPortfolios], pos[TalentsPortfolios])
	assert.Greater(t, pos[MediaTags], pos[PortfoliosMedia])
	assert.Greater(t, pos[TalentsMeasurements], pos[Talents])
}

// TestEntityJSONRoundTrip verifies marshal/unmarshal behavior including the
// rejection of unknown values.
func TestEntityJSONRoundTrip(t *testing.T) {
	data, err := json.Marshal(PortfoliosMedia)
	require.NoError(t, err)
	assert.Equal(t, `"portfoliosmedia"`, string(data))

	var e Entity
	require.NoError(t, json.Unmarshal([]byte(`"talents"`), &e))
	assert.Equal(t, Talents, e)

	err = json.Unmarshal([]byte(`"nope"`), &e)
	require.Error(t, err)
}

// TestAllReturnsCopy ensures callers cannot mutate the internal slice.
func TestAllReturnsCopy(t *testing.T) {
	first := All()
	first[0] = Entity("mutated")
	assert.Equal(t, Boards, All()[0])

	order := TransformOrder()
	order[0] = Entity("mutated")
	assert.Equal(t, Talents, TransformOrder()[0])
}
