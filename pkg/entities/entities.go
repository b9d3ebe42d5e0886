// Package entities provides type-safe constants and helpers for the datasets
// synced from the upstream portfolio API.
//
// This package is the single source of truth for entity names and everything
// derived from them: upstream endpoint paths, snapshot table names, the two
// generation table names, and the current-view name. Every dynamic identifier
// interpolated into SQL is derived from this allow-list, never from request
// input.
//
// Usage Example:
//
//	// In a workflow - iterate over entities in referential order
//	for _, entity := range entities.TransformOrder() {
//	    TransformEntity(ctx, entity.String())
//	}
//
//	// In an activity - validate external input
//	entity, err := entities.FromString(in.Entity)
//	if err != nil {
//	    return fmt.Errorf("invalid entity: %w", err)
//	}
//
// Thread Safety:
//
//	All functions and methods in this package are safe for concurrent use.
package entities

import (
	"fmt"
	"sort"
	"strings"
)

// Entity represents one logical dataset synced from the source API
// (e.g. boards, talents, boardstalents). The type prevents typos in table
// names from surfacing as runtime SQL errors.
//
// Entity values should be treated as immutable constants. Use the
// package-level constants rather than constructing Entity values directly.
type Entity string

// Core entity constants. When adding a new entity, add it here, to
// allEntities, to endpointPaths, and to transformOrder.
const (
	// Boards is the anchor entity: the validation gate probes it to decide
	// whether the source has usable data at all.
	Boards Entity = "boards"

	// Talents holds the talent profiles.
	Talents Entity = "talents"

	// BoardsTalents is the board<->talent junction.
	BoardsTalents Entity = "boardstalents"

	// BoardsPortfolios is the board<->portfolio junction.
	BoardsPortfolios Entity = "boardsportfolios"

	// TalentsPortfolios holds portfolios keyed by talent.
	TalentsPortfolios Entity = "talentsportfolios"

	// TalentsMeasurements holds per-talent measurement sheets.
	TalentsMeasurements Entity = "talentsmeasurements"

	// TalentsSocials holds per-talent social links.
	TalentsSocials Entity = "talentssocials"

	// PortfoliosMedia holds media items keyed by portfolio.
	PortfoliosMedia Entity = "portfoliosmedia"

	// MediaTags is the media<->tag junction.
	MediaTags Entity = "mediatags"
)

// allEntities contains the complete list of valid entities.
//
// IMPORTANT: when adding a new entity constant above, you MUST also add it to
// this slice. The package panics at initialization if the derived maps are
// inconsistent.
var allEntities = []Entity{
	Boards,
	Talents,
	BoardsTalents,
	BoardsPortfolios,
	TalentsPortfolios,
	TalentsMeasurements,
	TalentsSocials,
	PortfoliosMedia,
	MediaTags,
}

// endpointPaths maps each entity to its upstream GET path.
var endpointPaths = map[Entity]string{
	Boards:              "/boards",
	Talents:             "/talents",
	BoardsTalents:       "/boards/talents",
	BoardsPortfolios:    "/boards/portfolios",
	TalentsPortfolios:   "/talents/portfolios",
	TalentsMeasurements: "/talents/measurements",
	TalentsSocials:      "/talents/socials",
	PortfoliosMedia:     "/portfolios/media",
	MediaTags:           "/portfolios/media/tags",
}

// transformOrder is the fixed referential order for the transform stage.
// Junction entities come after both datasets they reference; this order is
// never parallelized.
var transformOrder = []Entity{
	Talents,
	TalentsMeasurements,
	TalentsPortfolios,
	Boards,
	BoardsTalents,
	BoardsPortfolios,
	PortfoliosMedia,
	MediaTags,
	TalentsSocials,
}

// entitySet is a pre-computed map for O(1) validation lookups.
var entitySet map[Entity]bool

func init() {
	entitySet = make(map[Entity]bool, len(allEntities))
	for _, e := range allEntities {
		entitySet[e] = true
	}

	// Catch developer errors at startup rather than in production.
	for _, e := range allEntities {
		if e == "" {
			panic("entities: empty entity name detected in allEntities")
		}
		if strings.ContainsAny(string(e), " _-") {
			panic(fmt.Sprintf("entities: entity name %q must be a bare lowercase word", e))
		}
		if _, ok := endpointPaths[e]; !ok {
			panic(fmt.Sprintf("entities: entity %q has no endpoint path", e))
		}
	}
	if len(transformOrder) != len(allEntities) {
		panic("entities: transformOrder must cover every entity exactly once")
	}
	seen := make(map[Entity]bool, len(transformOrder))
	for _, e := range transformOrder {
		if !entitySet[e] || seen[e] {
			panic(fmt.Sprintf("entities: transformOrder entry %q is unknown or duplicated", e))
		}
		seen[e] = true
	}
}

// String returns the entity name as a string.
func (e Entity) String() string {
	return string(e)
}

// EndpointPath returns the upstream API path for this entity.
func (e Entity) EndpointPath() string {
	return endpointPaths[e]
}

// SnapshotTable returns the append-only raw snapshot table for this entity.
//
// Naming Convention: {entity}_json
func (e Entity) SnapshotTable() string {
	return string(e) + "_json"
}

// GenerationTable returns one of the entity's two physical tables.
// Only generations 1 and 2 exist; anything else is an error so a corrupted
// ledger value can never reach SQL interpolation.
func (e Entity) GenerationTable(gen int) (string, error) {
	if gen != 1 && gen != 2 {
		return "", fmt.Errorf("invalid generation %d for entity %q", gen, e)
	}
	return fmt.Sprintf("%s_v%d", e, gen), nil
}

// CurrentView returns the read-facing view name that always points at the
// active generation table.
//
// Naming Convention: {entity}_current
func (e Entity) CurrentView() string {
	return string(e) + "_current"
}

// IsValid returns true if this entity is in the list of known entities.
// Use this to validate entity values that come from external sources.
func (e Entity) IsValid() bool {
	return entitySet[e]
}

// MarshalText implements encoding.TextMarshaler for JSON serialization.
func (e Entity) MarshalText() ([]byte, error) {
	return []byte(e), nil
}

// UnmarshalText implements encoding.TextUnmarshaler and validates the value.
func (e *Entity) UnmarshalText(text []byte) error {
	entity := Entity(text)
	if !entity.IsValid() {
		return fmt.Errorf("invalid entity: %q", text)
	}
	*e = entity
	return nil
}

// FromString converts a string to an Entity and validates it.
// This is the safe way to construct an Entity from external input.
func FromString(s string) (Entity, error) {
	entity := Entity(strings.ToLower(strings.TrimSpace(s)))
	if !entity.IsValid() {
		return "", fmt.Errorf("unknown entity %q, valid entities: %s", s, validEntitiesString())
	}
	return entity, nil
}

// MustFromString converts a string to an Entity, panicking if invalid.
// Only use this for hardcoded values.
func MustFromString(s string) Entity {
	entity, err := FromString(s)
	if err != nil {
		panic(err)
	}
	return entity
}

// All returns a copy of all valid entities, in declaration order.
func All() []Entity {
	result := make([]Entity, len(allEntities))
	copy(result, allEntities)
	return result
}

// TransformOrder returns a copy of the fixed referential transform order.
func TransformOrder() []Entity {
	result := make([]Entity, len(transformOrder))
	copy(result, transformOrder)
	return result
}

// AllStrings returns all entity names as strings.
func AllStrings() []string {
	result := make([]string, len(allEntities))
	for i, e := range allEntities {
		result[i] = e.String()
	}
	return result
}

// Count returns the number of entities in the system.
func Count() int {
	return len(allEntities)
}

// validEntitiesString returns a comma-separated list of valid entity names.
// Used for error messages.
func validEntitiesString() string {
	names := AllStrings()
	sort.Strings(names)
	return strings.Join(names, ", ")
}
