package pgstore

import (
	"fmt"

	"github.com/ed-andre/nowrepsync/pkg/entities"
)

// generationColumns holds the relational column definitions for each entity's
// generation tables. Required fields are NOT NULL; the transformer rejects
// rows missing them before any INSERT is attempted, so a NOT NULL violation
// here indicates a programming error rather than bad source data.
//
// Generation tables deliberately carry no cross-entity foreign keys: each
// entity flips generations independently, so a constraint into another
// entity's physical table would point at the wrong generation half the time.
// Referential integrity across entities is the source API's contract.
var generationColumns = map[entities.Entity]string{
	entities.Boards: `
		id TEXT NOT NULL,
		title TEXT NOT NULL,
		description TEXT,
		cover_image TEXT`,
	entities.Talents: `
		id TEXT NOT NULL,
		first_name TEXT NOT NULL,
		last_name TEXT NOT NULL,
		talent_type TEXT,
		bio TEXT,
		gender TEXT,
		pronouns TEXT,
		profile_image TEXT`,
	entities.BoardsTalents: `
		id TEXT NOT NULL,
		board_id TEXT NOT NULL,
		talent_id TEXT NOT NULL`,
	entities.BoardsPortfolios: `
		id TEXT NOT NULL,
		board_id TEXT NOT NULL,
		portfolio_id TEXT NOT NULL,
		talent_id TEXT`,
	entities.TalentsPortfolios: `
		id TEXT NOT NULL,
		talent_id TEXT NOT NULL,
		title TEXT NOT NULL,
		description TEXT,
		is_default BOOLEAN NOT NULL DEFAULT FALSE,
		category TEXT,
		cover_image TEXT`,
	entities.TalentsMeasurements: `
		id TEXT NOT NULL,
		talent_id TEXT NOT NULL,
		height_cm DOUBLE PRECISION,
		weight_kg DOUBLE PRECISION,
		bust_cm DOUBLE PRECISION,
		waist_cm DOUBLE PRECISION,
		hips_cm DOUBLE PRECISION,
		shoe_size_eu DOUBLE PRECISION,
		eye_color TEXT,
		hair_color TEXT,
		updated_at TIMESTAMPTZ`,
	entities.TalentsSocials: `
		id TEXT NOT NULL,
		talent_id TEXT NOT NULL,
		platform TEXT NOT NULL,
		username TEXT,
		url TEXT`,
	entities.PortfoliosMedia: `
		id TEXT NOT NULL,
		portfolio_id TEXT NOT NULL,
		media_id TEXT,
		media_type TEXT,
		url TEXT NOT NULL,
		filename TEXT,
		sort_order INTEGER,
		width INTEGER,
		height INTEGER,
		caption TEXT`,
	entities.MediaTags: `
		id TEXT NOT NULL,
		media_id TEXT NOT NULL,
		tag_id TEXT NOT NULL,
		slug TEXT`,
}

// createGenerationTableSQL returns the CREATE TABLE statement for one of the
// entity's two physical generation tables.
func createGenerationTableSQL(entity entities.Entity, gen int) (string, error) {
	cols, ok := generationColumns[entity]
	if !ok {
		return "", fmt.Errorf("no column definitions for entity %q", entity)
	}
	table, err := entity.GenerationTable(gen)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s\n)", table, cols), nil
}

// createSnapshotTableSQL returns the CREATE TABLE statement for the entity's
// append-only raw snapshot table.
func createSnapshotTableSQL(entity entities.Entity) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id BIGSERIAL PRIMARY KEY,
		payload JSONB NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`, entity.SnapshotTable())
}

// createLedgerTableSQL returns the CREATE TABLE statement for the version
// ledger. One row per entity, updated in place.
func createLedgerTableSQL() string {
	return `CREATE TABLE IF NOT EXISTS sync_metadata (
		entity_name TEXT PRIMARY KEY,
		active_version INTEGER NOT NULL,
		backup_version INTEGER NOT NULL DEFAULT 0,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		CHECK (active_version IN (1, 2)),
		CHECK (backup_version IN (0, 1, 2)),
		CHECK (backup_version = 0 OR backup_version <> active_version)
	)`
}

// recreateViewSQL returns the statements that repoint the entity's current
// view at the given generation table. The view name and table name both come
// from the entity allow-list, never from request input.
func recreateViewSQL(entity entities.Entity, gen int) ([]string, error) {
	table, err := entity.GenerationTable(gen)
	if err != nil {
		return nil, err
	}
	return []string{
		fmt.Sprintf("DROP VIEW IF EXISTS %s", entity.CurrentView()),
		fmt.Sprintf("CREATE VIEW %s AS SELECT * FROM %s", entity.CurrentView(), table),
	}, nil
}
