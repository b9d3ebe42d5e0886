package transform

import (
	"encoding/json"
	"fmt"

	"github.com/ed-andre/nowrepsync/pkg/entities"
)

// rowCodec decodes one entity's raw JSON rows into insert arguments. parse
// returns an error for rows that fail validation; the transformer skips those
// rows instead of failing the batch.
type rowCodec struct {
	columns []string
	parse   func(raw json.RawMessage) ([]any, error)
}

// codecFor returns the codec for the entity.
func codecFor(entity entities.Entity) (rowCodec, error) {
	codec, ok := codecs[entity]
	if !ok {
		return rowCodec{}, fmt.Errorf("no row codec for entity %q", entity)
	}
	return codec, nil
}

var codecs = map[entities.Entity]rowCodec{
	entities.Boards: {
		columns: []string{"id", "title", "description", "cover_image"},
		parse: func(raw json.RawMessage) ([]any, error) {
			var row struct {
				ID          stringID `json:"id"`
				Title       string   `json:"title"`
				Description *string  `json:"description"`
				CoverImage  *string  `json:"cover_image"`
			}
			if err := json.Unmarshal(raw, &row); err != nil {
				return nil, err
			}
			if row.ID.empty() {
				return nil, fmt.Errorf("missing id")
			}
			if row.Title == "" {
				return nil, fmt.Errorf("missing title")
			}
			return []any{string(row.ID), row.Title, row.Description, row.CoverImage}, nil
		},
	},

	entities.Talents: {
		columns: []string{"id", "first_name", "last_name", "talent_type", "bio", "gender", "pronouns", "profile_image"},
		parse: func(raw json.RawMessage) ([]any, error) {
			var row struct {
				ID           stringID `json:"id"`
				FirstName    string   `json:"first_name"`
				LastName     string   `json:"last_name"`
				TalentType   *string  `json:"talent_type"`
				Bio          *string  `json:"bio"`
				Gender       *string  `json:"gender"`
				Pronouns     *string  `json:"pronouns"`
				ProfileImage *string  `json:"profile_image"`
			}
			if err := json.Unmarshal(raw, &row); err != nil {
				return nil, err
			}
			if row.ID.empty() {
				return nil, fmt.Errorf("missing id")
			}
			if row.FirstName == "" {
				return nil, fmt.Errorf("missing first_name")
			}
			if row.LastName == "" {
				return nil, fmt.Errorf("missing last_name")
			}
			return []any{string(row.ID), row.FirstName, row.LastName, row.TalentType, row.Bio, row.Gender, row.Pronouns, row.ProfileImage}, nil
		},
	},

	entities.BoardsTalents: {
		columns: []string{"id", "board_id", "talent_id"},
		parse: func(raw json.RawMessage) ([]any, error) {
			var row struct {
				ID       stringID `json:"id"`
				BoardID  stringID `json:"board_id"`
				TalentID stringID `json:"talent_id"`
			}
			if err := json.Unmarshal(raw, &row); err != nil {
				return nil, err
			}
			if row.ID.empty() || row.BoardID.empty() || row.TalentID.empty() {
				return nil, fmt.Errorf("missing id, board_id or talent_id")
			}
			return []any{string(row.ID), string(row.BoardID), string(row.TalentID)}, nil
		},
	},

	entities.BoardsPortfolios: {
		columns: []string{"id", "board_id", "portfolio_id", "talent_id"},
		parse: func(raw json.RawMessage) ([]any, error) {
			var row struct {
				ID          stringID `json:"id"`
				BoardID     stringID `json:"board_id"`
				PortfolioID stringID `json:"portfolio_id"`
				TalentID    stringID `json:"talent_id"`
			}
			if err := json.Unmarshal(raw, &row); err != nil {
				return nil, err
			}
			if row.ID.empty() || row.BoardID.empty() || row.PortfolioID.empty() {
				return nil, fmt.Errorf("missing id, board_id or portfolio_id")
			}
			return []any{string(row.ID), string(row.BoardID), string(row.PortfolioID), nullableID(row.TalentID)}, nil
		},
	},

	entities.TalentsPortfolios: {
		columns: []string{"id", "talent_id", "title", "description", "is_default", "category", "cover_image"},
		parse: func(raw json.RawMessage) ([]any, error) {
			var row struct {
				ID          stringID `json:"id"`
				TalentID    stringID `json:"talent_id"`
				Title       string   `json:"title"`
				Description *string  `json:"description"`
				IsDefault   bool     `json:"is_default"`
				Category    *string  `json:"category"`
				CoverImage  *string  `json:"cover_image"`
			}
			if err := json.Unmarshal(raw, &row); err != nil {
				return nil, err
			}
			if row.ID.empty() || row.TalentID.empty() {
				return nil, fmt.Errorf("missing id or talent_id")
			}
			if row.Title == "" {
				return nil, fmt.Errorf("missing title")
			}
			return []any{string(row.ID), string(row.TalentID), row.Title, row.Description, row.IsDefault, row.Category, row.CoverImage}, nil
		},
	},

	entities.TalentsMeasurements: {
		columns: []string{"id", "talent_id", "height_cm", "weight_kg", "bust_cm", "waist_cm", "hips_cm", "shoe_size_eu", "eye_color", "hair_color", "updated_at"},
		parse: func(raw json.RawMessage) ([]any, error) {
			var row struct {
				ID         stringID `json:"id"`
				TalentID   stringID `json:"talent_id"`
				HeightCM   *float64 `json:"height_cm"`
				WeightKG   *float64 `json:"weight_kg"`
				BustCM     *float64 `json:"bust_cm"`
				WaistCM    *float64 `json:"waist_cm"`
				HipsCM     *float64 `json:"hips_cm"`
				ShoeSizeEU *float64 `json:"shoe_size_eu"`
				EyeColor   *string  `json:"eye_color"`
				HairColor  *string  `json:"hair_color"`
				UpdatedAt  string   `json:"updated_at"`
			}
			if err := json.Unmarshal(raw, &row); err != nil {
				return nil, err
			}
			if row.ID.empty() || row.TalentID.empty() {
				return nil, fmt.Errorf("missing id or talent_id")
			}
			updatedAt, err := parseTimestamp(row.UpdatedAt)
			if err != nil {
				return nil, err
			}
			return []any{string(row.ID), string(row.TalentID), row.HeightCM, row.WeightKG, row.BustCM, row.WaistCM, row.HipsCM, row.ShoeSizeEU, row.EyeColor, row.HairColor, updatedAt}, nil
		},
	},

	entities.TalentsSocials: {
		columns: []string{"id", "talent_id", "platform", "username", "url"},
		parse: func(raw json.RawMessage) ([]any, error) {
			var row struct {
				ID       stringID `json:"id"`
				TalentID stringID `json:"talent_id"`
				Platform string   `json:"platform"`
				Username *string  `json:"username"`
				URL      *string  `json:"url"`
			}
			if err := json.Unmarshal(raw, &row); err != nil {
				return nil, err
			}
			if row.ID.empty() || row.TalentID.empty() {
				return nil, fmt.Errorf("missing id or talent_id")
			}
			if row.Platform == "" {
				return nil, fmt.Errorf("missing platform")
			}
			return []any{string(row.ID), string(row.TalentID), row.Platform, row.Username, row.URL}, nil
		},
	},

	entities.PortfoliosMedia: {
		columns: []string{"id", "portfolio_id", "media_id", "media_type", "url", "filename", "sort_order", "width", "height", "caption"},
		parse: func(raw json.RawMessage) ([]any, error) {
			var row struct {
				ID          stringID `json:"id"`
				PortfolioID stringID `json:"portfolio_id"`
				MediaID     stringID `json:"media_id"`
				MediaType   *string  `json:"media_type"`
				URL         string   `json:"url"`
				Filename    *string  `json:"filename"`
				SortOrder   *int     `json:"sort_order"`
				Width       *int     `json:"width"`
				Height      *int     `json:"height"`
				Caption     *string  `json:"caption"`
			}
			if err := json.Unmarshal(raw, &row); err != nil {
				return nil, err
			}
			if row.ID.empty() || row.PortfolioID.empty() {
				return nil, fmt.Errorf("missing id or portfolio_id")
			}
			if row.URL == "" {
				return nil, fmt.Errorf("missing url")
			}
			return []any{string(row.ID), string(row.PortfolioID), nullableID(row.MediaID), row.MediaType, row.URL, row.Filename, row.SortOrder, row.Width, row.Height, row.Caption}, nil
		},
	},

	entities.MediaTags: {
		columns: []string{"id", "media_id", "tag_id", "slug"},
		parse: func(raw json.RawMessage) ([]any, error) {
			var row struct {
				ID      stringID `json:"id"`
				MediaID stringID `json:"media_id"`
				TagID   stringID `json:"tag_id"`
				Slug    *string  `json:"slug"`
			}
			if err := json.Unmarshal(raw, &row); err != nil {
				return nil, err
			}
			if row.ID.empty() || row.MediaID.empty() || row.TagID.empty() {
				return nil, fmt.Errorf("missing id, media_id or tag_id")
			}
			return []any{string(row.ID), string(row.MediaID), string(row.TagID), row.Slug}, nil
		},
	},
}

// nullableID converts an optional identifier to a driver argument.
func nullableID(id stringID) any {
	if id.empty() {
		return nil
	}
	return string(id)
}
