package transform

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// stringID accepts both JSON strings and JSON numbers, since upstream has
// shipped identifiers as both. It always stores as text.
type stringID string

func (s *stringID) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" {
		*s = ""
		return nil
	}
	if strings.HasPrefix(trimmed, `"`) {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = stringID(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("identifier is neither string nor number: %s", trimmed)
	}
	*s = stringID(n.String())
	return nil
}

func (s stringID) empty() bool {
	return strings.TrimSpace(string(s)) == ""
}

// timestampLayouts are tried in order when parsing upstream date fields.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// parseTimestamp parses an upstream date string. An empty string parses to a
// nil time without error; a non-empty unparseable string is an error, which
// the row validator turns into a skip.
func parseTimestamp(value string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, value); err == nil {
			return &ts, nil
		}
	}
	// Some clients send epoch seconds as a string.
	if secs, err := strconv.ParseInt(value, 10, 64); err == nil && secs > 0 {
		ts := time.Unix(secs, 0).UTC()
		return &ts, nil
	}
	return nil, fmt.Errorf("unparseable timestamp %q", value)
}
