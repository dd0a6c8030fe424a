package skill

import (
	"fmt"
	"strings"
)

// defaultTableTitle keys tables stored without a title.
const defaultTableTitle = "default"

// StatLine is one matching row of a stats table.
type StatLine struct {
	Modifier   string         `json:"modifier"`
	Stat       string         `json:"stat"`
	Values     map[string]any `json:"values"`
	SkillLevel int            `json:"skillLevel"`
	// AtLevel is Values["level<SkillLevel>"] when the row has that column.
	AtLevel any `json:"atLevel,omitempty"`
}

// TableResult holds every row of one table matching the requested tier.
type TableResult struct {
	Modifier   Tier       `json:"modifier"`
	Stats      []StatLine `json:"stats"`
	SkillLevel int        `json:"skillLevel"`
}

// Calculate selects the rows of each table in rec whose modifier contains tier
// (case-insensitive) and returns them keyed by table title. Tables without a
// matching row are omitted.
//
// Postcondition: returns nil only when rec has no tables.
func Calculate(rec *Record, tier Tier, level int) map[string]TableResult {
	if rec == nil || len(rec.Tables) == 0 {
		return nil
	}
	needle := strings.ToLower(string(tier))
	levelKey := fmt.Sprintf("level%d", level)

	out := make(map[string]TableResult)
	for _, table := range rec.Tables {
		var stats []StatLine
		for _, row := range table.Rows {
			if row.Modifier == "" || !strings.Contains(strings.ToLower(row.Modifier), needle) {
				continue
			}
			values := make(map[string]any, len(row.Values))
			for k, v := range row.Values {
				if truthy(v) {
					values[k] = v
				}
			}
			stats = append(stats, StatLine{
				Modifier:   row.Modifier,
				Stat:       row.Stat,
				Values:     values,
				SkillLevel: level,
				AtLevel:    values[levelKey],
			})
		}
		if len(stats) == 0 {
			continue
		}
		title := table.Title
		if title == "" {
			title = defaultTableTitle
		}
		out[title] = TableResult{Modifier: tier, Stats: stats, SkillLevel: level}
	}
	return out
}

// truthy reports whether v carries a displayable value.
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return t != ""
	case bool:
		return t
	case int:
		return t != 0
	case int64:
		return t != 0
	case float64:
		return t != 0
	default:
		return true
	}
}
