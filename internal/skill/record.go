// Package skill turns free-text weapon skill names into computed value tables
// drawn from the skill stats reference data.
package skill

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Record is the reference data for one skill type, e.g. "Might".
type Record struct {
	Name        string  `json:"name" yaml:"name"`
	Description string  `json:"description" yaml:"description"`
	Notes       string  `json:"notes,omitempty" yaml:"notes,omitempty"`
	Tables      []Table `json:"tables" yaml:"tables"`
}

// Summary returns the descriptive part of the record without its tables.
func (r *Record) Summary() Summary {
	return Summary{Name: r.Name, Description: r.Description, Notes: r.Notes}
}

// Summary is the subset of a Record attached to an enriched skill.
type Summary struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Notes       string `json:"notes,omitempty"`
}

// Table is a titled set of modifier/stat rows.
type Table struct {
	Title string `json:"title" yaml:"title"`
	Rows  []Row  `json:"rows" yaml:"rows"`
}

// Row is a single modifier/stat line. Stored documents are flat objects such as
// {"modifier": "Small", "stat": "ATK", "level10": "3%"}; every key other than
// modifier and stat is collected into Values.
type Row struct {
	Modifier string
	Stat     string
	Values   map[string]any
}

// UnmarshalJSON decodes a flat row document.
func (r *Row) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decoding row: %w", err)
	}
	return r.fromMap(raw)
}

// MarshalJSON encodes the row back into its flat document form.
func (r Row) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.flatten())
}

// UnmarshalYAML decodes a flat row from a YAML (or JSON) content file.
func (r *Row) UnmarshalYAML(node *yaml.Node) error {
	var raw map[string]any
	if err := node.Decode(&raw); err != nil {
		return fmt.Errorf("decoding row: %w", err)
	}
	return r.fromMap(raw)
}

// MarshalYAML encodes the row in its flat form.
func (r Row) MarshalYAML() (any, error) {
	return r.flatten(), nil
}

func (r *Row) fromMap(raw map[string]any) error {
	*r = Row{Values: make(map[string]any, len(raw))}
	for k, v := range raw {
		switch k {
		case "modifier":
			s, err := stringField(k, v)
			if err != nil {
				return err
			}
			r.Modifier = s
		case "stat":
			s, err := stringField(k, v)
			if err != nil {
				return err
			}
			r.Stat = s
		default:
			r.Values[k] = v
		}
	}
	return nil
}

func (r Row) flatten() map[string]any {
	out := make(map[string]any, len(r.Values)+2)
	for k, v := range r.Values {
		out[k] = v
	}
	out["modifier"] = r.Modifier
	out["stat"] = r.Stat
	return out
}

func stringField(key string, v any) (string, error) {
	switch t := v.(type) {
	case nil:
		return "", nil
	case string:
		return t, nil
	default:
		return "", fmt.Errorf("row field %q: expected string, got %T", key, v)
	}
}
