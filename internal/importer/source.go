package importer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/gbcatalog/internal/catalog"
	"github.com/cory-johannsen/gbcatalog/internal/skill"
)

// Kind names the collection a file is imported into.
type Kind string

const (
	KindStats   Kind = "stats"
	KindWeapons Kind = "weapons"
)

// ParseKind validates s as a Kind.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case KindStats, KindWeapons:
		return k, nil
	}
	return "", fmt.Errorf("unknown kind %q (supported: stats, weapons)", s)
}

// envelopeKey is the wrapper key used by API responses, so a saved response
// can be imported as-is.
func (k Kind) envelopeKey() string {
	if k == KindStats {
		return "skills_stats"
	}
	return "weapons"
}

// contentFiles returns path itself, or the .yaml, .yml and .json files directly
// inside it in name order when path is a directory.
//
// Postcondition: returns at least one file, or a non-nil error.
func contentFiles(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("reading directory %s: %w", path, err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !isContentFile(e.Name()) {
			continue
		}
		files = append(files, filepath.Join(path, e.Name()))
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no .yaml, .yml or .json files in %s", path)
	}
	slices.Sort(files)
	return files, nil
}

func isContentFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml", ".json":
		return true
	}
	return false
}

// decodeList decodes data, a top-level list or an object holding the list
// under key, into out. JSON files are decoded with encoding/json so numbers
// keep the same representation the API serves.
func decodeList[T any](name string, data []byte, key string) ([]T, error) {
	isJSON := strings.EqualFold(filepath.Ext(name), ".json")
	trimmed := bytes.TrimSpace(data)
	wrapped := len(trimmed) > 0 && trimmed[0] == '{'
	if !isJSON {
		// A YAML block mapping has no leading brace.
		var top map[string]yaml.Node
		wrapped = yaml.Unmarshal(data, &top) == nil && top != nil
	}

	var out []T
	switch {
	case isJSON && wrapped:
		var env map[string]json.RawMessage
		if err := json.Unmarshal(data, &env); err != nil {
			return nil, err
		}
		raw, ok := env[key]
		if !ok {
			return nil, fmt.Errorf("object has no %q list", key)
		}
		if err := json.Unmarshal(raw, &out); err != nil {
			return nil, err
		}
	case isJSON:
		if err := json.Unmarshal(data, &out); err != nil {
			return nil, err
		}
	case wrapped:
		var env map[string]yaml.Node
		if err := yaml.Unmarshal(data, &env); err != nil {
			return nil, err
		}
		node, ok := env[key]
		if !ok {
			return nil, fmt.Errorf("mapping has no %q list", key)
		}
		if err := node.Decode(&out); err != nil {
			return nil, err
		}
	default:
		if err := yaml.Unmarshal(data, &out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// LoadStats reads skill stats records from a file or directory.
func LoadStats(path string) ([]skill.Record, error) {
	return load[skill.Record](path, KindStats)
}

// LoadWeapons reads weapon documents from a file or directory.
func LoadWeapons(path string) ([]catalog.Weapon, error) {
	return load[catalog.Weapon](path, KindWeapons)
}

func load[T any](path string, kind Kind) ([]T, error) {
	files, err := contentFiles(path)
	if err != nil {
		return nil, err
	}
	var all []T
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", f, err)
		}
		items, err := decodeList[T](f, data, kind.envelopeKey())
		if err != nil {
			return nil, fmt.Errorf("decoding %s: %w", f, err)
		}
		all = append(all, items...)
	}
	return all, nil
}
