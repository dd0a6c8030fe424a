// Package importer loads skill stats and weapon content files and replaces the
// stored collections with them.
package importer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/gbcatalog/internal/catalog"
	"github.com/cory-johannsen/gbcatalog/internal/skill"
)

// StatsSink replaces the stored skill stats.
type StatsSink interface {
	ReplaceAll(ctx context.Context, records []skill.Record) (int, error)
}

// WeaponSink replaces the stored weapons.
type WeaponSink interface {
	ReplaceAll(ctx context.Context, weapons []catalog.Weapon) (int, error)
}

// Importer orchestrates content import from files into the catalog store.
type Importer struct {
	stats   StatsSink
	weapons WeaponSink
	logger  *zap.Logger
}

// New constructs an Importer writing to the given sinks.
//
// Precondition: stats, weapons and logger must be non-nil.
// Postcondition: returns a non-nil Importer.
func New(stats StatsSink, weapons WeaponSink, logger *zap.Logger) *Importer {
	return &Importer{stats: stats, weapons: weapons, logger: logger}
}

// Run loads every record of kind from path, validates the set, and replaces the
// stored collection with it.
//
// Precondition: path is a content file or a directory of them.
// Postcondition: returns the number of stored records, or an error with the
// stored collection unchanged.
func (imp *Importer) Run(ctx context.Context, kind Kind, path string) (int, error) {
	overall := time.Now()

	var (
		n   int
		err error
	)
	switch kind {
	case KindStats:
		n, err = imp.importStats(ctx, path)
	case KindWeapons:
		n, err = imp.importWeapons(ctx, path)
	default:
		return 0, fmt.Errorf("unknown kind %q", kind)
	}
	if err != nil {
		return 0, err
	}

	imp.logger.Info("import complete",
		zap.String("kind", string(kind)),
		zap.String("path", path),
		zap.Int("count", n),
		zap.Duration("elapsed", time.Since(overall)),
	)
	return n, nil
}

func (imp *Importer) importStats(ctx context.Context, path string) (int, error) {
	t0 := time.Now()
	records, err := LoadStats(path)
	if err != nil {
		return 0, fmt.Errorf("loading stats: %w", err)
	}
	imp.logger.Debug("loaded stats", zap.Int("count", len(records)), zap.Duration("elapsed", time.Since(t0)))

	if err := ValidateStats(records); err != nil {
		return 0, err
	}
	n, err := imp.stats.ReplaceAll(ctx, records)
	if err != nil {
		return 0, fmt.Errorf("storing stats: %w", err)
	}
	return n, nil
}

func (imp *Importer) importWeapons(ctx context.Context, path string) (int, error) {
	t0 := time.Now()
	weapons, err := LoadWeapons(path)
	if err != nil {
		return 0, fmt.Errorf("loading weapons: %w", err)
	}
	imp.logger.Debug("loaded weapons", zap.Int("count", len(weapons)), zap.Duration("elapsed", time.Since(t0)))

	if err := ValidateWeapons(weapons); err != nil {
		return 0, err
	}
	n, err := imp.weapons.ReplaceAll(ctx, weapons)
	if err != nil {
		return 0, fmt.Errorf("storing weapons: %w", err)
	}
	return n, nil
}

// ValidateStats requires every record to have a name, unique ignoring case.
func ValidateStats(records []skill.Record) error {
	seen := make(map[string]int, len(records))
	for i, rec := range records {
		key := strings.ToLower(strings.TrimSpace(rec.Name))
		if key == "" {
			return fmt.Errorf("stats record %d has no name", i)
		}
		if j, dup := seen[key]; dup {
			return fmt.Errorf("stats records %d and %d share the name %q", j, i, rec.Name)
		}
		seen[key] = i
	}
	return nil
}

// ValidateWeapons rejects duplicate ids. Weapons without an id are assigned
// one when stored.
func ValidateWeapons(weapons []catalog.Weapon) error {
	seen := make(map[string]int, len(weapons))
	for i, w := range weapons {
		id := w.ID()
		if id == "" {
			continue
		}
		if j, dup := seen[id]; dup {
			return fmt.Errorf("weapons %d and %d share the id %q", j, i, id)
		}
		seen[id] = i
	}
	return nil
}
