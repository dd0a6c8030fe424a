package skill

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/cory-johannsen/gbcatalog/internal/catalog"
)

// Per-skill failure reasons. They are reported inside a Result, never returned.
var (
	ErrUnparseableName  = errors.New("cannot parse skill name")
	ErrUnknownSkillType = errors.New("cannot extract skill type")
	ErrStatsNotFound    = errors.New("stats not found")
	ErrEnrichment       = errors.New("enrichment failed")
)

// Default batch sizes for EnrichList and EnrichListFast.
const (
	DefaultBatchSize     = 5
	DefaultFastBatchSize = 10
)

// Enriched is the computed detail for one weapon skill.
type Enriched struct {
	Parsed             ParsedName
	SkillType          string
	Stats              Summary
	Modifier           Tier
	Values             map[string]TableResult
	SkillLevel         int
	OriginalSkillLevel int
}

// Result is the outcome of enriching one skill slot: exactly one of Skill and
// Err is set.
type Result struct {
	OriginalName string
	OriginalText string
	Skill        *Enriched
	Err          error
}

// OK reports whether the skill was enriched.
func (r Result) OK() bool { return r.Err == nil }

type resultJSON struct {
	OriginalName       string          `json:"originalName"`
	OriginalText       string          `json:"originalText"`
	Error              string          `json:"error,omitempty"`
	Parsed             *ParsedName     `json:"parsed,omitempty"`
	SkillType          string          `json:"skillType,omitempty"`
	SkillStats         *Summary        `json:"skillStats,omitempty"`
	Modifier           Tier            `json:"modifier,omitempty"`
	CalculatedValues   json.RawMessage `json:"calculatedValues,omitempty"`
	SkillLevel         int             `json:"skillLevel,omitempty"`
	OriginalSkillLevel int             `json:"originalSkillLevel,omitempty"`
}

// MarshalJSON renders a failed result as {originalName, originalText, error}
// and a successful one with the full computed detail. A successful result always
// carries calculatedValues: {} when no rows matched the tier, null when the
// stats record has no tables.
func (r Result) MarshalJSON() ([]byte, error) {
	out := resultJSON{OriginalName: r.OriginalName, OriginalText: r.OriginalText}
	switch {
	case r.Err != nil:
		out.Error = r.Err.Error()
	case r.Skill != nil:
		s := r.Skill
		out.Parsed = &s.Parsed
		out.SkillType = s.SkillType
		out.SkillStats = &s.Stats
		out.Modifier = s.Modifier
		values, err := json.Marshal(s.Values)
		if err != nil {
			return nil, fmt.Errorf("marshalling calculated values: %w", err)
		}
		out.CalculatedValues = values
		out.SkillLevel = s.SkillLevel
		out.OriginalSkillLevel = s.OriginalSkillLevel
	}
	return json.Marshal(out)
}

// Options tunes an Enricher. Zero fields take their defaults.
type Options struct {
	DefaultSkillLevel int
	BatchSize         int
	FastBatchSize     int
}

// Enricher attaches computed skill tables to weapon documents.
type Enricher struct {
	cache  *StatsCache
	logger *zap.Logger
	opts   Options
}

// NewEnricher creates an Enricher reading stats through cache.
//
// Precondition: cache and logger must be non-nil.
func NewEnricher(cache *StatsCache, logger *zap.Logger, opts Options) *Enricher {
	if opts.DefaultSkillLevel <= 0 {
		opts.DefaultSkillLevel = catalog.DefaultSkillLevel
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.FastBatchSize <= 0 {
		opts.FastBatchSize = DefaultFastBatchSize
	}
	return &Enricher{cache: cache, logger: logger, opts: opts}
}

// EnrichSkill resolves name to a skill type, looks up its stats, classifies
// description into a tier and calculates the value tables at the level implied
// by level and any roman numeral suffix on name.
//
// Surrounding whitespace is ignored for parsing; OriginalName keeps name as given.
//
// Postcondition: never panics; failures are reported through Result.Err.
func (e *Enricher) EnrichSkill(ctx context.Context, name, description string, level int) (res Result) {
	res = Result{OriginalName: name, OriginalText: description}
	defer func() {
		if p := recover(); p != nil {
			e.logger.Error("enriching skill",
				zap.String("skill", name),
				zap.String("panic", fmt.Sprint(p)),
			)
			res = Result{OriginalName: name, OriginalText: description, Err: ErrEnrichment}
		}
	}()

	if level <= 0 {
		level = e.opts.DefaultSkillLevel
	}

	trimmed := strings.TrimSpace(name)
	parsed, ok := ParseName(trimmed)
	if !ok {
		res.Err = ErrUnparseableName
		return res
	}
	skillType, ok := ExtractSkillType(trimmed)
	if !ok {
		res.Err = ErrUnknownSkillType
		return res
	}
	adjusted := AdjustLevelForSuffix(trimmed, level)

	e.cache.EnsureLoaded(ctx)
	rec, ok := e.cache.Lookup(skillType)
	if !ok {
		res.Err = ErrStatsNotFound
		return res
	}

	tier := Classify(description)
	res.Skill = &Enriched{
		Parsed:             parsed,
		SkillType:          skillType,
		Stats:              rec.Summary(),
		Modifier:           tier,
		Values:             Calculate(rec, tier, adjusted),
		SkillLevel:         adjusted,
		OriginalSkillLevel: level,
	}
	return res
}

// EnrichWeapon returns a shallow copy of w with each populated skill slot's
// Result attached under the slot's enriched key ("s1_enriched" ...). Slots are
// enriched concurrently; w itself is not modified.
func (e *Enricher) EnrichWeapon(ctx context.Context, w catalog.Weapon) catalog.Weapon {
	slots := w.SkillSlots(e.opts.DefaultSkillLevel)
	results := make([]Result, len(slots))

	var g errgroup.Group
	for i, slot := range slots {
		g.Go(func() error {
			results[i] = e.EnrichSkill(ctx, slot.Name, slot.Description, slot.Level)
			return nil
		})
	}
	_ = g.Wait()

	out := w.Clone()
	if out == nil {
		out = catalog.Weapon{}
	}
	for i, slot := range slots {
		out[slot.EnrichedKey()] = results[i]
	}
	return out
}

// EnrichList enriches weapons in consecutive batches of batchSize, all weapons
// of a batch in parallel. Order is preserved. A batchSize <= 0 uses the
// configured batch size.
func (e *Enricher) EnrichList(ctx context.Context, weapons []catalog.Weapon, batchSize int) []catalog.Weapon {
	if batchSize <= 0 {
		batchSize = e.opts.BatchSize
	}
	out := make([]catalog.Weapon, len(weapons))
	for start := 0; start < len(weapons); start += batchSize {
		end := min(start+batchSize, len(weapons))

		var g errgroup.Group
		for i := start; i < end; i++ {
			g.Go(func() error {
				out[i] = e.EnrichWeapon(ctx, weapons[i])
				return nil
			})
		}
		_ = g.Wait()
	}
	return out
}

// EnrichListFast warms the cache once and enriches weapons with the larger
// fast batch size. When enabled is false weapons is returned unchanged.
func (e *Enricher) EnrichListFast(ctx context.Context, weapons []catalog.Weapon, enabled bool) []catalog.Weapon {
	if !enabled {
		return weapons
	}
	e.cache.EnsureLoaded(ctx)
	return e.EnrichList(ctx, weapons, e.opts.FastBatchSize)
}
