package skill

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/cory-johannsen/gbcatalog/internal/catalog"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func statsSource() *fakeSource {
	return &fakeSource{records: []Record{
		{
			Name:        "Might",
			Description: "Boost to ATK",
			Tables: []Table{{
				Title: "Might",
				Rows: []Row{
					{Modifier: "Small", Stat: "ATK", Values: map[string]any{"level10": "50%", "level15": "60%"}},
				},
			}},
		},
		{
			Name:        "Aegis",
			Description: "Boost to HP",
			Tables: []Table{{
				Title: "Aegis",
				Rows:  []Row{{Modifier: "Medium", Stat: "HP", Values: map[string]any{"level10": "10%"}}},
			}},
		},
		{
			Name:        "Enmity",
			Description: "Boost to ATK based on how low HP is",
			Tables: []Table{{
				Title: "Enmity",
				Rows:  []Row{{Modifier: "Big", Stat: "ATK", Values: map[string]any{"level10": "20%"}}},
			}},
		},
	}}
}

func newTestEnricher(src Source) *Enricher {
	cache := NewStatsCache(src, zap.NewNop())
	return NewEnricher(cache, zap.NewNop(), Options{})
}

func TestEnrichSkill_Possessive(t *testing.T) {
	e := newTestEnricher(statsSource())

	res := e.EnrichSkill(context.Background(), "Fire's Might", "Small boost to fire allies' ATK", 10)
	require.True(t, res.OK(), "unexpected error: %v", res.Err)

	s := res.Skill
	assert.Equal(t, "Might", s.SkillType)
	assert.Equal(t, ParsedName{Element: "fire", SkillType: "Might"}, s.Parsed)
	assert.Equal(t, TierSmall, s.Modifier)
	assert.Equal(t, "50%", s.Values["Might"].Stats[0].Values["level10"])
	assert.Equal(t, Summary{Name: "Might", Description: "Boost to ATK"}, s.Stats)
	assert.Equal(t, 10, s.SkillLevel)
	assert.Equal(t, 10, s.OriginalSkillLevel)
}

func TestEnrichSkill_SuffixRaisesLevel(t *testing.T) {
	e := newTestEnricher(statsSource())

	res := e.EnrichSkill(context.Background(), "Fire's Might II", "Small boost to fire allies' ATK", 10)
	require.True(t, res.OK())
	assert.Equal(t, "Might", res.Skill.SkillType)
	assert.Equal(t, 15, res.Skill.SkillLevel)
	assert.Equal(t, 10, res.Skill.OriginalSkillLevel)
	assert.Equal(t, "60%", res.Skill.Values["Might"].Stats[0].AtLevel)
}

func TestEnrichSkill_DefaultLevel(t *testing.T) {
	e := newTestEnricher(statsSource())

	res := e.EnrichSkill(context.Background(), "Fire's Might", "Small boost", 0)
	require.True(t, res.OK())
	assert.Equal(t, catalog.DefaultSkillLevel, res.Skill.OriginalSkillLevel)
}

func TestEnrichSkill_Failures(t *testing.T) {
	e := newTestEnricher(statsSource())
	ctx := context.Background()

	cases := []struct {
		name string
		want error
	}{
		{"", ErrUnparseableName},
		{"???", ErrUnparseableName},
		{"FireMight", ErrUnknownSkillType},
		{"Unknown Skill Xyzzy", ErrStatsNotFound},
	}
	for _, tc := range cases {
		res := e.EnrichSkill(ctx, tc.name, "Small boost", 10)
		assert.ErrorIs(t, res.Err, tc.want, "EnrichSkill(%q)", tc.name)
		assert.Nil(t, res.Skill)
		assert.Equal(t, tc.name, res.OriginalName)
		assert.Equal(t, "Small boost", res.OriginalText)
	}
}

func TestEnrichSkill_SourceDownIsStatsNotFound(t *testing.T) {
	src := statsSource()
	src.set(nil, fmt.Errorf("dial tcp: connection refused"))
	e := newTestEnricher(src)

	res := e.EnrichSkill(context.Background(), "Fire's Might", "Small boost", 10)
	assert.ErrorIs(t, res.Err, ErrStatsNotFound)
}

func TestResult_MarshalJSON(t *testing.T) {
	e := newTestEnricher(statsSource())
	ctx := context.Background()

	data, err := json.Marshal(e.EnrichSkill(ctx, "Unknown Skill Xyzzy", "Small boost", 10))
	require.NoError(t, err)
	assert.JSONEq(t, `{"originalName":"Unknown Skill Xyzzy","originalText":"Small boost","error":"stats not found"}`, string(data))

	data, err = json.Marshal(e.EnrichSkill(ctx, "Fire's Might", "Small boost", 10))
	require.NoError(t, err)
	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "Might", got["skillType"])
	assert.Equal(t, "Small", got["modifier"])
	assert.Equal(t, map[string]any{"element": "fire", "skillType": "Might"}, got["parsed"])
	assert.Equal(t, 10.0, got["originalSkillLevel"])
	assert.NotContains(t, got, "error")
}

func TestResult_MarshalJSONKeepsEmptyValues(t *testing.T) {
	src := statsSource()
	src.records = append(src.records, Record{Name: "Glory", Description: "Boost to ATK"})
	e := newTestEnricher(src)
	ctx := context.Background()

	decode := func(res Result) map[string]any {
		t.Helper()
		require.True(t, res.OK(), "%v", res.Err)
		data, err := json.Marshal(res)
		require.NoError(t, err)
		var got map[string]any
		require.NoError(t, json.Unmarshal(data, &got))
		return got
	}

	noDescription := decode(e.EnrichSkill(ctx, "Fire's Might", "", 10))
	require.Contains(t, noDescription, "calculatedValues")
	assert.Equal(t, map[string]any{}, noDescription["calculatedValues"])

	noMatch := decode(e.EnrichSkill(ctx, "Fire's Might", "Massive boost", 10))
	assert.Equal(t, map[string]any{}, noMatch["calculatedValues"])

	noTables := decode(e.EnrichSkill(ctx, "Fire's Glory", "Small boost", 10))
	require.Contains(t, noTables, "calculatedValues")
	assert.Nil(t, noTables["calculatedValues"])
}

func TestEnrichSkill_KeepsNameAsGiven(t *testing.T) {
	e := newTestEnricher(statsSource())
	res := e.EnrichSkill(context.Background(), " Fire's Might II ", "Small boost", 10)
	require.True(t, res.OK(), "%v", res.Err)
	assert.Equal(t, " Fire's Might II ", res.OriginalName)
	assert.Equal(t, "Might", res.Skill.SkillType)
	assert.Equal(t, 15, res.Skill.SkillLevel)
}

func threeSlotWeapon() catalog.Weapon {
	return catalog.Weapon{
		"id":      "1040001000",
		"name":    "Ixaba",
		"title":   "Ixaba",
		"element": "fire",
		"s1_name": "Fire's Might",
		"s1_desc": "Small boost to fire allies' ATK",
		"s1_lvl":  10.0,
		"s2_name": "Fire's Aegis",
		"s2_desc": "Medium boost to fire allies' HP",
		"s3_name": "Inferno's Enmity II",
		"s3_desc": "Big boost to ATK based on how low HP is",
	}
}

func TestEnrichWeapon_AttachesEverySlot(t *testing.T) {
	e := newTestEnricher(statsSource())
	in := threeSlotWeapon()
	before := in.Clone()

	out := e.EnrichWeapon(context.Background(), in)

	assert.Equal(t, before, in, "input must not be modified")
	for k, v := range before {
		assert.Equal(t, v, out[k], "field %q passes through", k)
	}
	assert.Len(t, out, len(before)+3)

	for _, key := range []string{"s1_enriched", "s2_enriched", "s3_enriched"} {
		res, ok := out[key].(Result)
		require.True(t, ok, "%s is a Result", key)
		assert.True(t, res.OK(), "%s: %v", key, res.Err)
	}
	s3 := out["s3_enriched"].(Result).Skill
	assert.Equal(t, "Enmity", s3.SkillType)
	assert.Equal(t, 15, s3.SkillLevel)
	assert.Equal(t, TierBig, s3.Modifier)
}

func TestEnrichWeapon_LegacySlotKeys(t *testing.T) {
	e := newTestEnricher(statsSource())
	in := catalog.Weapon{"name": "Old", "s1 name": "Wind's Aegis", "s1 desc": "Medium boost", "s1 lvl": "12"}

	out := e.EnrichWeapon(context.Background(), in)
	res := out["s1_enriched"].(Result)
	require.True(t, res.OK())
	assert.Equal(t, 12, res.Skill.SkillLevel)
	assert.NotContains(t, out, "s2_enriched")
}

func TestEnrichWeapon_Idempotent(t *testing.T) {
	e := newTestEnricher(statsSource())
	ctx := context.Background()

	first := e.EnrichWeapon(ctx, threeSlotWeapon())
	second := e.EnrichWeapon(ctx, threeSlotWeapon())
	if diff := cmp.Diff(first, second, cmpopts.EquateErrors()); diff != "" {
		t.Fatalf("EnrichWeapon not idempotent (-first +second):\n%s", diff)
	}
}

func TestEnrichList_FailureIsolated(t *testing.T) {
	e := newTestEnricher(statsSource())
	weapons := []catalog.Weapon{
		{"name": "Broken", "s1_name": "Unknown Skill Xyzzy", "s1_desc": "whatever"},
		{"name": "Fine", "s1_name": "Fire's Might", "s1_desc": "Small boost to fire allies' ATK"},
	}

	out := e.EnrichList(context.Background(), weapons, 0)
	require.Len(t, out, 2)
	assert.ErrorIs(t, out[0]["s1_enriched"].(Result).Err, ErrStatsNotFound)
	assert.True(t, out[1]["s1_enriched"].(Result).OK())
}

func TestEnrichList_PreservesOrderAcrossBatches(t *testing.T) {
	e := newTestEnricher(statsSource())
	var weapons []catalog.Weapon
	for i := range 23 {
		weapons = append(weapons, catalog.Weapon{
			"id":      fmt.Sprint(i),
			"s1_name": "Fire's Might",
			"s1_desc": "Small boost",
		})
	}

	for _, size := range []int{1, 5, 10, 50} {
		out := e.EnrichList(context.Background(), weapons, size)
		require.Len(t, out, len(weapons))
		for i, w := range out {
			assert.Equal(t, fmt.Sprint(i), w.ID(), "batch size %d", size)
			assert.Contains(t, w, "s1_enriched")
		}
	}
}

func TestEnrichListFast_Disabled(t *testing.T) {
	src := statsSource()
	e := newTestEnricher(src)
	weapons := []catalog.Weapon{threeSlotWeapon()}

	out := e.EnrichListFast(context.Background(), weapons, false)
	assert.Equal(t, weapons, out)
	assert.NotContains(t, out[0], "s1_enriched")
	assert.Equal(t, int32(0), src.calls.Load(), "disabled path never touches the stats source")
}

func TestEnrichListFast_WarmsCacheOnce(t *testing.T) {
	src := statsSource()
	e := newTestEnricher(src)
	weapons := []catalog.Weapon{threeSlotWeapon(), threeSlotWeapon(), threeSlotWeapon()}

	out := e.EnrichListFast(context.Background(), weapons, true)
	require.Len(t, out, 3)
	assert.Contains(t, out[2], "s3_enriched")
	assert.Equal(t, int32(1), src.calls.Load())
}
