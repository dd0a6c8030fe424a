package skill

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestParseName_Patterns(t *testing.T) {
	cases := []struct {
		raw     string
		element string
		typ     string
	}{
		{"Fire's Might", "fire", "Might"},
		{"Wind's Aegis", "wind", "Aegis"},
		{"Fire Might", "fire", "Might"},
		{"Dark Dual Edge", "dark", "Dual Edge"},
		{"FireMight", "fire", "Might"},
		{"WindAegis", "wind", "Aegis"},
		{"Earth&#039;s Stamina II", "earth", "Stamina II"},
	}
	for _, tc := range cases {
		got, ok := ParseName(tc.raw)
		require.True(t, ok, "ParseName(%q)", tc.raw)
		assert.Equal(t, tc.element, got.Element, "element of %q", tc.raw)
		assert.Equal(t, tc.typ, got.SkillType, "skill type of %q", tc.raw)
		assert.False(t, got.Guessed)
	}
}

func TestParseName_Heuristic(t *testing.T) {
	got, ok := ParseName("Inferno's Might-Enhance")
	require.True(t, ok)
	assert.True(t, got.Guessed)
	assert.Equal(t, Unknown, got.Element)
	assert.Equal(t, "Might", got.SkillType)

	got, ok = ParseName("light-bringer")
	require.True(t, ok)
	assert.Equal(t, "light", got.Element)
	assert.Equal(t, Unknown, got.SkillType)
}

func TestParseName_Unparseable(t *testing.T) {
	_, ok := ParseName("")
	assert.False(t, ok)

	_, ok = ParseName("Zzz-123")
	assert.False(t, ok)
}

func TestExtractSkillType(t *testing.T) {
	cases := map[string]string{
		"Fire's Might":        "Might",
		"Fire's Might II":     "Might",
		"Water's Aegis III":   "Aegis",
		"Wind Celere IV":      "Celere",
		"Light's Verity":      "Verity",
		"Dark&#039;s Enmity":  "Enmity",
		"Earth's Stamina x":   "Stamina",
		"Fire's Grand Epic V": "Grand Epic",
	}
	for raw, want := range cases {
		got, ok := ExtractSkillType(raw)
		require.True(t, ok, "ExtractSkillType(%q)", raw)
		assert.Equal(t, want, got, "ExtractSkillType(%q)", raw)
	}
}

func TestExtractSkillType_StricterThanParse(t *testing.T) {
	_, ok := ParseName("FireMight")
	assert.True(t, ok)

	_, ok = ExtractSkillType("FireMight")
	assert.False(t, ok)

	_, ok = ExtractSkillType("")
	assert.False(t, ok)
}

func TestAdjustLevelForSuffix(t *testing.T) {
	assert.Equal(t, 10, AdjustLevelForSuffix("Fire's Might", 10))
	assert.Equal(t, 15, AdjustLevelForSuffix("Fire's Might II", 10))
	assert.Equal(t, 20, AdjustLevelForSuffix("Fire's Might III", 10))
	assert.Equal(t, 20, AdjustLevelForSuffix("Fire's Might IV", 10))
	assert.Equal(t, 16, AdjustLevelForSuffix("Fire's Might IV", 1))
	assert.Equal(t, 20, AdjustLevelForSuffix("Fire's Might V", 1))
	assert.Equal(t, 12, AdjustLevelForSuffix("Fire's Might III", 2))
	for _, numeral := range []string{"VI", "VII", "VIII", "IX", "X"} {
		assert.Equal(t, 20, AdjustLevelForSuffix("Fire's Might "+numeral, 10), numeral)
	}
}

func TestAdjustLevelForSuffix_IgnoresLettersInsideWords(t *testing.T) {
	assert.Equal(t, 10, AdjustLevelForSuffix("Light's Verity", 10))
	assert.Equal(t, 10, AdjustLevelForSuffix("Wind's Valor", 10))
	assert.Equal(t, 10, AdjustLevelForSuffix("Fire's Ivory", 10))
}

var (
	elementGen = rapid.SampledFrom([]string{"Fire", "Water", "Earth", "Wind", "Light", "Dark"})
	typeGen    = rapid.StringMatching(`[A-Z][a-z]{2,10}( [A-Z][a-z]{2,10})?`)
	suffixGen  = rapid.SampledFrom([]string{"II", "III", "IV", "V", "VI", "VII", "VIII", "IX", "X"})
)

// Property: possessive and spaced names yield their skill type without the numeral.
func TestPropertyExtractSkillTypeStripsSuffix(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		element := elementGen.Draw(t, "element")
		typ := typeGen.Draw(t, "type")
		suffix := suffixGen.Draw(t, "suffix")
		possessive := rapid.Bool().Draw(t, "possessive")

		sep := " "
		if possessive {
			sep = "'s "
		}
		raw := element + sep + typ + " " + suffix

		got, ok := ExtractSkillType(raw)
		if !ok {
			t.Fatalf("ExtractSkillType(%q) failed", raw)
		}
		if got != typ {
			t.Fatalf("ExtractSkillType(%q) = %q, want %q", raw, got, typ)
		}
	})
}

// Property: names without a numeral word keep their level; any stripped numeral
// adds its bonus capped at 20, and " III" adds exactly 10.
func TestPropertyAdjustLevel(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		element := elementGen.Draw(t, "element")
		typ := typeGen.Draw(t, "type")
		level := rapid.IntRange(1, 30).Draw(t, "level")
		raw := element + "'s " + typ

		if got := AdjustLevelForSuffix(raw, level); got != level {
			t.Fatalf("AdjustLevelForSuffix(%q, %d) = %d, want unchanged", raw, level, got)
		}
		if got, want := AdjustLevelForSuffix(raw+" III", level), min(level+10, 20); got != want {
			t.Fatalf("AdjustLevelForSuffix(%q III, %d) = %d, want %d", raw, level, got, want)
		}
		suffix := suffixGen.Draw(t, "suffix")
		got := AdjustLevelForSuffix(raw+" "+suffix, level)
		if want := min(level+suffixBonus[suffix], MaxSkillLevel); got != want {
			t.Fatalf("AdjustLevelForSuffix(%q %s, %d) = %d, want %d", raw, suffix, level, got, want)
		}
		if level < MaxSkillLevel && got <= level {
			t.Fatalf("AdjustLevelForSuffix(%q %s, %d) = %d, want a bonus", raw, suffix, level, got)
		}
	})
}

func TestDecodeEntities(t *testing.T) {
	assert.Equal(t, `Fire's "Might" & <Aegis>`, DecodeEntities("Fire&#039;s &quot;Might&quot; &amp; &lt;Aegis&gt;"))
}
