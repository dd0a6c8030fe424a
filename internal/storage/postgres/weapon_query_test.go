package postgres

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/gbcatalog/internal/catalog"
)

func intPtr(n int) *int { return &n }

func TestWeaponWhere_Empty(t *testing.T) {
	b := weaponWhere(catalog.WeaponFilter{})
	assert.Empty(t, b.sql())
	assert.Empty(t, b.args)
}

func TestWeaponWhere_EqualitiesSortedByField(t *testing.T) {
	b := weaponWhere(catalog.WeaponFilter{Rarity: "SSR", Element: "Fire", Type: "Sword"})
	assert.Equal(t,
		" WHERE doc->>'element' = $1 AND doc->>'rarity' = $2 AND doc->>'type' = $3",
		b.sql())
	assert.Equal(t, []any{"Fire", "SSR", "Sword"}, b.args)
}

func TestWeaponWhere_NumericBounds(t *testing.T) {
	b := weaponWhere(catalog.WeaponFilter{
		MinAtk: intPtr(2000),
		MaxAtk: intPtr(3000),
		EvoMax: intPtr(5),
	})
	sql := b.sql()
	assert.Contains(t, sql, "jsonb_typeof(doc->'atk2') = 'number'")
	assert.Contains(t, sql, ">= $1")
	assert.Contains(t, sql, "<= $2")
	assert.Contains(t, sql, "(doc->>'evo_max')::numeric END) = $3")
	assert.Equal(t, []any{2000, 3000, 5}, b.args)
}

func TestWeaponWhere_ArgAfterClausesNumbersOnward(t *testing.T) {
	b := weaponWhere(catalog.WeaponFilter{Element: "Water"})
	assert.Equal(t, "$2", b.arg(10))
	assert.Equal(t, "$3", b.arg(0))
}

func TestSearchWhere_SharesOnePlaceholder(t *testing.T) {
	b := searchWhere("Ascalon")
	require.Len(t, b.args, 1)
	assert.Equal(t, "%Ascalon%", b.args[0])
	assert.Equal(t, len(searchFields), strings.Count(b.sql(), "ILIKE $1"))
	assert.Contains(t, b.sql(), "doc->>'s2 name'")
	assert.Contains(t, b.sql(), "doc->>'s2_name'")
}

func TestContainsPattern_EscapesWildcards(t *testing.T) {
	assert.Equal(t, `%100\%%`, containsPattern("100%"))
	assert.Equal(t, `%s1\_name%`, containsPattern("s1_name"))
	assert.Equal(t, `%a\\b%`, containsPattern(`a\b`))
}

func TestEncodeWeapon_AssignsMissingID(t *testing.T) {
	w := catalog.Weapon{"name": "Blutgang"}
	doc, id, err := encodeWeapon(w)
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.NotContains(t, w, "id", "input document is not mutated")

	var stored map[string]any
	require.NoError(t, json.Unmarshal(doc, &stored))
	assert.Equal(t, id, stored["id"])
}

func TestEncodeWeapon_KeepsNumericID(t *testing.T) {
	_, id, err := encodeWeapon(catalog.Weapon{"id": float64(1040019000)})
	require.NoError(t, err)
	assert.Equal(t, "1040019000", id)
}

// Property: every filter produces exactly one arg per placeholder.
func TestPropertyWeaponWherePlaceholders(t *testing.T) {
	optInt := func(t *rapid.T, label string) *int {
		if rapid.Bool().Draw(t, label+"_set") {
			return intPtr(rapid.IntRange(0, 20000).Draw(t, label))
		}
		return nil
	}
	rapid.Check(t, func(t *rapid.T) {
		f := catalog.WeaponFilter{
			Type:    rapid.SampledFrom([]string{"", "Sword", "Staff"}).Draw(t, "type"),
			Element: rapid.SampledFrom([]string{"", "Fire", "Dark"}).Draw(t, "element"),
			Series:  rapid.SampledFrom([]string{"", "Revenant"}).Draw(t, "series"),
			MinAtk:  optInt(t, "minAtk"),
			MaxHP:   optInt(t, "maxHp"),
			EvoBase: optInt(t, "evoBase"),
		}
		b := weaponWhere(f)
		if got := strings.Count(b.sql(), "$"); got != len(b.args) {
			t.Fatalf("%d placeholders for %d args in %q", got, len(b.args), b.sql())
		}
	})
}
