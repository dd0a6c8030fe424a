package importer_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/gbcatalog/internal/catalog"
	"github.com/cory-johannsen/gbcatalog/internal/importer"
	"github.com/cory-johannsen/gbcatalog/internal/skill"
)

type memStats struct {
	records []skill.Record
	err     error
}

func (m *memStats) ReplaceAll(_ context.Context, records []skill.Record) (int, error) {
	if m.err != nil {
		return 0, m.err
	}
	m.records = records
	return len(records), nil
}

type memWeapons struct {
	weapons []catalog.Weapon
}

func (m *memWeapons) ReplaceAll(_ context.Context, weapons []catalog.Weapon) (int, error) {
	m.weapons = weapons
	return len(weapons), nil
}

func write(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

const statsYAML = `
- name: Might
  description: Boost to ATK
  tables:
    - title: Might
      rows:
        - modifier: Small
          stat: ATK
          level10: 3%
        - modifier: Big
          stat: ATK
          level10: 15%
- name: Enmity
  description: Boost to ATK based on how low HP is
  tables: []
`

func TestImporter_Run_StatsYAML(t *testing.T) {
	path := write(t, t.TempDir(), "stats.yaml", statsYAML)
	stats := &memStats{}
	imp := importer.New(stats, &memWeapons{}, zaptest.NewLogger(t))

	n, err := imp.Run(context.Background(), importer.KindStats, path)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.Len(t, stats.records, 2)
	assert.Equal(t, "Might", stats.records[0].Name)
	row := stats.records[0].Tables[0].Rows[1]
	assert.Equal(t, "Big", row.Modifier)
	assert.Equal(t, "15%", row.Values["level10"])
}

func TestImporter_Run_WeaponsJSONEnvelope(t *testing.T) {
	path := write(t, t.TempDir(), "weapons.json", `{
		"weapons": [
			{"id": 1040019000, "name": "Ixaba", "s1 name": "Inferno's Might", "s1 lvl": 10},
			{"id": "eos", "name": "Sword of Eos"}
		],
		"pagination": {"currentPage": 1}
	}`)
	weapons := &memWeapons{}
	imp := importer.New(&memStats{}, weapons, zaptest.NewLogger(t))

	n, err := imp.Run(context.Background(), importer.KindWeapons, path)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, "1040019000", weapons.weapons[0].ID())
	slots := weapons.weapons[0].SkillSlots(catalog.DefaultSkillLevel)
	require.Len(t, slots, 1)
	assert.Equal(t, "Inferno's Might", slots[0].Name)
}

func TestImporter_Run_Directory(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, "b.yml", "- id: 2\n  name: Second\n")
	write(t, dir, "a.json", `[{"id": 1, "name": "First"}]`)
	write(t, dir, "notes.txt", "ignored")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested"), 0755))

	weapons := &memWeapons{}
	imp := importer.New(&memStats{}, weapons, zaptest.NewLogger(t))
	n, err := imp.Run(context.Background(), importer.KindWeapons, dir)
	require.NoError(t, err)
	require.Equal(t, 2, n)
	assert.Equal(t, "First", weapons.weapons[0].Name(), "files load in name order")
	assert.Equal(t, "2", weapons.weapons[1].ID())
}

func TestImporter_Run_YAMLEnvelope(t *testing.T) {
	path := write(t, t.TempDir(), "stats.yaml", "skills_stats:\n  - name: Aegis\n    description: Boost to HP\n")
	stats := &memStats{}
	imp := importer.New(stats, &memWeapons{}, zaptest.NewLogger(t))

	_, err := imp.Run(context.Background(), importer.KindStats, path)
	require.NoError(t, err)
	require.Len(t, stats.records, 1)
	assert.Equal(t, "Aegis", stats.records[0].Name)
}

func TestImporter_Run_Errors(t *testing.T) {
	dir := t.TempDir()
	imp := importer.New(&memStats{}, &memWeapons{}, zaptest.NewLogger(t))
	ctx := context.Background()

	_, err := imp.Run(ctx, importer.KindStats, filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	empty := t.TempDir()
	_, err = imp.Run(ctx, importer.KindStats, empty)
	assert.ErrorContains(t, err, "no .yaml")

	dup := write(t, dir, "dup.yaml", "- name: Might\n- name: MIGHT\n")
	_, err = imp.Run(ctx, importer.KindStats, dup)
	assert.ErrorContains(t, err, "share the name")

	wrongKey := write(t, dir, "wrong.json", `{"items": []}`)
	_, err = imp.Run(ctx, importer.KindWeapons, wrongKey)
	assert.ErrorContains(t, err, `"weapons"`)

	_, err = imp.Run(ctx, importer.Kind("summons"), dup)
	assert.Error(t, err)
}

func TestImporter_Run_SinkFailure(t *testing.T) {
	path := write(t, t.TempDir(), "stats.yaml", statsYAML)
	sinkErr := errors.New("db down")
	imp := importer.New(&memStats{err: sinkErr}, &memWeapons{}, zaptest.NewLogger(t))

	_, err := imp.Run(context.Background(), importer.KindStats, path)
	assert.ErrorIs(t, err, sinkErr)
}

func TestParseKind(t *testing.T) {
	k, err := importer.ParseKind("weapons")
	require.NoError(t, err)
	assert.Equal(t, importer.KindWeapons, k)

	_, err = importer.ParseKind("zones")
	assert.Error(t, err)
}

// Property: ValidateWeapons rejects a set exactly when two weapons share an id.
func TestPropertyValidateWeaponsDuplicates(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ids := rapid.SliceOf(rapid.IntRange(0, 20)).Draw(t, "ids")
		weapons := make([]catalog.Weapon, len(ids))
		seen := map[int]bool{}
		dup := false
		for i, id := range ids {
			weapons[i] = catalog.Weapon{"id": fmt.Sprint(id)}
			dup = dup || seen[id]
			seen[id] = true
		}
		err := importer.ValidateWeapons(weapons)
		if dup != (err != nil) {
			t.Fatalf("ids %v: duplicate=%v err=%v", ids, dup, err)
		}
	})
}
