package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/cory-johannsen/gbcatalog/internal/catalog"
	"github.com/cory-johannsen/gbcatalog/internal/grid"
	"github.com/cory-johannsen/gbcatalog/internal/storage/postgres"
	"github.com/cory-johannsen/gbcatalog/internal/testutil"
)

func fireSword(atk float64) map[string]any {
	return map[string]any{"id": float64(1), "name": "Ixaba", "element": "Fire", "rarity": "SSR", "atk1": atk, "hp1": float64(30)}
}

func TestGridRepository_CreateGetDefaults(t *testing.T) {
	ctx := context.Background()
	repo := postgres.NewGridRepository(testutil.NewPool(t))

	created, err := repo.Create(ctx, grid.Grid{
		Name:    "Fire magna",
		Weapons: map[int]grid.WeaponEntry{1: {WeaponID: "1", WeaponData: fireSword(1000)}},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, grid.DefaultUserID, created.UserID)
	assert.Equal(t, int64(1000), created.Metadata.TotalAtk)

	got, err := repo.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Fire magna", got.Name)
	assert.Equal(t, created.Metadata, got.Metadata)
	require.Contains(t, got.Weapons, 1)
	assert.Equal(t, grid.DocID("1"), got.Weapons[1].WeaponID)
	assert.Equal(t, grid.DefaultWeaponLevel, got.Weapons[1].SelectedLevel)
	assert.Empty(t, got.Summons)
	assert.WithinDuration(t, created.CreatedAt, got.CreatedAt, time.Microsecond, "stored at microsecond precision")

	_, err = repo.Get(ctx, "missing")
	assert.ErrorIs(t, err, postgres.ErrGridNotFound)

	_, err = repo.Create(ctx, grid.Grid{Name: " "})
	assert.ErrorIs(t, err, grid.ErrInvalidGrid)
}

func TestGridRepository_SlotMutations(t *testing.T) {
	ctx := context.Background()
	repo := postgres.NewGridRepository(testutil.NewPool(t))
	g, err := repo.Create(ctx, grid.Grid{Name: "Slots"})
	require.NoError(t, err)

	g, err = repo.SetWeapon(ctx, g.ID, 3, grid.WeaponEntry{WeaponID: "1", WeaponData: fireSword(500)})
	require.NoError(t, err)
	assert.Equal(t, 1, g.Metadata.WeaponCount)

	summon := map[string]any{"name": "Colossus", "element": "Fire", "rarity": "SSR", "atk2": float64(700), "hp2": float64(90)}
	g, err = repo.SetSummon(ctx, g.ID, 1, grid.SummonEntry{SummonID: "s1", SummonData: summon, SelectedLevel: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(1200), g.Metadata.TotalAtk)

	stored, err := repo.Get(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, g.Metadata, stored.Metadata)

	_, err = repo.SetWeapon(ctx, g.ID, 11, grid.WeaponEntry{WeaponID: "1", WeaponData: fireSword(1)})
	assert.ErrorIs(t, err, grid.ErrInvalidGrid)

	g, err = repo.RemoveWeapon(ctx, g.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(700), g.Metadata.TotalAtk)

	_, err = repo.RemoveWeapon(ctx, g.ID, 3)
	assert.ErrorIs(t, err, grid.ErrSlotEmpty)

	g, err = repo.RemoveSummon(ctx, g.ID, 1)
	require.NoError(t, err)
	assert.Zero(t, g.Metadata.SummonCount)

	_, err = repo.SetWeapon(ctx, "missing", 1, grid.WeaponEntry{WeaponID: "1", WeaponData: fireSword(1)})
	assert.ErrorIs(t, err, postgres.ErrGridNotFound)
}

func TestGridRepository_ConcurrentSlotWritesAreNotLost(t *testing.T) {
	ctx := context.Background()
	repo := postgres.NewGridRepository(testutil.NewPool(t))
	g, err := repo.Create(ctx, grid.Grid{Name: "Race"})
	require.NoError(t, err)

	var eg errgroup.Group
	for slot := 1; slot <= grid.MaxWeaponSlots; slot++ {
		eg.Go(func() error {
			_, err := repo.SetWeapon(ctx, g.ID, slot, grid.WeaponEntry{WeaponID: "1", WeaponData: fireSword(100)})
			return err
		})
	}
	require.NoError(t, eg.Wait())

	got, err := repo.Get(ctx, g.ID)
	require.NoError(t, err)
	assert.Len(t, got.Weapons, grid.MaxWeaponSlots)
	assert.Equal(t, int64(100*grid.MaxWeaponSlots), got.Metadata.TotalAtk)
}

func TestGridRepository_UpdateAndDelete(t *testing.T) {
	ctx := context.Background()
	repo := postgres.NewGridRepository(testutil.NewPool(t))
	g, err := repo.Create(ctx, grid.Grid{Name: "Before"})
	require.NoError(t, err)

	name, public := "After", true
	updated, err := repo.Update(ctx, g.ID, grid.Update{Name: &name, IsPublic: &public})
	require.NoError(t, err)
	assert.Equal(t, "After", updated.Name)
	assert.True(t, updated.IsPublic)

	empty := ""
	_, err = repo.Update(ctx, g.ID, grid.Update{Name: &empty})
	assert.ErrorIs(t, err, grid.ErrInvalidGrid)
	stored, err := repo.Get(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, "After", stored.Name, "rejected update leaves the grid unchanged")

	require.NoError(t, repo.Delete(ctx, g.ID))
	assert.ErrorIs(t, repo.Delete(ctx, g.ID), postgres.ErrGridNotFound)
}

func TestGridRepository_FindFiltersAndOrders(t *testing.T) {
	ctx := context.Background()
	repo := postgres.NewGridRepository(testutil.NewPool(t))

	water := map[string]any{"name": "Ewiyar", "element": "Water", "rarity": "SR", "atk1": float64(300), "hp1": float64(10)}
	fire, err := repo.Create(ctx, grid.Grid{Name: "Fire 100%", IsPublic: true, UserID: "gran",
		Weapons: map[int]grid.WeaponEntry{1: {WeaponID: "1", WeaponData: fireSword(2000)}}})
	require.NoError(t, err)
	wet, err := repo.Create(ctx, grid.Grid{Name: "Water farm", Description: "fast fire clears", IsPublic: true,
		Weapons: map[int]grid.WeaponEntry{1: {WeaponID: "2", WeaponData: water}}})
	require.NoError(t, err)
	_, err = repo.Create(ctx, grid.Grid{Name: "Private fire", UserID: "gran"})
	require.NoError(t, err)

	public := true
	page := catalog.Page{Page: 1, Limit: 10}

	grids, total, err := repo.Find(ctx, grid.Filter{Public: &public, Element: "Fire"}, grid.OrderViews, page)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, fire.ID, grids[0].ID)

	minAtk := 1000
	_, total, err = repo.Find(ctx, grid.Filter{MinAtk: &minAtk}, grid.OrderUpdated, page)
	require.NoError(t, err)
	assert.Equal(t, 1, total)

	_, total, err = repo.Find(ctx, grid.Filter{UserID: "gran"}, grid.OrderUpdated, page)
	require.NoError(t, err)
	assert.Equal(t, 2, total)

	_, total, err = repo.Find(ctx, grid.Filter{Query: "FIRE"}, grid.OrderUpdated, page)
	require.NoError(t, err)
	assert.Equal(t, 3, total, "query matches name or description")

	_, total, err = repo.Find(ctx, grid.Filter{Name: "100%"}, grid.OrderUpdated, page)
	require.NoError(t, err)
	assert.Equal(t, 1, total, "percent is matched literally")

	_, err = repo.Increment(ctx, wet.ID, grid.CounterViews)
	require.NoError(t, err)
	grids, _, err = repo.Find(ctx, grid.Filter{Public: &public}, grid.OrderPopular, page)
	require.NoError(t, err)
	require.Len(t, grids, 2)
	assert.Equal(t, wet.ID, grids[0].ID)

	grids, _, err = repo.Find(ctx, grid.Filter{Public: &public}, grid.OrderRecent, catalog.Page{Page: 1, Limit: 1})
	require.NoError(t, err)
	require.Len(t, grids, 1)
	assert.Equal(t, wet.ID, grids[0].ID)
}

func TestGridRepository_IncrementAndSummary(t *testing.T) {
	ctx := context.Background()
	repo := postgres.NewGridRepository(testutil.NewPool(t))

	empty, err := repo.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, grid.Summary{}, empty)

	a, err := repo.Create(ctx, grid.Grid{Name: "A", IsPublic: true,
		Weapons: map[int]grid.WeaponEntry{1: {WeaponID: "1", WeaponData: fireSword(1000)}}})
	require.NoError(t, err)
	_, err = repo.Create(ctx, grid.Grid{Name: "B"})
	require.NoError(t, err)

	n, err := repo.Increment(ctx, a.ID, grid.CounterLikes)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	n, err = repo.Increment(ctx, a.ID, grid.CounterLikes)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	_, err = repo.Increment(ctx, a.ID, grid.CounterDownloads)
	require.NoError(t, err)

	_, err = repo.Increment(ctx, "missing", grid.CounterViews)
	assert.ErrorIs(t, err, postgres.ErrGridNotFound)
	_, err = repo.Increment(ctx, a.ID, grid.Counter("seq"))
	assert.Error(t, err)

	s, err := repo.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, grid.Summary{
		TotalGrids: 2, PublicGrids: 1, PrivateGrids: 1,
		TotalLikes: 2, TotalDownloads: 1,
		AvgAtk: 500, AvgHP: 15,
	}, s)
}
