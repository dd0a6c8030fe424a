package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/gbcatalog/internal/catalog"
	"github.com/cory-johannsen/gbcatalog/internal/grid"
)

// ErrGridNotFound is returned when a grid lookup yields no results.
var ErrGridNotFound = errors.New("grid not found")

const gridColumns = `id, user_id, name, description, is_public, weapons, summons,
	total_atk, total_hp, weapon_count, summon_count, elements, rarities,
	views, likes, downloads, created_at, updated_at`

// gridOrders maps each listing order to its ORDER BY clause.
var gridOrders = map[grid.Order]string{
	grid.OrderUpdated: "updated_at DESC, id",
	grid.OrderViews:   "views DESC, updated_at DESC, id",
	grid.OrderPopular: "views DESC, likes DESC, id",
	grid.OrderRecent:  "created_at DESC, id",
}

// GridRepository stores weapon grids. Entries are JSONB keyed by slot; the
// derived metadata lives in plain columns so listings can filter on it.
type GridRepository struct {
	db  *pgxpool.Pool
	now func() time.Time
}

// NewGridRepository creates a GridRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewGridRepository(db *pgxpool.Pool) *GridRepository {
	return &GridRepository{db: db, now: time.Now}
}

// Create stores g under a new id. An empty UserID becomes grid.DefaultUserID.
//
// Postcondition: Returns the stored grid with recalculated metadata and zero
// counters, or an error wrapping grid.ErrInvalidGrid.
func (r *GridRepository) Create(ctx context.Context, g grid.Grid) (grid.Grid, error) {
	if err := g.Validate(); err != nil {
		return grid.Grid{}, err
	}
	now := r.now().UTC()
	g.ID = uuid.NewString()
	if g.UserID == "" {
		g.UserID = grid.DefaultUserID
	}
	g.Stats = grid.Counters{}
	g.CreatedAt, g.UpdatedAt = now, now
	g.Weapons, g.Summons = maps.Clone(g.Weapons), maps.Clone(g.Summons)
	for slot, e := range g.Weapons {
		if e.SelectedLevel == 0 {
			e.SelectedLevel = grid.DefaultWeaponLevel
		}
		e.AddedAt = now
		g.Weapons[slot] = e
	}
	for slot, e := range g.Summons {
		e.AddedAt = now
		g.Summons[slot] = e
	}
	g.Recalculate()

	weapons, summons, err := encodeEntries(g)
	if err != nil {
		return grid.Grid{}, err
	}
	m := g.Metadata
	_, err = r.db.Exec(ctx, `
		INSERT INTO weapon_grids (id, user_id, name, description, is_public, weapons, summons,
			total_atk, total_hp, weapon_count, summon_count, elements, rarities, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		g.ID, g.UserID, g.Name, g.Description, g.IsPublic, weapons, summons,
		m.TotalAtk, m.TotalHP, m.WeaponCount, m.SummonCount, m.Elements, m.Rarities, g.CreatedAt, g.UpdatedAt,
	)
	if err != nil {
		return grid.Grid{}, fmt.Errorf("inserting grid: %w", err)
	}
	return g, nil
}

// Get retrieves a grid by id.
//
// Postcondition: Returns the grid or ErrGridNotFound.
func (r *GridRepository) Get(ctx context.Context, id string) (grid.Grid, error) {
	g, err := scanGrid(r.db.QueryRow(ctx, `SELECT `+gridColumns+` FROM weapon_grids WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return grid.Grid{}, ErrGridNotFound
		}
		return grid.Grid{}, fmt.Errorf("querying grid %q: %w", id, err)
	}
	return g, nil
}

// Find returns the page of grids matching filter in the given order, and the
// total number of matches.
//
// Postcondition: len(result) <= page.Limit; total counts every match.
func (r *GridRepository) Find(ctx context.Context, filter grid.Filter, order grid.Order, page catalog.Page) ([]grid.Grid, int, error) {
	orderBy, ok := gridOrders[order]
	if !ok {
		return nil, 0, fmt.Errorf("unknown grid order %d", order)
	}
	where := gridWhere(filter)

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM weapon_grids`+where.sql(), where.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting grids: %w", err)
	}
	if total == 0 {
		return []grid.Grid{}, 0, nil
	}

	limit := where.arg(page.Limit)
	offset := where.arg(page.Offset())
	rows, err := r.db.Query(ctx,
		`SELECT `+gridColumns+` FROM weapon_grids`+where.sql()+` ORDER BY `+orderBy+` LIMIT `+limit+` OFFSET `+offset,
		where.args...,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("querying grids: %w", err)
	}
	defer rows.Close()

	grids := make([]grid.Grid, 0, page.Limit)
	for rows.Next() {
		g, err := scanGrid(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scanning grid: %w", err)
		}
		grids = append(grids, g)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterating grids: %w", err)
	}
	return grids, total, nil
}

// Update applies u to the grid with the given id.
//
// Postcondition: Returns the updated grid, ErrGridNotFound, or an error
// wrapping grid.ErrInvalidGrid with the grid unchanged.
func (r *GridRepository) Update(ctx context.Context, id string, u grid.Update) (grid.Grid, error) {
	return r.mutate(ctx, id, func(g *grid.Grid, now time.Time) error {
		if err := u.Apply(g); err != nil {
			return err
		}
		g.UpdatedAt = now
		return nil
	})
}

// Delete removes the grid with the given id.
//
// Postcondition: Returns nil or ErrGridNotFound.
func (r *GridRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM weapon_grids WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting grid %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrGridNotFound
	}
	return nil
}

// SetWeapon places e in slot of the grid with the given id.
func (r *GridRepository) SetWeapon(ctx context.Context, id string, slot int, e grid.WeaponEntry) (grid.Grid, error) {
	return r.mutate(ctx, id, func(g *grid.Grid, now time.Time) error {
		return g.SetWeapon(slot, e, now)
	})
}

// RemoveWeapon empties a weapon slot of the grid with the given id.
func (r *GridRepository) RemoveWeapon(ctx context.Context, id string, slot int) (grid.Grid, error) {
	return r.mutate(ctx, id, func(g *grid.Grid, now time.Time) error {
		return g.RemoveWeapon(slot, now)
	})
}

// SetSummon places e in slot of the grid with the given id.
func (r *GridRepository) SetSummon(ctx context.Context, id string, slot int, e grid.SummonEntry) (grid.Grid, error) {
	return r.mutate(ctx, id, func(g *grid.Grid, now time.Time) error {
		return g.SetSummon(slot, e, now)
	})
}

// RemoveSummon empties a summon slot of the grid with the given id.
func (r *GridRepository) RemoveSummon(ctx context.Context, id string, slot int) (grid.Grid, error) {
	return r.mutate(ctx, id, func(g *grid.Grid, now time.Time) error {
		return g.RemoveSummon(slot, now)
	})
}

// Recalculate rederives the stored metadata of the grid with the given id
// from its entries.
func (r *GridRepository) Recalculate(ctx context.Context, id string) (grid.Grid, error) {
	return r.mutate(ctx, id, func(g *grid.Grid, now time.Time) error {
		g.Recalculate()
		g.UpdatedAt = now
		return nil
	})
}

// mutate applies fn to the grid with the given id under a row lock and writes
// the result back.
//
// Postcondition: The stored grid is unchanged when the error is non-nil.
func (r *GridRepository) mutate(ctx context.Context, id string, fn func(g *grid.Grid, now time.Time) error) (grid.Grid, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return grid.Grid{}, fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	g, err := scanGrid(tx.QueryRow(ctx, `SELECT `+gridColumns+` FROM weapon_grids WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return grid.Grid{}, ErrGridNotFound
		}
		return grid.Grid{}, fmt.Errorf("locking grid %q: %w", id, err)
	}
	if err := fn(&g, r.now().UTC()); err != nil {
		return grid.Grid{}, err
	}

	weapons, summons, err := encodeEntries(g)
	if err != nil {
		return grid.Grid{}, err
	}
	m := g.Metadata
	_, err = tx.Exec(ctx, `
		UPDATE weapon_grids SET name = $2, description = $3, is_public = $4, weapons = $5, summons = $6,
			total_atk = $7, total_hp = $8, weapon_count = $9, summon_count = $10, elements = $11, rarities = $12,
			updated_at = $13
		WHERE id = $1`,
		g.ID, g.Name, g.Description, g.IsPublic, weapons, summons,
		m.TotalAtk, m.TotalHP, m.WeaponCount, m.SummonCount, m.Elements, m.Rarities, g.UpdatedAt,
	)
	if err != nil {
		return grid.Grid{}, fmt.Errorf("updating grid %q: %w", id, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return grid.Grid{}, fmt.Errorf("committing grid %q: %w", id, err)
	}
	return g, nil
}

// Increment adds one to counter c of the grid with the given id. It does not
// touch updated_at.
//
// Postcondition: Returns the new count, or ErrGridNotFound.
func (r *GridRepository) Increment(ctx context.Context, id string, c grid.Counter) (int64, error) {
	col, err := c.Column()
	if err != nil {
		return 0, err
	}
	var n int64
	err = r.db.QueryRow(ctx,
		`UPDATE weapon_grids SET `+col+` = `+col+` + 1 WHERE id = $1 RETURNING `+col, id,
	).Scan(&n)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrGridNotFound
		}
		return 0, fmt.Errorf("incrementing %s of grid %q: %w", col, id, err)
	}
	return n, nil
}

// Summary aggregates every stored grid. Averages are zero when no grid exists.
func (r *GridRepository) Summary(ctx context.Context) (grid.Summary, error) {
	var s grid.Summary
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(*),
			COUNT(*) FILTER (WHERE is_public),
			COUNT(*) FILTER (WHERE NOT is_public),
			COALESCE(SUM(views), 0)::bigint,
			COALESCE(SUM(likes), 0)::bigint,
			COALESCE(SUM(downloads), 0)::bigint,
			COALESCE(AVG(total_atk), 0)::float8,
			COALESCE(AVG(total_hp), 0)::float8
		FROM weapon_grids`,
	).Scan(&s.TotalGrids, &s.PublicGrids, &s.PrivateGrids,
		&s.TotalViews, &s.TotalLikes, &s.TotalDownloads, &s.AvgAtk, &s.AvgHP)
	if err != nil {
		return grid.Summary{}, fmt.Errorf("aggregating grids: %w", err)
	}
	return s, nil
}

func encodeEntries(g grid.Grid) (weapons, summons []byte, err error) {
	if weapons, err = json.Marshal(nonNil(g.Weapons)); err != nil {
		return nil, nil, fmt.Errorf("encoding weapons of grid %q: %w", g.ID, err)
	}
	if summons, err = json.Marshal(nonNil(g.Summons)); err != nil {
		return nil, nil, fmt.Errorf("encoding summons of grid %q: %w", g.ID, err)
	}
	return weapons, summons, nil
}

func nonNil[E any](m map[int]E) map[int]E {
	if m == nil {
		return map[int]E{}
	}
	return m
}

func scanGrid(row pgx.Row) (grid.Grid, error) {
	var (
		g                grid.Grid
		weapons, summons []byte
	)
	err := row.Scan(&g.ID, &g.UserID, &g.Name, &g.Description, &g.IsPublic, &weapons, &summons,
		&g.Metadata.TotalAtk, &g.Metadata.TotalHP, &g.Metadata.WeaponCount, &g.Metadata.SummonCount,
		&g.Metadata.Elements, &g.Metadata.Rarities,
		&g.Stats.Views, &g.Stats.Likes, &g.Stats.Downloads, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		return grid.Grid{}, err
	}
	if err := json.Unmarshal(weapons, &g.Weapons); err != nil {
		return grid.Grid{}, fmt.Errorf("decoding weapons of grid %q: %w", g.ID, err)
	}
	if err := json.Unmarshal(summons, &g.Summons); err != nil {
		return grid.Grid{}, fmt.Errorf("decoding summons of grid %q: %w", g.ID, err)
	}
	return g, nil
}

func gridWhere(f grid.Filter) *whereBuilder {
	b := &whereBuilder{}
	if f.Query != "" {
		p := b.arg(containsPattern(f.Query))
		b.add("(name ILIKE " + p + " OR description ILIKE " + p + ")")
	}
	if f.Public != nil {
		b.add("is_public = " + b.arg(*f.Public))
	}
	if f.UserID != "" {
		b.add("user_id = " + b.arg(f.UserID))
	}
	if f.Element != "" {
		b.add(b.arg(f.Element) + " = ANY(elements)")
	}
	if f.Rarity != "" {
		b.add(b.arg(f.Rarity) + " = ANY(rarities)")
	}
	if f.Name != "" {
		b.add("name ILIKE " + b.arg(containsPattern(f.Name)))
	}
	if f.MinAtk != nil {
		b.add("total_atk >= " + b.arg(*f.MinAtk))
	}
	if f.MaxAtk != nil {
		b.add("total_atk <= " + b.arg(*f.MaxAtk))
	}
	return b
}
