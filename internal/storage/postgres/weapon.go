package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/gbcatalog/internal/catalog"
)

// ErrWeaponNotFound is returned when a weapon lookup yields no results.
var ErrWeaponNotFound = errors.New("weapon not found")

// ErrWeaponExists is returned when a weapon id is already stored.
var ErrWeaponExists = errors.New("weapon already exists")

// searchFields are the document fields matched by WeaponRepository.Search.
// Skill names are stored under either key convention.
var searchFields = []string{
	"name", "title",
	"s1 name", "s2 name", "s3 name",
	"s1_name", "s2_name", "s3_name",
}

// WeaponRepository stores weapon documents as JSONB.
type WeaponRepository struct {
	db *pgxpool.Pool
}

// NewWeaponRepository creates a WeaponRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewWeaponRepository(db *pgxpool.Pool) *WeaponRepository {
	return &WeaponRepository{db: db}
}

// Find returns the page of weapons matching filter, in insertion order, and the
// total number of matches.
//
// Postcondition: len(result) <= page.Limit; total counts every match.
func (r *WeaponRepository) Find(ctx context.Context, filter catalog.WeaponFilter, page catalog.Page) ([]catalog.Weapon, int, error) {
	return r.query(ctx, weaponWhere(filter), page)
}

// Search returns the page of weapons whose name, title or skill names contain q,
// case-insensitively, and the total number of matches.
//
// Precondition: q must be non-empty.
func (r *WeaponRepository) Search(ctx context.Context, q string, page catalog.Page) ([]catalog.Weapon, int, error) {
	return r.query(ctx, searchWhere(q), page)
}

func (r *WeaponRepository) query(ctx context.Context, where *whereBuilder, page catalog.Page) ([]catalog.Weapon, int, error) {
	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM weapons`+where.sql(), where.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting weapons: %w", err)
	}
	if total == 0 {
		return []catalog.Weapon{}, 0, nil
	}

	limit := where.arg(page.Limit)
	offset := where.arg(page.Offset())
	rows, err := r.db.Query(ctx,
		`SELECT doc FROM weapons`+where.sql()+` ORDER BY seq LIMIT `+limit+` OFFSET `+offset,
		where.args...,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("querying weapons: %w", err)
	}
	defer rows.Close()

	weapons := make([]catalog.Weapon, 0, page.Limit)
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, 0, fmt.Errorf("scanning weapon: %w", err)
		}
		w, err := decodeWeapon(raw)
		if err != nil {
			return nil, 0, err
		}
		weapons = append(weapons, w)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterating weapons: %w", err)
	}
	return weapons, total, nil
}

// Get retrieves a weapon by id. Numeric and string ids share one key space, so
// "42" finds a document stored with id 42.
//
// Postcondition: Returns the weapon or ErrWeaponNotFound.
func (r *WeaponRepository) Get(ctx context.Context, id string) (catalog.Weapon, error) {
	var raw []byte
	err := r.db.QueryRow(ctx, `SELECT doc FROM weapons WHERE id = $1`, id).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrWeaponNotFound
		}
		return nil, fmt.Errorf("querying weapon %q: %w", id, err)
	}
	return decodeWeapon(raw)
}

// Insert stores w. A document without an id is assigned a random one.
//
// Postcondition: Returns the stored document, or ErrWeaponExists on an id clash.
func (r *WeaponRepository) Insert(ctx context.Context, w catalog.Weapon) (catalog.Weapon, error) {
	doc, id, err := encodeWeapon(w)
	if err != nil {
		return nil, err
	}
	if _, err := r.db.Exec(ctx, `INSERT INTO weapons (id, doc) VALUES ($1, $2)`, id, doc); err != nil {
		if isDuplicateKeyError(err) {
			return nil, fmt.Errorf("%w: %s", ErrWeaponExists, id)
		}
		return nil, fmt.Errorf("inserting weapon %q: %w", id, err)
	}
	return decodeWeapon(doc)
}

// ReplaceAll atomically replaces the weapon collection with weapons, keeping
// their order.
//
// Postcondition: Returns the number of stored weapons, or an error with the
// previous collection intact.
func (r *WeaponRepository) ReplaceAll(ctx context.Context, weapons []catalog.Weapon) (int, error) {
	rows := make([][]any, 0, len(weapons))
	for _, w := range weapons {
		doc, id, err := encodeWeapon(w)
		if err != nil {
			return 0, err
		}
		rows = append(rows, []any{id, doc})
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM weapons`); err != nil {
		return 0, fmt.Errorf("clearing weapons: %w", err)
	}
	n, err := tx.CopyFrom(ctx, pgx.Identifier{"weapons"}, []string{"id", "doc"}, pgx.CopyFromRows(rows))
	if err != nil {
		if isDuplicateKeyError(err) {
			return 0, fmt.Errorf("%w: duplicate id in import", ErrWeaponExists)
		}
		return 0, fmt.Errorf("copying weapons: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("committing weapons: %w", err)
	}
	return int(n), nil
}

func encodeWeapon(w catalog.Weapon) ([]byte, string, error) {
	id := w.ID()
	if id == "" {
		w = w.Clone()
		id = uuid.NewString()
		w["id"] = id
	}
	doc, err := json.Marshal(w)
	if err != nil {
		return nil, "", fmt.Errorf("encoding weapon %q: %w", id, err)
	}
	return doc, id, nil
}

func decodeWeapon(raw []byte) (catalog.Weapon, error) {
	var w catalog.Weapon
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, fmt.Errorf("decoding weapon: %w", err)
	}
	return w, nil
}

// whereBuilder accumulates AND-ed SQL conditions and their positional args.
type whereBuilder struct {
	clauses []string
	args    []any
}

// arg appends v and returns its placeholder.
func (b *whereBuilder) arg(v any) string {
	b.args = append(b.args, v)
	return fmt.Sprintf("$%d", len(b.args))
}

func (b *whereBuilder) add(clause string) {
	b.clauses = append(b.clauses, clause)
}

func (b *whereBuilder) sql() string {
	if len(b.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(b.clauses, " AND ")
}

// textField and numberField interpolate only the fixed field names used in
// this file, never caller input.
func textField(name string) string {
	return fmt.Sprintf("doc->>'%s'", name)
}

// numberField yields NULL for a non-numeric value so comparisons drop the row
// instead of failing the cast.
func numberField(name string) string {
	return fmt.Sprintf("(CASE WHEN jsonb_typeof(doc->'%[1]s') = 'number' THEN (doc->>'%[1]s')::numeric END)", name)
}

func weaponWhere(f catalog.WeaponFilter) *whereBuilder {
	b := &whereBuilder{}

	eq := f.Equalities()
	keys := make([]string, 0, len(eq))
	for k := range eq {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		b.add(textField(k) + " = " + b.arg(eq[k]))
	}

	bound := func(field, op string, v *int) {
		if v != nil {
			b.add(numberField(field) + " " + op + " " + b.arg(*v))
		}
	}
	bound("atk2", ">=", f.MinAtk)
	bound("atk2", "<=", f.MaxAtk)
	bound("hp2", ">=", f.MinHP)
	bound("hp2", "<=", f.MaxHP)
	bound("evo_max", "=", f.EvoMax)
	bound("evo_base", "=", f.EvoBase)
	return b
}

func searchWhere(q string) *whereBuilder {
	b := &whereBuilder{}
	p := b.arg(containsPattern(q))
	ors := make([]string, len(searchFields))
	for i, field := range searchFields {
		ors[i] = textField(field) + " ILIKE " + p
	}
	b.add("(" + strings.Join(ors, " OR ") + ")")
	return b
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern builds an ILIKE pattern matching q literally anywhere.
func containsPattern(q string) string {
	return "%" + likeEscaper.Replace(q) + "%"
}
