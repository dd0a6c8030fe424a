package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/gbcatalog/internal/skill"
)

// ErrSkillStatsNotFound is returned when a skill stats lookup yields no results.
var ErrSkillStatsNotFound = errors.New("skill stats not found")

// StatsRepository stores skill stats reference records.
type StatsRepository struct {
	db *pgxpool.Pool
}

// NewStatsRepository creates a StatsRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewStatsRepository(db *pgxpool.Pool) *StatsRepository {
	return &StatsRepository{db: db}
}

const statsColumns = `name, description, notes, tables`

// All returns every record ordered by name.
func (r *StatsRepository) All(ctx context.Context) ([]skill.Record, error) {
	return r.list(ctx, `SELECT `+statsColumns+` FROM skill_stats ORDER BY name`)
}

// AllSkillStats implements skill.Source.
func (r *StatsRepository) AllSkillStats(ctx context.Context) ([]skill.Record, error) {
	return r.All(ctx)
}

// WithTables returns the records that carry at least one table.
func (r *StatsRepository) WithTables(ctx context.Context) ([]skill.Record, error) {
	return r.list(ctx,
		`SELECT `+statsColumns+` FROM skill_stats
		 WHERE jsonb_array_length(tables) > 0 ORDER BY name`)
}

// Search returns the records whose name or description contains q,
// case-insensitively.
//
// Precondition: q must be non-empty.
func (r *StatsRepository) Search(ctx context.Context, q string) ([]skill.Record, error) {
	return r.list(ctx,
		`SELECT `+statsColumns+` FROM skill_stats
		 WHERE name ILIKE $1 OR description ILIKE $1 ORDER BY name`,
		containsPattern(q))
}

// Get returns the record named name, ignoring case. When no name matches
// exactly, the first record whose name contains name is returned.
//
// Postcondition: Returns the record or ErrSkillStatsNotFound.
func (r *StatsRepository) Get(ctx context.Context, name string) (skill.Record, error) {
	rec, err := scanRecord(r.db.QueryRow(ctx,
		`SELECT `+statsColumns+` FROM skill_stats
		 WHERE name ILIKE $1
		 ORDER BY (LOWER(name) = LOWER($2)) DESC, name
		 LIMIT 1`,
		containsPattern(name), name,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return skill.Record{}, ErrSkillStatsNotFound
		}
		return skill.Record{}, fmt.Errorf("querying skill stats %q: %w", name, err)
	}
	return rec, nil
}

// ReplaceAll atomically replaces every record with records.
//
// Precondition: every record has a non-empty name, unique ignoring case.
// Postcondition: Returns the number of stored records, or an error with the
// previous records intact.
func (r *StatsRepository) ReplaceAll(ctx context.Context, records []skill.Record) (int, error) {
	rows := make([][]any, 0, len(records))
	for i, rec := range records {
		name := strings.TrimSpace(rec.Name)
		if name == "" {
			return 0, fmt.Errorf("skill stats record %d has no name", i)
		}
		tables := rec.Tables
		if tables == nil {
			tables = []skill.Table{}
		}
		raw, err := json.Marshal(tables)
		if err != nil {
			return 0, fmt.Errorf("encoding tables for %q: %w", name, err)
		}
		rows = append(rows, []any{name, rec.Description, rec.Notes, raw})
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM skill_stats`); err != nil {
		return 0, fmt.Errorf("clearing skill stats: %w", err)
	}
	n, err := tx.CopyFrom(ctx,
		pgx.Identifier{"skill_stats"},
		[]string{"name", "description", "notes", "tables"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return 0, fmt.Errorf("duplicate skill stats name in import: %w", err)
		}
		return 0, fmt.Errorf("copying skill stats: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("committing skill stats: %w", err)
	}
	return int(n), nil
}

func (r *StatsRepository) list(ctx context.Context, sql string, args ...any) ([]skill.Record, error) {
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("querying skill stats: %w", err)
	}
	defer rows.Close()

	records := []skill.Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning skill stats: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating skill stats: %w", err)
	}
	return records, nil
}

func scanRecord(row pgx.Row) (skill.Record, error) {
	var (
		rec    skill.Record
		tables []byte
	)
	if err := row.Scan(&rec.Name, &rec.Description, &rec.Notes, &tables); err != nil {
		return skill.Record{}, err
	}
	if err := json.Unmarshal(tables, &rec.Tables); err != nil {
		return skill.Record{}, fmt.Errorf("decoding tables for %q: %w", rec.Name, err)
	}
	return rec, nil
}
