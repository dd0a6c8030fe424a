// Package api serves the catalog's JSON HTTP surface: enriched weapon listings,
// skill stats reference data, user accounts and weapon grids.
package api

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/gbcatalog/internal/catalog"
	"github.com/cory-johannsen/gbcatalog/internal/grid"
	"github.com/cory-johannsen/gbcatalog/internal/observability"
	"github.com/cory-johannsen/gbcatalog/internal/skill"
	"github.com/cory-johannsen/gbcatalog/internal/storage/postgres"
)

// healthTimeout bounds the database ping behind GET /health.
const healthTimeout = 2 * time.Second

// WeaponStore reads weapon documents.
type WeaponStore interface {
	Find(ctx context.Context, filter catalog.WeaponFilter, page catalog.Page) ([]catalog.Weapon, int, error)
	Search(ctx context.Context, q string, page catalog.Page) ([]catalog.Weapon, int, error)
	Get(ctx context.Context, id string) (catalog.Weapon, error)
}

// StatsStore reads skill stats reference records.
type StatsStore interface {
	All(ctx context.Context) ([]skill.Record, error)
	WithTables(ctx context.Context) ([]skill.Record, error)
	Search(ctx context.Context, q string) ([]skill.Record, error)
	Get(ctx context.Context, name string) (skill.Record, error)
}

// AccountStore registers and authenticates users.
type AccountStore interface {
	Create(ctx context.Context, reg postgres.Registration) (postgres.Account, error)
	Authenticate(ctx context.Context, username, password string) (postgres.Account, error)
}

// GridStore persists weapon grids.
type GridStore interface {
	Create(ctx context.Context, g grid.Grid) (grid.Grid, error)
	Get(ctx context.Context, id string) (grid.Grid, error)
	Find(ctx context.Context, filter grid.Filter, order grid.Order, page catalog.Page) ([]grid.Grid, int, error)
	Update(ctx context.Context, id string, u grid.Update) (grid.Grid, error)
	Delete(ctx context.Context, id string) error
	SetWeapon(ctx context.Context, id string, slot int, e grid.WeaponEntry) (grid.Grid, error)
	RemoveWeapon(ctx context.Context, id string, slot int) (grid.Grid, error)
	SetSummon(ctx context.Context, id string, slot int, e grid.SummonEntry) (grid.Grid, error)
	RemoveSummon(ctx context.Context, id string, slot int) (grid.Grid, error)
	Recalculate(ctx context.Context, id string) (grid.Grid, error)
	Increment(ctx context.Context, id string, c grid.Counter) (int64, error)
	Summary(ctx context.Context) (grid.Summary, error)
}

// WeaponEnricher attaches computed skill data to weapons.
type WeaponEnricher interface {
	EnrichWeapon(ctx context.Context, w catalog.Weapon) catalog.Weapon
	EnrichListFast(ctx context.Context, weapons []catalog.Weapon, enabled bool) []catalog.Weapon
}

// Deps are the collaborators a Server is built from.
type Deps struct {
	Weapons  WeaponStore
	Stats    StatsStore
	Accounts AccountStore
	Grids    GridStore
	Enricher WeaponEnricher
	// Health reports whether the backing database is reachable.
	Health func(ctx context.Context) error
	Logger *zap.Logger
}

// Server routes catalog API requests.
type Server struct {
	weapons  WeaponStore
	stats    StatsStore
	accounts AccountStore
	grids    GridStore
	enricher WeaponEnricher
	health   func(ctx context.Context) error
	logger   *zap.Logger
}

// NewServer creates a Server.
//
// Precondition: every field of d except Health must be non-nil.
func NewServer(d Deps) *Server {
	return &Server{
		weapons:  d.Weapons,
		stats:    d.Stats,
		accounts: d.Accounts,
		grids:    d.Grids,
		enricher: d.Enricher,
		health:   d.Health,
		logger:   d.Logger,
	}
}

// Handler returns the routed, request-logged handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/weapons-enriched", s.listWeapons)
	mux.HandleFunc("GET /api/weapons-enriched/filter", s.filterWeapons)
	mux.HandleFunc("GET /api/weapons-enriched/search", s.searchWeapons)
	mux.HandleFunc("GET /api/weapons-enriched/fast", s.listWeaponsFast)
	mux.HandleFunc("GET /api/weapons-enriched/filter/fast", s.filterWeaponsFast)
	mux.HandleFunc("GET /api/weapons-enriched/{id}", s.getWeapon)

	mux.HandleFunc("GET /api/skills-stats", s.listStats)
	mux.HandleFunc("GET /api/skills-stats/search", s.searchStats)
	mux.HandleFunc("GET /api/skills-stats/with-tables", s.statsWithTables)
	mux.HandleFunc("GET /api/skills-stats/{name}", s.getStats)

	mux.HandleFunc("POST /api/users/register", s.register)
	mux.HandleFunc("POST /api/users/login", s.login)

	mux.HandleFunc("GET /api/weapon-grids", s.listPublicGrids)
	mux.HandleFunc("POST /api/weapon-grids", s.createGrid)
	mux.HandleFunc("GET /api/weapon-grids/search", s.searchGrids)
	mux.HandleFunc("GET /api/weapon-grids/popular", s.popularGrids)
	mux.HandleFunc("GET /api/weapon-grids/recent", s.recentGrids)
	mux.HandleFunc("GET /api/weapon-grids/stats", s.gridStats)
	mux.HandleFunc("GET /api/weapon-grids/user/{userId}", s.listUserGrids)
	mux.HandleFunc("GET /api/weapon-grids/{id}", s.getGrid)
	mux.HandleFunc("PUT /api/weapon-grids/{id}", s.updateGrid)
	mux.HandleFunc("DELETE /api/weapon-grids/{id}", s.deleteGrid)
	mux.HandleFunc("POST /api/weapon-grids/{id}/weapons", s.addGridWeapon)
	mux.HandleFunc("DELETE /api/weapon-grids/{id}/weapons/{slot}", s.removeGridWeapon)
	mux.HandleFunc("POST /api/weapon-grids/{id}/summons", s.addGridSummon)
	mux.HandleFunc("DELETE /api/weapon-grids/{id}/summons/{slot}", s.removeGridSummon)
	mux.HandleFunc("POST /api/weapon-grids/{id}/like", s.likeGrid)
	mux.HandleFunc("POST /api/weapon-grids/{id}/download", s.downloadGrid)
	mux.HandleFunc("POST /api/weapon-grids/{id}/recalculate", s.recalculateGrid)

	mux.HandleFunc("GET /health", s.healthz)

	return observability.RequestLogger(s.logger, s.recoverPanics(mux))
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()
		if err := s.health(ctx); err != nil {
			s.logger.Warn("health check failed", zap.Error(err))
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
