package api

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/cory-johannsen/gbcatalog/internal/catalog"
	"github.com/cory-johannsen/gbcatalog/internal/storage/postgres"
)

// Enrichment notes reported alongside weapon responses.
const (
	noteEnriched   = "skills enriched with calculated values"
	noteSkipped    = "skills not enriched for performance"
	noteFastListed = "fast listing without enrichment"
)

// Enrichment reports whether skill enrichment ran for a response.
type Enrichment struct {
	Enabled bool   `json:"enabled"`
	Note    string `json:"note"`
}

// WeaponPage is the listing envelope shared by every weapon list endpoint.
type WeaponPage struct {
	Weapons         []catalog.Weapon   `json:"weapons"`
	Pagination      catalog.Pagination `json:"pagination"`
	RequiredFilters map[string]string  `json:"requiredFilters,omitempty"`
	OptionalFilters map[string]any     `json:"optionalFilters,omitempty"`
	SearchTerm      string             `json:"searchTerm,omitempty"`
	Enrichment      Enrichment         `json:"enrichment"`
}

// enrichRequested reports the enrich toggle; only "false" disables it.
func enrichRequested(q url.Values) bool {
	return q.Get("enrich") != "false"
}

func enrichmentFor(enabled bool) Enrichment {
	if enabled {
		return Enrichment{Enabled: true, Note: noteEnriched}
	}
	return Enrichment{Enabled: false, Note: noteSkipped}
}

// appliedFilters renders the filter actually run, keyed by document field.
func appliedFilters(f catalog.WeaponFilter) map[string]any {
	out := make(map[string]any)
	for k, v := range f.Equalities() {
		out[k] = v
	}
	bounds := func(field string, lo, hi *int) {
		b := make(map[string]int)
		if lo != nil {
			b["gte"] = *lo
		}
		if hi != nil {
			b["lte"] = *hi
		}
		if len(b) > 0 {
			out[field] = b
		}
	}
	bounds("atk2", f.MinAtk, f.MaxAtk)
	bounds("hp2", f.MinHP, f.MaxHP)
	if f.EvoMax != nil {
		out["evo_max"] = *f.EvoMax
	}
	if f.EvoBase != nil {
		out["evo_base"] = *f.EvoBase
	}
	return out
}

// listing selects the behaviour of a weapon listing endpoint.
type listing struct {
	// strict requires the element and rarity parameters.
	strict bool
	// fast skips enrichment regardless of the enrich toggle.
	fast bool
}

func (s *Server) listWeapons(w http.ResponseWriter, r *http.Request) {
	s.findWeapons(w, r, listing{})
}

func (s *Server) listWeaponsFast(w http.ResponseWriter, r *http.Request) {
	s.findWeapons(w, r, listing{fast: true})
}

func (s *Server) filterWeapons(w http.ResponseWriter, r *http.Request) {
	s.findWeapons(w, r, listing{strict: true})
}

func (s *Server) filterWeaponsFast(w http.ResponseWriter, r *http.Request) {
	s.findWeapons(w, r, listing{strict: true, fast: true})
}

func (s *Server) findWeapons(w http.ResponseWriter, r *http.Request, l listing) {
	q := r.URL.Query()
	filter := catalog.FilterFromQuery(q)
	page := catalog.PageFromQuery(q)

	if l.strict && (filter.Element == "" || filter.Rarity == "") {
		writeError(w, http.StatusBadRequest, "missing parameters", "the 'element' and 'rarity' parameters are required")
		return
	}

	weapons, total, err := s.weapons.Find(r.Context(), filter, page)
	if err != nil {
		s.serverError(w, r, "failed to list weapons", err)
		return
	}

	body := WeaponPage{
		Weapons:    weapons,
		Pagination: page.Paginate(total),
		Enrichment: Enrichment{Enabled: false, Note: noteFastListed},
	}
	if !l.fast {
		enrich := enrichRequested(q)
		body.Weapons = s.enricher.EnrichListFast(r.Context(), weapons, enrich)
		body.Enrichment = enrichmentFor(enrich)
	}
	if l.strict {
		body.RequiredFilters = map[string]string{"element": filter.Element, "rarity": filter.Rarity}
		body.OptionalFilters = appliedFilters(filter)
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) searchWeapons(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	term := q.Get("q")
	if term == "" {
		writeError(w, http.StatusBadRequest, "search term required", "please provide a search term")
		return
	}
	page := catalog.PageFromQuery(q)
	enrich := enrichRequested(q)

	weapons, total, err := s.weapons.Search(r.Context(), term, page)
	if err != nil {
		s.serverError(w, r, "failed to search weapons", err)
		return
	}

	writeJSON(w, http.StatusOK, WeaponPage{
		Weapons:    s.enricher.EnrichListFast(r.Context(), weapons, enrich),
		Pagination: page.Paginate(total),
		SearchTerm: term,
		Enrichment: enrichmentFor(enrich),
	})
}

func (s *Server) getWeapon(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	enrich := enrichRequested(r.URL.Query())

	weapon, err := s.weapons.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, postgres.ErrWeaponNotFound) {
			writeError(w, http.StatusNotFound, "weapon not found", "the requested weapon does not exist")
			return
		}
		s.serverError(w, r, "failed to fetch weapon", err)
		return
	}

	if enrich {
		weapon = s.enricher.EnrichWeapon(r.Context(), weapon)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"weapon":     weapon,
		"enrichment": enrichmentFor(enrich),
	})
}
