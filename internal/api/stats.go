package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/cory-johannsen/gbcatalog/internal/skill"
	"github.com/cory-johannsen/gbcatalog/internal/storage/postgres"
)

// StatsList is the envelope of the skill stats list endpoints.
type StatsList struct {
	SkillStats []skill.Record `json:"skills_stats"`
	Count      int            `json:"count"`
	SearchTerm string         `json:"searchTerm,omitempty"`
}

func (s *Server) listStats(w http.ResponseWriter, r *http.Request) {
	records, err := s.stats.All(r.Context())
	if err != nil {
		s.serverError(w, r, "failed to list skill stats", err)
		return
	}
	writeJSON(w, http.StatusOK, StatsList{SkillStats: records, Count: len(records)})
}

func (s *Server) statsWithTables(w http.ResponseWriter, r *http.Request) {
	records, err := s.stats.WithTables(r.Context())
	if err != nil {
		s.serverError(w, r, "failed to list skill stats with tables", err)
		return
	}
	writeJSON(w, http.StatusOK, StatsList{SkillStats: records, Count: len(records)})
}

func (s *Server) searchStats(w http.ResponseWriter, r *http.Request) {
	term := r.URL.Query().Get("q")
	if term == "" {
		writeError(w, http.StatusBadRequest, "search term required", "please provide a search term")
		return
	}
	records, err := s.stats.Search(r.Context(), term)
	if err != nil {
		s.serverError(w, r, "failed to search skill stats", err)
		return
	}
	writeJSON(w, http.StatusOK, StatsList{SkillStats: records, Count: len(records), SearchTerm: term})
}

func (s *Server) getStats(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	rec, err := s.stats.Get(r.Context(), name)
	if err != nil {
		if errors.Is(err, postgres.ErrSkillStatsNotFound) {
			writeError(w, http.StatusNotFound, "skill stats not found", fmt.Sprintf("no skill stats found with the name: %s", name))
			return
		}
		s.serverError(w, r, "failed to fetch skill stats", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]skill.Record{"skill_stats": rec})
}
