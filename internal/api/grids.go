package api

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"go.uber.org/zap"

	"github.com/cory-johannsen/gbcatalog/internal/catalog"
	"github.com/cory-johannsen/gbcatalog/internal/grid"
	"github.com/cory-johannsen/gbcatalog/internal/storage/postgres"
)

// defaultGridLimit is the page size of grid listings that name none.
const defaultGridLimit = 10

// GridPage is the envelope of paginated grid listings.
type GridPage struct {
	WeaponGrids []grid.Grid   `json:"weaponGrids"`
	Pagination  grid.PageInfo `json:"pagination"`
	SearchTerm  string        `json:"searchTerm,omitempty"`
}

// GridList is the envelope of the popular and recent grid listings.
type GridList struct {
	WeaponGrids []grid.Grid `json:"weaponGrids"`
	Count       int         `json:"count"`
}

// GridResponse wraps a single grid.
type GridResponse struct {
	Message    string    `json:"message,omitempty"`
	WeaponGrid grid.Grid `json:"weaponGrid"`
}

type weaponSlotRequest struct {
	Slot       int            `json:"slot"`
	WeaponID   grid.DocID     `json:"weaponId"`
	WeaponData map[string]any `json:"weaponData"`
	Level      int            `json:"level"`
}

type summonSlotRequest struct {
	Slot        int            `json:"slot"`
	SummonID    grid.DocID     `json:"summonId"`
	SummonData  map[string]any `json:"summonData"`
	Level       int            `json:"level"`
	SpecialAura *string        `json:"selectedSpecialAura"`
}

// gridPage reads page and limit like weapon listings but with a smaller
// default page size.
func gridPage(q url.Values) catalog.Page {
	p := catalog.PageFromQuery(q)
	if n, err := strconv.Atoi(q.Get("limit")); err != nil || n <= 0 {
		p.Limit = defaultGridLimit
	}
	return p
}

// gridError maps store errors to responses and reports whether err was nil.
func (s *Server) gridError(w http.ResponseWriter, r *http.Request, message string, err error) bool {
	switch {
	case err == nil:
		return true
	case errors.Is(err, postgres.ErrGridNotFound):
		writeError(w, http.StatusNotFound, "grid not found", "the requested grid does not exist")
	case errors.Is(err, grid.ErrSlotEmpty):
		writeError(w, http.StatusNotFound, "slot empty", err.Error())
	case errors.Is(err, grid.ErrInvalidGrid):
		writeError(w, http.StatusBadRequest, "invalid grid", err.Error())
	default:
		s.serverError(w, r, message, err)
	}
	return false
}

func (s *Server) listGrids(w http.ResponseWriter, r *http.Request, filter grid.Filter, order grid.Order, term string) {
	page := gridPage(r.URL.Query())
	grids, total, err := s.grids.Find(r.Context(), filter, order, page)
	if !s.gridError(w, r, "failed to list grids", err) {
		return
	}
	writeJSON(w, http.StatusOK, GridPage{
		WeaponGrids: grids,
		Pagination:  grid.NewPageInfo(page.Page, page.Limit, total),
		SearchTerm:  term,
	})
}

func (s *Server) listPublicGrids(w http.ResponseWriter, r *http.Request) {
	filter := grid.FilterFromQuery(r.URL.Query())
	public := true
	filter.Public = &public
	filter.UserID = ""
	s.listGrids(w, r, filter, grid.OrderViews, "")
}

func (s *Server) listUserGrids(w http.ResponseWriter, r *http.Request) {
	s.listGrids(w, r, grid.Filter{UserID: r.PathValue("userId")}, grid.OrderUpdated, "")
}

func (s *Server) searchGrids(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	term := q.Get("q")
	if term == "" {
		writeError(w, http.StatusBadRequest, "search term required", "the 'q' parameter is required")
		return
	}
	filter := grid.FilterFromQuery(q)
	filter.Query = term
	filter.Name, filter.MinAtk, filter.MaxAtk = "", nil, nil
	s.listGrids(w, r, filter, grid.OrderUpdated, term)
}

func (s *Server) popularGrids(w http.ResponseWriter, r *http.Request) {
	s.topGrids(w, r, grid.OrderPopular)
}

func (s *Server) recentGrids(w http.ResponseWriter, r *http.Request) {
	s.topGrids(w, r, grid.OrderRecent)
}

func (s *Server) topGrids(w http.ResponseWriter, r *http.Request, order grid.Order) {
	page := gridPage(r.URL.Query())
	page.Page = 1
	public := true
	grids, _, err := s.grids.Find(r.Context(), grid.Filter{Public: &public}, order, page)
	if !s.gridError(w, r, "failed to list grids", err) {
		return
	}
	writeJSON(w, http.StatusOK, GridList{WeaponGrids: grids, Count: len(grids)})
}

func (s *Server) gridStats(w http.ResponseWriter, r *http.Request) {
	summary, err := s.grids.Summary(r.Context())
	if !s.gridError(w, r, "failed to aggregate grids", err) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]grid.Summary{"stats": summary})
}

// getGrid counts a view before returning the grid.
func (s *Server) getGrid(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := s.grids.Increment(r.Context(), id, grid.CounterViews); !s.gridError(w, r, "failed to fetch grid", err) {
		return
	}
	g, err := s.grids.Get(r.Context(), id)
	if !s.gridError(w, r, "failed to fetch grid", err) {
		return
	}
	writeJSON(w, http.StatusOK, GridResponse{WeaponGrid: g})
}

func (s *Server) createGrid(w http.ResponseWriter, r *http.Request) {
	var g grid.Grid
	if err := decodeBody(w, r, &g); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body", "the request body must be a grid object")
		return
	}
	created, err := s.grids.Create(r.Context(), g)
	if !s.gridError(w, r, "failed to create grid", err) {
		return
	}
	s.logger.Info("grid created", zap.String("grid_id", created.ID), zap.String("user_id", created.UserID))
	writeJSON(w, http.StatusCreated, GridResponse{Message: "grid created", WeaponGrid: created})
}

func (s *Server) updateGrid(w http.ResponseWriter, r *http.Request) {
	var u grid.Update
	if err := decodeBody(w, r, &u); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body", "the request body must be a JSON object")
		return
	}
	if u.Empty() {
		writeError(w, http.StatusBadRequest, "missing fields", "one of name, description or isPublic is required")
		return
	}
	g, err := s.grids.Update(r.Context(), r.PathValue("id"), u)
	if !s.gridError(w, r, "failed to update grid", err) {
		return
	}
	writeJSON(w, http.StatusOK, GridResponse{Message: "grid updated", WeaponGrid: g})
}

func (s *Server) deleteGrid(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !s.gridError(w, r, "failed to delete grid", s.grids.Delete(r.Context(), id)) {
		return
	}
	s.logger.Info("grid deleted", zap.String("grid_id", id))
	writeJSON(w, http.StatusOK, map[string]string{"message": "grid deleted"})
}

func (s *Server) addGridWeapon(w http.ResponseWriter, r *http.Request) {
	var req weaponSlotRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body", "the request body must be a JSON object")
		return
	}
	if req.Slot == 0 || req.WeaponID == "" || req.WeaponData == nil {
		writeError(w, http.StatusBadRequest, "missing fields", "slot, weaponId and weaponData are required")
		return
	}
	g, err := s.grids.SetWeapon(r.Context(), r.PathValue("id"), req.Slot, grid.WeaponEntry{
		WeaponID:      req.WeaponID,
		WeaponData:    req.WeaponData,
		SelectedLevel: req.Level,
	})
	if !s.gridError(w, r, "failed to add weapon", err) {
		return
	}
	writeJSON(w, http.StatusOK, GridResponse{Message: "weapon added", WeaponGrid: g})
}

func (s *Server) addGridSummon(w http.ResponseWriter, r *http.Request) {
	var req summonSlotRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body", "the request body must be a JSON object")
		return
	}
	if req.Slot == 0 || req.SummonID == "" || req.SummonData == nil {
		writeError(w, http.StatusBadRequest, "missing fields", "slot, summonId and summonData are required")
		return
	}
	g, err := s.grids.SetSummon(r.Context(), r.PathValue("id"), req.Slot, grid.SummonEntry{
		SummonID:            req.SummonID,
		SummonData:          req.SummonData,
		SelectedLevel:       req.Level,
		SelectedSpecialAura: req.SpecialAura,
	})
	if !s.gridError(w, r, "failed to add summon", err) {
		return
	}
	writeJSON(w, http.StatusOK, GridResponse{Message: "summon added", WeaponGrid: g})
}

func (s *Server) removeGridWeapon(w http.ResponseWriter, r *http.Request) {
	slot, ok := slotParam(w, r)
	if !ok {
		return
	}
	g, err := s.grids.RemoveWeapon(r.Context(), r.PathValue("id"), slot)
	if !s.gridError(w, r, "failed to remove weapon", err) {
		return
	}
	writeJSON(w, http.StatusOK, GridResponse{Message: "weapon removed", WeaponGrid: g})
}

func (s *Server) removeGridSummon(w http.ResponseWriter, r *http.Request) {
	slot, ok := slotParam(w, r)
	if !ok {
		return
	}
	g, err := s.grids.RemoveSummon(r.Context(), r.PathValue("id"), slot)
	if !s.gridError(w, r, "failed to remove summon", err) {
		return
	}
	writeJSON(w, http.StatusOK, GridResponse{Message: "summon removed", WeaponGrid: g})
}

func slotParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	slot, err := strconv.Atoi(r.PathValue("slot"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid slot", "the slot must be a number")
		return 0, false
	}
	return slot, true
}

func (s *Server) likeGrid(w http.ResponseWriter, r *http.Request) {
	s.countGrid(w, r, grid.CounterLikes)
}

func (s *Server) downloadGrid(w http.ResponseWriter, r *http.Request) {
	s.countGrid(w, r, grid.CounterDownloads)
}

func (s *Server) countGrid(w http.ResponseWriter, r *http.Request, c grid.Counter) {
	n, err := s.grids.Increment(r.Context(), r.PathValue("id"), c)
	if !s.gridError(w, r, "failed to record "+string(c), err) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": string(c) + " recorded", string(c): n})
}

func (s *Server) recalculateGrid(w http.ResponseWriter, r *http.Request) {
	g, err := s.grids.Recalculate(r.Context(), r.PathValue("id"))
	if !s.gridError(w, r, "failed to recalculate grid", err) {
		return
	}
	writeJSON(w, http.StatusOK, GridResponse{Message: "grid recalculated", WeaponGrid: g})
}
