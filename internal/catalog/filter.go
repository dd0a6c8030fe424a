package catalog

import (
	"net/url"
	"strconv"
)

// Default paging values.
const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
)

// WeaponFilter narrows a weapon listing. Empty string fields and nil bounds are
// ignored.
type WeaponFilter struct {
	Type    string
	Rarity  string
	Element string
	Name    string
	Title   string
	Series  string
	Grp     string

	// MinAtk and MaxAtk bound the max-uncap attack (atk2).
	MinAtk *int
	MaxAtk *int
	// MinHP and MaxHP bound the max-uncap HP (hp2).
	MinHP *int
	MaxHP *int

	EvoMax  *int
	EvoBase *int
}

// Equalities returns the exact-match document fields set on f, keyed by
// document field name.
func (f WeaponFilter) Equalities() map[string]string {
	out := make(map[string]string)
	for k, v := range map[string]string{
		"type":    f.Type,
		"rarity":  f.Rarity,
		"element": f.Element,
		"name":    f.Name,
		"title":   f.Title,
		"series":  f.Series,
		"grp":     f.Grp,
	} {
		if v != "" {
			out[k] = v
		}
	}
	return out
}

// FilterFromQuery reads a WeaponFilter from URL query parameters. Unparseable
// numeric bounds are ignored.
func FilterFromQuery(q url.Values) WeaponFilter {
	return WeaponFilter{
		Type:    q.Get("type"),
		Rarity:  q.Get("rarity"),
		Element: q.Get("element"),
		Name:    q.Get("name"),
		Title:   q.Get("title"),
		Series:  q.Get("series"),
		Grp:     q.Get("grp"),
		MinAtk:  intParam(q, "minAtk"),
		MaxAtk:  intParam(q, "maxAtk"),
		MinHP:   intParam(q, "minHp"),
		MaxHP:   intParam(q, "maxHp"),
		EvoMax:  intParam(q, "evoMax"),
		EvoBase: intParam(q, "evoBase"),
	}
}

func intParam(q url.Values, key string) *int {
	s := q.Get(key)
	if s == "" {
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil
	}
	return &n
}

// Page selects a window of results. Page numbers start at 1.
type Page struct {
	Page  int
	Limit int
}

// PageFromQuery reads page and limit, applying defaults to missing or
// non-positive values and clamping limit to MaxLimit.
func PageFromQuery(q url.Values) Page {
	p := Page{Page: DefaultPage, Limit: DefaultLimit}
	if n, err := strconv.Atoi(q.Get("page")); err == nil && n > 0 {
		p.Page = n
	}
	if n, err := strconv.Atoi(q.Get("limit")); err == nil && n > 0 {
		p.Limit = min(n, MaxLimit)
	}
	return p
}

// Offset is the number of results preceding the page.
func (p Page) Offset() int {
	return (p.Page - 1) * p.Limit
}

// Pagination describes a page of results within a total.
type Pagination struct {
	CurrentPage  int  `json:"currentPage"`
	TotalPages   int  `json:"totalPages"`
	TotalWeapons int  `json:"totalWeapons"`
	Limit        int  `json:"limit"`
	HasNextPage  bool `json:"hasNextPage"`
	HasPrevPage  bool `json:"hasPrevPage"`
}

// Paginate builds the Pagination for p over total results.
func (p Page) Paginate(total int) Pagination {
	pages := 0
	if p.Limit > 0 {
		pages = (total + p.Limit - 1) / p.Limit
	}
	return Pagination{
		CurrentPage:  p.Page,
		TotalPages:   pages,
		TotalWeapons: total,
		Limit:        p.Limit,
		HasNextPage:  p.Page < pages,
		HasPrevPage:  p.Page > 1,
	}
}
