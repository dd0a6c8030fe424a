package grid

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Filter selects grids. Zero fields do not filter.
type Filter struct {
	// Query matches name or description, literally and case-insensitively.
	Query   string
	Public  *bool
	UserID  string
	Element string
	Rarity  string
	Name    string
	MinAtk  *int
	MaxAtk  *int
}

// FilterFromQuery reads element, rarity, name, minAtk, maxAtk, userId and
// isPublic. A non-numeric bound is ignored.
func FilterFromQuery(q url.Values) Filter {
	f := Filter{
		UserID:  q.Get("userId"),
		Element: q.Get("element"),
		Rarity:  q.Get("rarity"),
		Name:    q.Get("name"),
		MinAtk:  intParam(q, "minAtk"),
		MaxAtk:  intParam(q, "maxAtk"),
	}
	if v := q.Get("isPublic"); v != "" {
		public := v == "true"
		f.Public = &public
	}
	return f
}

func intParam(q url.Values, key string) *int {
	n, err := strconv.Atoi(strings.TrimSpace(q.Get(key)))
	if err != nil {
		return nil
	}
	return &n
}

// Order is a grid listing order.
type Order int

const (
	// OrderUpdated lists the most recently updated first.
	OrderUpdated Order = iota
	// OrderViews lists the most viewed first, then the most recently updated.
	OrderViews
	// OrderPopular lists the most viewed first, then the most liked.
	OrderPopular
	// OrderRecent lists the most recently created first.
	OrderRecent
)

// PageInfo describes a page of grids within a total.
type PageInfo struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// NewPageInfo builds the PageInfo of page number p of size limit over total.
func NewPageInfo(p, limit, total int) PageInfo {
	pages := 0
	if limit > 0 {
		pages = (total + limit - 1) / limit
	}
	return PageInfo{Page: p, Limit: limit, Total: total, TotalPages: pages}
}

// Counter names one of a grid's engagement counters.
type Counter string

const (
	CounterViews     Counter = "views"
	CounterLikes     Counter = "likes"
	CounterDownloads Counter = "downloads"
)

// Column returns the storage column of c.
func (c Counter) Column() (string, error) {
	switch c {
	case CounterViews, CounterLikes, CounterDownloads:
		return string(c), nil
	default:
		return "", fmt.Errorf("unknown grid counter %q", string(c))
	}
}

// Summary aggregates every stored grid.
type Summary struct {
	TotalGrids     int     `json:"totalGrids"`
	PublicGrids    int     `json:"publicGrids"`
	PrivateGrids   int     `json:"privateGrids"`
	TotalViews     int64   `json:"totalViews"`
	TotalLikes     int64   `json:"totalLikes"`
	TotalDownloads int64   `json:"totalDownloads"`
	AvgAtk         float64 `json:"avgAtk"`
	AvgHP          float64 `json:"avgHp"`
}

// Update changes a grid's descriptive fields. Nil fields are kept.
type Update struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	IsPublic    *bool   `json:"isPublic"`
}

// Empty reports whether u changes nothing.
func (u Update) Empty() bool {
	return u.Name == nil && u.Description == nil && u.IsPublic == nil
}

// Apply copies the set fields of u onto g and validates the result.
//
// Postcondition: g is unchanged when the error is non-nil.
func (u Update) Apply(g *Grid) error {
	next := *g
	if u.Name != nil {
		next.Name = *u.Name
	}
	if u.Description != nil {
		next.Description = *u.Description
	}
	if u.IsPublic != nil {
		next.IsPublic = *u.IsPublic
	}
	if err := next.Validate(); err != nil {
		return err
	}
	*g = next
	return nil
}
