// Package grid models user-built weapon grids: up to ten weapons and six
// summons, each stored as a snapshot of its catalog document, with derived
// totals and public engagement counters.
package grid

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// Slot and field limits.
const (
	MaxWeaponSlots       = 10
	MaxSummonSlots       = 6
	MaxNameLength        = 100
	MaxDescriptionLength = 500
	MaxSummonLevel       = 5
)

// DefaultWeaponLevel is the uncap level of a weapon entry that names none.
const DefaultWeaponLevel = 1

// DefaultUserID owns grids created without a user.
const DefaultUserID = "default_user"

// weaponLevels are the uncap levels a weapon entry may select.
var weaponLevels = []int{1, 100, 150, 200, 250}

var (
	// ErrInvalidGrid is returned when grid input is rejected.
	ErrInvalidGrid = errors.New("invalid grid")
	// ErrSlotEmpty is returned when removing from an empty slot.
	ErrSlotEmpty = errors.New("slot empty")
)

// DocID is a catalog document id. It decodes from a JSON string or number.
type DocID string

// UnmarshalJSON accepts "42" and 42 alike.
func (d *DocID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*d = DocID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("document id must be a string or number: %w", err)
	}
	*d = DocID(n.String())
	return nil
}

// WeaponEntry places a weapon in a grid slot.
type WeaponEntry struct {
	WeaponID      DocID          `json:"weaponId"`
	WeaponData    map[string]any `json:"weaponData"`
	SelectedLevel int            `json:"selectedLevel"`
	AddedAt       time.Time      `json:"addedAt"`
}

// SummonEntry places a summon in a grid slot.
type SummonEntry struct {
	SummonID            DocID          `json:"summonId"`
	SummonData          map[string]any `json:"summonData"`
	SelectedLevel       int            `json:"selectedLevel"`
	SelectedSpecialAura *string        `json:"selectedSpecialAura"`
	AddedAt             time.Time      `json:"addedAt"`
}

// Metadata is derived from a grid's entries by Recalculate.
type Metadata struct {
	TotalAtk    int64    `json:"totalAtk"`
	TotalHP     int64    `json:"totalHp"`
	WeaponCount int      `json:"weaponCount"`
	SummonCount int      `json:"summonCount"`
	Elements    []string `json:"elements"`
	Rarities    []string `json:"rarities"`
}

// Counters are a grid's engagement counts.
type Counters struct {
	Views     int64 `json:"views"`
	Likes     int64 `json:"likes"`
	Downloads int64 `json:"downloads"`
}

// Grid is a weapon grid. Weapons and Summons are keyed by slot number.
type Grid struct {
	ID          string              `json:"id"`
	UserID      string              `json:"userId"`
	Name        string              `json:"name"`
	Description string              `json:"description"`
	IsPublic    bool                `json:"isPublic"`
	Weapons     map[int]WeaponEntry `json:"weapons"`
	Summons     map[int]SummonEntry `json:"summons"`
	Metadata    Metadata            `json:"metadata"`
	Stats       Counters            `json:"stats"`
	CreatedAt   time.Time           `json:"createdAt"`
	UpdatedAt   time.Time           `json:"updatedAt"`
}

// Validate reports every problem with g at once.
//
// Postcondition: Returns nil or an error wrapping ErrInvalidGrid.
func (g *Grid) Validate() error {
	var errs []string
	if strings.TrimSpace(g.Name) == "" {
		errs = append(errs, "name is required")
	}
	if utf8.RuneCountInString(g.Name) > MaxNameLength {
		errs = append(errs, fmt.Sprintf("name must be at most %d characters", MaxNameLength))
	}
	if utf8.RuneCountInString(g.Description) > MaxDescriptionLength {
		errs = append(errs, fmt.Sprintf("description must be at most %d characters", MaxDescriptionLength))
	}
	for _, slot := range sortedSlots(g.Weapons) {
		if err := checkWeapon(slot, g.Weapons[slot]); err != nil {
			errs = append(errs, err.Error())
		}
	}
	for _, slot := range sortedSlots(g.Summons) {
		if err := checkSummon(slot, g.Summons[slot]); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidGrid, strings.Join(errs, "; "))
	}
	return nil
}

func checkWeapon(slot int, e WeaponEntry) error {
	if slot < 1 || slot > MaxWeaponSlots {
		return fmt.Errorf("weapon slot must be between 1 and %d, got %d", MaxWeaponSlots, slot)
	}
	if e.WeaponID == "" || e.WeaponData == nil {
		return fmt.Errorf("weapon in slot %d needs an id and its data", slot)
	}
	if e.SelectedLevel != 0 && !slices.Contains(weaponLevels, e.SelectedLevel) {
		return fmt.Errorf("weapon level in slot %d must be one of %v", slot, weaponLevels)
	}
	return nil
}

func checkSummon(slot int, e SummonEntry) error {
	if slot < 1 || slot > MaxSummonSlots {
		return fmt.Errorf("summon slot must be between 1 and %d, got %d", MaxSummonSlots, slot)
	}
	if e.SummonID == "" || e.SummonData == nil {
		return fmt.Errorf("summon in slot %d needs an id and its data", slot)
	}
	if e.SelectedLevel < 0 || e.SelectedLevel > MaxSummonLevel {
		return fmt.Errorf("summon level in slot %d must be between 0 and %d", slot, MaxSummonLevel)
	}
	return nil
}

// SetWeapon places e in slot, replacing any weapon there, and recalculates.
//
// Postcondition: g is unchanged when the error is non-nil.
func (g *Grid) SetWeapon(slot int, e WeaponEntry, now time.Time) error {
	if e.SelectedLevel == 0 {
		e.SelectedLevel = DefaultWeaponLevel
	}
	if err := checkWeapon(slot, e); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidGrid, err)
	}
	e.AddedAt = now
	if g.Weapons == nil {
		g.Weapons = make(map[int]WeaponEntry)
	}
	g.Weapons[slot] = e
	g.touch(now)
	return nil
}

// RemoveWeapon empties slot and recalculates.
func (g *Grid) RemoveWeapon(slot int, now time.Time) error {
	if _, ok := g.Weapons[slot]; !ok {
		return fmt.Errorf("%w: no weapon in slot %d", ErrSlotEmpty, slot)
	}
	delete(g.Weapons, slot)
	g.touch(now)
	return nil
}

// SetSummon places e in slot, replacing any summon there, and recalculates.
//
// Postcondition: g is unchanged when the error is non-nil.
func (g *Grid) SetSummon(slot int, e SummonEntry, now time.Time) error {
	if err := checkSummon(slot, e); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidGrid, err)
	}
	e.AddedAt = now
	if g.Summons == nil {
		g.Summons = make(map[int]SummonEntry)
	}
	g.Summons[slot] = e
	g.touch(now)
	return nil
}

// RemoveSummon empties slot and recalculates.
func (g *Grid) RemoveSummon(slot int, now time.Time) error {
	if _, ok := g.Summons[slot]; !ok {
		return fmt.Errorf("%w: no summon in slot %d", ErrSlotEmpty, slot)
	}
	delete(g.Summons, slot)
	g.touch(now)
	return nil
}

func (g *Grid) touch(now time.Time) {
	g.Recalculate()
	g.UpdatedAt = now
}

// Recalculate derives Metadata from the entries. A weapon contributes its
// atk<level>/hp<level> fields at its selected level (default 1); a summon
// contributes atk<level+1>/hp<level+1>. Elements and rarities are collected in
// slot order, weapons first, without duplicates.
func (g *Grid) Recalculate() {
	m := Metadata{Elements: []string{}, Rarities: []string{}}
	collect := func(doc map[string]any) {
		if s, _ := doc["element"].(string); s != "" && !slices.Contains(m.Elements, s) {
			m.Elements = append(m.Elements, s)
		}
		if s, _ := doc["rarity"].(string); s != "" && !slices.Contains(m.Rarities, s) {
			m.Rarities = append(m.Rarities, s)
		}
	}

	for _, slot := range sortedSlots(g.Weapons) {
		e := g.Weapons[slot]
		if e.WeaponData == nil {
			continue
		}
		level := e.SelectedLevel
		if level == 0 {
			level = DefaultWeaponLevel
		}
		m.TotalAtk += number(e.WeaponData, "atk"+strconv.Itoa(level))
		m.TotalHP += number(e.WeaponData, "hp"+strconv.Itoa(level))
		m.WeaponCount++
		collect(e.WeaponData)
	}
	for _, slot := range sortedSlots(g.Summons) {
		e := g.Summons[slot]
		if e.SummonData == nil {
			continue
		}
		key := strconv.Itoa(e.SelectedLevel + 1)
		m.TotalAtk += number(e.SummonData, "atk"+key)
		m.TotalHP += number(e.SummonData, "hp"+key)
		m.SummonCount++
		collect(e.SummonData)
	}
	g.Metadata = m
}

func sortedSlots[E any](entries map[int]E) []int {
	slots := make([]int, 0, len(entries))
	for slot := range entries {
		slots = append(slots, slot)
	}
	slices.Sort(slots)
	return slots
}

// number reads a numeric document field; anything else counts as zero.
func number(doc map[string]any, key string) int64 {
	switch v := doc[key].(type) {
	case float64:
		return int64(v)
	case int:
		return int64(v)
	case int64:
		return v
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			f, _ := v.Float64()
			return int64(f)
		}
		return n
	default:
		return 0
	}
}
