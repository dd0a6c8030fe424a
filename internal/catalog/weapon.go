// Package catalog defines the weapon documents served by the catalog API and the
// filters used to query them.
package catalog

import (
	"encoding/json"
	"fmt"
	"maps"
	"strconv"
	"strings"
)

// MaxSkillSlots is the number of skill slots a weapon can carry.
const MaxSkillSlots = 3

// DefaultSkillLevel applies to a slot whose level field is absent or zero.
const DefaultSkillLevel = 10

// Weapon is a weapon document as stored. Fields are kept verbatim so documents
// round-trip through the API unchanged.
type Weapon map[string]any

// SkillSlot is one of a weapon's skill slots.
type SkillSlot struct {
	// Field is the slot prefix, "s1" through "s3".
	Field       string
	Name        string
	Description string
	Level       int
}

// EnrichedKey is the document key the slot's enrichment is attached under.
func (s SkillSlot) EnrichedKey() string {
	return s.Field + "_enriched"
}

// ID returns the document id as a string, or "" when absent.
func (w Weapon) ID() string {
	switch v := w["id"].(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

// Name returns the weapon name.
func (w Weapon) Name() string { return w.str("name") }

// Title returns the weapon title.
func (w Weapon) Title() string { return w.str("title") }

// Clone returns a shallow copy of w.
func (w Weapon) Clone() Weapon {
	return maps.Clone(w)
}

// SkillSlots returns the populated skill slots in order. Both the current
// "s1_name" keys and the legacy space-separated "s1 name" keys are read.
//
// Names are returned as stored, surrounding whitespace included.
//
// Postcondition: len(result) <= MaxSkillSlots; every slot has a Name that is not
// blank and a Level > 0.
func (w Weapon) SkillSlots(defaultLevel int) []SkillSlot {
	if defaultLevel <= 0 {
		defaultLevel = DefaultSkillLevel
	}
	var slots []SkillSlot
	for i := 1; i <= MaxSkillSlots; i++ {
		field := fmt.Sprintf("s%d", i)
		name := w.slotStr(field, "name")
		if strings.TrimSpace(name) == "" {
			continue
		}
		level := w.slotInt(field, "lvl")
		if level <= 0 {
			level = defaultLevel
		}
		slots = append(slots, SkillSlot{
			Field:       field,
			Name:        name,
			Description: w.slotStr(field, "desc"),
			Level:       level,
		})
	}
	return slots
}

// slotValue prefers the "s1_name" key and falls back to the legacy "s1 name"
// key when the former is absent, null or an empty string.
func (w Weapon) slotValue(field, attr string) any {
	if v, ok := w[field+"_"+attr]; ok && v != nil && v != "" {
		return v
	}
	return w[field+" "+attr]
}

func (w Weapon) slotStr(field, attr string) string {
	s, _ := w.slotValue(field, attr).(string)
	return s
}

func (w Weapon) slotInt(field, attr string) int {
	return toInt(w.slotValue(field, attr))
}

func (w Weapon) str(key string) string {
	s, _ := w[key].(string)
	return s
}

func toInt(v any) int {
	switch t := v.(type) {
	case int:
		return t
	case int32:
		return int(t)
	case int64:
		return int(t)
	case float64:
		return int(t)
	case json.Number:
		n, _ := t.Int64()
		return int(n)
	case string:
		n, _ := strconv.Atoi(strings.TrimSpace(t))
		return n
	default:
		return 0
	}
}
