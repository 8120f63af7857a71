// Package catalog builds the exemplar catalog from the flat reply table.
// Keys like "greeting", "greeting2", "greeting3" collapse into one group
// ("greeting") whose exemplars are the values of all sibling keys.
package catalog

import (
	"math/rand"
	"sort"
	"strings"
)

// GroupID identifies a group of semantically equivalent exemplars.
type GroupID string

// None is the sentinel group returned when no intent matches.
const None GroupID = "none"

// BaseOf returns the group id for an exemplar key by stripping a single
// trailing run of decimal digits. A key without trailing digits is its own
// group id. Stripping is idempotent: BaseOf(BaseOf(k)) == BaseOf(k).
func BaseOf(key string) GroupID {
	trimmed := strings.TrimRightFunc(key, func(r rune) bool {
		return r >= '0' && r <= '9'
	})
	if trimmed == "" {
		// Key was all digits; keep it as-is rather than producing "".
		return GroupID(key)
	}
	return GroupID(trimmed)
}

// Catalog holds the exemplar groups. Built once at startup and read-only
// afterwards, so access needs no locking.
type Catalog struct {
	groups map[GroupID][]string
}

// Build groups the flat table by base key and shuffles each group's exemplars
// once. The shuffle happens at construction only; runtime reads always see
// the same order.
func Build(table map[string]string) *Catalog {
	groups := make(map[GroupID][]string)

	// Insert in sorted key order so construction is deterministic up to the
	// shuffle (map iteration order would otherwise leak into the result).
	keys := make([]string, 0, len(table))
	for k := range table {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		id := BaseOf(k)
		groups[id] = append(groups[id], table[k])
	}

	for _, exemplars := range groups {
		rand.Shuffle(len(exemplars), func(i, j int) {
			exemplars[i], exemplars[j] = exemplars[j], exemplars[i]
		})
	}

	return &Catalog{groups: groups}
}

// Groups returns all group ids, sorted for stable iteration.
func (c *Catalog) Groups() []GroupID {
	ids := make([]GroupID, 0, len(c.groups))
	for id := range c.groups {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Has reports whether the group exists in the catalog.
func (c *Catalog) Has(id GroupID) bool {
	_, ok := c.groups[id]
	return ok
}

// Exemplars returns the group's exemplar texts, or nil for unknown groups.
// Callers must not mutate the returned slice.
func (c *Catalog) Exemplars(id GroupID) []string {
	return c.groups[id]
}

// Len returns the number of groups.
func (c *Catalog) Len() int {
	return len(c.groups)
}
