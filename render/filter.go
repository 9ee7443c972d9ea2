package render

import (
	"strconv"

	"github.com/croixa/astrix/internal/hash"
)

// Filter suppresses selected leaves during rendering.
//
// Entries are (category, item, field) tuples; an entry with an empty field
// suppresses the whole item. A record whose every leaf is filtered still
// renders as an empty shell so downstream consumers observe that the record
// existed. The zero value filters nothing. Filters are cheap to copy and
// safe to share between renderers once populated.
type Filter struct {
	keys map[uint64]struct{}
}

// NewFilter creates an empty filter.
func NewFilter() *Filter {
	return &Filter{keys: make(map[uint64]struct{})}
}

// Add suppresses a field of an item, or the whole item when field is empty.
func (f *Filter) Add(cat int, item, field string) {
	if f.keys == nil {
		f.keys = make(map[uint64]struct{})
	}
	f.keys[key(cat, item, field)] = struct{}{}
}

// Active reports whether any entry has been added.
func (f *Filter) Active() bool {
	return f != nil && len(f.keys) > 0
}

// Filtered reports whether a leaf should be suppressed, either directly or
// through its enclosing item.
func (f *Filter) Filtered(cat int, item, field string) bool {
	if !f.Active() {
		return false
	}
	if _, ok := f.keys[key(cat, item, field)]; ok {
		return true
	}
	if field == "" {
		return false
	}
	_, ok := f.keys[key(cat, item, "")]

	return ok
}

func key(cat int, item, field string) uint64 {
	return hash.Key(strconv.Itoa(cat), item, field)
}
