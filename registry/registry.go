// Package registry holds the loaded ASTERIX category definitions.
//
// A Builder accumulates categories during the load phase and Build returns
// an immutable Registry handle. The handle is written by exactly one
// goroutine during initialization and only read afterwards, so it is safe to
// share across concurrently decoding parsers without locking.
package registry

import (
	"fmt"
	"sort"
	"strings"

	"github.com/croixa/astrix/schema"
)

// slots covers wire categories 0..255 plus the internal BDS pseudo category.
const slots = schema.BDSCategory + 1

// Builder accumulates category schemas during the load phase.
type Builder struct {
	categories [slots]*schema.Category
}

// NewBuilder creates an empty registry builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// Add registers a category schema, replacing any earlier definition with the
// same id. Ids outside 0..256 are rejected.
func (b *Builder) Add(cat *schema.Category) error {
	if cat == nil {
		return fmt.Errorf("nil category")
	}
	if cat.ID < 0 || cat.ID >= slots {
		return fmt.Errorf("category id %d outside 0..%d", cat.ID, slots-1)
	}
	b.categories[cat.ID] = cat

	return nil
}

// Build returns the immutable registry handle. The builder may keep loading
// and Build again; handles already returned are unaffected.
func (b *Builder) Build() *Registry {
	r := &Registry{}
	copy(r.categories[:], b.categories[:])

	return r
}

// Registry is the immutable category lookup handle used while decoding.
type Registry struct {
	categories [slots]*schema.Category
}

var _ schema.BDSTable = (*Registry)(nil)

// Category returns the schema for a category id, or nil when none is loaded.
func (r *Registry) Category(id int) *schema.Category {
	if id < 0 || id >= slots {
		return nil
	}

	return r.categories[id]
}

// IsDefined reports whether a category id has a loaded schema.
func (r *Registry) IsDefined(id int) bool {
	return r.Category(id) != nil
}

// BDSItem resolves a Comm-B register schema from the BDS pseudo category.
func (r *Registry) BDSItem(register string) *schema.DataItemDescription {
	bds := r.categories[schema.BDSCategory]
	if bds == nil {
		return nil
	}

	return bds.Item(register)
}

// Describe walks the grammar to the requested level: the category's name,
// an item's name, a field's long name, or a value's enumerated meaning. It
// returns false at any unresolved step rather than a placeholder.
func (r *Registry) Describe(cat int, item, field string, value *int64) (string, bool) {
	c := r.Category(cat)
	if c == nil {
		return "", false
	}

	return c.Describe(strings.TrimPrefix(item, "I"), field, value)
}

// Descriptors returns one line per loaded category, ordered by id, for
// diagnostic output.
func (r *Registry) Descriptors() string {
	var ids []int
	for id, c := range r.categories {
		if c != nil && id != schema.BDSCategory {
			ids = append(ids, id)
		}
	}
	sort.Ints(ids)

	var sb strings.Builder
	for _, id := range ids {
		c := r.categories[id]
		fmt.Fprintf(&sb, "Category %d: %s v%s\n", id, c.Name, c.Version)
	}

	return sb.String()
}
