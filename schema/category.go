package schema

import "fmt"

// Category ids are 1..255 on the wire; the BDS register definitions are held
// as a pseudo category addressed only internally.
const (
	MinCategory = 1
	MaxCategory = 255
	BDSCategory = 256
)

// Category is one loaded ASTERIX category grammar: its data item
// descriptions and User Application Profiles. Categories are immutable after
// the loader finishes.
type Category struct {
	ID      int
	Name    string
	Version string

	Items []*DataItemDescription
	UAPs  []*UAP
}

// Item returns the data item description with the given id, or nil.
func (c *Category) Item(id string) *DataItemDescription {
	for _, it := range c.Items {
		if it.ID == id {
			return it
		}
	}

	return nil
}

// SelectUAP picks the profile for a record: conditional profiles are tried
// in declaration order against the record bytes and the first match wins,
// with the unconditional profile as the declared fallback.
func (c *Category) SelectUAP(record []byte) *UAP {
	for _, uap := range c.UAPs {
		if uap.matches(record) {
			return uap
		}
	}

	return nil
}

// Describe walks to the requested level of the grammar: the item's name with
// only an item id, the field's long name with an item and field, or the
// enumerated meaning with all three. It returns false at any unresolved
// step.
func (c *Category) Describe(item, field string, value *int64) (string, bool) {
	if item == "" {
		return c.Name, c.Name != ""
	}

	it := c.Item(item)
	if it == nil {
		return "", false
	}
	if field == "" {
		return it.Name, true
	}

	return it.Describe(field, value)
}

// String identifies the category in log and error output.
func (c *Category) String() string {
	return fmt.Sprintf("CAT%03d %s v%s", c.ID, c.Name, c.Version)
}
