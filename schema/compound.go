package schema

import (
	"fmt"

	"github.com/croixa/astrix/errs"
)

// Compound is a compound format: a Variable primary subfield acting as a
// presence bitmap followed by one sub-format per presence bit.
//
// Presence bits are numbered in declaration order: the most significant bit
// of the primary's first byte is bit 1, extension bits are skipped, and bit
// n selects Subs[n-1].
type Compound struct {
	Primary *Variable
	Subs    []Format
}

var _ Format = (*Compound)(nil)

func (c *Compound) Kind() Kind { return KindCompound }

// WidthHint decodes the primary bitmap and sums the widths of the present
// sub-formats.
func (c *Compound) WidthHint(data []byte) (int, error) {
	width, present, err := c.presence(data)
	if err != nil {
		return 0, err
	}

	for _, idx := range present {
		if idx >= len(c.Subs) || c.Subs[idx] == nil {
			return 0, fmt.Errorf("compound presence bit %d has no subfield: %w",
				idx+1, errs.ErrInvalid)
		}
		if width > len(data) {
			return 0, fmt.Errorf("compound subfield %d: %w", idx+1, errs.ErrTruncated)
		}
		n, err := c.Subs[idx].WidthHint(data[width:])
		if err != nil {
			return 0, err
		}
		width += n
	}

	return width, nil
}

// Decode consumes the primary bitmap and then each present sub-format in
// declaration order. A set presence bit with no corresponding sub-format
// fails with ErrInvalid.
func (c *Compound) Decode(data []byte, bds BDSTable) ([]*Field, int, error) {
	cur, present, err := c.presence(data)
	if err != nil {
		return nil, 0, err
	}

	names := c.subfieldNames()
	var fields []*Field
	for _, idx := range present {
		if idx >= len(c.Subs) || c.Subs[idx] == nil {
			return nil, 0, fmt.Errorf("compound presence bit %d has no subfield: %w",
				idx+1, errs.ErrInvalid)
		}

		sub, n, err := c.Subs[idx].Decode(data[cur:], bds)
		if err != nil {
			return nil, 0, fmt.Errorf("compound subfield %d: %w", idx+1, err)
		}
		cur += n

		group := &Field{Group: true, Children: sub}
		if idx < len(names) && names[idx] != "" {
			group.Name = names[idx]
		} else {
			group.Name = fmt.Sprintf("SF%d", idx+1)
		}
		if c.Subs[idx].Kind() == KindRepetitive && len(sub) == 1 && sub[0].Repeated {
			// collapse the repetitive wrapper so repetitions hang directly
			// off the named subfield
			group.Repeated = true
			group.Children = sub[0].Children
		}
		fields = append(fields, group)
	}

	return fields, cur, nil
}

// presence consumes the primary subfield at the head of data and returns its
// byte width plus the zero-based indices of the set presence bits, skipping
// extension bits.
func (c *Compound) presence(data []byte) (int, []int, error) {
	width, err := c.Primary.WidthHint(data)
	if err != nil {
		return 0, nil, fmt.Errorf("compound primary: %w", err)
	}

	var present []int
	idx := 0
	consumed := 0
	for _, part := range c.Primary.Parts {
		if consumed >= width {
			break
		}
		bytes := data[consumed : consumed+part.Length]
		for pos := 8 * part.Length; pos >= 2; pos-- { // bit 1 is FX
			i := (8*part.Length - pos) / 8
			mask := byte(1) << uint((pos-1)%8)
			if bytes[i]&mask != 0 {
				present = append(present, idx)
			}
			idx++
		}
		consumed += part.Length
	}

	return width, present, nil
}

// subfieldNames flattens the primary's named presence flags in declaration
// order so decoded subfields can be labeled.
func (c *Compound) subfieldNames() []string {
	var names []string
	for _, part := range c.Primary.Parts {
		for _, b := range part.Bits {
			if b.FX {
				continue
			}
			if b.spare() {
				names = append(names, "")
				continue
			}
			names = append(names, b.ShortName)
		}
	}

	return names
}

// Describe searches the primary and every subfield.
func (c *Compound) Describe(field string, value *int64) (string, bool) {
	if s, ok := c.Primary.Describe(field, value); ok {
		return s, ok
	}
	for _, sub := range c.Subs {
		if sub == nil {
			continue
		}
		if s, ok := sub.Describe(field, value); ok {
			return s, ok
		}
	}

	return "", false
}
