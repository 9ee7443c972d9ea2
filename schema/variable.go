package schema

import (
	"fmt"

	"github.com/croixa/astrix/errs"
)

// Variable is a variable-length format: an ordered list of Fixed parts
// consumed while the extension bit of each part stays set.
type Variable struct {
	Parts []*Fixed
}

var _ Format = (*Variable)(nil)

func (v *Variable) Kind() Kind { return KindVariable }

// WidthHint walks the extension chain at the head of data to report the
// total byte width of the value.
func (v *Variable) WidthHint(data []byte) (int, error) {
	width := 0
	for i, part := range v.Parts {
		if len(data) < width+part.Length {
			return 0, fmt.Errorf("variable part %d: %w", i+1, errs.ErrTruncated)
		}
		width += part.Length
		if !fxSet(data[:width]) {
			return width, nil
		}
	}

	return 0, fmt.Errorf("extension beyond declared parts: %w", errs.ErrInvalid)
}

// Decode consumes Fixed parts in declaration order until one clears its
// extension bit. An FX bit still set after the last declared part means the
// grammar under-declares the extension chain and fails with ErrInvalid.
func (v *Variable) Decode(data []byte, bds BDSTable) ([]*Field, int, error) {
	var fields []*Field
	cur := 0
	for i, part := range v.Parts {
		sub, n, err := part.Decode(data[cur:], bds)
		if err != nil {
			return nil, 0, fmt.Errorf("variable part %d: %w", i+1, err)
		}
		fields = append(fields, sub...)
		cur += n

		if !fxSet(data[:cur]) {
			return fields, cur, nil
		}
	}

	return nil, 0, fmt.Errorf("extension beyond declared parts: %w", errs.ErrInvalid)
}

// Describe searches every declared part.
func (v *Variable) Describe(field string, value *int64) (string, bool) {
	for _, part := range v.Parts {
		if s, ok := part.Describe(field, value); ok {
			return s, ok
		}
	}

	return "", false
}
