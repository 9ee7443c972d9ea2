package schema

import (
	"fmt"
	"strconv"

	"github.com/croixa/astrix/errs"
)

// Repetitive is a repetitive format: a one-byte repetition count followed by
// that many back-to-back instances of the sub-format (Fixed or BDS).
type Repetitive struct {
	Sub Format
}

var _ Format = (*Repetitive)(nil)

func (r *Repetitive) Kind() Kind { return KindRepetitive }

// WidthHint reads the count byte and sums the sub-format widths.
func (r *Repetitive) WidthHint(data []byte) (int, error) {
	if len(data) < 1 {
		return 0, fmt.Errorf("repetition count: %w", errs.ErrTruncated)
	}

	n := int(data[0])
	width := 1
	for i := 0; i < n; i++ {
		if width > len(data) {
			return 0, fmt.Errorf("repetition %d: %w", i+1, errs.ErrTruncated)
		}
		w, err := r.Sub.WidthHint(data[width:])
		if err != nil {
			return 0, err
		}
		width += w
	}

	return width, nil
}

// Decode consumes the count byte and then the sub-format count times,
// collecting each repetition as a group.
func (r *Repetitive) Decode(data []byte, bds BDSTable) ([]*Field, int, error) {
	if len(data) < 1 {
		return nil, 0, fmt.Errorf("repetition count: %w", errs.ErrTruncated)
	}

	n := int(data[0])
	cur := 1
	reps := make([]*Field, 0, n)
	for i := 0; i < n; i++ {
		sub, w, err := r.Sub.Decode(data[cur:], bds)
		if err != nil {
			return nil, 0, fmt.Errorf("repetition %d of %d: %w", i+1, n, err)
		}
		cur += w
		reps = append(reps, &Field{
			Name:     strconv.Itoa(i + 1),
			Group:    true,
			Children: sub,
		})
	}

	return []*Field{{Group: true, Repeated: true, Children: reps}}, cur, nil
}

// Describe searches the sub-format.
func (r *Repetitive) Describe(field string, value *int64) (string, bool) {
	return r.Sub.Describe(field, value)
}
