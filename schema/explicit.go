package schema

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/croixa/astrix/errs"
)

// Explicit is an explicit-length format: a one-byte length field L covering
// itself, followed by L-1 payload bytes decoded by the inner format. Grammar
// files that leave the payload opaque (reserved expansion and special purpose
// fields) have a nil Inner; those decode into a hex blob leaf.
type Explicit struct {
	Inner Format
}

var _ Format = (*Explicit)(nil)

func (e *Explicit) Kind() Kind { return KindExplicit }

// WidthHint reads the leading length byte.
func (e *Explicit) WidthHint(data []byte) (int, error) {
	if len(data) < 1 {
		return 0, fmt.Errorf("explicit length: %w", errs.ErrTruncated)
	}
	if data[0] < 1 {
		return 0, fmt.Errorf("explicit length below one: %w", errs.ErrInvalid)
	}

	return int(data[0]), nil
}

// Decode consumes the length byte plus exactly L-1 payload bytes. The inner
// decoder must consume the whole payload; under-consumption fails with
// ErrInvalid.
func (e *Explicit) Decode(data []byte, bds BDSTable) ([]*Field, int, error) {
	width, err := e.WidthHint(data)
	if err != nil {
		return nil, 0, err
	}
	if len(data) < width {
		return nil, 0, fmt.Errorf("explicit payload needs %d bytes, %d remain: %w",
			width, len(data), errs.ErrTruncated)
	}

	payload := data[1:width]
	if e.Inner == nil {
		return []*Field{{
			Name: "DATA",
			Str:  strings.ToUpper(hex.EncodeToString(payload)),
		}}, width, nil
	}

	fields, n, err := e.Inner.Decode(payload, bds)
	if err != nil {
		return nil, 0, fmt.Errorf("explicit payload: %w", err)
	}
	if n != len(payload) {
		return nil, 0, fmt.Errorf("explicit payload of %d bytes, inner format consumed %d: %w",
			len(payload), n, errs.ErrInvalid)
	}

	return fields, width, nil
}

// Describe searches the inner format.
func (e *Explicit) Describe(field string, value *int64) (string, bool) {
	if e.Inner == nil {
		return "", false
	}

	return e.Inner.Describe(field, value)
}
