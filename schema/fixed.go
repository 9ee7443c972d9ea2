package schema

import (
	"fmt"

	"github.com/croixa/astrix/bitfield"
	"github.com/croixa/astrix/errs"
)

// Fixed is a fixed-length format part: Length bytes covered by an ordered
// list of bit field descriptors.
type Fixed struct {
	Length int
	Bits   []*Bits
}

var _ Format = (*Fixed)(nil)

func (f *Fixed) Kind() Kind { return KindFixed }

// WidthHint returns the declared part length without consuming input.
func (f *Fixed) WidthHint([]byte) (int, error) { return f.Length, nil }

// Decode consumes exactly Length bytes and projects every named,
// non-extension bit field into a leaf.
func (f *Fixed) Decode(data []byte, _ BDSTable) ([]*Field, int, error) {
	if len(data) < f.Length {
		return nil, 0, fmt.Errorf("fixed part needs %d bytes, %d remain: %w",
			f.Length, len(data), errs.ErrTruncated)
	}

	part := data[:f.Length]
	fields := make([]*Field, 0, len(f.Bits))
	for _, b := range f.Bits {
		if b.FX || b.spare() {
			continue
		}

		fld, err := decodeBits(part, b)
		if err != nil {
			return nil, 0, err
		}
		fields = append(fields, fld)
	}

	return fields, f.Length, nil
}

// Describe searches this part's bit descriptors.
func (f *Fixed) Describe(field string, value *int64) (string, bool) {
	for _, b := range f.Bits {
		if b.ShortName != field {
			continue
		}
		if value == nil {
			return b.Name, true
		}
		if m, ok := b.Meaning(*value); ok {
			return m, true
		}

		return "", false
	}

	return "", false
}

// decodeBits projects one bit descriptor from a fixed part into a leaf field.
func decodeBits(part []byte, b *Bits) (*Field, error) {
	fld := &Field{
		Name: b.ShortName,
		Desc: b.Name,
		Unit: b.Unit,
	}

	switch b.Encode {
	case EncodeSixBitChar:
		s, err := bitfield.ReadASCII6(part, b.From, b.To)
		if err != nil {
			return nil, err
		}
		fld.Str = s

		return fld, nil

	case EncodeSigned:
		v, err := bitfield.ReadSigned(part, b.From, b.To)
		if err != nil {
			return nil, err
		}
		fld.Signed = v
		fld.IsSigned = true
		applyScale(fld, b, v)

		return fld, nil

	default:
		v, err := bitfield.ReadUnsigned(part, b.From, b.To)
		if err != nil {
			return nil, err
		}
		fld.Value = v

		switch b.Encode {
		case EncodeHex:
			fld.Str = fmt.Sprintf("%0*X", (b.Width()+3)/4, v)
		case EncodeOctal:
			fld.Str = fmt.Sprintf("%0*o", (b.Width()+2)/3, v)
		default:
			applyScale(fld, b, int64(v))
		}

		return fld, nil
	}
}

// applyScale attaches the scaled value and enumerated meaning of a numeric
// leaf.
func applyScale(fld *Field, b *Bits, raw int64) {
	if b.Scale != 0 {
		fld.Scaled = float64(raw) * b.Scale
		fld.HasScaled = true
	}
	if m, ok := b.Meaning(raw); ok {
		fld.Meaning = m
	}
}

// fxSet reports whether the extension bit (bit 1, the least significant bit
// of the last byte) of a consumed part is set.
func fxSet(part []byte) bool {
	return len(part) > 0 && part[len(part)-1]&0x01 != 0
}
