package schema

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/croixa/astrix/errs"
)

// sacsic is the classic 2-byte Data Source Identifier layout.
func sacsic() *Fixed {
	return &Fixed{
		Length: 2,
		Bits: []*Bits{
			{From: 16, To: 9, ShortName: "SAC", Name: "System Area Code"},
			{From: 8, To: 1, ShortName: "SIC", Name: "System Identification Code"},
		},
	}
}

// trdPart builds one byte of a target-report-descriptor style Variable part.
func trdPart(names ...string) *Fixed {
	f := &Fixed{Length: 1}
	bit := 8
	for _, n := range names {
		f.Bits = append(f.Bits, &Bits{From: bit, To: bit, ShortName: n, Encode: EncodeFlag})
		bit--
	}
	f.Bits = append(f.Bits, &Bits{From: 1, To: 1, ShortName: "FX", FX: true})

	return f
}

func TestFixedDecode(t *testing.T) {
	t.Run("Two byte item", func(t *testing.T) {
		fields, n, err := sacsic().Decode([]byte{0x01, 0x23, 0xFF}, nil)
		require.NoError(t, err)
		require.Equal(t, 2, n)
		require.Len(t, fields, 2)
		require.Equal(t, "SAC", fields[0].Name)
		require.Equal(t, uint64(1), fields[0].Value)
		require.Equal(t, "SIC", fields[1].Name)
		require.Equal(t, uint64(0x23), fields[1].Value)
	})

	t.Run("Truncated", func(t *testing.T) {
		_, _, err := sacsic().Decode([]byte{0x01}, nil)
		require.ErrorIs(t, err, errs.ErrTruncated)
	})

	t.Run("Scale and meaning", func(t *testing.T) {
		f := &Fixed{
			Length: 2,
			Bits: []*Bits{
				{From: 16, To: 15, ShortName: "V", Name: "Validated", Encode: EncodeUnsigned,
					Values: []BitsValue{{Val: 0, Meaning: "Code validated"}, {Val: 1, Meaning: "Code not validated"}}},
				{From: 14, To: 1, ShortName: "FL", Name: "Flight Level", Encode: EncodeSigned,
					Scale: 0.25, Unit: "FL"},
			},
		}
		fields, _, err := f.Decode([]byte{0x40, 0x04}, nil)
		require.NoError(t, err)
		require.Equal(t, "Code not validated", fields[0].Meaning)
		require.True(t, fields[1].HasScaled)
		require.InDelta(t, 1.0, fields[1].Scaled, 1e-9)
		require.Equal(t, "FL", fields[1].Unit)
	})

	t.Run("Octal and hex", func(t *testing.T) {
		f := &Fixed{
			Length: 2,
			Bits: []*Bits{
				{From: 12, To: 1, ShortName: "MODE3A", Encode: EncodeOctal},
			},
		}
		fields, _, err := f.Decode([]byte{0x0F, 0xFF}, nil)
		require.NoError(t, err)
		require.Equal(t, "7777", fields[0].Str)

		addr := &Fixed{
			Length: 3,
			Bits:   []*Bits{{From: 24, To: 1, ShortName: "ADR", Encode: EncodeHex}},
		}
		fields, _, err = addr.Decode([]byte{0x3C, 0x66, 0x0F}, nil)
		require.NoError(t, err)
		require.Equal(t, "3C660F", fields[0].Str)
	})

	t.Run("Spare bits skipped", func(t *testing.T) {
		f := &Fixed{
			Length: 1,
			Bits: []*Bits{
				{From: 8, To: 5, ShortName: "TYP"},
				{From: 4, To: 1, ShortName: "spare"},
			},
		}
		fields, _, err := f.Decode([]byte{0xA5}, nil)
		require.NoError(t, err)
		require.Len(t, fields, 1)
		require.Equal(t, uint64(0xA), fields[0].Value)
	})
}

func TestVariableDecode(t *testing.T) {
	v := &Variable{Parts: []*Fixed{
		trdPart("TYP", "SIM", "RDP"),
		trdPart("TST", "ERR"),
	}}

	t.Run("Single part", func(t *testing.T) {
		fields, n, err := v.Decode([]byte{0x80, 0xFF}, nil)
		require.NoError(t, err)
		require.Equal(t, 1, n)
		require.Len(t, fields, 3)
		require.Equal(t, uint64(1), fields[0].Value)
	})

	t.Run("Extension chain", func(t *testing.T) {
		fields, n, err := v.Decode([]byte{0x81, 0x80}, nil)
		require.NoError(t, err)
		require.Equal(t, 2, n)
		require.Len(t, fields, 5)
	})

	t.Run("FX beyond declared parts", func(t *testing.T) {
		_, _, err := v.Decode([]byte{0x81, 0x81}, nil)
		require.ErrorIs(t, err, errs.ErrInvalid)
		require.Contains(t, err.Error(), "extension beyond declared parts")
	})

	t.Run("Too short for next part", func(t *testing.T) {
		_, _, err := v.Decode([]byte{0x81}, nil)
		require.ErrorIs(t, err, errs.ErrTruncated)
	})

	t.Run("Width hint matches decode", func(t *testing.T) {
		data := []byte{0x81, 0x80}
		w, err := v.WidthHint(data)
		require.NoError(t, err)
		_, n, err := v.Decode(data, nil)
		require.NoError(t, err)
		require.Equal(t, n, w)
	})
}

func TestCompoundDecode(t *testing.T) {
	c := &Compound{
		Primary: &Variable{Parts: []*Fixed{{
			Length: 1,
			Bits: []*Bits{
				{From: 8, To: 8, ShortName: "COM", Encode: EncodeFlag},
				{From: 7, To: 7, ShortName: "PSR", Encode: EncodeFlag},
				{From: 6, To: 2, ShortName: "spare"},
				{From: 1, To: 1, ShortName: "FX", FX: true},
			},
		}}},
		Subs: []Format{
			sacsic(),
			&Fixed{Length: 1, Bits: []*Bits{{From: 8, To: 1, ShortName: "CNT"}}},
		},
	}

	t.Run("Both subfields present", func(t *testing.T) {
		fields, n, err := c.Decode([]byte{0xC0, 0x01, 0x23, 0x07}, nil)
		require.NoError(t, err)
		require.Equal(t, 4, n)
		require.Len(t, fields, 2)
		require.Equal(t, "COM", fields[0].Name)
		require.True(t, fields[0].Group)
		require.Len(t, fields[0].Children, 2)
		require.Equal(t, "PSR", fields[1].Name)
		require.Equal(t, uint64(7), fields[1].Children[0].Value)
	})

	t.Run("Second subfield only", func(t *testing.T) {
		fields, n, err := c.Decode([]byte{0x40, 0x07}, nil)
		require.NoError(t, err)
		require.Equal(t, 2, n)
		require.Len(t, fields, 1)
		require.Equal(t, "PSR", fields[0].Name)
	})

	t.Run("Presence bit without subfield", func(t *testing.T) {
		_, _, err := c.Decode([]byte{0x20, 0x00}, nil)
		require.ErrorIs(t, err, errs.ErrInvalid)
	})

	t.Run("Width hint matches decode", func(t *testing.T) {
		data := []byte{0xC0, 0x01, 0x23, 0x07}
		w, err := c.WidthHint(data)
		require.NoError(t, err)
		require.Equal(t, 4, w)
	})
}

func TestRepetitiveDecode(t *testing.T) {
	r := &Repetitive{Sub: sacsic()}

	t.Run("Three repetitions", func(t *testing.T) {
		data := []byte{0x03, 0x01, 0x01, 0x02, 0x02, 0x03, 0x03}
		fields, n, err := r.Decode(data, nil)
		require.NoError(t, err)
		require.Equal(t, 7, n)
		require.Len(t, fields, 1)
		require.True(t, fields[0].Repeated)
		require.Len(t, fields[0].Children, 3)
		require.Equal(t, uint64(3), fields[0].Children[2].Children[0].Value)
	})

	t.Run("Zero repetitions", func(t *testing.T) {
		fields, n, err := r.Decode([]byte{0x00}, nil)
		require.NoError(t, err)
		require.Equal(t, 1, n)
		require.Empty(t, fields[0].Children)
	})

	t.Run("Count exceeds data", func(t *testing.T) {
		_, _, err := r.Decode([]byte{0x04, 0x01, 0x01}, nil)
		require.ErrorIs(t, err, errs.ErrTruncated)
	})
}

func TestExplicitDecode(t *testing.T) {
	t.Run("Inner fixed", func(t *testing.T) {
		e := &Explicit{Inner: sacsic()}
		fields, n, err := e.Decode([]byte{0x03, 0x01, 0x23}, nil)
		require.NoError(t, err)
		require.Equal(t, 3, n)
		require.Len(t, fields, 2)
	})

	t.Run("Opaque payload", func(t *testing.T) {
		e := &Explicit{}
		fields, n, err := e.Decode([]byte{0x04, 0xDE, 0xAD, 0xBE}, nil)
		require.NoError(t, err)
		require.Equal(t, 4, n)
		require.Equal(t, "DEADBE", fields[0].Str)
	})

	t.Run("Length below one", func(t *testing.T) {
		e := &Explicit{Inner: sacsic()}
		_, _, err := e.Decode([]byte{0x00, 0x01}, nil)
		require.ErrorIs(t, err, errs.ErrInvalid)
	})

	t.Run("Inner under-consumes", func(t *testing.T) {
		e := &Explicit{Inner: sacsic()}
		_, _, err := e.Decode([]byte{0x04, 0x01, 0x23, 0x45}, nil)
		require.ErrorIs(t, err, errs.ErrInvalid)
	})

	t.Run("Payload truncated", func(t *testing.T) {
		e := &Explicit{Inner: sacsic()}
		_, _, err := e.Decode([]byte{0x05, 0x01}, nil)
		require.ErrorIs(t, err, errs.ErrTruncated)
	})
}

type bdsTable map[string]*DataItemDescription

func (t bdsTable) BDSItem(register string) *DataItemDescription { return t[register] }

func TestBDSDecode(t *testing.T) {
	table := bdsTable{
		"60": {
			ID:   "60",
			Name: "Heading and speed report",
			Format: &Fixed{
				Length: 7,
				Bits:   []*Bits{{From: 56, To: 46, ShortName: "HDG", Encode: EncodeUnsigned}},
			},
		},
	}

	t.Run("Known register", func(t *testing.T) {
		data := []byte{0x60, 0xFF, 0xE0, 0x00, 0x00, 0x00, 0x00, 0x00}
		fields, n, err := BDS{}.Decode(data, table)
		require.NoError(t, err)
		require.Equal(t, 8, n)
		require.Equal(t, "BDS60", fields[0].Name)
		require.True(t, fields[0].Group)
		require.Equal(t, "HDG", fields[0].Children[0].Name)
	})

	t.Run("Unknown register", func(t *testing.T) {
		data := []byte{0x44, 0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07}
		fields, n, err := BDS{}.Decode(data, table)
		require.NoError(t, err)
		require.Equal(t, 8, n)
		require.Equal(t, "BDS44", fields[0].Name)
		require.Equal(t, "01020304050607", fields[0].Str)
	})

	t.Run("Truncated", func(t *testing.T) {
		_, _, err := BDS{}.Decode([]byte{0x60, 0x01}, table)
		require.ErrorIs(t, err, errs.ErrTruncated)
	})
}

func TestNormalizeBDSRegister(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"60", "60", true},
		{"4a", "4A", true},
		{"BDS40", "40", true},
		{" F2 ", "F2", true},
		{"256", "", false},
		{"", "", false},
		{"not-a-register", "", false},
	}
	for _, tc := range cases {
		got, ok := NormalizeBDSRegister(tc.in)
		require.Equal(t, tc.ok, ok, tc.in)
		require.Equal(t, tc.want, got, tc.in)
	}
}

func TestUAPSelection(t *testing.T) {
	plot := &UAP{
		Name:        "plot",
		UseIfBitSet: 1,
		Entries:     []UAPEntry{{Bit: 0, FRN: 1, ItemID: "010"}},
	}
	track := &UAP{
		Name:    "track",
		Entries: []UAPEntry{{Bit: 0, FRN: 1, ItemID: "010"}},
	}
	cat := &Category{ID: 1, Name: "Monoradar", Version: "1.4", UAPs: []*UAP{plot, track}}

	t.Run("Bit selector matches", func(t *testing.T) {
		// FSPEC 0x80, first payload byte has its MSB set.
		u := cat.SelectUAP([]byte{0x80, 0x80})
		require.Same(t, plot, u)
	})

	t.Run("Falls back to unconditional", func(t *testing.T) {
		u := cat.SelectUAP([]byte{0x80, 0x00})
		require.Same(t, track, u)
	})

	t.Run("Byte selector", func(t *testing.T) {
		byUAP := &UAP{
			Name:        "service",
			UseIfByteNr: 1,
			IsSetTo:     0x05,
			Entries:     []UAPEntry{{Bit: 0, FRN: 1, ItemID: "010"}},
		}
		c := &Category{ID: 2, UAPs: []*UAP{byUAP, track}}
		require.Same(t, byUAP, c.SelectUAP([]byte{0x80, 0x05}))
		require.Same(t, track, c.SelectUAP([]byte{0x80, 0x06}))
	})

	t.Run("Extended FSPEC is skipped before matching", func(t *testing.T) {
		u := cat.SelectUAP([]byte{0x81, 0x80, 0x80})
		require.Same(t, plot, u)
	})
}

func TestCategoryDescribe(t *testing.T) {
	cat := &Category{
		ID:   48,
		Name: "Monoradar Target Reports",
		Items: []*DataItemDescription{{
			ID:     "010",
			Name:   "Data Source Identifier",
			Format: sacsic(),
		}},
	}

	s, ok := cat.Describe("", "", nil)
	require.True(t, ok)
	require.Equal(t, "Monoradar Target Reports", s)

	s, ok = cat.Describe("010", "", nil)
	require.True(t, ok)
	require.Equal(t, "Data Source Identifier", s)

	s, ok = cat.Describe("010", "SAC", nil)
	require.True(t, ok)
	require.Equal(t, "System Area Code", s)

	_, ok = cat.Describe("020", "", nil)
	require.False(t, ok)

	_, ok = cat.Describe("010", "NOPE", nil)
	require.False(t, ok)
}

func TestMaxFSPECBytes(t *testing.T) {
	u := &UAP{Entries: []UAPEntry{
		{Bit: 0, FRN: 1, ItemID: "010"},
		{Bit: 7, ItemID: FXID},
		{Bit: 8, FRN: 8, ItemID: "020"},
	}}
	require.Equal(t, 2, u.MaxFSPECBytes())
}
