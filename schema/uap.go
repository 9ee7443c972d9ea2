package schema

// UAPEntry maps one FSPEC bit position to a data item.
//
// Bit is the zero-based index across the FSPEC bitmap counting the most
// significant bit of the first byte as 0; every eighth position (bit 7, 15,
// ...) is the extension bit. ItemID is the referenced data item id, SpareID
// for an explicitly unused position, or FXID for an extension position.
type UAPEntry struct {
	Bit    int
	FRN    int // field reference number; 0 for FX entries and when none is given
	ItemID string
	Len    int // declared item length hint in bytes, 0 when unspecified
}

// Marker item ids used by UAP entries.
const (
	SpareID = "-"
	FXID    = "FX"
)

// Spare reports whether the entry is an unused FSPEC position.
func (e *UAPEntry) Spare() bool { return e.ItemID == SpareID || e.ItemID == "" }

// FX reports whether the entry is a FSPEC extension position.
func (e *UAPEntry) FX() bool { return e.ItemID == FXID }

// UAP is a User Application Profile: the ordered mapping from FSPEC bit
// positions to data item ids for one category.
//
// A category may declare several UAPs. At most one is unconditional; the
// others carry a selector evaluated against the record: UseIfBitSet matches
// a set bit in the payload following the FSPEC, UseIfByteNr matches a
// payload byte against a literal. Selection is evaluated in declaration
// order and the first match wins.
type UAP struct {
	Name string

	UseIfBitSet int // 1-based bit number in the post-FSPEC payload; 0 when unused
	UseIfByteNr int // 1-based byte number in the post-FSPEC payload; 0 when unused
	IsSetTo     int // literal compared by the byte selector

	Entries []UAPEntry
}

// Conditional reports whether the UAP carries a selector.
func (u *UAP) Conditional() bool { return u.UseIfBitSet != 0 || u.UseIfByteNr != 0 }

// Entry returns the entry for a zero-based FSPEC bit index.
func (u *UAP) Entry(bit int) (*UAPEntry, bool) {
	for i := range u.Entries {
		if u.Entries[i].Bit == bit {
			return &u.Entries[i], true
		}
	}

	return nil, false
}

// MaxFSPECBytes bounds the FSPEC length a record may carry under this
// profile: one byte per started group of seven data bits.
func (u *UAP) MaxFSPECBytes() int {
	maxBit := 0
	for i := range u.Entries {
		if u.Entries[i].Bit > maxBit {
			maxBit = u.Entries[i].Bit
		}
	}

	return maxBit/8 + 1
}

// matches evaluates the UAP's selector against a record. Both selector kinds
// first skip the record's FSPEC and then address the payload that follows,
// mirroring the reference decoder.
func (u *UAP) matches(record []byte) bool {
	if !u.Conditional() {
		return true
	}

	pos := 0
	for pos < len(record) && record[pos]&0x01 != 0 {
		pos++
	}
	pos++ // step past the terminating FSPEC byte

	if u.UseIfBitSet != 0 {
		idx := pos + (u.UseIfBitSet-1)/8
		mask := byte(0x80) >> uint((u.UseIfBitSet-1)%8)

		return idx < len(record) && record[idx]&mask != 0
	}

	idx := pos + u.UseIfByteNr - 1

	return idx < len(record) && int(record[idx]) == u.IsSetTo
}
