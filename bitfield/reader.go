// Package bitfield extracts primitive values from byte slices at bit
// granularity.
//
// ASTERIX numbers bits MSB-first across a fixed-length part: bit 1 is the
// least significant bit of the last byte and bit 8·n is the most significant
// bit of the first byte of an n-byte part. All readers in this package use
// that 1-based numbering, with from >= to selecting an inclusive range whose
// most significant bit is from.
package bitfield

import (
	"strings"

	"github.com/croixa/astrix/errs"
)

// sixBitChars maps 6-bit groups to the IA-5 subset used by ASTERIX aircraft
// identification (ICAO Annex 10 vol IV table 3-9). Unassigned codes map to '?'.
const sixBitChars = "?ABCDEFGHIJKLMNOPQRSTUVWXYZ????? ???????????????0123456789??????"

// ReadUnsigned extracts bits [from..to] of data as an unsigned integer whose
// most significant bit corresponds to from.
//
// Returns errs.ErrOutOfRange when the range is empty, wider than 64 bits, or
// extends past the slice.
func ReadUnsigned(data []byte, from, to int) (uint64, error) {
	if err := checkRange(data, from, to); err != nil {
		return 0, err
	}

	var v uint64
	for bit := from; bit >= to; bit-- {
		v = (v << 1) | uint64(bitAt(data, bit))
	}

	return v, nil
}

// ReadSigned extracts bits [from..to] of data as a two's-complement signed
// integer, sign-extending from the most significant extracted bit.
func ReadSigned(data []byte, from, to int) (int64, error) {
	v, err := ReadUnsigned(data, from, to)
	if err != nil {
		return 0, err
	}

	width := uint(from - to + 1)
	if width < 64 && v&(1<<(width-1)) != 0 {
		v |= ^uint64(0) << width
	}

	return int64(v), nil
}

// ReadASCII6 extracts bits [from..to] as consecutive 6-bit character groups
// and decodes them with the IA-5 subset alphabet. The range width must be a
// multiple of six; trailing spaces are trimmed.
func ReadASCII6(data []byte, from, to int) (string, error) {
	if err := checkRangeWide(data, from, to); err != nil {
		return "", err
	}
	width := from - to + 1
	if width%6 != 0 {
		return "", errs.ErrInvalid
	}

	var sb strings.Builder
	sb.Grow(width / 6)
	for hi := from; hi > to; hi -= 6 {
		var code int
		for bit := hi; bit > hi-6; bit-- {
			code = (code << 1) | int(bitAt(data, bit))
		}
		sb.WriteByte(sixBitChars[code])
	}

	return strings.TrimRight(sb.String(), " "), nil
}

// ReadFlag returns the value of a single bit within one byte, where
// bitInByte ranges 1..8 with 8 the most significant bit.
func ReadFlag(b byte, bitInByte int) (uint8, error) {
	if bitInByte < 1 || bitInByte > 8 {
		return 0, errs.ErrOutOfRange
	}

	return (b >> uint(bitInByte-1)) & 1, nil
}

// checkRange validates a bit range against the slice and the 64-bit result
// width of ReadUnsigned/ReadSigned.
func checkRange(data []byte, from, to int) error {
	if err := checkRangeWide(data, from, to); err != nil {
		return err
	}
	if from-to+1 > 64 {
		return errs.ErrOutOfRange
	}

	return nil
}

// checkRangeWide validates a bit range against the slice only, without the
// 64-bit cap; ReadASCII6 accepts arbitrarily wide ranges.
func checkRangeWide(data []byte, from, to int) error {
	if to < 1 || from < to || from > 8*len(data) {
		return errs.ErrOutOfRange
	}

	return nil
}

// bitAt returns bit number pos of data in ASTERIX numbering. The caller must
// have validated pos against the slice.
func bitAt(data []byte, pos int) byte {
	idx := len(data) - 1 - (pos-1)/8
	shift := uint((pos - 1) % 8)

	return (data[idx] >> shift) & 1
}
