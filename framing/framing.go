// Package framing strips capture-file encapsulations from raw ASTERIX data.
//
// Surveillance recordings arrive in several containers: plain concatenated
// data blocks, PCAP captures of the UDP multicast feed, and FINAL recording
// files. A Framer walks one container format and yields the embedded ASTERIX
// payloads together with the capture timestamps the container carries.
// Compressed recordings are handled up front by Decompress, which sniffs the
// compression magic and inflates before deframing.
package framing

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/croixa/astrix/errs"
)

// Kind selects a container format.
type Kind uint8

const (
	// KindRaw treats the input as concatenated ASTERIX data blocks.
	KindRaw Kind = iota + 1
	// KindPCAP extracts ASTERIX from UDP packets in a PCAP capture.
	KindPCAP
	// KindFinal unwraps FINAL recording records.
	KindFinal
)

func (k Kind) String() string {
	switch k {
	case KindRaw:
		return "raw"
	case KindPCAP:
		return "pcap"
	case KindFinal:
		return "final"
	default:
		return "unknown"
	}
}

// ParseKind maps a format name, as accepted on the command line, to its
// container kind.
func ParseKind(s string) (Kind, bool) {
	switch s {
	case "raw":
		return KindRaw, true
	case "pcap":
		return KindPCAP, true
	case "final":
		return KindFinal, true
	default:
		return 0, false
	}
}

// Frame is one deframed ASTERIX payload.
type Frame struct {
	Payload []byte
	// TimestampMS is the capture timestamp in milliseconds carried by the
	// container, zero when the container has none.
	TimestampMS uint64
}

// Framer yields the frames of one container in order. Next returns io.EOF
// when the container is exhausted.
type Framer interface {
	Next() (*Frame, error)
}

// Open decompresses data if needed and returns a framer for the requested
// container kind, with KindRaw falling back to PCAP when the input carries a
// PCAP magic number.
func Open(data []byte, kind Kind) (Framer, error) {
	data, err := Decompress(data)
	if err != nil {
		return nil, err
	}

	if kind == KindRaw && isPCAP(data) {
		kind = KindPCAP
	}

	switch kind {
	case KindRaw:
		return &rawFramer{data: data}, nil
	case KindPCAP:
		return newPCAPFramer(data)
	case KindFinal:
		return &finalFramer{data: data}, nil
	default:
		return nil, fmt.Errorf("unknown framing kind %d: %w", kind, errs.ErrConfig)
	}
}

// rawFramer yields the whole buffer as a single frame.
type rawFramer struct {
	data []byte
	done bool
}

func (f *rawFramer) Next() (*Frame, error) {
	if f.done || len(f.data) == 0 {
		return nil, io.EOF
	}
	f.done = true

	return &Frame{Payload: f.data}, nil
}

// finalHeader is the FINAL record prefix: a big-endian byte count covering
// header, payload and trailing padding, one line identifier byte, and a
// 24-bit timestamp in 10-millisecond units.
const (
	finalHeaderLen  = 6
	finalPaddingLen = 4
)

// finalFramer walks FINAL recording records.
type finalFramer struct {
	data []byte
	cur  int
}

func (f *finalFramer) Next() (*Frame, error) {
	if f.cur >= len(f.data) {
		return nil, io.EOF
	}
	if f.cur+finalHeaderLen > len(f.data) {
		return nil, fmt.Errorf("FINAL record header needs %d bytes, %d remain: %w",
			finalHeaderLen, len(f.data)-f.cur, errs.ErrTruncated)
	}

	hdr := f.data[f.cur:]
	byteCount := int(binary.BigEndian.Uint16(hdr[0:2]))
	ticks := uint64(hdr[3])<<16 | uint64(hdr[4])<<8 | uint64(hdr[5])

	payloadLen := byteCount - finalHeaderLen - finalPaddingLen
	if payloadLen <= 0 {
		return nil, fmt.Errorf("FINAL record byte count %d too small: %w",
			byteCount, errs.ErrInvalid)
	}
	if f.cur+byteCount > len(f.data) {
		return nil, fmt.Errorf("FINAL record of %d bytes, %d remain: %w",
			byteCount, len(f.data)-f.cur, errs.ErrTruncated)
	}

	payload := f.data[f.cur+finalHeaderLen : f.cur+finalHeaderLen+payloadLen]
	f.cur += byteCount

	return &Frame{Payload: payload, TimestampMS: ticks * 10}, nil
}
