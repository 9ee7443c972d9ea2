package parser

import (
	"encoding/hex"
	"fmt"
	"hash/crc32"
	"strings"

	"github.com/croixa/astrix/errs"
	"github.com/croixa/astrix/schema"
)

// ParsedData is the result of one Parse call: the decoded blocks in input
// order plus a count of the blocks that failed.
type ParsedData struct {
	Blocks     []*DataBlock
	ErrorCount int
}

// Records flattens the record lists of all blocks in input order.
func (pd *ParsedData) Records() []*Record {
	var recs []*Record
	for _, b := range pd.Blocks {
		recs = append(recs, b.Records...)
	}

	return recs
}

// DataBlock is one category/length/payload unit of the input stream.
type DataBlock struct {
	Category  int
	Length    int    // declared block length including the 3-byte header
	Timestamp uint64 // milliseconds since the Unix epoch, caller supplied

	FormatOK bool
	Err      error

	Records []*Record
}

// Record is one FSPEC-prefixed message within a block.
type Record struct {
	Category  int
	Timestamp uint64

	FSPEC []byte
	Raw   []byte // copy of the record bytes (FSPEC plus items)
	Len   int
	CRC   uint32 // CRC-32 (zlib polynomial) over Raw
	Hex   string // upper-case hex dump of Raw

	FormatOK bool
	Err      error

	Items []*Item
}

// Item pairs a decoded field tree with its data item identity.
type Item struct {
	ID     string
	Name   string
	Fields []*schema.Field
}

// decodeRecord decodes one record at the head of payload and reports how
// many bytes it covered. Decoding failures return a flagged record holding
// whatever was decoded before the failure.
func (p *PacketParser) decodeRecord(cat *schema.Category, payload []byte, timestampMS uint64) (*Record, int) {
	rec := &Record{Category: cat.ID, Timestamp: timestampMS}
	fail := func(err error) (*Record, int) {
		rec.Err = err
		rec.seal(payload[:0])

		return rec, 0
	}

	uap := cat.SelectUAP(payload)
	if uap == nil {
		return fail(fmt.Errorf("category %d has no matching UAP: %w", cat.ID, errs.ErrInvalid))
	}

	fspec, err := readFSPEC(payload, uap.MaxFSPECBytes())
	if err != nil {
		return fail(err)
	}
	rec.FSPEC = fspec
	cursor := len(fspec)

	for byteIdx, b := range fspec {
		for bitPos := 8; bitPos >= 2; bitPos-- {
			if b&(1<<uint(bitPos-1)) == 0 {
				continue
			}
			bit := byteIdx*8 + (8 - bitPos)

			entry, ok := uap.Entry(bit)
			if !ok {
				rec.Err = fmt.Errorf("FSPEC bit %d extends past UAP: %w", bit+1, errs.ErrInvalid)
				rec.seal(payload[:cursor])

				return rec, 0
			}
			if entry.Spare() {
				continue
			}

			item := cat.Item(entry.ItemID)
			if item == nil || item.Format == nil {
				rec.Err = fmt.Errorf("FRN %d references undefined item %s of category %d: %w",
					entry.FRN, entry.ItemID, cat.ID, errs.ErrSchemaMismatch)
				rec.seal(payload[:cursor])

				return rec, 0
			}

			fields, n, err := item.Format.Decode(payload[cursor:], p.reg)
			if err != nil {
				rec.Err = fmt.Errorf("item %s of category %d: %w", item.ID, cat.ID, err)
				rec.seal(payload[:cursor])

				return rec, 0
			}
			rec.Items = append(rec.Items, &Item{ID: item.ID, Name: item.Name, Fields: fields})
			cursor += n
		}
	}

	rec.FormatOK = true
	rec.seal(payload[:cursor])

	return rec, cursor
}

// seal copies the covered bytes into the record and derives the length, the
// checksum and the hex dump.
func (r *Record) seal(covered []byte) {
	r.Raw = append([]byte(nil), covered...)
	r.Len = len(r.Raw)
	r.CRC = crc32.ChecksumIEEE(r.Raw)
	r.Hex = strings.ToUpper(hex.EncodeToString(r.Raw))
}

// readFSPEC consumes the leading FSPEC bytes: bit 1 of each byte is the
// extension bit, and the bitmap may not span more bytes than the UAP
// declares positions for.
func readFSPEC(payload []byte, maxBytes int) ([]byte, error) {
	for i := 0; i < len(payload); i++ {
		if i >= maxBytes {
			return nil, fmt.Errorf("FSPEC exceeds %d bytes allowed by UAP: %w",
				maxBytes, errs.ErrInvalid)
		}
		if payload[i]&0x01 == 0 {
			return payload[:i+1], nil
		}
	}

	return nil, fmt.Errorf("FSPEC extension runs past payload end: %w", errs.ErrInvalid)
}
