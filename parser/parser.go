// Package parser scans raw ASTERIX byte streams into data blocks and
// decodes each record against the loaded category grammars.
//
// The wire layout is a sequence of data blocks, each a one-byte category, a
// two-byte big-endian total length, and a payload of back-to-back records.
// Every record starts with a FSPEC bitmap whose set bits select the data
// items that follow, resolved through the category's User Application
// Profile.
//
// A PacketParser holds only an immutable registry handle, so distinct
// parser instances may decode concurrently against the same registry.
package parser

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/croixa/astrix/errs"
	"github.com/croixa/astrix/registry"
	"github.com/croixa/astrix/schema"
)

// blockHeader is the category byte plus the big-endian length word.
const blockHeader = 3

// PacketParser decodes ASTERIX byte buffers using a loaded registry.
type PacketParser struct {
	reg *registry.Registry
}

// New creates a parser borrowing the given registry handle.
func New(reg *registry.Registry) *PacketParser {
	return &PacketParser{reg: reg}
}

// Parse scans every data block in data until the buffer is exhausted or a
// malformed block header stops the scan. Blocks that fail to decode are
// still returned, flagged via FormatOK and Err, so callers wanting strict
// semantics can inspect them while best-effort callers just consume the
// tree.
//
// timestampMS (milliseconds since the Unix epoch) is attached to every
// block and record; the parser has no clock of its own.
func (p *PacketParser) Parse(data []byte, timestampMS uint64) *ParsedData {
	pd := &ParsedData{}
	cursor := 0
	for cursor < len(data) {
		block, next, err := p.ParseNextBlock(data, cursor, timestampMS)
		if block != nil {
			pd.Blocks = append(pd.Blocks, block)
			if !block.FormatOK {
				pd.ErrorCount++
			}
		}
		if err != nil && !errors.Is(err, errs.ErrUnknownCategory) {
			// a corrupt header leaves no reliable way to find the next block
			break
		}
		if next == cursor {
			break
		}
		cursor = next
	}

	return pd
}

// ParseNextBlock decodes the single data block starting at cursor.
//
// Returns the block (nil when cursor already sits at the buffer end or the
// block header cannot be read), the new cursor, and an error for malformed
// input. An unknown category yields
// a flagged block, an ErrUnknownCategory error, and a cursor advanced past
// the block so the caller can continue; header-level failures leave the
// cursor in place.
func (p *PacketParser) ParseNextBlock(data []byte, cursor int, timestampMS uint64) (*DataBlock, int, error) {
	if cursor < 0 || cursor > len(data) {
		return nil, cursor, fmt.Errorf("cursor %d outside buffer of %d bytes: %w",
			cursor, len(data), errs.ErrOverflow)
	}
	if cursor == len(data) {
		return nil, cursor, nil
	}

	remaining := data[cursor:]
	if len(remaining) < blockHeader {
		return nil, cursor, fmt.Errorf("%d bytes remain, block header needs %d: %w",
			len(remaining), blockHeader, errs.ErrTruncated)
	}

	category := int(remaining[0])
	length := int(binary.BigEndian.Uint16(remaining[1:3]))

	if length < blockHeader {
		return nil, cursor, fmt.Errorf("block length %d below header size: %w",
			length, errs.ErrInvalid)
	}
	if length > len(remaining) {
		block := &DataBlock{
			Category:  category,
			Length:    length,
			Timestamp: timestampMS,
			Err: fmt.Errorf("block declares %d bytes, %d remain: %w",
				length, len(remaining), errs.ErrTruncated),
		}

		return block, cursor, block.Err
	}

	cat := p.reg.Category(category)
	if cat == nil || category < schema.MinCategory || category > schema.MaxCategory {
		block := &DataBlock{
			Category:  category,
			Length:    length,
			Timestamp: timestampMS,
			Err:       fmt.Errorf("category %d: %w", category, errs.ErrUnknownCategory),
		}

		return block, cursor + length, block.Err
	}

	block := &DataBlock{
		Category:  category,
		Length:    length,
		Timestamp: timestampMS,
		FormatOK:  true,
	}
	p.parseRecords(block, cat, remaining[blockHeader:length])

	return block, cursor + length, nil
}

// parseRecords splits a block payload into records. A record that fails to
// decode keeps its partial item list, flags itself, and abandons the rest of
// the block; blocks after it are unaffected.
func (p *PacketParser) parseRecords(block *DataBlock, cat *schema.Category, payload []byte) {
	cursor := 0
	for cursor < len(payload) {
		rec, n := p.decodeRecord(cat, payload[cursor:], block.Timestamp)
		block.Records = append(block.Records, rec)
		if !rec.FormatOK {
			block.FormatOK = false
			block.Err = rec.Err

			return
		}
		cursor += n
	}
}

// ParseWithOffset parses up to maxBlocks blocks starting at offset
// (maxBlocks == 0 parses all). It returns the parsed data, the number of
// bytes consumed from offset, and an estimate of the complete blocks still
// left in the buffer.
func (p *PacketParser) ParseWithOffset(data []byte, offset, maxBlocks int, timestampMS uint64) (*ParsedData, int, int, error) {
	if offset < 0 || offset >= len(data) {
		return nil, 0, 0, fmt.Errorf("offset %d outside buffer of %d bytes: %w",
			offset, len(data), errs.ErrOverflow)
	}

	pd := &ParsedData{}
	cursor := offset
	for cursor < len(data) && (maxBlocks == 0 || len(pd.Blocks) < maxBlocks) {
		block, next, err := p.ParseNextBlock(data, cursor, timestampMS)
		if block != nil {
			pd.Blocks = append(pd.Blocks, block)
			if !block.FormatOK {
				pd.ErrorCount++
			}
		}
		if err != nil && !errors.Is(err, errs.ErrUnknownCategory) {
			break
		}
		if next == cursor {
			break
		}
		cursor = next
	}

	return pd, cursor - offset, p.estimateBlocks(data, cursor), nil
}

// estimateBlocks walks block headers from cursor without decoding payloads.
func (p *PacketParser) estimateBlocks(data []byte, cursor int) int {
	count := 0
	for cursor+blockHeader <= len(data) {
		length := int(binary.BigEndian.Uint16(data[cursor+1 : cursor+3]))
		if length < blockHeader || cursor+length > len(data) {
			break
		}
		cursor += length
		count++
	}

	return count
}
