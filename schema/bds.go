package schema

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/croixa/astrix/errs"
)

// bdsWidth is the wire width of a Comm-B report: one register byte followed
// by the 56-bit register content.
const bdsWidth = 8

// BDS is the Comm-B Data Selector format: the first byte names a BDS
// register and the remaining seven bytes are decoded with that register's
// schema, resolved through the BDSTable passed to Decode.
type BDS struct{}

var _ Format = (*BDS)(nil)

func (BDS) Kind() Kind { return KindBDS }

// WidthHint returns the fixed 8-byte width.
func (BDS) WidthHint([]byte) (int, error) { return bdsWidth, nil }

// Decode consumes 8 bytes and decodes the register content with the matching
// register schema. An unknown register yields an opaque hex blob tagged with
// the register id.
func (BDS) Decode(data []byte, bds BDSTable) ([]*Field, int, error) {
	if len(data) < bdsWidth {
		return nil, 0, fmt.Errorf("BDS report needs %d bytes, %d remain: %w",
			bdsWidth, len(data), errs.ErrTruncated)
	}

	register := fmt.Sprintf("%02X", data[0])
	content := data[1:bdsWidth]

	var item *DataItemDescription
	if bds != nil {
		item = bds.BDSItem(register)
	}
	if item == nil || item.Format == nil {
		return []*Field{{
			Name: "BDS" + register,
			Str:  strings.ToUpper(hex.EncodeToString(content)),
		}}, bdsWidth, nil
	}

	fields, _, err := item.Format.Decode(content, bds)
	if err != nil {
		return nil, 0, fmt.Errorf("BDS register %s: %w", register, err)
	}

	return []*Field{{
		Name:     "BDS" + register,
		Desc:     item.Name,
		Group:    true,
		Children: fields,
	}}, bdsWidth, nil
}

// Describe has nothing to resolve without a register context.
func (BDS) Describe(string, *int64) (string, bool) { return "", false }

// NormalizeBDSRegister canonicalizes a register identifier from a grammar
// file. Files are inconsistent between hex pairs ("60", "4A") and decimal
// numbers ("200"); an identifier whose hex reading is at most FF is taken as
// hex (so "96" is register 0x96), otherwise a decimal reading of at most 255
// is converted ("200" becomes "C8"), and the result is an upper-case
// two-digit hex pair.
func NormalizeBDSRegister(id string) (string, bool) {
	id = strings.TrimSpace(strings.ToUpper(strings.TrimPrefix(strings.TrimSpace(id), "BDS")))
	if id == "" {
		return "", false
	}

	if v, err := strconv.ParseUint(id, 16, 16); err == nil && v <= 0xFF {
		return fmt.Sprintf("%02X", v), true
	}
	if v, err := strconv.ParseUint(id, 10, 16); err == nil && v <= 0xFF {
		return fmt.Sprintf("%02X", v), true
	}

	return "", false
}
