package render

import (
	"fmt"
	"strings"

	"github.com/croixa/astrix/parser"
	"github.com/croixa/astrix/schema"
)

// renderText emits the indented human-readable listing: one header line per
// block and record, one line per leaf with unit and enumerated meaning.
func (r *Renderer) renderText(pd *parser.ParsedData, sb *strings.Builder) {
	for _, block := range pd.Blocks {
		fmt.Fprintf(sb, "Data Block CAT%03d len=%d ts=%d\n",
			block.Category, block.Length, block.Timestamp)
		if block.Err != nil && len(block.Records) == 0 {
			fmt.Fprintf(sb, "  error: %v\n", block.Err)
			continue
		}

		for i, rec := range block.Records {
			fmt.Fprintf(sb, "  Record %d crc=%08X hex=%s\n", i+1, rec.CRC, rec.Hex)
			if !rec.FormatOK {
				fmt.Fprintf(sb, "    format error: %v\n", rec.Err)
			}
			for _, it := range rec.Items {
				if r.filtered(rec.Category, it.ID, "") {
					continue
				}
				fmt.Fprintf(sb, "    I%s %s\n", it.ID, it.Name)
				for _, f := range it.Fields {
					r.textField(sb, rec.Category, it.ID, f, 6)
				}
			}
		}
	}
}

// textField writes one field line, recursing into groups.
func (r *Renderer) textField(sb *strings.Builder, cat int, itemID string, f *schema.Field, indent int) {
	if f.Group {
		if f.Name != "" {
			fmt.Fprintf(sb, "%*s%s:\n", indent, "", f.Name)
		}
		for _, c := range f.Children {
			r.textField(sb, cat, itemID, c, indent+2)
		}

		return
	}

	if r.filtered(cat, itemID, f.Name) {
		return
	}

	fmt.Fprintf(sb, "%*s%s = %s", indent, "", f.Name, f.DisplayValue())
	if f.Unit != "" {
		fmt.Fprintf(sb, " %s", f.Unit)
	}
	if f.Meaning != "" {
		fmt.Fprintf(sb, " (%s)", f.Meaning)
	}
	sb.WriteByte('\n')
}

// renderLine emits one token stream per record: CATxxx/Ixxx/NAME=value
// tokens joined by semicolons, groups contributing path segments.
func (r *Renderer) renderLine(pd *parser.ParsedData, sb *strings.Builder) {
	for _, block := range pd.Blocks {
		for _, rec := range block.Records {
			first := true
			for _, it := range rec.Items {
				if r.filtered(rec.Category, it.ID, "") {
					continue
				}
				prefix := fmt.Sprintf("CAT%03d/I%s", rec.Category, it.ID)
				for _, f := range it.Fields {
					r.lineField(sb, rec.Category, it.ID, prefix, f, &first)
				}
			}
			sb.WriteByte('\n')
		}
	}
}

func (r *Renderer) lineField(sb *strings.Builder, cat int, itemID, prefix string, f *schema.Field, first *bool) {
	if f.Group {
		next := prefix
		if f.Name != "" {
			next = prefix + "/" + f.Name
		}
		for _, c := range f.Children {
			r.lineField(sb, cat, itemID, next, c, first)
		}

		return
	}

	if r.filtered(cat, itemID, f.Name) {
		return
	}

	if !*first {
		sb.WriteByte(';')
	}
	*first = false
	fmt.Fprintf(sb, "%s/%s=%s", prefix, f.Name, f.DisplayValue())
}
