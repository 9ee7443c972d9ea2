package render

import (
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"

	"github.com/croixa/astrix/parser"
	"github.com/croixa/astrix/schema"
)

// renderXML emits one block element per block, records as children, items as
// elements named by their id and leaves as empty elements carrying raw,
// scaled and meaning attributes.
func (r *Renderer) renderXML(pd *parser.ParsedData, sb *strings.Builder, pretty bool) {
	x := &xmlWriter{sb: sb, pretty: pretty}
	for _, block := range pd.Blocks {
		x.openTag("block", attr{"category", strconv.Itoa(block.Category)},
			attr{"length", strconv.Itoa(block.Length)},
			attr{"timestamp", strconv.FormatUint(block.Timestamp, 10)},
			attr{"ok", strconv.FormatBool(block.FormatOK)})

		for _, rec := range block.Records {
			attrs := []attr{
				{"crc", fmt.Sprintf("%08X", rec.CRC)},
				{"ok", strconv.FormatBool(rec.FormatOK)},
			}
			if rec.Hex != "" {
				attrs = append(attrs, attr{"hex", rec.Hex})
			}
			x.openTag("record", attrs...)

			for _, it := range rec.Items {
				if r.filtered(rec.Category, it.ID, "") {
					continue
				}
				x.openTag(elementName("I" + it.ID))
				for _, f := range it.Fields {
					r.xmlField(x, rec.Category, it.ID, f)
				}
				x.closeTag(elementName("I" + it.ID))
			}
			x.closeTag("record")
		}
		x.closeTag("block")
		if !pretty {
			sb.WriteByte('\n')
		}
	}
	if pretty && len(pd.Blocks) > 0 {
		sb.WriteByte('\n')
	}
}

func (r *Renderer) xmlField(x *xmlWriter, cat int, itemID string, f *schema.Field) {
	if f.Group {
		name := elementName(f.Name)
		if f.Name == "" {
			name = "group"
		}
		x.openTag(name)
		for _, c := range f.Children {
			r.xmlField(x, cat, itemID, c)
		}
		x.closeTag(name)

		return
	}

	if r.filtered(cat, itemID, f.Name) {
		return
	}

	attrs := make([]attr, 0, 4)
	if f.Str != "" {
		attrs = append(attrs, attr{"val", f.Str})
	} else {
		attrs = append(attrs, attr{"raw", strconv.FormatInt(f.RawValue(), 10)})
		if f.HasScaled {
			attrs = append(attrs, attr{"val", strconv.FormatFloat(f.Scaled, 'g', -1, 64)})
		}
	}
	if f.Unit != "" {
		attrs = append(attrs, attr{"unit", f.Unit})
	}
	if f.Meaning != "" {
		attrs = append(attrs, attr{"meaning", f.Meaning})
	}
	x.emptyTag(elementName(f.Name), attrs...)
}

// elementName makes a grammar-supplied name safe as an XML element name;
// repetition ordinals get an r prefix so they do not start with a digit.
func elementName(name string) string {
	if name == "" {
		return "field"
	}
	if name[0] >= '0' && name[0] <= '9' {
		name = "r" + name
	}

	return strings.Map(func(c rune) rune {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z',
			c >= '0' && c <= '9', c == '_', c == '-', c == '.':
			return c
		default:
			return '_'
		}
	}, name)
}

type attr struct {
	name  string
	value string
}

// xmlWriter hand-builds the element stream; attribute values go through the
// encoding/xml escaper.
type xmlWriter struct {
	sb     *strings.Builder
	pretty bool
	depth  int
}

func (x *xmlWriter) openTag(name string, attrs ...attr) {
	x.startLine()
	x.sb.WriteByte('<')
	x.sb.WriteString(name)
	x.writeAttrs(attrs)
	x.sb.WriteByte('>')
	x.depth++
}

func (x *xmlWriter) closeTag(name string) {
	x.depth--
	x.startLine()
	x.sb.WriteString("</")
	x.sb.WriteString(name)
	x.sb.WriteByte('>')
}

func (x *xmlWriter) emptyTag(name string, attrs ...attr) {
	x.startLine()
	x.sb.WriteByte('<')
	x.sb.WriteString(name)
	x.writeAttrs(attrs)
	x.sb.WriteString("/>")
}

func (x *xmlWriter) writeAttrs(attrs []attr) {
	for _, a := range attrs {
		x.sb.WriteByte(' ')
		x.sb.WriteString(a.name)
		x.sb.WriteString(`="`)
		_ = xml.EscapeText(x.sb, []byte(a.value))
		x.sb.WriteByte('"')
	}
}

func (x *xmlWriter) startLine() {
	if !x.pretty {
		return
	}
	if x.sb.Len() > 0 {
		x.sb.WriteByte('\n')
	}
	for i := 0; i < x.depth; i++ {
		x.sb.WriteString("  ")
	}
}
