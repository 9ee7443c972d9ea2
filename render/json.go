package render

import (
	"strconv"
	"strings"

	"github.com/croixa/astrix/parser"
	"github.com/croixa/astrix/schema"
)

// jsonMode selects the flavor of the JSON output.
type jsonMode uint8

const (
	jsonCompact jsonMode = iota
	jsonPretty
	jsonExtensive // pretty plus raw values, hex dumps and descriptions
)

func (m jsonMode) pretty() bool { return m != jsonCompact }

// renderJSON emits one JSON object per block: compact on a single line,
// pretty and extensive indented.
func (r *Renderer) renderJSON(pd *parser.ParsedData, sb *strings.Builder, mode jsonMode) {
	for _, block := range pd.Blocks {
		w := &jsonWriter{sb: sb, pretty: mode.pretty()}
		w.open('{')
		w.key("category")
		w.writeInt(int64(block.Category))
		w.key("length")
		w.writeInt(int64(block.Length))
		w.key("timestamp")
		w.writeUint(block.Timestamp)
		w.key("ok")
		w.writeBool(block.FormatOK)
		if block.Err != nil {
			w.key("error")
			w.writeString(block.Err.Error())
		}

		w.key("records")
		w.open('[')
		for _, rec := range block.Records {
			w.elem()
			r.jsonRecord(w, rec, mode)
		}
		w.close(']')
		w.close('}')
		sb.WriteByte('\n')
	}
}

func (r *Renderer) jsonRecord(w *jsonWriter, rec *parser.Record, mode jsonMode) {
	w.open('{')
	w.key("crc")
	w.writeString(strconv.FormatUint(uint64(rec.CRC), 16))
	w.key("ok")
	w.writeBool(rec.FormatOK)
	if rec.Err != nil {
		w.key("error")
		w.writeString(rec.Err.Error())
	}
	if mode == jsonExtensive {
		w.key("hex")
		w.writeString(rec.Hex)
		w.key("timestamp")
		w.writeUint(rec.Timestamp)
	}

	for _, it := range rec.Items {
		if r.filtered(rec.Category, it.ID, "") {
			continue
		}
		w.key("I" + it.ID)
		w.open('{')
		if mode == jsonExtensive {
			if desc := r.describeItem(rec.Category, it); desc != "" {
				w.key("desc")
				w.writeString(desc)
			}
		}
		for _, f := range it.Fields {
			r.jsonField(w, rec.Category, it.ID, f, mode)
		}
		w.close('}')
	}
	w.close('}')
}

func (r *Renderer) jsonField(w *jsonWriter, cat int, itemID string, f *schema.Field, mode jsonMode) {
	if f.Group {
		if f.Repeated {
			w.key(groupKey(f))
			w.open('[')
			for _, rep := range f.Children {
				w.elem()
				w.open('{')
				for _, c := range rep.Children {
					r.jsonField(w, cat, itemID, c, mode)
				}
				w.close('}')
			}
			w.close(']')

			return
		}

		w.key(groupKey(f))
		w.open('{')
		for _, c := range f.Children {
			r.jsonField(w, cat, itemID, c, mode)
		}
		w.close('}')

		return
	}

	if r.filtered(cat, itemID, f.Name) {
		return
	}

	w.key(f.Name)
	if mode != jsonExtensive {
		w.writeLeafValue(f)

		return
	}

	w.open('{')
	if f.Str == "" {
		w.key("raw")
		w.writeInt(f.RawValue())
	}
	w.key("val")
	w.writeLeafValue(f)
	if f.Meaning != "" {
		w.key("meaning")
		w.writeString(f.Meaning)
	}
	if f.Unit != "" {
		w.key("unit")
		w.writeString(f.Unit)
	}
	if f.Desc != "" {
		w.key("desc")
		w.writeString(f.Desc)
	}
	w.close('}')
}

// groupKey labels a group node by its name; unnamed groups are keyed
// "fields". Repetitions inside a repeated collection are array elements.
func groupKey(f *schema.Field) string {
	if f.Name != "" {
		return f.Name
	}

	return "fields"
}

// jsonWriter hand-builds JSON so field order follows the grammar and output
// appends directly to the caller's builder.
type jsonWriter struct {
	sb     *strings.Builder
	pretty bool
	counts []int // elements written per open container
}

func (w *jsonWriter) open(ch byte) {
	w.sb.WriteByte(ch)
	w.counts = append(w.counts, 0)
}

func (w *jsonWriter) close(ch byte) {
	depth := len(w.counts) - 1
	if w.pretty && w.counts[depth] > 0 {
		w.sb.WriteByte('\n')
		w.indent(depth - 1)
	}
	w.counts = w.counts[:depth]
	w.sb.WriteByte(ch)
}

// key starts an object member.
func (w *jsonWriter) key(name string) {
	w.sep()
	w.sb.WriteString(strconv.Quote(name))
	w.sb.WriteByte(':')
	if w.pretty {
		w.sb.WriteByte(' ')
	}
}

// elem starts an array element.
func (w *jsonWriter) elem() {
	w.sep()
}

func (w *jsonWriter) sep() {
	depth := len(w.counts) - 1
	if depth < 0 {
		return
	}
	if w.counts[depth] > 0 {
		w.sb.WriteByte(',')
	}
	w.counts[depth]++
	if w.pretty {
		w.sb.WriteByte('\n')
		w.indent(depth)
	}
}

func (w *jsonWriter) indent(depth int) {
	for i := 0; i <= depth; i++ {
		w.sb.WriteString("  ")
	}
}

func (w *jsonWriter) writeString(s string) { w.sb.WriteString(strconv.Quote(s)) }
func (w *jsonWriter) writeInt(v int64)     { w.sb.WriteString(strconv.FormatInt(v, 10)) }
func (w *jsonWriter) writeUint(v uint64)   { w.sb.WriteString(strconv.FormatUint(v, 10)) }
func (w *jsonWriter) writeBool(v bool)     { w.sb.WriteString(strconv.FormatBool(v)) }

func (w *jsonWriter) writeFloat(v float64) {
	w.sb.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
}

// writeLeafValue emits the scaled value when a scale applies, the string
// form for character, hex and octal encodings, and the raw integer
// otherwise.
func (w *jsonWriter) writeLeafValue(f *schema.Field) {
	switch {
	case f.Str != "":
		w.writeString(f.Str)
	case f.HasScaled:
		w.writeFloat(f.Scaled)
	case f.IsSigned:
		w.writeInt(f.Signed)
	default:
		w.writeUint(f.Value)
	}
}
