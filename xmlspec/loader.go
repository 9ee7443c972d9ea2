// Package xmlspec loads ASTERIX category grammars from XML definition files.
//
// The loader walks the XML token stream the way the definition DTD is
// structured: a Category root, DataItem descriptions, a format tree built
// from the six format elements, and one or more UAP profiles. Character data
// may arrive in multiple chunks, so the loader keeps a single active sink
// per leaf element and always appends, flushing when the element closes.
//
// A malformed file is reported once, tagged with the file name and 1-based
// line number, and loading of that file stops. Other manifest entries keep
// loading so the registry still answers for the categories that did load.
package xmlspec

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/croixa/astrix/errs"
	"github.com/croixa/astrix/registry"
	"github.com/croixa/astrix/schema"
)

// LoadFile parses one XML grammar file and registers the resulting category
// with the builder.
func LoadFile(path string, b *registry.Builder) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%s: %v: %w", path, err, errs.ErrConfig)
	}

	cat, err := Parse(data, path)
	if err != nil {
		return err
	}

	return b.Add(cat)
}

// Parse builds a category schema from the raw bytes of one grammar file.
// name tags error messages, conventionally the file path.
func Parse(data []byte, name string) (*schema.Category, error) {
	l := &loader{
		file:    name,
		offsets: newlineOffsets(data),
	}

	dec := xml.NewDecoder(strings.NewReader(string(data)))
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, l.errf(dec, "malformed XML: %v", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if err := l.start(dec, t); err != nil {
				return nil, err
			}
		case xml.CharData:
			l.chardata(t)
		case xml.EndElement:
			if err := l.end(dec, t); err != nil {
				return nil, err
			}
		}
	}

	if l.category == nil {
		return nil, l.errf(dec, "no Category element")
	}

	return l.category, nil
}

// loader is the element-handler state machine for one grammar file.
type loader struct {
	file    string
	offsets []int

	category *schema.Category
	item     *schema.DataItemDescription
	stack    []schema.Format // open format elements, innermost last
	inFormat bool            // inside DataItemFormat

	uap       *schema.UAP
	uapItem   *schema.UAPEntry
	bits      *schema.Bits
	bitsValue *schema.BitsValue

	// character-data sink, activated by the opening leaf element
	sinkStr *string
	sinkInt *int64
	sinkBuf strings.Builder
}

func (l *loader) start(dec *xml.Decoder, t xml.StartElement) error {
	attrs := attrMap(t)

	switch t.Name.Local {
	case "Category":
		return l.startCategory(dec, attrs)
	case "DataItem":
		return l.startDataItem(dec, attrs)
	case "DataItemName":
		if l.item != nil {
			l.stringSink(&l.item.Name)
		}
	case "DataItemDefinition":
		if l.item != nil {
			l.stringSink(&l.item.Definition)
		}
	case "DataItemNote":
		if l.item != nil {
			l.stringSink(&l.item.Note)
		}
	case "DataItemFormat":
		if l.item == nil {
			return l.errf(dec, "DataItemFormat outside DataItem")
		}
		l.inFormat = true
	case "Fixed":
		return l.startFixed(dec, attrs)
	case "Variable":
		return l.push(dec, &schema.Variable{})
	case "Compound":
		return l.push(dec, &schema.Compound{})
	case "Repetitive":
		return l.push(dec, &schema.Repetitive{})
	case "Explicit":
		return l.push(dec, &schema.Explicit{})
	case "BDS":
		return l.push(dec, schema.BDS{})
	case "Bits":
		return l.startBits(dec, attrs)
	case "BitsShortName":
		if l.bits != nil {
			l.stringSink(&l.bits.ShortName)
		}
	case "BitsName":
		if l.bits != nil {
			l.stringSink(&l.bits.Name)
		}
	case "BitsValue":
		return l.startBitsValue(dec, attrs)
	case "BitsUnit":
		return l.startBitsUnit(dec, attrs)
	case "BitsConst":
		if l.bits == nil {
			return l.errf(dec, "BitsConst outside Bits")
		}
		l.bits.HasConst = true
		l.intSink(&l.bits.Const)
	case "UAP":
		return l.startUAP(dec, attrs)
	case "UAPItem":
		return l.startUAPItem(dec, attrs)
	}

	return nil
}

func (l *loader) end(dec *xml.Decoder, t xml.EndElement) error {
	l.flushSink()

	switch t.Name.Local {
	case "DataItem":
		return l.endDataItem(dec)
	case "DataItemFormat":
		l.inFormat = false
	case "Fixed", "Variable", "Compound", "Repetitive", "Explicit", "BDS":
		if len(l.stack) > 0 {
			l.stack = l.stack[:len(l.stack)-1]
		}
	case "Bits":
		return l.endBits(dec)
	case "BitsValue":
		if l.bits != nil && l.bitsValue != nil {
			l.bits.Values = append(l.bits.Values, *l.bitsValue)
		}
		l.bitsValue = nil
	case "UAP":
		if l.category != nil && l.uap != nil {
			l.category.UAPs = append(l.category.UAPs, l.uap)
		}
		l.uap = nil
	case "UAPItem":
		return l.endUAPItem(dec)
	}

	return nil
}

func (l *loader) chardata(t xml.CharData) {
	if l.sinkStr != nil || l.sinkInt != nil {
		l.sinkBuf.Write(t)
	}
}

// --- element start handlers ---

func (l *loader) startCategory(dec *xml.Decoder, attrs map[string]string) error {
	if l.category != nil {
		return l.errf(dec, "nested Category element")
	}

	idAttr, ok := attrs["id"]
	if !ok {
		return l.errf(dec, "Category missing required attribute id")
	}
	id, err := parseCategoryID(idAttr)
	if err != nil {
		return l.errf(dec, "Category id %q: %v", idAttr, err)
	}

	l.category = &schema.Category{
		ID:      id,
		Name:    attrs["name"],
		Version: attrs["ver"],
	}

	return nil
}

func (l *loader) startDataItem(dec *xml.Decoder, attrs map[string]string) error {
	if l.category == nil {
		return l.errf(dec, "DataItem outside Category")
	}

	id, ok := attrs["id"]
	if !ok {
		return l.errf(dec, "DataItem missing required attribute id")
	}

	l.item = &schema.DataItemDescription{
		ID:   id,
		Rule: schema.ParseRule(attrs["rule"]),
	}

	return nil
}

func (l *loader) startFixed(dec *xml.Decoder, attrs map[string]string) error {
	length, err := strconv.Atoi(attrs["length"])
	if err != nil || length < 1 {
		return l.errf(dec, "Fixed has invalid length %q", attrs["length"])
	}

	return l.push(dec, &schema.Fixed{Length: length})
}

func (l *loader) startBits(dec *xml.Decoder, attrs map[string]string) error {
	fixed, ok := l.top().(*schema.Fixed)
	if !ok {
		return l.errf(dec, "Bits outside Fixed")
	}

	b := &schema.Bits{}
	if bit, ok := attrs["bit"]; ok {
		n, err := strconv.Atoi(bit)
		if err != nil {
			return l.errf(dec, "Bits bit attribute %q", bit)
		}
		b.From, b.To = n, n
	} else {
		from, err1 := strconv.Atoi(attrs["from"])
		to, err2 := strconv.Atoi(attrs["to"])
		if err1 != nil || err2 != nil {
			return l.errf(dec, "Bits needs bit or from/to attributes")
		}
		// A few grammar files swap the range ends; normalize to from >= to.
		if from < to {
			from, to = to, from
		}
		b.From, b.To = from, to
	}
	if b.From > 8*fixed.Length {
		return l.errf(dec, "Bits range %d..%d exceeds %d-byte part", b.From, b.To, fixed.Length)
	}

	enc, ok := schema.ParseEncoding(attrs["encode"])
	if !ok {
		return l.errf(dec, "Bits has unknown encode %q", attrs["encode"])
	}
	b.Encode = enc
	b.FX = attrs["fx"] == "1"

	fixed.Bits = append(fixed.Bits, b)
	l.bits = b

	return nil
}

func (l *loader) startBitsValue(dec *xml.Decoder, attrs map[string]string) error {
	if l.bits == nil {
		return l.errf(dec, "BitsValue outside Bits")
	}

	val, err := strconv.ParseInt(attrs["val"], 10, 64)
	if err != nil {
		return l.errf(dec, "BitsValue val attribute %q", attrs["val"])
	}

	l.bitsValue = &schema.BitsValue{Val: val}
	l.stringSink(&l.bitsValue.Meaning)

	return nil
}

func (l *loader) startBitsUnit(dec *xml.Decoder, attrs map[string]string) error {
	if l.bits == nil {
		return l.errf(dec, "BitsUnit outside Bits")
	}

	if s, ok := attrs["scale"]; ok {
		scale, err := parseScale(s)
		if err != nil {
			return l.errf(dec, "BitsUnit scale %q", s)
		}
		l.bits.Scale = scale
	}
	if s, ok := attrs["min"]; ok {
		min, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return l.errf(dec, "BitsUnit min %q", s)
		}
		l.bits.Min = min
		l.bits.HasMin = true
	}
	if s, ok := attrs["max"]; ok {
		max, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return l.errf(dec, "BitsUnit max %q", s)
		}
		l.bits.Max = max
		l.bits.HasMax = true
	}
	l.stringSink(&l.bits.Unit)

	return nil
}

func (l *loader) startUAP(dec *xml.Decoder, attrs map[string]string) error {
	if l.category == nil {
		return l.errf(dec, "UAP outside Category")
	}

	u := &schema.UAP{Name: attrs["name"]}
	if s, ok := attrs["use_if_bit_set"]; ok {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			return l.errf(dec, "UAP use_if_bit_set %q", s)
		}
		u.UseIfBitSet = n
	}
	if s, ok := attrs["use_if_byte_nr"]; ok {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			return l.errf(dec, "UAP use_if_byte_nr %q", s)
		}
		u.UseIfByteNr = n
		to, err := strconv.Atoi(attrs["is_set_to"])
		if err != nil {
			return l.errf(dec, "UAP is_set_to %q", attrs["is_set_to"])
		}
		u.IsSetTo = to
	}
	l.uap = u

	return nil
}

func (l *loader) startUAPItem(dec *xml.Decoder, attrs map[string]string) error {
	if l.uap == nil {
		return l.errf(dec, "UAPItem outside UAP")
	}

	bit, err := strconv.Atoi(attrs["bit"])
	if err != nil || bit < 0 {
		return l.errf(dec, "UAPItem bit attribute %q", attrs["bit"])
	}

	e := &schema.UAPEntry{Bit: bit}
	// frn is a number or the literal FX for extension slots
	if frn, err := strconv.Atoi(attrs["frn"]); err == nil {
		e.FRN = frn
	}
	// len is a byte-count hint; variable-width declarations like "1+" are
	// informational only
	if n, err := strconv.Atoi(attrs["len"]); err == nil {
		e.Len = n
	}

	l.uapItem = e
	l.stringSink(&e.ItemID)

	return nil
}

// --- element end handlers ---

func (l *loader) endDataItem(dec *xml.Decoder) error {
	if l.category == nil || l.item == nil {
		return nil
	}
	if l.item.Format == nil {
		return l.errf(dec, "DataItem %s has no format", l.item.ID)
	}

	if l.category.ID == schema.BDSCategory {
		reg, ok := schema.NormalizeBDSRegister(l.item.ID)
		if !ok {
			return l.errf(dec, "DataItem id %q is not a BDS register", l.item.ID)
		}
		l.item.ID = reg
	}

	l.item.Name = strings.TrimSpace(l.item.Name)
	l.item.Definition = strings.TrimSpace(l.item.Definition)
	l.item.Note = strings.TrimSpace(l.item.Note)
	l.category.Items = append(l.category.Items, l.item)
	l.item = nil

	return nil
}

func (l *loader) endBits(dec *xml.Decoder) error {
	if l.bits != nil {
		l.bits.ShortName = strings.TrimSpace(l.bits.ShortName)
		l.bits.Name = strings.TrimSpace(l.bits.Name)
		l.bits.Unit = strings.TrimSpace(l.bits.Unit)
	}
	l.bits = nil

	return nil
}

func (l *loader) endUAPItem(dec *xml.Decoder) error {
	if l.uap == nil || l.uapItem == nil {
		return nil
	}

	l.uapItem.ItemID = strings.TrimSpace(l.uapItem.ItemID)
	l.uap.Entries = append(l.uap.Entries, *l.uapItem)
	l.uapItem = nil

	return nil
}

// push validates the nesting of a new format element and attaches it to its
// parent: the enclosing DataItemFormat or the innermost open format.
func (l *loader) push(dec *xml.Decoder, f schema.Format) error {
	if !l.inFormat {
		return l.errf(dec, "%s element outside DataItemFormat", f.Kind())
	}

	if len(l.stack) == 0 {
		if l.item.Format != nil {
			return l.errf(dec, "DataItemFormat has more than one root format")
		}
		l.item.Format = f
		l.stack = append(l.stack, f)

		return nil
	}

	if err := l.attach(dec, l.top(), f); err != nil {
		return err
	}
	l.stack = append(l.stack, f)

	return nil
}

// attach enforces the DTD nesting rules while linking child into parent.
func (l *loader) attach(dec *xml.Decoder, parent, child schema.Format) error {
	bad := func() error {
		return l.errf(dec, "%s not allowed inside %s", child.Kind(), parent.Kind())
	}

	switch p := parent.(type) {
	case *schema.Fixed:
		return bad()

	case *schema.Variable:
		c, ok := child.(*schema.Fixed)
		if !ok {
			return bad()
		}
		p.Parts = append(p.Parts, c)

	case *schema.Compound:
		if p.Primary == nil {
			c, ok := child.(*schema.Variable)
			if !ok {
				return l.errf(dec, "Compound primary subfield must be Variable, got %s", child.Kind())
			}
			p.Primary = c

			return nil
		}
		switch child.(type) {
		case *schema.Fixed, *schema.Variable, *schema.Compound, *schema.Repetitive, *schema.Explicit:
			p.Subs = append(p.Subs, child)
		default:
			return bad()
		}

	case *schema.Repetitive:
		if p.Sub != nil {
			return l.errf(dec, "Repetitive has more than one sub-format")
		}
		switch child.(type) {
		case *schema.Fixed, schema.BDS:
			p.Sub = child
		default:
			return bad()
		}

	case *schema.Explicit:
		if p.Inner != nil {
			return l.errf(dec, "Explicit has more than one inner format")
		}
		switch child.(type) {
		case *schema.Fixed, *schema.Variable, *schema.Compound, *schema.Repetitive:
			p.Inner = child
		default:
			return bad()
		}

	default: // BDS has no children
		return bad()
	}

	return nil
}

func (l *loader) top() schema.Format {
	if len(l.stack) == 0 {
		return nil
	}

	return l.stack[len(l.stack)-1]
}

// --- character-data sinks ---

func (l *loader) stringSink(target *string) {
	l.flushSink()
	l.sinkStr = target
}

func (l *loader) intSink(target *int64) {
	l.flushSink()
	l.sinkInt = target
}

// flushSink delivers accumulated character data to the active sink and
// deactivates it.
func (l *loader) flushSink() {
	switch {
	case l.sinkStr != nil:
		*l.sinkStr += l.sinkBuf.String()
	case l.sinkInt != nil:
		if v, err := strconv.ParseInt(strings.TrimSpace(l.sinkBuf.String()), 10, 64); err == nil {
			*l.sinkInt = v
		}
	}
	l.sinkStr = nil
	l.sinkInt = nil
	l.sinkBuf.Reset()
}

// --- helpers ---

// errf builds a SchemaError tagged with the file and the 1-based line of the
// decoder's current input position.
func (l *loader) errf(dec *xml.Decoder, format string, args ...any) error {
	line := 0
	if dec != nil {
		line = lineAt(l.offsets, dec.InputOffset())
	}

	return fmt.Errorf("%s:%d: %s: %w", l.file, line, fmt.Sprintf(format, args...), errs.ErrSchema)
}

func attrMap(t xml.StartElement) map[string]string {
	m := make(map[string]string, len(t.Attr))
	for _, a := range t.Attr {
		m[a.Name.Local] = a.Value
	}

	return m
}

// parseCategoryID accepts wire category numbers plus the BDS pseudo id.
func parseCategoryID(s string) (int, error) {
	if strings.EqualFold(strings.TrimSpace(s), "BDS") {
		return schema.BDSCategory, nil
	}

	id, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, err
	}
	if id < 0 || id > schema.BDSCategory {
		return 0, fmt.Errorf("outside 0..%d", schema.BDSCategory)
	}

	return id, nil
}

// parseScale accepts plain decimals and the fractional "1/256" spelling some
// grammar files use.
func parseScale(s string) (float64, error) {
	if num, den, ok := strings.Cut(s, "/"); ok {
		n, err1 := strconv.ParseFloat(strings.TrimSpace(num), 64)
		d, err2 := strconv.ParseFloat(strings.TrimSpace(den), 64)
		if err1 != nil || err2 != nil || d == 0 {
			return 0, fmt.Errorf("invalid fraction %q", s)
		}

		return n / d, nil
	}

	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}

// newlineOffsets indexes the byte offsets of newlines so decoder offsets can
// be mapped to 1-based line numbers.
func newlineOffsets(data []byte) []int {
	var offs []int
	for i, b := range data {
		if b == '\n' {
			offs = append(offs, i)
		}
	}

	return offs
}

func lineAt(offsets []int, off int64) int {
	return 1 + sort.Search(len(offsets), func(i int) bool {
		return int64(offsets[i]) >= off
	})
}
