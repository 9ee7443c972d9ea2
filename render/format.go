// Package render turns parsed ASTERIX trees into the supported output
// formats: human-readable text, a one-line token stream, JSON in compact,
// pretty and extensive flavors, and XML in compact and pretty flavors.
//
// All serializers append to the caller's output builder and never clear it;
// each is a pure function of the parsed tree, the format tag and the
// renderer's filter.
package render

// Format tags one of the supported output formats.
type Format uint8

const (
	// FormatText is the indented human-readable listing.
	FormatText Format = iota + 1
	// FormatLine emits one compact token stream per record without inner
	// newlines.
	FormatLine
	// FormatJSON emits one JSON object per block on a single line.
	FormatJSON
	// FormatJSONPretty is FormatJSON with indentation.
	FormatJSONPretty
	// FormatJSONExtensive adds raw values, hex dumps and grammar
	// descriptions to the pretty output.
	FormatJSONExtensive
	// FormatXML emits one XML element per block on a single line.
	FormatXML
	// FormatXMLPretty is FormatXML with indentation.
	FormatXMLPretty
)

func (f Format) String() string {
	switch f {
	case FormatText:
		return "Text"
	case FormatLine:
		return "Line"
	case FormatJSON:
		return "JSON"
	case FormatJSONPretty:
		return "JSONPretty"
	case FormatJSONExtensive:
		return "JSONExtensive"
	case FormatXML:
		return "XML"
	case FormatXMLPretty:
		return "XMLPretty"
	default:
		return "Unknown"
	}
}

// ParseFormat maps a format name, as accepted on the command line, to its
// tag.
func ParseFormat(s string) (Format, bool) {
	switch s {
	case "text":
		return FormatText, true
	case "line":
		return FormatLine, true
	case "json":
		return FormatJSON, true
	case "jsonh":
		return FormatJSONPretty, true
	case "jsone":
		return FormatJSONExtensive, true
	case "xml":
		return FormatXML, true
	case "xmlh":
		return FormatXMLPretty, true
	default:
		return 0, false
	}
}
