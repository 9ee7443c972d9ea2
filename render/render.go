package render

import (
	"fmt"
	"strings"

	"github.com/croixa/astrix/errs"
	"github.com/croixa/astrix/parser"
	"github.com/croixa/astrix/registry"
)

// Renderer serializes parsed trees. The registry supplies grammar
// descriptions for the extensive format; the filter suppresses leaves for
// every format.
type Renderer struct {
	reg    *registry.Registry
	filter *Filter
}

// New creates a renderer. Both arguments may be nil: without a registry the
// extensive format describes items by the names captured at decode time,
// without a filter nothing is suppressed.
func New(reg *registry.Registry, filter *Filter) *Renderer {
	return &Renderer{reg: reg, filter: filter}
}

// Render appends the serialized form of pd to sb.
func (r *Renderer) Render(pd *parser.ParsedData, format Format, sb *strings.Builder) error {
	if pd == nil {
		return fmt.Errorf("nil parse result: %w", errs.ErrInvalid)
	}

	switch format {
	case FormatText:
		r.renderText(pd, sb)
	case FormatLine:
		r.renderLine(pd, sb)
	case FormatJSON:
		r.renderJSON(pd, sb, jsonCompact)
	case FormatJSONPretty:
		r.renderJSON(pd, sb, jsonPretty)
	case FormatJSONExtensive:
		r.renderJSON(pd, sb, jsonExtensive)
	case FormatXML:
		r.renderXML(pd, sb, false)
	case FormatXMLPretty:
		r.renderXML(pd, sb, true)
	default:
		return fmt.Errorf("unknown output format %d: %w", format, errs.ErrInvalid)
	}

	return nil
}

// filtered applies the leaf filter for one record's category.
func (r *Renderer) filtered(cat int, item, field string) bool {
	return r.filter.Filtered(cat, item, field)
}

// describeItem resolves an item's long name through the registry, falling
// back to the name captured at decode time.
func (r *Renderer) describeItem(cat int, it *parser.Item) string {
	if r.reg != nil {
		if s, ok := r.reg.Describe(cat, it.ID, "", nil); ok {
			return s
		}
	}

	return it.Name
}
