// Package astrix decodes ASTERIX surveillance data.
//
// ASTERIX (All-purpose STructured EUROCONTROL suRveillance Information
// eXchange) is the binary interchange format European air-traffic systems
// use for radar plots, system tracks, multilateration and ADS-B reports.
// The wire layout of every message category is externalized in XML grammar
// files; astrix loads those grammars at startup and then interprets binary
// packets against them.
//
// # Basic Usage
//
// Loading definitions and decoding a packet:
//
//	import "github.com/croixa/astrix"
//
//	decoder, err := astrix.NewDecoder(astrix.WithManifest("config/asterix.ini"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	parsed, err := decoder.Parse(packet, uint64(time.Now().UnixMilli()))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	var out strings.Builder
//	_ = decoder.Render(parsed, astrix.FormatJSON, &out)
//	fmt.Print(out.String())
//
// # Package Structure
//
// This package is a thin facade over the working packages: xmlspec loads
// grammars, registry holds them, parser decodes packets, render serializes
// the result and framing strips capture-file encapsulations. Use those
// packages directly for fine-grained control.
package astrix

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/croixa/astrix/errs"
	"github.com/croixa/astrix/framing"
	"github.com/croixa/astrix/parser"
	"github.com/croixa/astrix/registry"
	"github.com/croixa/astrix/render"
	"github.com/croixa/astrix/xmlspec"
)

// Input safety bounds. Language bindings enforce these at their boundary;
// the decoder re-checks them defensively.
const (
	// MaxMessageSize is the largest buffer accepted by a single Parse call.
	MaxMessageSize = 65536
	// MaxBlocks is the largest block count accepted by ParseWithOffset.
	MaxBlocks = 10000
	// MaxPathLength is the longest accepted definition file path.
	MaxPathLength = xmlspec.MaxPathLength
)

// Format re-exports the render format tags for facade callers.
type Format = render.Format

const (
	FormatText          = render.FormatText
	FormatLine          = render.FormatLine
	FormatJSON          = render.FormatJSON
	FormatJSONPretty    = render.FormatJSONPretty
	FormatJSONExtensive = render.FormatJSONExtensive
	FormatXML           = render.FormatXML
	FormatXMLPretty     = render.FormatXMLPretty
)

// Decoder bundles a loaded definition registry with a packet parser, a
// renderer and a leaf filter.
//
// Loading (NewDecoder, LoadManifest, LoadCategory) is a single-threaded
// initialization phase; afterwards the decoder is read-only and any number
// of goroutines may call Parse and Render concurrently.
type Decoder struct {
	mu      sync.Mutex // guards the load phase only
	builder *registry.Builder

	reg    *registry.Registry
	parser *parser.PacketParser
	filter *render.Filter
}

// Option configures a Decoder during construction. Options that load
// grammar files may fail; the first failure aborts NewDecoder.
type Option func(*Decoder) error

// WithManifest loads every grammar file listed in a definitions manifest.
func WithManifest(path string) Option {
	return func(d *Decoder) error {
		return d.LoadManifest(path)
	}
}

// WithCategoryFile loads a single XML grammar file.
func WithCategoryFile(path string) Option {
	return func(d *Decoder) error {
		return d.LoadCategory(path)
	}
}

// WithFilter suppresses an item (empty field) or a single field from all
// rendered output.
func WithFilter(cat int, item, field string) Option {
	return func(d *Decoder) error {
		d.FilterOut(cat, item, field)
		return nil
	}
}

// NewDecoder creates a decoder and applies the given options in order.
func NewDecoder(opts ...Option) (*Decoder, error) {
	d := &Decoder{
		builder: registry.NewBuilder(),
		filter:  render.NewFilter(),
	}
	d.rebuild()

	for _, opt := range opts {
		if err := opt(d); err != nil {
			return nil, err
		}
	}

	return d, nil
}

// rebuild snapshots the builder into a fresh immutable registry handle.
func (d *Decoder) rebuild() {
	d.reg = d.builder.Build()
	d.parser = parser.New(d.reg)
}

// LoadManifest loads the grammar files listed in a definitions manifest.
// Files that fail to parse are reported in the joined error; the categories
// that loaded cleanly stay available.
func (d *Decoder) LoadManifest(path string) error {
	if len(path) > MaxPathLength {
		return fmt.Errorf("manifest path longer than %d bytes: %w", MaxPathLength, errs.ErrConfig)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	err := xmlspec.LoadManifest(path, d.builder)
	d.rebuild()

	return err
}

// LoadCategory loads one XML grammar file.
func (d *Decoder) LoadCategory(path string) error {
	if len(path) > MaxPathLength {
		return fmt.Errorf("definition path longer than %d bytes: %w", MaxPathLength, errs.ErrConfig)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if err := xmlspec.LoadFile(path, d.builder); err != nil {
		return err
	}
	d.rebuild()

	return nil
}

// IsCategoryDefined reports whether a wire category (1..255) has a loaded
// grammar.
func (d *Decoder) IsCategoryDefined(cat int) bool {
	return d.reg.IsDefined(cat)
}

// Registry returns the immutable definition registry handle.
func (d *Decoder) Registry() *registry.Registry {
	return d.reg
}

// Parse decodes every data block in data. The buffer may not exceed
// MaxMessageSize. timestampMS is attached to all decoded records.
func (d *Decoder) Parse(data []byte, timestampMS uint64) (*parser.ParsedData, error) {
	if len(data) > MaxMessageSize {
		return nil, fmt.Errorf("buffer of %d bytes exceeds %d: %w",
			len(data), MaxMessageSize, errs.ErrOverflow)
	}

	return d.parser.Parse(data, timestampMS), nil
}

// ParseWithOffset decodes up to maxBlocks blocks starting at offset
// (maxBlocks == 0 decodes all, capped at MaxBlocks). It returns the parsed
// data, the bytes consumed from offset and an estimate of the complete
// blocks remaining in the buffer.
func (d *Decoder) ParseWithOffset(data []byte, offset, maxBlocks int, timestampMS uint64) (*parser.ParsedData, int, int, error) {
	if len(data) > MaxMessageSize {
		return nil, 0, 0, fmt.Errorf("buffer of %d bytes exceeds %d: %w",
			len(data), MaxMessageSize, errs.ErrOverflow)
	}
	if maxBlocks < 0 || maxBlocks > MaxBlocks {
		return nil, 0, 0, fmt.Errorf("block limit %d outside 0..%d: %w",
			maxBlocks, MaxBlocks, errs.ErrOverflow)
	}
	if maxBlocks == 0 {
		maxBlocks = MaxBlocks
	}

	return d.parser.ParseWithOffset(data, offset, maxBlocks, timestampMS)
}

// ParseFrames deframes a capture buffer (raw, PCAP or FINAL, optionally
// compressed) and decodes every embedded payload with the timestamp its
// frame carries. fallbackMS stamps frames whose container has no clock.
func (d *Decoder) ParseFrames(data []byte, kind framing.Kind, fallbackMS uint64) (*parser.ParsedData, error) {
	framer, err := framing.Open(data, kind)
	if err != nil {
		return nil, err
	}

	pd := &parser.ParsedData{}
	for {
		frame, err := framer.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return pd, nil
			}

			return pd, err
		}

		ts := frame.TimestampMS
		if ts == 0 {
			ts = fallbackMS
		}
		part, err := d.Parse(frame.Payload, ts)
		if err != nil {
			return pd, err
		}
		pd.Blocks = append(pd.Blocks, part.Blocks...)
		pd.ErrorCount += part.ErrorCount
	}
}

// Describe resolves grammar metadata: the category name, an item's name, a
// field's long name, or an enumerated value's meaning, depending on how
// many levels are given. It returns false at any unresolved step.
func (d *Decoder) Describe(cat int, item, field string, value *int64) (string, bool) {
	return d.reg.Describe(cat, item, field, value)
}

// Render appends the serialized form of pd to sb in the requested format.
func (d *Decoder) Render(pd *parser.ParsedData, format Format, sb *strings.Builder) error {
	return render.New(d.reg, d.filter).Render(pd, format, sb)
}

// FilterOut suppresses an item (empty field) or a single field from all
// rendered output.
func (d *Decoder) FilterOut(cat int, item, field string) {
	d.filter.Add(cat, item, field)
}

// IsFiltered reports whether a field would be suppressed.
func (d *Decoder) IsFiltered(cat int, item, field string) bool {
	return d.filter.Filtered(cat, item, field)
}

// PrintDefinitions lists the loaded categories, one per line.
func (d *Decoder) PrintDefinitions() string {
	return d.reg.Descriptors()
}
