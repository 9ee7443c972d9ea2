// Package errs defines the sentinel errors shared across astrix packages.
//
// Errors fall into two groups: grammar-load errors raised while XML category
// definitions are parsed, and decode errors raised while binary ASTERIX data
// is interpreted. Callers discriminate with errors.Is; loader, parser,
// framing and facade errors wrap one of these sentinels with position
// context, while registry.Builder.Add and framing.Decompress return errors
// without a sentinel.
package errs

import "errors"

// Grammar-load errors.
var (
	// ErrSchema reports a malformed XML definition: bad XML syntax, a DTD
	// violation, or a format element nested under a parent that does not
	// allow it.
	ErrSchema = errors.New("malformed category definition")

	// ErrConfig reports an unreadable definitions manifest or configuration
	// file.
	ErrConfig = errors.New("invalid configuration")
)

// Decode errors.
var (
	// ErrSchemaMismatch reports a FSPEC bit whose UAP entry references a data
	// item the category does not define.
	ErrSchemaMismatch = errors.New("UAP entry has no matching data item")

	// ErrTruncated reports a declared length or repetition count that exceeds
	// the bytes available.
	ErrTruncated = errors.New("data truncated")

	// ErrInvalid reports structurally invalid data: a FSPEC extending past
	// the UAP, an FX bit set on the last declared Variable part, an Explicit
	// length below one, or an inner decoder under-consuming its payload.
	ErrInvalid = errors.New("invalid data")

	// ErrOutOfRange reports a bit-field read past the end of its byte slice.
	ErrOutOfRange = errors.New("bit range out of range")

	// ErrUnknownCategory reports a data block whose category has no loaded
	// definition.
	ErrUnknownCategory = errors.New("unknown category")

	// ErrOverflow reports an offset or lookahead that exceeds the
	// representable range.
	ErrOverflow = errors.New("offset overflow")
)
