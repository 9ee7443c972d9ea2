package framing

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/s2"
	"github.com/pierrec/lz4/v4"

	"github.com/croixa/astrix/internal/pool"
)

// compression magic numbers, checked at the start of a recording file
var (
	magicGzip = []byte{0x1F, 0x8B}
	magicZstd = []byte{0x28, 0xB5, 0x2F, 0xFD}
	magicLZ4  = []byte{0x04, 0x22, 0x4D, 0x18}
	magicS2   = []byte{0xFF, 0x06, 0x00, 0x00, 'S', '2', 's', 'T', 'w', 'O'}
)

// Decompress inflates a compressed recording. The compression scheme is
// sniffed from the leading magic bytes; data without a known magic passes
// through untouched.
func Decompress(data []byte) ([]byte, error) {
	switch {
	case bytes.HasPrefix(data, magicGzip):
		r, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("gzip recording: %w", err)
		}
		defer r.Close()

		return drain(r, "gzip")

	case bytes.HasPrefix(data, magicZstd):
		out, err := zstdDecompress(data)
		if err != nil {
			return nil, fmt.Errorf("zstd recording: %w", err)
		}

		return out, nil

	case bytes.HasPrefix(data, magicS2):
		return drain(s2.NewReader(bytes.NewReader(data)), "s2")

	case bytes.HasPrefix(data, magicLZ4):
		return drain(lz4.NewReader(bytes.NewReader(data)), "lz4")

	default:
		return data, nil
	}
}

// drain reads a decompression stream through a pooled scratch buffer and
// returns an owned copy of the inflated bytes.
func drain(r io.Reader, scheme string) ([]byte, error) {
	buf := pool.GetBuffer()
	defer pool.PutBuffer(buf)

	if _, err := io.Copy(buf, r); err != nil {
		return nil, fmt.Errorf("%s recording: %w", scheme, err)
	}

	return append([]byte(nil), buf.Bytes()...), nil
}
