//go:build cgo && !purego

package framing

import "github.com/valyala/gozstd"

// zstdDecompress inflates a zstd recording through the cgo bindings, which
// outperform the pure-Go decoder on large recordings.
func zstdDecompress(data []byte) ([]byte, error) {
	return gozstd.Decompress(nil, data)
}
