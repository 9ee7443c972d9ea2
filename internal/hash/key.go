// Package hash derives stable 64-bit identifiers from string tuples.
//
// The filter layer keys its entries by (category, item, field) tuples; a
// single xxHash64 over the joined tuple gives O(1) lookups without holding
// the strings themselves.
package hash

import "github.com/cespare/xxhash/v2"

// separator keeps ("a", "bc") and ("ab", "c") from colliding.
const separator = '\x1f'

// Key computes the xxHash64 of the given tuple.
func Key(parts ...string) uint64 {
	var d xxhash.Digest
	d.Reset()
	for i, p := range parts {
		if i > 0 {
			_, _ = d.Write([]byte{separator})
		}
		_, _ = d.WriteString(p)
	}

	return d.Sum64()
}

// ID computes the xxHash64 of a single string.
func ID(data string) uint64 {
	return xxhash.Sum64String(data)
}
