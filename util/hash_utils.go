package util

import (
	"github.com/OneOfOne/xxhash"
)

// HashCode hashes a frame-table key.
func HashCode(key []byte) uint64 {
	h := xxhash.New64()
	h.Write(key)
	return h.Sum64()
}
