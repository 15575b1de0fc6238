package util

import (
	"github.com/OneOfOne/xxhash"
)

// HashCode hashes a byte key to a 64-bit value.
func HashCode(key []byte) uint64 {
	h := xxhash.New64()
	h.Write(key)
	return h.Sum64()
}

// HashString hashes a string key to a 64-bit value.
func HashString(key string) uint64 {
	return xxhash.ChecksumString64(key)
}
