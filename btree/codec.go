package btree

import (
	"encoding/binary"
	"strings"
)

// Codec encodes and decodes a fixed-width value of type T to and from a
// byte slice of exactly Size() bytes. Keys and values stored in a tree
// must have a size known up front so node capacity can be computed once.
type Codec[T any] interface {
	Size() int
	Encode(dst []byte, v T)
	Decode(src []byte) T
}

// Comparator orders two keys, returning <0, 0, >0 like strings.Compare.
type Comparator[K any] func(a, b K) int

// Int64Codec encodes int64 keys or values as 8 little-endian bytes.
// Child page ids in inner nodes are not stored through a Codec.
type Int64Codec struct{}

func (Int64Codec) Size() int { return 8 }
func (Int64Codec) Encode(dst []byte, v int64) {
	binary.LittleEndian.PutUint64(dst, uint64(v))
}
func (Int64Codec) Decode(src []byte) int64 {
	return int64(binary.LittleEndian.Uint64(src))
}

// CompareInt64 orders int64 keys numerically.
func CompareInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// FixedStringCodec encodes a string truncated/NUL-padded to exactly N
// bytes, the bounded-string counterpart of Register's CHAR variant.
type FixedStringCodec struct{ N int }

func (c FixedStringCodec) Size() int { return c.N }

func (c FixedStringCodec) Encode(dst []byte, v string) {
	n := copy(dst, v)
	for i := n; i < c.N; i++ {
		dst[i] = 0
	}
}

func (c FixedStringCodec) Decode(src []byte) string {
	return strings.TrimRight(string(src[:c.N]), "\x00")
}

// CompareFixedString orders bounded strings lexicographically.
func CompareFixedString(a, b string) int {
	return strings.Compare(a, b)
}
