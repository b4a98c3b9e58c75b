// Package register implements the tagged value type query operators
// read, compare, and hash: either a signed 64-bit integer or a bounded
// string, never both, with comparisons and arithmetic only defined
// between two registers of the same kind.
package register

import (
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Kind identifies which variant a Register currently holds.
type Kind int

const (
	Int64 Kind = iota
	Char16
)

// MaxCharLen is the longest string a Char16 register may hold.
const MaxCharLen = 16

// Register is a tagged union of an int64 and a bounded string, mirroring
// the two value types a tuple's attributes can hold.
type Register struct {
	kind Kind
	i64  int64
	str  string
}

// FromInt builds an Int64 register.
func FromInt(v int64) Register { return Register{kind: Int64, i64: v} }

// FromString builds a Char16 register, truncating v to MaxCharLen bytes.
func FromString(v string) Register {
	if len(v) > MaxCharLen {
		v = v[:MaxCharLen]
	}
	return Register{kind: Char16, str: v}
}

// Kind reports which variant r holds.
func (r Register) Kind() Kind { return r.kind }

// AsInt returns the held int64. Panics if r is not an Int64 register.
func (r Register) AsInt() int64 {
	if r.kind != Int64 {
		panic("register: AsInt on a non-Int64 register")
	}
	return r.i64
}

// AsString returns the held string. Panics if r is not a Char16
// register.
func (r Register) AsString() string {
	if r.kind != Char16 {
		panic("register: AsString on a non-Char16 register")
	}
	return r.str
}

func mustSameKind(a, b Register) {
	if a.kind != b.kind {
		panic(fmt.Sprintf("register: comparing mismatched kinds %v and %v", a.kind, b.kind))
	}
}

// Equal reports whether a and b hold the same value. Panics if a and b
// are different kinds.
func (a Register) Equal(b Register) bool {
	mustSameKind(a, b)
	if a.kind == Int64 {
		return a.i64 == b.i64
	}
	return a.str == b.str
}

// Compare orders a relative to b, returning <0, 0, >0. Panics if a and
// b are different kinds.
func (a Register) Compare(b Register) int {
	mustSameKind(a, b)
	if a.kind == Int64 {
		switch {
		case a.i64 < b.i64:
			return -1
		case a.i64 > b.i64:
			return 1
		default:
			return 0
		}
	}
	return strings.Compare(a.str, b.str)
}

func (a Register) Less(b Register) bool         { return a.Compare(b) < 0 }
func (a Register) LessEqual(b Register) bool     { return a.Compare(b) <= 0 }
func (a Register) Greater(b Register) bool       { return a.Compare(b) > 0 }
func (a Register) GreaterEqual(b Register) bool  { return a.Compare(b) >= 0 }

// Hash returns a hash of r's kind and value, suitable for hash-table
// keys that don't need exact-equality guarantees on their own (callers
// doing hash-join/hash-aggregation still compare the full tuple to
// guard against collisions).
func (r Register) Hash() uint64 {
	h := xxhash.New()
	if r.kind == Int64 {
		var buf [9]byte
		buf[0] = byte(Int64)
		buf[1] = byte(r.i64)
		buf[2] = byte(r.i64 >> 8)
		buf[3] = byte(r.i64 >> 16)
		buf[4] = byte(r.i64 >> 24)
		buf[5] = byte(r.i64 >> 32)
		buf[6] = byte(r.i64 >> 40)
		buf[7] = byte(r.i64 >> 48)
		buf[8] = byte(r.i64 >> 56)
		_, _ = h.Write(buf[:])
	} else {
		_, _ = h.Write([]byte{byte(Char16)})
		_, _ = h.Write([]byte(r.str))
	}
	return h.Sum64()
}

// String renders r for debugging/printing purposes.
func (r Register) String() string {
	if r.kind == Int64 {
		return fmt.Sprintf("%d", r.i64)
	}
	return r.str
}
