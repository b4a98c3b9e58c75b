package register

import (
	"encoding/binary"
	"strings"
)

// TupleKey builds a byte-exact map key for a row of registers. It is
// used wherever an operator needs register tuples as hash-table keys
// (grouping, set operations, hash-join build side): Go slices aren't
// comparable, and keying on Hash() alone would risk silently merging
// two different tuples on a collision.
func TupleKey(tuple []Register) string {
	var b strings.Builder
	var lenBuf [8]byte
	for _, r := range tuple {
		b.WriteByte(byte(r.kind))
		if r.kind == Int64 {
			binary.LittleEndian.PutUint64(lenBuf[:], uint64(r.i64))
			b.Write(lenBuf[:])
		} else {
			binary.LittleEndian.PutUint64(lenBuf[:], uint64(len(r.str)))
			b.Write(lenBuf[:])
			b.WriteString(r.str)
		}
	}
	return b.String()
}
