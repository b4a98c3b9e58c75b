package btree

import (
	"encoding/binary"

	"coredb/buffer"
)

// Byte-range accessors for the two node layouts a page can hold:
//
//	leaf:  header | keys[leafCap] | values[leafCap]
//	inner: header | keys[innerCap] | children[innerCap+1]
//
// Both layouts share the same header so a page's level field alone says
// which accessors apply to it.

func (t *Tree[K, V]) leafKeyOffset(i int) int {
	return headerSize + i*t.keyCodec.Size()
}

func (t *Tree[K, V]) leafValueOffset(i int) int {
	return headerSize + t.leafCap*t.keyCodec.Size() + i*t.valCodec.Size()
}

func (t *Tree[K, V]) leafKey(page []byte, i int) K {
	off := t.leafKeyOffset(i)
	return t.keyCodec.Decode(page[off : off+t.keyCodec.Size()])
}

func (t *Tree[K, V]) setLeafKey(page []byte, i int, k K) {
	off := t.leafKeyOffset(i)
	t.keyCodec.Encode(page[off:off+t.keyCodec.Size()], k)
}

func (t *Tree[K, V]) leafValue(page []byte, i int) V {
	off := t.leafValueOffset(i)
	return t.valCodec.Decode(page[off : off+t.valCodec.Size()])
}

func (t *Tree[K, V]) setLeafValue(page []byte, i int, v V) {
	off := t.leafValueOffset(i)
	t.valCodec.Encode(page[off:off+t.valCodec.Size()], v)
}

func (t *Tree[K, V]) innerKeyOffset(i int) int {
	return headerSize + i*t.keyCodec.Size()
}

func (t *Tree[K, V]) innerChildOffset(i int) int {
	return headerSize + t.innerCap*t.keyCodec.Size() + i*8
}

func (t *Tree[K, V]) innerKey(page []byte, i int) K {
	off := t.innerKeyOffset(i)
	return t.keyCodec.Decode(page[off : off+t.keyCodec.Size()])
}

func (t *Tree[K, V]) setInnerKey(page []byte, i int, k K) {
	off := t.innerKeyOffset(i)
	t.keyCodec.Encode(page[off:off+t.keyCodec.Size()], k)
}

func (t *Tree[K, V]) innerChild(page []byte, i int) buffer.PageID {
	off := t.innerChildOffset(i)
	return buffer.PageID(binary.LittleEndian.Uint64(page[off : off+8]))
}

func (t *Tree[K, V]) setInnerChild(page []byte, i int, id buffer.PageID) {
	off := t.innerChildOffset(i)
	binary.LittleEndian.PutUint64(page[off:off+8], uint64(id))
}

func (t *Tree[K, V]) initLeafHeader(page []byte) *nodeHeader {
	h := header(page)
	*h = nodeHeader{Level: 0, Count: 0}
	return h
}

func (t *Tree[K, V]) initInnerHeader(page []byte, level uint16) *nodeHeader {
	h := header(page)
	*h = nodeHeader{Level: level, Count: 0}
	return h
}

// leafSearch returns the index of key if present, and the index it
// should be inserted at if not.
func (t *Tree[K, V]) leafSearch(page []byte, h *nodeHeader, key K) (idx int, found bool) {
	lo, hi := 0, int(h.Count)
	for lo < hi {
		mid := (lo + hi) / 2
		c := t.cmp(t.leafKey(page, mid), key)
		switch {
		case c == 0:
			return mid, true
		case c < 0:
			lo = mid + 1
		default:
			hi = mid
		}
	}
	return lo, false
}

// innerFindChild returns the index of the child to descend into for key:
// the smallest i with keys[i] >= key, or Count if key is greater than
// every key in the node.
func (t *Tree[K, V]) innerFindChild(page []byte, h *nodeHeader, key K) int {
	lo, hi := 0, int(h.Count)
	for lo < hi {
		mid := (lo + hi) / 2
		if t.cmp(t.innerKey(page, mid), key) >= 0 {
			hi = mid
		} else {
			lo = mid + 1
		}
	}
	return lo
}

// leafInsertAt shifts entries [idx:Count) right by one slot and writes
// (key, value) into the gap. Caller must ensure Count < leafCap.
func (t *Tree[K, V]) leafInsertAt(page []byte, h *nodeHeader, idx int, key K, value V) {
	for i := int(h.Count); i > idx; i-- {
		t.setLeafKey(page, i, t.leafKey(page, i-1))
		t.setLeafValue(page, i, t.leafValue(page, i-1))
	}
	t.setLeafKey(page, idx, key)
	t.setLeafValue(page, idx, value)
	h.Count++
}

// leafRemoveAt shifts entries (idx:Count) left by one slot, closing the
// gap left by removing idx. No merging or rebalancing is performed.
func (t *Tree[K, V]) leafRemoveAt(page []byte, h *nodeHeader, idx int) {
	for i := idx; i < int(h.Count)-1; i++ {
		t.setLeafKey(page, i, t.leafKey(page, i+1))
		t.setLeafValue(page, i, t.leafValue(page, i+1))
	}
	h.Count--
}

// innerInsertAt shifts keys[idx:Count) and children[idx+1:Count+1) right
// by one slot and inserts key at idx with its right child at idx+1.
// Caller must ensure Count < innerCap.
func (t *Tree[K, V]) innerInsertAt(page []byte, h *nodeHeader, idx int, key K, rightChild buffer.PageID) {
	for i := int(h.Count); i > idx; i-- {
		t.setInnerKey(page, i, t.innerKey(page, i-1))
	}
	for i := int(h.Count) + 1; i > idx+1; i-- {
		t.setInnerChild(page, i, t.innerChild(page, i-1))
	}
	t.setInnerKey(page, idx, key)
	t.setInnerChild(page, idx+1, rightChild)
	h.Count++
}
