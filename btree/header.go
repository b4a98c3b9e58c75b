package btree

import "unsafe"

// nodeHeader is the fixed-layout prefix of every page in a tree's
// segment. It is cast directly out of the page's bytes, mirroring how
// the buffer manager hands out raw frames with no serialization step.
type nodeHeader struct {
	Level        uint16
	Count        uint16
	HasParent    bool
	_            [5]byte // padding; alignment still places ParentPageID at offset 16, so the header is 24 bytes
	ParentPageID uint64
}

var headerSize = int(unsafe.Sizeof(nodeHeader{}))

func header(page []byte) *nodeHeader {
	return (*nodeHeader)(unsafe.Pointer(&page[0]))
}

func isLeaf(h *nodeHeader) bool { return h.Level == 0 }
