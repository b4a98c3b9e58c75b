// Package segment provides the thin identity B+-tree is built on: a
// 16-bit segment id paired with the buffer manager that backs it, so a
// caller can address pages by a local index instead of a raw global
// PageID.
package segment

import "coredb/buffer"

// Segment identifies one logical namespace of pages, backed by one file,
// inside a shared buffer manager.
type Segment struct {
	ID uint16
	BM *buffer.Manager
}

// New returns a Segment bound to id within bm.
func New(id uint16, bm *buffer.Manager) Segment {
	return Segment{ID: id, BM: bm}
}

// PageID packs a local page index into a global PageID within this
// segment.
func (s Segment) PageID(localID uint64) buffer.PageID {
	return buffer.MakePageID(s.ID, localID)
}

// FixPage fixes the page at localID within this segment.
func (s Segment) FixPage(localID uint64, exclusive bool) (*buffer.Frame, error) {
	return s.BM.FixPage(s.PageID(localID), exclusive)
}

// UnfixPage releases a frame obtained through FixPage. exclusive must
// match the mode frame was fixed with.
func (s Segment) UnfixPage(frame *buffer.Frame, exclusive, dirty bool) {
	s.BM.UnfixPage(frame, exclusive, dirty)
}
