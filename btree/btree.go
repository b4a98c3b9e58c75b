// Package btree implements a disk-resident B+-tree index on top of a
// buffer-managed segment. Nodes are page-sized byte buffers accessed
// in place through the buffer manager's frames; a node's header is cast
// directly out of those bytes, and keys/values are (de)serialized
// through a pluggable fixed-width Codec so the same tree logic serves
// both integer and bounded-string keys.
//
// A Tree is not safe for concurrent mutation: callers wanting concurrent
// access must serialize Insert/Erase calls themselves, e.g. with a
// single writer goroutine. Concurrent Lookups are safe with respect to
// the buffer manager's own latching, but may race with a concurrent
// Insert/Erase unless the caller excludes them too.
package btree

import (
	"coredb/buffer"
	"coredb/segment"
)

// Tree is a B+-tree keyed by K with values V, backed by one segment.
type Tree[K any, V any] struct {
	segment segment.Segment

	keyCodec Codec[K]
	valCodec Codec[V]
	cmp      Comparator[K]

	pageSize int
	leafCap  int
	innerCap int

	hasRoot    bool
	root       buffer.PageID
	nextPageID uint64
}

// New creates an empty tree over segment seg, using pageSize-sized
// pages (which must match the buffer manager's configured page size).
func New[K any, V any](seg segment.Segment, keyCodec Codec[K], valCodec Codec[V], cmp Comparator[K], pageSize int) *Tree[K, V] {
	leafCap := (pageSize - headerSize) / (keyCodec.Size() + valCodec.Size())
	innerCap := (pageSize - headerSize - 8) / (keyCodec.Size() + 8)
	return &Tree[K, V]{
		segment:  seg,
		keyCodec: keyCodec,
		valCodec: valCodec,
		cmp:      cmp,
		pageSize: pageSize,
		leafCap:  leafCap,
		innerCap: innerCap,
	}
}

func (t *Tree[K, V]) allocatePage() uint64 {
	id := t.nextPageID
	t.nextPageID++
	return id
}

// Lookup returns the value stored for key, if any.
func (t *Tree[K, V]) Lookup(key K) (V, bool, error) {
	var zero V
	if !t.hasRoot {
		return zero, false, nil
	}
	curID := t.root
	for {
		frame, err := t.segment.FixPage(segmentLocal(curID), false)
		if err != nil {
			return zero, false, err
		}
		h := header(frame.Data())
		if isLeaf(h) {
			idx, found := t.leafSearch(frame.Data(), h, key)
			if !found {
				t.segment.UnfixPage(frame, false, false)
				return zero, false, nil
			}
			v := t.leafValue(frame.Data(), idx)
			t.segment.UnfixPage(frame, false, false)
			return v, true, nil
		}
		idx := t.innerFindChild(frame.Data(), h, key)
		childID := t.innerChild(frame.Data(), idx)
		t.segment.UnfixPage(frame, false, false)
		curID = childID
	}
}

// Insert adds key/value, overwriting any existing value for key. It may
// split one or more nodes on the path from the root down.
func (t *Tree[K, V]) Insert(key K, value V) error {
	if !t.hasRoot {
		id := t.segment.PageID(t.allocatePage())
		frame, err := t.segment.FixPage(segmentLocal(id), true)
		if err != nil {
			return err
		}
		h := t.initLeafHeader(frame.Data())
		t.leafInsertAt(frame.Data(), h, 0, key, value)
		t.segment.UnfixPage(frame, true, true)
		t.root = id
		t.hasRoot = true
		return nil
	}

	curID := t.root
	for {
		frame, err := t.segment.FixPage(segmentLocal(curID), true)
		if err != nil {
			return err
		}
		h := header(frame.Data())
		if isLeaf(h) {
			idx, found := t.leafSearch(frame.Data(), h, key)
			if found {
				t.setLeafValue(frame.Data(), idx, value)
				t.segment.UnfixPage(frame, true, true)
				return nil
			}
			if int(h.Count) < t.leafCap {
				t.leafInsertAt(frame.Data(), h, idx, key, value)
				t.segment.UnfixPage(frame, true, true)
				return nil
			}
			return t.splitLeafAndInsert(curID, frame, h, idx, key, value)
		}
		idx := t.innerFindChild(frame.Data(), h, key)
		childID := t.innerChild(frame.Data(), idx)
		t.segment.UnfixPage(frame, true, false)
		curID = childID
	}
}

// splitLeafAndInsert splits a full leaf (conceptually inserting key at
// idx first), then propagates the new separator up through any full
// ancestors, creating a new root if the split reaches the top.
func (t *Tree[K, V]) splitLeafAndInsert(leftID buffer.PageID, leftFrame *buffer.Frame, leftHdr *nodeHeader, idx int, key K, value V) error {
	total := int(leftHdr.Count) + 1
	keys := make([]K, total)
	values := make([]V, total)
	for i, j := 0, 0; i < int(leftHdr.Count); i, j = i+1, j+1 {
		if j == idx {
			j++
		}
		keys[j] = t.leafKey(leftFrame.Data(), i)
		values[j] = t.leafValue(leftFrame.Data(), i)
	}
	keys[idx] = key
	values[idx] = value

	mid := total / 2 // left half size; separator is its largest key

	rightID := t.segment.PageID(t.allocatePage())
	rightFrame, err := t.segment.FixPage(segmentLocal(rightID), true)
	if err != nil {
		t.segment.UnfixPage(leftFrame, true, false)
		return err
	}
	rightHdr := t.initLeafHeader(rightFrame.Data())

	for i := 0; i < mid; i++ {
		t.setLeafKey(leftFrame.Data(), i, keys[i])
		t.setLeafValue(leftFrame.Data(), i, values[i])
	}
	leftHdr.Count = uint16(mid)
	for i := mid; i < total; i++ {
		t.setLeafKey(rightFrame.Data(), i-mid, keys[i])
		t.setLeafValue(rightFrame.Data(), i-mid, values[i])
	}
	rightHdr.Count = uint16(total - mid)

	sep := keys[mid-1]
	return t.propagateSplit(leftID, leftFrame, leftHdr, sep, rightID, rightFrame, rightHdr)
}

// propagateSplit links a freshly split (left, right) pair into their
// parent, recursively splitting ancestors (and finally creating a new
// root) as needed. leftFrame/rightFrame are unfixed before returning.
func (t *Tree[K, V]) propagateSplit(leftID buffer.PageID, leftFrame *buffer.Frame, leftHdr *nodeHeader, sep K, rightID buffer.PageID, rightFrame *buffer.Frame, rightHdr *nodeHeader) error {
	for {
		if !leftHdr.HasParent {
			newRootID := t.segment.PageID(t.allocatePage())
			rootFrame, err := t.segment.FixPage(segmentLocal(newRootID), true)
			if err != nil {
				t.segment.UnfixPage(leftFrame, true, false)
				t.segment.UnfixPage(rightFrame, true, false)
				return err
			}
			rootHdr := t.initInnerHeader(rootFrame.Data(), leftHdr.Level+1)
			t.setInnerChild(rootFrame.Data(), 0, leftID)
			t.setInnerKey(rootFrame.Data(), 0, sep)
			t.setInnerChild(rootFrame.Data(), 1, rightID)
			rootHdr.Count = 1

			leftHdr.HasParent = true
			leftHdr.ParentPageID = uint64(newRootID)
			rightHdr.HasParent = true
			rightHdr.ParentPageID = uint64(newRootID)

			t.segment.UnfixPage(leftFrame, true, true)
			t.segment.UnfixPage(rightFrame, true, true)
			t.segment.UnfixPage(rootFrame, true, true)
			t.root = newRootID
			return nil
		}

		parentID := buffer.PageID(leftHdr.ParentPageID)
		rightHdr.HasParent = true
		rightHdr.ParentPageID = leftHdr.ParentPageID
		t.segment.UnfixPage(leftFrame, true, true)
		t.segment.UnfixPage(rightFrame, true, true)

		parentFrame, err := t.segment.FixPage(segmentLocal(parentID), true)
		if err != nil {
			return err
		}
		parentHdr := header(parentFrame.Data())
		idx := t.innerFindChild(parentFrame.Data(), parentHdr, sep)

		if int(parentHdr.Count) < t.innerCap {
			t.innerInsertAt(parentFrame.Data(), parentHdr, idx, sep, rightID)
			t.segment.UnfixPage(parentFrame, true, true)
			return nil
		}

		newParentID := t.segment.PageID(t.allocatePage())
		newParentFrame, err := t.segment.FixPage(segmentLocal(newParentID), true)
		if err != nil {
			t.segment.UnfixPage(parentFrame, true, false)
			return err
		}
		newParentHdr := t.initInnerHeader(newParentFrame.Data(), parentHdr.Level)

		promoted, err := t.splitInnerWithInsertion(parentFrame, parentHdr, idx, sep, rightID, newParentFrame, newParentHdr)
		if err != nil {
			t.segment.UnfixPage(parentFrame, true, false)
			t.segment.UnfixPage(newParentFrame, true, false)
			return err
		}

		leftID, leftFrame, leftHdr = parentID, parentFrame, parentHdr
		rightID, rightFrame, rightHdr = newParentID, newParentFrame, newParentHdr
		sep = promoted
	}
}

// splitInnerWithInsertion splits a full inner node, virtually inserting
// (sep, rightChild) at position idx first. The middle key is promoted
// to the caller (not copied into either half) and the children that
// moved to newFrame have their parent pointer fixed up.
func (t *Tree[K, V]) splitInnerWithInsertion(frame *buffer.Frame, h *nodeHeader, idx int, sep K, rightChild buffer.PageID, newFrame *buffer.Frame, newHdr *nodeHeader) (K, error) {
	var zero K
	count := int(h.Count)
	keys := make([]K, count+1)
	children := make([]buffer.PageID, count+2)

	for i, j := 0, 0; i < count; i, j = i+1, j+1 {
		if j == idx {
			j++
		}
		keys[j] = t.innerKey(frame.Data(), i)
	}
	keys[idx] = sep
	for i, j := 0, 0; i <= count; i, j = i+1, j+1 {
		if j == idx+1 {
			j++
		}
		children[j] = t.innerChild(frame.Data(), i)
	}
	children[idx+1] = rightChild

	mid := (count + 1) / 2
	promoted := keys[mid]

	for i := 0; i < mid; i++ {
		t.setInnerKey(frame.Data(), i, keys[i])
	}
	for i := 0; i <= mid; i++ {
		t.setInnerChild(frame.Data(), i, children[i])
	}
	h.Count = uint16(mid)

	rightKeys := keys[mid+1:]
	rightChildren := children[mid+1:]
	for i, k := range rightKeys {
		t.setInnerKey(newFrame.Data(), i, k)
	}
	for i, c := range rightChildren {
		t.setInnerChild(newFrame.Data(), i, c)
	}
	newHdr.Count = uint16(len(rightKeys))

	for _, childID := range rightChildren {
		if err := t.reparentChild(childID, newFrame.PageID()); err != nil {
			return zero, err
		}
	}
	return promoted, nil
}

func (t *Tree[K, V]) reparentChild(childID, newParentID buffer.PageID) error {
	frame, err := t.segment.FixPage(segmentLocal(childID), true)
	if err != nil {
		return err
	}
	h := header(frame.Data())
	h.HasParent = true
	h.ParentPageID = uint64(newParentID)
	t.segment.UnfixPage(frame, true, true)
	return nil
}

// Erase removes key from the tree; it is a no-op if key is absent.
// Unlike Insert, no rebalancing or merging is performed on underflow; a
// leaf is simply allowed to shrink.
func (t *Tree[K, V]) Erase(key K) error {
	if !t.hasRoot {
		return nil
	}
	curID := t.root
	for {
		frame, err := t.segment.FixPage(segmentLocal(curID), true)
		if err != nil {
			return err
		}
		h := header(frame.Data())
		if isLeaf(h) {
			idx, found := t.leafSearch(frame.Data(), h, key)
			if !found {
				t.segment.UnfixPage(frame, true, false)
				return nil
			}
			t.leafRemoveAt(frame.Data(), h, idx)
			t.segment.UnfixPage(frame, true, true)
			return nil
		}
		idx := t.innerFindChild(frame.Data(), h, key)
		childID := t.innerChild(frame.Data(), idx)
		t.segment.UnfixPage(frame, true, false)
		curID = childID
	}
}

// segmentLocal strips a PageID down to its segment-local index; a tree
// only ever addresses pages within its own segment.
func segmentLocal(id buffer.PageID) uint64 {
	return buffer.SegmentPageID(id)
}
