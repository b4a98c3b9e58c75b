// Package sortpkg implements a bounded-memory external merge sort of
// fixed-width uint64 keys: split the input into memory-sized chunks,
// sort each chunk in place, spill it to a temp file, then k-way merge
// the spilled chunks into the output.
package sortpkg

import (
	"container/heap"
	"encoding/binary"
	"sort"
	"unsafe"

	"github.com/pkg/errors"

	"coredb/storage"
)

const valueSize = 8 // bytes per uint64

// Sort reads n uint64 values from input (opened storage.Read) and writes
// them in ascending order to output (opened storage.Write), using at most
// memBytes of transient memory for the values themselves. If either file
// is open in the wrong mode the call is a silent no-op, per contract.
func Sort(input, output storage.File, n int, memBytes int) error {
	if input.Mode() != storage.Read || output.Mode() != storage.Write {
		return nil
	}

	memBytes -= memBytes % valueSize
	if memBytes < valueSize {
		memBytes = valueSize
	}
	chunkSize := memBytes / valueSize

	size, err := input.Size()
	if err != nil {
		return err
	}
	if err := output.Resize(size); err != nil {
		return err
	}

	if n == 0 {
		return nil
	}

	chunks, err := spillSortedChunks(input, n, chunkSize)
	if err != nil {
		return err
	}
	defer func() {
		for _, c := range chunks {
			_ = c.Close()
		}
	}()

	return mergeChunks(chunks, output)
}

// spillSortedChunks partitions the input into ceil(n/chunkSize) chunks,
// sorts each wholesale in memory, and writes it to a fresh temp file.
func spillSortedChunks(input storage.File, n, chunkSize int) ([]storage.File, error) {
	numChunks := (n + chunkSize - 1) / chunkSize
	chunks := make([]storage.File, 0, numChunks)

	buf := make([]byte, chunkSize*valueSize)
	for i := 0; i < numChunks; i++ {
		thisChunkLen := chunkSize
		if i == numChunks-1 {
			thisChunkLen = n - chunkSize*i
		}
		byteLen := thisChunkLen * valueSize

		if err := input.ReadBlock(int64(i*chunkSize*valueSize), byteLen, buf); err != nil {
			return chunks, err
		}

		// Sort the raw 8-byte records in place so the chunk never needs a
		// second copy of its values.
		recs := unsafe.Slice((*[valueSize]byte)(unsafe.Pointer(&buf[0])), thisChunkLen)
		sort.Slice(recs, func(a, b int) bool {
			return binary.LittleEndian.Uint64(recs[a][:]) < binary.LittleEndian.Uint64(recs[b][:])
		})

		chunkFile, err := storage.OpenTemp("", "extsort-chunk")
		if err != nil {
			return chunks, err
		}
		chunks = append(chunks, chunkFile)
		if err := chunkFile.Resize(int64(byteLen)); err != nil {
			return chunks, err
		}

		if err := chunkFile.WriteBlock(buf, 0, byteLen); err != nil {
			return chunks, err
		}
	}
	return chunks, nil
}

// mergeChunks performs the k-way merge of pre-sorted chunk files into
// output using a min-heap keyed on the current head value of each chunk.
func mergeChunks(chunks []storage.File, output storage.File) error {
	h := make(cursorHeap, 0, len(chunks))
	readBuf := make([]byte, valueSize)

	for id, chunkFile := range chunks {
		size, err := chunkFile.Size()
		if err != nil {
			return err
		}
		endOffset := size / valueSize
		if endOffset == 0 {
			continue
		}
		if err := chunkFile.ReadBlock(0, valueSize, readBuf); err != nil {
			return err
		}
		h = append(h, chunkCursor{
			value:      binary.LittleEndian.Uint64(readBuf),
			readOffset: 0,
			endOffset:  endOffset,
			chunkID:    id,
		})
	}
	heap.Init(&h)

	writeBuf := make([]byte, valueSize)
	var writeOffset int64
	for h.Len() > 0 {
		cur := heap.Pop(&h).(chunkCursor)

		binary.LittleEndian.PutUint64(writeBuf, cur.value)
		if err := output.WriteBlock(writeBuf, writeOffset*valueSize, valueSize); err != nil {
			return errors.Wrap(err, "sortpkg: write merged value")
		}
		writeOffset++

		cur.readOffset++
		if cur.readOffset < cur.endOffset {
			if err := chunks[cur.chunkID].ReadBlock(cur.readOffset*valueSize, valueSize, readBuf); err != nil {
				return err
			}
			cur.value = binary.LittleEndian.Uint64(readBuf)
			heap.Push(&h, cur)
		}
	}
	return nil
}
