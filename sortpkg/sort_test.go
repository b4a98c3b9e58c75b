package sortpkg

import (
	"encoding/binary"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"

	"coredb/storage"
)

func writeValues(t *testing.T, path string, values []uint64) {
	f, err := storage.Open(path, storage.Write)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, f.Resize(int64(len(values)*valueSize)))
	buf := make([]byte, len(values)*valueSize)
	for i, v := range values {
		binary.LittleEndian.PutUint64(buf[i*valueSize:], v)
	}
	require.NoError(t, f.WriteBlock(buf, 0, len(buf)))
}

func readValues(t *testing.T, path string, n int) []uint64 {
	f, err := storage.Open(path, storage.Read)
	require.NoError(t, err)
	defer f.Close()
	buf := make([]byte, n*valueSize)
	require.NoError(t, f.ReadBlock(0, len(buf), buf))
	out := make([]uint64, n)
	for i := range out {
		out[i] = binary.LittleEndian.Uint64(buf[i*valueSize:])
	}
	return out
}

func TestSortSmall(t *testing.T) {
	dir := t.TempDir()
	inPath := filepath.Join(dir, "in.db")
	outPath := filepath.Join(dir, "out.db")

	values := []uint64{5, 2, 9, 1, 7, 3}
	writeValues(t, inPath, values)

	in, err := storage.Open(inPath, storage.Read)
	require.NoError(t, err)
	defer in.Close()
	out, err := storage.Open(outPath, storage.Write)
	require.NoError(t, err)
	defer out.Close()

	require.NoError(t, Sort(in, out, len(values), 16))

	got := readValues(t, outPath, len(values))
	require.Equal(t, []uint64{1, 2, 3, 5, 7, 9}, got)
}

func TestSortEmpty(t *testing.T) {
	dir := t.TempDir()
	inPath := filepath.Join(dir, "in.db")
	outPath := filepath.Join(dir, "out.db")
	writeValues(t, inPath, nil)

	in, err := storage.Open(inPath, storage.Read)
	require.NoError(t, err)
	defer in.Close()
	out, err := storage.Open(outPath, storage.Write)
	require.NoError(t, err)
	defer out.Close()

	require.NoError(t, Sort(in, out, 0, 32))
	size, err := out.Size()
	require.NoError(t, err)
	require.EqualValues(t, 0, size)
}

func TestSortWrongModeIsNoop(t *testing.T) {
	dir := t.TempDir()
	inPath := filepath.Join(dir, "in.db")
	outPath := filepath.Join(dir, "out.db")
	writeValues(t, inPath, []uint64{3, 1, 2})

	in, err := storage.Open(inPath, storage.Write) // wrong mode
	require.NoError(t, err)
	defer in.Close()
	out, err := storage.Open(outPath, storage.Write)
	require.NoError(t, err)
	defer out.Close()

	require.NoError(t, Sort(in, out, 3, 16))
	size, err := out.Size()
	require.NoError(t, err)
	require.EqualValues(t, 0, size)
}

func TestSortOddMemBytesBoundary(t *testing.T) {
	dir := t.TempDir()
	inPath := filepath.Join(dir, "in.db")
	outPath := filepath.Join(dir, "out.db")

	n := 37
	values := make([]uint64, n)
	for i := range values {
		values[i] = uint64(n - i)
	}
	writeValues(t, inPath, values)

	in, err := storage.Open(inPath, storage.Read)
	require.NoError(t, err)
	defer in.Close()
	out, err := storage.Open(outPath, storage.Write)
	require.NoError(t, err)
	defer out.Close()

	// 25 is not a multiple of 8; must be rounded down to 24 (3 values/chunk).
	require.NoError(t, Sort(in, out, n, 25))

	got := readValues(t, outPath, n)
	want := append([]uint64{}, values...)
	sort.Slice(want, func(i, j int) bool { return want[i] < want[j] })
	require.Equal(t, want, got)
}
