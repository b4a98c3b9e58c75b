package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOSFileReadWriteBlock(t *testing.T) {
	dir := t.TempDir()
	f, err := Open(filepath.Join(dir, "seg.db"), Write)
	require.NoError(t, err)
	defer f.Close()

	require.NoError(t, f.Resize(4096))
	size, err := f.Size()
	require.NoError(t, err)
	require.EqualValues(t, 4096, size)

	payload := make([]byte, 16)
	for i := range payload {
		payload[i] = byte(i)
	}
	require.NoError(t, f.WriteBlock(payload, 100, len(payload)))

	out := make([]byte, 16)
	require.NoError(t, f.ReadBlock(100, len(out), out))
	require.Equal(t, payload, out)
}

func TestOSFileWrongMode(t *testing.T) {
	dir := t.TempDir()
	f, err := Open(filepath.Join(dir, "ro.db"), Read)
	require.NoError(t, err)
	defer f.Close()

	err = f.WriteBlock([]byte{1}, 0, 1)
	require.ErrorIs(t, err, ErrWrongMode)
	require.ErrorIs(t, f.Resize(10), ErrWrongMode)
}

func TestOpenTempRemovesOnClose(t *testing.T) {
	dir := t.TempDir()
	f, err := OpenTemp(dir, "chunk")
	require.NoError(t, err)
	require.NoError(t, f.Resize(8))
	require.NoError(t, f.WriteBlock([]byte{1, 2, 3, 4, 5, 6, 7, 8}, 0, 8))
	name := f.f.Name()
	require.NoError(t, f.Close())

	_, statErr := os.Stat(name)
	require.True(t, os.IsNotExist(statErr))

	out := make([]byte, 8)
	require.Error(t, f.ReadBlock(0, 8, out))
}
