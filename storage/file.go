// Package storage implements the block-addressable file abstraction the
// rest of the engine is built on: open-with-mode, size/resize, positional
// block reads and writes, and anonymous temporary files.
package storage

import (
	"os"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Mode selects how a File was opened. A File opened Read must not be
// written to or resized; callers that do get ErrWrongMode. A File opened
// Write can be both read and written.
type Mode int

const (
	Read Mode = iota
	Write
)

// ErrWrongMode is returned by operations performed against a File opened
// in the wrong mode.
var ErrWrongMode = errors.New("storage: wrong file mode")

// File is the block-addressable byte store the buffer manager and the
// external sort read and write through. Reading past Size() is an error;
// writing past it extends the file.
type File interface {
	Mode() Mode
	Size() (int64, error)
	Resize(newSize int64) error
	ReadBlock(offset int64, length int, out []byte) error
	WriteBlock(in []byte, offset int64, length int) error
	Close() error
}

// OSFile backs File with a regular *os.File.
type OSFile struct {
	f       *os.File
	mode    Mode
	temp    bool
	deleted bool
}

// Open opens path in the given mode, creating it if it does not exist.
func Open(path string, mode Mode) (*OSFile, error) {
	flags := os.O_CREATE
	switch mode {
	case Read:
		flags |= os.O_RDONLY
	case Write:
		flags |= os.O_RDWR
	default:
		return nil, errors.Errorf("storage: unknown mode %d", mode)
	}
	f, err := os.OpenFile(path, flags, 0o666)
	if err != nil {
		return nil, errors.Wrapf(err, "storage: open %s", path)
	}
	return &OSFile{f: f, mode: mode}, nil
}

// OpenTemp creates an anonymous temporary file in dir (empty for the
// default temp directory) opened for Write. The file is removed as soon
// as Close is called.
func OpenTemp(dir, pattern string) (*OSFile, error) {
	name := pattern + "-" + uuid.NewString()
	f, err := os.CreateTemp(dir, name)
	if err != nil {
		return nil, errors.Wrap(err, "storage: create temp file")
	}
	return &OSFile{f: f, mode: Write, temp: true}, nil
}

func (o *OSFile) Mode() Mode { return o.mode }

func (o *OSFile) Size() (int64, error) {
	info, err := o.f.Stat()
	if err != nil {
		return 0, errors.Wrap(err, "storage: stat")
	}
	return info.Size(), nil
}

func (o *OSFile) Resize(newSize int64) error {
	if o.mode != Write {
		return ErrWrongMode
	}
	if err := o.f.Truncate(newSize); err != nil {
		return errors.Wrap(err, "storage: truncate")
	}
	return nil
}

func (o *OSFile) ReadBlock(offset int64, length int, out []byte) error {
	if len(out) < length {
		return errors.Errorf("storage: read buffer too small: have %d need %d", len(out), length)
	}
	n, err := o.f.ReadAt(out[:length], offset)
	if err != nil {
		return errors.Wrapf(err, "storage: read_block offset=%d length=%d", offset, length)
	}
	if n != length {
		return errors.Errorf("storage: short read at offset %d: got %d want %d", offset, n, length)
	}
	return nil
}

func (o *OSFile) WriteBlock(in []byte, offset int64, length int) error {
	if o.mode != Write {
		return ErrWrongMode
	}
	if len(in) < length {
		return errors.Errorf("storage: write buffer too small: have %d need %d", len(in), length)
	}
	n, err := o.f.WriteAt(in[:length], offset)
	if err != nil {
		return errors.Wrapf(err, "storage: write_block offset=%d length=%d", offset, length)
	}
	if n != length {
		return errors.Errorf("storage: short write at offset %d: wrote %d want %d", offset, n, length)
	}
	return nil
}

func (o *OSFile) Close() error {
	if o.deleted {
		return nil
	}
	name := o.f.Name()
	err := o.f.Close()
	if o.temp {
		o.deleted = true
		if rmErr := os.Remove(name); rmErr != nil && err == nil {
			err = errors.Wrap(rmErr, "storage: remove temp file")
		}
	}
	return err
}
