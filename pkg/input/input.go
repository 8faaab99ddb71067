// Package input provides byte sources for the parsing engine. A Source
// owns the input buffer for the duration of a parse: the engine's string
// references borrow from this buffer, so it must stay open until the sink
// has copied everything out.
//
// Files are memory-mapped when stored uncompressed. Gzip and zstd inputs
// are detected by their magic bytes and decompressed into memory.
package input

import (
	"bytes"
	"io"
	"os"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"go.uber.org/zap"

	"github.com/axiomdata/tabread/pkg/errors"
	"github.com/axiomdata/tabread/pkg/logger"
	"github.com/axiomdata/tabread/pkg/mmap"
)

// Source is an immutable byte range handed to the engine.
type Source struct {
	data  []byte
	close func() error
}

// Data returns the source bytes. Valid until Close.
func (s *Source) Data() []byte {
	return s.data
}

// Close releases the underlying buffer or mapping.
func (s *Source) Close() error {
	if s.close != nil {
		err := s.close()
		s.close = nil
		return err
	}
	return nil
}

// FromBytes wraps an in-memory buffer as a Source. The caller keeps
// ownership of the slice.
func FromBytes(data []byte) *Source {
	return &Source{data: data}
}

// compression magic bytes
var (
	gzipMagic = []byte{0x1f, 0x8b}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
)

// OpenFile opens the named file as a Source. Compressed files are
// recognized by magic bytes and inflated into memory; plain files are
// memory-mapped.
func OpenFile(path string) (*Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "opening input")
	}

	magic := make([]byte, 4)
	n, err := io.ReadFull(f, magic)
	if err != nil && err != io.ErrUnexpectedEOF {
		f.Close()
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "reading input header")
	}
	magic = magic[:n]

	switch {
	case bytes.HasPrefix(magic, gzipMagic):
		defer f.Close()
		return inflateGzip(f, path)
	case bytes.HasPrefix(magic, zstdMagic):
		defer f.Close()
		return inflateZstd(f, path)
	}

	f.Close()
	r, err := mmap.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "mapping input")
	}
	logger.Debug("mapped input file",
		zap.String("path", path), zap.Int("bytes", r.Size()))
	return &Source{data: r.Data(), close: r.Close}, nil
}

func inflateGzip(f *os.File, path string) (*Source, error) {
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "rewinding input")
	}
	gz, err := gzip.NewReader(f)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "opening gzip stream")
	}
	defer gz.Close()

	data, err := io.ReadAll(gz)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "inflating gzip input")
	}
	logger.Debug("inflated gzip input",
		zap.String("path", path), zap.Int("bytes", len(data)))
	return &Source{data: data}, nil
}

func inflateZstd(f *os.File, path string) (*Source, error) {
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "rewinding input")
	}
	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "opening zstd stream")
	}
	defer dec.Close()

	data, err := io.ReadAll(dec)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "inflating zstd input")
	}
	logger.Debug("inflated zstd input",
		zap.String("path", path), zap.Int("bytes", len(data)))
	return &Source{data: data}, nil
}
