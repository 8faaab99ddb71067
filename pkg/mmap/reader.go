// Package mmap provides memory-mapped file I/O for zero-copy reading of
// large delimited-text inputs.
package mmap

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/axiomdata/tabread/pkg/logger"
)

// Reader provides read-only memory-mapped access to a file. The mapped
// bytes must not be retained past Close.
type Reader struct {
	file *os.File
	data []byte
}

// Open memory-maps the named file for reading.
func Open(filename string) (*Reader, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	size := stat.Size()
	if size == 0 {
		file.Close()
		return nil, fmt.Errorf("file is empty: %s", filename)
	}

	data, err := mmap(int(file.Fd()), 0, int(size))
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to mmap file: %w", err)
	}

	if err := madviseSequential(data); err != nil {
		// Non-fatal, purely a readahead hint
		logger.Debug("madvise failed", zap.Error(err))
	}

	return &Reader{file: file, data: data}, nil
}

// Data returns the mapped bytes. Valid until Close.
func (r *Reader) Data() []byte {
	return r.data
}

// Size returns the length of the mapping in bytes.
func (r *Reader) Size() int {
	return len(r.data)
}

// Close unmaps the file and releases the descriptor.
func (r *Reader) Close() error {
	if r.data != nil {
		if err := munmap(r.data); err != nil {
			return fmt.Errorf("failed to munmap: %w", err)
		}
		r.data = nil
	}
	if r.file != nil {
		err := r.file.Close()
		r.file = nil
		return err
	}
	return nil
}
