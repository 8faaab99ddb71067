// Package strings provides zero-copy string utilities for tabread
package strings

import (
	"unsafe"
)

// BytesToString converts byte slice to string without allocation.
// WARNING: The returned string shares memory with the byte slice.
// Do not modify the byte slice after calling this function.
func BytesToString(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	return unsafe.String(&b[0], len(b))
}

// StringToBytes converts string to byte slice without allocation.
// WARNING: The returned byte slice shares memory with the string.
// Do not modify the returned slice.
func StringToBytes(s string) []byte {
	if len(s) == 0 {
		return nil
	}
	return unsafe.Slice(unsafe.StringData(s), len(s))
}

// Builder provides efficient string building over a reusable byte buffer
type Builder struct {
	buf []byte
}

// NewBuilder creates a new string builder
func NewBuilder(capacity int) *Builder {
	return &Builder{
		buf: make([]byte, 0, capacity),
	}
}

// WriteString appends a string to the builder
func (b *Builder) WriteString(s string) {
	b.buf = append(b.buf, s...)
}

// WriteBytes appends bytes to the builder
func (b *Builder) WriteBytes(data []byte) {
	b.buf = append(b.buf, data...)
}

// WriteByte appends a single byte to the builder
func (b *Builder) WriteByte(c byte) {
	b.buf = append(b.buf, c)
}

// Len returns the number of bytes written
func (b *Builder) Len() int {
	return len(b.buf)
}

// Reset clears the builder, keeping the allocated buffer
func (b *Builder) Reset() {
	b.buf = b.buf[:0]
}

// String returns the accumulated string. The result copies the buffer so it
// remains valid after Reset.
func (b *Builder) String() string {
	return string(b.buf)
}

// Bytes returns the underlying buffer. The slice is invalidated by the next
// Write or Reset call.
func (b *Builder) Bytes() []byte {
	return b.buf
}
