//go:build darwin

package mmap

import (
	"golang.org/x/sys/unix"
)

// mmap wraps the mmap system call
func mmap(fd int, offset int64, length int) ([]byte, error) {
	return unix.Mmap(fd, offset, length, unix.PROT_READ, unix.MAP_SHARED)
}

// munmap wraps the munmap system call
func munmap(b []byte) error {
	return unix.Munmap(b)
}

// madviseSequential hints the kernel that the mapping will be read
// front to back
func madviseSequential(b []byte) error {
	return unix.Madvise(b, unix.MADV_SEQUENTIAL)
}
