//go:build !linux

package mem

import "github.com/go-errors/errors"

// alloc_arena falls back to the Go heap where anonymous mmap is not wired.
func alloc_arena(size int) ([]uint8, error) {
	if size <= 0 {
		return nil, errors.Errorf("bad arena size %d", size)
	}
	return make([]uint8, size), nil
}

func free_arena(arena []uint8) error {
	return nil
}
