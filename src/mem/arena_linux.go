package mem

import "github.com/go-errors/errors"
import "golang.org/x/sys/unix"

// alloc_arena reserves size bytes of anonymous, private, readable and
// writable host memory to back the simulated frames.
func alloc_arena(size int) ([]uint8, error) {
	if size <= 0 {
		return nil, unix.EINVAL
	}
	arena, err := unix.Mmap(-1, 0, size,
		unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, errors.WrapPrefix(err, "arena mmap", 0)
	}
	return arena, nil
}

// free_arena unmaps an arena returned by alloc_arena.
func free_arena(arena []uint8) error {
	if len(arena) == 0 {
		return unix.EINVAL
	}
	if err := unix.Munmap(arena); err != nil {
		return errors.Wrap(err, 0)
	}
	return nil
}
