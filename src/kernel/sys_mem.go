package kernel

import "ukern/src/defs"
import "ukern/src/proc"

// user lengths wider than this are rejected before conversion to int
const maxulen = 1 << 62

/// Sys_mmap maps len bytes at start with the access bits of port.
func (k *Kernel_t) Sys_mmap(t *proc.Task_t, start, len, port uintptr) int {
	if start > maxulen || len > maxulen || port > maxulen {
		return k.reject(t, "sys_mmap", -defs.EINVAL)
	}
	if err := t.Vm.Mmap(int(start), int(len), int(port)); err != 0 {
		return k.reject(t, "sys_mmap", err)
	}
	return 0
}

/// Sys_munmap unmaps len bytes at start.
func (k *Kernel_t) Sys_munmap(t *proc.Task_t, start, len uintptr) int {
	if start > maxulen || len > maxulen {
		return k.reject(t, "sys_munmap", -defs.EINVAL)
	}
	if err := t.Vm.Munmap(int(start), int(len)); err != 0 {
		return k.reject(t, "sys_munmap", err)
	}
	return 0
}

/// Sys_sbrk moves the program break by size bytes and returns the old
/// break.
func (k *Kernel_t) Sys_sbrk(t *proc.Task_t, size int32) int {
	old, err := t.Vm.Brk(int(size))
	if err != 0 {
		return k.reject(t, "sys_sbrk", err)
	}
	return old
}
