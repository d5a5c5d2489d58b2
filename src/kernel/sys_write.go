package kernel

import "github.com/go-errors/errors"
import "io"

import "ukern/src/defs"
import "ukern/src/proc"
import "ukern/src/vm"

/// FD_STDOUT is the only descriptor sys_write accepts.
const FD_STDOUT = 1

/// Sys_write copies len bytes at buf to the console. It returns the
/// number of bytes written.
func (k *Kernel_t) Sys_write(t *proc.Task_t, fd int, buf uintptr, len int) int {
	if fd != FD_STDOUT || len < 0 || buf > maxulen {
		return k.reject(t, "sys_write", -defs.EINVAL)
	}
	ub := vm.Mkuserbuf(t.Vm, int(buf), len)
	n, err := io.Copy(k.Console, ub)
	if err != nil {
		var uerr *vm.Uerr_t
		if errors.As(err, &uerr) {
			return k.reject(t, "sys_write", uerr.Err)
		}
		k.log.Error("console write failed", "error", err)
		return -1
	}
	return int(n)
}
