package defs

/// Err_t is a kernel error number. Kernel routines return the negated value
/// (e.g. -EFAULT) and zero on success.
type Err_t int

const (
	EPERM   Err_t = 1
	ESRCH   Err_t = 3
	ENOMEM  Err_t = 12
	EFAULT  Err_t = 14
	EEXIST  Err_t = 17
	EINVAL  Err_t = 22
	ENOSPC  Err_t = 28
	ERANGE  Err_t = 34
	ENOSYS  Err_t = 38
	ENOHEAP Err_t = 511
)

var errnames = map[Err_t]string{
	EPERM:   "EPERM",
	ESRCH:   "ESRCH",
	ENOMEM:  "ENOMEM",
	EFAULT:  "EFAULT",
	EEXIST:  "EEXIST",
	EINVAL:  "EINVAL",
	ENOSPC:  "ENOSPC",
	ERANGE:  "ERANGE",
	ENOSYS:  "ENOSYS",
	ENOHEAP: "ENOHEAP",
}

/// String returns the errno name, with a leading minus for negated values.
func (e Err_t) String() string {
	if e == 0 {
		return "OK"
	}
	n := e
	sign := ""
	if n < 0 {
		n = -n
		sign = "-"
	}
	if s, ok := errnames[n]; ok {
		return sign + s
	}
	return sign + "E?"
}

type Tid_t int

/// MAX_SYSCALL_NUM bounds the per-task syscall counter array. Syscall numbers
/// at or above it are not counted.
const MAX_SYSCALL_NUM = 500

const (
	SYS_WRITE     = 64
	SYS_EXIT      = 93
	SYS_YIELD     = 124
	SYS_GET_TIME  = 169
	SYS_SBRK      = 214
	SYS_MUNMAP    = 215
	SYS_MMAP      = 222
	SYS_TASK_INFO = 410
)

/// Syscall names as reported in logs and profiles.
var Sysnames = map[int]string{
	SYS_WRITE:     "sys_write",
	SYS_EXIT:      "sys_exit",
	SYS_YIELD:     "sys_yield",
	SYS_GET_TIME:  "sys_get_time",
	SYS_SBRK:      "sys_sbrk",
	SYS_MUNMAP:    "sys_munmap",
	SYS_MMAP:      "sys_mmap",
	SYS_TASK_INFO: "sys_task_info",
}

/// mmap port bits as passed by user tasks.
const (
	PROT_READ  = 0x1
	PROT_WRITE = 0x2
	PROT_EXEC  = 0x4
	PROT_MASK  = PROT_READ | PROT_WRITE | PROT_EXEC
)

/// WORDSZ is the size of a user machine word in bytes.
const WORDSZ = 8
