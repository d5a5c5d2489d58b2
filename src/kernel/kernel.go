// Package kernel is the syscall dispatch surface: it counts each call
// against the current task, routes it to its handler, and collapses
// kernel error numbers to -1 for user space.
package kernel

import "io"

import "github.com/hashicorp/go-hclog"

import "ukern/src/defs"
import "ukern/src/proc"
import "ukern/src/stats"

/// Sysargs_t holds the three argument registers of a syscall.
type Sysargs_t [3]uintptr

/// Kstats_t counts kernel-wide syscall outcomes.
type Kstats_t struct {
	Nsyscalls stats.Counter_t
	Nunknown  stats.Counter_t
	Nrejected stats.Counter_t
	Nfaults   stats.Counter_t
}

/// Kernel_t ties the scheduler to the syscall table.
type Kernel_t struct {
	Tasks   *proc.Tasks_t
	Console io.Writer
	Kstats  Kstats_t
	log     hclog.Logger
	// clock reading at the last return to user space
	uret int
}

type sysfunc_t func(*Kernel_t, *proc.Task_t, Sysargs_t) int

var systab [defs.MAX_SYSCALL_NUM]sysfunc_t

func init() {
	systab[defs.SYS_WRITE] = func(k *Kernel_t, t *proc.Task_t, a Sysargs_t) int {
		return k.Sys_write(t, int(a[0]), a[1], int(a[2]))
	}
	systab[defs.SYS_EXIT] = func(k *Kernel_t, t *proc.Task_t, a Sysargs_t) int {
		return k.Sys_exit(t, int32(a[0]))
	}
	systab[defs.SYS_YIELD] = func(k *Kernel_t, t *proc.Task_t, a Sysargs_t) int {
		return k.Sys_yield(t)
	}
	systab[defs.SYS_GET_TIME] = func(k *Kernel_t, t *proc.Task_t, a Sysargs_t) int {
		return k.Sys_get_time(t, a[0], a[1])
	}
	systab[defs.SYS_TASK_INFO] = func(k *Kernel_t, t *proc.Task_t, a Sysargs_t) int {
		return k.Sys_task_info(t, a[0])
	}
	systab[defs.SYS_MMAP] = func(k *Kernel_t, t *proc.Task_t, a Sysargs_t) int {
		return k.Sys_mmap(t, a[0], a[1], a[2])
	}
	systab[defs.SYS_MUNMAP] = func(k *Kernel_t, t *proc.Task_t, a Sysargs_t) int {
		return k.Sys_munmap(t, a[0], a[1])
	}
	systab[defs.SYS_SBRK] = func(k *Kernel_t, t *proc.Task_t, a Sysargs_t) int {
		return k.Sys_sbrk(t, int32(a[0]))
	}
}

/// Mkkernel returns a kernel dispatching for the tasks in ts. Output of
/// sys_write goes to console.
func Mkkernel(ts *proc.Tasks_t, console io.Writer, log hclog.Logger) *Kernel_t {
	if log == nil {
		log = hclog.NewNullLogger()
	}
	if console == nil {
		console = io.Discard
	}
	return &Kernel_t{Tasks: ts, Console: console, log: log, uret: ts.Clock().Now_us()}
}

/// Syscall runs syscall id with args on behalf of the current task. The
/// call is counted before it runs. Every failure returns -1. Time since
/// the last return to user space is charged to the caller as user time
/// and the call itself as system time.
func (k *Kernel_t) Syscall(id int, args Sysargs_t) int {
	t := k.Tasks.Current()
	if t == nil {
		panic("syscall with no current task")
	}
	clk := k.Tasks.Clock()
	st := clk.Now_us()
	t.Accnt.Utadd((st - k.uret) * 1000)

	k.Kstats.Nsyscalls.Inc()
	t.Syscalls.Inc(id)
	if k.log.IsTrace() {
		k.log.Trace("syscall", "tid", t.Tid, "call", stats.Sysname(id),
			"args", hclog.Fmt("%#x %#x %#x", args[0], args[1], args[2]))
	}
	ret := -1
	if id < 0 || id >= len(systab) || systab[id] == nil {
		k.Kstats.Nunknown.Inc()
		k.log.Warn("unsupported syscall", "tid", t.Tid, "id", id)
	} else {
		ret = systab[id](k, t, args)
	}
	k.uret = t.Accnt.Finish(clk, st)
	return ret
}

// reject logs a failed call and returns the user-visible sentinel.
func (k *Kernel_t) reject(t *proc.Task_t, call string, err defs.Err_t) int {
	if err == -defs.EFAULT {
		k.Kstats.Nfaults.Inc()
		k.log.Warn("bad user pointer", "tid", t.Tid, "call", call)
	} else {
		k.Kstats.Nrejected.Inc()
		k.log.Debug("rejected", "tid", t.Tid, "call", call, "err", err)
	}
	return -1
}
