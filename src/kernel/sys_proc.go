package kernel

import "ukern/src/accnt"
import "ukern/src/defs"
import "ukern/src/proc"

// TimeVal and TaskInfo field offsets in user memory
const (
	tv_sec  = 0
	tv_usec = defs.WORDSZ

	ti_status = 0
	ti_times  = defs.WORDSZ
	ti_time   = ti_times + 4*defs.MAX_SYSCALL_NUM
)

/// Sys_exit terminates the calling task and runs the next one. Nothing
/// is returned to the caller; the result only reaches the dispatcher.
func (k *Kernel_t) Sys_exit(t *proc.Task_t, code int32) int {
	k.log.Debug("exit", "tid", t.Tid, "code", code)
	k.Tasks.Exit_current_and_run_next(int(code))
	return 0
}

/// Sys_yield gives up the processor.
func (k *Kernel_t) Sys_yield(t *proc.Task_t) int {
	k.Tasks.Suspend_current_and_run_next()
	return 0
}

/// Sys_get_time stores the clock in the TimeVal at ts. tz is ignored.
func (k *Kernel_t) Sys_get_time(t *proc.Task_t, ts, tz uintptr) int {
	sec, usec := accnt.Totv(k.Tasks.Clock().Now_us())
	if err := t.Vm.Userwriten(int(ts)+tv_sec, defs.WORDSZ, sec); err != 0 {
		return k.reject(t, "sys_get_time", err)
	}
	if err := t.Vm.Userwriten(int(ts)+tv_usec, defs.WORDSZ, usec); err != 0 {
		return k.reject(t, "sys_get_time", err)
	}
	return 0
}

/// Sys_task_info stores the caller's status, syscall counts, and
/// milliseconds since first schedule in the TaskInfo at ti.
func (k *Kernel_t) Sys_task_info(t *proc.Task_t, ti uintptr) int {
	info, ok := k.Tasks.Telemetry()
	if !ok {
		panic("no current task")
	}
	base := int(ti)
	if err := t.Vm.Userwriten(base+ti_status, defs.WORDSZ, int(info.Status)); err != 0 {
		return k.reject(t, "sys_task_info", err)
	}
	for i, n := range info.Syscall_times {
		if err := t.Vm.Userwriten(base+ti_times+4*i, 4, int(n)); err != 0 {
			return k.reject(t, "sys_task_info", err)
		}
	}
	if err := t.Vm.Userwriten(base+ti_time, defs.WORDSZ, info.Time_ms); err != 0 {
		return k.reject(t, "sys_task_info", err)
	}
	return 0
}
