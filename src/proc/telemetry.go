package proc

import "ukern/src/defs"

/// Telemetry_t is what task_info reports about the current task.
type Telemetry_t struct {
	Status        TaskStatus_t
	Syscall_times [defs.MAX_SYSCALL_NUM]uint32
	// milliseconds since first schedule
	Time_ms int
}

/// Telemetry reads the current task's status, syscall counters, and
/// running time. It reports false when no task is current.
func (ts *Tasks_t) Telemetry() (Telemetry_t, bool) {
	t := ts.Current()
	if t == nil {
		return Telemetry_t{}, false
	}
	var ret Telemetry_t
	ret.Status = t.Status
	ret.Syscall_times = t.Syscalls.Snapshot()
	ret.Time_ms = t.Accnt.Elapsed_ms(ts.clk)
	return ret, true
}
