package proc

import "ukern/src/accnt"
import "ukern/src/defs"
import "ukern/src/stats"
import "ukern/src/vm"

/// TaskStatus_t is a task's scheduling state. The numeric values are
/// what task_info reports to user space.
type TaskStatus_t int

const (
	UnInit TaskStatus_t = iota
	Ready
	Running
	Exited
)

func (st TaskStatus_t) String() string {
	switch st {
	case UnInit:
		return "uninit"
	case Ready:
		return "ready"
	case Running:
		return "running"
	case Exited:
		return "exited"
	}
	return "?"
}

// user layout established at spawn
const (
	USERTEXT  = 0x10000
	HEAPBOT   = 0x40000000
	USTACKTOP = 0x80000000
)

/// Task_t is a task control block.
type Task_t struct {
	Tid      defs.Tid_t
	Name     string
	Status   TaskStatus_t
	Syscalls stats.Syscalls_t
	Accnt    *accnt.Accnt_t
	Vm       *vm.Vm_t
	Exitcode int
}

/// Token returns the page-table token of the task's address space.
func (t *Task_t) Token() vm.Token_t {
	return t.Vm.Token()
}

/// Calls returns the task's counters in exportable form.
func (t *Task_t) Calls() stats.Taskcalls_t {
	return stats.Taskcalls_t{Name: t.Name, Calls: t.Syscalls.Snapshot()}
}
