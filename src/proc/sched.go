package proc

import "sync"

import "github.com/hashicorp/go-hclog"

import "ukern/src/accnt"
import "ukern/src/defs"
import "ukern/src/limits"
import "ukern/src/mem"
import "ukern/src/vm"

/// Tasks_t is a single-core round-robin scheduler. At most one task is
/// Running; it is the current task.
type Tasks_t struct {
	sync.Mutex
	clk     accnt.Clock_i
	log     hclog.Logger
	all     []*Task_t
	ready   []*Task_t
	cur     *Task_t
	nexttid defs.Tid_t
}

/// Mktasks returns an empty scheduler reading time from clk.
func Mktasks(clk accnt.Clock_i, log hclog.Logger) *Tasks_t {
	return &Tasks_t{clk: clk, log: log, nexttid: 1}
}

/// Clock returns the scheduler's clock.
func (ts *Tasks_t) Clock() accnt.Clock_i {
	return ts.clk
}

/// Spawn creates a Ready task with a fresh address space: one text page,
/// an empty heap at HEAPBOT, and a user stack ending at USTACKTOP.
func (ts *Tasks_t) Spawn(name string) (*Task_t, defs.Err_t) {
	if !limits.Syslimit.Tasks.Take() {
		return nil, -defs.ENOMEM
	}
	as, err := vm.Mkvm(HEAPBOT)
	if err != 0 {
		limits.Syslimit.Tasks.Give()
		return nil, err
	}
	stk := limits.Syslimit.Stackpages * mem.PGSIZE
	if err := as.Vmadd_anon(USERTEXT, mem.PGSIZE, mem.PTE_R|mem.PTE_X); err != 0 {
		as.Uvmfree()
		limits.Syslimit.Tasks.Give()
		return nil, err
	}
	if err := as.Vmadd_anon(USTACKTOP-stk, stk, mem.PTE_R|mem.PTE_W); err != 0 {
		as.Uvmfree()
		limits.Syslimit.Tasks.Give()
		return nil, err
	}

	ts.Lock()
	defer ts.Unlock()
	t := &Task_t{}
	t.Tid = ts.nexttid
	ts.nexttid++
	t.Name = name
	t.Accnt = accnt.Mkaccnt()
	t.Vm = as
	t.Status = Ready
	ts.all = append(ts.all, t)
	ts.ready = append(ts.ready, t)
	ts.log.Debug("spawn", "tid", t.Tid, "name", name, "token", t.Token())
	return t, 0
}

/// Current returns the running task, or nil when none is runnable.
func (ts *Tasks_t) Current() *Task_t {
	ts.Lock()
	defer ts.Unlock()
	return ts.cur
}

// _run_next makes the head of the ready queue current. The start time
// is recorded on a task's first schedule.
func (ts *Tasks_t) _run_next() {
	if ts.cur != nil {
		panic("current task still set")
	}
	if len(ts.ready) == 0 {
		return
	}
	t := ts.ready[0]
	ts.ready = ts.ready[1:]
	t.Status = Running
	t.Accnt.Start(ts.clk)
	ts.cur = t
}

/// Run schedules a task if none is current. It returns the current task.
func (ts *Tasks_t) Run() *Task_t {
	ts.Lock()
	defer ts.Unlock()
	if ts.cur == nil {
		ts._run_next()
	}
	return ts.cur
}

/// Suspend_current_and_run_next moves the current task to the back of
/// the ready queue and runs the next one.
func (ts *Tasks_t) Suspend_current_and_run_next() {
	ts.Lock()
	defer ts.Unlock()
	t := ts.cur
	if t == nil {
		panic("no current task")
	}
	t.Status = Ready
	ts.ready = append(ts.ready, t)
	ts.cur = nil
	ts._run_next()
}

/// Exit_current_and_run_next terminates the current task, releases its
/// memory, and runs the next one.
func (ts *Tasks_t) Exit_current_and_run_next(code int) {
	ts.Lock()
	defer ts.Unlock()
	t := ts.cur
	if t == nil {
		panic("no current task")
	}
	t.Status = Exited
	t.Exitcode = code
	t.Vm.Uvmfree()
	limits.Syslimit.Tasks.Give()
	ts.log.Debug("exit", "tid", t.Tid, "name", t.Name, "code", code,
		"ms", t.Accnt.Elapsed_ms(ts.clk))
	ts.cur = nil
	ts._run_next()
}

/// Tasks returns every task ever spawned, in spawn order.
func (ts *Tasks_t) Tasks() []*Task_t {
	ts.Lock()
	defer ts.Unlock()
	return append([]*Task_t(nil), ts.all...)
}

/// Nready returns the number of tasks waiting to run.
func (ts *Tasks_t) Nready() int {
	ts.Lock()
	defer ts.Unlock()
	return len(ts.ready)
}
