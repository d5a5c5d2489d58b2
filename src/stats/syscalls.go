package stats

import "sort"
import "strconv"
import "sync/atomic"

import "github.com/google/pprof/profile"

import "ukern/src/defs"

/// Syscalls_t counts how many times a task invoked each syscall number.
/// Numbers at or above MAX_SYSCALL_NUM are not counted.
type Syscalls_t struct {
	cnt [defs.MAX_SYSCALL_NUM]uint32
}

/// Inc records one invocation of syscall id. It reports whether id was
/// in range.
func (sc *Syscalls_t) Inc(id int) bool {
	if id < 0 || id >= defs.MAX_SYSCALL_NUM {
		return false
	}
	atomic.AddUint32(&sc.cnt[id], 1)
	return true
}

/// Get returns the count for id.
func (sc *Syscalls_t) Get(id int) uint32 {
	if id < 0 || id >= defs.MAX_SYSCALL_NUM {
		return 0
	}
	return atomic.LoadUint32(&sc.cnt[id])
}

/// Snapshot copies every counter.
func (sc *Syscalls_t) Snapshot() [defs.MAX_SYSCALL_NUM]uint32 {
	var ret [defs.MAX_SYSCALL_NUM]uint32
	for i := range sc.cnt {
		ret[i] = atomic.LoadUint32(&sc.cnt[i])
	}
	return ret
}

/// Sysname returns the symbolic name of syscall id.
func Sysname(id int) string {
	if n, ok := defs.Sysnames[id]; ok {
		return n
	}
	return "sys_" + strconv.Itoa(id)
}

/// Taskcalls_t names one task's counters for export.
type Taskcalls_t struct {
	Name  string
	Calls [defs.MAX_SYSCALL_NUM]uint32
}

/// Profile builds a pprof profile with one sample per nonzero counter.
/// Each sample's stack is the syscall name above the task name, so
/// `pprof -top` ranks syscalls and `-traces` groups them by task.
func Profile(tasks []Taskcalls_t, durns int64) *profile.Profile {
	p := &profile.Profile{
		SampleType:    []*profile.ValueType{{Type: "syscalls", Unit: "count"}},
		PeriodType:    &profile.ValueType{Type: "syscalls", Unit: "count"},
		Period:        1,
		DurationNanos: durns,
	}
	locs := map[string]*profile.Location{}
	loc := func(name string) *profile.Location {
		if l, ok := locs[name]; ok {
			return l
		}
		fn := &profile.Function{
			ID:         uint64(len(p.Function) + 1),
			Name:       name,
			SystemName: name,
		}
		p.Function = append(p.Function, fn)
		l := &profile.Location{
			ID:   uint64(len(p.Location) + 1),
			Line: []profile.Line{{Function: fn}},
		}
		p.Location = append(p.Location, l)
		locs[name] = l
		return l
	}
	for _, t := range tasks {
		for id, n := range t.Calls {
			if n == 0 {
				continue
			}
			p.Sample = append(p.Sample, &profile.Sample{
				Location: []*profile.Location{loc(Sysname(id)), loc("task " + t.Name)},
				Value:    []int64{int64(n)},
				NumLabel: map[string][]int64{"sysno": {int64(id)}},
				Label:    map[string][]string{"task": {t.Name}},
			})
		}
	}
	sort.SliceStable(p.Sample, func(i, j int) bool {
		return p.Sample[i].Value[0] > p.Sample[j].Value[0]
	})
	return p
}
