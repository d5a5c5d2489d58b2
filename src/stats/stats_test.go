package stats

import (
	"bytes"
	"testing"

	"github.com/google/pprof/profile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ukern/src/defs"
)

func TestSyscallCounters(t *testing.T) {
	var sc Syscalls_t
	assert.True(t, sc.Inc(defs.SYS_MMAP))
	assert.True(t, sc.Inc(defs.SYS_MMAP))
	assert.True(t, sc.Inc(0))
	assert.True(t, sc.Inc(defs.MAX_SYSCALL_NUM-1))
	assert.False(t, sc.Inc(defs.MAX_SYSCALL_NUM))
	assert.False(t, sc.Inc(-1))

	assert.Equal(t, uint32(2), sc.Get(defs.SYS_MMAP))
	assert.Equal(t, uint32(0), sc.Get(defs.MAX_SYSCALL_NUM))
	snap := sc.Snapshot()
	assert.Equal(t, uint32(2), snap[defs.SYS_MMAP])
	assert.Equal(t, uint32(1), snap[defs.MAX_SYSCALL_NUM-1])

	// the snapshot is a copy
	sc.Inc(defs.SYS_MMAP)
	assert.Equal(t, uint32(2), snap[defs.SYS_MMAP])
}

func TestSysname(t *testing.T) {
	assert.Equal(t, "sys_task_info", Sysname(defs.SYS_TASK_INFO))
	assert.Equal(t, "sys_7", Sysname(7))
}

func TestProfile(t *testing.T) {
	var a, b Taskcalls_t
	a.Name = "init"
	a.Calls[defs.SYS_MMAP] = 3
	a.Calls[defs.SYS_YIELD] = 1
	b.Name = "sh"
	b.Calls[defs.SYS_MMAP] = 5

	p := Profile([]Taskcalls_t{a, b}, 1000)
	require.NoError(t, p.CheckValid())
	require.Len(t, p.Sample, 3)
	assert.Equal(t, int64(5), p.Sample[0].Value[0])
	assert.Equal(t, "sys_mmap", p.Sample[0].Location[0].Line[0].Function.Name)
	assert.Equal(t, []string{"sh"}, p.Sample[0].Label["task"])
	// sys_mmap, sys_yield, task init, task sh
	assert.Len(t, p.Function, 4)

	var buf bytes.Buffer
	require.NoError(t, p.Write(&buf))
	q, err := profile.Parse(&buf)
	require.NoError(t, err)
	assert.Len(t, q.Sample, 3)
}

type kstats_t struct {
	Faults  Counter_t
	Unknown Counter_t
	other   int
}

func TestStats2String(t *testing.T) {
	var st kstats_t
	st.Faults.Inc()
	st.Faults.Inc()
	assert.Equal(t, int64(2), st.Faults.Get())
	assert.Equal(t, "\n\t#Faults: 2\n\t#Unknown: 0\n", Stats2String(&st))
}
