package defs

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrString(t *testing.T) {
	assert.Equal(t, "OK", Err_t(0).String())
	assert.Equal(t, "-EFAULT", (-EFAULT).String())
	assert.Equal(t, "EEXIST", EEXIST.String())
	assert.Equal(t, "-E?", Err_t(-1000).String())
}

func TestSyscallNumbers(t *testing.T) {
	for id, name := range Sysnames {
		assert.Less(t, id, MAX_SYSCALL_NUM, name)
	}
	assert.Equal(t, "sys_mmap", Sysnames[SYS_MMAP])
}
