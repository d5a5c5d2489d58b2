package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ukern/src/accnt"
	"ukern/src/limits"
)

func TestDefaultMatchesLimits(t *testing.T) {
	c := Default()
	require.NoError(t, c.Validate())
	assert.Equal(t, limits.MkSysLimit(), c.Limits())
	_, ok := c.Mkclock().(*accnt.Hostclock_t)
	assert.True(t, ok)
}

func TestParseKeepsAbsentFields(t *testing.T) {
	c, err := Parse([]byte(`{"phys_pages": 256, "clock": "manual", "clock_step_us": 10}`), Default())
	require.NoError(t, err)
	assert.Equal(t, 256, c.Phys_pages)
	assert.Equal(t, Default().Heap_pages, c.Heap_pages)
	assert.Equal(t, "info", c.Log_level)

	clk, ok := c.Mkclock().(*accnt.Manualclock_t)
	require.True(t, ok)
	assert.Equal(t, int64(10), clk.Step)

	l := c.Limits()
	assert.Equal(t, 256, l.Physpages)
	assert.Equal(t, int64(Default().Max_tasks), l.Tasks.Remain())
}

func TestParseErrors(t *testing.T) {
	base := Default()
	tests := []string{
		`{"phys_pages": 0}`,
		`{"max_tasks": -1}`,
		`{"heap_pages": -1}`,
		`{"user_stack_pages": 0}`,
		`{"clock": "sundial"}`,
		`{"clock_step_us": -5}`,
		`{"phys_pages": "many"}`,
		`not json`,
	}
	for _, in := range tests {
		c, err := Parse([]byte(in), base)
		assert.Error(t, err, in)
		assert.Equal(t, base, c, in)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "ksim.json")
	require.NoError(t, os.WriteFile(p, []byte(`{"log_level": "trace", "max_tasks": 3}`), 0o644))
	c, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, "trace", c.Log_level)
	assert.Equal(t, 3, c.Max_tasks)

	_, err = Load(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(p, []byte(`{"phys_pages": -1}`), 0o644))
	_, err = Load(p)
	assert.ErrorContains(t, err, "ksim.json")
}
