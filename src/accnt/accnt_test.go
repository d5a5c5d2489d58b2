package accnt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ukern/src/util"
)

func TestTotv(t *testing.T) {
	tests := []struct {
		us        int
		sec, usec int
	}{
		{0, 0, 0},
		{999999, 0, 999999},
		{1000000, 1, 0},
		{3250001, 3, 250001},
	}
	for _, tt := range tests {
		s, us := Totv(tt.us)
		assert.Equal(t, tt.sec, s, "us=%d", tt.us)
		assert.Equal(t, tt.usec, us, "us=%d", tt.us)
	}
}

func TestStartOnlyOnce(t *testing.T) {
	clk := &Manualclock_t{}
	clk.Advance(7 * time.Millisecond)
	a := Mkaccnt()
	assert.False(t, a.Started())
	assert.Zero(t, a.Elapsed_ms(clk))

	a.Start(clk)
	require.True(t, a.Started())
	clk.Advance(5 * time.Millisecond)
	a.Start(clk)
	assert.Equal(t, int64(7), a.Startms)
	assert.Equal(t, 5, a.Elapsed_ms(clk))
}

func TestManualclockStep(t *testing.T) {
	clk := &Manualclock_t{Step: 10}
	assert.Equal(t, 0, clk.Now_us())
	assert.Equal(t, 10, clk.Now_us())
	clk.Advance(time.Millisecond)
	assert.Equal(t, 1020, clk.Now_us())
	assert.Panics(t, func() { clk.Advance(-1) })
}

func TestHostclockMonotonic(t *testing.T) {
	clk := Mkhostclock()
	a := clk.Now_us()
	b := clk.Now_us()
	assert.GreaterOrEqual(t, b, a)
	assert.GreaterOrEqual(t, a, 0)
}

func TestRusage(t *testing.T) {
	a := Mkaccnt()
	a.Utadd(2_500_000_000)
	a.Systadd(1_000)
	b := Mkaccnt()
	b.Systadd(3_000_000)
	a.Add(b)

	ru := a.Fetch()
	require.Len(t, ru, 32)
	assert.Equal(t, 2, util.Readn(ru, 8, 0))
	assert.Equal(t, 500000, util.Readn(ru, 8, 8))
	assert.Equal(t, 0, util.Readn(ru, 8, 16))
	assert.Equal(t, 3001, util.Readn(ru, 8, 24))
}

func TestFinish(t *testing.T) {
	clk := &Manualclock_t{}
	a := Mkaccnt()
	st := clk.Now_us()
	clk.Advance(3 * time.Microsecond)
	assert.Equal(t, 3, a.Finish(clk, st))
	assert.Equal(t, int64(3000), a.Sysns)
}
