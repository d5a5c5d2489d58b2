package limits

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSysatomic(t *testing.T) {
	var s Sysatomic_t = 2
	hits := Lhits
	assert.True(t, s.Take())
	assert.True(t, s.Taken(1))
	assert.False(t, s.Take())
	assert.Equal(t, int64(0), s.Remain())
	assert.Equal(t, hits+1, Lhits)
	s.Give()
	s.Given(2)
	assert.Equal(t, int64(3), s.Remain())
}

func TestDefaults(t *testing.T) {
	l := MkSysLimit()
	assert.Equal(t, int64(64), l.Tasks.Remain())
	assert.Equal(t, 1<<38, l.Uservamax)
	assert.Positive(t, l.Stackpages)
}
