package accnt

import "sync/atomic"
import "time"

/// Clock_i is the monotonic timer the kernel reads.
type Clock_i interface {
	/// Now_us returns microseconds since boot. It never decreases.
	Now_us() int
}

/// Now_ms returns the clock reading in milliseconds.
func Now_ms(clk Clock_i) int {
	return clk.Now_us() / 1000
}

/// Hostclock_t reads the host's monotonic clock.
type Hostclock_t struct {
	boot time.Time
}

/// Mkhostclock returns a clock that reads zero now.
func Mkhostclock() *Hostclock_t {
	return &Hostclock_t{boot: time.Now()}
}

func (c *Hostclock_t) Now_us() int {
	return int(time.Since(c.boot).Microseconds())
}

/// Manualclock_t only moves when told to. Step, if nonzero, is added
/// after every reading so that successive readings differ.
type Manualclock_t struct {
	us   int64
	Step int64
}

func (c *Manualclock_t) Now_us() int {
	return int(atomic.AddInt64(&c.us, c.Step) - c.Step)
}

/// Advance moves the clock forward by d.
func (c *Manualclock_t) Advance(d time.Duration) {
	if d < 0 {
		panic("clock moves forward")
	}
	atomic.AddInt64(&c.us, d.Microseconds())
}
