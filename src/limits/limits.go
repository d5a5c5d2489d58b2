package limits

import "sync/atomic"

/// Lhits counts limit hits.
var Lhits int64

/// Sysatomic_t is a numeric limit that can be atomically updated.
type Sysatomic_t int64

/// Syslimit_t tracks system wide resource limits.
type Syslimit_t struct {
	// physical frames backing user pages and page tables
	Physpages int
	// live tasks; taken at spawn, given back at exit
	Tasks Sysatomic_t
	// maximum pages a single program break may cover
	Heappages int
	// pages in each task's user stack
	Stackpages int
	// exclusive upper bound of user virtual addresses
	Uservamax int
}

/// Syslimit describes the configured system wide limits.
var Syslimit *Syslimit_t = MkSysLimit()

/// MkSysLimit returns a pointer to the default set of limits.
func MkSysLimit() *Syslimit_t {
	return &Syslimit_t{
		// 32MB of frames
		Physpages:  1 << 13,
		Tasks:      64,
		Heappages:  1 << 10,
		Stackpages: 2,
		// Sv39 lower half
		Uservamax: 1 << 38,
	}
}

/// Given increases the limit by the provided amount.
func (s *Sysatomic_t) Given(_n uint) {
	n := int64(_n)
	if n < 0 {
		panic("too mighty")
	}
	atomic.AddInt64((*int64)(s), n)
}

/// Taken tries to decrement the limit by the provided amount.
/// It returns true on success.
func (s *Sysatomic_t) Taken(_n uint) bool {
	n := int64(_n)
	if n < 0 {
		panic("too mighty")
	}
	g := atomic.AddInt64((*int64)(s), -n)
	if g >= 0 {
		return true
	}
	atomic.AddInt64((*int64)(s), n)
	atomic.AddInt64(&Lhits, 1)
	return false
}

/// Take decrements the limit and reports whether it succeeded.
func (s *Sysatomic_t) Take() bool {
	return s.Taken(1)
}

/// Give increments the limit by one.
func (s *Sysatomic_t) Give() {
	s.Given(1)
}

/// Remain returns the amount left before the limit is hit.
func (s *Sysatomic_t) Remain() int64 {
	return atomic.LoadInt64((*int64)(s))
}
