package accnt

import "sync"
import "sync/atomic"

import "ukern/src/util"

/**
 * Accnt_t accumulates per-task accounting information.
 *
 * Userns and Sysns store runtime in nanoseconds. Startms is the clock
 * reading, in milliseconds, taken when the task was first scheduled; it
 * is negative until then. The embedded mutex allows callers to take a
 * consistent snapshot of the fields when exporting usage statistics.
 */
type Accnt_t struct {
	/// Nanoseconds of user time consumed.
	Userns int64
	/// Nanoseconds of system time consumed.
	Sysns int64
	/// Milliseconds at first schedule, or -1.
	Startms int64
	/// Protects concurrent access when reporting usage data.
	sync.Mutex
}

/// Mkaccnt returns an accounting record for a task that has not run yet.
func Mkaccnt() *Accnt_t {
	return &Accnt_t{Startms: -1}
}

/// Utadd adds delta nanoseconds to the user-time counter.
///
/// @param delta Amount to add in nanoseconds.
func (a *Accnt_t) Utadd(delta int) {
	atomic.AddInt64(&a.Userns, int64(delta))
}

/// Systadd adds delta nanoseconds to the system-time counter.
///
/// @param delta Amount to add in nanoseconds.
func (a *Accnt_t) Systadd(delta int) {
	atomic.AddInt64(&a.Sysns, int64(delta))
}

/// Start records the first-schedule timestamp. Later calls have no
/// effect.
///
/// @param clk Clock to read.
func (a *Accnt_t) Start(clk Clock_i) {
	atomic.CompareAndSwapInt64(&a.Startms, -1, int64(Now_ms(clk)))
}

/// Started reports whether the task has been scheduled at least once.
func (a *Accnt_t) Started() bool {
	return atomic.LoadInt64(&a.Startms) >= 0
}

/// Elapsed_ms returns the milliseconds since the task was first
/// scheduled, or zero if it never was.
///
/// @param clk Clock to read.
func (a *Accnt_t) Elapsed_ms(clk Clock_i) int {
	st := atomic.LoadInt64(&a.Startms)
	if st < 0 {
		return 0
	}
	return Now_ms(clk) - int(st)
}

/// Finish finalizes accounting by adding time since @p inttime to system
/// time.
///
/// @param clk Clock to read.
/// @param inttime Start time for measuring final system usage in microseconds.
/// @return The clock reading used, in microseconds.
func (a *Accnt_t) Finish(clk Clock_i, inttime int) int {
	now := clk.Now_us()
	a.Systadd((now - inttime) * 1000)
	return now
}

/// Add merges another accounting record into this one.
///
/// @param n Record to merge.
func (a *Accnt_t) Add(n *Accnt_t) {
	a.Lock()
	a.Userns += n.Userns
	a.Sysns += n.Sysns
	a.Unlock()
}

/// Fetch returns a snapshot of the accounting information encoded as rusage.
///
/// This method locks the structure to produce a consistent view.
///
/// @return Serialized rusage structure.
func (a *Accnt_t) Fetch() []uint8 {
	a.Lock()
	ru := a.To_rusage()
	a.Unlock()
	return ru
}

/// To_rusage converts the accounting data into a byte slice formatted as two
/// timevals, user then system.
///
/// @return Byte slice suitable for copying to userspace.
func (a *Accnt_t) To_rusage() []uint8 {
	words := 4
	ret := make([]uint8, words*8)
	off := 0
	// user timeval
	s, us := Totv(int(a.Userns / 1000))
	util.Writen(ret, 8, off, s)
	off += 8
	util.Writen(ret, 8, off, us)
	off += 8
	// sys timeval
	s, us = Totv(int(a.Sysns / 1000))
	util.Writen(ret, 8, off, s)
	off += 8
	util.Writen(ret, 8, off, us)
	off += 8
	return ret
}

/// Totv splits a microsecond count into whole seconds and the remaining
/// microseconds.
func Totv(us int) (int, int) {
	return us / 1e6, us % 1e6
}
