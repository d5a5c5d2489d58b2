package vm

import "io"

import "ukern/src/defs"

// / Userbuf_t assists reading and writing a run of user memory. Each
// / transfer holds the address space lock so mappings cannot change
// / under it.
type Userbuf_t struct {
	userva int
	len    int
	// 0 <= off <= len
	off int
	as  *Vm_t
}

// / Mkuserbuf returns a buffer over len bytes at uva in as.
func Mkuserbuf(as *Vm_t, uva, len int) *Userbuf_t {
	ub := &Userbuf_t{}
	ub.ub_init(as, uva, len)
	return ub
}

func (ub *Userbuf_t) ub_init(as *Vm_t, uva, len int) {
	if len < 0 {
		panic("negative length")
	}
	ub.userva = uva
	ub.len = len
	ub.off = 0
	ub.as = as
}

// / Remain returns the number of untransferred bytes left in the buffer.
func (ub *Userbuf_t) Remain() int {
	return ub.len - ub.off
}

// / Uioread copies data from user memory into dst and returns the
// / number of bytes read along with an error code.
func (ub *Userbuf_t) Uioread(dst []uint8) (int, defs.Err_t) {
	ub.as.Lock_pmap()
	a, b := ub._tx(dst, false)
	ub.as.Unlock_pmap()
	return a, b
}

// / Uiowrite copies data from src into user memory and returns the
// / number of bytes written along with an error code.
func (ub *Userbuf_t) Uiowrite(src []uint8) (int, defs.Err_t) {
	ub.as.Lock_pmap()
	a, b := ub._tx(src, true)
	ub.as.Unlock_pmap()
	return a, b
}

// copies the min of either the provided buffer or the remaining length.
// on a fault the offset stays at the faulting byte so the transfer can be
// retried.
func (ub *Userbuf_t) _tx(buf []uint8, write bool) (int, defs.Err_t) {
	ret := 0
	for len(buf) != 0 && ub.off != ub.len {
		va := ub.userva + ub.off
		ubuf, err := ub.as.Userdmap8_inner(va, write)
		if err != 0 {
			return ret, err
		}
		if left := ub.len - ub.off; len(ubuf) > left {
			ubuf = ubuf[:left]
		}
		var c int
		if write {
			c = copy(ubuf, buf)
		} else {
			c = copy(buf, ubuf)
		}
		buf = buf[c:]
		ub.off += c
		ret += c
	}
	return ret, 0
}

// / Uerr_t carries a kernel error number through io interfaces.
type Uerr_t struct {
	Err defs.Err_t
}

func (e *Uerr_t) Error() string {
	return "user copy: " + e.Err.String()
}

// / Read implements io.Reader over the user buffer.
func (ub *Userbuf_t) Read(p []uint8) (int, error) {
	if ub.Remain() == 0 {
		return 0, io.EOF
	}
	n, err := ub.Uioread(p)
	if err != 0 {
		return n, &Uerr_t{Err: err}
	}
	return n, nil
}
