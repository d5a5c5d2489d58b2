package vm

import "ukern/src/defs"
import "ukern/src/limits"
import "ukern/src/mem"
import "ukern/src/util"

/// Uref_t is a kernel reference to exactly one scalar in user memory. It
/// aliases the frame backing the scalar, so writes are visible to the task.
type Uref_t struct {
	b []uint8
}

/// Len returns the size of the scalar in bytes.
func (r Uref_t) Len() int {
	return len(r.b)
}

/// Readn loads the scalar.
func (r Uref_t) Readn() int {
	return util.Readn(r.b, len(r.b), 0)
}

/// Writen stores the low Len() bytes of val.
func (r Uref_t) Writen(val int) {
	util.Writen(r.b, len(r.b), 0, val)
}

// translate_page resolves va through the table named by token and returns
// the rest of its page. Access requires PTE_U plus PTE_W for writes or PTE_R
// for reads; anything else is -EFAULT.
func translate_page(token Token_t, va int, write bool) ([]uint8, defs.Err_t) {
	if va < 0 || va >= limits.Syslimit.Uservamax {
		return nil, -defs.EFAULT
	}
	root, ok := token.Root()
	if !ok {
		return nil, -defs.EFAULT
	}
	pte, ok := Pmap_lookup(root, Va2vpn(va))
	if !ok || pte&mem.PTE_U == 0 {
		return nil, -defs.EFAULT
	}
	if write && pte&mem.PTE_W == 0 {
		return nil, -defs.EFAULT
	}
	if !write && pte&mem.PTE_R == 0 {
		return nil, -defs.EFAULT
	}
	voff := mem.Pa_t(va) & mem.PGOFFSET
	return mem.Physmem.Dmap8(pte_pa(pte) + voff), 0
}

/// Translate returns a reference to the n byte scalar at user address va in
/// the address space named by token. It must be called once per scalar: two
/// fields of one user structure may live in frames that are not adjacent.
/// A scalar that crosses a page boundary cannot be named by one reference
/// and yields -EFAULT; use Writen or Readn for those.
func Translate(token Token_t, va, n int, write bool) (Uref_t, defs.Err_t) {
	switch n {
	case 1, 2, 4, 8:
	default:
		return Uref_t{}, -defs.EINVAL
	}
	b, err := translate_page(token, va, write)
	if err != 0 {
		return Uref_t{}, err
	}
	if len(b) < n {
		return Uref_t{}, -defs.EFAULT
	}
	return Uref_t{b: b[:n]}, 0
}

/// Writen stores the n byte scalar val at user address va. Each page the
/// scalar touches is translated on its own, so a scalar split across two
/// pages lands in both frames. Nothing is written unless every piece
/// translates.
func Writen(token Token_t, va, n, val int) defs.Err_t {
	if n > 8 {
		panic("large n")
	}
	var pieces [2][]uint8
	np := 0
	for i := 0; i < n; i += len(pieces[np-1]) {
		t, err := translate_page(token, va+i, true)
		if err != 0 {
			return err
		}
		pieces[np] = t[:util.Min(len(t), n-i)]
		np++
	}
	off := 0
	for _, dst := range pieces[:np] {
		for j := range dst {
			dst[j] = uint8(val >> (8 * uint(off+j)))
		}
		off += len(dst)
	}
	return 0
}

/// Readn loads the n byte scalar at user address va, translating each page
/// the scalar touches.
func Readn(token Token_t, va, n int) (int, defs.Err_t) {
	if n > 8 {
		panic("large n")
	}
	var ret int
	var src []uint8
	for i := 0; i < n; i += len(src) {
		t, err := translate_page(token, va+i, false)
		if err != 0 {
			return 0, err
		}
		src = t[:util.Min(len(t), n-i)]
		for j, c := range src {
			ret |= int(c) << (8 * uint(i+j))
		}
	}
	return ret, 0
}
