package vm

import "fmt"

import "ukern/src/defs"
import "ukern/src/mem"
import "ukern/src/util"

// three level page tables with 512 eight byte entries per level (Sv39).
const (
	PGLEVELS  = 3
	PGENTRIES = 512
	PGIDXBITS = 9
)

/// SATP_SV39 is the mode field of a token naming an Sv39 page table.
const SATP_SV39 uint64 = 8 << 60

const satp_ppnmask uint64 = (1 << 44) - 1

/// Token_t identifies a page-table root the way the satp register does.
type Token_t uint64

/// Mktoken returns the token for the page table rooted at p_pmap.
func Mktoken(p_pmap mem.Pa_t) Token_t {
	return Token_t(SATP_SV39 | uint64(p_pmap.Ppn()))
}

/// Root returns the root page-table frame named by the token.
func (t Token_t) Root() (mem.Pa_t, bool) {
	if uint64(t)&^satp_ppnmask != SATP_SV39 {
		return 0, false
	}
	return mem.Pa_t(uint64(t)&satp_ppnmask) << mem.PGSHIFT, true
}

func (t Token_t) String() string {
	return fmt.Sprintf("%#x", uint64(t))
}

/// Vpn_t is a virtual page number.
type Vpn_t uintptr

/// Va2vpn returns the page containing va.
func Va2vpn(va int) Vpn_t {
	return Vpn_t(uintptr(va) >> mem.PGSHIFT)
}

/// Va returns the first address of the page.
func (v Vpn_t) Va() int {
	return int(uintptr(v) << mem.PGSHIFT)
}

func (v Vpn_t) indexes() [PGLEVELS]int {
	var idx [PGLEVELS]int
	n := uintptr(v)
	for i := PGLEVELS - 1; i >= 0; i-- {
		idx[i] = int(n & (PGENTRIES - 1))
		n >>= PGIDXBITS
	}
	return idx
}

func pte_pa(pte mem.Pa_t) mem.Pa_t {
	return (pte >> mem.PTE_PPNSHIFT) << mem.PGSHIFT
}

func mkpte(p_pg mem.Pa_t, flags mem.Pa_t) mem.Pa_t {
	return (p_pg>>mem.PGSHIFT)<<mem.PTE_PPNSHIFT | flags&mem.PTE_FLAGS
}

func isleaf(pte mem.Pa_t) bool {
	return pte&(mem.PTE_R|mem.PTE_W|mem.PTE_X) != 0
}

// pteref_t names one entry inside a page-table frame.
type pteref_t struct {
	pg  *mem.Bytepg_t
	off int
}

func (r pteref_t) get() mem.Pa_t {
	return mem.Pa_t(util.Readn(r.pg[:], 8, r.off))
}

func (r pteref_t) set(pte mem.Pa_t) {
	util.Writen(r.pg[:], 8, r.off, int(pte))
}

func entry(tbl mem.Pa_t, i int) pteref_t {
	return pteref_t{pg: mem.Physmem.Dmap(tbl), off: i * 8}
}

// pmap_walk returns the leaf entry for vpn in the table rooted at root. When
// create is set, missing intermediate tables are allocated; otherwise a
// missing table is -EFAULT. The leaf itself may be invalid.
func pmap_walk(root mem.Pa_t, vpn Vpn_t, create bool) (pteref_t, defs.Err_t) {
	idx := vpn.indexes()
	tbl := root
	for lvl := 0; lvl < PGLEVELS-1; lvl++ {
		r := entry(tbl, idx[lvl])
		pte := r.get()
		if pte&mem.PTE_V == 0 {
			if !create {
				return pteref_t{}, -defs.EFAULT
			}
			_, p_tbl, ok := mem.Physmem.Refpg_new()
			if !ok {
				return pteref_t{}, -defs.ENOMEM
			}
			mem.Physmem.Refup(p_tbl)
			pte = mkpte(p_tbl, mem.PTE_V)
			r.set(pte)
		} else if isleaf(pte) {
			// superpages are never installed for user memory
			return pteref_t{}, -defs.EFAULT
		}
		tbl = pte_pa(pte)
	}
	return entry(tbl, idx[PGLEVELS-1]), 0
}

/// Pmap_lookup returns the leaf entry for vpn without allocating tables.
func Pmap_lookup(root mem.Pa_t, vpn Vpn_t) (mem.Pa_t, bool) {
	r, err := pmap_walk(root, vpn, false)
	if err != 0 {
		return 0, false
	}
	pte := r.get()
	return pte, pte&mem.PTE_V != 0
}

// pmap_free releases the table frames of the tree rooted at tbl. Leaf
// entries must already be cleared; data frames belong to areas.
func pmap_free(tbl mem.Pa_t, lvl int) {
	if lvl < PGLEVELS-1 {
		for i := 0; i < PGENTRIES; i++ {
			pte := entry(tbl, i).get()
			if pte&mem.PTE_V == 0 {
				continue
			}
			if isleaf(pte) {
				panic("leaf in directory")
			}
			pmap_free(pte_pa(pte), lvl+1)
		}
	} else {
		for i := 0; i < PGENTRIES; i++ {
			if entry(tbl, i).get()&mem.PTE_V != 0 {
				panic("freeing mapped page table")
			}
		}
	}
	mem.Physmem.Refdown(tbl)
}
