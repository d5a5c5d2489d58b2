package vm

import "encoding/binary"
import "sync"

import "github.com/OneOfOne/xxhash"

import "ukern/src/defs"
import "ukern/src/limits"
import "ukern/src/mem"
import "ukern/src/util"

/// Vm_t represents a task address space. The mutex protects
/// modifications to Vmregion, the page table, and the program break.
type Vm_t struct {
	// lock for vmregion, pmap, heap
	sync.Mutex

	Vmregion Vmregion_t

	// root page-table frame
	P_pmap mem.Pa_t

	// first byte of the heap; page aligned
	Heapbot int
	// current program break
	Curbrk int
	heap   *Vminfo_t

	pgfltaken bool
}

/// Mkvm allocates an empty address space whose program break starts at
/// heapbot.
func Mkvm(heapbot int) (*Vm_t, defs.Err_t) {
	if mem.Pa_t(heapbot)&mem.PGOFFSET != 0 || heapbot < 0 {
		panic("heap bottom must be aligned")
	}
	_, p_pmap, ok := mem.Physmem.Refpg_new()
	if !ok {
		return nil, -defs.ENOMEM
	}
	mem.Physmem.Refup(p_pmap)
	as := &Vm_t{}
	as.P_pmap = p_pmap
	as.Heapbot = heapbot
	as.Curbrk = heapbot
	return as, 0
}

/// Token returns the identifier of this address space's page table.
func (as *Vm_t) Token() Token_t {
	return Mktoken(as.P_pmap)
}

/// Lock_pmap acquires the address space mutex.
func (as *Vm_t) Lock_pmap() {
	as.Lock()
	as.pgfltaken = true
}

/// Unlock_pmap releases the address space mutex after page table
/// manipulation is complete.
func (as *Vm_t) Unlock_pmap() {
	as.pgfltaken = false
	as.Unlock()
}

/// Lockassert_pmap panics if the address space mutex is not held.
func (as *Vm_t) Lockassert_pmap() {
	if !as.pgfltaken {
		panic("pmap lock must be held")
	}
}

/// Userdmap8_inner returns a slice mapping of the user address at va
/// through the end of its page. When k2u is true the page must be
/// writable.
func (as *Vm_t) Userdmap8_inner(va int, k2u bool) ([]uint8, defs.Err_t) {
	as.Lockassert_pmap()
	return translate_page(as.Token(), va, k2u)
}

/// Userreadn reads n bytes from the user address va and returns the
/// value and any error encountered.
func (as *Vm_t) Userreadn(va, n int) (int, defs.Err_t) {
	as.Lock_pmap()
	defer as.Unlock_pmap()
	return Readn(as.Token(), va, n)
}

/// Userwriten writes n bytes of val to the user address va. It
/// returns an error code if the copy fails.
func (as *Vm_t) Userwriten(va, n, val int) defs.Err_t {
	as.Lock_pmap()
	defer as.Unlock_pmap()
	return Writen(as.Token(), va, n, val)
}

/// K2user copies src into the user virtual address space starting at
/// uva. The copy may be partial if the region is not fully mapped.
func (as *Vm_t) K2user(src []uint8, uva int) defs.Err_t {
	ub := Mkuserbuf(as, uva, len(src))
	_, err := ub.Uiowrite(src)
	return err
}

/// User2k copies len(dst) bytes from the user virtual address uva
/// into dst. It returns an error code if the read fails.
func (as *Vm_t) User2k(dst []uint8, uva int) defs.Err_t {
	ub := Mkuserbuf(as, uva, len(dst))
	_, err := ub.Uioread(dst)
	return err
}

// _vrange converts a byte range to pages, rejecting ranges that leave
// user space.
func _vrange(start, length int) (Vpn_t, int, defs.Err_t) {
	if start < 0 || length <= 0 {
		return 0, 0, -defs.EINVAL
	}
	umax := limits.Syslimit.Uservamax
	if start >= umax || length > umax-start {
		return 0, 0, -defs.EINVAL
	}
	pglen := util.Roundup(length, mem.PGSIZE) >> mem.PGSHIFT
	if Va2vpn(start)+Vpn_t(pglen) > Va2vpn(umax) {
		return 0, 0, -defs.EINVAL
	}
	return Va2vpn(start), pglen, 0
}

// _populate backs pages [start, start+n) with fresh zeroed frames and
// installs leaf entries carrying perms. Either every page is mapped or
// nothing is.
func (as *Vm_t) _populate(start Vpn_t, n int, perms mem.Pa_t) ([]mem.Pa_t, defs.Err_t) {
	as.Lockassert_pmap()
	frames := make([]mem.Pa_t, 0, n)
	drop := func() {
		for _, p_pg := range frames {
			mem.Physmem.Refdown(p_pg)
		}
	}
	for i := 0; i < n; i++ {
		_, p_pg, ok := mem.Physmem.Refpg_new()
		if !ok {
			drop()
			return nil, -defs.ENOMEM
		}
		mem.Physmem.Refup(p_pg)
		frames = append(frames, p_pg)
	}
	for i, p_pg := range frames {
		pte, err := pmap_walk(as.P_pmap, start+Vpn_t(i), true)
		if err != 0 {
			as._unmap_ptes(start, i)
			drop()
			return nil, err
		}
		// XXXPANIC
		if pte.get()&mem.PTE_V != 0 {
			panic("pte not empty")
		}
		pte.set(mkpte(p_pg, perms|mem.PTE_V))
	}
	return frames, 0
}

// _unmap_ptes clears the leaf entries of n pages from start.
func (as *Vm_t) _unmap_ptes(start Vpn_t, n int) {
	for i := 0; i < n; i++ {
		pte, err := pmap_walk(as.P_pmap, start+Vpn_t(i), false)
		if err != 0 || pte.get()&mem.PTE_V == 0 {
			panic("area page not mapped")
		}
		pte.set(0)
	}
}

// _depopulate unmaps the pages from start backed by frames and releases
// the frames.
func (as *Vm_t) _depopulate(start Vpn_t, frames []mem.Pa_t) {
	as.Lockassert_pmap()
	as._unmap_ptes(start, len(frames))
	for _, p_pg := range frames {
		mem.Physmem.Refdown(p_pg)
	}
}

func (as *Vm_t) _mkvmi(mt mtype_t, start Vpn_t, pglen int, perms mem.Pa_t) (*Vminfo_t, defs.Err_t) {
	if pglen <= 0 {
		panic("bad vmi len")
	}
	if perms&^mem.PERM_MASK != 0 || perms&mem.PTE_U == 0 {
		panic("bad perms")
	}
	if as.Vmregion.Overlaps(start, start+Vpn_t(pglen)) {
		return nil, -defs.EEXIST
	}
	frames, err := as._populate(start, pglen, perms)
	if err != 0 {
		return nil, err
	}
	ret := &Vminfo_t{}
	ret.Mtype = mt
	ret.Pgn = start
	ret.Pglen = pglen
	ret.Perms = perms
	ret.frames = frames
	as.Vmregion.insert(ret)
	return ret, 0
}

/// Vmadd_anon maps a zero-filled area at [start, start+len) with perms.
/// The loader uses it for stacks and data. start must be page aligned.
func (as *Vm_t) Vmadd_anon(start, len int, perms mem.Pa_t) defs.Err_t {
	if mem.Pa_t(start)&mem.PGOFFSET != 0 {
		panic("start must be aligned")
	}
	pgn, pglen, err := _vrange(start, len)
	if err != 0 {
		return err
	}
	as.Lock_pmap()
	defer as.Unlock_pmap()
	_, err = as._mkvmi(VANON, pgn, pglen, perms|mem.PTE_U)
	return err
}

/// Mmap maps len bytes at the page aligned address start with the
/// access requested by port (bit 0 read, bit 1 write, bit 2 execute).
/// The mapping is always user accessible. If any page of the range is
/// already mapped nothing changes and -EEXIST is returned.
func (as *Vm_t) Mmap(start, len, port int) defs.Err_t {
	if start < 0 || mem.Pa_t(start)&mem.PGOFFSET != 0 {
		return -defs.EINVAL
	}
	if port&^defs.PROT_MASK != 0 || port&defs.PROT_MASK == 0 {
		return -defs.EINVAL
	}
	pgn, pglen, err := _vrange(start, len)
	if err != 0 {
		return err
	}
	perms := mem.Pa_t(port)<<1 | mem.PTE_U

	as.Lock_pmap()
	defer as.Unlock_pmap()
	_, err = as._mkvmi(VMMAP, pgn, pglen, perms)
	return err
}

/// Munmap removes every page of [start, start+len). Each page must
/// belong to an area created by Mmap; the range may span several areas
/// and may cut an area in two. Otherwise nothing changes.
func (as *Vm_t) Munmap(start, len int) defs.Err_t {
	if start < 0 || mem.Pa_t(start)&mem.PGOFFSET != 0 {
		return -defs.EINVAL
	}
	s, pglen, err := _vrange(start, len)
	if err != 0 {
		return err
	}
	e := s + Vpn_t(pglen)

	as.Lock_pmap()
	defer as.Unlock_pmap()
	if !as.Vmregion.covered(s, e, VMMAP) {
		return -defs.EINVAL
	}
	for _, vmi := range as.Vmregion.overlapping(s, e) {
		a := max(s, vmi.Pgn)
		b := min(e, vmi.End())
		lo := int(a - vmi.Pgn)
		hi := int(b - vmi.Pgn)
		as._depopulate(a, vmi.frames[lo:hi])
		as.Vmregion.remove(vmi)
		if lo > 0 {
			as.Vmregion.insert(vmi.slice(0, lo))
		}
		if hi < vmi.Pglen {
			as.Vmregion.insert(vmi.slice(hi, vmi.Pglen))
		}
	}
	return 0
}

/// Brk moves the program break by delta bytes and returns the old
/// break. The break never drops below Heapbot; growth that would
/// collide with another area or exceed the heap limit fails without
/// changing anything.
func (as *Vm_t) Brk(delta int) (int, defs.Err_t) {
	as.Lock_pmap()
	defer as.Unlock_pmap()

	old := as.Curbrk
	nbrk := old + delta
	if nbrk < as.Heapbot {
		return 0, -defs.EINVAL
	}
	if nbrk > limits.Syslimit.Uservamax {
		return 0, -defs.ENOMEM
	}
	bot := Va2vpn(as.Heapbot)
	curend := Va2vpn(util.Roundup(old, mem.PGSIZE))
	newend := Va2vpn(util.Roundup(nbrk, mem.PGSIZE))

	switch {
	case newend > curend:
		if int(newend-bot) > limits.Syslimit.Heappages {
			return 0, -defs.ENOMEM
		}
		if as.Vmregion.Overlaps(curend, newend) {
			return 0, -defs.ENOMEM
		}
		n := int(newend - curend)
		perms := mem.PTE_R | mem.PTE_W | mem.PTE_U
		frames, err := as._populate(curend, n, perms)
		if err != 0 {
			return 0, err
		}
		if as.heap == nil {
			as.heap = &Vminfo_t{Mtype: VHEAP, Pgn: curend, Perms: perms}
			as.heap.Pglen = n
			as.heap.frames = frames
			as.Vmregion.insert(as.heap)
		} else {
			as.heap.Pglen += n
			as.heap.frames = append(as.heap.frames, frames...)
		}
	case newend < curend:
		keep := int(newend - as.heap.Pgn)
		as._depopulate(newend, as.heap.frames[keep:])
		as.heap.frames = as.heap.frames[:keep]
		as.heap.Pglen = keep
		if keep == 0 {
			as.Vmregion.remove(as.heap)
			as.heap = nil
		}
	}
	as.Curbrk = nbrk
	return old, 0
}

/// Uvmfree releases all user mappings and page tables associated
/// with this address space. The address space is unusable afterwards.
func (as *Vm_t) Uvmfree() {
	as.Lock_pmap()
	defer as.Unlock_pmap()
	as.Vmregion.Iter(func(vmi *Vminfo_t) bool {
		as._depopulate(vmi.Pgn, vmi.frames)
		return true
	})
	as.Vmregion.Clear()
	as.heap = nil
	pmap_free(as.P_pmap, 0)
	as.P_pmap = 0
}

/// Areas returns a copy of the areas in address order. The copies do
/// not own frames.
func (as *Vm_t) Areas() []Vminfo_t {
	as.Lock_pmap()
	defer as.Unlock_pmap()
	var ret []Vminfo_t
	as.Vmregion.Iter(func(vmi *Vminfo_t) bool {
		c := *vmi
		c.frames = nil
		ret = append(ret, c)
		return true
	})
	return ret
}

/// Fingerprint hashes the areas, the flags of every mapped page, and
/// the program break. Two address spaces with the same layout and
/// permissions hash equal regardless of which frames back them.
func (as *Vm_t) Fingerprint() uint64 {
	as.Lock_pmap()
	defer as.Unlock_pmap()
	h := xxhash.New64()
	var w [8]uint8
	put := func(v uint64) {
		binary.LittleEndian.PutUint64(w[:], v)
		h.Write(w[:])
	}
	put(uint64(as.Heapbot))
	put(uint64(as.Curbrk))
	as.Vmregion.Iter(func(vmi *Vminfo_t) bool {
		put(uint64(vmi.Mtype))
		put(uint64(vmi.Pgn))
		put(uint64(vmi.Pglen))
		put(uint64(vmi.Perms))
		for vpn := vmi.Pgn; vpn < vmi.End(); vpn++ {
			pte, ok := Pmap_lookup(as.P_pmap, vpn)
			if !ok || pte_pa(pte) != vmi.Frame(vpn) {
				panic("area page not mapped")
			}
			put(uint64(pte & mem.PTE_FLAGS))
		}
		return true
	})
	return h.Sum64()
}
