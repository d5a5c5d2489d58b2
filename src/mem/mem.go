package mem

import "fmt"
import "sync"

import "github.com/go-errors/errors"

/// PGSHIFT is the base-2 exponent for the page size.
const PGSHIFT uint = 12

/// PGSIZE is the size of a single page in bytes.
const PGSIZE int = 1 << PGSHIFT

/// PGOFFSET masks offsets within a page.
const PGOFFSET Pa_t = 0xfff

/// PGMASK masks the page number of an address.
const PGMASK Pa_t = ^(PGOFFSET)

/// PTE_V marks an entry valid.
const PTE_V Pa_t = 1 << 0

/// PTE_R marks a page readable.
const PTE_R Pa_t = 1 << 1

/// PTE_W marks a page writable.
const PTE_W Pa_t = 1 << 2

/// PTE_X marks a page executable.
const PTE_X Pa_t = 1 << 3

/// PTE_U marks a page user-accessible.
const PTE_U Pa_t = 1 << 4

/// PTE_G marks a global mapping.
const PTE_G Pa_t = 1 << 5

/// PTE_A is set once the page has been accessed.
const PTE_A Pa_t = 1 << 6

/// PTE_D is set once the page has been written.
const PTE_D Pa_t = 1 << 7

/// PTE_FLAGS masks the flag bits of an entry.
const PTE_FLAGS Pa_t = 0x3ff

/// PTE_PPNSHIFT is the position of the physical page number in an entry.
const PTE_PPNSHIFT uint = 10

/// PERM_MASK are the permission bits a mapping may carry.
const PERM_MASK Pa_t = PTE_R | PTE_W | PTE_X | PTE_U

/// PHYSBASE is the physical address of the first frame.
const PHYSBASE Pa_t = 0x80000000

/// Pa_t represents a physical address.
type Pa_t uintptr

/// Bytepg_t is a byte addressed page.
type Bytepg_t [PGSIZE]uint8

/// Ppn returns the physical page number of p.
func (p Pa_t) Ppn() uintptr {
	return uintptr(p >> PGSHIFT)
}

/// Physpg_t describes a single physical frame.
type Physpg_t struct {
	Refcnt int32
	// index into pgs of next page on free list
	nexti uint32
}

/// Physmem_t manages all simulated physical memory. Frames live in one
/// host arena; a frame's physical address is PHYSBASE plus its offset.
type Physmem_t struct {
	Pgs   []Physpg_t
	arena []uint8
	// index into pgs of first free pg
	freei   uint32
	freelen int32
	sync.Mutex
}

const nilpg = ^uint32(0)

func (phys *Physmem_t) _pg2idx(p_pg Pa_t) uint32 {
	if p_pg < PHYSBASE {
		panic(fmt.Sprintf("bad physical address %#x", p_pg))
	}
	idx := uint32((p_pg - PHYSBASE) >> PGSHIFT)
	if int(idx) >= len(phys.Pgs) {
		panic(fmt.Sprintf("bad physical address %#x", p_pg))
	}
	return idx
}

func (phys *Physmem_t) _idx2pg(idx uint32) Pa_t {
	return PHYSBASE + Pa_t(idx)<<PGSHIFT
}

/// Refcnt returns the current reference count of a page.
func (phys *Physmem_t) Refcnt(p_pg Pa_t) int {
	phys.Lock()
	defer phys.Unlock()
	return int(phys.Pgs[phys._pg2idx(p_pg)].Refcnt)
}

/// Refup increments the reference count of a page.
func (phys *Physmem_t) Refup(p_pg Pa_t) {
	phys.Lock()
	defer phys.Unlock()
	pg := &phys.Pgs[phys._pg2idx(p_pg)]
	pg.Refcnt++
	// XXXPANIC
	if pg.Refcnt <= 0 {
		panic("wut")
	}
}

/// Refdown decrements the reference count of a page.
/// It returns true when the page is freed.
func (phys *Physmem_t) Refdown(p_pg Pa_t) bool {
	phys.Lock()
	defer phys.Unlock()
	idx := phys._pg2idx(p_pg)
	pg := &phys.Pgs[idx]
	pg.Refcnt--
	// XXXPANIC
	if pg.Refcnt < 0 {
		panic("wut")
	}
	if pg.Refcnt != 0 {
		return false
	}
	pg.nexti = phys.freei
	phys.freei = idx
	phys.freelen++
	return true
}

/// Refpg_new allocates a zeroed page and returns its mapping and address.
/// The returned page's refcount is not incremented.
func (phys *Physmem_t) Refpg_new() (*Bytepg_t, Pa_t, bool) {
	phys.Lock()
	ff := phys.freei
	if ff == nilpg {
		phys.Unlock()
		return nil, 0, false
	}
	if phys.Pgs[ff].Refcnt != 0 {
		panic("free page has references")
	}
	phys.freei = phys.Pgs[ff].nexti
	phys.freelen--
	if phys.freelen < 0 {
		panic("no")
	}
	phys.Unlock()

	p_pg := phys._idx2pg(ff)
	pg := phys.Dmap(p_pg)
	*pg = Bytepg_t{}
	return pg, p_pg, true
}

/// Dmap returns the kernel view of the page containing p.
func (phys *Physmem_t) Dmap(p Pa_t) *Bytepg_t {
	idx := phys._pg2idx(p)
	off := int(idx) << PGSHIFT
	return (*Bytepg_t)(phys.arena[off : off+PGSIZE])
}

/// Dmap8 returns a byte slice mapped to the given physical address through
/// the end of its page.
func (phys *Physmem_t) Dmap8(p Pa_t) []uint8 {
	pg := phys.Dmap(p)
	off := p & PGOFFSET
	return pg[off:]
}

/// Pgcount reports the number of free frames.
func (phys *Physmem_t) Pgcount() int {
	phys.Lock()
	defer phys.Unlock()
	return int(phys.freelen)
}

/// Npages reports the total number of frames.
func (phys *Physmem_t) Npages() int {
	return len(phys.Pgs)
}

/// Close releases the arena. No frame may be used afterwards.
func (phys *Physmem_t) Close() error {
	phys.Lock()
	defer phys.Unlock()
	if phys.arena == nil {
		return nil
	}
	err := free_arena(phys.arena)
	phys.arena = nil
	phys.Pgs = nil
	phys.freei = nilpg
	phys.freelen = 0
	return err
}

/// Physmem is the global physical memory allocator instance.
var Physmem = &Physmem_t{freei: nilpg}

/// Phys_init reserves respgs frames and installs them as the global physical
/// memory allocator. Any previous allocator is closed.
func Phys_init(respgs int) (*Physmem_t, error) {
	if respgs <= 0 || respgs >= int(nilpg) {
		return nil, errors.Errorf("bad physical page count %d", respgs)
	}
	arena, err := alloc_arena(respgs * PGSIZE)
	if err != nil {
		return nil, err
	}
	phys := &Physmem_t{}
	phys.arena = arena
	phys.Pgs = make([]Physpg_t, respgs)
	phys.freei = nilpg
	for i := respgs - 1; i >= 0; i-- {
		phys.Pgs[i].nexti = phys.freei
		phys.freei = uint32(i)
	}
	phys.freelen = int32(respgs)

	old := Physmem
	Physmem = phys
	if err := old.Close(); err != nil {
		return phys, err
	}
	return phys, nil
}
