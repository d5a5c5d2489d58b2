package vm

import "sort"

import "ukern/src/mem"

type mtype_t int

const (
	// established by the loader: stack, data
	VANON mtype_t = iota
	// created by mmap
	VMMAP
	// the program break
	VHEAP
)

func (m mtype_t) String() string {
	switch m {
	case VANON:
		return "anon"
	case VMMAP:
		return "mmap"
	case VHEAP:
		return "heap"
	}
	return "?"
}

/// Vminfo_t describes one area: a contiguous, permission-tagged run of
/// pages and the frame that backs each of them.
type Vminfo_t struct {
	Mtype mtype_t
	Pgn   Vpn_t
	Pglen int
	Perms mem.Pa_t
	// frames[i] backs page Pgn+i
	frames []mem.Pa_t
}

/// End returns the first page past the area.
func (vmi *Vminfo_t) End() Vpn_t {
	return vmi.Pgn + Vpn_t(vmi.Pglen)
}

/// Contains reports whether vpn lies in the area.
func (vmi *Vminfo_t) Contains(vpn Vpn_t) bool {
	return vpn >= vmi.Pgn && vpn < vmi.End()
}

/// Frame returns the frame backing vpn, which must lie in the area.
func (vmi *Vminfo_t) Frame(vpn Vpn_t) mem.Pa_t {
	if !vmi.Contains(vpn) {
		panic("page not in area")
	}
	return vmi.frames[vpn-vmi.Pgn]
}

// slice returns a new area holding pages [lo, hi) of vmi.
func (vmi *Vminfo_t) slice(lo, hi int) *Vminfo_t {
	ret := &Vminfo_t{}
	ret.Mtype = vmi.Mtype
	ret.Pgn = vmi.Pgn + Vpn_t(lo)
	ret.Pglen = hi - lo
	ret.Perms = vmi.Perms
	ret.frames = append([]mem.Pa_t(nil), vmi.frames[lo:hi]...)
	return ret
}

/// Vmregion_t keeps the areas of an address space ordered by first page.
/// No two areas share a page.
type Vmregion_t struct {
	areas []*Vminfo_t
}

// index of the first area ending after vpn
func (vr *Vmregion_t) _search(vpn Vpn_t) int {
	return sort.Search(len(vr.areas), func(i int) bool {
		return vr.areas[i].End() > vpn
	})
}

/// Lookup returns the area containing the user address va.
func (vr *Vmregion_t) Lookup(va uintptr) (*Vminfo_t, bool) {
	vpn := Vpn_t(va >> mem.PGSHIFT)
	i := vr._search(vpn)
	if i < len(vr.areas) && vr.areas[i].Contains(vpn) {
		return vr.areas[i], true
	}
	return nil, false
}

// overlapping returns the areas sharing a page with [start, end), in order.
// The returned slice is a copy.
func (vr *Vmregion_t) overlapping(start, end Vpn_t) []*Vminfo_t {
	var ret []*Vminfo_t
	for i := vr._search(start); i < len(vr.areas); i++ {
		if vr.areas[i].Pgn >= end {
			break
		}
		ret = append(ret, vr.areas[i])
	}
	return ret
}

/// Overlaps reports whether any page of [start, end) is in an area.
func (vr *Vmregion_t) Overlaps(start, end Vpn_t) bool {
	i := vr._search(start)
	return i < len(vr.areas) && vr.areas[i].Pgn < end
}

// covered reports whether every page of [start, end) lies in an area of
// type mt.
func (vr *Vmregion_t) covered(start, end Vpn_t, mt mtype_t) bool {
	next := start
	for _, vmi := range vr.overlapping(start, end) {
		if vmi.Pgn > next || vmi.Mtype != mt {
			return false
		}
		next = vmi.End()
	}
	return next >= end
}

func (vr *Vmregion_t) insert(vmi *Vminfo_t) {
	if vmi.Pglen <= 0 {
		panic("empty area")
	}
	if vr.Overlaps(vmi.Pgn, vmi.End()) {
		panic("overlapping area")
	}
	i := vr._search(vmi.Pgn)
	vr.areas = append(vr.areas, nil)
	copy(vr.areas[i+1:], vr.areas[i:])
	vr.areas[i] = vmi
}

func (vr *Vmregion_t) remove(vmi *Vminfo_t) {
	for i, a := range vr.areas {
		if a == vmi {
			vr.areas = append(vr.areas[:i], vr.areas[i+1:]...)
			return
		}
	}
	panic("no such area")
}

/// Len returns the number of areas.
func (vr *Vmregion_t) Len() int {
	return len(vr.areas)
}

/// Iter calls f on each area in address order until f returns false.
func (vr *Vmregion_t) Iter(f func(*Vminfo_t) bool) {
	for _, vmi := range vr.areas {
		if !f(vmi) {
			return
		}
	}
}

/// Clear drops every area. Frames are not released.
func (vr *Vmregion_t) Clear() {
	vr.areas = nil
}
