// Package memory assigns tape cells to variables and tracks the position of
// the data pointer while code is emitted.
package memory

import (
	"fmt"
	"sort"
	"strings"
)

// Region is an inclusive range of tape cells.
type Region struct {
	Start int
	End   int
}

// Len returns the number of cells in the region.
func (r Region) Len() int { return r.End - r.Start + 1 }

// Contains reports whether addr lies in the region.
func (r Region) Contains(addr int) bool { return addr >= r.Start && addr <= r.End }

// Overlaps reports whether two regions share a cell.
func (r Region) Overlaps(o Region) bool { return r.Start <= o.End && o.Start <= r.End }

func (r Region) String() string { return fmt.Sprintf("[%d,%d]", r.Start, r.End) }

// Allocator hands out disjoint regions of the tape and remembers where the
// data pointer is.
type Allocator struct {
	live    []Region
	pointer int
	peak    int
}

// New returns an allocator with an empty tape and the pointer on cell 0.
func New() *Allocator {
	return &Allocator{}
}

// Allocate reserves length consecutive cells. The first gap between live
// regions that fits is used, including the gap before the first region;
// otherwise the region starts right after the last live region.
func (a *Allocator) Allocate(length int) Region {
	if length < 1 {
		length = 1
	}
	sort.Slice(a.live, func(i, j int) bool { return a.live[i].Start < a.live[j].Start })

	next := 0
	for _, r := range a.live {
		if r.Start-next >= length {
			break
		}
		next = max(next, r.End+1)
	}

	region := Region{Start: next, End: next + length - 1}
	a.live = append(a.live, region)
	a.peak = max(a.peak, region.End+1)
	return region
}

// Release frees a region previously returned by Allocate. It reports whether
// the region was live.
func (a *Allocator) Release(r Region) bool {
	for i, l := range a.live {
		if l == r {
			a.live = append(a.live[:i], a.live[i+1:]...)
			return true
		}
	}
	return false
}

// Live returns the live regions ordered by start.
func (a *Allocator) Live() []Region {
	out := append([]Region(nil), a.live...)
	sort.Slice(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out
}

// Peak is the number of cells ever needed, i.e. one past the highest cell
// allocated so far.
func (a *Allocator) Peak() int { return a.peak }

// Pointer returns the tracked data pointer position.
func (a *Allocator) Pointer() int { return a.pointer }

// MoveTo returns the instructions that bring the pointer from its current
// position to addr and records the new position.
func (a *Allocator) MoveTo(addr int) string {
	delta := addr - a.pointer
	a.pointer = addr
	switch {
	case delta > 0:
		return strings.Repeat(">", delta)
	case delta < 0:
		return strings.Repeat("<", -delta)
	}
	return ""
}

// Shift records a relative pointer movement emitted outside of MoveTo.
func (a *Allocator) Shift(delta int) { a.pointer += delta }

// Assume records that the pointer is at addr after code whose movement the
// tracker could not follow, such as a loop that walks the tape.
func (a *Allocator) Assume(addr int) { a.pointer = addr }
