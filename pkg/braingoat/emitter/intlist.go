package emitter

import (
	"fmt"

	"github.com/sambeau/braingoat/pkg/braingoat/memory"
)

// scratchCells is the number of cells an IntList keeps in front of its
// elements for computed-index access.
const scratchCells = 4

// Computed-index access moves a four cell packet [value, countdown, steps, 0]
// along the list. Each step forward swaps the packet with the element in
// front of it, so after k steps element k sits directly after the packet;
// walking back restores every element. The snippets start on the countdown
// cell and finish on the steps cell of the packet at the start of the list.
const (
	walkForward  = "[->+[->+<]<[->+<]<[->+<]>>>>[-<<<<+>>>>]<<]"
	readElement  = ">>>[-<<<<+>>>+>]<[->+<]<"
	writeElement = ">>>[-]<<<<[->>>>+<<<<]>>"
	walkBack     = "[-<<<[->>>>+<<<<]>[-<+>]>[-<+>]>[-<+>]<]"
)

// IntList is a fixed-length list of Int elements laid out as scratch cells
// followed by the elements.
type IntList struct {
	e        *Emitter
	name     string
	region   memory.Region
	elements []*Int
	freed    bool
}

func (e *Emitter) newIntList(name string, length int) *IntList {
	r := e.mem.Allocate(length + scratchCells)
	e.tracef("alloc IntList<%d> %q at %s", length, name, r)
	l := &IntList{e: e, name: name, region: r}
	for k := 0; k < length; k++ {
		l.elements = append(l.elements, e.intAt(r.Start+scratchCells+k))
	}
	return l
}

func (l *IntList) Name() string          { return l.name }
func (l *IntList) TypeName() string      { return fmt.Sprintf("IntList<%d>", l.Len()) }
func (l *IntList) Region() memory.Region { return l.region }
func (l *IntList) Len() int              { return len(l.elements) }

// Element returns the element at a constant index. The caller checks bounds.
func (l *IntList) Element(k int) *Int { return l.elements[k] }

func (l *IntList) scratch(k int) *Int { return l.e.intAt(l.region.Start + k) }

// Reset zeroes every element.
func (l *IntList) Reset() {
	for _, el := range l.elements {
		el.Reset()
	}
}

// Destroy zeroes the list and returns its cells to the allocator.
func (l *IntList) Destroy() {
	if l.freed {
		return
	}
	l.Reset()
	l.e.mem.Release(l.region)
	l.e.tracef("free IntList %q at %s", l.name, l.region)
	l.freed = true
}

// Set copies src element by element. Both lists must have the same length.
func (l *IntList) Set(src *IntList) {
	if l.region == src.region {
		return
	}
	for k, el := range l.elements {
		el.Set(src.elements[k])
	}
}

// Clone returns a new temporary list with the same elements.
func (l *IntList) Clone() *IntList {
	c := l.e.newIntList("", l.Len())
	c.Set(l)
	return c
}

// Get returns a new temporary holding the element at the computed index idx.
// The index is not checked.
func (l *IntList) Get(idx *Int) *Int {
	value := l.scratch(0)
	l.scratch(1).Set(idx)
	l.e.code.MoveTo(l.region.Start + 1)
	l.e.code.Relative(walkForward+readElement+walkBack, l.region.Start+2)

	res := l.e.newTemp()
	res.Take(value)
	return res
}

// Put stores value at the computed index idx. The index is not checked.
func (l *IntList) Put(idx, value *Int) {
	l.scratch(0).Set(value)
	l.scratch(1).Set(idx)
	l.e.code.MoveTo(l.region.Start + 1)
	l.e.code.Relative(walkForward+writeElement+walkBack, l.region.Start+2)
}

// Print writes every element as a raw byte.
func (l *IntList) Print() {
	for _, el := range l.elements {
		el.Print()
	}
}

// PrintN writes every element in decimal, without separators.
func (l *IntList) PrintN() {
	for _, el := range l.elements {
		el.PrintN()
	}
}
