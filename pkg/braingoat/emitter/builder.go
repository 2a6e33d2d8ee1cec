package emitter

import (
	"strings"

	"github.com/sambeau/braingoat/pkg/braingoat/memory"
)

// alphabet holds the instructions of the target machine. Anything else passed
// to the builder is dropped.
const alphabet = "+-<>.,[]"

// Builder accumulates output code and keeps the tracked pointer in step with
// every instruction it writes.
type Builder struct {
	out strings.Builder
	mem *memory.Allocator
}

func newBuilder(mem *memory.Allocator) *Builder {
	return &Builder{mem: mem}
}

// Emit appends code. Pointer moves inside code are tracked, so code must not
// contain loops that move the pointer by a data-dependent amount; use
// Relative for those.
func (b *Builder) Emit(code string) {
	for i := 0; i < len(code); i++ {
		c := code[i]
		if strings.IndexByte(alphabet, c) < 0 {
			continue
		}
		switch c {
		case '>':
			b.mem.Shift(1)
		case '<':
			b.mem.Shift(-1)
		}
		b.out.WriteByte(c)
	}
}

// Relative appends code whose pointer movement cannot be followed statically
// and records that the pointer ends on cell endsAt.
func (b *Builder) Relative(code string, endsAt int) {
	for i := 0; i < len(code); i++ {
		if strings.IndexByte(alphabet, code[i]) >= 0 {
			b.out.WriteByte(code[i])
		}
	}
	b.mem.Assume(endsAt)
}

// MoveTo moves the pointer to addr.
func (b *Builder) MoveTo(addr int) {
	b.out.WriteString(b.mem.MoveTo(addr))
}

// Add moves to addr and adjusts the cell by n, which may be negative.
func (b *Builder) Add(addr, n int) {
	if n == 0 {
		return
	}
	b.MoveTo(addr)
	if n > 0 {
		b.out.WriteString(strings.Repeat("+", n))
	} else {
		b.out.WriteString(strings.Repeat("-", -n))
	}
}

// Clear zeroes the cell at addr.
func (b *Builder) Clear(addr int) {
	b.MoveTo(addr)
	b.out.WriteString("[-]")
}

// Loop emits `[ body ]` tested on addr. The pointer is brought back to addr
// before the closing bracket so every iteration starts from the same cell.
func (b *Builder) Loop(addr int, body func()) {
	b.MoveTo(addr)
	b.out.WriteByte('[')
	body()
	b.MoveTo(addr)
	b.out.WriteByte(']')
}

// LoopErr is Loop for bodies that can fail.
func (b *Builder) LoopErr(addr int, body func() error) error {
	b.MoveTo(addr)
	b.out.WriteByte('[')
	if err := body(); err != nil {
		return err
	}
	b.MoveTo(addr)
	b.out.WriteByte(']')
	return nil
}

// Len returns the number of instructions emitted so far.
func (b *Builder) Len() int { return b.out.Len() }

func (b *Builder) String() string { return b.out.String() }
