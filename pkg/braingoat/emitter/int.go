package emitter

import (
	"github.com/sambeau/braingoat/pkg/braingoat/ast"
	"github.com/sambeau/braingoat/pkg/braingoat/memory"
)

// Int is a single wrapping byte cell. Every operation leaves its operands
// intact unless documented otherwise, and every temporary it uses is zero
// again when the operation ends.
type Int struct {
	e      *Emitter
	name   string
	cell   int
	region memory.Region
	owned  bool // false for cells inside another variable's region
	freed  bool
}

// newInt allocates a fresh, zeroed cell. An empty name marks a temporary.
func (e *Emitter) newInt(name string) *Int {
	r := e.mem.Allocate(1)
	e.tracef("alloc Int %q at %s", name, r)
	return &Int{e: e, name: name, cell: r.Start, region: r, owned: true}
}

func (e *Emitter) newTemp() *Int { return e.newInt("") }

// intAt views a cell owned by another variable.
func (e *Emitter) intAt(cell int) *Int {
	return &Int{e: e, cell: cell, region: memory.Region{Start: cell, End: cell}}
}

func (i *Int) Name() string          { return i.name }
func (i *Int) TypeName() string      { return "Int" }
func (i *Int) Region() memory.Region { return i.region }
func (i *Int) Cell() int             { return i.cell }
func (i *Int) same(other *Int) bool  { return i.cell == other.cell }
func (i *Int) inc(n int)             { i.e.code.Add(i.cell, n) }
func (i *Int) loop(body func())      { i.e.code.Loop(i.cell, body) }

func (i *Int) loopErr(body func() error) error {
	return i.e.code.LoopErr(i.cell, body)
}

// Reset sets the cell to zero.
func (i *Int) Reset() { i.e.code.Clear(i.cell) }

// Destroy zeroes the cell and returns it to the allocator.
func (i *Int) Destroy() {
	if i.freed {
		return
	}
	i.Reset()
	if i.owned {
		i.e.mem.Release(i.region)
		i.e.tracef("free Int %q at %s", i.name, i.region)
	}
	i.freed = true
}

// SetConst stores n modulo 256.
func (i *Int) SetConst(n int64) {
	i.Reset()
	i.inc(int(((n % 256) + 256) % 256))
}

// Set copies src into i.
func (i *Int) Set(src *Int) {
	if i.same(src) {
		return
	}
	i.Reset()
	i.Add(src)
}

// Take moves src into i, leaving src zero. Use it for temporaries.
func (i *Int) Take(src *Int) {
	if i.same(src) {
		return
	}
	i.Reset()
	src.loop(func() {
		src.inc(-1)
		i.inc(1)
	})
}

// Clone returns a new temporary holding the same value.
func (i *Int) Clone() *Int {
	tmp := i.e.newTemp()
	res := i.e.newTemp()
	i.loop(func() {
		i.inc(-1)
		tmp.inc(1)
		res.inc(1)
	})
	tmp.loop(func() {
		tmp.inc(-1)
		i.inc(1)
	})
	tmp.Destroy()
	return res
}

// Add sets i = i + y.
func (i *Int) Add(y *Int) { i.accumulate(y, 1) }

// Subtract sets i = i - y.
func (i *Int) Subtract(y *Int) { i.accumulate(y, -1) }

func (i *Int) accumulate(y *Int, sign int) {
	if i.same(y) {
		c := y.Clone()
		i.accumulate(c, sign)
		c.Destroy()
		return
	}
	t := i.e.newTemp()
	y.loop(func() {
		y.inc(-1)
		i.inc(sign)
		t.inc(1)
	})
	t.loop(func() {
		t.inc(-1)
		y.inc(1)
	})
	t.Destroy()
}

// Multiply sets i = i * y.
func (i *Int) Multiply(y *Int) {
	if i.same(y) {
		c := y.Clone()
		i.Multiply(c)
		c.Destroy()
		return
	}
	count := i.e.newTemp()
	back := i.e.newTemp()
	i.loop(func() {
		i.inc(-1)
		count.inc(1)
	})
	count.loop(func() {
		count.inc(-1)
		y.loop(func() {
			y.inc(-1)
			i.inc(1)
			back.inc(1)
		})
		back.loop(func() {
			back.inc(-1)
			y.inc(1)
		})
	})
	back.Destroy()
	count.Destroy()
}

// Divide sets i = i / y rounded down. Dividing by zero yields zero.
//
// Every unit of the dividend decrements a countdown that starts at y; each
// time the countdown reaches zero the quotient grows by one and the countdown
// is reloaded.
func (i *Int) Divide(y *Int) {
	if i.same(y) {
		c := y.Clone()
		i.Divide(c)
		c.Destroy()
		return
	}
	rest := i.e.newTemp()
	countdown := i.e.newTemp()
	t := i.e.newTemp()
	flag := i.e.newTemp()

	reload := func() {
		y.loop(func() {
			y.inc(-1)
			countdown.inc(1)
			t.inc(1)
		})
		t.loop(func() {
			t.inc(-1)
			y.inc(1)
		})
	}

	i.loop(func() {
		i.inc(-1)
		rest.inc(1)
	})
	reload()
	rest.loop(func() {
		rest.inc(-1)
		countdown.inc(-1)

		flag.inc(1)
		countdown.loop(func() {
			countdown.inc(-1)
			t.inc(1)
		})
		t.loop(func() {
			t.inc(-1)
			countdown.inc(1)
			flag.Reset()
		})
		flag.loop(func() {
			flag.inc(-1)
			i.inc(1)
			reload()
		})
	})

	flag.Destroy()
	t.Destroy()
	countdown.Destroy()
	rest.Destroy()
}

// Power sets i = i ^ y. Any value to the power zero is 1.
func (i *Int) Power(y *Int) {
	exp := y.Clone()
	base := i.e.newTemp()
	i.loop(func() {
		i.inc(-1)
		base.inc(1)
	})
	i.inc(1)
	exp.loop(func() {
		exp.inc(-1)
		i.Multiply(base)
	})
	base.Destroy()
	exp.Destroy()
}

// Eq sets i to 1 when i == y and 0 otherwise.
func (i *Int) Eq(y *Int) {
	i.difference(y)
	flag := i.e.newTemp()
	flag.inc(1)
	i.loop(func() {
		i.Reset()
		flag.inc(-1)
	})
	i.Take(flag)
	flag.Destroy()
}

// Neq sets i to 1 when i != y and 0 otherwise.
func (i *Int) Neq(y *Int) {
	i.difference(y)
	flag := i.e.newTemp()
	i.loop(func() {
		i.Reset()
		flag.inc(1)
	})
	i.Take(flag)
	flag.Destroy()
}

// difference sets i = i - y through a copy, so y may be i itself.
func (i *Int) difference(y *Int) {
	c := y.Clone()
	c.loop(func() {
		c.inc(-1)
		i.inc(-1)
	})
	c.Destroy()
}

// Lt sets i to 1 when i < y and 0 otherwise.
func (i *Int) Lt(y *Int) { i.lessThan(i, y) }

// Gt is Lt with the operands swapped.
func (i *Int) Gt(y *Int) { i.lessThan(y, i) }

// Lte sets i to 1 when i <= y, computed as not (y < i).
func (i *Int) Lte(y *Int) {
	i.lessThan(y, i)
	i.not()
}

// Gte is Lte with the operands swapped.
func (i *Int) Gte(y *Int) {
	i.lessThan(i, y)
	i.not()
}

// lessThan sets i to 1 when a < b and 0 otherwise. Copies of a and b are
// decremented in lockstep; b is only decremented while it is non-zero, so
// whatever is left of b afterwards is non-zero exactly when a < b.
func (i *Int) lessThan(a, b *Int) {
	ac := a.Clone()
	bc := b.Clone()
	t := i.e.newTemp()
	flag := i.e.newTemp()

	ac.loop(func() {
		ac.inc(-1)
		bc.loop(func() {
			bc.inc(-1)
			t.inc(1)
		})
		t.loop(func() {
			t.inc(-1)
			bc.inc(1)
			flag.Reset()
			flag.inc(1)
		})
		flag.loop(func() {
			flag.inc(-1)
			bc.inc(-1)
		})
	})

	i.Reset()
	bc.loop(func() {
		bc.Reset()
		i.inc(1)
	})

	flag.Destroy()
	t.Destroy()
	bc.Destroy()
	ac.Destroy()
}

// not flips a 0/1 value.
func (i *Int) not() {
	flag := i.e.newTemp()
	flag.inc(1)
	i.loop(func() {
		i.inc(-1)
		flag.inc(-1)
	})
	i.Take(flag)
	flag.Destroy()
}

// Print writes the cell as a raw byte.
func (i *Int) Print() {
	i.e.code.MoveTo(i.cell)
	i.e.code.Emit(".")
}

// Input reads one byte into the cell. The cell is cleared first so that
// machines which leave the cell unchanged at end of input read zero.
func (i *Int) Input() {
	i.Reset()
	i.e.code.Emit(",")
}

// PrintN writes the value in decimal without leading zeros.
func (i *Int) PrintN() {
	e := i.e
	n := i.Clone()
	ones := e.newTemp()
	tens := e.newTemp()
	hundreds := e.newTemp()

	n.loop(func() {
		n.inc(-1)
		ones.inc(1)
		ones.ifEquals(10, func() {
			ones.Reset()
			tens.inc(1)
			tens.ifEquals(10, func() {
				tens.Reset()
				hundreds.inc(1)
			})
		})
	})

	showTens := e.newTemp()
	hundreds.ifNonZero(func() {
		hundreds.printDigit()
		showTens.Reset()
		showTens.inc(1)
	})
	tens.ifNonZero(func() {
		showTens.Reset()
		showTens.inc(1)
	})
	showTens.loop(func() {
		showTens.inc(-1)
		tens.printDigit()
	})
	ones.printDigit()

	showTens.Destroy()
	hundreds.Destroy()
	tens.Destroy()
	ones.Destroy()
	n.Destroy()
}

// InputN reads decimal digits into the cell, stopping at the first byte that
// is not a digit (including end of input). The result wraps modulo 256.
func (i *Int) InputN() {
	e := i.e
	digit := e.newTemp()
	ten := e.newTemp()
	more := e.newTemp()
	ten.inc(10)

	read := func() {
		digit.Input()
		digit.inc(-'0')
		more.lessThan(digit, ten)
	}

	i.Reset()
	read()
	more.loop(func() {
		i.Multiply(ten)
		i.Add(digit)
		read()
	})

	more.Destroy()
	ten.Destroy()
	digit.Destroy()
}

func (i *Int) printDigit() {
	i.inc('0')
	i.e.code.Emit(".")
	i.inc(-'0')
}

// ifEquals runs body once when the cell equals k.
func (i *Int) ifEquals(k int, body func()) {
	t := i.Clone()
	t.inc(-k)
	flag := i.e.newTemp()
	flag.inc(1)
	t.loop(func() {
		t.Reset()
		flag.inc(-1)
	})
	flag.loop(func() {
		flag.inc(-1)
		body()
	})
	flag.Destroy()
	t.Destroy()
}

// ifNonZero runs body once when the cell is not zero.
func (i *Int) ifNonZero(body func()) {
	t := i.Clone()
	t.loop(func() {
		t.Reset()
		body()
	})
	t.Destroy()
}

// apply sets i = i op y.
func (i *Int) apply(op ast.Operator, y *Int) {
	switch op {
	case ast.ADD:
		i.Add(y)
	case ast.SUB:
		i.Subtract(y)
	case ast.MUL:
		i.Multiply(y)
	case ast.DIV:
		i.Divide(y)
	case ast.POW:
		i.Power(y)
	case ast.EQ:
		i.Eq(y)
	case ast.NEQ:
		i.Neq(y)
	case ast.LT:
		i.Lt(y)
	case ast.LTE:
		i.Lte(y)
	case ast.GT:
		i.Gt(y)
	case ast.GTE:
		i.Gte(y)
	}
}
