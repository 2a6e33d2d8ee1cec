package emitter

import (
	"fmt"
	"sort"

	"github.com/sambeau/braingoat/pkg/braingoat/ast"
	"github.com/sambeau/braingoat/pkg/braingoat/errors"
)

// Builtin is a function callable from goat code.
type Builtin struct {
	Name        string
	Params      []string
	Blocks      string // block syntax accepted after the call, "" for none
	Description string
	Category    string
	Example     string
	MinBlocks   int
	MaxBlocks   int
	emit        func(e *Emitter, call *ast.FunctionCall) error
}

// Signature renders the call syntax, e.g. `if(condition) { ... } else { ... }`.
func (b *Builtin) Signature() string {
	sig := b.Name + "("
	for i, p := range b.Params {
		if i > 0 {
			sig += ", "
		}
		sig += p
	}
	sig += ")"
	if b.Blocks != "" {
		sig += " " + b.Blocks
	}
	return sig
}

var builtins map[string]*Builtin

func init() {
	builtins = map[string]*Builtin{
		"if": {
			Name:        "if",
			Params:      []string{"condition"},
			Blocks:      "{ ... } else { ... }",
			Description: "Runs the first block when condition is non-zero, otherwise the optional else block.",
			Category:    "control",
			Example:     "if((a == 1)) { print(a) } else { printN(b) }",
			MinBlocks:   1,
			MaxBlocks:   2,
			emit:        emitIf,
		},
		"while": {
			Name:        "while",
			Params:      []string{"condition"},
			Blocks:      "{ ... }",
			Description: "Repeats the block while condition is non-zero. The condition is evaluated again after every iteration.",
			Category:    "control",
			Example:     "while((i < n)) { i = (i + 1) }",
			MinBlocks:   1,
			MaxBlocks:   1,
			emit:        emitWhile,
		},
		"for": {
			Name:        "for",
			Params:      []string{"element", "list"},
			Blocks:      "{ ... }",
			Description: "Copies every element of an IntList into an Int variable in turn and runs the block.",
			Category:    "control",
			Example:     "for(el, list) { printN(el) }",
			MinBlocks:   1,
			MaxBlocks:   1,
			emit:        emitFor,
		},
		"print": {
			Name:        "print",
			Params:      []string{"value"},
			Description: "Writes the value as a raw byte. An IntList writes every element.",
			Category:    "io",
			Example:     "print(65)",
			emit:        emitPrint,
		},
		"printN": {
			Name:        "printN",
			Params:      []string{"value"},
			Description: "Writes the value in decimal. An IntList writes every element without separators.",
			Category:    "io",
			Example:     "printN((6 * 7))",
			emit:        emitPrintN,
		},
		"input": {
			Name:        "input",
			Params:      []string{"variable"},
			Description: "Reads one raw byte into an Int or a list element.",
			Category:    "io",
			Example:     "input(k[0])",
			emit:        emitInput,
		},
		"inputN": {
			Name:        "inputN",
			Params:      []string{"variable"},
			Description: "Reads a decimal number into an Int or a list element, stopping at the first non-digit.",
			Category:    "io",
			Example:     "inputN(n)",
			emit:        emitInputN,
		},
	}
}

// Builtins returns every builtin sorted by name.
func Builtins() []*Builtin {
	out := make([]*Builtin, 0, len(builtins))
	for _, b := range builtins {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// LookupBuiltin returns the builtin with the given name.
func LookupBuiltin(name string) (*Builtin, bool) {
	b, ok := builtins[name]
	return b, ok
}

func builtinNames() []string {
	names := make([]string, 0, len(builtins))
	for name := range builtins {
		names = append(names, name)
	}
	return names
}

func (e *Emitter) emitCall(call *ast.FunctionCall) error {
	b, ok := builtins[call.Name]
	if !ok {
		return errors.NewAt("COMPILE-0005", call.Source, map[string]any{"Name": call.Name}).
			WithSuggestion(call.Name, builtinNames())
	}

	if len(call.Arguments) != len(b.Params) {
		return arityError(call, len(b.Params), "argument", len(call.Arguments))
	}
	if n := len(call.Blocks); n < b.MinBlocks || n > b.MaxBlocks {
		expected := any(b.MaxBlocks)
		if b.MinBlocks != b.MaxBlocks {
			expected = fmt.Sprintf("%d to %d", b.MinBlocks, b.MaxBlocks)
		}
		return arityError(call, expected, "block", n)
	}

	e.tracef("call %s at %s", call.Name, call.Source)
	return b.emit(e, call)
}

// arityError reports a count mismatch; expected is a number or a range.
func arityError(call *ast.FunctionCall, expected any, what string, got int) error {
	if expected != 1 {
		what += "s"
	}
	return errors.NewAt("COMPILE-0006", call.Source, map[string]any{
		"Function": call.Name, "Expected": expected, "What": what, "Got": got,
	})
}

func (e *Emitter) emitBlock(b *ast.Block) error {
	return e.emitStatements(b.Body)
}

func emitIf(e *Emitter, call *ast.FunctionCall) error {
	if len(call.Blocks) == 2 && call.Blocks[1].Name != "else" {
		return errors.NewAt("COMPILE-0013", call.Blocks[1].Source, map[string]any{"Function": call.Name, "Got": call.Blocks[1].Name})
	}

	cond, err := e.evaluate(call.Arguments[0])
	if err != nil {
		return err
	}

	if len(call.Blocks) == 1 {
		err := cond.loopErr(func() error {
			if err := e.emitBlock(call.Blocks[0]); err != nil {
				return err
			}
			cond.Reset()
			return nil
		})
		if err != nil {
			return err
		}
		cond.Destroy()
		return nil
	}

	otherwise := e.newTemp()
	otherwise.inc(1)
	err = cond.loopErr(func() error {
		if err := e.emitBlock(call.Blocks[0]); err != nil {
			return err
		}
		cond.Reset()
		otherwise.Reset()
		return nil
	})
	if err != nil {
		return err
	}
	err = otherwise.loopErr(func() error {
		if err := e.emitBlock(call.Blocks[1]); err != nil {
			return err
		}
		otherwise.Reset()
		return nil
	})
	if err != nil {
		return err
	}
	otherwise.Destroy()
	cond.Destroy()
	return nil
}

func emitWhile(e *Emitter, call *ast.FunctionCall) error {
	cond, err := e.evaluate(call.Arguments[0])
	if err != nil {
		return err
	}
	err = cond.loopErr(func() error {
		if err := e.emitBlock(call.Blocks[0]); err != nil {
			return err
		}
		return e.emitExpression(cond, call.Arguments[0])
	})
	if err != nil {
		return err
	}
	cond.Destroy()
	return nil
}

func emitFor(e *Emitter, call *ast.FunctionCall) error {
	el, err := e.variableArgument(call, 0)
	if err != nil {
		return err
	}
	src, err := e.variableArgument(call, 1)
	if err != nil {
		return err
	}
	element, ok := el.(*Int)
	if !ok {
		return errors.NewAt("COMPILE-0015", call.Arguments[0].Span(), map[string]any{
			"Function": call.Name, "Expected": "Int", "Position": 1, "Got": el.TypeName(),
		})
	}
	list, ok := src.(*IntList)
	if !ok {
		return errors.NewAt("COMPILE-0015", call.Arguments[1].Span(), map[string]any{
			"Function": call.Name, "Expected": "IntList", "Position": 2, "Got": src.TypeName(),
		})
	}

	idx := e.newTemp()
	limit := e.newTemp()
	limit.SetConst(int64(list.Len()))
	more := e.newTemp()
	more.lessThan(idx, limit)

	err = more.loopErr(func() error {
		value := list.Get(idx)
		element.Take(value)
		value.Destroy()
		if err := e.emitBlock(call.Blocks[0]); err != nil {
			return err
		}
		idx.inc(1)
		more.lessThan(idx, limit)
		return nil
	})
	if err != nil {
		return err
	}
	more.Destroy()
	limit.Destroy()
	idx.Destroy()
	return nil
}

// variableArgument resolves argument n, which must name a variable without
// an index.
func (e *Emitter) variableArgument(call *ast.FunctionCall, n int) (Variable, error) {
	v, ok := call.Arguments[n].(*ast.VariableLiteral)
	if !ok || v.Index != nil {
		return nil, errors.NewAt("COMPILE-0014", call.Arguments[n].Span(), map[string]any{"Function": call.Name})
	}
	return e.lookup(v.Name, v.Source)
}

// printer is implemented by both data types.
type printer interface {
	Print()
	PrintN()
}

func emitPrint(e *Emitter, call *ast.FunctionCall) error {
	return e.emitOutput(call, printer.Print)
}

func emitPrintN(e *Emitter, call *ast.FunctionCall) error {
	return e.emitOutput(call, printer.PrintN)
}

func (e *Emitter) emitOutput(call *ast.FunctionCall, write func(printer)) error {
	arg := call.Arguments[0]
	if v, ok := arg.(*ast.VariableLiteral); ok && v.Index == nil {
		target, err := e.lookup(v.Name, v.Source)
		if err != nil {
			return err
		}
		write(target.(printer))
		return nil
	}

	t, err := e.evaluate(arg)
	if err != nil {
		return err
	}
	write(t)
	t.Destroy()
	return nil
}

func emitInput(e *Emitter, call *ast.FunctionCall) error {
	return e.emitRead(call, (*Int).Input)
}

func emitInputN(e *Emitter, call *ast.FunctionCall) error {
	return e.emitRead(call, (*Int).InputN)
}

func (e *Emitter) emitRead(call *ast.FunctionCall, read func(*Int)) error {
	arg, ok := call.Arguments[0].(*ast.VariableLiteral)
	if !ok {
		return errors.NewAt("COMPILE-0014", call.Arguments[0].Span(), map[string]any{"Function": call.Name})
	}
	v, err := e.lookup(arg.Name, arg.Source)
	if err != nil {
		return err
	}

	if arg.Index == nil {
		target, ok := v.(*Int)
		if !ok {
			return errors.NewAt("COMPILE-0017", arg.Source, map[string]any{"Function": call.Name, "Type": v.TypeName(), "Name": v.Name()})
		}
		read(target)
		return nil
	}

	list, err := e.indexable(v, arg.Source)
	if err != nil {
		return err
	}
	if n, ok := arg.Index.(*ast.NumberLiteral); ok {
		el, err := list.static(n)
		if err != nil {
			return err
		}
		read(el)
		return nil
	}

	idx, err := e.evaluate(arg.Index)
	if err != nil {
		return err
	}
	value := e.newTemp()
	read(value)
	list.Put(idx, value)
	value.Destroy()
	idx.Destroy()
	return nil
}
