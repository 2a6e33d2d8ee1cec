// Package emitter generates tape machine code from a goat AST.
//
// The emitter owns the allocator, the output builder and the variable table
// of one compilation. Code generation stops at the first CompileError.
package emitter

import (
	"fmt"

	"github.com/sambeau/braingoat/pkg/braingoat/ast"
	"github.com/sambeau/braingoat/pkg/braingoat/errors"
	"github.com/sambeau/braingoat/pkg/braingoat/lexer"
	"github.com/sambeau/braingoat/pkg/braingoat/memory"
	"github.com/sambeau/braingoat/pkg/braingoat/parser"
)

// Emitter translates statements into code.
type Emitter struct {
	mem   *memory.Allocator
	code  *Builder
	vars  map[string]Variable
	order []string
	trace func(string)
}

// Option configures an Emitter.
type Option func(*Emitter)

// WithTrace receives a line for every allocation and builtin expansion.
func WithTrace(fn func(string)) Option {
	return func(e *Emitter) { e.trace = fn }
}

// New creates an emitter with an empty tape.
func New(opts ...Option) *Emitter {
	mem := memory.New()
	e := &Emitter{
		mem:  mem,
		code: newBuilder(mem),
		vars: make(map[string]Variable),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Emitter) tracef(format string, args ...any) {
	if e.trace != nil {
		e.trace(fmt.Sprintf(format, args...))
	}
}

// Code returns the program emitted so far.
func (e *Emitter) Code() string { return e.code.String() }

// Memory exposes the allocator, mostly for statistics.
func (e *Emitter) Memory() *memory.Allocator { return e.mem }

// VariableInfo describes a declared variable.
type VariableInfo struct {
	Name   string        `json:"name"`
	Type   string        `json:"type"`
	Region memory.Region `json:"region"`
}

// Variables lists the named variables in declaration order.
func (e *Emitter) Variables() []VariableInfo {
	out := make([]VariableInfo, 0, len(e.order))
	for _, name := range e.order {
		v := e.vars[name]
		out = append(out, VariableInfo{Name: name, Type: v.TypeName(), Region: v.Region()})
	}
	return out
}

// EmitProgram emits every statement of the program in order.
func (e *Emitter) EmitProgram(p *ast.Program) error {
	return e.emitStatements(p.Statements)
}

func (e *Emitter) emitStatements(statements []ast.Statement) error {
	for _, st := range statements {
		if err := e.emitStatement(st); err != nil {
			return err
		}
	}
	return nil
}

func (e *Emitter) emitStatement(st ast.Statement) error {
	switch s := st.(type) {
	case *ast.Declaration:
		return e.emitDeclaration(s)
	case *ast.Assignment:
		return e.emitAssignment(s)
	case *ast.FunctionCall:
		return e.emitCall(s)
	}
	return errors.NewAt("COMPILE-0018", st.Span(), map[string]any{"What": "statement", "Node": fmt.Sprintf("%T", st)})
}

func (e *Emitter) emitDeclaration(d *ast.Declaration) error {
	if !parser.IsIdentifier(d.Name) {
		return errors.NewAt("COMPILE-0001", d.NameSpan, map[string]any{"Name": d.Name})
	}
	info, ok := dataTypes[d.TypeName]
	if !ok {
		return errors.NewAt("COMPILE-0002", d.TypeSpan, map[string]any{"Type": d.TypeName}).
			WithSuggestion(d.TypeName, typeNames())
	}
	if _, exists := e.vars[d.Name]; exists {
		return errors.NewAt("COMPILE-0003", d.NameSpan, map[string]any{"Name": d.Name})
	}

	v, err := info.declare(e, d)
	if err != nil {
		return err
	}
	e.vars[d.Name] = v
	e.order = append(e.order, d.Name)
	return e.emitExpression(v, d.Initializer)
}

func (e *Emitter) emitAssignment(a *ast.Assignment) error {
	v, err := e.lookup(a.Name, a.NameSpan)
	if err != nil {
		return err
	}
	if a.Index == nil {
		return e.emitExpression(v, a.Value)
	}

	list, err := e.indexable(v, a.NameSpan)
	if err != nil {
		return err
	}
	if n, ok := a.Index.(*ast.NumberLiteral); ok {
		el, err := list.static(n)
		if err != nil {
			return err
		}
		return e.emitExpression(el, a.Value)
	}

	idx, err := e.evaluate(a.Index)
	if err != nil {
		return err
	}
	value, err := e.evaluate(a.Value)
	if err != nil {
		return err
	}
	list.Put(idx, value)
	value.Destroy()
	idx.Destroy()
	return nil
}

func (e *Emitter) lookup(name string, span lexer.Span) (Variable, error) {
	v, ok := e.vars[name]
	if !ok {
		return nil, errors.NewAt("COMPILE-0004", span, map[string]any{"Name": name}).
			WithSuggestion(name, e.order)
	}
	return v, nil
}

func (e *Emitter) indexable(v Variable, span lexer.Span) (*IntList, error) {
	list, ok := v.(*IntList)
	if !ok {
		return nil, errors.NewAt("COMPILE-0012", span, map[string]any{"Type": v.TypeName(), "Name": v.Name()})
	}
	return list, nil
}

// static resolves a constant index, checking it against the list length.
func (l *IntList) static(n *ast.NumberLiteral) (*Int, error) {
	if n.Value < 0 || n.Value >= int64(l.Len()) {
		return nil, errors.NewAt("COMPILE-0011", n.Source, map[string]any{"Name": l.name, "Length": l.Len(), "Index": n.Value})
	}
	return l.Element(int(n.Value)), nil
}
