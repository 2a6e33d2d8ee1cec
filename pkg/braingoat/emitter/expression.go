package emitter

import (
	"fmt"

	"github.com/sambeau/braingoat/pkg/braingoat/ast"
	"github.com/sambeau/braingoat/pkg/braingoat/errors"
)

// emitExpression stores the value of expr in target.
func (e *Emitter) emitExpression(target Variable, expr ast.Expression) error {
	switch x := expr.(type) {
	case *ast.NumberLiteral:
		t, ok := target.(*Int)
		if !ok {
			return mismatch("Number", target, expr)
		}
		t.SetConst(x.Value)
		return nil

	case *ast.ListLiteral:
		t, ok := target.(*IntList)
		if !ok {
			return mismatch("List", target, expr)
		}
		if len(x.Items) != t.Len() {
			return errors.NewAt("COMPILE-0010", x.Source, map[string]any{"Name": t.name, "Length": t.Len(), "Got": len(x.Items)})
		}
		for k, item := range x.Items {
			if err := e.emitExpression(t.Element(k), item); err != nil {
				return err
			}
		}
		return nil

	case *ast.VariableLiteral:
		src, err := e.lookup(x.Name, x.Source)
		if err != nil {
			return err
		}
		if x.Index != nil {
			return e.emitElementRead(target, src, x)
		}
		switch t := target.(type) {
		case *Int:
			s, ok := src.(*Int)
			if !ok {
				return mismatch(src.TypeName(), target, expr)
			}
			t.Set(s)
		case *IntList:
			s, ok := src.(*IntList)
			if !ok {
				return mismatch(src.TypeName(), target, expr)
			}
			if s.Len() != t.Len() {
				return errors.NewAt("COMPILE-0010", x.Source, map[string]any{"Name": t.name, "Length": t.Len(), "Got": s.Len()})
			}
			t.Set(s)
		}
		return nil

	case *ast.BinaryExpression:
		t, ok := target.(*Int)
		if !ok {
			return mismatch("Int", target, expr)
		}
		left, err := e.evaluate(x.Left)
		if err != nil {
			return err
		}
		right, err := e.evaluate(x.Right)
		if err != nil {
			return err
		}
		e.tracef("apply %s", x.Operator)
		left.apply(x.Operator, right)
		t.Take(left)
		right.Destroy()
		left.Destroy()
		return nil
	}

	return errors.NewAt("COMPILE-0018", expr.Span(), map[string]any{"What": "expression", "Node": fmt.Sprintf("%T", expr)})
}

// emitElementRead stores src[index] in target.
func (e *Emitter) emitElementRead(target, src Variable, x *ast.VariableLiteral) error {
	list, err := e.indexable(src, x.Source)
	if err != nil {
		return err
	}
	t, ok := target.(*Int)
	if !ok {
		return mismatch("Int", target, x)
	}

	if n, ok := x.Index.(*ast.NumberLiteral); ok {
		el, err := list.static(n)
		if err != nil {
			return err
		}
		t.Set(el)
		return nil
	}

	idx, err := e.evaluate(x.Index)
	if err != nil {
		return err
	}
	value := list.Get(idx)
	t.Take(value)
	value.Destroy()
	idx.Destroy()
	return nil
}

// evaluate stores expr in a new temporary.
func (e *Emitter) evaluate(expr ast.Expression) (*Int, error) {
	t := e.newTemp()
	if err := e.emitExpression(t, expr); err != nil {
		return nil, err
	}
	return t, nil
}

func mismatch(source string, target Variable, expr ast.Expression) error {
	return errors.NewAt("COMPILE-0007", expr.Span(), map[string]any{"Source": source, "Target": target.TypeName()})
}
