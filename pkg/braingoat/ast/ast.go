package ast

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/sambeau/braingoat/pkg/braingoat/lexer"
)

// Node represents any node in the AST
type Node interface {
	Span() lexer.Span
	String() string
}

// Statement represents statement nodes
type Statement interface {
	Node
	statementNode()
}

// Expression represents value-producing nodes
type Expression interface {
	Node
	expressionNode()
}

// Program is the root of a parsed source file
type Program struct {
	Statements []Statement
}

func (p *Program) Span() lexer.Span {
	var s lexer.Span
	for _, st := range p.Statements {
		s = s.Merge(st.Span())
	}
	return s
}

func (p *Program) String() string {
	var out bytes.Buffer
	for i, s := range p.Statements {
		if i > 0 {
			out.WriteString("\n")
		}
		out.WriteString(s.String())
	}
	return out.String()
}

// Declaration introduces a typed variable: `Int a = 3`, `IntList<3> k = [1,2,3]`
type Declaration struct {
	TypeName     string
	TypeSpan     lexer.Span
	TypeArgument *lexer.Token // the N in IntList<N>, nil when absent
	Name         string
	NameSpan     lexer.Span
	Initializer  Expression
	Source       lexer.Span
}

func (d *Declaration) statementNode()   {}
func (d *Declaration) Span() lexer.Span { return d.Source }
func (d *Declaration) String() string {
	var out bytes.Buffer
	out.WriteString(d.TypeName)
	if d.TypeArgument != nil {
		out.WriteString("<" + d.TypeArgument.Value + ">")
	}
	out.WriteString(" " + d.Name + " = ")
	out.WriteString(d.Initializer.String())
	return out.String()
}

// Assignment stores a value into a variable or a single list element
type Assignment struct {
	Name     string
	NameSpan lexer.Span
	Index    Expression // nil unless `name[index] = value`
	Value    Expression
	Source   lexer.Span
}

func (a *Assignment) statementNode()   {}
func (a *Assignment) Span() lexer.Span { return a.Source }
func (a *Assignment) String() string {
	var out bytes.Buffer
	out.WriteString(a.Name)
	if a.Index != nil {
		out.WriteString("[" + a.Index.String() + "]")
	}
	out.WriteString(" = ")
	out.WriteString(a.Value.String())
	return out.String()
}

// Block is a brace-delimited statement list attached to a call
type Block struct {
	Name   string
	Body   []Statement
	Source lexer.Span
}

func (b *Block) String() string {
	var out bytes.Buffer
	if b.Name != DefaultBlock {
		out.WriteString(b.Name + " ")
	}
	out.WriteString("{")
	for _, s := range b.Body {
		out.WriteString(" " + s.String())
	}
	out.WriteString(" }")
	return out.String()
}

// DefaultBlock is the name of a block without a label.
const DefaultBlock = "default"

// FunctionCall invokes a builtin, optionally with blocks: `if(c) {..} else {..}`
type FunctionCall struct {
	Name      string
	Arguments []Expression
	Blocks    []*Block
	Source    lexer.Span // name through the closing parenthesis
}

func (fc *FunctionCall) statementNode()   {}
func (fc *FunctionCall) Span() lexer.Span { return fc.Source }
func (fc *FunctionCall) String() string {
	var out bytes.Buffer
	args := make([]string, len(fc.Arguments))
	for i, a := range fc.Arguments {
		args[i] = a.String()
	}
	out.WriteString(fc.Name + "(" + strings.Join(args, ", ") + ")")
	for _, b := range fc.Blocks {
		out.WriteString(" " + b.String())
	}
	return out.String()
}

// Block returns the block with the given name, or nil.
func (fc *FunctionCall) Block(name string) *Block {
	for _, b := range fc.Blocks {
		if b.Name == name {
			return b
		}
	}
	return nil
}

// Operator is a binary operator of an Expression
type Operator int

const (
	ADD Operator = iota
	SUB
	MUL
	DIV
	POW
	EQ
	NEQ
	LT
	LTE
	GT
	GTE
)

var operatorSymbols = map[Operator]string{
	ADD: "+",
	SUB: "-",
	MUL: "*",
	DIV: "/",
	POW: "^",
	EQ:  "==",
	NEQ: "!=",
	LT:  "<",
	LTE: "<=",
	GT:  ">",
	GTE: ">=",
}

// Operators maps source symbols to operators
var Operators = map[string]Operator{}

func init() {
	for op, sym := range operatorSymbols {
		Operators[sym] = op
	}
}

func (o Operator) String() string {
	if s, ok := operatorSymbols[o]; ok {
		return s
	}
	return "?"
}

// BinaryExpression applies an operator to exactly two operands: `(a + b)`
type BinaryExpression struct {
	Operator Operator
	Left     Expression
	Right    Expression
	Source   lexer.Span
}

func (be *BinaryExpression) expressionNode()  {}
func (be *BinaryExpression) Span() lexer.Span { return be.Source }
func (be *BinaryExpression) String() string {
	return "(" + be.Left.String() + " " + be.Operator.String() + " " + be.Right.String() + ")"
}

// NumberLiteral is a decimal numeral
type NumberLiteral struct {
	Value  int64
	Source lexer.Span
}

func (nl *NumberLiteral) expressionNode()  {}
func (nl *NumberLiteral) Span() lexer.Span { return nl.Source }
func (nl *NumberLiteral) String() string   { return strconv.FormatInt(nl.Value, 10) }

// ListLiteral is a bracketed list of expressions: `[1, 2, (a + 1)]`
type ListLiteral struct {
	Items  []Expression
	Source lexer.Span
}

func (ll *ListLiteral) expressionNode()  {}
func (ll *ListLiteral) Span() lexer.Span { return ll.Source }
func (ll *ListLiteral) String() string {
	items := make([]string, len(ll.Items))
	for i, it := range ll.Items {
		items[i] = it.String()
	}
	return "[" + strings.Join(items, ", ") + "]"
}

// VariableLiteral reads a variable, optionally indexed: `k` or `k[i]`
type VariableLiteral struct {
	Name   string
	Index  Expression
	Source lexer.Span
}

func (vl *VariableLiteral) expressionNode()  {}
func (vl *VariableLiteral) Span() lexer.Span { return vl.Source }
func (vl *VariableLiteral) String() string {
	if vl.Index != nil {
		return vl.Name + "[" + vl.Index.String() + "]"
	}
	return vl.Name
}
