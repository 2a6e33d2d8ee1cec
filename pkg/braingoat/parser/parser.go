// Package parser turns the token stream of a goat program into an AST.
//
// Statements are recognised by looking a few tokens ahead:
//
//	TYPE NAME = expr            declaration
//	TYPE < N > NAME = expr      declaration with a type argument
//	NAME = expr                 assignment
//	NAME [ expr ] = expr        element assignment
//	NAME ( args ) blocks        call
//
// Parsing stops at the first error, which is always a SyntaxError located at
// the token closest to the problem.
package parser

import (
	"regexp"
	"strconv"

	"github.com/sambeau/braingoat/pkg/braingoat/ast"
	"github.com/sambeau/braingoat/pkg/braingoat/errors"
	"github.com/sambeau/braingoat/pkg/braingoat/lexer"
)

var (
	identifierPattern = regexp.MustCompile(`^[A-Za-z_]\w*$`)
	numberPattern     = regexp.MustCompile(`^[0-9]+$`)
)

var closers = map[string]string{"(": ")", "{": "}", "[": "]"}

// IsIdentifier reports whether s is a valid variable or function name.
func IsIdentifier(s string) bool {
	return identifierPattern.MatchString(s)
}

// Parser holds the comment-free token stream of one program.
type Parser struct {
	tokens []lexer.Token
}

// New creates a parser over tokens. Comments are removed eagerly, so a
// malformed comment is reported by New.
func New(tokens []lexer.Token) (*Parser, error) {
	stripped, err := stripComments(tokens)
	if err != nil {
		return nil, err
	}
	return &Parser{tokens: stripped}, nil
}

// Parse is New followed by ParseProgram.
func Parse(tokens []lexer.Token) (*ast.Program, error) {
	p, err := New(tokens)
	if err != nil {
		return nil, err
	}
	return p.ParseProgram()
}

// ParseProgram parses every statement in the token stream.
func (p *Parser) ParseProgram() (*ast.Program, error) {
	statements, err := p.parseStatements(0, len(p.tokens))
	if err != nil {
		return nil, err
	}
	return &ast.Program{Statements: statements}, nil
}

func stripComments(tokens []lexer.Token) ([]lexer.Token, error) {
	out := make([]lexer.Token, 0, len(tokens))
	for i := 0; i < len(tokens); i++ {
		switch tokens[i].Value {
		case "/*":
			end := i + 1
			for end < len(tokens) && tokens[end].Value != "*/" {
				end++
			}
			if end == len(tokens) {
				return nil, errors.NewAt("SYNTAX-0001", tokens[i].Span, map[string]any{"Expected": "*/"})
			}
			i = end
		case "*/":
			return nil, errors.NewAt("SYNTAX-0010", tokens[i].Span, map[string]any{"Token": "*/"})
		default:
			out = append(out, tokens[i])
		}
	}
	return out, nil
}

// value returns the token text at i, or "" past the end of [0, end).
func (p *Parser) value(i, end int) string {
	if i < 0 || i >= end {
		return ""
	}
	return p.tokens[i].Value
}

// lastSpan is the span of the last token before end, used when input runs out.
func (p *Parser) lastSpan(end int) lexer.Span {
	if end > 0 && end <= len(p.tokens) {
		return p.tokens[end-1].Span
	}
	return lexer.Span{}
}

func (p *Parser) spanOf(from, to int) lexer.Span {
	return p.tokens[from].Span.Merge(p.tokens[to].Span)
}

// matchBracket returns the index of the closer matching the opener at open,
// searching no further than end.
func (p *Parser) matchBracket(open, end int) (int, error) {
	stack := []string{closers[p.tokens[open].Value]}
	for i := open + 1; i < end; i++ {
		v := p.tokens[i].Value
		if c, ok := closers[v]; ok {
			stack = append(stack, c)
			continue
		}
		if v != ")" && v != "}" && v != "]" {
			continue
		}
		want := stack[len(stack)-1]
		if v != want {
			return 0, errors.NewAt("SYNTAX-0002", p.tokens[i].Span, map[string]any{"Expected": want, "Got": v})
		}
		stack = stack[:len(stack)-1]
		if len(stack) == 0 {
			return i, nil
		}
	}
	return 0, errors.NewAt("SYNTAX-0001", p.lastSpan(end), map[string]any{"Expected": stack[len(stack)-1]})
}

func (p *Parser) parseStatements(start, end int) ([]ast.Statement, error) {
	var statements []ast.Statement
	for i := start; i < end; {
		var (
			stmt ast.Statement
			next int
			err  error
		)
		switch {
		case p.value(i+2, end) == "=" ||
			(p.value(i+1, end) == "<" && p.value(i+3, end) == ">" && p.value(i+5, end) == "="):
			stmt, next, err = p.parseDeclaration(i, end)
		case p.value(i+1, end) == "=" || p.value(i+1, end) == "[":
			stmt, next, err = p.parseAssignment(i, end)
		case p.value(i+1, end) == "(":
			stmt, next, err = p.parseFunctionCall(i, end)
		default:
			err = errors.NewAt("SYNTAX-0008", p.tokens[i].Span, map[string]any{"Token": p.tokens[i].Value})
		}
		if err != nil {
			return nil, err
		}
		statements = append(statements, stmt)
		i = next
	}
	return statements, nil
}

func (p *Parser) parseDeclaration(i, end int) (ast.Statement, int, error) {
	decl := &ast.Declaration{
		TypeName: p.tokens[i].Value,
		TypeSpan: p.tokens[i].Span,
	}
	nameAt := i + 1
	if p.value(i+1, end) == "<" && p.value(i+3, end) == ">" && p.value(i+5, end) == "=" {
		arg := p.tokens[i+2]
		decl.TypeArgument = &arg
		nameAt = i + 4
	}
	decl.Name = p.tokens[nameAt].Value
	decl.NameSpan = p.tokens[nameAt].Span

	eq := nameAt + 1
	value, next, err := p.parseExpression(eq+1, end)
	if err != nil {
		return nil, 0, err
	}
	if value == nil {
		return nil, 0, p.missingExpression(eq+1, eq, end)
	}
	decl.Initializer = value
	decl.Source = p.spanOf(i, next-1)
	return decl, next, nil
}

func (p *Parser) parseAssignment(i, end int) (ast.Statement, int, error) {
	assign := &ast.Assignment{
		Name:     p.tokens[i].Value,
		NameSpan: p.tokens[i].Span,
	}
	eq := i + 1
	if p.value(i+1, end) == "[" {
		close, err := p.matchBracket(i+1, end)
		if err != nil {
			return nil, 0, err
		}
		index, err := p.parseIndex(i+1, close)
		if err != nil {
			return nil, 0, err
		}
		assign.Index = index
		eq = close + 1
		if p.value(eq, end) != "=" {
			span := p.lastSpan(end)
			got := "end of input"
			if eq < end {
				span = p.tokens[eq].Span
				got = p.tokens[eq].Value
			}
			return nil, 0, errors.NewAt("SYNTAX-0002", span, map[string]any{"Expected": "=", "Got": got})
		}
	}

	value, next, err := p.parseExpression(eq+1, end)
	if err != nil {
		return nil, 0, err
	}
	if value == nil {
		return nil, 0, p.missingExpression(eq+1, eq, end)
	}
	assign.Value = value
	assign.Source = p.spanOf(i, next-1)
	return assign, next, nil
}

func (p *Parser) parseFunctionCall(i, end int) (ast.Statement, int, error) {
	call := &ast.FunctionCall{Name: p.tokens[i].Value}
	close, err := p.matchBracket(i+1, end)
	if err != nil {
		return nil, 0, err
	}
	call.Source = p.spanOf(i, close)

	args, err := p.parseList(i+1, close, "argument")
	if err != nil {
		return nil, 0, err
	}
	call.Arguments = args

	j := close + 1
	for j < end {
		name := ast.DefaultBlock
		open := j
		if p.value(j, end) != "{" {
			if !IsIdentifier(p.value(j, end)) || p.value(j+1, end) != "{" {
				break
			}
			name = p.tokens[j].Value
			open = j + 1
		}
		blockEnd, err := p.matchBracket(open, end)
		if err != nil {
			return nil, 0, err
		}
		body, err := p.parseStatements(open+1, blockEnd)
		if err != nil {
			return nil, 0, err
		}
		call.Blocks = append(call.Blocks, &ast.Block{
			Name:   name,
			Body:   body,
			Source: p.spanOf(j, blockEnd),
		})
		j = blockEnd + 1
	}
	return call, j, nil
}

// parseList parses the comma separated items between the brackets at open and
// close. Commas nested in brackets do not split.
func (p *Parser) parseList(open, close int, what string) ([]ast.Expression, error) {
	var items []ast.Expression
	if close == open+1 {
		return items, nil
	}

	start := open + 1
	for k := start; k <= close; k++ {
		v := p.tokens[k].Value
		if _, ok := closers[v]; ok && k < close {
			m, err := p.matchBracket(k, close)
			if err != nil {
				return nil, err
			}
			k = m
			continue
		}
		if v != "," && k != close {
			continue
		}
		if k == start {
			comma := k
			if v != "," {
				comma = k - 1
			}
			return nil, errors.NewAt("SYNTAX-0005", p.tokens[comma].Span, map[string]any{"Expected": what})
		}
		item, err := p.parseWhole(start, k)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
		start = k + 1
	}
	return items, nil
}

// parseWhole parses an expression that must span exactly [start, end).
func (p *Parser) parseWhole(start, end int) (ast.Expression, error) {
	expr, next, err := p.parseExpression(start, end)
	if err != nil {
		return nil, err
	}
	if expr == nil {
		return nil, errors.NewAt("SYNTAX-0006", p.tokens[start].Span, nil)
	}
	if next != end {
		return nil, errors.NewAt("SYNTAX-0010", p.tokens[next].Span, map[string]any{"Token": p.tokens[next].Value})
	}
	return expr, nil
}

// parseIndex parses the expression between the brackets at open and close.
func (p *Parser) parseIndex(open, close int) (ast.Expression, error) {
	if close == open+1 {
		return nil, errors.NewAt("SYNTAX-0007", p.spanOf(open, close), nil)
	}
	expr, next, err := p.parseExpression(open+1, close)
	if err != nil {
		return nil, err
	}
	if expr == nil || next != close {
		at := open + 1
		if expr != nil {
			at = next
		}
		return nil, errors.NewAt("SYNTAX-0007", p.tokens[at].Span, nil)
	}
	return expr, nil
}

func (p *Parser) missingExpression(at, after, end int) error {
	if at < end {
		return errors.NewAt("SYNTAX-0006", p.tokens[at].Span, nil)
	}
	return errors.NewAt("SYNTAX-0001", p.tokens[after].Span, map[string]any{"Expected": "expression after " + p.tokens[after].Value})
}

// parseExpression parses one expression starting at i. It returns a nil
// expression, without error, when the token at i cannot start one.
func (p *Parser) parseExpression(i, end int) (ast.Expression, int, error) {
	if i >= end {
		return nil, i, nil
	}
	tok := p.tokens[i]

	switch {
	case tok.Value == "(":
		return p.parseBinary(i, end)

	case tok.Value == "[":
		close, err := p.matchBracket(i, end)
		if err != nil {
			return nil, 0, err
		}
		items, err := p.parseList(i, close, "list item")
		if err != nil {
			return nil, 0, err
		}
		return &ast.ListLiteral{Items: items, Source: p.spanOf(i, close)}, close + 1, nil

	case numberPattern.MatchString(tok.Value):
		n, err := strconv.ParseInt(tok.Value, 10, 64)
		if err != nil {
			return nil, 0, errors.NewAt("SYNTAX-0009", tok.Span, map[string]any{"Literal": tok.Value})
		}
		return &ast.NumberLiteral{Value: n, Source: tok.Span}, i + 1, nil

	case IsIdentifier(tok.Value):
		v := &ast.VariableLiteral{Name: tok.Value, Source: tok.Span}
		if p.value(i+1, end) != "[" {
			return v, i + 1, nil
		}
		close, err := p.matchBracket(i+1, end)
		if err != nil {
			return nil, 0, err
		}
		index, err := p.parseIndex(i+1, close)
		if err != nil {
			return nil, 0, err
		}
		v.Index = index
		v.Source = p.spanOf(i, close)
		return v, close + 1, nil
	}

	return nil, i, nil
}

// item is a half-open token range forming one operand or operator.
type item struct{ start, end int }

// parseBinary parses `( left op right )` starting at the opening parenthesis.
func (p *Parser) parseBinary(open, end int) (ast.Expression, int, error) {
	close, err := p.matchBracket(open, end)
	if err != nil {
		return nil, 0, err
	}

	var items []item
	for k := open + 1; k < close; {
		s := k
		v := p.tokens[k].Value
		switch {
		case v == "(" || v == "[":
			m, err := p.matchBracket(k, close)
			if err != nil {
				return nil, 0, err
			}
			k = m + 1
		case IsIdentifier(v) && p.value(k+1, close) == "[":
			m, err := p.matchBracket(k+1, close)
			if err != nil {
				return nil, 0, err
			}
			k = m + 1
		default:
			k++
		}
		items = append(items, item{s, k})
	}

	if len(items) != 3 {
		at := p.tokens[close].Span
		if len(items) > 3 {
			at = p.tokens[items[3].start].Span
		}
		return nil, 0, errors.NewAt("SYNTAX-0003", at, map[string]any{"Count": len(items)})
	}

	opTok := p.tokens[items[1].start]
	op, ok := ast.Operators[opTok.Value]
	if !ok || items[1].end != items[1].start+1 {
		return nil, 0, errors.NewAt("SYNTAX-0004", opTok.Span, map[string]any{"Operator": opTok.Value})
	}

	left, err := p.parseWhole(items[0].start, items[0].end)
	if err != nil {
		return nil, 0, err
	}
	right, err := p.parseWhole(items[2].start, items[2].end)
	if err != nil {
		return nil, 0, err
	}

	return &ast.BinaryExpression{
		Operator: op,
		Left:     left,
		Right:    right,
		Source:   p.spanOf(open, close),
	}, close + 1, nil
}
