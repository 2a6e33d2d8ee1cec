// Package lexer splits goat source text into positioned tokens.
//
// The lexer never fails: every character of the input ends up in exactly one
// token, and whitespace-only tokens are dropped.
package lexer

import (
	"fmt"
	"strings"
)

// Span locates a token or node in the source. Lines are 1-based, columns are
// 0-based byte offsets and EndCol is exclusive.
type Span struct {
	StartLine int `json:"startLine"`
	StartCol  int `json:"startCol"`
	EndLine   int `json:"endLine"`
	EndCol    int `json:"endCol"`
}

// IsZero reports whether the span carries no position.
func (s Span) IsZero() bool {
	return s.StartLine == 0
}

// Merge returns the span covering both s and other.
func (s Span) Merge(other Span) Span {
	if s.IsZero() {
		return other
	}
	if other.IsZero() {
		return s
	}
	out := s
	if other.StartLine < out.StartLine || (other.StartLine == out.StartLine && other.StartCol < out.StartCol) {
		out.StartLine, out.StartCol = other.StartLine, other.StartCol
	}
	if other.EndLine > out.EndLine || (other.EndLine == out.EndLine && other.EndCol > out.EndCol) {
		out.EndLine, out.EndCol = other.EndLine, other.EndCol
	}
	return out
}

func (s Span) String() string {
	return fmt.Sprintf("L%d:%d-%d", s.StartLine, s.StartCol, s.EndCol)
}

// Token is an immutable piece of source text with its position.
type Token struct {
	Value string `json:"value"`
	Span  Span   `json:"span"`
}

func (t Token) String() string {
	return fmt.Sprintf("%q@%s", t.Value, t.Span)
}

// delimiters are tried longest first at every column.
var delimiters = []string{
	"/*", "*/", "==", "!=", "<=", ">=",
	" ", "\t", "\r",
	"(", ")", "{", "}", "[", "]", ",",
	"<", ">", "=", "+", "-", "*", "/", "^",
}

// TokenizeString splits src into lines and tokenizes them.
func TokenizeString(src string) []Token {
	return Tokenize(strings.Split(src, "\n"))
}

// Tokenize produces the token sequence for the given source lines.
func Tokenize(lines []string) []Token {
	var tokens []Token
	for i, line := range lines {
		lineNo := i + 1
		emit := func(start, end int) {
			text := line[start:end]
			if strings.TrimSpace(text) == "" {
				return
			}
			tokens = append(tokens, Token{
				Value: text,
				Span:  Span{StartLine: lineNo, StartCol: start, EndLine: lineNo, EndCol: end},
			})
		}

		start := 0
		for col := 0; col < len(line); {
			d := delimiterAt(line, col)
			if d == "" {
				col++
				continue
			}
			emit(start, col)
			emit(col, col+len(d))
			col += len(d)
			start = col
		}
		emit(start, len(line))
	}
	return tokens
}

func delimiterAt(line string, col int) string {
	for _, d := range delimiters {
		if strings.HasPrefix(line[col:], d) {
			return d
		}
	}
	return ""
}
