package lexer

import (
	"strings"
	"testing"
)

func values(tokens []Token) []string {
	out := make([]string, len(tokens))
	for i, tok := range tokens {
		out[i] = tok.Value
	}
	return out
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		input    string
		expected []string
	}{
		{"Int a = 3", []string{"Int", "a", "=", "3"}},
		{"IntList<3> k = [1,2,3]", []string{"IntList", "<", "3", ">", "k", "=", "[", "1", ",", "2", ",", "3", "]"}},
		{"if((a<=b)){print(a)}", []string{"if", "(", "(", "a", "<=", "b", ")", ")", "{", "print", "(", "a", ")", "}"}},
		{"x = (a == b)", []string{"x", "=", "(", "a", "==", "b", ")"}},
		{"x = (a != b)", []string{"x", "=", "(", "a", "!=", "b", ")"}},
		{"/* note */ x = 1", []string{"/*", "note", "*/", "x", "=", "1"}},
		{"x = (a^b)", []string{"x", "=", "(", "a", "^", "b", ")"}},
		{"\tx\t=\t1\r", []string{"x", "=", "1"}},
		{"", nil},
		{"   ", nil},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := values(TokenizeString(tt.input))
			if strings.Join(got, "|") != strings.Join(tt.expected, "|") {
				t.Errorf("Tokenize(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestTokenizeSpans(t *testing.T) {
	tokens := Tokenize([]string{"Int a = 3", "  print(a)"})

	expected := []Token{
		{"Int", Span{1, 0, 1, 3}},
		{"a", Span{1, 4, 1, 5}},
		{"=", Span{1, 6, 1, 7}},
		{"3", Span{1, 8, 1, 9}},
		{"print", Span{2, 2, 2, 7}},
		{"(", Span{2, 7, 2, 8}},
		{"a", Span{2, 8, 2, 9}},
		{")", Span{2, 9, 2, 10}},
	}

	if len(tokens) != len(expected) {
		t.Fatalf("got %d tokens, want %d: %v", len(tokens), len(expected), tokens)
	}
	for i, want := range expected {
		if tokens[i] != want {
			t.Errorf("token %d = %v, want %v", i, tokens[i], want)
		}
	}
}

// Every non-whitespace character must land in exactly one token.
func TestTokenizeCoversSource(t *testing.T) {
	src := "IntList<20> list=[4,2]/*c*/while((i<n)){tmp=fib fib=(fib+last)}"
	tokens := TokenizeString(src)

	covered := make([]int, len(src))
	for _, tok := range tokens {
		for c := tok.Span.StartCol; c < tok.Span.EndCol; c++ {
			covered[c]++
		}
		if src[tok.Span.StartCol:tok.Span.EndCol] != tok.Value {
			t.Errorf("token %v does not match source text", tok)
		}
	}
	for i, n := range covered {
		if src[i] != ' ' && n != 1 {
			t.Errorf("column %d (%q) covered %d times", i, src[i], n)
		}
	}
}

func TestSpanMerge(t *testing.T) {
	a := Span{StartLine: 1, StartCol: 4, EndLine: 1, EndCol: 6}
	b := Span{StartLine: 2, StartCol: 0, EndLine: 2, EndCol: 3}

	got := a.Merge(b)
	want := Span{StartLine: 1, StartCol: 4, EndLine: 2, EndCol: 3}
	if got != want {
		t.Errorf("Merge = %v, want %v", got, want)
	}
	if (Span{}).Merge(a) != a {
		t.Errorf("zero span merge should return the other span")
	}
}
