package help

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestDescribeTopic(t *testing.T) {
	tests := []struct {
		topic    string
		kind     string
		name     string
		contains string
	}{
		{"while", "builtin", "while", "while(condition) { ... }"},
		{"if", "builtin", "if", "else { ... }"},
		{"printN", "builtin", "printN", "decimal"},
		{"IntList", "type", "IntList", "IntList<N> name"},
		{"Int", "type", "Int", "256"},
		{"<=", "operator", "<=", "(a <= b)"},
		{"/", "operator", "/", "yields 0"},
		{"builtins", "builtin-list", "builtins", "inputN(variable)"},
		{"types", "type-list", "types", "IntList<N>"},
		{"operators", "operator-list", "operators", "comparison"},
		{"  for  ", "builtin", "for", "for(element, list)"},
	}

	for _, tt := range tests {
		t.Run(tt.topic, func(t *testing.T) {
			result, err := DescribeTopic(tt.topic)
			if err != nil {
				t.Fatalf("DescribeTopic(%q) error = %v", tt.topic, err)
			}
			if result.Kind != tt.kind || result.Name != tt.name {
				t.Errorf("got kind %q name %q, want %q %q", result.Kind, result.Name, tt.kind, tt.name)
			}
			if text := FormatText(result, 80); !strings.Contains(text, tt.contains) {
				t.Errorf("FormatText() missing %q:\n%s", tt.contains, text)
			}
		})
	}
}

func TestDescribeTopicErrors(t *testing.T) {
	if _, err := DescribeTopic(""); err == nil {
		t.Error("expected error for empty topic")
	}

	_, err := DescribeTopic("whiel")
	if err == nil || !strings.Contains(err.Error(), "Did you mean: while?") {
		t.Errorf("error = %v", err)
	}

	_, err = DescribeTopic("xyzzyplugh")
	if err == nil || !strings.Contains(err.Error(), "Try:") {
		t.Errorf("error = %v", err)
	}
}

func TestOperatorOrder(t *testing.T) {
	result, _ := DescribeTopic("operators")
	var symbols []string
	for _, op := range result.Operators {
		symbols = append(symbols, op.Symbol)
	}
	if got := strings.Join(symbols, " "); got != "+ - * / ^ == != < <= > >=" {
		t.Errorf("operators = %s", got)
	}
}

func TestFormatJSON(t *testing.T) {
	result, _ := DescribeTopic("input")
	data, err := FormatJSON(result)
	if err != nil {
		t.Fatal(err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded["kind"] != "builtin" || decoded["category"] != "io" {
		t.Errorf("decoded = %v", decoded)
	}
	if _, ok := decoded["builtins"]; ok {
		t.Error("empty lists should be omitted")
	}
}

func TestFormatHTML(t *testing.T) {
	result, _ := DescribeTopic("builtins")
	html, err := FormatHTML(result)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"<h1>Builtins</h1>", "<table>", "<code>while(condition) { ... }</code>"} {
		if !strings.Contains(html, want) {
			t.Errorf("HTML missing %q:\n%s", want, html)
		}
	}

	result, _ = DescribeTopic("IntList")
	html, err = FormatHTML(result)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(html, "<pre><code>IntList&lt;3&gt; k") {
		t.Errorf("HTML missing example:\n%s", html)
	}
}

func TestWriteWrapped(t *testing.T) {
	var sb strings.Builder
	writeWrapped(&sb, "one two three four", "  ", 10)
	if got := sb.String(); got != "  one two\n  three\n  four\n" {
		t.Errorf("writeWrapped() = %q", got)
	}
}
