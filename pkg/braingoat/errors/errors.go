// Package errors provides the structured failure type of the goat compiler.
//
// Every failure is either a SyntaxError (raised while parsing) or a
// CompileError (raised while emitting code). Failures carry the source span
// they refer to so they can be rendered as a caret diagnostic.
package errors

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"text/template"

	"github.com/sambeau/braingoat/pkg/braingoat/lexer"
)

// Kind is the failure category shown in diagnostics.
type Kind string

const (
	SyntaxError  Kind = "SyntaxError"
	CompileError Kind = "CompileError"
)

// CompileFailure is the single error type returned by the compiler.
type CompileFailure struct {
	Kind    Kind           `json:"kind"`
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Hints   []string       `json:"hints,omitempty"`
	Span    lexer.Span     `json:"span"`
	File    string         `json:"file,omitempty"`
	Data    map[string]any `json:"data,omitempty"`
}

// Error implements the error interface.
func (e *CompileFailure) Error() string {
	var sb strings.Builder
	if e.File != "" {
		sb.WriteString(e.File)
		sb.WriteString(": ")
	}
	if !e.Span.IsZero() {
		sb.WriteString(e.Span.String())
		sb.WriteString(": ")
	}
	sb.WriteString(string(e.Kind))
	sb.WriteString(": ")
	sb.WriteString(e.Message)
	return sb.String()
}

// Render formats the failure as a diagnostic against the source lines: the
// line before the failure, the failing line, a caret line with the location
// and the message indented to the failing column.
func (e *CompileFailure) Render(lines []string) string {
	if e.Span.IsZero() || e.Span.StartLine > len(lines) {
		var sb strings.Builder
		sb.WriteString(string(e.Kind) + ": " + e.Message)
		for _, hint := range e.Hints {
			sb.WriteString("\n" + hint)
		}
		return sb.String()
	}

	s := e.Span
	var sb strings.Builder
	if s.StartLine >= 2 {
		sb.WriteString(lines[s.StartLine-2])
		sb.WriteString("\n")
	}
	sb.WriteString(lines[s.StartLine-1])
	sb.WriteString("\n")

	end := s.EndCol
	if s.EndLine != s.StartLine {
		end = len(lines[s.StartLine-1])
	}
	width := max(end-s.StartCol, 1)
	indent := strings.Repeat(" ", s.StartCol)

	sb.WriteString(indent)
	sb.WriteString(strings.Repeat("^", width))
	sb.WriteString(fmt.Sprintf(" L%d:%d-%d\n", s.StartLine, s.StartCol, s.EndCol))
	sb.WriteString(indent)
	sb.WriteString(string(e.Kind) + ": " + e.Message)
	for _, hint := range e.Hints {
		sb.WriteString("\n" + indent + hint)
	}
	return sb.String()
}

// RenderSource is Render for a source string.
func (e *CompileFailure) RenderSource(src string) string {
	return e.Render(strings.Split(src, "\n"))
}

// ToJSON returns the failure as JSON bytes.
func (e *CompileFailure) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// WithFile returns a copy of the failure with the file path set.
func (e *CompileFailure) WithFile(file string) *CompileFailure {
	copy := *e
	copy.File = file
	return &copy
}

// At returns a copy of the failure located at span.
func (e *CompileFailure) At(span lexer.Span) *CompileFailure {
	copy := *e
	copy.Span = span
	return &copy
}

// ErrorDef defines an error in the catalog.
type ErrorDef struct {
	Kind     Kind
	Template string   // Message template with {{.placeholders}}
	Hints    []string // Hint templates
}

// ErrorCatalog maps error codes to their definitions.
var ErrorCatalog = map[string]ErrorDef{
	// ========================================
	// Syntax errors (SYNTAX-0xxx)
	// ========================================
	"SYNTAX-0001": {
		Kind:     SyntaxError,
		Template: "Expected {{.Expected}}",
	},
	"SYNTAX-0002": {
		Kind:     SyntaxError,
		Template: "Expected {{.Expected}}, got {{.Got}}",
	},
	"SYNTAX-0003": {
		Kind:     SyntaxError,
		Template: "expressions allow exactly two operands, got {{.Count}} items",
		Hints:    []string{"Nest expressions in parentheses: ((a + b) + c)"},
	},
	"SYNTAX-0004": {
		Kind:     SyntaxError,
		Template: "Invalid operator {{.Operator}}",
	},
	"SYNTAX-0005": {
		Kind:     SyntaxError,
		Template: "Unexpected token , expected {{.Expected}}",
	},
	"SYNTAX-0006": {
		Kind:     SyntaxError,
		Template: "Invalid expression",
	},
	"SYNTAX-0007": {
		Kind:     SyntaxError,
		Template: "Invalid expression at index",
	},
	"SYNTAX-0008": {
		Kind:     SyntaxError,
		Template: "Unrecognized statement \"{{.Token}}\"",
	},
	"SYNTAX-0009": {
		Kind:     SyntaxError,
		Template: "Invalid number {{.Literal}}",
	},
	"SYNTAX-0010": {
		Kind:     SyntaxError,
		Template: "Unexpected {{.Token}}",
	},

	// ========================================
	// Compile errors (COMPILE-0xxx)
	// ========================================
	"COMPILE-0001": {
		Kind:     CompileError,
		Template: "{{.Name}} is no valid variable name",
		Hints:    []string{"Variable names start with a letter or _ followed by letters, digits or _"},
	},
	"COMPILE-0002": {
		Kind:     CompileError,
		Template: "{{.Type}} is no valid data type",
	},
	"COMPILE-0003": {
		Kind:     CompileError,
		Template: "Redeclaration of variable {{.Name}}",
	},
	"COMPILE-0004": {
		Kind:     CompileError,
		Template: "Variable {{.Name}} is not defined",
	},
	"COMPILE-0005": {
		Kind:     CompileError,
		Template: "{{.Name}} is no valid function",
	},
	"COMPILE-0006": {
		Kind:     CompileError,
		Template: "{{.Function}} expected {{.Expected}} {{.What}}, got {{.Got}}",
	},
	"COMPILE-0007": {
		Kind:     CompileError,
		Template: "{{.Source}} cannot be assigned to {{.Target}}",
	},
	"COMPILE-0008": {
		Kind:     CompileError,
		Template: "{{.Type}} expected a length type argument",
		Hints:    []string{"{{.Type}}<3> {{.Name}} = [0, 0, 0]"},
	},
	"COMPILE-0009": {
		Kind:     CompileError,
		Template: "{{.Value}} is no valid length for {{.Type}}",
		Hints:    []string{"Lengths range from 1 to 255"},
	},
	"COMPILE-0010": {
		Kind:     CompileError,
		Template: "A list of length {{.Got}} cannot be assigned to {{.Name}} with length {{.Length}}",
	},
	"COMPILE-0011": {
		Kind:     CompileError,
		Template: "Cannot access {{.Name}} with length {{.Length}} at index {{.Index}}",
	},
	"COMPILE-0012": {
		Kind:     CompileError,
		Template: "{{.Type}} {{.Name}} cannot be indexed",
	},
	"COMPILE-0013": {
		Kind:     CompileError,
		Template: "{{.Function}} expected second block named else, got {{.Got}}",
	},
	"COMPILE-0014": {
		Kind:     CompileError,
		Template: "{{.Function}} can only be used with a variable as parameter",
	},
	"COMPILE-0015": {
		Kind:     CompileError,
		Template: "{{.Function}} expected {{.Expected}} as argument {{.Position}}, got {{.Got}}",
	},
	"COMPILE-0016": {
		Kind:     CompileError,
		Template: "{{.Type}} takes no type argument",
	},
	"COMPILE-0017": {
		Kind:     CompileError,
		Template: "{{.Function}} cannot read into {{.Type}} {{.Name}}",
		Hints:    []string{"Read into a single element instead: {{.Function}}({{.Name}}[0])"},
	},
	"COMPILE-0018": {
		Kind:     CompileError,
		Template: "Unsupported {{.What}} {{.Node}}",
	},
}

// New creates a CompileFailure from the catalog.
// If the code is not found, creates a CompileError with the message.
func New(code string, data map[string]any) *CompileFailure {
	def, ok := ErrorCatalog[code]
	if !ok {
		msg := code
		if data != nil {
			if m, ok := data["message"].(string); ok {
				msg = m
			}
		}
		return &CompileFailure{
			Kind:    CompileError,
			Code:    code,
			Message: msg,
			Data:    data,
		}
	}

	msg := renderTemplate(def.Template, data)

	var hints []string
	for _, hintTmpl := range def.Hints {
		rendered := renderTemplate(hintTmpl, data)
		if rendered != "" {
			hints = append(hints, rendered)
		}
	}

	return &CompileFailure{
		Kind:    def.Kind,
		Code:    code,
		Message: msg,
		Hints:   hints,
		Data:    data,
	}
}

// NewAt creates a CompileFailure from the catalog located at span.
func NewAt(code string, span lexer.Span, data map[string]any) *CompileFailure {
	err := New(code, data)
	err.Span = span
	return err
}

// renderTemplate renders a Go template with the given data.
func renderTemplate(tmplStr string, data map[string]any) string {
	if data == nil {
		return tmplStr
	}

	tmpl, err := template.New("").Parse(tmplStr)
	if err != nil {
		return tmplStr
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return tmplStr
	}

	return buf.String()
}

// ============================================================================
// Fuzzy Matching - "Did you mean?" suggestions
// ============================================================================

// levenshteinDistance computes the edit distance between two strings.
func levenshteinDistance(a, b string) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		cur[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 0
			if a[i-1] != b[j-1] {
				cost = 1
			}
			cur[j] = min(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}

// FindClosestMatch returns the candidate closest to input, or "" when none is
// within the edit threshold. Short inputs allow one edit, medium inputs two
// and long inputs three.
func FindClosestMatch(input string, candidates []string) string {
	if len(input) == 0 || len(candidates) == 0 {
		return ""
	}

	sorted := append([]string(nil), candidates...)
	sort.Strings(sorted)

	inputLower := strings.ToLower(input)
	bestMatch := ""
	bestDistance := -1
	for _, candidate := range sorted {
		dist := levenshteinDistance(inputLower, strings.ToLower(candidate))
		if bestDistance == -1 || dist < bestDistance {
			bestDistance = dist
			bestMatch = candidate
		}
	}

	threshold := 1
	if len(input) >= 4 && len(input) <= 6 {
		threshold = 2
	} else if len(input) >= 7 {
		threshold = 3
	}

	if bestDistance <= 0 || bestDistance > threshold {
		return ""
	}
	return bestMatch
}

// WithSuggestion appends a "Did you mean" hint when a close candidate exists.
func (e *CompileFailure) WithSuggestion(input string, candidates []string) *CompileFailure {
	if suggestion := FindClosestMatch(input, candidates); suggestion != "" {
		e.Hints = append(e.Hints, "Did you mean `"+suggestion+"`?")
	}
	return e
}

// IsSyntaxError reports whether err is a SyntaxError failure.
func IsSyntaxError(err error) bool {
	f, ok := err.(*CompileFailure)
	return ok && f.Kind == SyntaxError
}

// IsCompileError reports whether err is a CompileError failure.
func IsCompileError(err error) bool {
	f, ok := err.(*CompileFailure)
	return ok && f.Kind == CompileError
}
