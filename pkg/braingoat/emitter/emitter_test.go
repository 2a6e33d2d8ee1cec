package emitter

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/sambeau/braingoat/pkg/braingoat/ast"
	"github.com/sambeau/braingoat/pkg/braingoat/errors"
	"github.com/sambeau/braingoat/pkg/braingoat/lexer"
	"github.com/sambeau/braingoat/pkg/braingoat/machine"
	"github.com/sambeau/braingoat/pkg/braingoat/parser"
)

func compile(t *testing.T, src string) *Emitter {
	t.Helper()
	program, err := parser.Parse(lexer.TokenizeString(src))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	e := New()
	if err := e.EmitProgram(program); err != nil {
		t.Fatalf("emit failed: %v", err)
	}
	return e
}

func run(t *testing.T, src, input string) string {
	t.Helper()
	code := compile(t, src).Code()
	out, err := machine.Run(context.Background(), code, []byte(input), machine.Config{MaxSteps: 100_000_000})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	return string(out)
}

func compileError(t *testing.T, src string) *errors.CompileFailure {
	t.Helper()
	program, err := parser.Parse(lexer.TokenizeString(src))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	err = New().EmitProgram(program)
	if err == nil {
		t.Fatalf("emit of %q succeeded, expected an error", src)
	}
	failure, ok := err.(*errors.CompileFailure)
	if !ok || failure.Kind != errors.CompileError {
		t.Fatalf("error = %v, want a CompileError", err)
	}
	return failure
}

func TestPrintConstant(t *testing.T) {
	if got := run(t, "Int a = 0\nprint(a)", ""); got != "\x00" {
		t.Errorf("output = %q, want a single zero byte", got)
	}
	if got := run(t, "print(65)", ""); got != "A" {
		t.Errorf("output = %q, want A", got)
	}
}

func TestAddVariables(t *testing.T) {
	got := run(t, "Int a = 2\nInt b = 3\nInt c = (a + b)\nprintN(c)", "")
	if got != "5" {
		t.Errorf("output = %q, want 5", got)
	}
}

var samples = []int{0, 1, 2, 3, 7, 10, 99, 128, 200, 255}

func binaryProgram(a, b int, op string) string {
	return fmt.Sprintf("Int a = %d\nInt b = %d\nInt c = (a %s b)\nprint(c)\nprint(a)\nprint(b)", a, b, op)
}

func TestArithmetic(t *testing.T) {
	ops := []struct {
		op   string
		eval func(a, b int) int
	}{
		{"+", func(a, b int) int { return a + b }},
		{"-", func(a, b int) int { return a - b }},
		{"*", func(a, b int) int { return a * b }},
		{"/", func(a, b int) int {
			if b == 0 {
				return 0
			}
			return a / b
		}},
	}

	for _, o := range ops {
		for _, a := range samples {
			for _, b := range samples {
				name := fmt.Sprintf("%d %s %d", a, o.op, b)
				t.Run(name, func(t *testing.T) {
					out := run(t, binaryProgram(a, b, o.op), "")
					want := byte(((o.eval(a, b) % 256) + 256) % 256)
					if len(out) != 3 {
						t.Fatalf("output = %v, want 3 bytes", []byte(out))
					}
					if out[0] != want {
						t.Errorf("result = %d, want %d", out[0], want)
					}
					if out[1] != byte(a) || out[2] != byte(b) {
						t.Errorf("operands changed to %d, %d", out[1], out[2])
					}
				})
			}
		}
	}
}

func TestPower(t *testing.T) {
	small := []int{0, 1, 2, 3, 5, 16}
	for _, a := range small {
		for _, b := range small {
			t.Run(fmt.Sprintf("%d ^ %d", a, b), func(t *testing.T) {
				want := 1
				for k := 0; k < b; k++ {
					want = (want * a) % 256
				}
				out := run(t, binaryProgram(a, b, "^"), "")
				if out[0] != byte(want) || out[1] != byte(a) || out[2] != byte(b) {
					t.Errorf("output = %v, want [%d %d %d]", []byte(out), want, a, b)
				}
			})
		}
	}
}

func TestComparisons(t *testing.T) {
	ops := []struct {
		op   string
		eval func(a, b int) bool
	}{
		{"==", func(a, b int) bool { return a == b }},
		{"!=", func(a, b int) bool { return a != b }},
		{"<", func(a, b int) bool { return a < b }},
		{"<=", func(a, b int) bool { return a <= b }},
		{">", func(a, b int) bool { return a > b }},
		{">=", func(a, b int) bool { return a >= b }},
	}
	values := []int{0, 1, 2, 9, 10, 200, 255}

	for _, o := range ops {
		for _, a := range values {
			for _, b := range values {
				t.Run(fmt.Sprintf("%d %s %d", a, o.op, b), func(t *testing.T) {
					out := run(t, binaryProgram(a, b, o.op), "")
					want := byte(0)
					if o.eval(a, b) {
						want = 1
					}
					if out[0] != want || out[1] != byte(a) || out[2] != byte(b) {
						t.Errorf("output = %v, want [%d %d %d]", []byte(out), want, a, b)
					}
				})
			}
		}
	}
}

func TestSelfReferencingOperands(t *testing.T) {
	tests := []struct {
		src      string
		expected string
	}{
		{"Int a = 7\na = (a + a)\nprintN(a)", "14"},
		{"Int a = 7\na = (a - a)\nprintN(a)", "0"},
		{"Int a = 7\na = (a * a)\nprintN(a)", "49"},
		{"Int a = 7\na = (a / a)\nprintN(a)", "1"},
		{"Int a = 3\na = (a ^ a)\nprintN(a)", "27"},
		{"Int a = 7\na = (a == a)\nprintN(a)", "1"},
		{"Int a = 7\na = a\nprintN(a)", "7"},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			if got := run(t, tt.src, ""); got != tt.expected {
				t.Errorf("output = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestCopySemantics(t *testing.T) {
	src := "Int a = 5\nInt b = a\na = 7\nprintN(b)\nprintN(a)"
	if got := run(t, src, ""); got != "57" {
		t.Errorf("output = %q, want 57", got)
	}
}

func TestNestedExpressions(t *testing.T) {
	src := "Int a = 4\nInt b = ((a * (a + 1)) - (20 / (a - 2)))\nprintN(b)"
	if got := run(t, src, ""); got != "10" {
		t.Errorf("output = %q, want 10", got)
	}
}

func TestPrintNEveryValue(t *testing.T) {
	src := `Int i = 0
Int more = 1
while(more) {
	printN(i)
	print(32)
	i = (i + 1)
	more = (i != 0)
}`
	var want strings.Builder
	for n := 0; n < 256; n++ {
		fmt.Fprintf(&want, "%d ", n)
	}
	if got := run(t, src, ""); got != want.String() {
		t.Errorf("output = %q, want %q", got, want.String())
	}
}

func TestInput(t *testing.T) {
	tests := []struct {
		src      string
		input    string
		expected string
	}{
		{"Int c = 0\ninput(c)\nprint(c)", "x", "x"},
		{"Int c = 9\ninput(c)\nprintN(c)", "", "0"},
		{"Int n = 0\ninputN(n)\nprintN(n)", "42", "42"},
		{"Int n = 0\ninputN(n)\nprintN(n)", "255\n", "255"},
		{"Int n = 0\ninputN(n)\nprintN(n)", "300", "44"},
		{"Int n = 0\ninputN(n)\nprintN(n)", "7x9", "7"},
		{"Int n = 5\ninputN(n)\nprintN(n)", "", "0"},
		{"IntList<3> k = [0,0,0]\ninput(k[1])\nprintN(k[1])", "A", "65"},
		{"IntList<3> k = [0,0,0]\nInt i = 2\ninputN(k[i])\nprintN(k)", "12", "0012"},
	}
	for _, tt := range tests {
		t.Run(tt.src+"/"+tt.input, func(t *testing.T) {
			if got := run(t, tt.src, tt.input); got != tt.expected {
				t.Errorf("output = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestListStaticAccess(t *testing.T) {
	src := "IntList<3> k = [1,2,3]\nk[0] = (k[1] + k[2])\nprintN(k)\nprint(k[0])"
	if got := run(t, src, ""); got != "523\x05" {
		t.Errorf("output = %q", got)
	}
}

func TestListDynamicIndex(t *testing.T) {
	values := []int{10, 20, 30, 40, 50, 60, 70}
	for i := range values {
		t.Run(fmt.Sprintf("read %d", i), func(t *testing.T) {
			src := fmt.Sprintf("IntList<7> k = [10,20,30,40,50,60,70]\nInt i = %d\nInt v = k[i]\nprint(v)\nprint(k)", i)
			out := run(t, src, "")
			want := string([]byte{byte(values[i]), 10, 20, 30, 40, 50, 60, 70})
			if out != want {
				t.Errorf("output = %v, want %v", []byte(out), []byte(want))
			}
		})
		t.Run(fmt.Sprintf("write %d", i), func(t *testing.T) {
			src := fmt.Sprintf("IntList<7> k = [10,20,30,40,50,60,70]\nInt i = %d\nk[i] = 99\nprint(k)", i)
			out := []byte(run(t, src, ""))
			for k, v := range values {
				want := byte(v)
				if k == i {
					want = 99
				}
				if out[k] != want {
					t.Errorf("element %d = %d, want %d", k, out[k], want)
				}
			}
		})
	}
}

func TestComputedIndexWrite(t *testing.T) {
	src := "IntList<3> k = [1,2,3]\nk[(1+1)] = 42\nprintN(k[2])"
	if got := run(t, src, ""); got != "42" {
		t.Errorf("output = %q, want 42", got)
	}
}

func TestListAssignment(t *testing.T) {
	src := "IntList<3> a = [1,2,3]\nIntList<3> b = a\na[0] = 9\nprintN(b)\nprintN(a)\nb = [(2 * 2), a[0], 6]\nprintN(b)"
	if got := run(t, src, ""); got != "123923496" {
		t.Errorf("output = %q, want 123923496", got)
	}
}

func TestIfElse(t *testing.T) {
	tests := []struct {
		cond     string
		expected string
	}{
		{"(a == 1)", "T"},
		{"(a == 2)", "F"},
		{"a", "T"},
		{"0", "F"},
	}
	for _, tt := range tests {
		t.Run(tt.cond, func(t *testing.T) {
			src := fmt.Sprintf("Int a = 1\nif(%s) { print(84) } else { print(70) }\nprint(33)", tt.cond)
			if got := run(t, src, ""); got != tt.expected+"!" {
				t.Errorf("output = %q, want %q", got, tt.expected+"!")
			}
		})
	}

	if got := run(t, "Int a = 3\nif(a) { printN(a) }\nif((a > 5)) { print(70) }", ""); got != "3" {
		t.Errorf("single branch output = %q, want 3", got)
	}
}

func TestWhileAndFor(t *testing.T) {
	tests := []struct {
		name     string
		src      string
		expected string
	}{
		{"countdown", "Int n = 5\nwhile(n) { printN(n) n = (n - 1) }", "54321"},
		{"never runs", "Int n = 0\nwhile(n) { print(88) }\nprint(46)", "."},
		{"for sum", "IntList<4> l = [1,2,3,4]\nInt el = 0\nInt sum = 0\nfor(el, l) { sum = (sum + el) }\nprintN(sum)", "10"},
		{"for copies", "IntList<3> l = [7,8,9]\nInt el = 0\nfor(el, l) { el = 0 }\nprintN(l)", "789"},
		{"nested", "Int i = 0\nInt j = 0\nwhile((i < 3)) { j = 0 while((j < i)) { printN(j) j = (j + 1) } print(47) i = (i + 1) }", "/0/01/"},
		{"declaration in loop", "Int i = 0\nwhile((i < 3)) { Int sq = (i * i) printN(sq) i = (i + 1) }", "014"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := run(t, tt.src, ""); got != tt.expected {
				t.Errorf("output = %q, want %q", got, tt.expected)
			}
		})
	}
}

const fibonacci = `Int n = 0
inputN(n)

Int fib = 0
Int last = 1
Int tmp = 0

Int i = 0
while((i < n)) {
  tmp = fib
  fib = (fib + last)
  last = tmp
  i = (i + 1)
}

printN(fib)
`

func TestFibonacci(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"0", "0"}, {"1", "1"}, {"2", "1"}, {"5", "5"},
		{"6", "8"}, {"10", "55"}, {"12", "144"}, {"13", "233"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := run(t, fibonacci, tt.input); got != tt.expected {
				t.Errorf("fib(%s) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

const selectionSort = `IntList<20> list = [4,2,4,2,6,9,5,3,6,8,1,6,3,5,8,9,6,3,2,4]

Int p_index = 0

Int tmp = 0
Int j = 0
Int i = 1

while ((j < 20)) {
  i = j
  p_index = (j + 1)
  while((i < 20)) {
    if((list[i] < list[p_index])) {
      p_index = i
    }
    i = (i + 1)
  }
  tmp = list[j]
  list[j] = list[p_index]
  list[p_index] = tmp
  j = (j + 1)
}

printN(list)
`

func TestSelectionSort(t *testing.T) {
	if got := run(t, selectionSort, ""); got != "12223334445566668899" {
		t.Errorf("output = %q", got)
	}
}

func TestOutputAlphabetAndBalance(t *testing.T) {
	for _, src := range []string{fibonacci, selectionSort} {
		code := compile(t, src).Code()
		depth := 0
		for i, c := range code {
			if !strings.ContainsRune(alphabet, c) {
				t.Fatalf("character %q at %d is outside the alphabet", c, i)
			}
			switch c {
			case '[':
				depth++
			case ']':
				depth--
			}
			if depth < 0 {
				t.Fatalf("unbalanced ] at %d", i)
			}
		}
		if depth != 0 {
			t.Errorf("%d unclosed brackets", depth)
		}
	}
}

func TestDeterministic(t *testing.T) {
	a := compile(t, selectionSort).Code()
	b := compile(t, selectionSort).Code()
	if a != b {
		t.Errorf("two compilations of the same source differ")
	}
}

func TestTemporariesReleased(t *testing.T) {
	e := compile(t, fibonacci)
	live := e.Memory().Live()
	if len(live) != 5 {
		t.Errorf("live regions = %v, want the 5 named variables", live)
	}
	vars := e.Variables()
	if len(vars) != 5 || vars[0].Name != "n" || vars[4].Name != "i" {
		t.Errorf("Variables() = %v", vars)
	}
}

func TestListClone(t *testing.T) {
	e := compile(t, "IntList<3> k = [4,5,6]")
	list := e.vars["k"].(*IntList)

	c := list.Clone()
	if c.Len() != 3 || c.Region().Overlaps(list.Region()) {
		t.Fatalf("clone %s overlaps %s", c.Region(), list.Region())
	}
	list.Element(0).SetConst(9)
	c.PrintN()
	list.PrintN()
	c.Destroy()

	out, err := machine.Run(context.Background(), e.Code(), nil, machine.Config{})
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != "456956" {
		t.Errorf("output = %q, want the clone unaffected by the write", out)
	}
	if live := e.Memory().Live(); len(live) != 1 {
		t.Errorf("live regions = %v, want only k", live)
	}
}

type unknownStatement struct{ *ast.Assignment }

type unknownExpression struct{ *ast.NumberLiteral }

func TestUnsupportedNodes(t *testing.T) {
	e := New()
	errs := []error{
		e.emitStatement(unknownStatement{&ast.Assignment{}}),
		e.emitExpression(e.newTemp(), unknownExpression{&ast.NumberLiteral{}}),
	}
	for i, err := range errs {
		f, ok := err.(*errors.CompileFailure)
		if !ok || f.Kind != errors.CompileError || f.Code != "COMPILE-0018" {
			t.Errorf("error %d = %v, want a catalogued CompileError", i, err)
			continue
		}
		if !strings.HasPrefix(f.Message, "Unsupported ") {
			t.Errorf("message %d = %q", i, f.Message)
		}
	}
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		src     string
		message string
	}{
		{"Int a = 1\nInt a = 2", "Redeclaration of variable a"},
		{"Float f = 1", "Float is no valid data type"},
		{"Int a = b", "Variable b is not defined"},
		{"prnt(1)", "prnt is no valid function"},
		{"if(1, 2) { }", "if expected 1 argument, got 2"},
		{"if(1)", "if expected 1 to 2 blocks, got 0"},
		{"while(1) { } { }", "while expected 1 block, got 2"},
		{"while(1)", "while expected 1 block, got 0"},
		{"print(1) { }", "print expected 0 blocks, got 1"},
		{"for(1) { }", "for expected 2 arguments, got 1"},
		{"if(1) { } otherwise { }", "if expected second block named else, got otherwise"},
		{"IntList k = [1]", "IntList expected a length type argument"},
		{"IntList<0> k = [1]", "0 is no valid length for IntList"},
		{"IntList<x> k = [1]", "x is no valid length for IntList"},
		{"IntList<256> k = [1]", "256 is no valid length for IntList"},
		{"Int<3> a = 1", "Int takes no type argument"},
		{"IntList<3> k = [1,2]", "A list of length 2 cannot be assigned to k with length 3"},
		{"IntList<3> k = [1,2,3]\nIntList<2> m = k", "A list of length 3 cannot be assigned to m with length 2"},
		{"IntList<3> k = [1,2,3]\nk[3] = 1", "Cannot access k with length 3 at index 3"},
		{"IntList<3> k = [1,2,3]\nInt a = k[5]", "Cannot access k with length 3 at index 5"},
		{"Int a = 1\na[0] = 1", "Int a cannot be indexed"},
		{"Int a = [1,2]", "List cannot be assigned to Int"},
		{"IntList<2> k = 5", "Number cannot be assigned to IntList<2>"},
		{"IntList<2> k = [1,2]\nInt a = k", "IntList<2> cannot be assigned to Int"},
		{"IntList<2> k = [1,2]\nk = (1 + 2)", "Int cannot be assigned to IntList<2>"},
		{"Int a = 1\nIntList<2> k = a", "Int cannot be assigned to IntList<2>"},
		{"IntList<2> k = [1,2]\ninput(k)", "input cannot read into IntList<2> k"},
		{"input(3)", "input can only be used with a variable as parameter"},
		{"Int a = 1\nInt b = 2\nfor(a, b) { }", "for expected IntList as argument 2, got Int"},
		{"IntList<2> k = [1,2]\nfor(k, k) { }", "for expected Int as argument 1, got IntList<2>"},
		{"IntList<2> k = [1,2]\nInt e = 0\nfor(e, k[0]) { }", "for can only be used with a variable as parameter"},
		{"while(1) { Int a = b }", "Variable b is not defined"},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			failure := compileError(t, tt.src)
			if failure.Message != tt.message {
				t.Errorf("Message = %q, want %q", failure.Message, tt.message)
			}
		})
	}
}

func TestCompileErrorSuggestions(t *testing.T) {
	failure := compileError(t, "Int count = 1\nprintN(cuont)")
	if len(failure.Hints) == 0 || failure.Hints[0] != "Did you mean `count`?" {
		t.Errorf("Hints = %v", failure.Hints)
	}
	if failure.Span.StartLine != 2 || failure.Span.StartCol != 7 {
		t.Errorf("Span = %v", failure.Span)
	}

	failure = compileError(t, "whlie(1) { }")
	if len(failure.Hints) == 0 || failure.Hints[0] != "Did you mean `while`?" {
		t.Errorf("Hints = %v", failure.Hints)
	}
}

func TestTrace(t *testing.T) {
	var lines []string
	program, err := parser.Parse(lexer.TokenizeString("Int a = (1 + 2)\nprint(a)"))
	if err != nil {
		t.Fatal(err)
	}
	e := New(WithTrace(func(s string) { lines = append(lines, s) }))
	if err := e.EmitProgram(program); err != nil {
		t.Fatal(err)
	}
	joined := strings.Join(lines, "\n")
	for _, want := range []string{`alloc Int "a"`, "apply +", "call print"} {
		if !strings.Contains(joined, want) {
			t.Errorf("trace missing %q:\n%s", want, joined)
		}
	}
}

func TestBuiltinMetadata(t *testing.T) {
	names := []string{}
	for _, b := range Builtins() {
		names = append(names, b.Name)
		if b.Description == "" || b.Example == "" {
			t.Errorf("builtin %s lacks documentation", b.Name)
		}
	}
	if strings.Join(names, ",") != "for,if,input,inputN,print,printN,while" {
		t.Errorf("Builtins() = %v", names)
	}
	if b, _ := LookupBuiltin("if"); b.Signature() != "if(condition) { ... } else { ... }" {
		t.Errorf("Signature() = %q", b.Signature())
	}
	if len(Types()) != 2 {
		t.Errorf("Types() = %v", Types())
	}
}
