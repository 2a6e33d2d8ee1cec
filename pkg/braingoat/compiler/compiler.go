// Package compiler provides the public API of the goat to tape machine
// compiler.
//
// Basic usage:
//
//	code, err := compiler.Compile(`Int a = (2 + 3) printN(a)`)
//	if err != nil {
//		// err is an *errors.CompileFailure
//	}
//
// CompileSource exposes statistics and the variable layout, and accepts
// options for tracing.
package compiler

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/sambeau/braingoat/pkg/braingoat/emitter"
	"github.com/sambeau/braingoat/pkg/braingoat/errors"
	"github.com/sambeau/braingoat/pkg/braingoat/lexer"
	"github.com/sambeau/braingoat/pkg/braingoat/parser"
)

// Version is the compiler version reported by the CLI.
const Version = "0.4.0"

// Options configures a compilation.
type Options struct {
	// File names the source in diagnostics.
	File string
	// Logger receives allocation and builtin trace lines when Trace is set.
	Logger Logger
	Trace  bool
}

// Result is a successful compilation.
type Result struct {
	Code      string
	Stats     Stats
	Variables []emitter.VariableInfo
}

// Stats summarises an emitted program.
type Stats struct {
	Instructions int          `json:"instructions"`
	PeakCells    int          `json:"peak_cells"`
	Variables    int          `json:"variables"`
	Counts       map[rune]int `json:"counts"`
}

// Compile translates goat source into tape machine code.
func Compile(source string) (string, error) {
	res, err := CompileSource(source, Options{})
	if err != nil {
		return "", err
	}
	return res.Code, nil
}

// CompileSource compiles source with the given options. Errors are always
// *errors.CompileFailure values.
func CompileSource(source string, opts Options) (*Result, error) {
	log := opts.Logger
	if log == nil {
		log = NullLogger()
	}

	program, err := parser.Parse(lexer.TokenizeString(source))
	if err != nil {
		return nil, withFile(err, opts.File)
	}

	var emitOpts []emitter.Option
	if opts.Trace {
		trace := Prefixed(log, "[TRACE]")
		emitOpts = append(emitOpts, emitter.WithTrace(func(line string) { trace.LogLine(line) }))
	}
	e := emitter.New(emitOpts...)
	if err := e.EmitProgram(program); err != nil {
		return nil, withFile(err, opts.File)
	}

	code := e.Code()
	vars := e.Variables()
	return &Result{
		Code:      code,
		Variables: vars,
		Stats: Stats{
			Instructions: len(code),
			PeakCells:    e.Memory().Peak(),
			Variables:    len(vars),
			Counts:       countInstructions(code),
		},
	}, nil
}

// CompileFile reads and compiles a source file. Compile errors carry the
// file name.
func CompileFile(path string, opts Options) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if opts.File == "" {
		opts.File = path
	}
	return CompileSource(string(data), opts)
}

func withFile(err error, file string) error {
	if f, ok := err.(*errors.CompileFailure); ok && file != "" {
		return f.WithFile(file)
	}
	return err
}

func countInstructions(code string) map[rune]int {
	counts := make(map[rune]int, 8)
	for _, c := range code {
		counts[c]++
	}
	return counts
}

// Format renders the statistics using the number formatting of tag.
func (s Stats) Format(tag language.Tag) string {
	p := message.NewPrinter(tag)
	var b strings.Builder
	p.Fprintf(&b, "instructions: %d\n", s.Instructions)
	p.Fprintf(&b, "peak cells:   %d\n", s.PeakCells)
	p.Fprintf(&b, "variables:    %d\n", s.Variables)
	for _, c := range "+-<>[].," {
		p.Fprintf(&b, "  %c %d\n", c, s.Counts[c])
	}
	return b.String()
}

// ParseLocale parses a BCP 47 tag, falling back to English.
func ParseLocale(s string) language.Tag {
	if s == "" {
		return language.English
	}
	tag, err := language.Parse(s)
	if err != nil {
		return language.English
	}
	return tag
}
