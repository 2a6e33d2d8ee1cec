package repl

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/sambeau/braingoat/pkg/braingoat/compiler"
	"github.com/sambeau/braingoat/pkg/braingoat/errors"
	"github.com/sambeau/braingoat/pkg/braingoat/machine"
)

// Session accumulates the statements entered so far. Every new input is
// compiled together with the accepted history and the whole program is run
// again; only output beyond what the previous run printed is reported.
type Session struct {
	Machine machine.Config

	lines  []string
	input  []byte
	output []byte
	last   *compiler.Result
}

// NewSession creates an empty session running programs with cfg.
func NewSession(cfg machine.Config) *Session {
	return &Session{Machine: cfg}
}

// Eval compiles the session plus src and runs it. On a compile error the
// session is unchanged and the error is returned rendered against the new
// input.
func (s *Session) Eval(ctx context.Context, src string) (string, error) {
	source := strings.Join(append(append([]string(nil), s.lines...), src), "\n")
	res, err := compiler.CompileSource(source, compiler.Options{})
	if err != nil {
		if f, ok := err.(*errors.CompileFailure); ok {
			return "", fmt.Errorf("%s", f.RenderSource(source))
		}
		return "", err
	}

	out, err := machine.Run(ctx, res.Code, s.input, s.Machine)
	if err != nil {
		return "", fmt.Errorf("runtime: %w", err)
	}

	s.lines = append(s.lines, src)
	s.last = res
	delta := out
	if bytes.HasPrefix(out, s.output) {
		delta = out[len(s.output):]
	}
	s.output = out
	return string(delta), nil
}

// SetInput replaces the bytes fed to the program's input and reruns the
// session from scratch on the next Eval.
func (s *Session) SetInput(input string) {
	s.input = []byte(input)
	s.output = nil
}

// Reset forgets every accepted statement.
func (s *Session) Reset() {
	s.lines = nil
	s.output = nil
	s.last = nil
}

// Source returns the accepted program.
func (s *Session) Source() string { return strings.Join(s.lines, "\n") }

// Last returns the result of the most recent successful compile, or nil.
func (s *Session) Last() *compiler.Result { return s.last }
