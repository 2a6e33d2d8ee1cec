// Package machine executes programs for the eight-instruction tape machine
// the compiler targets: byte cells that wrap, one data pointer, and the
// instructions + - < > [ ] . , (every other character is ignored).
package machine

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

var (
	ErrUnbalanced    = errors.New("unbalanced brackets")
	ErrTapeUnderflow = errors.New("pointer moved left of cell 0")
	ErrTapeOverflow  = errors.New("pointer moved past the end of the tape")
	ErrStepLimit     = errors.New("step limit exceeded")
)

// EOFMode selects what `,` stores once the input is exhausted.
type EOFMode int

const (
	EOFZero      EOFMode = iota // store 0
	EOFUnchanged                // leave the cell as it is
	EOFMax                      // store 255
)

// ParseEOFMode converts a configuration string to an EOFMode.
func ParseEOFMode(s string) (EOFMode, error) {
	switch strings.ToLower(s) {
	case "", "zero", "0":
		return EOFZero, nil
	case "unchanged", "none":
		return EOFUnchanged, nil
	case "max", "255", "-1":
		return EOFMax, nil
	}
	return EOFZero, fmt.Errorf("unknown eof mode %q (use zero, unchanged or max)", s)
}

func (m EOFMode) String() string {
	switch m {
	case EOFUnchanged:
		return "unchanged"
	case EOFMax:
		return "max"
	}
	return "zero"
}

type opcode byte

const (
	opAdd opcode = iota
	opMove
	opOut
	opIn
	opOpen
	opClose
	opClear
)

type instruction struct {
	op  opcode
	arg int // delta for add/move, jump target for brackets
}

// Program is a loaded program with resolved jumps.
type Program struct {
	code []instruction
}

// Len returns the number of compressed instructions.
func (p *Program) Len() int { return len(p.code) }

// Load parses program text. Runs of + - < > are folded and [-] becomes a
// single clear instruction.
func Load(src string) (*Program, error) {
	var code []instruction
	var stack []int

	for i := 0; i < len(src); i++ {
		c := src[i]
		switch c {
		case '+', '-', '<', '>':
			op, delta := opAdd, 1
			if c == '<' || c == '>' {
				op = opMove
			}
			if c == '-' || c == '<' {
				delta = -1
			}
			if n := len(code); n > 0 && code[n-1].op == op {
				code[n-1].arg += delta
			} else {
				code = append(code, instruction{op: op, arg: delta})
			}
		case '.':
			code = append(code, instruction{op: opOut})
		case ',':
			code = append(code, instruction{op: opIn})
		case '[':
			if strings.HasPrefix(src[i:], "[-]") || strings.HasPrefix(src[i:], "[+]") {
				code = append(code, instruction{op: opClear})
				i += 2
				continue
			}
			stack = append(stack, len(code))
			code = append(code, instruction{op: opOpen})
		case ']':
			if len(stack) == 0 {
				return nil, fmt.Errorf("%w: unmatched ] at offset %d", ErrUnbalanced, i)
			}
			open := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			code[open].arg = len(code)
			code = append(code, instruction{op: opClose, arg: open})
		}
	}
	if len(stack) > 0 {
		return nil, fmt.Errorf("%w: %d unmatched [", ErrUnbalanced, len(stack))
	}
	return &Program{code: code}, nil
}

// Config controls the machine's limits.
type Config struct {
	TapeSize int     // 0 grows the tape without bound
	EOF      EOFMode // behaviour of `,` at end of input
	MaxSteps int64   // 0 means unlimited
}

// Machine is the state of one execution.
type Machine struct {
	cfg     Config
	Tape    []byte
	Pointer int
	Steps   int64

	in  *bufio.Reader
	out *bufio.Writer
}

// New creates a machine reading from in and writing to out. Either may be nil.
func New(cfg Config, in io.Reader, out io.Writer) *Machine {
	if in == nil {
		in = strings.NewReader("")
	}
	if out == nil {
		out = io.Discard
	}
	size := 64
	if cfg.TapeSize > 0 && cfg.TapeSize < size {
		size = cfg.TapeSize
	}
	return &Machine{
		cfg:  cfg,
		Tape: make([]byte, size),
		in:   bufio.NewReader(in),
		out:  bufio.NewWriter(out),
	}
}

const cancelCheckInterval = 1 << 14

// Run executes p until it ends, fails, or ctx is cancelled. Output is flushed
// before Run returns.
func (m *Machine) Run(ctx context.Context, p *Program) (err error) {
	defer func() {
		if ferr := m.out.Flush(); err == nil {
			err = ferr
		}
	}()

	code := p.code
	for pc := 0; pc < len(code); pc++ {
		m.Steps++
		if m.cfg.MaxSteps > 0 && m.Steps > m.cfg.MaxSteps {
			return fmt.Errorf("%w (%d)", ErrStepLimit, m.cfg.MaxSteps)
		}
		if m.Steps%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}

		ins := code[pc]
		switch ins.op {
		case opAdd:
			m.Tape[m.Pointer] += byte(ins.arg)
		case opMove:
			if err := m.move(ins.arg); err != nil {
				return err
			}
		case opClear:
			m.Tape[m.Pointer] = 0
		case opOut:
			if err := m.out.WriteByte(m.Tape[m.Pointer]); err != nil {
				return err
			}
		case opIn:
			if err := m.out.Flush(); err != nil {
				return err
			}
			b, err := m.in.ReadByte()
			switch {
			case err == io.EOF:
				switch m.cfg.EOF {
				case EOFZero:
					m.Tape[m.Pointer] = 0
				case EOFMax:
					m.Tape[m.Pointer] = 255
				}
			case err != nil:
				return err
			default:
				m.Tape[m.Pointer] = b
			}
		case opOpen:
			if m.Tape[m.Pointer] == 0 {
				pc = ins.arg
			}
		case opClose:
			if m.Tape[m.Pointer] != 0 {
				pc = ins.arg
			}
		}
	}
	return nil
}

func (m *Machine) move(delta int) error {
	p := m.Pointer + delta
	if p < 0 {
		return ErrTapeUnderflow
	}
	if m.cfg.TapeSize > 0 && p >= m.cfg.TapeSize {
		return fmt.Errorf("%w (%d cells)", ErrTapeOverflow, m.cfg.TapeSize)
	}
	if p >= len(m.Tape) {
		size := max(len(m.Tape)*2, p+1)
		if m.cfg.TapeSize > 0 {
			size = min(size, m.cfg.TapeSize)
		}
		grown := make([]byte, size)
		copy(grown, m.Tape)
		m.Tape = grown
	}
	m.Pointer = p
	return nil
}

// Run loads and executes src with the given input and returns its output.
func Run(ctx context.Context, src string, input []byte, cfg Config) ([]byte, error) {
	p, err := Load(src)
	if err != nil {
		return nil, err
	}
	var out strings.Builder
	m := New(cfg, strings.NewReader(string(input)), &out)
	err = m.Run(ctx, p)
	return []byte(out.String()), err
}
