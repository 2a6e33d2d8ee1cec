// Package repl implements the interactive braingoat shell. Each entered
// statement is compiled with everything accepted before it and the program
// is run on the reference machine.
package repl

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"

	"github.com/sambeau/braingoat/pkg/braingoat/compiler"
	"github.com/sambeau/braingoat/pkg/braingoat/emitter"
	"github.com/sambeau/braingoat/pkg/braingoat/help"
	"github.com/sambeau/braingoat/pkg/braingoat/machine"
)

const (
	PROMPT              = "goat> "
	CONTINUATION_PROMPT = "....> "
)

const LOGO = `
█▄▄ █▀█ ▄▀█ █ █▄░█ █▀▀ █▀█ ▄▀█ ▀█▀
█▄█ █▀▄ █▀█ █ █░▀█ █▄█ █▄█ █▀█ ░█░`

// Options configures Start.
type Options struct {
	Version     string
	Machine     machine.Config
	HistoryFile string
}

// Start runs the REPL with line editing, history and tab completion until
// the user quits or ctx is cancelled.
func Start(ctx context.Context, out io.Writer, opts Options) {
	line := liner.NewLiner()
	defer line.Close()

	line.SetCtrlCAborts(true)
	line.SetCompleter(filterCompletions)

	historyFile := opts.HistoryFile
	if historyFile == "" {
		historyFile = filepath.Join(os.TempDir(), ".braingoat_history")
	}
	if f, err := os.Open(historyFile); err == nil {
		line.ReadHistory(f)
		f.Close()
	}
	defer func() {
		if f, err := os.Create(historyFile); err == nil {
			line.WriteHistory(f)
			f.Close()
		}
	}()

	fmt.Fprintln(out, LOGO)
	fmt.Fprintln(out, "v", opts.Version)
	fmt.Fprintln(out, "")
	fmt.Fprintln(out, "Type 'exit' or Ctrl+D to quit, ':help' for commands")
	fmt.Fprintln(out, "")

	session := NewSession(opts.Machine)
	var buffer strings.Builder

	for ctx.Err() == nil {
		prompt := PROMPT
		if buffer.Len() > 0 {
			prompt = CONTINUATION_PROMPT
		}
		input, err := line.Prompt(prompt)
		if err != nil {
			if err == liner.ErrPromptAborted {
				if buffer.Len() > 0 {
					fmt.Fprintln(out, "^C (cleared)")
				} else {
					fmt.Fprintln(out, "^C")
				}
				buffer.Reset()
				continue
			}
			if err == io.EOF {
				fmt.Fprintln(out, "\nGoodbye!")
				return
			}
			fmt.Fprintf(out, "Error reading input: %v\n", err)
			continue
		}

		trimmed := strings.TrimSpace(input)
		if buffer.Len() == 0 {
			if trimmed == "exit" || trimmed == "quit" {
				fmt.Fprintln(out, "Goodbye!")
				return
			}
			if strings.HasPrefix(trimmed, ":") {
				handleCommand(trimmed, session, out)
				continue
			}
			if trimmed == "" {
				continue
			}
		}

		if buffer.Len() > 0 {
			buffer.WriteString("\n")
		}
		buffer.WriteString(input)
		full := buffer.String()
		if needsMoreInput(full) {
			continue
		}
		line.AppendHistory(full)
		buffer.Reset()

		evaluate(ctx, session, full, out)
	}
}

func evaluate(ctx context.Context, session *Session, src string, out io.Writer) {
	output, err := session.Eval(ctx, src)
	if err != nil {
		fmt.Fprintln(out, err)
		return
	}
	if output != "" {
		io.WriteString(out, output)
		if !strings.HasSuffix(output, "\n") {
			io.WriteString(out, "\n")
		}
	}
}

// handleCommand handles REPL meta-commands that start with ':'
func handleCommand(cmd string, session *Session, out io.Writer) {
	name, arg, _ := strings.Cut(cmd, " ")
	arg = strings.TrimSpace(arg)

	switch name {
	case ":help", ":h", ":?":
		fmt.Fprintln(out, "REPL Commands:")
		fmt.Fprintln(out, "  :help, :h, :?      Show this help")
		fmt.Fprintln(out, "  :vars              Show declared variables and their cells")
		fmt.Fprintln(out, "  :code              Show the emitted program")
		fmt.Fprintln(out, "  :source            Show the accepted statements")
		fmt.Fprintln(out, "  :stats             Show instruction and cell counts")
		fmt.Fprintln(out, "  :input TEXT        Feed TEXT to input and inputN")
		fmt.Fprintln(out, "  :describe TOPIC    Show help for a builtin, type or operator")
		fmt.Fprintln(out, "  :reset             Forget all statements")
		fmt.Fprintln(out, "  exit, quit         Exit the REPL")

	case ":vars":
		res := session.Last()
		if res == nil || len(res.Variables) == 0 {
			fmt.Fprintln(out, "(no variables)")
			return
		}
		for _, v := range res.Variables {
			fmt.Fprintf(out, "  %s: %s at %s\n", v.Name, v.Type, v.Region)
		}

	case ":code":
		if res := session.Last(); res != nil {
			fmt.Fprintln(out, res.Code)
		}

	case ":source":
		fmt.Fprintln(out, session.Source())

	case ":stats":
		if res := session.Last(); res != nil {
			io.WriteString(out, res.Stats.Format(compiler.ParseLocale("")))
		}

	case ":input":
		session.SetInput(arg)
		fmt.Fprintf(out, "Input set to %q\n", arg)

	case ":describe", ":d":
		result, err := help.DescribeTopic(arg)
		if err != nil {
			fmt.Fprintln(out, err)
			return
		}
		io.WriteString(out, help.FormatText(result, 80))

	case ":reset", ":clear":
		session.Reset()
		fmt.Fprintln(out, "Session cleared")

	default:
		fmt.Fprintf(out, "Unknown command: %s (type :help for commands)\n", cmd)
	}
}

// completionWords lists the type names, builtins and commands.
func completionWords() []string {
	var words []string
	for _, t := range emitter.Types() {
		words = append(words, t.Name)
	}
	for _, b := range emitter.Builtins() {
		words = append(words, b.Name)
	}
	return append(words, ":help", ":vars", ":code", ":source", ":stats", ":input", ":describe", ":reset")
}

// filterCompletions completes the last word of line.
func filterCompletions(line string) []string {
	if strings.TrimSpace(line) == "" || strings.HasSuffix(line, " ") || strings.HasSuffix(line, "\t") {
		return nil
	}
	words := strings.Fields(line)
	last := words[len(words)-1]
	prefix := line[:len(line)-len(last)]

	var matches []string
	for _, word := range completionWords() {
		if strings.HasPrefix(word, last) {
			matches = append(matches, prefix+word)
		}
	}
	return matches
}

// needsMoreInput reports unclosed braces, brackets, parentheses or comments.
func needsMoreInput(input string) bool {
	depth := 0
	inComment := false
	for i := 0; i < len(input); i++ {
		if inComment {
			if strings.HasPrefix(input[i:], "*/") {
				inComment = false
				i++
			}
			continue
		}
		if strings.HasPrefix(input[i:], "/*") {
			inComment = true
			i++
			continue
		}
		switch input[i] {
		case '{', '[', '(':
			depth++
		case '}', ']', ')':
			depth--
		}
	}
	return inComment || depth > 0
}
