package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/sambeau/braingoat/artifact"
	"github.com/sambeau/braingoat/cache"
	"github.com/sambeau/braingoat/config"
	"github.com/sambeau/braingoat/pkg/braingoat/help"
	"github.com/sambeau/braingoat/pkg/braingoat/machine"
	"github.com/sambeau/braingoat/pkg/braingoat/repl"
	"github.com/sambeau/braingoat/watch"
)

type command func(ctx context.Context, a *app, args []string) error

var commands = map[string]command{
	"build": buildCommand,
	"check": checkCommand,
	"run":   runCommand,
	"exec":  execCommand,
	"watch": watchCommand,
	"repl":  replCommand,
	"cache": cacheCommand,
}

func newFlagSet(a *app, name string) *flag.FlagSet {
	fs := flag.NewFlagSet("braingoat "+name, flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	return fs
}

func oneFile(fs *flag.FlagSet, what string) (string, error) {
	if fs.NArg() != 1 {
		return "", fmt.Errorf("%s expects exactly one file", what)
	}
	return fs.Arg(0), nil
}

// machineFlags registers overrides of the machine section.
func machineFlags(fs *flag.FlagSet, cfg *config.Config) func() (machine.Config, error) {
	eof := fs.String("eof", cfg.Machine.EOF, "End of input behaviour: zero, unchanged or max")
	steps := fs.Int64("max-steps", cfg.Machine.MaxSteps, "Abort after this many instructions (0 for no limit)")
	tape := fs.Int("tape-size", cfg.Machine.TapeSize, "Tape cells (0 for unbounded)")
	return func() (machine.Config, error) {
		cfg.Machine.EOF = *eof
		cfg.Machine.MaxSteps = *steps
		cfg.Machine.TapeSize = *tape
		return cfg.MachineSettings()
	}
}

func inputReader(a *app, input string, set bool) io.Reader {
	if set {
		return strings.NewReader(input)
	}
	return a.stdin
}

func buildCommand(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "build")
	output := fs.String("o", a.cfg.Build.Output, "Output file (- for stdout)")
	compress := fs.String("compress", a.cfg.Build.Compress, "Compression: none, gzip or zstd")
	level := fs.String("level", a.cfg.Build.Level, "Compression level: fastest, default or best")
	width := fs.Int("line-width", a.cfg.Build.LineWidth, "Wrap plain output (0 for one line)")
	stats := fs.Bool("stats", a.cfg.Build.Stats, "Print compile statistics")
	if err := fs.Parse(args); err != nil {
		return err
	}
	src, err := oneFile(fs, "build")
	if err != nil {
		return err
	}
	format, err := artifact.ParseFormat(*compress)
	if err != nil {
		return err
	}

	code, st, err := a.compileFile(ctx, src, !*stats)
	if err != nil {
		return err
	}
	opts := artifact.Options{Format: format, Level: *level, LineWidth: *width}

	if *output == "-" {
		return artifact.Encode(a.stdout, code, opts)
	}
	out := *output
	if out == "" {
		out = artifact.OutputPath(src, format)
	}
	if err := artifact.WriteFile(out, code, opts); err != nil {
		return err
	}
	a.info("wrote %s", out)

	if *stats && st != nil {
		io.WriteString(a.stdout, st.Format(a.locale))
		if info, err := os.Stat(out); err == nil {
			fmt.Fprintf(a.stdout, "output:       %s\n", humanize.Bytes(uint64(info.Size())))
		}
	}
	return nil
}

// checkCommand exits 0 without errors, 1 on compile errors and 2 on file errors.
func checkCommand(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "check")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		fmt.Fprintln(a.stderr, "Error: check requires at least one file")
		return exitError{2}
	}

	failed := false
	for _, file := range fs.Args() {
		_, _, err := a.compileFile(ctx, file, false)
		switch err.(type) {
		case nil:
			fmt.Fprintf(a.stdout, "%s: ok\n", file)
		case exitError:
			failed = true
		default:
			fmt.Fprintf(a.stderr, "Error reading %s: %v\n", file, err)
			return exitError{2}
		}
	}
	if failed {
		return exitError{1}
	}
	return nil
}

func runCommand(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "run")
	input := fs.String("input", "", "Program input (default: stdin)")
	settings := machineFlags(fs, a.cfg)
	if err := fs.Parse(args); err != nil {
		return err
	}
	src, err := oneFile(fs, "run")
	if err != nil {
		return err
	}
	mc, err := settings()
	if err != nil {
		return err
	}

	code, _, err := a.compileFile(ctx, src, true)
	if err != nil {
		return err
	}
	return a.execute(ctx, code, inputReader(a, *input, flagSet(fs, "input")), mc)
}

func execCommand(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "exec")
	input := fs.String("input", "", "Program input (default: stdin)")
	settings := machineFlags(fs, a.cfg)
	if err := fs.Parse(args); err != nil {
		return err
	}
	file, err := oneFile(fs, "exec")
	if err != nil {
		return err
	}
	mc, err := settings()
	if err != nil {
		return err
	}

	code, err := artifact.ReadFile(file)
	if err != nil {
		return err
	}
	return a.execute(ctx, code, inputReader(a, *input, flagSet(fs, "input")), mc)
}

func flagSet(fs *flag.FlagSet, name string) bool {
	set := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}

func watchCommand(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "watch")
	runAfter := fs.Bool("run", a.cfg.Watch.Run, "Run the program after each build")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return fmt.Errorf("watch expects a file or directory")
	}
	format, err := artifact.ParseFormat(a.cfg.Build.Compress)
	if err != nil {
		return err
	}
	mc, err := a.cfg.MachineSettings()
	if err != nil {
		return err
	}

	rebuild := func(path string) error {
		code, _, err := a.compileFile(ctx, path, true)
		if err != nil {
			if _, ok := err.(exitError); ok {
				return fmt.Errorf("build of %s failed", path)
			}
			return err
		}
		out := artifact.OutputPath(path, format)
		opts := artifact.Options{Format: format, Level: a.cfg.Build.Level, LineWidth: a.cfg.Build.LineWidth}
		if err := artifact.WriteFile(out, code, opts); err != nil {
			return err
		}
		fmt.Fprintf(a.stdout, "[WATCH] wrote %s\n", out)
		if *runAfter {
			return a.execute(ctx, code, strings.NewReader(""), mc)
		}
		return nil
	}

	w, err := watch.New(fs.Args(), watch.Options{
		Debounce:   a.cfg.Watch.Debounce,
		Extensions: a.cfg.Watch.Extensions,
		OnChange:   rebuild,
	}, a.stdout, a.stderr)
	if err != nil {
		return err
	}
	defer w.Close()

	w.Start(ctx)
	<-ctx.Done()
	fmt.Fprintf(a.stdout, "[WATCH] stopped after %d builds\n", w.Builds())
	return nil
}

func replCommand(ctx context.Context, a *app, args []string) error {
	mc, err := a.cfg.MachineSettings()
	if err != nil {
		return err
	}
	history := ""
	if home, err := os.UserHomeDir(); err == nil {
		history = filepath.Join(home, ".braingoat_history")
	}
	repl.Start(ctx, a.stdout, repl.Options{Version: Version, Machine: mc, HistoryFile: history})
	return nil
}

func describeCommand(args []string, stdout, stderr io.Writer) error {
	format := "text"
	var topic string
	for _, arg := range args {
		switch arg {
		case "--json":
			format = "json"
		case "--markdown", "--md":
			format = "markdown"
		case "--html":
			format = "html"
		default:
			if !strings.HasPrefix(arg, "-") {
				topic = arg
			}
		}
	}

	if topic == "" {
		fmt.Fprintln(stderr, `Usage: braingoat describe [--json|--markdown|--html] <topic>

Topics:
  builtins           List all builtin functions
  types              List the data types
  operators          List all operators
  <builtin>          Help for a builtin (if, while, printN, ...)
  <type>             Help for a type (Int, IntList)
  <operator>         Help for an operator (+, <=, ...)`)
		return exitError{2}
	}

	result, err := help.DescribeTopic(topic)
	if err != nil {
		return err
	}

	switch format {
	case "json":
		data, err := help.FormatJSON(result)
		if err != nil {
			return err
		}
		fmt.Fprintln(stdout, string(data))
	case "markdown":
		io.WriteString(stdout, help.FormatMarkdown(result))
	case "html":
		html, err := help.FormatHTML(result)
		if err != nil {
			return err
		}
		io.WriteString(stdout, html)
	default:
		io.WriteString(stdout, help.FormatText(result, 80))
	}
	return nil
}

func cacheCommand(ctx context.Context, a *app, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("cache expects list, prune or clear")
	}
	c, err := a.openCache(ctx)
	if err != nil {
		return err
	}

	switch args[0] {
	case "list":
		entries, err := c.List(ctx)
		if err != nil {
			return err
		}
		io.WriteString(a.stdout, cache.FormatEntries(entries, a.cfg.Logging.Locale))

	case "prune":
		fs := newFlagSet(a, "cache prune")
		before := fs.String("before", "", "Remove entries created before this date or age (7d, 36h, 2026-01-02)")
		maxSize := fs.String("max-size", a.cfg.Cache.MaxSize, "Keep at most this much stored output, e.g. 50MB")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		var removed int64
		if *before != "" {
			t, err := cache.ParseBefore(*before, time.Now())
			if err != nil {
				return err
			}
			n, err := c.Prune(ctx, t)
			if err != nil {
				return err
			}
			removed += n
		}
		limit, err := config.ParseSize(*maxSize)
		if err != nil {
			return err
		}
		n, err := c.PruneSize(ctx, limit)
		if err != nil {
			return err
		}
		removed += n
		fmt.Fprintf(a.stdout, "[CACHE] removed %d entries\n", removed)

	case "clear":
		n, err := c.Clear(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.stdout, "[CACHE] removed %d entries\n", n)

	default:
		return fmt.Errorf("unknown cache command %q (use list, prune or clear)", args[0])
	}
	return nil
}
