package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/sambeau/braingoat/config"
	"github.com/sambeau/braingoat/pkg/braingoat/compiler"
)

// Version is set at build time via -ldflags
var Version = compiler.Version

func main() {
	ctx := context.Background()
	err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr, os.Getenv)
	var exit exitError
	if errors.As(err, &exit) {
		os.Exit(exit.code)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// exitError ends the process with a status after its output was written.
type exitError struct{ code int }

func (e exitError) Error() string { return fmt.Sprintf("exit status %d", e.code) }

// run is the body of main with its dependencies passed in.
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer, getenv func(string) string) error {
	flags := flag.NewFlagSet("braingoat", flag.ContinueOnError)
	flags.SetOutput(stderr)
	flags.Usage = func() { printUsage(stderr) }

	var (
		configPath  = flags.String("config", "", "Path to config file")
		showVersion = flags.Bool("version", false, "Show version")
		showHelp    = flags.Bool("help", false, "Show help")
	)

	if err := flags.Parse(args); err != nil {
		return err
	}

	if *showHelp {
		printUsage(stdout)
		return nil
	}
	if *showVersion {
		fmt.Fprintf(stdout, "braingoat version %s\n", Version)
		return nil
	}

	rest := flags.Args()
	if len(rest) == 0 {
		printUsage(stderr)
		return exitError{2}
	}
	command, cmdArgs := rest[0], rest[1:]

	// describe needs no configuration
	if command == "describe" {
		return describeCommand(cmdArgs, stdout, stderr)
	}

	handler, ok := commands[command]
	if !ok {
		return fmt.Errorf("unknown command %q (run braingoat --help)", command)
	}

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, configFile, err := config.LoadWithPath(*configPath, getenv)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	a, err := newApp(cfg, stdin, stdout, stderr)
	if err != nil {
		return err
	}
	defer a.close()

	if configFile != "" {
		a.info("[CONFIG] using %s", configFile)
	}
	for _, w := range config.Warnings(cfg) {
		fmt.Fprintf(stderr, "[CONFIG] warning: %s\n", w)
	}

	return handler(ctx, a, cmdArgs)
}

func printUsage(w io.Writer) {
	fmt.Fprintf(w, `braingoat - compile goat programs for the eight-instruction tape machine

Usage:
  braingoat [options] <command> [arguments]

Commands:
  build [-o out] [--stats] [--compress none|gzip|zstd] <file.goat>
                            Compile a program
  check <file.goat>...      Report errors without writing output
  run [--input text] <file.goat>
                            Compile and execute a program
  exec [--input text] <file.bf>
                            Execute a compiled program (.bf, .bf.gz, .bf.zst)
  watch [--run] <file|dir>  Rebuild when sources change
  repl                      Start an interactive session
  describe [--json|--markdown|--html] <topic>
                            Show help for builtins, types and operators
  cache list|clear          Inspect or empty the build cache
  cache prune [--before DATE] [--max-size SIZE]
                            Remove old cache entries

Options:
  --config PATH    Path to config file (default: auto-detect)
  --version        Show version
  --help           Show this help

Config Resolution:
  1. --config flag
  2. BRAINGOAT_CONFIG environment variable
  3. ./braingoat.yaml
  4. ~/.config/braingoat/braingoat.yaml
  5. built-in defaults

Examples:
  braingoat build fib.goat              Write fib.bf
  braingoat run --input 10 fib.goat     Prints 55
  braingoat describe while              Help for the while builtin
  braingoat cache prune --before 7d     Drop entries older than a week

`)
}
