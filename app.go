package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"golang.org/x/text/language"

	"github.com/sambeau/braingoat/cache"
	"github.com/sambeau/braingoat/config"
	"github.com/sambeau/braingoat/pkg/braingoat/compiler"
	goaterrors "github.com/sambeau/braingoat/pkg/braingoat/errors"
	"github.com/sambeau/braingoat/pkg/braingoat/machine"
)

// app carries what every command needs.
type app struct {
	cfg      *config.Config
	stdin    io.Reader
	stdout   io.Writer
	stderr   io.Writer
	log      compiler.Logger
	cacheLog compiler.Logger
	locale   language.Tag

	logFile *os.File
	cacheMu sync.Mutex
	cache   *cache.Cache
}

func newApp(cfg *config.Config, stdin io.Reader, stdout, stderr io.Writer) (*app, error) {
	a := &app{
		cfg:    cfg,
		stdin:  stdin,
		stdout: stdout,
		stderr: stderr,
		locale: compiler.ParseLocale(cfg.Logging.Locale),
	}

	switch cfg.Logging.Output {
	case "", "stderr":
		a.log = compiler.WriterLogger(stderr)
	case "stdout":
		a.log = compiler.WriterLogger(stdout)
	default:
		f, err := os.OpenFile(cfg.Logging.Output, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("opening log file: %w", err)
		}
		a.logFile = f
		a.log = compiler.WriterLogger(f)
	}
	a.cacheLog = compiler.Prefixed(a.log, "[CACHE]")
	return a, nil
}

func (a *app) close() {
	if a.cache != nil {
		a.cache.Close()
	}
	if a.logFile != nil {
		a.logFile.Close()
	}
}

// info logs informational messages unless logging is quiet or above info.
func (a *app) info(format string, args ...any) {
	if a.cfg.Logging.Quiet || a.cfg.Logging.Level == "warn" || a.cfg.Logging.Level == "error" {
		return
	}
	a.log.LogLine(fmt.Sprintf(format, args...))
}

// openCache opens the configured build cache once.
func (a *app) openCache(ctx context.Context) (*cache.Cache, error) {
	a.cacheMu.Lock()
	defer a.cacheMu.Unlock()
	if a.cache != nil {
		return a.cache, nil
	}
	c, err := cache.Open(ctx, a.cfg.Cache.Driver, a.cfg.Cache.DSN, Version)
	if err != nil {
		return nil, err
	}
	a.cache = c
	return c, nil
}

// compileFile compiles path, consulting the build cache when it is enabled.
// Stats are nil for cache hits. A compile failure is rendered to stderr and
// returned as exitError{1}.
func (a *app) compileFile(ctx context.Context, path string, useCache bool) (string, *compiler.Stats, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", nil, err
	}
	source := string(data)

	var c *cache.Cache
	if useCache && a.cfg.Cache.Enabled {
		if c, err = a.openCache(ctx); err != nil {
			return "", nil, err
		}
		code, ok, err := c.Get(ctx, source)
		if err != nil {
			a.cacheLog.LogLine("error:", err)
		} else if ok {
			a.info("[CACHE] hit %s", path)
			return code, nil, nil
		}
	}

	start := time.Now()
	res, err := compiler.CompileSource(source, compiler.Options{
		File:   path,
		Logger: a.log,
		Trace:  a.cfg.Debug(),
	})
	if err != nil {
		a.reportFailure(err, source)
		return "", nil, exitError{1}
	}
	a.info("compiled %s in %s", path, time.Since(start).Round(time.Microsecond))

	if c != nil {
		if err := c.Put(ctx, source, res.Code); err != nil {
			a.cacheLog.LogLine("error:", err)
		}
	}
	return res.Code, &res.Stats, nil
}

func (a *app) reportFailure(err error, source string) {
	if f, ok := err.(*goaterrors.CompileFailure); ok {
		if f.File != "" {
			fmt.Fprintf(a.stderr, "%s:\n", f.File)
		}
		fmt.Fprintln(a.stderr, f.RenderSource(source))
		return
	}
	fmt.Fprintln(a.stderr, err)
}

// execute runs code with input, writing program output to stdout.
func (a *app) execute(ctx context.Context, code string, input io.Reader, mc machine.Config) error {
	if a.cfg.Machine.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.cfg.Machine.Timeout)
		defer cancel()
	}
	p, err := machine.Load(code)
	if err != nil {
		return err
	}
	m := machine.New(mc, input, a.stdout)
	if err := m.Run(ctx, p); err != nil {
		return fmt.Errorf("runtime: %w", err)
	}
	return nil
}
