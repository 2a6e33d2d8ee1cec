package watch

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestWatcherRebuildsOnChange(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "prog.goat")
	other := filepath.Join(dir, "notes.txt")
	for _, p := range []string{src, other} {
		if err := os.WriteFile(p, []byte("Int a = 1"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	changed := make(chan string, 10)
	var stdout, stderr syncBuffer
	w, err := New([]string{src}, Options{
		Debounce: 50 * time.Millisecond,
		OnChange: func(path string) error {
			changed <- path
			return nil
		},
	}, &stdout, &stderr)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)

	os.WriteFile(other, []byte("ignored"), 0o644)
	for i := 0; i < 3; i++ {
		if err := os.WriteFile(src, []byte("Int a = 2"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	select {
	case path := <-changed:
		if filepath.Base(path) != "prog.goat" {
			t.Errorf("changed %s", path)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no rebuild after writing the source")
	}

	time.Sleep(200 * time.Millisecond)
	if n := len(changed); n != 0 {
		t.Errorf("%d extra rebuilds, writes were not debounced", n)
	}
	if w.Builds() != 1 {
		t.Errorf("Builds() = %d, want 1", w.Builds())
	}
	if !strings.Contains(stdout.String(), "[WATCH] changed: ") {
		t.Errorf("stdout = %q", stdout.String())
	}
}

func TestWatcherLogsErrors(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "bad.goat")
	os.WriteFile(src, []byte("x"), 0o644)

	done := make(chan struct{}, 1)
	var stdout, stderr syncBuffer
	w, err := New([]string{dir}, Options{
		Debounce: 10 * time.Millisecond,
		OnChange: func(string) error {
			defer func() { done <- struct{}{} }()
			return errors.New("bad.goat: L1:0-1: SyntaxError: Unrecognized statement")
		},
	}, &stdout, &stderr)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)

	os.WriteFile(src, []byte("y"), 0o644)
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("no rebuild")
	}
	time.Sleep(20 * time.Millisecond)
	if !strings.Contains(stderr.String(), "[WATCH ERROR] bad.goat: L1:0-1: SyntaxError") {
		t.Errorf("stderr = %q", stderr.String())
	}
}

func TestWatcherRunsOneRebuildAtATime(t *testing.T) {
	dir := t.TempDir()
	files := []string{filepath.Join(dir, "a.goat"), filepath.Join(dir, "b.goat")}
	for _, p := range files {
		if err := os.WriteFile(p, []byte("Int a = 1"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	var running, most, calls atomic.Int32
	done := make(chan struct{}, 4)
	var stdout, stderr syncBuffer
	w, err := New([]string{dir}, Options{
		Debounce: 10 * time.Millisecond,
		OnChange: func(string) error {
			n := running.Add(1)
			for {
				m := most.Load()
				if n <= m || most.CompareAndSwap(m, n) {
					break
				}
			}
			time.Sleep(150 * time.Millisecond)
			running.Add(-1)
			calls.Add(1)
			select {
			case done <- struct{}{}:
			default:
			}
			return nil
		},
	}, &stdout, &stderr)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)

	for _, p := range files {
		if err := os.WriteFile(p, []byte("Int a = 2"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	for i := 0; i < 2; i++ {
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Fatalf("only %d rebuilds", calls.Load())
		}
	}
	if m := most.Load(); m != 1 {
		t.Errorf("%d rebuilds ran at once, want 1", m)
	}
}

func TestCloseWaitsForRunningRebuild(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "prog.goat")
	if err := os.WriteFile(src, []byte("Int a = 1"), 0o644); err != nil {
		t.Fatal(err)
	}

	var running atomic.Int32
	started := make(chan struct{}, 1)
	var stdout, stderr syncBuffer
	w, err := New([]string{src}, Options{
		Debounce: 10 * time.Millisecond,
		OnChange: func(string) error {
			running.Add(1)
			select {
			case started <- struct{}{}:
			default:
			}
			time.Sleep(150 * time.Millisecond)
			running.Add(-1)
			return nil
		},
	}, &stdout, &stderr)
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)

	if err := os.WriteFile(src, []byte("Int a = 2"), 0o644); err != nil {
		t.Fatal(err)
	}
	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("no rebuild")
	}
	w.Close()
	if n := running.Load(); n != 0 {
		t.Errorf("Close returned with %d rebuilds still running", n)
	}
}

func TestMatches(t *testing.T) {
	dir := t.TempDir()
	w := &Watcher{
		opts:    Options{Extensions: []string{".goat", ".BG"}},
		targets: map[string]bool{},
	}
	tests := map[string]bool{
		filepath.Join(dir, "a.goat"): true,
		filepath.Join(dir, "a.GOAT"): true,
		filepath.Join(dir, "b.bg"):   true,
		filepath.Join(dir, "c.bf"):   false,
		filepath.Join(dir, "goat"):   false,
	}
	for path, want := range tests {
		if got := w.matches(path); got != want {
			t.Errorf("matches(%s) = %v, want %v", path, got, want)
		}
	}

	w.targets[filepath.Join(dir, "a.goat")] = true
	if w.matches(filepath.Join(dir, "b.bg")) {
		t.Error("untargeted file matched")
	}
}

func TestNewMissingPath(t *testing.T) {
	var out bytes.Buffer
	if _, err := New([]string{filepath.Join(t.TempDir(), "missing.goat")}, Options{}, &out, &out); err == nil {
		t.Error("expected an error for a missing path")
	}
}
