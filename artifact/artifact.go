// Package artifact reads and writes compiled programs, optionally wrapped
// into fixed-width lines and compressed with gzip or zstd.
package artifact

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// Format is the container of a written program.
type Format string

const (
	Plain Format = "none"
	Gzip  Format = "gzip"
	Zstd  Format = "zstd"
)

var (
	gzipMagic = []byte{0x1f, 0x8b}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
)

// Options controls how a program is written.
type Options struct {
	Format    Format
	Level     string // "fastest", "default" or "best"
	LineWidth int    // wrap plain output; 0 keeps one line
}

// ParseFormat converts a configuration string to a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "", "none", "plain":
		return Plain, nil
	case "gzip", "gz":
		return Gzip, nil
	case "zstd", "zst":
		return Zstd, nil
	}
	return "", fmt.Errorf("unknown compression %q (use none, gzip or zstd)", s)
}

// Extension returns the file suffix added for the format.
func (f Format) Extension() string {
	switch f {
	case Gzip:
		return ".gz"
	case Zstd:
		return ".zst"
	}
	return ""
}

// OutputPath derives the output file for a source file: prog.goat becomes
// prog.bf, plus the compression suffix.
func OutputPath(source string, f Format) string {
	base := strings.TrimSuffix(source, filepath.Ext(source))
	return base + ".bf" + f.Extension()
}

// Wrap breaks code into lines of at most width instructions.
func Wrap(code string, width int) string {
	if width <= 0 || len(code) <= width {
		return code
	}
	var sb strings.Builder
	for len(code) > width {
		sb.WriteString(code[:width])
		sb.WriteByte('\n')
		code = code[width:]
	}
	sb.WriteString(code)
	return sb.String()
}

// Encode writes code to w in the given format.
func Encode(w io.Writer, code string, opts Options) error {
	switch opts.Format {
	case Plain, "":
		text := Wrap(code, opts.LineWidth)
		if !strings.HasSuffix(text, "\n") {
			text += "\n"
		}
		_, err := io.WriteString(w, text)
		return err

	case Gzip:
		zw, err := gzip.NewWriterLevel(w, gzipLevel(opts.Level))
		if err != nil {
			return err
		}
		if _, err := io.WriteString(zw, code); err != nil {
			zw.Close()
			return err
		}
		return zw.Close()

	case Zstd:
		zw, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstdLevel(opts.Level)))
		if err != nil {
			return err
		}
		if _, err := io.WriteString(zw, code); err != nil {
			zw.Close()
			return err
		}
		return zw.Close()
	}
	return fmt.Errorf("unknown compression %q", opts.Format)
}

// Decode reads a program written by Encode, detecting the format from its
// leading bytes. Line breaks are removed.
func Decode(r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}

	switch {
	case bytes.HasPrefix(data, gzipMagic):
		zr, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return "", fmt.Errorf("gzip: %w", err)
		}
		defer zr.Close()
		if data, err = io.ReadAll(zr); err != nil {
			return "", fmt.Errorf("gzip: %w", err)
		}
	case bytes.HasPrefix(data, zstdMagic):
		zr, err := zstd.NewReader(nil)
		if err != nil {
			return "", err
		}
		defer zr.Close()
		if data, err = zr.DecodeAll(data, nil); err != nil {
			return "", fmt.Errorf("zstd: %w", err)
		}
	}

	return strings.NewReplacer("\n", "", "\r", "").Replace(string(data)), nil
}

// WriteFile writes code to path, creating parent directories.
func WriteFile(path, code string, opts Options) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}
	var buf bytes.Buffer
	if err := Encode(&buf, code, opts); err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

// ReadFile reads a program file of any supported format.
func ReadFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	code, err := Decode(f)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	return code, nil
}

// Compress returns data compressed with zstd at the default level.
func Compress(data []byte) []byte {
	enc, _ := zstd.NewWriter(nil)
	defer enc.Close()
	return enc.EncodeAll(data, nil)
}

// Decompress reverses Compress.
func Decompress(data []byte) ([]byte, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	defer dec.Close()
	return dec.DecodeAll(data, nil)
}

func gzipLevel(level string) int {
	switch level {
	case "fastest":
		return gzip.BestSpeed
	case "best":
		return gzip.BestCompression
	}
	return gzip.DefaultCompression
}

func zstdLevel(level string) zstd.EncoderLevel {
	switch level {
	case "fastest":
		return zstd.SpeedFastest
	case "best":
		return zstd.SpeedBestCompression
	}
	return zstd.SpeedDefault
}
