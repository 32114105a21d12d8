// Package source supplies the byte streams DBF sessions read from, applying
// transparent decompression where configured.
package source

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/spf13/afero"
)

type Compression string

const (
	CompressionNone Compression = "none"
	CompressionAuto Compression = "auto"
	CompressionGzip Compression = "gzip"
	CompressionZstd Compression = "zstd"
	CompressionLz4  Compression = "lz4"
)

// ParseCompression accepts the names above; an empty string means none.
func ParseCompression(s string) (Compression, error) {
	switch c := Compression(strings.ToLower(strings.TrimSpace(s))); c {
	case "":
		return CompressionNone, nil
	case CompressionNone, CompressionAuto, CompressionGzip, CompressionZstd, CompressionLz4:
		return c, nil
	}
	return "", fmt.Errorf("source: unknown compression %q", s)
}

// Opener opens named files on Fs.
type Opener struct {
	Fs          afero.Fs
	Compression Compression
}

func NewOpener(fs afero.Fs, c Compression) *Opener {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &Opener{Fs: fs, Compression: c}
}

// Open returns the content of name, decompressed according to the opener's
// compression. Closing the result closes every layer.
func (o *Opener) Open(name string) (io.ReadCloser, error) {
	f, err := o.Fs.Open(name)
	if err != nil {
		return nil, fmt.Errorf("source: open %s: %w", name, err)
	}
	c := o.Compression
	if c == CompressionAuto {
		c = detect(name)
	}
	switch c {
	case CompressionGzip:
		zr, err := gzip.NewReader(f)
		if err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("source: gzip %s: %w", name, err)
		}
		return &layered{Reader: zr, closers: []io.Closer{zr, f}}, nil
	case CompressionZstd:
		zr, err := zstd.NewReader(f)
		if err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("source: zstd %s: %w", name, err)
		}
		return &layered{Reader: zr, closers: []io.Closer{zr.IOReadCloser(), f}}, nil
	case CompressionLz4:
		return &layered{Reader: lz4.NewReader(f), closers: []io.Closer{f}}, nil
	}
	return f, nil
}

// Glob expands patterns on the opener's filesystem, keeping plain names
// that contain no pattern characters as they are.
func (o *Opener) Glob(patterns []string) ([]string, error) {
	var names []string
	for _, p := range patterns {
		if !strings.ContainsAny(p, "*?[") {
			names = append(names, p)
			continue
		}
		matches, err := afero.Glob(o.Fs, p)
		if err != nil {
			return nil, fmt.Errorf("source: glob %s: %w", p, err)
		}
		names = append(names, matches...)
	}
	return names, nil
}

func detect(name string) Compression {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".gz", ".gzip":
		return CompressionGzip
	case ".zst", ".zstd":
		return CompressionZstd
	case ".lz4":
		return CompressionLz4
	}
	return CompressionNone
}

type layered struct {
	io.Reader
	closers []io.Closer
}

func (l *layered) Close() error {
	var first error
	for _, c := range l.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
