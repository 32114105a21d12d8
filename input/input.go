// Package input reads a list of DBF files as one stream of rows, the way a
// table input step of an ETL pipeline does.
package input

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	dbf "github.com/Ulysses-Xu/go-dbf"
	"github.com/Ulysses-Xu/go-dbf/source"
)

var (
	ErrNoFiles        = errors.New("input: no files specified")
	ErrSchemaMismatch = errors.New("input: file schema differs from the first file")
)

// Input concatenates the records of its files under the schema of the
// first file. Files are read one at a time; the previous file is closed
// before the next one is opened. Input is not safe for concurrent use.
type Input struct {
	cfg     Config
	opener  *source.Opener
	log     zerolog.Logger
	metrics *Metrics

	files  []string
	fileNr int

	cur     dbf.DBF
	curName string
	opened  []string

	schema dbf.Schema
	output dbf.Schema
	lines  int64
	done   bool
	err    error
}

type Option func(*Input)

func WithFs(fs afero.Fs) Option {
	return func(in *Input) { in.opener.Fs = fs }
}

func WithLogger(log zerolog.Logger) Option {
	return func(in *Input) { in.log = log }
}

func WithMetrics(m *Metrics) Option {
	return func(in *Input) { in.metrics = m }
}

// New resolves the configured file patterns and opens the first file to fix
// the output schema.
func New(cfg Config, opts ...Option) (*Input, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	in := &Input{
		cfg:    cfg,
		opener: source.NewOpener(afero.NewOsFs(), cfg.Compression),
		log:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(in)
	}
	if in.metrics == nil {
		in.metrics = NewMetrics(prometheus.NewRegistry())
	}

	files, err := in.opener.Glob(cfg.Files)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, ErrNoFiles
	}
	in.files = files

	if err := in.openNextFile(); err != nil {
		return nil, err
	}
	in.schema = in.cur.Schema()
	in.output = append(dbf.Schema(nil), in.schema...)
	if cfg.IncludeFilename {
		in.output = append(in.output, dbf.Column{Name: cfg.FilenameField, Kind: dbf.ColumnText, Length: -1, Decimals: -1})
	}
	if cfg.IncludeRowNum {
		in.output = append(in.output, dbf.Column{Name: cfg.RowNumField, Kind: dbf.ColumnNumber, Length: -1, Decimals: 0})
	}
	return in, nil
}

// Schema returns the output columns: the DBF columns followed by the
// optional filename and row number columns.
func (in *Input) Schema() dbf.Schema {
	return append(dbf.Schema(nil), in.output...)
}

// Files returns every file the configured patterns resolved to.
func (in *Input) Files() []string {
	return append([]string(nil), in.files...)
}

// Opened returns the files opened so far, in reading order.
func (in *Input) Opened() []string {
	return append([]string(nil), in.opened...)
}

// Lines returns the number of rows returned so far.
func (in *Input) Lines() int64 { return in.lines }

// Next returns the next row. It returns io.EOF once every file is exhausted
// or the row limit is reached, and ctx.Err() when ctx is done. A corrupt
// file ends the input: its session is closed and the same error is returned
// from then on.
func (in *Input) Next(ctx context.Context) (dbf.Record, error) {
	if in.err != nil {
		return nil, in.err
	}
	if in.done {
		return nil, io.EOF
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if in.cfg.RowLimit > 0 && in.lines >= in.cfg.RowLimit {
		return nil, in.finish()
	}

	for {
		if in.cur == nil {
			if in.fileNr >= len(in.files) {
				return nil, in.finish()
			}
			if err := in.openNextFile(); err != nil {
				return nil, err
			}
		}

		row := make(dbf.Record, len(in.output))
		rec, err := in.cur.Decode(row[:len(in.schema)])
		if err != nil {
			in.countError(err)
			err = fmt.Errorf("input: %s: %w", in.curName, err)
			if errors.Is(err, dbf.ErrCorrupt) {
				in.err = err
				in.done = true
				if cerr := in.closeCurrent(); cerr != nil {
					in.log.Error().Err(cerr).Msg("close after corrupt record")
				}
			}
			return nil, err
		}
		if rec == nil {
			if err := in.closeCurrent(); err != nil {
				return nil, err
			}
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			continue
		}

		in.lines++
		in.metrics.RecordsRead.Inc()
		idx := len(in.schema)
		if in.cfg.IncludeFilename {
			row[idx] = dbf.Text(in.curName)
			idx++
		}
		if in.cfg.IncludeRowNum {
			row[idx] = dbf.Number(float64(in.lines))
		}
		if in.cfg.FeedbackSize > 0 && in.lines%in.cfg.FeedbackSize == 0 {
			in.log.Info().Int64("lines", in.lines).Msg("line number")
		}
		return row, nil
	}
}

// Close closes the file currently being read, if any.
func (in *Input) Close() error {
	in.done = true
	return in.closeCurrent()
}

func (in *Input) finish() error {
	in.done = true
	if err := in.closeCurrent(); err != nil {
		return err
	}
	return io.EOF
}

func (in *Input) openNextFile() error {
	name := in.files[in.fileNr]
	in.fileNr++

	rc, err := in.opener.Open(name)
	if err != nil {
		in.log.Error().Err(err).Str("file", name).Msg("could not open dbf file")
		return err
	}
	opts := []dbf.Option{dbf.WithLogger(in.log)}
	if in.cfg.Charset != "" {
		opts = append(opts, dbf.WithCharset(in.cfg.Charset))
	}
	rd, err := dbf.Open(name, rc, opts...)
	if err != nil {
		_ = rc.Close()
		in.log.Error().Err(err).Str("file", name).Msg("could not open dbf file")
		return fmt.Errorf("input: %w", err)
	}
	if in.schema != nil && !compatible(in.schema, rd.Schema()) {
		_ = rd.Close()
		return fmt.Errorf("%w: %s", ErrSchemaMismatch, name)
	}

	in.cur = rd
	in.curName = name
	in.opened = append(in.opened, name)
	in.metrics.FilesOpened.Inc()
	in.log.Info().Str("file", name).Msg("opened dbf file")
	return nil
}

func (in *Input) closeCurrent() error {
	if in.cur == nil {
		return nil
	}
	cur, name := in.cur, in.curName
	in.cur = nil
	in.log.Info().Str("file", name).Msg("finished reading records")
	if err := cur.Close(); err != nil {
		return fmt.Errorf("input: %w", err)
	}
	return nil
}

func (in *Input) countError(err error) {
	kind := "other"
	var de *dbf.DecodeError
	if errors.As(err, &de) {
		switch de.Kind {
		case dbf.DecodeCorrupt:
			kind = "corrupt"
		case dbf.DecodeFieldCoercion:
			kind = "coercion"
		}
	}
	in.metrics.DecodeErrors.WithLabelValues(kind).Inc()
}

// compatible reports whether records of next can be emitted under first.
func compatible(first, next dbf.Schema) bool {
	if len(first) != len(next) {
		return false
	}
	for i := range first {
		if first[i].Kind != next[i].Kind {
			return false
		}
	}
	return true
}
