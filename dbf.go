// Package dbf reads XBase (dBase, FoxPro) tables as a forward-only stream of
// typed records.
package dbf

import (
	"bufio"
	"fmt"
	"io"

	"github.com/axgle/mahonia"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
)

// DBF is the session surface consumed by callers that drive many files.
type DBF interface {
	Fields() []FieldDescriptor
	Schema() Schema
	NewRecord() Record
	Decode(out Record) (Record, error)
	SetCharset(name string) error
	HasError() bool
	Close() error
}

// Reader is a single decode session over one DBF stream. It is not safe for
// concurrent use.
type Reader struct {
	name    string
	log     zerolog.Logger
	r       *bufio.Reader
	closer  io.Closer
	charset string
	decoder mahonia.Decoder
	header  Header

	fields []FieldDescriptor
	schema Schema
	slots  []int
	buf    []byte
	read   uint32

	started bool
	done    bool
	broken  bool
	errored bool
	closed  bool
}

var _ DBF = (*Reader)(nil)

const (
	SPACE = 0x20
	EOF   = 0x1A
	NUL   = 0x00
)

type options struct {
	fs      afero.Fs
	log     zerolog.Logger
	charset string
}

type Option func(*options)

// WithFs sets the filesystem used when a session is opened by name.
func WithFs(fs afero.Fs) Option {
	return func(o *options) { o.fs = fs }
}

// WithLogger sets the diagnostics sink.
func WithLogger(log zerolog.Logger) Option {
	return func(o *options) { o.log = log }
}

// WithCharset overrides the text charset. Without it the charset is picked
// from the header language driver, falling back to utf-8.
func WithCharset(name string) Option {
	return func(o *options) { o.charset = name }
}

// Open starts a session. When r is non-nil it is read and name only labels
// diagnostics; otherwise the file called name is opened.
func Open(name string, r io.Reader, opts ...Option) (*Reader, error) {
	o := options{fs: afero.NewOsFs(), log: zerolog.Nop()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.charset != "" {
		if _, err := newDecoder(o.charset); err != nil {
			return nil, formatErr(name, "%w: %q", err, o.charset)
		}
	}

	rd := &Reader{
		name:    name,
		charset: o.charset,
	}
	owned := r == nil
	if owned {
		f, err := o.fs.Open(name)
		if err != nil {
			return nil, ioErr(name, err)
		}
		r = f
		rd.closer = f
	} else if c, ok := r.(io.Closer); ok {
		rd.closer = c
	}
	rd.log = o.log.With().Str("file", rd.String()).Str("session", uuid.NewString()).Logger()
	rd.r = bufio.NewReader(r)

	if err := rd.initMetaData(); err != nil {
		if owned {
			_ = rd.closer.Close()
		}
		return nil, err
	}
	rd.log.Debug().
		Int("fields", len(rd.fields)).
		Int("columns", len(rd.schema)).
		Uint32("records", rd.header.NumRecords).
		Msg("opened dbf file")
	return rd, nil
}

// OpenFile opens the named file on the filesystem set with WithFs, or the
// OS filesystem.
func OpenFile(name string, opts ...Option) (*Reader, error) {
	return Open(name, nil, opts...)
}

// NewReader starts a session over an already opened stream.
func NewReader(r io.Reader, opts ...Option) (*Reader, error) {
	return Open("", r, opts...)
}

func (rd *Reader) Header() Header { return rd.header }

func (rd *Reader) NumRecords() uint32 { return rd.header.NumRecords }

func (rd *Reader) FieldCount() int { return len(rd.fields) }

func (rd *Reader) Field(i int) FieldDescriptor { return rd.fields[i] }

func (rd *Reader) Fields() []FieldDescriptor {
	out := make([]FieldDescriptor, len(rd.fields))
	copy(out, rd.fields)
	return out
}

// Schema returns the output columns in on-disk order, without the fields
// whose type is not supported.
func (rd *Reader) Schema() Schema {
	out := make(Schema, len(rd.schema))
	copy(out, rd.schema)
	return out
}

// NewRecord allocates a record sized to the schema.
func (rd *Reader) NewRecord() Record {
	return make(Record, len(rd.schema))
}

// Charset returns the name of the charset used for text fields.
func (rd *Reader) Charset() string { return rd.charset }

// SetCharset changes the text charset. It must be called before the first
// Decode.
func (rd *Reader) SetCharset(name string) error {
	if rd.started {
		return ErrCharsetLocked
	}
	d, err := newDecoder(name)
	if err != nil {
		return fmt.Errorf("%w: %q", err, name)
	}
	rd.charset = name
	rd.decoder = d
	return nil
}

// HasError reports whether a read, field coercion or close failure has been
// seen. Only read failures stop further decoding.
func (rd *Reader) HasError() bool { return rd.errored }

// Close releases the underlying stream. Calling it again is a no-op.
func (rd *Reader) Close() error {
	if rd.closed {
		return nil
	}
	rd.closed = true
	if rd.closer == nil {
		return nil
	}
	if err := rd.closer.Close(); err != nil {
		rd.errored = true
		rd.log.Error().Err(err).Msg("couldn't close file")
		return fmt.Errorf("dbf: close [%s]: %w", rd, err)
	}
	return nil
}

func (rd *Reader) String() string {
	if rd.name != "" {
		return rd.name
	}
	return "dbf.Reader"
}
