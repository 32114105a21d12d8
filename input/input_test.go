package input

import (
	"bytes"
	"context"
	"encoding/binary"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	dbf "github.com/Ulysses-Xu/go-dbf"
	"github.com/Ulysses-Xu/go-dbf/source"
)

type col struct {
	name   string
	typ    byte
	length int
}

// buildDBF writes a minimal dBase III table. Cells are space padded.
func buildDBF(cols []col, rows [][]string) []byte {
	var buf bytes.Buffer
	recLen := 1
	for _, c := range cols {
		recLen += c.length
	}
	h := dbf.Header{
		Version:      0x03,
		NumRecords:   uint32(len(rows)),
		HeaderLength: uint16(32 + 32*len(cols) + 1),
		RecordLength: uint16(recLen),
	}
	_ = binary.Write(&buf, binary.LittleEndian, h)
	for _, c := range cols {
		var desc [32]byte
		copy(desc[:11], c.name)
		desc[11] = c.typ
		desc[16] = byte(c.length)
		buf.Write(desc[:])
	}
	buf.WriteByte(0x0D)
	for _, r := range rows {
		buf.WriteByte(' ')
		for i, c := range cols {
			cell := bytes.Repeat([]byte{' '}, c.length)
			copy(cell, r[i])
			buf.Write(cell)
		}
	}
	buf.WriteByte(0x1A)
	return buf.Bytes()
}

var peopleCols = []col{{"NAME", 'C', 8}, {"AGE", 'N', 3}}

func newFs(t *testing.T) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/in/a.dbf", buildDBF(peopleCols, [][]string{{"Alice", "30"}, {"Bob", "41"}}), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/in/b.dbf", buildDBF(peopleCols, [][]string{{"Carol", "25"}}), 0o644))
	return fs
}

func drain(t *testing.T, in *Input) []dbf.Record {
	t.Helper()
	var rows []dbf.Record
	for {
		row, err := in.Next(context.Background())
		if err == io.EOF {
			return rows
		}
		require.NoError(t, err)
		rows = append(rows, row)
	}
}

func TestInput_ConcatenatesFiles(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Files = []string{"/in/*.dbf"}
	cfg.IncludeFilename = true
	cfg.IncludeRowNum = true

	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	in, err := New(cfg, WithFs(newFs(t)), WithMetrics(m), WithLogger(zerolog.Nop()))
	require.NoError(t, err)
	defer in.Close()

	require.Equal(t, []string{"/in/a.dbf", "/in/b.dbf"}, in.Files())
	schema := in.Schema()
	require.Len(t, schema, 4)
	require.Equal(t, "filename", schema[2].Name)
	require.Equal(t, "rownum", schema[3].Name)
	require.Equal(t, dbf.ColumnNumber, schema[3].Kind)
	require.Equal(t, 0, schema[3].Decimals)

	rows := drain(t, in)
	require.Len(t, rows, 3)
	require.Equal(t, dbf.Record{dbf.Text("Alice"), dbf.Number(30), dbf.Text("/in/a.dbf"), dbf.Number(1)}, rows[0])
	require.Equal(t, dbf.Record{dbf.Text("Carol"), dbf.Number(25), dbf.Text("/in/b.dbf"), dbf.Number(3)}, rows[2])
	for i, row := range rows {
		require.Equal(t, dbf.Number(float64(i+1)), row[3])
	}
	require.Equal(t, int64(3), in.Lines())

	require.Equal(t, float64(3), testutil.ToFloat64(m.RecordsRead))
	require.Equal(t, float64(2), testutil.ToFloat64(m.FilesOpened))

	_, err = in.Next(context.Background())
	require.Equal(t, io.EOF, err)
}

func TestInput_RowLimit(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Files = []string{"/in/a.dbf", "/in/b.dbf"}
	cfg.RowLimit = 2

	in, err := New(cfg, WithFs(newFs(t)))
	require.NoError(t, err)
	rows := drain(t, in)
	require.Len(t, rows, 2)
	require.Len(t, rows[1], 2)
	require.NoError(t, in.Close())
}

func TestInput_RowLimitLeavesFilesUnopened(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Files = []string{"/in/*.dbf"}
	cfg.RowLimit = 1

	in, err := New(cfg, WithFs(newFs(t)))
	require.NoError(t, err)
	rows := drain(t, in)
	require.Len(t, rows, 1)
	require.Equal(t, []string{"/in/a.dbf", "/in/b.dbf"}, in.Files())
	require.Equal(t, []string{"/in/a.dbf"}, in.Opened())
}

func TestInput_CorruptFileEndsInput(t *testing.T) {
	fs := newFs(t)
	data := buildDBF(peopleCols, [][]string{{"Alice", "30"}, {"Bob", "41"}})
	// Drop the end marker and the tail of the second record.
	require.NoError(t, afero.WriteFile(fs, "/in/a.dbf", data[:len(data)-6], 0o644))

	cfg := DefaultConfig()
	cfg.Files = []string{"/in/a.dbf", "/in/b.dbf"}
	m := NewMetrics(prometheus.NewRegistry())
	in, err := New(cfg, WithFs(fs), WithMetrics(m))
	require.NoError(t, err)

	row, err := in.Next(context.Background())
	require.NoError(t, err)
	require.Equal(t, dbf.Text("Alice"), row[0])

	_, err = in.Next(context.Background())
	require.ErrorIs(t, err, dbf.ErrCorrupt)
	first := err

	for i := 0; i < 3; i++ {
		_, err = in.Next(context.Background())
		require.Equal(t, first, err)
	}
	require.Equal(t, float64(1), testutil.ToFloat64(m.DecodeErrors.WithLabelValues("corrupt")))
	require.Equal(t, []string{"/in/a.dbf"}, in.Opened())
	require.NoError(t, in.Close())
}

func TestInput_Cancelled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Files = []string{"/in/a.dbf"}
	in, err := New(cfg, WithFs(newFs(t)))
	require.NoError(t, err)
	defer in.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = in.Next(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestInput_NoFiles(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Files = []string{"/in/*.xyz"}
	_, err := New(cfg, WithFs(newFs(t)))
	require.ErrorIs(t, err, ErrNoFiles)
}

func TestInput_OpenFailure(t *testing.T) {
	fs := newFs(t)
	require.NoError(t, afero.WriteFile(fs, "/in/bad.dbf", []byte("not a dbf"), 0o644))

	cfg := DefaultConfig()
	cfg.Files = []string{"/in/bad.dbf"}
	_, err := New(cfg, WithFs(fs))
	require.ErrorIs(t, err, dbf.ErrFormat)
}

func TestInput_SchemaMismatch(t *testing.T) {
	fs := newFs(t)
	other := buildDBF([]col{{"FLAG", 'L', 1}}, [][]string{{"T"}})
	require.NoError(t, afero.WriteFile(fs, "/in/c.dbf", other, 0o644))

	cfg := DefaultConfig()
	cfg.Files = []string{"/in/a.dbf", "/in/c.dbf"}
	in, err := New(cfg, WithFs(fs))
	require.NoError(t, err)
	defer in.Close()

	for i := 0; i < 2; i++ {
		_, err = in.Next(context.Background())
		require.NoError(t, err)
	}
	_, err = in.Next(context.Background())
	require.ErrorIs(t, err, ErrSchemaMismatch)
}

func TestInput_CoercionErrorCounted(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/in/x.dbf", buildDBF(peopleCols, [][]string{{"Zed", "abc"}, {"Amy", "5"}}), 0o644))

	cfg := DefaultConfig()
	cfg.Files = []string{"/in/x.dbf"}
	m := NewMetrics(prometheus.NewRegistry())
	in, err := New(cfg, WithFs(fs), WithMetrics(m))
	require.NoError(t, err)
	defer in.Close()

	_, err = in.Next(context.Background())
	require.ErrorIs(t, err, dbf.ErrFieldCoercion)
	require.Equal(t, float64(1), testutil.ToFloat64(m.DecodeErrors.WithLabelValues("coercion")))

	row, err := in.Next(context.Background())
	require.NoError(t, err)
	require.Equal(t, dbf.Text("Amy"), row[0])
}

func TestInput_GzipSource(t *testing.T) {
	fs := afero.NewMemMapFs()
	var gz bytes.Buffer
	zw := gzip.NewWriter(&gz)
	_, err := zw.Write(buildDBF(peopleCols, [][]string{{"Dora", "52"}}))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, afero.WriteFile(fs, "/in/d.dbf.gz", gz.Bytes(), 0o644))

	cfg := DefaultConfig()
	cfg.Files = []string{"/in/d.dbf.gz"}
	in, err := New(cfg, WithFs(fs))
	require.NoError(t, err)
	rows := drain(t, in)
	require.Equal(t, []dbf.Record{{dbf.Text("Dora"), dbf.Number(52)}}, rows)
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "input.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
files = ["a.dbf", " ", "b/*.dbf"]
charset = "gbk"
include_rownum = true
rownum_field = "line"
row_limit = 10
compression = "gzip"
`), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, []string{"a.dbf", "b/*.dbf"}, cfg.Files)
	require.Equal(t, "gbk", cfg.Charset)
	require.True(t, cfg.IncludeRowNum)
	require.Equal(t, "line", cfg.RowNumField)
	require.Equal(t, "filename", cfg.FilenameField)
	require.Equal(t, int64(10), cfg.RowLimit)
	require.Equal(t, source.CompressionGzip, cfg.Compression)
}

func TestLoadConfig_Invalid(t *testing.T) {
	dir := t.TempDir()
	cases := map[string]string{
		"unknown key":  `colour = "red"`,
		"bad limit":    `row_limit = -1`,
		"bad codec":    `compression = "rar"`,
		"empty field":  "include_filename = true\nfilename_field = \"\"",
		"not toml":     `files = [`,
		"same columns": "include_filename = true\ninclude_rownum = true\nfilename_field = \"x\"\nrownum_field = \"x\"",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name+".toml")
			require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
			_, err := LoadConfig(path)
			require.Error(t, err)
		})
	}
	_, err := LoadConfig(filepath.Join(dir, "missing.toml"))
	require.Error(t, err)
}

func TestReadFileList(t *testing.T) {
	names, err := ReadFileList(bytes.NewBufferString("a.dbf\n\n# comment\n  b.dbf  \n"))
	require.NoError(t, err)
	require.Equal(t, []string{"a.dbf", "b.dbf"}, names)
}
