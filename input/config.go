package input

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/Ulysses-Xu/go-dbf/source"
)

// Config is the host configuration of a multi-file input.
type Config struct {
	Files           []string
	Charset         string
	IncludeFilename bool
	FilenameField   string
	IncludeRowNum   bool
	RowNumField     string
	RowLimit        int64
	FeedbackSize    int64
	Compression     source.Compression
}

type fileConfig struct {
	Files           []string `toml:"files"`
	Charset         string   `toml:"charset"`
	IncludeFilename bool     `toml:"include_filename"`
	FilenameField   string   `toml:"filename_field"`
	IncludeRowNum   bool     `toml:"include_rownum"`
	RowNumField     string   `toml:"rownum_field"`
	RowLimit        int64    `toml:"row_limit"`
	FeedbackSize    int64    `toml:"feedback_size"`
	Compression     string   `toml:"compression"`
}

func DefaultConfig() Config {
	return Config{
		FilenameField: "filename",
		RowNumField:   "rownum",
		Compression:   source.CompressionAuto,
	}
}

// LoadConfig overlays the keys present in the TOML file at path onto
// DefaultConfig.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("load input config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("load input config: unknown key %s", undecoded[0])
	}

	if meta.IsDefined("files") {
		cfg.Files = normalizeFiles(raw.Files)
	}
	if meta.IsDefined("charset") {
		cfg.Charset = strings.TrimSpace(raw.Charset)
	}
	if meta.IsDefined("include_filename") {
		cfg.IncludeFilename = raw.IncludeFilename
	}
	if meta.IsDefined("filename_field") {
		cfg.FilenameField = strings.TrimSpace(raw.FilenameField)
	}
	if meta.IsDefined("include_rownum") {
		cfg.IncludeRowNum = raw.IncludeRowNum
	}
	if meta.IsDefined("rownum_field") {
		cfg.RowNumField = strings.TrimSpace(raw.RowNumField)
	}
	if meta.IsDefined("row_limit") {
		cfg.RowLimit = raw.RowLimit
	}
	if meta.IsDefined("feedback_size") {
		cfg.FeedbackSize = raw.FeedbackSize
	}
	if meta.IsDefined("compression") {
		c, err := source.ParseCompression(raw.Compression)
		if err != nil {
			return Config{}, fmt.Errorf("load input config: %w", err)
		}
		cfg.Compression = c
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.RowLimit < 0 {
		return errors.New("input config: row_limit must not be negative")
	}
	if c.FeedbackSize < 0 {
		return errors.New("input config: feedback_size must not be negative")
	}
	if c.IncludeFilename && c.FilenameField == "" {
		return errors.New("input config: filename_field is required with include_filename")
	}
	if c.IncludeRowNum && c.RowNumField == "" {
		return errors.New("input config: rownum_field is required with include_rownum")
	}
	if c.IncludeFilename && c.IncludeRowNum && c.FilenameField == c.RowNumField {
		return fmt.Errorf("input config: filename_field and rownum_field are both %q", c.FilenameField)
	}
	if _, err := source.ParseCompression(string(c.Compression)); err != nil {
		return fmt.Errorf("input config: %w", err)
	}
	return nil
}

// ReadFileList reads one file name per line, skipping blank lines and lines
// starting with #.
func ReadFileList(r io.Reader) ([]string, error) {
	var names []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		names = append(names, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read file list: %w", err)
	}
	return names, nil
}

func normalizeFiles(in []string) []string {
	out := make([]string, 0, len(in))
	for _, f := range in {
		f = strings.TrimSpace(f)
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}
