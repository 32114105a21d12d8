package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/goccy/go-json"

	dbf "github.com/Ulysses-Xu/go-dbf"
	"github.com/Ulysses-Xu/go-dbf/input"
	"github.com/Ulysses-Xu/go-dbf/internal/logging"
	"github.com/Ulysses-Xu/go-dbf/source"
)

func main() {
	var (
		configPath  string
		charset     string
		limit       int64
		filename    bool
		rownum      bool
		compression string
		filesFrom   string
		schemaOnly  bool
	)

	flag.StringVar(&configPath, "config", "", "TOML input configuration file")
	flag.StringVar(&charset, "charset", "", "Charset of text fields (default: from the file header)")
	flag.Int64Var(&limit, "limit", 0, "Stop after this many rows (0 = no limit)")
	flag.BoolVar(&filename, "filename", false, "Append the source file name to every row")
	flag.BoolVar(&rownum, "rownum", false, "Append the row number to every row")
	flag.StringVar(&compression, "compression", "", "none, auto, gzip, zstd or lz4")
	flag.StringVar(&filesFrom, "files-from", "", "Read file names from this file, one per line (- for stdin)")
	flag.BoolVar(&schemaOnly, "schema", false, "Print the schema instead of the rows")
	flag.Parse()

	log := logging.New(logging.ProfileRuntime, os.Stderr)

	cfg := input.DefaultConfig()
	if configPath != "" {
		var err error
		cfg, err = input.LoadConfig(configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
	}
	set := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })
	if set["charset"] {
		cfg.Charset = charset
	}
	if set["limit"] {
		cfg.RowLimit = limit
	}
	if set["filename"] {
		cfg.IncludeFilename = filename
	}
	if set["rownum"] {
		cfg.IncludeRowNum = rownum
	}
	if set["compression"] {
		c, err := source.ParseCompression(compression)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		cfg.Compression = c
	}
	if filesFrom != "" {
		names, err := readFileList(filesFrom)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		cfg.Files = append(cfg.Files, names...)
	}
	cfg.Files = append(cfg.Files, flag.Args()...)
	if len(cfg.Files) == 0 {
		fmt.Fprintf(os.Stderr, "error: at least one file must be specified\n")
		flag.Usage()
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info().Msg("received shutdown signal")
		cancel()
	}()

	in, err := input.New(cfg, input.WithLogger(log))
	if err != nil {
		log.Error().Err(err).Msg("failed to open input")
		os.Exit(1)
	}

	out := bufio.NewWriter(os.Stdout)
	if schemaOnly {
		err = writeSchema(out, in.Schema())
	} else {
		err = dump(ctx, out, in)
	}
	if cerr := in.Close(); cerr != nil && err == nil {
		err = cerr
	}
	if ferr := out.Flush(); ferr != nil && err == nil {
		err = ferr
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("dump failed")
		os.Exit(1)
	}
}

func readFileList(path string) ([]string, error) {
	if path == "-" {
		return input.ReadFileList(os.Stdin)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return input.ReadFileList(f)
}

type rowSource interface {
	Schema() dbf.Schema
	Next(ctx context.Context) (dbf.Record, error)
}

// dump writes every row as one JSON object per line.
func dump(ctx context.Context, w io.Writer, in rowSource) error {
	schema := in.Schema()
	enc := json.NewEncoder(w)
	for {
		row, err := in.Next(ctx)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		obj := make(map[string]any, len(schema))
		for i, c := range schema {
			obj[c.Name] = cellValue(row[i])
		}
		if err := enc.Encode(obj); err != nil {
			return err
		}
	}
}

func cellValue(v dbf.Value) any {
	if v.Kind() == dbf.KindDate {
		return v.Date().Format("2006-01-02")
	}
	return v.Any()
}

func writeSchema(w io.Writer, schema dbf.Schema) error {
	for _, c := range schema {
		if _, err := fmt.Fprintf(w, "%-12s %-8s %4d %3d\n", c.Name, c.Kind, c.Length, c.Decimals); err != nil {
			return err
		}
	}
	return nil
}
