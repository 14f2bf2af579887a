package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ProfoundNetworks/gzipi"
)

// promptOverwrite asks the operator for confirmation before overwriting an
// existing output path, matching the reference implementation's CLI
// wording. It returns true if the path does not exist or the operator
// confirmed.
func promptOverwrite(store gzipi.Store, path string) bool {
	if path == "" || path == "-" {
		return true
	}
	if !store.Exists(context.Background(), path) {
		return true
	}
	fmt.Fprintf(os.Stderr, "Output path %q already exists - overwrite? [y/N] ", path)
	reader := bufio.NewReader(os.Stdin)
	answer, _ := reader.ReadString('\n')
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}

// deriveIndexPath defaults an input path's index sibling, per SPEC_FULL.md
// section 4.11: strip a trailing compression extension, if any, and
// append ".gzi".
func deriveIndexPath(inputPath string) string {
	stripped := inputPath
	for _, ext := range []string{".gz", ".zst"} {
		if strings.HasSuffix(stripped, ext) {
			stripped = strings.TrimSuffix(stripped, ext)
			break
		}
	}
	return stripped + ".gzi"
}

// openInput opens path for reading, or stdin if path is empty or "-".
func openInput(ctx context.Context, store gzipi.Store, path string) (io.ReadCloser, error) {
	if path == "" || path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	return store.OpenRead(ctx, path, nil)
}

// openOutput opens path for writing, or stdout if path is empty or "-".
func openOutput(ctx context.Context, store gzipi.Store, path string) (io.WriteCloser, error) {
	if path == "" || path == "-" {
		return nopWriteCloser{os.Stdout}, nil
	}
	return store.OpenWrite(ctx, path)
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

func buildConfig(format, delimiter, field string, column int) gzipi.Config {
	cfg := gzipi.NewConfig()
	cfg.Format = format
	cfg.Delimiter = delimiter
	cfg.Field = field
	cfg.Column = column
	logger := newLogger()
	cfg.Logger = &logger
	return cfg
}

// indexCommand implements `gzipi index`.
type indexCommand struct {
	Format    string `long:"format" required:"yes" choice:"csv" choice:"json" description:"record format"`
	Input     string `short:"i" long:"input-file" description:"input file (default: stdin)"`
	IndexFile string `short:"o" long:"index-file" description:"output index path (default: <input>.gzi)"`
	Column    int    `long:"column" default:"0" description:"CSV key column"`
	Delimiter string `long:"delimiter" default:"|" description:"CSV delimiter"`
	Field     string `long:"field" default:"domain" description:"JSON key field"`
}

func (c *indexCommand) Execute(_ []string) error {
	ctx := context.Background()
	cfg := buildConfig(c.Format, c.Delimiter, c.Field, c.Column)

	inStore := gzipi.ResolveStore(c.Input)
	in, err := openInput(ctx, inStore, c.Input)
	if err != nil {
		fail("opening input: %s", err)
	}
	defer in.Close()

	indexPath := c.IndexFile
	if indexPath == "" {
		if c.Input == "" {
			fail("--index-file is required when reading from stdin")
		}
		indexPath = deriveIndexPath(c.Input)
	}
	indexStore := gzipi.ResolveStore(indexPath)
	if !promptOverwrite(indexStore, indexPath) {
		fail("aborted")
	}
	out, err := openOutput(ctx, indexStore, indexPath)
	if err != nil {
		fail("opening index output: %s", err)
	}

	if err := gzipi.Index(cfg, in, out); err != nil {
		out.Close()
		fail("indexing: %s", err)
	}
	if err := out.Close(); err != nil {
		fail("closing index output: %s", err)
	}

	if indexPath != "" && indexPath != "-" {
		if err := gzipi.SortIndex(cfg, indexPath); err != nil {
			fail("sorting index: %s", err)
		}
	}
	return nil
}

// repackCommand implements `gzipi repack`.
type repackCommand struct {
	Format     string `long:"format" required:"yes" choice:"csv" choice:"json" description:"record format"`
	Input      string `short:"f" long:"input-file" description:"input file (default: stdin)"`
	Output     string `short:"o" long:"output-file" description:"repacked output file"`
	IndexFile  string `short:"i" long:"index-file" description:"output index path (default: <output>.gzi)"`
	Column     int    `long:"column" default:"0" description:"CSV key column"`
	Delimiter  string `long:"delimiter" default:"|" description:"CSV delimiter"`
	Field      string `long:"field" default:"domain" description:"JSON key field"`
	ChunkSize  int    `long:"chunk-size" default:"5000" description:"records per output frame"`
}

func (c *repackCommand) Execute(_ []string) error {
	ctx := context.Background()
	cfg := buildConfig(c.Format, c.Delimiter, c.Field, c.Column)
	cfg.ChunkSize = c.ChunkSize

	inStore := gzipi.ResolveStore(c.Input)
	in, err := openInput(ctx, inStore, c.Input)
	if err != nil {
		fail("opening input: %s", err)
	}
	defer in.Close()

	if c.Output == "" {
		fail("--output-file is required")
	}
	outStore := gzipi.ResolveStore(c.Output)
	if !promptOverwrite(outStore, c.Output) {
		fail("aborted")
	}
	dataOut, err := openOutput(ctx, outStore, c.Output)
	if err != nil {
		fail("opening output: %s", err)
	}

	indexPath := c.IndexFile
	if indexPath == "" {
		indexPath = deriveIndexPath(c.Output)
	}
	indexStore := gzipi.ResolveStore(indexPath)
	if !promptOverwrite(indexStore, indexPath) {
		fail("aborted")
	}
	indexOut, err := openOutput(ctx, indexStore, indexPath)
	if err != nil {
		fail("opening index output: %s", err)
	}

	if err := gzipi.Repack(cfg, in, dataOut, indexOut); err != nil {
		dataOut.Close()
		indexOut.Close()
		fail("repacking: %s", err)
	}
	if err := dataOut.Close(); err != nil {
		fail("closing output: %s", err)
	}
	if err := indexOut.Close(); err != nil {
		fail("closing index output: %s", err)
	}

	if err := gzipi.SortIndex(cfg, indexPath); err != nil {
		fail("sorting index: %s", err)
	}
	return nil
}

// retrieveCommand implements `gzipi retrieve`.
type retrieveCommand struct {
	Input     string `short:"f" long:"input-file" required:"yes" description:"data file"`
	Keys      string `short:"k" long:"keys" description:"file of newline-delimited keys to look up (default: stdin)"`
	IndexFile string `short:"i" long:"index-file" description:"index path (default: <input>.gzi)"`
	Output    string `short:"o" long:"output-file" description:"output file (default: stdout)"`
}

// readKeys reads newline-delimited keys from path, or from stdin if path is
// empty or "-".
func readKeys(ctx context.Context, store gzipi.Store, path string) ([][]byte, error) {
	in, err := openInput(ctx, store, path)
	if err != nil {
		return nil, err
	}
	defer in.Close()

	var keys [][]byte
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		key := make([]byte, len(line))
		copy(key, line)
		keys = append(keys, key)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return keys, nil
}

func (c *retrieveCommand) Execute(_ []string) error {
	ctx := context.Background()
	cfg := gzipi.NewConfig()
	logger := newLogger()
	cfg.Logger = &logger

	indexPath := c.IndexFile
	if indexPath == "" {
		indexPath = deriveIndexPath(c.Input)
	}

	dataStore := gzipi.ResolveStore(c.Input)
	indexStore := gzipi.ResolveStore(indexPath)
	outStore := gzipi.ResolveStore(c.Output)

	out, err := openOutput(ctx, outStore, c.Output)
	if err != nil {
		fail("opening output: %s", err)
	}
	defer out.Close()

	keysStore := gzipi.ResolveStore(c.Keys)
	keys, err := readKeys(ctx, keysStore, c.Keys)
	if err != nil {
		fail("reading keys: %s", err)
	}

	if err := gzipi.Retrieve(ctx, cfg, dataStore, c.Input, indexStore, indexPath, keys, out); err != nil {
		fail("retrieving: %s", err)
	}
	return nil
}

// searchCommand implements `gzipi search`.
type searchCommand struct {
	Input     string `short:"f" long:"input-file" required:"yes" description:"data file"`
	Key       string `short:"k" long:"key" required:"yes" description:"key to look up"`
	IndexFile string `short:"i" long:"index-file" description:"index path (default: <input>.gzi)"`
	Output    string `short:"o" long:"output-file" description:"output file (default: stdout)"`
}

func (c *searchCommand) Execute(_ []string) error {
	ctx := context.Background()
	cfg := gzipi.NewConfig()
	logger := newLogger()
	cfg.Logger = &logger

	indexPath := c.IndexFile
	if indexPath == "" {
		indexPath = deriveIndexPath(c.Input)
	}

	dataStore := gzipi.ResolveStore(c.Input)
	indexStore := gzipi.ResolveStore(indexPath)
	outStore := gzipi.ResolveStore(c.Output)

	out, err := openOutput(ctx, outStore, c.Output)
	if err != nil {
		fail("opening output: %s", err)
	}
	defer out.Close()

	if err := gzipi.Search(ctx, cfg, dataStore, c.Input, indexStore, indexPath, []byte(c.Key), out); err != nil {
		fail("searching: %s", err)
	}
	return nil
}
