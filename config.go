package gzipi

import (
	"runtime"

	"github.com/rs/zerolog"
)

// Defaults for the various knobs a Config exposes, matching SPEC_FULL.md
// section 6's CLI flag defaults.
const (
	DefaultCSVColumn    = 0
	DefaultCSVDelimiter = "|"
	DefaultJSONField    = "domain"
	DefaultChunkSize    = 5000
	DefaultBatchSize    = 5000
	DefaultScanBuffer   = defaultScanBufferSize
	DefaultBlockSize    = 4096
	// DefaultBufferThresholdKB is T from SPEC_FULL.md section 4.7: once the
	// binary search window shrinks below this many kibibytes, the
	// remaining slice is read into memory in one shot.
	DefaultBufferThresholdKB = 1024

	gzipExtension  = ".gzi"
	indexSeparator = '|'
)

// Config bundles every knob a caller needs to index, repack, search, or
// retrieve from a dataset. A single Config is built once (by the CLI from
// flags, or directly by a library caller) and passed explicitly into each
// entry point; nothing in this package reads from a process-wide global.
type Config struct {
	// Format is "csv" or "json", selecting which Extractor NewExtractor
	// builds.
	Format string
	// Column is the zero-based CSV field index holding the key.
	Column int
	// Delimiter is the CSV field delimiter.
	Delimiter string
	// Field is the JSON object field name holding the key.
	Field string

	// ChunkSize is the number of records the repacker packs into each
	// output frame.
	ChunkSize int
	// OutputKind is the compression format of repacked data and of a
	// freshly-written index file.
	OutputKind Kind

	// ScanBufferSize is the read chunk size the frame scanner uses.
	ScanBufferSize int
	// BatchSize bounds how many keys Retrieve reads at a time.
	BatchSize int
	// BufferThresholdKB is T from SPEC_FULL.md section 4.7.
	BufferThresholdKB int64

	// SortParallelism is the thread count passed to the external sort
	// utility. Zero means runtime.NumCPU().
	SortParallelism int

	Logger *zerolog.Logger
}

// NewConfig returns a Config populated with the defaults from
// SPEC_FULL.md's CLI surface.
func NewConfig() Config {
	return Config{
		Format:            "csv",
		Column:            DefaultCSVColumn,
		Delimiter:         DefaultCSVDelimiter,
		Field:             DefaultJSONField,
		ChunkSize:         DefaultChunkSize,
		OutputKind:        KindGzip,
		ScanBufferSize:    DefaultScanBuffer,
		BatchSize:         DefaultBatchSize,
		BufferThresholdKB: DefaultBufferThresholdKB,
		SortParallelism:   runtime.NumCPU(),
	}
}

// Extractor builds the Extractor this Config describes.
func (c Config) Extractor() (Extractor, error) {
	return NewExtractor(c.Format, c.Column, c.Delimiter, c.Field)
}

// log returns c.Logger, or a disabled logger if none was set, so call
// sites can always write cfg.log().Debug()... without a nil check.
func (c Config) log() *zerolog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	nop := zerolog.Nop()
	return &nop
}
