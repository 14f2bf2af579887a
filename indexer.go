package gzipi

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/jinzhu/copier"
)

// indexRun holds the per-call state for Index: its own copy of the
// caller's Config (so a caller reusing one Config across concurrent Index
// calls never races on it) plus the Extractor built from it.
type indexRun struct {
	cfg       Config
	extractor Extractor
}

func newIndexRun(cfg Config) (*indexRun, error) {
	run := &indexRun{}
	if err := copier.Copy(&run.cfg, &cfg); err != nil {
		return nil, fmt.Errorf("cloning config: %w", err)
	}

	extractor, err := run.cfg.Extractor()
	if err != nil {
		return nil, err
	}
	run.extractor = extractor
	return run, nil
}

// Index scans a compressed stream of already-chunked frames and writes one
// index entry per record to out, per SPEC_FULL.md section 4.4. input's
// compression format is auto-detected from its leading bytes.
//
// Index does not sort its output; callers that need a point-searchable
// index must run SortIndex afterwards.
func Index(cfg Config, input io.Reader, out io.Writer) error {
	run, err := newIndexRun(cfg)
	if err != nil {
		return err
	}

	br := bufio.NewReader(input)
	prefix, err := br.Peek(4)
	if err != nil && err != io.EOF {
		return errWrap(ErrIO, err)
	}
	kind := Detect(prefix)

	scanner, err := NewFrameScanner(br, kind, run.cfg.ScanBufferSize)
	if err != nil {
		return err
	}

	writer := bufio.NewWriter(out)
	defer writer.Flush()

	frameNum := 0
	for {
		frame, ok, err := scanner.Next()
		if err != nil {
			return err
		}
		if !ok {
			break
		}

		if err := run.indexFrame(frame, writer); err != nil {
			return fmt.Errorf("indexing frame %d (offset %d): %w", frameNum, frame.Start, err)
		}
		frameNum++
	}

	return writer.Flush()
}

// indexFrame decompresses one frame and emits one index entry per record
// it contains.
func (run *indexRun) indexFrame(frame Frame, out *bufio.Writer) error {
	kind := run.cfg.OutputKind
	// The frame scanner already told us the concrete kind via its own
	// detection pass over the stream; frame bytes decompress with the
	// same kind regardless of what the eventual output compression is,
	// so re-detect from the frame's own header rather than trusting
	// cfg.OutputKind (which only governs what Repack produces).
	if detected := Detect(frame.Bytes); detected != KindNone {
		kind = detected
	}

	decoded, err := DecompressFrame(frame.Bytes, kind)
	if err != nil {
		return err
	}

	var lineStart int64
	for lineStart < int64(len(decoded)) {
		nl := bytes.IndexByte(decoded[lineStart:], '\n')
		var line []byte
		var lineLen int64
		if nl == -1 {
			line = decoded[lineStart:]
			lineLen = int64(len(line))
		} else {
			line = decoded[lineStart : lineStart+int64(nl)]
			lineLen = int64(nl) + 1
		}

		if !utf8.Valid(line) {
			return fmt.Errorf("%w: record at line offset %d is not valid UTF-8", ErrDecode, lineStart)
		}

		key, err := run.extractor.Key(line)
		if err != nil {
			return err
		}

		entry := IndexEntry{
			Key:           string(key),
			FrameStartOff: frame.Start,
			FrameLen:      frame.End - frame.Start,
			LineStartOff:  lineStart,
			LineLen:       lineLen,
		}
		if _, err := out.WriteString(entry.Format()); err != nil {
			return errWrap(ErrIO, err)
		}

		lineStart += lineLen
	}

	return nil
}
