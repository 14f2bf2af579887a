package gzipi

import (
	"bufio"
	"io"

	"github.com/cespare/xxhash/v2"
)

// Repack reads one long compressed stream and rewrites it as a
// concatenation of small, independently decodable frames of at most
// cfg.ChunkSize records each, writing one IndexEntry per record to
// indexOut (SPEC_FULL.md section 4.6). A zero-record input still produces
// a well-formed, single-empty-frame output in cfg.OutputKind.
//
// Repack does not sort indexOut; callers that need a point-searchable
// index must run SortIndex afterwards.
func Repack(cfg Config, input io.Reader, dataOut io.Writer, indexOut io.Writer) error {
	extractor, err := cfg.Extractor()
	if err != nil {
		return err
	}

	br := bufio.NewReader(input)
	prefix, err := br.Peek(4)
	if err != nil && err != io.EOF {
		return errWrap(ErrIO, err)
	}
	kind := Detect(prefix)

	decompressed, err := OpenReader(br, kind)
	if err != nil {
		return err
	}
	defer decompressed.Close()

	recordReader := bufio.NewReader(decompressed)
	indexWriter := bufio.NewWriter(indexOut)
	defer indexWriter.Flush()

	var frameStart int64
	wroteAnyFrame := false

	for {
		batch, eof, err := readBatch(recordReader, cfg.ChunkSize)
		if err != nil {
			return err
		}
		if len(batch) == 0 {
			break
		}

		frameLen, err := repackBatch(cfg, extractor, batch, frameStart, dataOut, indexWriter)
		if err != nil {
			return err
		}
		frameStart += frameLen
		wroteAnyFrame = true

		if eof {
			break
		}
	}

	if !wroteAnyFrame {
		return writeEmptyFrame(cfg.OutputKind, dataOut)
	}

	return indexWriter.Flush()
}

// readBatch reads up to n whole records (including their trailing '\n',
// if present) from r. eof reports whether the underlying reader is
// exhausted; the final record of a stream lacking a trailing newline is
// still returned, without one.
func readBatch(r *bufio.Reader, n int) (batch [][]byte, eof bool, err error) {
	for len(batch) < n {
		line, readErr := r.ReadBytes('\n')
		if len(line) > 0 {
			batch = append(batch, line)
		}
		if readErr == io.EOF {
			return batch, true, nil
		}
		if readErr != nil {
			return nil, false, errWrap(ErrIO, readErr)
		}
	}
	return batch, false, nil
}

// repackBatch compresses one batch of records into a single frame,
// appends it to dataOut, and writes one index entry per record to
// indexWriter. It returns the frame's compressed length.
func repackBatch(cfg Config, extractor Extractor, batch [][]byte, frameStart int64, dataOut io.Writer, indexWriter *bufio.Writer) (int64, error) {
	fw := OpenWriter(cfg.OutputKind)

	type pending struct {
		key       string
		lineStart int64
		lineLen   int64
	}
	entries := make([]pending, 0, len(batch))

	var lineStart int64
	for _, line := range batch {
		trimmed := line
		if n := len(trimmed); n > 0 && trimmed[n-1] == '\n' {
			trimmed = trimmed[:n-1]
		}
		key, err := extractor.Key(trimmed)
		if err != nil {
			return 0, err
		}
		if _, err := fw.Write(line); err != nil {
			return 0, errWrap(ErrIO, err)
		}
		entries = append(entries, pending{key: string(key), lineStart: lineStart, lineLen: int64(len(line))})
		lineStart += int64(len(line))
	}

	if err := fw.Close(); err != nil {
		return 0, err
	}
	frameBytes := fw.Bytes()
	frameLen := int64(len(frameBytes))

	if _, err := dataOut.Write(frameBytes); err != nil {
		return 0, errWrap(ErrIO, err)
	}
	if flusher, ok := dataOut.(interface{ Flush() error }); ok {
		if err := flusher.Flush(); err != nil {
			return 0, errWrap(ErrIO, err)
		}
	}

	cfg.log().Debug().
		Int64("frame_start", frameStart).
		Int64("frame_len", frameLen).
		Str("frame_xxhash", xxhashHex(frameBytes)).
		Int("records", len(batch)).
		Msg("repack: wrote frame")

	for _, e := range entries {
		entry := IndexEntry{
			Key:           e.key,
			FrameStartOff: frameStart,
			FrameLen:      frameLen,
			LineStartOff:  e.lineStart,
			LineLen:       e.lineLen,
		}
		if _, err := indexWriter.WriteString(entry.Format()); err != nil {
			return 0, errWrap(ErrIO, err)
		}
	}
	if err := indexWriter.Flush(); err != nil {
		return 0, errWrap(ErrIO, err)
	}

	return frameLen, nil
}

// writeEmptyFrame emits a single empty compressed frame of the given
// kind, so that repacking a zero-record input still yields a well-formed
// compressed file in the requested output format (SPEC_FULL.md section
// 4.6, fixing the reference implementation's hard-coded-zstd bug noted in
// section 9).
func writeEmptyFrame(kind Kind, dataOut io.Writer) error {
	fw := OpenWriter(kind)
	if err := fw.Close(); err != nil {
		return err
	}
	if _, err := dataOut.Write(fw.Bytes()); err != nil {
		return errWrap(ErrIO, err)
	}
	return nil
}

func xxhashHex(b []byte) string {
	h := xxhash.Sum64(b)
	const hexDigits = "0123456789abcdef"
	buf := make([]byte, 16)
	for i := 15; i >= 0; i-- {
		buf[i] = hexDigits[h&0xf]
		h >>= 4
	}
	return string(buf)
}
