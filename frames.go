package gzipi

import (
	"bytes"
	"io"
)

// defaultScanBufferSize is the chunk size FrameScanner reads from its
// underlying stream between header searches. Large enough to amortize the
// cost of the repeated bytes.LastIndex scan, small enough that a file
// made of many small frames doesn't force one giant read.
const defaultScanBufferSize = 100 * 1024

// Frame is one contiguous, independently decodable compressed block,
// together with its byte offsets in the stream FrameScanner walked.
type Frame struct {
	Bytes []byte
	Start int64
	End   int64
}

// FrameScanner is a lazy, finite, non-restartable iterator over the frame
// boundaries of a concatenated compressed stream: it scans for gzip/zstd
// magic headers without decoding any frame's payload, so that locating a
// frame costs one pass over the raw bytes rather than a full decompress.
//
// Call Next repeatedly until it reports ok=false; a FrameScanner cannot be
// rewound or reused once exhausted.
type FrameScanner struct {
	r        io.Reader
	kind     Kind
	bufSize  int
	magic    []byte
	hdrLen   int
	validate func([]byte) bool

	acc      []byte
	curStart int64
	eof      bool
	done     bool
}

// NewFrameScanner returns a FrameScanner over r, whose frames are of the
// given kind. bufSize is the read chunk size; pass 0 to use a sensible
// default.
func NewFrameScanner(r io.Reader, kind Kind, bufSize int) (*FrameScanner, error) {
	if bufSize <= 0 {
		bufSize = defaultScanBufferSize
	}

	fs := &FrameScanner{r: r, kind: kind, bufSize: bufSize}
	switch kind {
	case KindGzip:
		fs.magic = gzipMagic
		fs.hdrLen = 10
		fs.validate = validGzipHeader
	case KindZstd:
		fs.magic = zstdMagic
		fs.hdrLen = 5
		fs.validate = func(h []byte) bool { return validZstdHeader(h[4]) }
	default:
		return nil, ErrUnsupportedCompression
	}
	return fs, nil
}

// Next returns the next frame in the stream. ok is false, with a nil Frame
// and nil error, once the stream is exhausted; Next must not be called
// again afterwards.
func (fs *FrameScanner) Next() (Frame, bool, error) {
	if fs.done {
		return Frame{}, false, nil
	}

	buf := make([]byte, fs.bufSize)
	for {
		if idx := fs.candidateHeader(); idx > 0 {
			prefix := fs.acc[:idx]
			frame := Frame{
				Bytes: append([]byte(nil), prefix...),
				Start: fs.curStart,
				End:   fs.curStart + int64(len(prefix)),
			}
			fs.curStart = frame.End
			fs.acc = append([]byte(nil), fs.acc[idx:]...)
			return frame, true, nil
		}

		if fs.eof {
			frame := Frame{
				Bytes: fs.acc,
				Start: fs.curStart,
				End:   fs.curStart + int64(len(fs.acc)),
			}
			fs.curStart = frame.End
			fs.acc = nil
			fs.done = true
			return frame, true, nil
		}

		n, err := fs.r.Read(buf)
		if n > 0 {
			fs.acc = append(fs.acc, buf[:n]...)
		}
		if err == io.EOF {
			fs.eof = true
			continue
		}
		if err != nil {
			return Frame{}, false, errWrap(ErrIO, err)
		}
	}
}

// candidateHeader returns the offset of the last validated header
// occurrence in fs.acc, or -1 if there is none we can act on yet (no
// occurrence, an occurrence at offset 0, too few trailing bytes to
// validate, or a validation failure).
func (fs *FrameScanner) candidateHeader() int {
	idx := bytes.LastIndex(fs.acc, fs.magic)
	if idx <= 0 {
		return -1
	}
	if len(fs.acc)-idx < fs.hdrLen {
		return -1
	}
	if !fs.validate(fs.acc[idx : idx+fs.hdrLen]) {
		return -1
	}
	return idx
}
