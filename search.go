package gzipi

import (
	"bytes"
	"fmt"
	"io"
)

// lookbehindInitialSize is the first lookbehind buffer size startOfLine
// tries; it doubles on each retry until a newline is found or the start
// of the stream is reached.
const lookbehindInitialSize = 4096

// startOfLine returns the offset of the first byte of the line containing
// position pos: it walks backwards from pos looking for the preceding
// '\n', doubling its lookbehind window each time it fails to find one,
// per SPEC_FULL.md section 4.7.
func startOfLine(r io.ReaderAt, pos int64) (int64, error) {
	if pos <= 0 {
		return 0, nil
	}

	size := int64(lookbehindInitialSize)
	for {
		start := pos - size
		if start < 0 {
			start = 0
		}
		window := make([]byte, pos-start)
		if _, err := r.ReadAt(window, start); err != nil && err != io.EOF {
			return 0, errWrap(ErrIO, err)
		}

		if idx := bytes.LastIndexByte(window, '\n'); idx != -1 {
			return start + int64(idx) + 1, nil
		}
		if start == 0 {
			return 0, nil
		}
		size *= 2
	}
}

// readLine reads one full '\n'-terminated line (or the remaining bytes if
// the stream ends without a trailing newline) starting at pos, returning
// the line bytes (including the newline, if present) and the offset
// immediately following it.
func readLine(r io.ReaderAt, pos int64, fsize int64) ([]byte, int64, error) {
	const chunkSize = 4096
	var collected []byte
	offset := pos

	for {
		remaining := fsize - offset
		if remaining <= 0 {
			return collected, offset, nil
		}
		n := int64(chunkSize)
		if remaining < n {
			n = remaining
		}
		buf := make([]byte, n)
		if _, err := r.ReadAt(buf, offset); err != nil && err != io.EOF {
			return nil, 0, errWrap(ErrIO, err)
		}

		if idx := bytes.IndexByte(buf, '\n'); idx != -1 {
			collected = append(collected, buf[:idx+1]...)
			return collected, offset + int64(idx) + 1, nil
		}
		collected = append(collected, buf...)
		offset += n
	}
}

// bufferChunk reads the index range spanning [start, end) into memory,
// extending left to the start of the line containing start and right to
// the end of the line containing end-1, so the returned buffer holds only
// whole lines. It returns the buffer together with start, end and pivot
// translated into the buffer's own coordinate system: the buffer's first
// byte becomes offset 0, and pivot/end are shifted by the same amount
// (the offset of the extended left boundary in the original stream).
func bufferChunk(r io.ReaderAt, fsize, start, end, pivot int64) (buf []byte, newStart, newEnd, newPivot int64, err error) {
	lineStart, err := startOfLine(r, start)
	if err != nil {
		return nil, 0, 0, 0, err
	}

	lineEnd := end
	if end > 0 && end < fsize {
		// Extend right to the end of the line containing end-1: find
		// the next newline at or after end-1.
		_, after, lerr := readLine(r, end-1, fsize)
		if lerr != nil {
			return nil, 0, 0, 0, lerr
		}
		// If end already sits exactly on a line boundary, byte end-1 is
		// that newline and after == end, so the buffer is not extended.
		if after > end {
			lineEnd = after
		}
	}

	buf = make([]byte, lineEnd-lineStart)
	if _, err := r.ReadAt(buf, lineStart); err != nil && err != io.EOF {
		return nil, 0, 0, 0, errWrap(ErrIO, err)
	}

	return buf, start - lineStart, lineEnd - lineStart, pivot - lineStart, nil
}

// triple identifies one iteration's (start, pivot, end) window, used to
// detect the infinite loop that signals an unsorted index.
type triple struct {
	start, pivot, end int64
}

// BinarySearch locates the index entry whose key equals key in the sorted
// index addressed by r (of total size fsize), per SPEC_FULL.md section
// 4.7. thresholdKB is T, the in-memory buffering threshold; zero means
// DefaultBufferThresholdKB.
func BinarySearch(r io.ReaderAt, fsize int64, key []byte, thresholdKB int64) (IndexEntry, error) {
	if thresholdKB <= 0 {
		thresholdKB = DefaultBufferThresholdKB
	}
	thresholdBytes := thresholdKB * 1024

	start, end := int64(0), fsize
	pivot := fsize / 2

	// limit is the true extent of data behind r: fsize while r still
	// addresses the original stream, or the fixed length of the buffer
	// bufferChunk returned once buffered. Unlike end, which keeps
	// shrinking every iteration, limit never shrinks below what r
	// actually holds, so readLine can always read a full line even when
	// it overruns the current bisection window.
	limit := fsize

	buffered := false
	var bufBase int64
	if fsize < thresholdBytes {
		whole := make([]byte, fsize)
		if _, err := r.ReadAt(whole, 0); err != nil && err != io.EOF {
			return IndexEntry{}, errWrap(ErrIO, err)
		}
		r = bytes.NewReader(whole)
		buffered = true
		bufBase = 0
	}

	visited := map[triple]bool{}

	for {
		t := triple{start, pivot, end}
		if visited[t] {
			return IndexEntry{}, ErrUnsortedIndex
		}
		visited[t] = true

		linePos, err := startOfLine(r, pivot)
		if err != nil {
			return IndexEntry{}, err
		}
		line, postPos, err := readLine(r, linePos, limit)
		if err != nil {
			return IndexEntry{}, err
		}
		if len(line) == 0 {
			// pivot landed exactly at end of data with nothing left
			// to read; treat like reaching the end of the index.
			return IndexEntry{}, ErrKeyNotFound
		}

		candidate, rest, ok := bytes.Cut(bytes.TrimRight(line, "\n"), []byte{indexSeparator})
		if !ok {
			return IndexEntry{}, fmt.Errorf("%w: no %q separator on line at offset %d", ErrMalformedIndex, string(indexSeparator), linePos)
		}

		absolutePost := postPos
		if buffered {
			absolutePost += bufBase
		}

		cmp := bytes.Compare(candidate, key)
		if cmp == 0 {
			entry, perr := ParseIndexLine(string(candidate) + "|" + string(rest))
			if perr != nil {
				return IndexEntry{}, perr
			}
			return entry, nil
		}

		if absolutePost == fsize {
			return IndexEntry{}, ErrKeyNotFound
		}
		if buffered && postPos > end {
			window := make([]byte, end-start)
			_, _ = r.ReadAt(window, start)
			if !bytes.Contains(window, []byte{'\n'}) {
				return IndexEntry{}, ErrKeyNotFound
			}
		}

		if cmp > 0 {
			end = pivot
			pivot = (start + pivot) / 2
		} else {
			start = pivot
			pivot = (pivot + end) / 2
		}

		if !buffered && end-start < thresholdBytes {
			buf, ns, ne, np, berr := bufferChunk(r, fsize, start, end, pivot)
			if berr != nil {
				return IndexEntry{}, berr
			}
			bufBase = start - ns
			r = bytes.NewReader(buf)
			start, end, pivot = ns, ne, np
			limit = int64(len(buf))
			buffered = true
		}
	}
}
