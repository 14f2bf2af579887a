package gzipi

import (
	"encoding/binary"
	"time"
)

// oldestValidTimestamp is the earliest Unix timestamp the gzip header
// validator accepts, 2010-01-01T01:00:00Z (midnight of 2010-01-01 at
// UTC+1). Any candidate header whose
// embedded mtime predates this is almost certainly compressed payload
// bytes that happen to look like a header, not a real one.
const oldestValidTimestamp = 1262307600

// possibleOSBytes are the gzip header OS-id values this validator accepts:
// FAT (Windows), Unix, Macintosh, and "unknown".
var possibleOSBytes = map[byte]bool{
	0x00: true,
	0x03: true,
	0x07: true,
	0xFF: true,
}

// validGzipHeader runs the heuristic checks from SPEC_FULL.md section 4.2
// against a candidate 10-byte gzip header. header must be at least 10
// bytes; shorter slices are always rejected.
func validGzipHeader(header []byte) bool {
	if len(header) < 10 {
		return false
	}

	mtime := int32(binary.LittleEndian.Uint32(header[4:8]))
	if int64(mtime) < oldestValidTimestamp || int64(mtime) > time.Now().Unix() {
		return false
	}

	return possibleOSBytes[header[9]]
}

// validZstdHeader checks the frame_header_descriptor byte (the 5th byte
// of a zstd frame, immediately after the 4-byte magic) for plausibility:
// the Reserved+Unused bits must be unset and Single_Segment_flag must be
// set, which holds for every frame this package itself produces and for
// the common case of frames produced by the reference zstd CLI/library.
func validZstdHeader(descriptor byte) bool {
	const reservedUnusedMask = 0b0001_1000
	const singleSegmentBit = 0b0010_0000
	if descriptor&reservedUnusedMask != 0 {
		return false
	}
	return descriptor&singleSegmentBit != 0
}
