package gzipi

import (
	"fmt"
	"strconv"
	"strings"
)

// IndexEntry is one decoded line of the index file: a key and the four
// byte offsets needed to locate the record it names (SPEC_FULL.md
// section 3).
type IndexEntry struct {
	Key           string
	FrameStartOff int64
	FrameLen      int64
	LineStartOff  int64
	LineLen       int64
}

// Format renders e as a `key|frame_start_off|frame_len|line_start_off|line_len\n`
// index line.
func (e IndexEntry) Format() string {
	return fmt.Sprintf("%s|%d|%d|%d|%d\n", e.Key, e.FrameStartOff, e.FrameLen, e.LineStartOff, e.LineLen)
}

// ParseIndexLine decodes one index line (with or without its trailing
// newline) into an IndexEntry. The key is everything before the first
// `|`, and exactly four integer fields must follow it. A line whose key
// itself contains a `|` byte therefore has too many trailing fields and
// is rejected with ErrMalformedIndex, like any other line that does not
// have five fields.
func ParseIndexLine(line string) (IndexEntry, error) {
	line = strings.TrimRight(line, "\n")
	key, rest, ok := strings.Cut(line, "|")
	if !ok {
		return IndexEntry{}, fmt.Errorf("%w: no %q separator", ErrMalformedIndex, "|")
	}

	fields := strings.Split(rest, "|")
	if len(fields) != 4 {
		return IndexEntry{}, fmt.Errorf("%w: want 4 trailing fields, got %d", ErrMalformedIndex, len(fields))
	}

	nums := make([]int64, 4)
	for i, f := range fields {
		n, err := strconv.ParseInt(f, 10, 64)
		if err != nil {
			return IndexEntry{}, fmt.Errorf("%w: field %d (%q): %s", ErrMalformedIndex, i+1, f, err)
		}
		nums[i] = n
	}

	return IndexEntry{
		Key:           key,
		FrameStartOff: nums[0],
		FrameLen:      nums[1],
		LineStartOff:  nums[2],
		LineLen:       nums[3],
	}, nil
}
