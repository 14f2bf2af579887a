package gzipi

import (
	"errors"
	"fmt"
)

var (
	// ErrIO wraps an underlying I/O failure reading or writing a stream.
	ErrIO = errors.New("i/o error")

	// ErrDecode indicates a malformed compression header or payload.
	ErrDecode = errors.New("malformed compressed payload")

	// ErrMalformedIndex indicates an index line with the wrong field count
	// or a non-integer offset/length field.
	ErrMalformedIndex = errors.New("malformed index entry")

	// ErrMissingKey indicates the extractor could not find the configured
	// column/field in a record.
	ErrMissingKey = errors.New("record is missing the key column/field")

	// ErrKeyNotFound indicates a binary search exhausted its search space
	// without finding the requested key.
	ErrKeyNotFound = errors.New("key not found")

	// ErrUnsupportedCompression indicates a stream whose leading bytes
	// don't match any supported Kind.
	ErrUnsupportedCompression = errors.New("unsupported compression format")

	// ErrUnsortedIndex indicates the binary search detected a repeated
	// (start, pivot, end) triple, meaning the index is not sorted with
	// the comparator this package uses.
	ErrUnsortedIndex = errors.New("index is not sorted (or uses a different comparator)")
)

// errWrap wraps cause so that errors.Is(err, kind) still succeeds while the
// original error text is preserved for logs.
func errWrap(kind error, cause error) error {
	if cause == nil {
		return kind
	}
	return fmt.Errorf("%w: %s", kind, cause)
}
