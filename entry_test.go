package gzipi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndexEntryFormatAndParse(t *testing.T) {
	e := IndexEntry{Key: "example.com", FrameStartOff: 10, FrameLen: 20, LineStartOff: 5, LineLen: 8}
	line := e.Format()
	assert.Equal(t, "example.com|10|20|5|8\n", line)

	got, err := ParseIndexLine(line)
	require.NoError(t, err)
	assert.Equal(t, e, got)
}

func TestIndexEntryFormatAndParseKeyContainingSeparator(t *testing.T) {
	e := IndexEntry{Key: "a|b|c", FrameStartOff: 1, FrameLen: 2, LineStartOff: 3, LineLen: 4}
	line := e.Format()
	assert.Equal(t, "a|b|c|1|2|3|4\n", line)

	// The key ends at the first `|`, so this line has six trailing fields
	// and does not parse back.
	_, err := ParseIndexLine(line)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedIndex)
}

func TestParseIndexLineErrors(t *testing.T) {
	var tests = []struct {
		name string
		line string
	}{
		{"too few fields", "example.com|10|20|5"},
		{"too many fields", "example.com|10|20|5|8|1"},
		{"non-integer field", "example.com|x|20|5|8"},
	}

	for _, tc := range tests {
		_, err := ParseIndexLine(tc.line)
		assert.ErrorIs(t, err, ErrMalformedIndex, tc.name)
	}
}
