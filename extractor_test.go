package gzipi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVColumnExtractor(t *testing.T) {
	e := CSVColumnExtractor{Column: 1, Delimiter: '|'}
	key, err := e.Key([]byte("202003|example.com|567"))
	require.NoError(t, err)
	assert.Equal(t, "example.com", string(key))
}

func TestCSVColumnExtractorOutOfRange(t *testing.T) {
	e := CSVColumnExtractor{Column: 5, Delimiter: '|'}
	_, err := e.Key([]byte("a|b"))
	assert.ErrorIs(t, err, ErrMissingKey)
}

func TestJSONFieldExtractor(t *testing.T) {
	e := JSONFieldExtractor{Field: "domain"}
	key, err := e.Key([]byte(`{"domain":"example.com","rank":1}`))
	require.NoError(t, err)
	assert.Equal(t, "example.com", string(key))
}

func TestJSONFieldExtractorMissingField(t *testing.T) {
	e := JSONFieldExtractor{Field: "domain"}
	_, err := e.Key([]byte(`{"rank":1}`))
	assert.ErrorIs(t, err, ErrMissingKey)
}

func TestNewExtractor(t *testing.T) {
	csvExt, err := NewExtractor("csv", 0, ",", "")
	require.NoError(t, err)
	_, ok := csvExt.(CSVColumnExtractor)
	assert.True(t, ok)

	jsonExt, err := NewExtractor("json", 0, "", "")
	require.NoError(t, err)
	field, ok := jsonExt.(JSONFieldExtractor)
	require.True(t, ok)
	assert.Equal(t, DefaultJSONField, field.Field)

	_, err = NewExtractor("xml", 0, "", "")
	assert.Error(t, err)
}
