package gzipi

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strings"
)

// Extractor pulls the index key out of one decoded record line. line does
// not include its trailing newline.
type Extractor interface {
	Key(line []byte) ([]byte, error)
}

// CSVColumnExtractor extracts the key as the field at Column of a
// delimiter-separated line. The line is parsed with a tolerant CSV reader
// that accepts embedded delimiters inside double-quoted fields and places
// no limit on field size.
type CSVColumnExtractor struct {
	Column    int
	Delimiter rune
}

// Key implements Extractor.
func (e CSVColumnExtractor) Key(line []byte) ([]byte, error) {
	r := csv.NewReader(bytes.NewReader(line))
	r.Comma = e.Delimiter
	r.LazyQuotes = true
	r.FieldsPerRecord = -1

	record, err := r.Read()
	if err != nil {
		return nil, errWrap(ErrMissingKey, err)
	}
	if e.Column < 0 || e.Column >= len(record) {
		return nil, fmt.Errorf("%w: column %d out of range (record has %d fields)", ErrMissingKey, e.Column, len(record))
	}
	return []byte(record[e.Column]), nil
}

// JSONFieldExtractor extracts the key as the string value of Field in a
// line holding one JSON object.
type JSONFieldExtractor struct {
	Field string
}

// Key implements Extractor.
func (e JSONFieldExtractor) Key(line []byte) ([]byte, error) {
	var obj map[string]interface{}
	if err := json.Unmarshal(line, &obj); err != nil {
		return nil, errWrap(ErrMissingKey, err)
	}

	value, ok := obj[e.Field]
	if !ok {
		return nil, fmt.Errorf("%w: field %q missing from record", ErrMissingKey, e.Field)
	}
	s, ok := value.(string)
	if !ok {
		return nil, fmt.Errorf("%w: field %q is not a string", ErrMissingKey, e.Field)
	}
	return []byte(s), nil
}

// NewExtractor builds the Extractor named by format ("csv" or "json") from
// a Config, the one indirection the CLI and Config.Extractor use so
// callers never have to construct CSVColumnExtractor/JSONFieldExtractor by
// hand.
func NewExtractor(format string, column int, delimiter string, field string) (Extractor, error) {
	switch strings.ToLower(format) {
	case "csv":
		d := '|'
		if delimiter != "" {
			d = rune(delimiter[0])
		}
		return CSVColumnExtractor{Column: column, Delimiter: d}, nil
	case "json":
		if field == "" {
			field = DefaultJSONField
		}
		return JSONFieldExtractor{Field: field}, nil
	default:
		return nil, fmt.Errorf("unrecognized format %q, want csv or json", format)
	}
}
