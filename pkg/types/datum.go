// Package types provides core data types for Tessera: datums, rows,
// layouts, and table identities shared by the catalog and the
// partitioning core.
package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// ColumnType identifies the value type of a column.
type ColumnType string

const (
	TypeInt64   ColumnType = "INTEGER"
	TypeFloat64 ColumnType = "REAL"
	TypeText    ColumnType = "TEXT"
	TypeBytes   ColumnType = "BLOB"
)

// Datum is a single column value. A nil Datum is SQL NULL.
// Concrete types are int64, float64, string, and []byte.
type Datum interface{}

// CompareFunc is a three-way comparison over two non-NULL datums of the
// same column type. It returns <0, 0, or >0.
type CompareFunc func(a, b Datum) int

// Collation names understood by CompareFuncFor. They mirror the SQLite
// built-in collations the catalog declares.
const (
	CollationBinary = "binary"
	CollationNoCase = "nocase"
)

// CompareFuncFor returns the comparison function for a column type and
// collation. Collation only affects TEXT columns.
func CompareFuncFor(typ ColumnType, collation string) (CompareFunc, error) {
	switch typ {
	case TypeInt64:
		return CompareInt64, nil
	case TypeFloat64:
		return CompareFloat64, nil
	case TypeText:
		switch collation {
		case "", CollationBinary:
			return CompareText, nil
		case CollationNoCase:
			return CompareTextNoCase, nil
		default:
			return nil, fmt.Errorf("types: unknown collation %q", collation)
		}
	case TypeBytes:
		return CompareBytes, nil
	default:
		return nil, fmt.Errorf("types: unknown column type %q", typ)
	}
}

// CompareInt64 compares two INTEGER datums.
func CompareInt64(a, b Datum) int {
	x, y := a.(int64), b.(int64)
	switch {
	case x < y:
		return -1
	case x > y:
		return 1
	default:
		return 0
	}
}

// CompareFloat64 compares two REAL datums.
func CompareFloat64(a, b Datum) int {
	x, y := a.(float64), b.(float64)
	switch {
	case x < y:
		return -1
	case x > y:
		return 1
	default:
		return 0
	}
}

// CompareText compares two TEXT datums bytewise.
func CompareText(a, b Datum) int {
	return strings.Compare(a.(string), b.(string))
}

// CompareTextNoCase compares two TEXT datums case-insensitively.
func CompareTextNoCase(a, b Datum) int {
	return strings.Compare(strings.ToLower(a.(string)), strings.ToLower(b.(string)))
}

// CompareBytes compares two BLOB datums bytewise.
func CompareBytes(a, b Datum) int {
	return bytes.Compare(a.([]byte), b.([]byte))
}

// DatumsEqual reports raw equality of two datums without consulting any
// collation or comparison operator. Cache change detection must notice
// every physical change to a bound, including ones a collation would
// consider insignificant.
func DatumsEqual(a, b Datum) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	switch x := a.(type) {
	case int64:
		y, ok := b.(int64)
		return ok && x == y
	case float64:
		y, ok := b.(float64)
		return ok && x == y
	case string:
		y, ok := b.(string)
		return ok && x == y
	case []byte:
		y, ok := b.([]byte)
		return ok && bytes.Equal(x, y)
	default:
		return false
	}
}

// taggedDatum is the wire/catalog encoding of a datum. NULL encodes as
// JSON null at the call sites, never as a taggedDatum.
type taggedDatum struct {
	Type  ColumnType      `json:"t"`
	Value json.RawMessage `json:"v"`
}

// EncodeDatum serializes a non-NULL datum to its tagged JSON form.
func EncodeDatum(d Datum) ([]byte, error) {
	var typ ColumnType
	switch d.(type) {
	case int64:
		typ = TypeInt64
	case float64:
		typ = TypeFloat64
	case string:
		typ = TypeText
	case []byte:
		typ = TypeBytes
	default:
		return nil, fmt.Errorf("types: cannot encode datum of type %T", d)
	}
	raw, err := json.Marshal(d)
	if err != nil {
		return nil, err
	}
	return json.Marshal(taggedDatum{Type: typ, Value: raw})
}

// DecodeDatum deserializes a tagged JSON datum.
func DecodeDatum(data []byte) (Datum, error) {
	var td taggedDatum
	if err := json.Unmarshal(data, &td); err != nil {
		return nil, fmt.Errorf("types: malformed datum: %w", err)
	}
	switch td.Type {
	case TypeInt64:
		var v int64
		if err := json.Unmarshal(td.Value, &v); err != nil {
			return nil, fmt.Errorf("types: malformed INTEGER datum: %w", err)
		}
		return v, nil
	case TypeFloat64:
		var v float64
		if err := json.Unmarshal(td.Value, &v); err != nil {
			return nil, fmt.Errorf("types: malformed REAL datum: %w", err)
		}
		return v, nil
	case TypeText:
		var v string
		if err := json.Unmarshal(td.Value, &v); err != nil {
			return nil, fmt.Errorf("types: malformed TEXT datum: %w", err)
		}
		return v, nil
	case TypeBytes:
		var v []byte
		if err := json.Unmarshal(td.Value, &v); err != nil {
			return nil, fmt.Errorf("types: malformed BLOB datum: %w", err)
		}
		return v, nil
	default:
		return nil, fmt.Errorf("types: unknown datum type %q", td.Type)
	}
}
