package domain

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// DefaultSheet is the sheet both story workbooks keep their rows in.
const DefaultSheet = "Sheet1"

// Sheet is one converted worksheet.
type Sheet struct {
	Headers   []string `json:"headers"`
	Data      []RawRow `json:"data"`
	TotalRows int      `json:"totalRows"`
}

// Workbook maps sheet names to converted worksheets.
type Workbook map[string]Sheet

// Rows returns the data rows of the named sheet, or nil if the sheet is missing.
func (w Workbook) Rows(sheet string) []RawRow {
	s, ok := w[sheet]
	if !ok {
		return nil
	}
	return s.Data
}

// RawRow is one untyped spreadsheet row keyed by column header. Values are
// whatever the JSON decoder produced: string, float64, bool, nil, or absent.
type RawRow map[string]any

// str returns the value for key only when it is a JSON string.
func (r RawRow) str(key string) (string, bool) {
	s, ok := r[key].(string)
	return s, ok
}

// stringOrEmpty returns the string value for key, or "" for any other type.
func (r RawRow) stringOrEmpty(key string) string {
	s, _ := r.str(key)
	return s
}

// text renders a scalar cell as text. Null, absent, and composite values yield nil.
func (r RawRow) text(key string) *string {
	var s string
	switch v := r[key].(type) {
	case string:
		s = v
	case bool:
		s = strconv.FormatBool(v)
	case json.Number:
		s = v.String()
	default:
		f, ok := toFloat(v)
		if !ok {
			return nil
		}
		s = strconv.FormatFloat(f, 'f', -1, 64)
	}
	return &s
}

// textOrEmpty is text with nil collapsed to "".
func (r RawRow) textOrEmpty(key string) string {
	if s := r.text(key); s != nil {
		return *s
	}
	return ""
}

// number returns the numeric value for key. Strings are not coerced.
func (r RawRow) number(key string) (float64, bool) {
	return toFloat(r[key])
}

// intOrZero parses a count column. Numeric strings are accepted because
// hand-edited sheets sometimes store counts as text.
func (r RawRow) intOrZero(key string) int {
	if f, ok := r.number(key); ok && !math.IsNaN(f) && !math.IsInf(f, 0) {
		return int(f)
	}
	if s, ok := r.str(key); ok {
		s = strings.TrimSpace(s)
		if v, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(v) && !math.IsInf(v, 0) {
			return int(v)
		}
	}
	return 0
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
