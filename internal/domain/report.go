package domain

import (
	"fmt"
	"strconv"
	"time"
)

// Field is one named cell of a report row.
type Field struct {
	Name  string
	Value any
}

// ReportRow is an ordered list of fields. The column set depends entirely on
// the report type; exporters must not assume a shared schema.
type ReportRow []Field

// Get returns the value stored under name.
func (r ReportRow) Get(name string) (any, bool) {
	for _, f := range r {
		if f.Name == name {
			return f.Value, true
		}
	}
	return nil, false
}

// Keys returns the column names in row order.
func (r ReportRow) Keys() []string {
	keys := make([]string, len(r))
	for i, f := range r {
		keys[i] = f.Name
	}
	return keys
}

// Columns returns the union of keys across rows in first-seen order. For
// homogeneous rows this is the first row's key order.
func Columns(rows []ReportRow) []string {
	seen := make(map[string]struct{})
	var cols []string
	for _, row := range rows {
		for _, f := range row {
			if _, ok := seen[f.Name]; ok {
				continue
			}
			seen[f.Name] = struct{}{}
			cols = append(cols, f.Name)
		}
	}
	return cols
}

// CellTimeLayout is the layout used when a time value is rendered as text.
const CellTimeLayout = "2006-01-02 15:04:05"

// FormatValue renders a cell value as text. Nil renders empty.
func FormatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	case time.Time:
		return t.Format(CellTimeLayout)
	case *time.Time:
		if t == nil {
			return ""
		}
		return t.Format(CellTimeLayout)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	case interface{ String() string }:
		return t.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}
