// Package export turns ledger records and reports into tables and writes
// them as JSON or CSV.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"reflect"
	"strconv"
	"time"

	"wealthtrack/internal/core"
)

// Table is a rectangular export: one header and any number of rows.
type Table struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// WriteJSON writes v indented by two spaces, followed by a newline.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}

// WriteCSV writes the header row and one line per row. See Cell for how
// values are rendered.
func WriteCSV(w io.Writer, t Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	record := make([]string, len(t.Columns))
	for i, row := range t.Rows {
		record = record[:0]
		for _, v := range row {
			s, err := Cell(v)
			if err != nil {
				return fmt.Errorf("row %d: %w", i+1, err)
			}
			record = append(record, s)
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv row %d: %w", i+1, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// Cell renders v for a CSV field: nil is empty, strings are kept as is,
// numbers use their shortest form, times and dates are YYYY-MM-DD, and maps,
// structs and slices are JSON encoded inline.
func Cell(v any) (string, error) {
	switch x := v.(type) {
	case nil:
		return "", nil
	case string:
		return x, nil
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), nil
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32), nil
	case int:
		return strconv.Itoa(x), nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case bool:
		return strconv.FormatBool(x), nil
	case *float64:
		if x == nil {
			return "", nil
		}
		return Cell(*x)
	case time.Time:
		if x.IsZero() {
			return "", nil
		}
		return x.Format(core.DateLayout), nil
	case core.Date:
		return x.String(), nil
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String:
		return rv.String(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(rv.Uint(), 10), nil
	case reflect.Float32, reflect.Float64:
		return strconv.FormatFloat(rv.Float(), 'f', -1, 64), nil
	case reflect.Pointer:
		if rv.IsNil() {
			return "", nil
		}
		return Cell(rv.Elem().Interface())
	}

	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode cell: %w", err)
	}
	return string(b), nil
}
