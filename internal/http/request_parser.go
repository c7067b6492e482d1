// Package http serves the wealth tracking JSON API.
//
// This file implements utilities for parsing and validating HTTP request data:
// JSON bodies, dates, numbers and the enumerated query parameters.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"wealthtrack/internal/core"
	"wealthtrack/internal/finance"
	"wealthtrack/internal/ledger"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

var errBadRequest = errors.New("bad request")

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}

// DecodeJSON reads a single JSON object from the body into v.
func DecodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return badRequest("empty body")
		}
		return badRequest("invalid JSON: %v", err)
	}
	if dec.More() {
		return badRequest("body must hold a single JSON object")
	}
	return nil
}

// QueryParams reads typed values from a query string, keeping the first
// parse error.
type QueryParams struct {
	values url.Values
	err    error
}

func NewQueryParams(r *http.Request) *QueryParams {
	return &QueryParams{values: r.URL.Query()}
}

// Err returns the first parse error.
func (q *QueryParams) Err() error {
	return q.err
}

func (q *QueryParams) get(key string) string {
	return strings.TrimSpace(q.values.Get(key))
}

// String returns the value or def when absent.
func (q *QueryParams) String(key, def string) string {
	if v := q.get(key); v != "" {
		return v
	}
	return def
}

func (q *QueryParams) Int(key string, def int) int {
	v := q.get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		q.fail(key, v)
		return def
	}
	return n
}

// Float also accepts a decimal comma ("12,5"). NaN and infinities are
// rejected.
func (q *QueryParams) Float(key string, def float64) float64 {
	v := q.get(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		if f, err = core.ParseAmount(v); err != nil {
			q.fail(key, v)
			return def
		}
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		q.fail(key, v)
		return def
	}
	return f
}

func (q *QueryParams) Date(key string) time.Time {
	v := q.get(key)
	if v == "" {
		return time.Time{}
	}
	d, err := core.ParseDate(v)
	if err != nil {
		q.fail(key, v)
		return time.Time{}
	}
	return d.Time
}

// Currency returns the requested currency, or "" for the base currency.
func (q *QueryParams) Currency(key string) finance.Currency {
	v := q.get(key)
	if v == "" {
		return ""
	}
	c, err := finance.ParseCurrency(v)
	if err != nil {
		q.fail(key, v)
		return ""
	}
	return c
}

// Period falls back to the default period for unknown values.
func (q *QueryParams) Period(key string) finance.Period {
	return finance.ParsePeriod(q.get(key))
}

// Format accepts json or csv.
func (q *QueryParams) Format(key string) string {
	switch v := strings.ToLower(q.get(key)); v {
	case "", "json":
		return "json"
	case "csv":
		return "csv"
	default:
		q.fail(key, v)
		return "json"
	}
}

// DateRange reads the from/to bounds; missing bounds are open.
func (q *QueryParams) DateRange() ledger.DateRange {
	return ledger.DateRange{Start: q.Date("from"), End: q.Date("to")}
}

func (q *QueryParams) fail(key, value string) {
	if q.err == nil {
		q.err = badRequest("invalid %s %q", key, value)
	}
}

// PathID returns the {id} path value.
func PathID(r *http.Request) string {
	return strings.TrimSpace(r.PathValue("id"))
}
