// Package core holds the ledger record types shared by storage, services and
// the finance engine.
//
// This file contains amount parsing for user-entered values.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount converts a decimal string to a monetary amount rounded half-up to
// two decimals.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators. Signs are
// rejected, and so is zero; amounts entered by users are always positive.
//
// Examples:
//
//	ParseAmount("12.34")  -> 12.34, nil
//	ParseAmount("12,345") -> 12.35, nil
//	ParseAmount("-1")     -> 0, ErrInvalidAmount
func ParseAmount(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return 0, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	d = d.Round(2)
	if !d.IsPositive() {
		return 0, ErrInvalidAmount
	}
	return d.InexactFloat64(), nil
}
