// Package core provides money parsing and handling utilities.
//
// This file contains functions for parsing monetary amounts typed by users
// into exact decimal values.
package core

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// ParseAmount converts a user-entered amount to an exact decimal.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators. Signs,
// thousand separators and zero are rejected: amounts are always positive
// magnitudes, the transaction kind carries the direction.
//
// Examples:
//	ParseAmount("5000000") -> 5000000, nil
//	ParseAmount("12,5")    -> 12.5, nil
//	ParseAmount("-3")      -> 0, ErrInvalidAmount
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	// Normalize decimal comma to dot
	s = strings.ReplaceAll(s, ",", ".")
	if strings.Count(s, ".") > 1 {
		return decimal.Zero, ErrInvalidAmount
	}
	for _, r := range s {
		if r != '.' && !unicode.IsDigit(r) {
			return decimal.Zero, ErrInvalidAmount
		}
	}
	if s == "." {
		return decimal.Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if !d.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}
