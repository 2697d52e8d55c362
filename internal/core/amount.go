// Package core provides the ledger domain types and amount parsing.
//
// This file contains ParseAmount, the single entry point for turning a chat
// token into a whole-unit currency amount.
package core

import (
	"math"
	"strconv"
	"strings"
)

// ParseAmount converts a positive whole-unit amount to int64.
//
// Digits may be grouped in threes with either '.' or ',' (Indonesian and
// English habits), but a single token must use one separator consistently.
// Zero, negative values, decimals and overflow return ErrInvalidAmount.
//
// Examples:
//
//	ParseAmount("12000")  -> 12000, nil
//	ParseAmount("12.000") -> 12000, nil
//	ParseAmount("1,250,000") -> 1250000, nil
//	ParseAmount("12.5")   -> 0, ErrInvalidAmount
func ParseAmount(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	digits, ok := stripGrouping(s)
	if !ok {
		return 0, ErrInvalidAmount
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return 0, ErrInvalidAmount
		}
	}
	v, err := strconv.ParseInt(digits, 10, 64)
	if err != nil || v <= 0 {
		return 0, ErrInvalidAmount
	}
	return v, nil
}

// ParseQuantity returns the quantity in s, or 1 when s is missing,
// non-numeric or below 1.
func ParseQuantity(s string) int64 {
	q, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || q < 1 {
		return 1
	}
	return q
}

// MulAmount multiplies a unit price by a quantity, reporting overflow.
func MulAmount(unit, qty int64) (int64, bool) {
	if unit <= 0 || qty <= 0 {
		return 0, false
	}
	if unit > math.MaxInt64/qty {
		return 0, false
	}
	return unit * qty, true
}

func stripGrouping(s string) (string, bool) {
	sep := ""
	switch {
	case strings.Contains(s, ".") && strings.Contains(s, ","):
		return "", false
	case strings.Contains(s, "."):
		sep = "."
	case strings.Contains(s, ","):
		sep = ","
	default:
		return s, true
	}
	groups := strings.Split(s, sep)
	if len(groups[0]) == 0 || len(groups[0]) > 3 || groups[0][0] == '0' {
		return "", false
	}
	for _, g := range groups[1:] {
		if len(g) != 3 {
			return "", false
		}
	}
	return strings.Join(groups, ""), true
}
