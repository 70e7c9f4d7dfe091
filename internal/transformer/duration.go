package transformer

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Rounding selects how the fractional part of an hour becomes minutes.
type Rounding int

const (
	// RoundNearest computes minutes with exact decimal arithmetic and rounds
	// half up. A result of 60 carries into the hour.
	RoundNearest Rounding = iota
	// Truncate multiplies in float64 and drops the fraction. 8.7 hours
	// becomes 08:41:00 under this mode.
	Truncate
)

// ParseRounding maps a configuration value to a Rounding.
func ParseRounding(s string) (Rounding, error) {
	switch s {
	case "", "round":
		return RoundNearest, nil
	case "truncate":
		return Truncate, nil
	}
	return RoundNearest, fmt.Errorf("unknown minute rounding %q", s)
}

func (r Rounding) String() string {
	if r == Truncate {
		return "truncate"
	}
	return "round"
}

var (
	sixty = decimal.NewFromInt(60)
	one   = decimal.NewFromInt(1)
)

// Duration converts a decimal hours value such as "8.5" into Toggl's
// HH:MM:SS form ("08:30:00"). Hours and minutes are zero-padded to two
// digits but never clipped, so 123.5 becomes "123:30:00" and 1e20 keeps all
// of its digits. Negative values are not rejected; they go through the same
// floor arithmetic. Both modes accept the same plain decimal syntax.
func Duration(raw string, mode Rounding) (string, error) {
	s := strings.TrimSpace(raw)
	h, err := decimal.NewFromString(s)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidHours, raw)
	}
	if mode == Truncate {
		return truncatedDuration(s)
	}

	full := h.Floor()
	minutes := h.Sub(full).Mul(sixty).Round(0)
	if minutes.Equal(sixty) {
		full = full.Add(one)
		minutes = decimal.Zero
	}
	return formatClock(full.String(), minutes.IntPart()), nil
}

func truncatedDuration(s string) (string, error) {
	h, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(h) || math.IsInf(h, 0) {
		return "", fmt.Errorf("%w: %q", ErrInvalidHours, s)
	}
	full := math.Floor(h)
	minutes := int64((h - full) * 60)
	return formatClock(strconv.FormatFloat(full, 'f', 0, 64), minutes), nil
}

// formatClock pads hours like %02d would, without converting them to a
// fixed-size integer.
func formatClock(hours string, minutes int64) string {
	if len(hours) < 2 {
		hours = "0" + hours
	}
	return fmt.Sprintf("%s:%02d:00", hours, minutes)
}
