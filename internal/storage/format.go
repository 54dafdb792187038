package storage

import (
	"fmt"

	"github.com/shopspring/decimal"
)

var thousand = decimal.NewFromInt(1000)

// FormatTimestamp renders seconds as HH:MM:SS, truncating fractions
func FormatTimestamp(seconds float64) string {
	total := toMillis(seconds) / 1000
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total%3600)/60, total%60)
}

// FormatTimestampSRT renders seconds as HH:MM:SS,mmm, truncating below
// the millisecond
func FormatTimestampSRT(seconds float64) string {
	ms := toMillis(seconds)
	total := ms / 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", total/3600, (total%3600)/60, total%60, ms%1000)
}

// toMillis converts through decimal so values such as 0.29 do not lose a
// millisecond to binary rounding.
func toMillis(seconds float64) int64 {
	if seconds <= 0 {
		return 0
	}
	return decimal.NewFromFloat(seconds).Mul(thousand).IntPart()
}
