package utils

import (
	"fmt"
	"regexp"
	"time"

	"github.com/shopspring/decimal"
)

var dayRegex = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// ValidateDay validates a calendar date in YYYY-MM-DD form
func ValidateDay(s string) error {
	if !dayRegex.MatchString(s) {
		return fmt.Errorf("invalid date format: %s", s)
	}
	if _, err := time.Parse("2006-01-02", s); err != nil {
		return fmt.Errorf("invalid date: %s", s)
	}
	return nil
}

// ParseAmount parses a sanctioned amount
func ParseAmount(s string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount: %s", s)
	}
	if amount.IsNegative() {
		return decimal.Zero, fmt.Errorf("amount must not be negative: %s", s)
	}
	return amount, nil
}

var (
	controlChars  = regexp.MustCompile(`[\x00-\x1f\x7f]`)
	fileNameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)
)

// SanitizeString removes control characters
func SanitizeString(s string) string {
	return controlChars.ReplaceAllString(s, "")
}

// SanitizeFileName reduces s to characters safe in a file name
func SanitizeFileName(s string) string {
	name := fileNameChars.ReplaceAllString(SanitizeString(s), "_")
	if name == "" || name == "." || name == ".." {
		return "record"
	}
	return name
}
