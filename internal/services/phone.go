package services

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const countryCode = "254"

var nonDigit = regexp.MustCompile(`\D`)

// NormalizePhone converts a raw phone number string into the 254XXXXXXXXX form
// Safaricom expects. Non-digit characters are stripped first; a leading trunk
// "0" is replaced with the country code, a bare "7" mobile prefix gets the
// country code prepended, anything else passes through unchanged.
func NormalizePhone(raw string) string {
	clean := nonDigit.ReplaceAllString(strings.TrimSpace(raw), "")
	switch {
	case strings.HasPrefix(clean, "0"):
		return countryCode + clean[1:]
	case strings.HasPrefix(clean, "7"):
		return countryCode + clean
	default:
		return clean
	}
}

// ParseAmount accepts a JSON number or numeric string and truncates it to
// whole shillings. Non-positive and non-numeric values are rejected.
func ParseAmount(v interface{}) (int64, error) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, fmt.Errorf("invalid amount: %v", v)
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, fmt.Errorf("invalid amount: %q", n)
		}
		f = parsed
	default:
		return 0, fmt.Errorf("invalid amount type %T", v)
	}

	amount := int64(f)
	if amount <= 0 {
		return 0, fmt.Errorf("amount must be positive")
	}
	return amount, nil
}
