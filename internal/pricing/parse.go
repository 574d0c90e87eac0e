package pricing

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
)

// ErrUnparseable is returned when a price string contains no usable number.
var ErrUnparseable = errors.New("pricing: unparseable price string")

// tokenRegex finds the first number-like token after currency markers are
// stripped.
var tokenRegex = regexp.MustCompile(`[0-9][0-9.,]*`)

var currencyMarkers = []string{"₺", "TL", "TRY", "tl"}

// ParsePrice normalizes a price string to a float64. Turkish sites write
// thousands with '.' and decimals with ',' ("1.234,56 TL"); product-card
// data attributes carry machine decimals ("1999.9"). Currency markers are
// stripped before separator normalization. Empty or non-numeric input
// returns ErrUnparseable, never a panic.
func ParsePrice(raw string) (float64, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, ErrUnparseable
	}

	for _, marker := range currencyMarkers {
		s = strings.ReplaceAll(s, marker, "")
	}

	token := tokenRegex.FindString(s)
	token = strings.Trim(token, ".,")
	if token == "" {
		return 0, ErrUnparseable
	}

	switch {
	case strings.Contains(token, ","):
		// Turkish locale: "1.234,56" -> "1234.56"
		token = strings.ReplaceAll(token, ".", "")
		token = strings.ReplaceAll(token, ",", ".")
	case isMachineDecimal(token):
		// "1999.9" or "119.00" — a dot followed by anything but a
		// three-digit thousands group is a decimal point.
	default:
		// "1.234" and "12.345.678" are thousands-separated integers.
		token = strings.ReplaceAll(token, ".", "")
	}

	price, err := strconv.ParseFloat(token, 64)
	if err != nil || price < 0 {
		return 0, ErrUnparseable
	}
	return price, nil
}

func isMachineDecimal(token string) bool {
	if strings.Count(token, ".") != 1 {
		return false
	}
	return len(token)-strings.Index(token, ".")-1 != 3
}
