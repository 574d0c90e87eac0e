package pricing

import (
	"errors"
	"testing"
)

func TestParsePrice(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected float64
	}{
		{"Thousands and decimals", "1.234,56 TL", 1234.56},
		{"Lira symbol prefix", "₺2.499,90", 2499.90},
		{"Plain integer", "349 TL", 349.0},
		{"Decimal only", "89,99", 89.99},
		{"Large price", "124.999,00 TL", 124999.0},
		{"Currency code", "1.050 TRY", 1050.0},
		{"Surrounding label text", "İndirimli Fiyat: 799,50 TL", 799.50},
		{"No thousands separator", "12500,75", 12500.75},
		{"Machine decimal from data attribute", "1999.9", 1999.9},
		{"Machine decimal two digits", "119.00", 119.0},
		{"Dotted thousands without decimals", "12.345.678", 12345678.0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			result, err := ParsePrice(tc.input)
			if err != nil {
				t.Fatalf("ParsePrice(%q) returned error: %v", tc.input, err)
			}
			if result != tc.expected {
				t.Errorf("ParsePrice(%q) = %f; want %f", tc.input, result, tc.expected)
			}
		})
	}
}

func TestParsePriceUnparseable(t *testing.T) {
	for _, input := range []string{"", "   ", "Tükendi", "TL", "fiyat yok"} {
		t.Run("input "+input, func(t *testing.T) {
			result, err := ParsePrice(input)
			if !errors.Is(err, ErrUnparseable) {
				t.Errorf("ParsePrice(%q) err = %v; want ErrUnparseable", input, err)
			}
			if result != 0 {
				t.Errorf("ParsePrice(%q) = %f; want 0", input, result)
			}
		})
	}
}
