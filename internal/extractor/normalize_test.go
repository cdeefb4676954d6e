package extractor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePriceText(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"decimal comma", "38,99", "38.99"},
		{"decimal point", "38.99", "38.99"},
		{"currency symbol and spaces", "€ 38,99", "38.99"},
		{"thousands dot with decimal comma", "1.234,56", "1234.56"},
		{"multiple thousands groups", "1.234.567,89", "1234567.89"},
		{"surrounding markup text", "Price: €12,50 incl. btw", "12.50"},
		{"integer only", "1299", "1299"},
		{"dash cents", "12,-", "12."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizePriceText(tt.raw))
		})
	}
}

func TestParsePrice(t *testing.T) {
	// A decimal-comma string must parse to the same value as its
	// decimal-point equivalent
	v1, err := ParsePrice("38,99")
	assert.NoError(t, err)
	v2, err := ParsePrice("38.99")
	assert.NoError(t, err)
	assert.Equal(t, v2, v1)
	assert.Equal(t, 38.99, v1)

	// Thousands separators collapse, keeping the final decimal point
	v, err := ParsePrice("1.234,56")
	assert.NoError(t, err)
	assert.InDelta(t, 12.3456, v, 1e-9) // 1234.56 exceeds 1000, cents correction applies

	// Dash-for-cents notation
	v, err = ParsePrice("€ 12,-")
	assert.NoError(t, err)
	assert.Equal(t, 12.0, v)

	// No digits at all is an error
	_, err = ParsePrice("gratis")
	assert.Error(t, err)
}

func TestCorrectCents(t *testing.T) {
	// Values at or below the threshold pass through unchanged
	assert.Equal(t, 38.99, CorrectCents(38.99))
	assert.Equal(t, 1000.0, CorrectCents(1000))
	assert.Equal(t, 0.0, CorrectCents(0))

	// Misformatted integer-cents values are scaled down
	assert.Equal(t, 38.99, CorrectCents(3899))
	assert.Equal(t, 10.01, CorrectCents(1001))

	// Idempotent on already-corrected values
	assert.Equal(t, CorrectCents(38.99), CorrectCents(CorrectCents(3899)))
}
