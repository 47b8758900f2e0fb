package format

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestNumber(t *testing.T) {
	tests := []struct {
		name   string
		lang   string
		places int32
		in     string
		want   string
	}{
		{"english grouping", "en-US", 2, "1234567.5", "1,234,567.50"},
		{"italian grouping", "it-IT", 2, "1234567.5", "1.234.567,50"},
		{"german", "de-DE", 2, "0.125", "0,13"},
		{"negative", "en-US", 2, "-1220", "-1,220.00"},
		{"negative rounds to zero", "en-US", 2, "-0.001", "0.00"},
		{"no places", "en-US", 0, "99.5", "100"},
		{"small", "en-US", 2, "7", "7.00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := New(tt.lang, "", tt.places)
			require.NoError(t, err)
			assert.Equal(t, tt.want, f.Number(dec(tt.in)))
		})
	}
}

func TestAmount(t *testing.T) {
	f, err := New("en-US", "€", 2)
	require.NoError(t, err)
	assert.Equal(t, "€ 122.00", f.Amount(dec("122")))
	assert.Equal(t, "-€ 22.00", f.Amount(dec("-22")))

	bare, err := New("en-US", "", 2)
	require.NoError(t, err)
	assert.Equal(t, "22.00", bare.Amount(dec("22")))
}

func TestNew_Errors(t *testing.T) {
	_, err := New("not a tag!", "€", 2)
	assert.Error(t, err)
	_, err = New("en-US", "€", -1)
	assert.Error(t, err)
}

func TestDate(t *testing.T) {
	assert.Equal(t, "-", Date(time.Time{}))
	assert.Equal(t, "2025-03-31", Date(time.Date(2025, 3, 31, 23, 0, 0, 0, time.UTC)))
}
