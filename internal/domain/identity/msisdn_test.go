package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeMSISDN(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"already e164", "+250788123456", "+250788123456"},
		{"country code no plus", "250788123456", "+250788123456"},
		{"national with zero", "0788123456", "+250788123456"},
		{"bare subscriber", "788123456", "+250788123456"},
		{"double zero international", "00254712345678", "+254712345678"},
		{"spaces and dashes", "+250 788-123-456", "+250788123456"},
		{"tanzanian", "+255712345678", "+255712345678"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeMSISDN(tt.input)
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeMSISDN_Invalid(t *testing.T) {
	for _, input := range []string{"", "abc", "+250 788 12ab56", "+12", "12345678901234567890"} {
		_, err := NormalizeMSISDN(input)
		assert.Error(t, err, "input %q", input)
	}
}

func TestLocaleForPhone(t *testing.T) {
	tests := []struct {
		phone string
		want  string
	}{
		{"+250788123456", "rw"},
		{"+255712345678", "sw"},
		{"+254712345678", "sw"},
		{"+256772345678", "lg"},
		{"+25779123456", "fr"},
		{"+243812345678", "fr"},
		{"+14155550100", "en"},
		{"", "en"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, LocaleForPhone(tt.phone), "phone %s", tt.phone)
	}
}

func TestMatchLocale(t *testing.T) {
	assert.Equal(t, "sw", MatchLocale("sw-TZ"))
	assert.Equal(t, "fr", MatchLocale("fr-BI"))
	assert.Equal(t, "rw", MatchLocale("rw"))
	assert.Equal(t, "en", MatchLocale("de"))
	assert.Equal(t, "en", MatchLocale("not-a-tag!!"))
}
