package identity

import (
	"errors"
	"strings"
	"unicode"
)

// DefaultCountryPrefix is applied to national-format numbers that arrive
// without a country code (carrier USSD gateways strip the plus and sometimes
// the prefix).
const DefaultCountryPrefix = "+250"

var errInvalidMSISDN = errors.New("invalid MSISDN")

// NormalizeMSISDN converts a raw subscriber number into E.164 form.
// Accepted inputs: "+250788123456", "250788123456", "0788123456",
// "788123456". Spaces and dashes are ignored.
func NormalizeMSISDN(raw string) (string, error) {
	var b strings.Builder
	for _, r := range raw {
		switch {
		case unicode.IsDigit(r):
			b.WriteRune(r)
		case r == '+' && b.Len() == 0:
			b.WriteRune(r)
		case r == ' ' || r == '-':
			// ignore separators
		default:
			return "", errInvalidMSISDN
		}
	}
	s := b.String()
	if s == "" {
		return "", errInvalidMSISDN
	}

	switch {
	case strings.HasPrefix(s, "+"):
		// already international
	case strings.HasPrefix(s, "00"):
		s = "+" + s[2:]
	case strings.HasPrefix(s, "0"):
		s = DefaultCountryPrefix + s[1:]
	case len(s) >= 11:
		// country code present without the plus
		s = "+" + s
	default:
		s = DefaultCountryPrefix + s
	}

	digits := len(s) - 1
	if digits < 9 || digits > 15 {
		return "", errInvalidMSISDN
	}
	return s, nil
}
