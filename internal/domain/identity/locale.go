package identity

import (
	"strings"

	"golang.org/x/text/language"
)

// DefaultLocale is used when neither a token nor a phone number gives a hint.
const DefaultLocale = "en"

// prefixLocales maps international dialing prefixes to the locale spoken by
// most subscribers behind that prefix. Longest match wins.
var prefixLocales = []struct {
	prefix string
	locale string
}{
	{"+250", "rw"}, // Rwanda
	{"+255", "sw"}, // Tanzania
	{"+254", "sw"}, // Kenya
	{"+256", "lg"}, // Uganda
	{"+257", "fr"}, // Burundi
	{"+243", "fr"}, // DR Congo
}

// LocaleForPhone resolves the preferred locale from an E.164 phone number.
// Returns DefaultLocale when the prefix is unknown.
func LocaleForPhone(phone string) string {
	for _, pl := range prefixLocales {
		if strings.HasPrefix(phone, pl.prefix) {
			return pl.locale
		}
	}
	return DefaultLocale
}

// SupportedLocales returns all locales the platform has message templates for.
func SupportedLocales() []string {
	return []string{"rw", "sw", "lg", "fr", "en"}
}

// LocaleTag converts a locale code to a BCP 47 language tag. Unknown codes
// fall back to English.
func LocaleTag(locale string) language.Tag {
	tag, err := language.Parse(locale)
	if err != nil {
		return language.English
	}
	return tag
}

var localeMatcher = language.NewMatcher([]language.Tag{
	language.English, // first tag is the fallback
	language.MustParse("rw"),
	language.Swahili,
	language.MustParse("lg"),
	language.French,
})

// MatchLocale picks the best supported locale for an arbitrary requested
// language code (e.g. from an Accept-Language header).
func MatchLocale(requested string) string {
	tag, err := language.Parse(requested)
	if err != nil {
		return DefaultLocale
	}
	matched, _, _ := localeMatcher.Match(tag)
	base, _ := matched.Base()
	switch base.String() {
	case "rw":
		return "rw"
	case "sw":
		return "sw"
	case "lg":
		return "lg"
	case "fr":
		return "fr"
	default:
		return DefaultLocale
	}
}
