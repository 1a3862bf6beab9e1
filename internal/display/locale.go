package display

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/language"
)

// Locale selects the message catalogue and number formatting.
type Locale string

const (
	// Japanese is the default locale.
	Japanese Locale = "ja"
	// English is the secondary locale.
	English Locale = "en"

	// DefaultLocale is used when nothing else matches.
	DefaultLocale = Japanese
)

// ErrUnsupportedLocale is returned for locales without a message catalogue.
var ErrUnsupportedLocale = errors.New("unsupported locale")

// Tag returns the language tag used for number formatting.
func (l Locale) Tag() language.Tag {
	if l == English {
		return language.English
	}
	return language.Japanese
}

// ParseLocale accepts BCP 47 tags such as "ja", "ja-JP" or "en-US".
func ParseLocale(raw string) (Locale, error) {
	tag, err := language.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedLocale, raw)
	}
	if l, ok := fromTag(tag); ok {
		return l, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedLocale, raw)
}

// LocaleFromAcceptLanguage picks the highest-weighted supported locale from an
// Accept-Language header, or fallback.
func LocaleFromAcceptLanguage(header string, fallback Locale) Locale {
	if strings.TrimSpace(header) == "" {
		return fallback
	}
	tags, _, err := language.ParseAcceptLanguage(header)
	if err != nil {
		return fallback
	}
	for _, tag := range tags {
		if l, ok := fromTag(tag); ok {
			return l
		}
	}
	return fallback
}

func fromTag(tag language.Tag) (Locale, bool) {
	base, _ := tag.Base()
	switch base.String() {
	case "ja":
		return Japanese, true
	case "en":
		return English, true
	}
	return "", false
}
