package language

import (
	"fmt"
	"strings"

	xlang "golang.org/x/text/language"
)

// Auto asks whisper.cpp to detect the spoken language.
const Auto = "auto"

// aliases covers English names and bibliographic ISO 639-2 codes that the
// BCP 47 parser does not resolve on its own.
var aliases = map[string]string{
	"english":    "en",
	"spanish":    "es",
	"french":     "fr",
	"fre":        "fr",
	"german":     "de",
	"ger":        "de",
	"italian":    "it",
	"portuguese": "pt",
	"japanese":   "ja",
	"korean":     "ko",
	"chinese":    "zh",
	"chi":        "zh",
	"russian":    "ru",
	"arabic":     "ar",
	"hindi":      "hi",
	"dutch":      "nl",
	"dut":        "nl",
	"polish":     "pl",
	"swedish":    "sv",
	"danish":     "da",
	"norwegian":  "no",
	"finnish":    "fi",
}

// ForWhisper returns the language code to pass to whisper.cpp. Empty input
// and "auto" yield Auto. Region and script subtags are dropped.
func ForWhisper(value string) (string, error) {
	code := strings.ToLower(strings.TrimSpace(value))
	if code == "" || code == Auto {
		return Auto, nil
	}
	if mapped, ok := aliases[code]; ok {
		return mapped, nil
	}
	tag, err := xlang.Parse(code)
	if err != nil {
		return "", fmt.Errorf("unrecognized language %q: %w", value, err)
	}
	base, confidence := tag.Base()
	if confidence == xlang.No {
		return "", fmt.Errorf("unrecognized language %q", value)
	}
	return base.String(), nil
}
