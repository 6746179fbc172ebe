// Package lang holds the language table shown on the page together with the
// rendering direction and speech voice overrides for each language.
package lang

import (
	"strings"

	apperrors "babelbeam/pkg/errors"
)

// Auto asks the translation engine to detect the source language.
const Auto = "auto"

// Language is one selectable entry of the page.
type Language struct {
	Name string `json:"name"`
	Code string `json:"code"`
}

// Languages is the display order of the language selectors.
var Languages = []Language{
	{Name: "Auto Detect", Code: Auto},
	{Name: "English", Code: "en"},
	{Name: "Hindi", Code: "hi"},
	{Name: "French", Code: "fr"},
	{Name: "German", Code: "de"},
	{Name: "Spanish", Code: "es"},
	{Name: "Urdu", Code: "ur"},
	{Name: "Arabic", Code: "ar"},
}

var rtlLanguages = map[string]bool{
	"ur": true,
	"ar": true,
}

// Voice selects a synthesis language and its regional variant (top-level domain).
type Voice struct {
	Lang string `json:"lang"`
	TLD  string `json:"tld"`
}

// DefaultTLD is the regional variant used when a language has no override.
const DefaultTLD = "com"

var voiceOverrides = map[string]Voice{
	"ur": {Lang: "ur", TLD: "com.pk"},
	"ar": {Lang: "ar", TLD: "com"},
}

// Sources returns every language that may be used as a source.
func Sources() []Language {
	return append([]Language(nil), Languages...)
}

// Targets returns the selectable target languages; Auto Detect is excluded.
func Targets() []Language {
	targets := make([]Language, 0, len(Languages)-1)
	for _, l := range Languages {
		if l.Code != Auto {
			targets = append(targets, l)
		}
	}
	return targets
}

// Resolve maps a display name or a code to a language code. Unknown values are
// returned lower-cased and trimmed so callers can still pass any engine code.
func Resolve(nameOrCode string) string {
	value := strings.TrimSpace(nameOrCode)
	for _, l := range Languages {
		if strings.EqualFold(l.Name, value) || strings.EqualFold(l.Code, value) {
			return l.Code
		}
	}
	return strings.ToLower(value)
}

// Name returns the display name for code, or the code itself.
func Name(code string) string {
	for _, l := range Languages {
		if l.Code == code {
			return l.Name
		}
	}
	return code
}

// IsRTL reports whether code is rendered right-to-left.
func IsRTL(code string) bool {
	return rtlLanguages[code]
}

// Direction returns the CSS direction for code.
func Direction(code string) string {
	if IsRTL(code) {
		return "rtl"
	}
	return "ltr"
}

// Align returns the CSS text-align value for code.
func Align(code string) string {
	if IsRTL(code) {
		return "right"
	}
	return "left"
}

// VoiceFor returns the synthesis voice for code.
func VoiceFor(code string) Voice {
	if v, ok := voiceOverrides[code]; ok {
		return v
	}
	return Voice{Lang: code, TLD: DefaultTLD}
}

// Swap exchanges source and target. A detected source cannot become a target.
func Swap(source, target string) (string, string, error) {
	if source == Auto {
		return source, target, apperrors.NewValidationError("Set a specific source language before swapping.", "source", source)
	}
	return target, source, nil
}
