// Package langmeta resolves language codes to display metadata (native
// names and emoji flags) used in prompts, status output, and CLI UI.
//
// Codes are parsed and canonicalized with golang.org/x/text, so locale
// variants like pt_BR, pt-BR, and zh-Hant all resolve.
package langmeta

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Meta describes language display metadata.
type Meta struct {
	// Name is the language's name in the language itself (e.g. "Русский").
	Name string
	// Flag is an emoji flag, when one is known.
	Flag string
}

// flags maps base language codes to emoji flags. Display names come from
// x/text, so only the flag needs a hand-maintained table.
var flags = map[string]string{
	"ar": "🇸🇦", "bg": "🇧🇬", "cs": "🇨🇿", "da": "🇩🇰", "de": "🇩🇪",
	"el": "🇬🇷", "en": "🇺🇸", "es": "🇪🇸", "et": "🇪🇪", "fa": "🇮🇷",
	"fi": "🇫🇮", "fr": "🇫🇷", "he": "🇮🇱", "hi": "🇮🇳", "hr": "🇭🇷",
	"hu": "🇭🇺", "id": "🇮🇩", "it": "🇮🇹", "ja": "🇯🇵", "ko": "🇰🇷",
	"lt": "🇱🇹", "lv": "🇱🇻", "nb": "🇳🇴", "nl": "🇳🇱", "no": "🇳🇴",
	"pl": "🇵🇱", "pt": "🇵🇹", "ro": "🇷🇴", "ru": "🇷🇺", "sk": "🇸🇰",
	"sl": "🇸🇮", "sr": "🇷🇸", "sv": "🇸🇪", "th": "🇹🇭", "tr": "🇹🇷",
	"uk": "🇺🇦", "vi": "🇻🇳", "zh": "🇨🇳",
}

// parse normalizes underscores to hyphens and parses the code as a BCP-47
// tag. The returned bool is false for codes x/text cannot make sense of.
func parse(code string) (language.Tag, bool) {
	normalized := strings.ReplaceAll(strings.TrimSpace(code), "_", "-")
	if normalized == "" {
		return language.Und, false
	}
	tag, err := language.Parse(normalized)
	if err != nil || tag == language.Und {
		return language.Und, false
	}
	return tag, true
}

// IsValid reports whether code parses as a usable language tag.
func IsValid(code string) bool {
	_, ok := parse(code)
	return ok
}

// Canonical returns the canonical BCP-47 form of code (e.g. "pt_br" →
// "pt-BR"). Unparsable codes are returned unchanged.
func Canonical(code string) string {
	tag, ok := parse(code)
	if !ok {
		return code
	}
	return tag.String()
}

// Resolve returns best-effort display metadata for a language code.
// Unknown codes fall back to the code itself as the name.
func Resolve(code string) Meta {
	tag, ok := parse(code)
	if !ok {
		return Meta{Name: code}
	}

	name := display.Self.Name(tag)
	if name == "" {
		name = code
	}

	base, confidence := tag.Base()
	m := Meta{Name: name}
	if confidence != language.No {
		m.Flag = flags[base.String()]
	}
	return m
}

// Name returns the native display name for a language code.
func Name(code string) string {
	return Resolve(code).Name
}
