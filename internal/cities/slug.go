package cities

import (
	"strings"
	"unicode"
)

// German umlauts fold to digraphs, not bare vowels, because that is how
// the source site builds its city URLs.
var digraphs = map[rune]string{
	'ä': "ae",
	'ö': "oe",
	'ü': "ue",
	'ß': "ss",
	'Ä': "ae",
	'Ö': "oe",
	'Ü': "ue",
}

// Slug normalizes a city display name into the URL-safe identifier used
// to build the source page URL: lowercase, umlauts folded to digraphs,
// every run of non-alphanumeric characters collapsed to a single hyphen.
func Slug(name string) string {
	var b strings.Builder
	b.Grow(len(name))

	for _, r := range name {
		if d, ok := digraphs[r]; ok {
			b.WriteString(d)
			continue
		}
		b.WriteRune(unicode.ToLower(r))
	}

	var out strings.Builder
	out.Grow(b.Len())
	pendingHyphen := false
	for _, r := range b.String() {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingHyphen && out.Len() > 0 {
				out.WriteByte('-')
			}
			pendingHyphen = false
			out.WriteRune(r)
		} else {
			pendingHyphen = true
		}
	}

	return out.String()
}

// PageURL builds the deterministic source URL for a city name.
func PageURL(baseURL, suffix, name string) string {
	return baseURL + Slug(name) + suffix
}
