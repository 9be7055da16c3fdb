package analysis

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Locale selects the prompt pair and the fallback content.
type Locale string

const (
	Italian Locale = "it"
	English Locale = "en"
)

func (l Locale) String() string { return string(l) }

var italianHints = map[string]bool{
	"it":       true,
	"ita":      true,
	"it-it":    true,
	"it_it":    true,
	"italian":  true,
	"italiano": true,
}

// Function words that are frequent in one language and rare in the other.
var (
	italianWords = wordSet("il lo la gli le di che è per non una uno sono con del della dei delle questo questa anche come ma più nel nella alla perché quindi abbiamo siamo essere fare")
	englishWords = wordSet("the and of to is that we for this with are be not you have our will was but they what there would can about which")
)

func wordSet(s string) map[string]bool {
	m := make(map[string]bool)
	for _, w := range strings.Fields(s) {
		m[w] = true
	}
	return m
}

// DetectPromptLocale picks the analysis locale for a transcript. A provider
// language hint decides when present; otherwise Italian and English function
// words are counted and Italian wins only on a strict majority.
func DetectPromptLocale(text, providerHint string) Locale {
	hint := strings.ToLower(strings.TrimSpace(providerHint))
	if italianHints[hint] {
		return Italian
	}
	if hint != "" && hint != "unknown" {
		return English
	}

	var it, en int
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	for _, w := range words {
		if italianWords[w] {
			it++
		}
		if englishWords[w] {
			en++
		}
	}
	if it > en {
		return Italian
	}
	return English
}

// Truncate returns at most max runes of text.
func Truncate(text string, max int) string {
	if max <= 0 || utf8.RuneCountInString(text) <= max {
		return text
	}
	n := 0
	for i := range text {
		if n == max {
			return text[:i]
		}
		n++
	}
	return text
}
