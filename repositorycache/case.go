package repositorycache

import (
	"strings"
	"unicode"
)

// snakeCase turns a reflected type name such as "*models.User" or
// "Page[models.User]" into the namespace used for cache and call site names.
func snakeCase(s string) string {
	words := splitWords(s)
	for i, w := range words {
		words[i] = strings.ToLower(w)
	}
	return strings.Join(words, "_")
}

// splitWords breaks s on punctuation and on case or digit transitions.
func splitWords(s string) []string {
	var words []string
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, field := range fields {
		runes := []rune(field)
		start := 0
		for i := 1; i < len(runes); i++ {
			if wordStart(runes, i) {
				words = append(words, string(runes[start:i]))
				start = i
			}
		}
		words = append(words, string(runes[start:]))
	}
	return words
}

// wordStart reports whether runes[i] opens a new word. An upper case run
// keeps its last letter for the following word, so HTTPServer splits as
// HTTP Server.
func wordStart(runes []rune, i int) bool {
	prev, cur := runes[i-1], runes[i]
	switch {
	case unicode.IsUpper(cur):
		if unicode.IsLower(prev) || unicode.IsDigit(prev) {
			return true
		}
		return unicode.IsUpper(prev) && i+1 < len(runes) && unicode.IsLower(runes[i+1])
	case unicode.IsDigit(cur):
		return !unicode.IsDigit(prev)
	}
	return false
}
