// Package naming converts free-form names typed by administrators into the
// identifier and label forms used by generated type definitions.
package naming

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Words splits input on separators, camelCase humps, and letter/digit
// boundaries. Runs of upper case letters stay together ("HTMLParser" yields
// "HTML", "Parser").
func Words(input string) []string {
	var (
		words   []string
		current []rune
	)
	flush := func() {
		if len(current) > 0 {
			words = append(words, string(current))
			current = current[:0]
		}
	}

	runes := []rune(input)
	for i, r := range runes {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			flush()
			continue
		}
		if len(current) > 0 && isBoundary(runes, i) {
			flush()
		}
		current = append(current, r)
	}
	flush()
	return words
}

func isBoundary(runes []rune, index int) bool {
	prev, r := runes[index-1], runes[index]
	switch {
	case unicode.IsLower(prev) && unicode.IsUpper(r):
		return true
	case unicode.IsLetter(prev) && unicode.IsDigit(r):
		return true
	case unicode.IsDigit(prev) && unicode.IsLetter(r):
		return true
	case unicode.IsUpper(prev) && unicode.IsUpper(r):
		// "HTMLParser": the P starts a new word when a lower case rune follows.
		return index+1 < len(runes) && unicode.IsLower(runes[index+1])
	}
	return false
}

// CamelCase returns the identifier form of name: "custom name" becomes
// "customName".
func CamelCase(name string) string {
	words := Words(name)
	if len(words) == 0 {
		return ""
	}
	var out strings.Builder
	for i, word := range words {
		lower := strings.ToLower(word)
		if i == 0 {
			out.WriteString(lower)
			continue
		}
		out.WriteString(upperFirst(lower))
	}
	return out.String()
}

// StartCase returns the label form of name: "custom name" becomes
// "Custom Name". Only the first rune of each word is changed.
func StartCase(name string) string {
	words := Words(name)
	for i, word := range words {
		words[i] = upperFirst(word)
	}
	return strings.Join(words, " ")
}

func upperFirst(word string) string {
	if word == "" {
		return ""
	}
	r, size := utf8.DecodeRuneInString(word)
	return string(unicode.ToUpper(r)) + word[size:]
}
