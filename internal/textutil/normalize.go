package textutil

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// CollapseWhitespace replaces every run of whitespace with a single space and
// trims the result.
func CollapseWhitespace(value string) string {
	return strings.Join(strings.Fields(value), " ")
}

// Normalize collapses whitespace and lowercases the text for keyword matching.
func Normalize(value string) string {
	return strings.ToLower(CollapseWhitespace(value))
}

// TitleCase capitalizes each word, lowercasing the rest of the word first so
// shouted input ("ACME CORP") and lowercase regex captures render alike.
func TitleCase(value string) string {
	value = CollapseWhitespace(value)
	if value == "" {
		return ""
	}
	return cases.Title(language.English).String(strings.ToLower(value))
}

// Truncate shortens value to at most limit runes, never splitting a rune.
func Truncate(value string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(value) <= limit {
		return value
	}
	runes := []rune(value)
	return string(runes[:limit])
}

// TrimPunctuation strips leading and trailing punctuation and spaces left
// around regex captures.
func TrimPunctuation(value string) string {
	return strings.TrimFunc(value, func(r rune) bool {
		return unicode.IsSpace(r) || (unicode.IsPunct(r) && r != '&')
	})
}
