package knowledge

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const DefaultSnippetBudget = 100

// Snippet returns a window of the text surrounding the first case-insensitive
// occurrence of the query. The window extends budget/2 characters either side of
// the match and is clipped to the bounds of the text. If the query does not occur,
// the first budget characters of the text are returned instead.
func Snippet(text string, query string, budget int) string {
	if budget <= 0 {
		budget = DefaultSnippetBudget
	}

	runes := []rune(text)
	pos := indexFold(runes, query)
	if pos < 0 || query == "" {
		return string(runes[:min(budget, len(runes))])
	}

	queryLength := utf8.RuneCountInString(query)
	start := max(0, pos-budget/2)
	end := min(len(runes), pos+queryLength+budget/2)

	return string(runes[start:end])
}

// indexFold returns the rune offset of the first case-insensitive occurrence
// of the query in the text, or -1. Runes are lowered individually so offsets
// in the lowered text line up with offsets in the original.
func indexFold(text []rune, query string) int {
	lowerText := lowerRunes(text)
	lowerQuery := lowerRunes([]rune(query))

	idx := strings.Index(lowerText, lowerQuery)
	if idx < 0 {
		return -1
	}

	return utf8.RuneCountInString(lowerText[:idx])
}

func lowerRunes(runes []rune) string {
	var sb strings.Builder
	sb.Grow(len(runes))
	for _, r := range runes {
		sb.WriteRune(unicode.ToLower(r))
	}

	return sb.String()
}
