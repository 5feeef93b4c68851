package knowledge_test

import (
	"strings"
	"testing"

	"github.com/hbomb79/Mnemo/internal/knowledge"
	"github.com/stretchr/testify/assert"
)

func Test_Snippet(t *testing.T) {
	tests := []struct {
		summary  string
		text     string
		query    string
		budget   int
		expected string
	}{
		{summary: "short text is returned whole", text: "the quick brown fox jumps", query: "brown", budget: 100, expected: "the quick brown fox jumps"},
		{summary: "window is centered on the match", text: "aaaaaaaaaa brown bbbbbbbbbb", query: "brown", budget: 6, expected: "aa brown bb"},
		{summary: "window is clipped at the start", text: "brown bbbbbbbbbb", query: "brown", budget: 6, expected: "brown bb"},
		{summary: "window is clipped at the end", text: "aaaaaaaaaa brown", query: "brown", budget: 6, expected: "aa brown"},
		{summary: "match is case-insensitive", text: "xxxx BROWN yyyy", query: "brown", budget: 2, expected: " BROWN "},
		{summary: "missing query falls back to prefix", text: "the quick brown fox", query: "zebra", budget: 9, expected: "the quick"},
		{summary: "multibyte characters are not split", text: "ééééé über ààààà", query: "ÜBER", budget: 4, expected: "é über à"},
	}

	for _, test := range tests {
		t.Run(test.summary, func(t *testing.T) {
			assert.Equal(t, test.expected, knowledge.Snippet(test.text, test.query, test.budget))
		})
	}
}

func Test_Snippet_LongTextIsBounded(t *testing.T) {
	text := strings.Repeat("a", 10_000) + " brown " + strings.Repeat("b", 10_000)
	snippet := knowledge.Snippet(text, "brown", knowledge.DefaultSnippetBudget)

	assert.Contains(t, snippet, "brown")
	assert.Len(t, []rune(snippet), knowledge.DefaultSnippetBudget+len("brown"))
}
