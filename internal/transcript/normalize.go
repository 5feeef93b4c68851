// Package transcript locates the subtitle files produced by a download and
// normalizes their cue text into a single searchable string.
package transcript

import (
	"regexp"
	"strings"
)

var (
	cueTimingMatcher = regexp.MustCompile(`\d{2}:\d{2}:\d{2}[.,]\d{3}\s*-->\s*\d{2}:\d{2}:\d{2}[.,]\d{3}`)
	cueIndexMatcher  = regexp.MustCompile(`^\d+$`)
	inlineTagMatcher = regexp.MustCompile(`<[^>]*>`)

	headerPrefixes = []string{"Kind:", "Language:"}
	blockKeywords  = []string{"WEBVTT", "NOTE", "STYLE", "REGION"}
)

// Normalize strips cue timings, cue indices and WebVTT headers from the raw
// caption file contents, then collapses all remaining whitespace into single
// spaces. The result is lossy and only suited to substring search.
func Normalize(raw string) string {
	raw = strings.ReplaceAll(raw, "\r\n", "\n")

	kept := make([]string, 0)
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(strings.TrimPrefix(line, "\ufeff"))
		if line == "" || cueIndexMatcher.MatchString(line) || cueTimingMatcher.MatchString(line) || isHeader(line) {
			continue
		}

		kept = append(kept, inlineTagMatcher.ReplaceAllString(line, ""))
	}

	return strings.Join(strings.Fields(strings.Join(kept, " ")), " ")
}

func isHeader(line string) bool {
	for _, keyword := range blockKeywords {
		if line == keyword || strings.HasPrefix(line, keyword+" ") {
			return true
		}
	}

	for _, prefix := range headerPrefixes {
		if strings.HasPrefix(line, prefix) {
			return true
		}
	}

	return false
}
