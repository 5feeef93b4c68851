// Package progress turns raw yt-dlp output lines into normalized progress events.
package progress

import (
	"regexp"
	"strconv"
	"strings"
)

type Kind int

const (
	// KindLog is a plain output line with no progress semantics
	KindLog Kind = iota
	KindProgress
	KindFinished
)

func (k Kind) String() string {
	switch k {
	case KindProgress:
		return "PROGRESS"
	case KindFinished:
		return "FINISHED"
	}

	return "LOG"
}

// Event is the normalized form of a single output line. The size, speed and
// ETA values are display strings forwarded verbatim, and may be empty.
type Event struct {
	Kind       Kind    `json:"kind"`
	Line       string  `json:"line"`
	Percent    float64 `json:"percent"`
	Downloaded string  `json:"downloaded,omitempty"`
	Total      string  `json:"total,omitempty"`
	Speed      string  `json:"speed,omitempty"`
	ETA        string  `json:"eta,omitempty"`
}

var (
	ansiMatcher       = regexp.MustCompile(`\x1b\[[0-9;?]*[A-Za-z]`)
	percentMatcher    = regexp.MustCompile(`(\d+(?:\.\d+)?)%`)
	totalMatcher      = regexp.MustCompile(`\bof\s+(~?\s*[\d.]+\s*[KMGTP]?i?B)`)
	downloadedMatcher = regexp.MustCompile(`([\d.]+\s*[KMGTP]?i?B)\s+of\s`)
	speedMatcher      = regexp.MustCompile(`\bat\s+(Unknown B/s|\S+/s)`)
	etaMatcher        = regexp.MustCompile(`\bETA\s+(\S+)`)
	spaceCollapser    = regexp.MustCompile(`\s+`)

	finishedMarkers = []string{
		"[Merger] Merging formats into",
		"[ExtractAudio] Destination:",
		"has already been downloaded",
	}
)

// StripANSI removes terminal escape sequences from the line.
func StripANSI(line string) string {
	return ansiMatcher.ReplaceAllString(line, "")
}

// Parse derives an Event from a raw output line. Parse never fails; a line which
// looks like progress but cannot be understood is returned as a KindLog event.
func Parse(raw string) Event {
	line := strings.TrimSpace(StripANSI(raw))
	for _, marker := range finishedMarkers {
		if strings.Contains(line, marker) {
			return Event{Kind: KindFinished, Line: line, Percent: 100}
		}
	}

	if !strings.Contains(line, "[download]") || !strings.Contains(line, "%") {
		return Event{Kind: KindLog, Line: line}
	}

	groups := percentMatcher.FindStringSubmatch(line)
	if groups == nil {
		return Event{Kind: KindLog, Line: line}
	}

	percent, err := strconv.ParseFloat(groups[1], 64)
	if err != nil {
		return Event{Kind: KindLog, Line: line}
	}
	percent = min(max(percent, 0), 100)

	// yt-dlp prints a summary line once a file completes, such as
	// "[download] 100% of 10.00MiB in 00:00:05 at 2.00MiB/s"
	if percent == 100 && strings.Contains(line, " in ") {
		return Event{Kind: KindFinished, Line: line, Percent: 100, Total: submatch(totalMatcher, line)}
	}

	return Event{
		Kind:       KindProgress,
		Line:       line,
		Percent:    percent,
		Downloaded: submatch(downloadedMatcher, line),
		Total:      submatch(totalMatcher, line),
		Speed:      submatch(speedMatcher, line),
		ETA:        submatch(etaMatcher, line),
	}
}

func submatch(matcher *regexp.Regexp, line string) string {
	groups := matcher.FindStringSubmatch(line)
	if groups == nil {
		return ""
	}

	return spaceCollapser.ReplaceAllString(strings.TrimSpace(groups[1]), " ")
}
