package download_test

import (
	"testing"

	"github.com/hbomb79/Mnemo/internal/download"
	"github.com/hbomb79/Mnemo/internal/knowledge"
	"github.com/hbomb79/Mnemo/internal/pipeline"
	"github.com/stretchr/testify/assert"
)

func Test_BuildArgs(t *testing.T) {
	base := []string{"--newline", "-o", "/dl/%(title)s.%(ext)s", "--write-thumbnail"}
	with := func(parts ...[]string) []string {
		out := append([]string{}, base...)
		for _, p := range parts {
			out = append(out, p...)
		}
		return out
	}

	tests := []struct {
		summary  string
		request  download.Request
		extra    []string
		expected []string
	}{
		{
			summary:  "best video",
			request:  download.Request{SourceURL: "URL", Format: knowledge.VIDEO, Quality: "best"},
			expected: with([]string{"-f", "bestvideo+bestaudio/best", "--merge-output-format", "mp4", "--no-playlist", "URL"}),
		},
		{
			summary:  "height capped video",
			request:  download.Request{SourceURL: "URL", Format: knowledge.VIDEO, Quality: "720"},
			expected: with([]string{"-f", "bestvideo[height<=720]+bestaudio/bestvideo+bestaudio/best", "--merge-output-format", "mp4", "--no-playlist", "URL"}),
		},
		{
			summary:  "audio",
			request:  download.Request{SourceURL: "URL", Format: knowledge.AUDIO, Playlist: true},
			expected: with([]string{"-f", "bestaudio/best", "-x", "--audio-format", "mp3", "--audio-quality", "192K", "--yes-playlist", "URL"}),
		},
		{
			summary: "subtitles only ignores knowledge base languages",
			request: download.Request{SourceURL: "URL", Format: knowledge.SUBTITLES_ONLY, KnowledgeBase: true, SubtitleLanguages: []string{"en"}},
			expected: with([]string{
				"--skip-download", "--write-subs", "--write-auto-subs",
				"--sub-langs", "it,en,es,fr,de,pt,ru,ja,ko,zh-Hans,zh-Hant,ar",
				"--sub-format", "srt/vtt/best",
				"--no-playlist", "URL",
			}),
		},
		{
			summary: "knowledge base video with default languages",
			request: download.Request{SourceURL: "URL", Format: knowledge.VIDEO, Quality: "best", KnowledgeBase: true},
			expected: with([]string{
				"-f", "bestvideo+bestaudio/best", "--merge-output-format", "mp4",
				"--write-subs", "--write-auto-subs", "--sub-langs", "it,en", "--ignore-errors",
				"--no-playlist", "URL",
			}),
		},
		{
			summary: "knowledge base audio with custom languages",
			request: download.Request{SourceURL: "URL", Format: knowledge.AUDIO, KnowledgeBase: true, SubtitleLanguages: []string{"fr", "de"}},
			expected: with([]string{
				"-f", "bestaudio/best", "-x", "--audio-format", "mp3", "--audio-quality", "192K",
				"--write-subs", "--write-auto-subs", "--sub-langs", "fr,de", "--ignore-errors",
				"--no-playlist", "URL",
			}),
		},
		{
			summary:  "extra args are prepended",
			request:  download.Request{SourceURL: "URL", Format: knowledge.AUDIO},
			extra:    []string{"--remote-components", "ejs:github"},
			expected: append([]string{"--remote-components", "ejs:github"}, with([]string{"-f", "bestaudio/best", "-x", "--audio-format", "mp3", "--audio-quality", "192K", "--no-playlist", "URL"})...),
		},
	}

	for _, test := range tests {
		t.Run(test.summary, func(t *testing.T) {
			test.request.DestinationDir = "/dl"
			assert.Equal(t, test.expected, download.BuildArgs(test.request, test.extra))
		})
	}
}

func Test_Request_Validate(t *testing.T) {
	validate := download.NewValidator()
	valid := []download.Request{
		{SourceURL: "https://youtube.com/watch?v=abc"},
		{SourceURL: "URL", Format: knowledge.AUDIO, Quality: "best"},
		{SourceURL: "URL", Format: knowledge.VIDEO, Quality: "1080", SummaryInterval: 10},
		{SourceURL: "URL", Format: knowledge.SUBTITLES_ONLY, SubtitleLanguages: []string{"en"}},
	}
	for _, request := range valid {
		assert.NoError(t, request.Validate(validate), "expected %#v to be valid", request)
	}

	invalid := map[string]download.Request{
		"source_url": {SourceURL: "   "},
		"Format":     {SourceURL: "URL", Format: "hologram"},
		"Quality":    {SourceURL: "URL", Quality: "-720"},
	}
	for field, request := range invalid {
		err := request.Validate(validate)

		var invalidErr *pipeline.InvalidRequestError
		if assert.ErrorAs(t, err, &invalidErr, "expected %#v to be invalid", request) {
			assert.Equal(t, field, invalidErr.Field)
		}
	}

	for _, request := range []download.Request{
		{SourceURL: "URL", Quality: "high"},
		{SourceURL: "URL", Quality: "0"},
		{SourceURL: "URL", SummaryInterval: -1},
		{SourceURL: "URL", SubtitleLanguages: []string{"en", ""}},
	} {
		assert.Error(t, request.Validate(validate), "expected %#v to be invalid", request)
	}
}
