package transcript_test

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/hbomb79/Mnemo/internal/transcript"
	"github.com/hbomb79/Mnemo/tests/helpers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Normalize_SRT(t *testing.T) {
	raw := "1\n00:00:01,000 --> 00:00:02,000\nHello world\n\n2\n00:00:02,000 --> 00:00:03,000\nFoo bar\n"
	assert.Equal(t, "Hello world Foo bar", transcript.Normalize(raw))
}

func Test_Normalize_CRLFAndCueSettings(t *testing.T) {
	raw := "1\r\n00:00:01.000 --> 00:00:02.000 align:start position:0%\r\n  Hello   \r\n\r\n  world\r\n"
	assert.Equal(t, "Hello world", transcript.Normalize(raw))
}

func Test_Normalize_VTT(t *testing.T) {
	raw := strings.Join([]string{
		"\ufeffWEBVTT",
		"Kind: captions",
		"Language: en",
		"",
		"NOTE generated automatically",
		"",
		"00:00:00.000 --> 00:00:02.500",
		"<c.colorE5E5E5>the quick</c> <00:00:01.200><c>brown fox</c>",
		"",
		"00:00:02.500 --> 00:00:04.000",
		"<i>jumps</i> over",
	}, "\n")

	assert.Equal(t, "the quick brown fox jumps over", transcript.Normalize(raw))
}

func Test_Normalize_KeepsWordsThatStartWithKeywords(t *testing.T) {
	raw := "00:00:00.000 --> 00:00:02.500\nNOTED by the STYLEguide\n"
	assert.Equal(t, "NOTED by the STYLEguide", transcript.Normalize(raw))
}

func Test_Normalize_EmptyFile(t *testing.T) {
	assert.Equal(t, "", transcript.Normalize(""))
	assert.Equal(t, "", transcript.Normalize("WEBVTT\n\n1\n00:00:00.000 --> 00:00:01.000\n\n"))
}

func Test_DiscoverAndLoad(t *testing.T) {
	dir := t.TempDir()
	helpers.WriteFile(t, filepath.Join(dir, "Lecture 1.en.vtt"), "WEBVTT\n\n00:00:00.000 --> 00:00:01.000\nvtt text\n")
	helpers.WriteFile(t, filepath.Join(dir, "Lecture 1.en.srt"), "1\n00:00:00,000 --> 00:00:01,000\nsrt text\n")
	helpers.WriteFile(t, filepath.Join(dir, "Lecture 1.it.vtt"), "WEBVTT\n\n00:00:00.000 --> 00:00:01.000\nciao\n")

	files, err := transcript.Discover(dir, "Lecture 1", []string{"it", "en", "fr"})
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, transcript.File{Language: "it", Path: filepath.Join(dir, "Lecture 1.it.vtt")}, files[0])
	assert.Equal(t, transcript.File{Language: "en", Path: filepath.Join(dir, "Lecture 1.en.srt")}, files[1])

	loaded, err := transcript.Load(files[1])
	require.NoError(t, err)
	assert.Equal(t, transcript.Transcript{Language: "en", Text: "srt text"}, loaded)

	_, err = transcript.Load(transcript.File{Language: "de", Path: filepath.Join(dir, "missing.de.srt")})
	assert.Error(t, err)
}

func Test_Discover_IgnoresSiblingTitles(t *testing.T) {
	dir := t.TempDir()
	helpers.WriteFile(t, filepath.Join(dir, "Lecture 1.en.srt"), "1\n00:00:00,000 --> 00:00:01,000\nfirst\n")
	helpers.WriteFile(t, filepath.Join(dir, "Lecture 2.it.srt"), "1\n00:00:00,000 --> 00:00:01,000\nsecondo\n")

	files, err := transcript.Discover(dir, "Lecture 1", []string{"it", "en"})
	require.NoError(t, err)
	assert.Equal(t, []transcript.File{{Language: "en", Path: filepath.Join(dir, "Lecture 1.en.srt")}}, files)
}
