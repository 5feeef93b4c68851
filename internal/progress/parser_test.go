package progress_test

import (
	"testing"

	"github.com/hbomb79/Mnemo/internal/progress"
	"github.com/stretchr/testify/assert"
)

func Test_Parse_ProgressWithANSI(t *testing.T) {
	line := "\x1b[0;94m[download]\x1b[0m  \x1b[0;94m45.2%\x1b[0m of ~  \x1b[0;33m10.00MiB\x1b[0m at  \x1b[0;32m1.25MiB/s\x1b[0m ETA \x1b[0;33m00:05\x1b[0m"
	ev := progress.Parse(line)

	assert.Equal(t, progress.KindProgress, ev.Kind)
	assert.InDelta(t, 45.2, ev.Percent, 0.0001)
	assert.Equal(t, "~ 10.00MiB", ev.Total)
	assert.Equal(t, "1.25MiB/s", ev.Speed)
	assert.Equal(t, "00:05", ev.ETA)
	assert.NotContains(t, ev.Line, "\x1b")
}

func Test_Parse_ProgressWithUnknownSpeed(t *testing.T) {
	ev := progress.Parse("[download]   0.0% of   54.12MiB at Unknown B/s ETA Unknown")

	assert.Equal(t, progress.KindProgress, ev.Kind)
	assert.Equal(t, 0.0, ev.Percent)
	assert.Equal(t, "54.12MiB", ev.Total)
	assert.Equal(t, "Unknown B/s", ev.Speed)
	assert.Equal(t, "Unknown", ev.ETA)
}

func Test_Parse_DownloadedAndTotal(t *testing.T) {
	ev := progress.Parse("[download]  12.5% 1.50MiB of 12.00MiB at 500.00KiB/s ETA 00:21")

	assert.Equal(t, progress.KindProgress, ev.Kind)
	assert.Equal(t, "1.50MiB", ev.Downloaded)
	assert.Equal(t, "12.00MiB", ev.Total)
}

func Test_Parse_FinishedMarkers(t *testing.T) {
	tests := []string{
		"[download] 100% of   10.00MiB in 00:00:05 at 2.00MiB/s",
		`[Merger] Merging formats into "/tmp/out/Some Title.mp4"`,
		"[ExtractAudio] Destination: /tmp/out/Some Title.mp3",
		"[download] /tmp/out/Some Title.mp4 has already been downloaded",
	}

	for _, line := range tests {
		t.Run(line, func(t *testing.T) {
			ev := progress.Parse(line)
			assert.Equal(t, progress.KindFinished, ev.Kind)
			assert.Equal(t, 100.0, ev.Percent)
		})
	}
}

func Test_Parse_PlainLines(t *testing.T) {
	tests := []string{
		"[youtube] Extracting URL: https://www.youtube.com/watch?v=abc",
		"[info] abc: Downloading 1 format(s): 22",
		"[download] Destination: /tmp/out/Some Title.mp4",
		"[download] 50 percent of nothing",
		"WARNING: [youtube] some warning with 100% confidence",
		"",
	}

	for _, line := range tests {
		t.Run(line, func(t *testing.T) {
			ev := progress.Parse(line)
			assert.Equal(t, progress.KindLog, ev.Kind)
			assert.Zero(t, ev.Percent)
		})
	}
}

func Test_Parse_ClampsPercent(t *testing.T) {
	ev := progress.Parse("[download] 250.0% of 1.00MiB at 1.00MiB/s ETA 00:00")

	assert.Equal(t, progress.KindProgress, ev.Kind)
	assert.Equal(t, 100.0, ev.Percent)
}
