package frames_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/hbomb79/Mnemo/internal/frames"
	"github.com/hbomb79/Mnemo/internal/knowledge"
	"github.com/hbomb79/Mnemo/internal/pipeline"
	"github.com/hbomb79/Mnemo/pkg/logger"
	"github.com/hbomb79/Mnemo/tests/helpers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var config = frames.Config{FfmpegPath: "ffmpeg", FfprobePath: "ffprobe", IntervalSeconds: 30, Parallelism: 1}

func init() {
	logger.SetMinLoggingLevel(logger.VERBOSE.Level())
}

// scriptedMedia returns a runner script which reports the duration given from
// ffprobe, and writes the output file for every ffmpeg invocation. The ffmpeg
// invocation numbered failAt (1-indexed) exits with a non-zero code.
func scriptedMedia(duration string, failAt int32) func(string, []string) helpers.FakeCommand {
	var frameCalls atomic.Int32
	return func(name string, args []string) helpers.FakeCommand {
		if name == "ffprobe" {
			return helpers.FakeCommand{Lines: []string{duration}}
		}

		if frameCalls.Add(1) == failAt {
			return helpers.FakeCommand{Lines: []string{"Invalid data found when processing input"}, ExitCode: 1}
		}

		return helpers.FakeCommand{Effect: func(args []string) error {
			return os.WriteFile(args[len(args)-2], []byte("jpg"), 0o644)
		}}
	}
}

func Test_Extract_SamplesEveryInterval(t *testing.T) {
	store := knowledge.NewService(helpers.NewSqliteManager(t))
	runner := helpers.NewFakeRunner(scriptedMedia("95.000000", -1))
	outputDir := t.TempDir()

	progress := make([]int, 0)
	count, err := frames.NewExtractor(config, runner, store).
		Extract(context.Background(), "abc", "/media/video.mp4", outputDir, 30, func(count int, total int) {
			assert.Equal(t, 4, total)
			progress = append(progress, count)
		})
	require.NoError(t, err)
	assert.Equal(t, 4, count)
	assert.Equal(t, []int{1, 2, 3, 4}, progress)

	samples, err := store.ListFrameSamples("abc")
	require.NoError(t, err)
	require.Len(t, samples, 4)
	for i, expected := range []float64{0, 30, 60, 90} {
		assert.Equal(t, expected, samples[i].Timestamp)
		assert.FileExists(t, samples[i].ImagePath)
	}
	assert.Equal(t, filepath.Join(outputDir, "screenshots", "abc", "screenshot_60.jpg"), samples[2].ImagePath)

	probeCalls := runner.CallsTo("ffprobe")
	require.Len(t, probeCalls, 1)
	assert.Equal(t, []string{"-v", "error", "-show_entries", "format=duration", "-of", "default=noprint_wrappers=1:nokey=1", "/media/video.mp4"}, probeCalls[0].Args)

	frameCalls := runner.CallsTo("ffmpeg")
	require.Len(t, frameCalls, 4)
	assert.Equal(t, []string{"-ss", "90", "-i", "/media/video.mp4", "-vframes", "1", "-q:v", "2", filepath.Join(outputDir, "screenshots", "abc", "screenshot_90.jpg"), "-y"}, frameCalls[3].Args)
}

func Test_Extract_FractionalIntervalWritesDistinctFiles(t *testing.T) {
	store := knowledge.NewService(helpers.NewSqliteManager(t))
	outputDir := t.TempDir()

	count, err := frames.NewExtractor(config, helpers.NewFakeRunner(scriptedMedia("2.0", -1)), store).
		Extract(context.Background(), "abc", "/media/video.mp4", outputDir, 0.5, nil)
	require.NoError(t, err)
	assert.Equal(t, 4, count)

	samples, err := store.ListFrameSamples("abc")
	require.NoError(t, err)
	require.Len(t, samples, 4)

	dir := filepath.Join(outputDir, "screenshots", "abc")
	expected := []string{"screenshot_0.jpg", "screenshot_0.5.jpg", "screenshot_1.jpg", "screenshot_1.5.jpg"}
	for i, name := range expected {
		assert.Equal(t, filepath.Join(dir, name), samples[i].ImagePath)
		assert.FileExists(t, samples[i].ImagePath)
	}
}

func Test_Extract_StopsAtFirstFailure(t *testing.T) {
	store := knowledge.NewService(helpers.NewSqliteManager(t))
	runner := helpers.NewFakeRunner(scriptedMedia("95", 3))

	count, err := frames.NewExtractor(config, runner, store).Extract(context.Background(), "abc", "/media/video.mp4", t.TempDir(), 30, nil)
	assert.Equal(t, 2, count)

	var frameErr *pipeline.FrameError
	require.ErrorAs(t, err, &frameErr)
	assert.Equal(t, 2, frameErr.Count)
	assert.Equal(t, 60.0, frameErr.Timestamp)

	var exitErr *pipeline.ProcessExitError
	assert.ErrorAs(t, err, &exitErr)

	samples, err := store.ListFrameSamples("abc")
	require.NoError(t, err)
	assert.Len(t, samples, 2)
	assert.Len(t, runner.CallsTo("ffmpeg"), 3)
}

func Test_Extract_ProbeFailures(t *testing.T) {
	tests := []struct {
		summary string
		command helpers.FakeCommand
	}{
		{summary: "non-zero exit", command: helpers.FakeCommand{Lines: []string{"No such file or directory"}, ExitCode: 1}},
		{summary: "unparsable output", command: helpers.FakeCommand{Lines: []string{"N/A"}}},
		{summary: "negative duration", command: helpers.FakeCommand{Lines: []string{"-4"}}},
		{summary: "missing binary", command: helpers.FakeCommand{LaunchErr: errors.New("executable file not found in $PATH")}},
	}

	for _, test := range tests {
		t.Run(test.summary, func(t *testing.T) {
			store := knowledge.NewService(helpers.NewSqliteManager(t))
			runner := helpers.NewFakeRunner(func(string, []string) helpers.FakeCommand { return test.command })

			count, err := frames.NewExtractor(config, runner, store).Extract(context.Background(), "abc", "/media/video.mp4", t.TempDir(), 30, nil)
			assert.Equal(t, 0, count)

			var probeErr *pipeline.ProbeError
			assert.ErrorAs(t, err, &probeErr)
			assert.Empty(t, runner.CallsTo("ffmpeg"))
		})
	}
}

func Test_Extract_RejectsNonPositiveInterval(t *testing.T) {
	runner := helpers.NewFakeRunner(scriptedMedia("95", -1))
	for _, interval := range []float64{0, -30} {
		_, err := frames.NewExtractor(config, runner, nil).Extract(context.Background(), "abc", "/media/video.mp4", t.TempDir(), interval, nil)

		var invalidErr *pipeline.InvalidRequestError
		assert.ErrorAs(t, err, &invalidErr)
	}

	assert.Empty(t, runner.Calls())
}

func Test_Timestamps(t *testing.T) {
	assert.Equal(t, []float64{0, 30, 60, 90}, frames.Timestamps(95, 30))
	assert.Equal(t, []float64{0, 30}, frames.Timestamps(60, 30), "timestamp equal to the duration is excluded")
	assert.Equal(t, []float64{}, frames.Timestamps(0, 30))
	assert.Len(t, frames.Timestamps(1, 0.1), 10)
}
