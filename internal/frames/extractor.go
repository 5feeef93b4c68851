// Package frames produces visual summaries of downloaded videos by sampling
// a still frame at a fixed interval and recording each sample in the
// knowledge store.
package frames

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/hbomb79/Mnemo/internal/pipeline"
	"github.com/hbomb79/Mnemo/internal/process"
)

const screenshotsDir = "screenshots"

type (
	CommandRunner interface {
		Run(ctx context.Context, name string, args []string, onLine process.LineHandler) (*process.Result, error)
		Output(ctx context.Context, name string, args []string) (string, error)
	}

	SampleStore interface {
		AddFrameSample(itemID string, timestamp float64, path string) error
	}

	// ProgressFn is called after each sample is persisted, with the
	// number of samples so far and the total expected.
	ProgressFn func(count int, total int)

	Extractor struct {
		runner      CommandRunner
		store       SampleStore
		ffmpegPath  string
		ffprobePath string
	}
)

func NewExtractor(config Config, runner CommandRunner, store SampleStore) *Extractor {
	return &Extractor{
		runner:      runner,
		store:       store,
		ffmpegPath:  config.FfmpegPath,
		ffprobePath: config.FfprobePath,
	}
}

// Extract probes the duration of the media and samples one frame at every
// multiple of the interval strictly below that duration. Samples are written
// to '<outputDir>/screenshots/<itemID>/screenshot_<t>.jpg' (t in shortest
// decimal form, e.g. 'screenshot_1.5.jpg') and persisted as
// soon as they are produced.
//
// The first failure stops extraction; the number of samples persisted
// before the failure is returned alongside a FrameError.
func (extractor *Extractor) Extract(ctx context.Context, itemID string, mediaPath string, outputDir string, interval float64, onProgress ProgressFn) (int, error) {
	if interval <= 0 {
		return 0, &pipeline.InvalidRequestError{Field: "interval", Reason: "must be greater than zero"}
	}

	duration, err := extractor.Probe(ctx, mediaPath)
	if err != nil {
		return 0, err
	}

	dir := filepath.Join(outputDir, screenshotsDir, itemID)
	if err := os.MkdirAll(dir, os.ModeDir|os.ModePerm); err != nil {
		return 0, &pipeline.FrameError{Timestamp: 0, Count: 0, Err: fmt.Errorf("failed to create screenshot directory: %w", err)}
	}

	timestamps := Timestamps(duration, interval)
	for count, timestamp := range timestamps {
		output := filepath.Join(dir, screenshotName(timestamp))
		if _, err := extractor.runner.Run(ctx, extractor.ffmpegPath, frameArgs(mediaPath, timestamp, output), nil); err != nil {
			return count, &pipeline.FrameError{Timestamp: timestamp, Count: count, Err: err}
		}

		if err := extractor.store.AddFrameSample(itemID, timestamp, output); err != nil {
			return count, &pipeline.FrameError{Timestamp: timestamp, Count: count, Err: err}
		}

		if onProgress != nil {
			onProgress(count+1, len(timestamps))
		}
	}

	return len(timestamps), nil
}

// Probe returns the duration of the media in seconds.
func (extractor *Extractor) Probe(ctx context.Context, mediaPath string) (float64, error) {
	args := []string{"-v", "error", "-show_entries", "format=duration", "-of", "default=noprint_wrappers=1:nokey=1", mediaPath}
	output, err := extractor.runner.Output(ctx, extractor.ffprobePath, args)
	if err != nil {
		return 0, &pipeline.ProbeError{Path: mediaPath, Output: output, Err: err}
	}

	output = strings.TrimSpace(output)
	duration, err := strconv.ParseFloat(output, 64)
	if err != nil {
		return 0, &pipeline.ProbeError{Path: mediaPath, Output: output, Err: err}
	} else if duration < 0 || math.IsNaN(duration) || math.IsInf(duration, 0) {
		return 0, &pipeline.ProbeError{Path: mediaPath, Output: output}
	}

	return duration, nil
}

// Timestamps returns the sample points for media of the given duration. Each
// point is computed as a multiple of the interval so error does not accumulate.
func Timestamps(duration float64, interval float64) []float64 {
	timestamps := make([]float64, 0)
	if interval <= 0 || math.IsNaN(duration) || math.IsInf(duration, 0) {
		return timestamps
	}

	for i := 0; ; i++ {
		t := float64(i) * interval
		if t >= duration {
			return timestamps
		}

		timestamps = append(timestamps, t)
	}
}

func frameArgs(mediaPath string, timestamp float64, output string) []string {
	return []string{"-ss", formatTimestamp(timestamp), "-i", mediaPath, "-vframes", "1", "-q:v", "2", output, "-y"}
}

// screenshotName is unique per timestamp, so fractional intervals never
// overwrite an earlier sample.
func screenshotName(timestamp float64) string {
	return "screenshot_" + formatTimestamp(timestamp) + ".jpg"
}

func formatTimestamp(timestamp float64) string {
	return strconv.FormatFloat(timestamp, 'f', -1, 64)
}
