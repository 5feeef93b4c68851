package frames

import "fmt"

// Config contains the configuration options for the
// visual summary service.
type Config struct {
	FfmpegPath  string `yaml:"ffmpeg_path" env:"FFMPEG_PATH" env-default:"ffmpeg"`
	FfprobePath string `yaml:"ffprobe_path" env:"FFPROBE_PATH" env-default:"ffprobe"`

	// The interval (in seconds) between samples when a summary
	// is requested without an explicit interval
	IntervalSeconds float64 `yaml:"interval_seconds" env:"FRAMES_INTERVAL_SECONDS" env-default:"30"`

	// The directory which 'screenshots/<item_id>' directories are created
	// inside of, when a job does not specify its own destination
	OutputDir string `yaml:"output_dir" env:"FRAMES_OUTPUT_DIR" env-default:"~/Downloads/YouTube"`

	// Controls the number of extractions which can run at once
	Parallelism int `yaml:"parallelism" env:"FRAMES_PARALLELISM" env-default:"1"`

	// When enabled, re-summarizing an item replaces the samples at
	// matching timestamps rather than appending duplicates
	Dedupe bool `yaml:"dedupe" env:"FRAMES_DEDUPE" env-default:"false"`
}

func (config Config) validate() error {
	if config.IntervalSeconds <= 0 {
		return fmt.Errorf("default frame interval must be positive (got %v)", config.IntervalSeconds)
	}
	if config.Parallelism < 1 {
		return fmt.Errorf("frame extraction parallelism must be at least 1 (got %d)", config.Parallelism)
	}

	return nil
}
