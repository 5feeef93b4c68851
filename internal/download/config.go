package download

import "fmt"

// Config contains the configuration options which control how Mnemo
// invokes yt-dlp, and where the downloaded files are written.
type Config struct {
	YtDlpPath string `yaml:"yt_dlp_path" env:"YT_DLP_PATH" env-default:"yt-dlp"`

	// The directory downloads are written to when a request does
	// not specify its own destination. A leading '~' is expanded.
	DestinationDir string `yaml:"destination_dir" env:"DOWNLOAD_DIR" env-default:"~/Downloads/YouTube"`

	// Controls the number of downloads which can run at once
	Parallelism int `yaml:"parallelism" env:"DOWNLOAD_PARALLELISM" env-default:"1"`

	// The subtitle languages requested when a download is ingested
	// in to the knowledge base
	KnowledgeBaseLanguages []string `yaml:"knowledge_base_languages" env:"KNOWLEDGE_BASE_LANGUAGES" env-separator:"," env-default:"it,en"`

	// Arguments placed before all others on every yt-dlp invocation
	ExtraArgs []string `yaml:"extra_args" env:"YT_DLP_EXTRA_ARGS" env-separator:" "`
}

func (config Config) validate() error {
	if config.Parallelism < 1 {
		return fmt.Errorf("download parallelism must be at least 1 (got %d)", config.Parallelism)
	}
	if config.YtDlpPath == "" {
		return fmt.Errorf("yt-dlp path must not be empty")
	}

	return nil
}

func (config Config) languages() []string {
	if len(config.KnowledgeBaseLanguages) == 0 {
		return DefaultKnowledgeBaseLanguages
	}

	return config.KnowledgeBaseLanguages
}
