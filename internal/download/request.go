package download

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/hbomb79/Mnemo/internal/knowledge"
	"github.com/hbomb79/Mnemo/internal/pipeline"
	"github.com/mitchellh/go-homedir"
)

const (
	QualityBest = "best"

	outputTemplate = "%(title)s.%(ext)s"
)

var (
	DefaultKnowledgeBaseLanguages = []string{"it", "en"}

	// The languages requested when only the subtitles of a video are downloaded
	SubtitleOnlyLanguages = []string{"it", "en", "es", "fr", "de", "pt", "ru", "ja", "ko", "zh-Hans", "zh-Hant", "ar"}
)

// Request describes a single retrieval, of either one video or a playlist.
type Request struct {
	SourceURL         string                `json:"source_url" mapstructure:"source_url" validate:"required"`
	Format            knowledge.MediaFormat `json:"format" mapstructure:"format" validate:"omitempty,oneof=video audio subtitles_only"`
	Quality           string                `json:"quality" mapstructure:"quality" validate:"omitempty,quality"`
	Playlist          bool                  `json:"playlist" mapstructure:"playlist"`
	SubtitleLanguages []string              `json:"subtitle_languages" mapstructure:"subtitle_languages" validate:"omitempty,dive,required"`
	KnowledgeBase     bool                  `json:"knowledge_base" mapstructure:"knowledge_base"`
	VisualSummary     bool                  `json:"visual_summary" mapstructure:"visual_summary"`
	SummaryInterval   float64               `json:"summary_interval" mapstructure:"summary_interval" validate:"gte=0"`
	DestinationDir    string                `json:"destination_dir" mapstructure:"destination_dir"`
}

// NewValidator returns a validator aware of the custom validation
// tags used by Request.
func NewValidator() *validator.Validate {
	validate := validator.New()
	_ = validate.RegisterValidation("quality", func(fl validator.FieldLevel) bool {
		return isValidQuality(fl.Field().String())
	})

	return validate
}

func isValidQuality(quality string) bool {
	if quality == QualityBest {
		return true
	}

	height, err := strconv.Atoi(quality)
	return err == nil && height > 0
}

// Validate checks the request, returning an InvalidRequestError describing the
// first problem found.
func (request *Request) Validate(validate *validator.Validate) error {
	if strings.TrimSpace(request.SourceURL) == "" {
		return &pipeline.InvalidRequestError{Field: "source_url", Reason: "must not be empty"}
	}

	if err := validate.Struct(request); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) && len(validationErrs) > 0 {
			fieldErr := validationErrs[0]
			return &pipeline.InvalidRequestError{Field: fieldErr.Field(), Reason: fmt.Sprintf("failed '%s' validation (value %v)", fieldErr.Tag(), fieldErr.Value())}
		}

		return &pipeline.InvalidRequestError{Reason: err.Error()}
	}

	return nil
}

// withDefaults returns a copy of the request with the unset fields filled
// from the configuration provided, and the destination directory expanded.
func (request Request) withDefaults(config Config) (Request, error) {
	if request.Format == "" {
		request.Format = knowledge.VIDEO
	}
	if request.Quality == "" {
		request.Quality = QualityBest
	}
	if len(request.SubtitleLanguages) == 0 {
		request.SubtitleLanguages = config.languages()
	}
	if request.DestinationDir == "" {
		request.DestinationDir = config.DestinationDir
	}

	dest, err := homedir.Expand(request.DestinationDir)
	if err != nil {
		return request, &pipeline.InvalidRequestError{Field: "destination_dir", Reason: err.Error()}
	}
	request.DestinationDir = dest

	return request, nil
}

// BuildArgs constructs the yt-dlp argument list for the request. The
// request is expected to have been validated and defaulted.
func BuildArgs(request Request, extraArgs []string) []string {
	args := append([]string{}, extraArgs...)
	args = append(args, "--newline", "-o", filepath.Join(request.DestinationDir, outputTemplate), "--write-thumbnail")

	switch request.Format {
	case knowledge.AUDIO:
		args = append(args, "-f", "bestaudio/best", "-x", "--audio-format", "mp3", "--audio-quality", "192K")
	case knowledge.SUBTITLES_ONLY:
		args = append(args,
			"--skip-download", "--write-subs", "--write-auto-subs",
			"--sub-langs", strings.Join(SubtitleOnlyLanguages, ","),
			"--sub-format", "srt/vtt/best",
		)
	default:
		if request.Quality == "" || request.Quality == QualityBest {
			args = append(args, "-f", "bestvideo+bestaudio/best")
		} else {
			args = append(args, "-f", fmt.Sprintf("bestvideo[height<=%s]+bestaudio/bestvideo+bestaudio/best", request.Quality))
		}
		args = append(args, "--merge-output-format", "mp4")
	}

	if request.KnowledgeBase && request.Format != knowledge.SUBTITLES_ONLY {
		languages := request.SubtitleLanguages
		if len(languages) == 0 {
			languages = DefaultKnowledgeBaseLanguages
		}

		args = append(args, "--write-subs", "--write-auto-subs", "--sub-langs", strings.Join(languages, ","), "--ignore-errors")
	}

	if request.Playlist {
		args = append(args, "--yes-playlist")
	} else {
		args = append(args, "--no-playlist")
	}

	return append(args, request.SourceURL)
}
