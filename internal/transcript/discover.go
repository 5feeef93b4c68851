package transcript

import (
	"fmt"
	"os"

	"github.com/hbomb79/Mnemo/internal/artifact"
)

type (
	// File is a subtitle file on disk for a single language
	File struct {
		Language string
		Path     string
	}

	// Transcript is the normalized text of a subtitle file
	Transcript struct {
		Language string
		Text     string
	}
)

// Discover finds the subtitle files written for the title inside the directory,
// following the '<title>.<lang>.<ext>' naming convention. At most one file is
// returned per language; srt is preferred over vtt. Languages with no file
// are omitted, subtitles of other titles are never returned.
func Discover(dir string, title string, languages []string) ([]File, error) {
	files := make([]File, 0, len(languages))
	for _, lang := range languages {
		path, err := artifact.Find(artifact.Pattern{
			Kind:   "subtitle",
			Dir:    dir,
			Title:  title,
			Suffix: "." + lang,
			Exts:   artifact.SubtitleExtensions,
		})
		if artifact.IsNotFound(err) {
			continue
		} else if err != nil {
			return files, err
		}

		files = append(files, File{Language: lang, Path: path})
	}

	return files, nil
}

// Load reads the subtitle file and normalizes its contents.
func Load(file File) (Transcript, error) {
	raw, err := os.ReadFile(file.Path)
	if err != nil {
		return Transcript{}, fmt.Errorf("failed to read subtitle file %s: %w", file.Path, err)
	}

	return Transcript{Language: file.Language, Text: Normalize(string(raw))}, nil
}
