// Package artifact locates files produced by the retrieval tool inside a
// destination directory, using the item title as the file base name.
package artifact

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"
	"github.com/hbomb79/Mnemo/internal/pipeline"
)

// HintSimilarity is the similarity a file name must reach against the title
// before it is reported as the closest file in a not found error.
const HintSimilarity = 0.6

var (
	MediaExtensions     = []string{"mp4", "webm", "mkv", "mp3"}
	ThumbnailExtensions = []string{"jpg", "png", "webp"}
	SubtitleExtensions  = []string{"srt", "vtt"}

	// The retrieval tool swaps characters which are reserved in file names
	// for full-width lookalikes when writing to disk.
	titleSanitizer = strings.NewReplacer(
		"/", "⧸", `\`, "⧹", ":", "：", "*", "＊", "?", "？",
		`"`, "＂", "<", "＜", ">", "＞", "|", "｜",
	)
)

// Pattern describes an expected artifact: a file named '<Title><Suffix>.<ext>'
// for one of the extensions (tried in order).
type Pattern struct {
	Kind   string
	Dir    string
	Title  string
	Suffix string
	Exts   []string
}

// SanitizeTitle returns the title as the retrieval tool writes it to disk.
func SanitizeTitle(title string) string {
	return titleSanitizer.Replace(title)
}

// Find returns the path of the first existing file matching the pattern, trying
// the title as given and then in its sanitized form for each extension. Files
// named after any other title are never accepted. An ArtifactNotFoundError is
// returned if nothing matches, any other error means the directory could not be
// searched.
func Find(pattern Pattern) (string, error) {
	notFound := &pipeline.ArtifactNotFoundError{Kind: pattern.Kind, Title: pattern.Title, Dir: pattern.Dir}
	if pattern.Title == "" {
		return "", notFound
	}

	names := []string{pattern.Title}
	if sanitized := SanitizeTitle(pattern.Title); sanitized != pattern.Title {
		names = append(names, sanitized)
	}

	for _, ext := range pattern.Exts {
		for _, name := range names {
			path := filepath.Join(pattern.Dir, name+pattern.Suffix+"."+ext)
			if isFile(path) {
				return path, nil
			}
		}
	}

	closest, err := closestFile(pattern)
	if err != nil {
		return "", err
	}

	notFound.Closest = closest
	return "", notFound
}

// IsNotFound returns true if the error indicates a missing artifact.
func IsNotFound(err error) bool {
	var notFound *pipeline.ArtifactNotFoundError
	return errors.As(err, &notFound)
}

// closestFile returns the name of the file in the directory, with a matching
// suffix and extension, whose base name is most similar to the sanitized title.
func closestFile(pattern Pattern) (string, error) {
	entries, err := os.ReadDir(pattern.Dir)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	} else if err != nil {
		return "", fmt.Errorf("failed to search %s for %s artifact: %w", pattern.Dir, pattern.Kind, err)
	}

	metric := metrics.NewLevenshtein()
	metric.CaseSensitive = false

	title := SanitizeTitle(pattern.Title)
	closest, bestScore := "", HintSimilarity
	for _, ext := range pattern.Exts {
		ending := strings.ToLower(pattern.Suffix + "." + ext)
		for _, entry := range entries {
			name := entry.Name()
			if entry.IsDir() || !strings.HasSuffix(strings.ToLower(name), ending) {
				continue
			}

			candidate := name[:len(name)-len(ending)]
			if score := strutil.Similarity(candidate, title, metric); score >= bestScore {
				closest, bestScore = name, score
			}
		}
	}

	return closest, nil
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
