package download

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/kkdai/youtube/v2"
)

const (
	publishDateLayout = "2006-01-02"
	metadataTimeout   = 30 * time.Second
)

type (
	// Metadata is the subset of a videos details which is recorded in
	// the knowledge store.
	Metadata struct {
		ID          string
		Title       string
		Uploader    string
		Duration    time.Duration
		PublishDate string
		Description string
	}

	// MetadataFetcher resolves a source URL to the metadata of every
	// item it refers to, without downloading any media.
	MetadataFetcher interface {
		FetchMetadata(ctx context.Context, sourceURL string, playlist bool) ([]Metadata, error)
	}

	youtubeFetcher struct {
		client *youtube.Client
	}
)

func NewYoutubeFetcher() *youtubeFetcher {
	return &youtubeFetcher{client: &youtube.Client{HTTPClient: &http.Client{Timeout: metadataTimeout}}}
}

// FetchMetadata looks up the video at the URL provided. When playlist is true the
// URL is treated as a playlist and the metadata of each entry is resolved. Entries
// which cannot be resolved are skipped; an error is only returned if no entry
// could be resolved at all.
func (fetcher *youtubeFetcher) FetchMetadata(ctx context.Context, sourceURL string, playlist bool) ([]Metadata, error) {
	if !playlist {
		video, err := fetcher.client.GetVideoContext(ctx, sourceURL)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch video metadata: %w", err)
		}

		return []Metadata{metadataFromVideo(video)}, nil
	}

	list, err := fetcher.client.GetPlaylistContext(ctx, sourceURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch playlist metadata: %w", err)
	}

	results := make([]Metadata, 0, len(list.Videos))
	var errs []error
	for _, entry := range list.Videos {
		if entry == nil || entry.ID == "" {
			continue
		}

		video, err := fetcher.client.VideoFromPlaylistEntryContext(ctx, entry)
		if err != nil {
			errs = append(errs, fmt.Errorf("failed to fetch metadata for playlist entry %s: %w", entry.ID, err))
			continue
		}

		results = append(results, metadataFromVideo(video))
	}

	if len(results) == 0 && len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	return results, nil
}

func metadataFromVideo(video *youtube.Video) Metadata {
	publishDate := ""
	if !video.PublishDate.IsZero() {
		publishDate = video.PublishDate.Format(publishDateLayout)
	}

	return Metadata{
		ID:          video.ID,
		Title:       video.Title,
		Uploader:    video.Author,
		Duration:    video.Duration,
		PublishDate: publishDate,
		Description: video.Description,
	}
}
