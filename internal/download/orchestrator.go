// Package download drives the external retrieval tool, reports its progress, and
// ingests the resulting files in to the knowledge base.
package download

import (
	"context"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/hbomb79/Mnemo/internal/artifact"
	"github.com/hbomb79/Mnemo/internal/frames"
	"github.com/hbomb79/Mnemo/internal/knowledge"
	"github.com/hbomb79/Mnemo/internal/pipeline"
	"github.com/hbomb79/Mnemo/internal/process"
	"github.com/hbomb79/Mnemo/internal/progress"
	"github.com/hbomb79/Mnemo/internal/transcript"
	"github.com/hbomb79/Mnemo/pkg/logger"
)

var log = logger.Get("DownloadServ")

type (
	CommandRunner interface {
		Run(ctx context.Context, name string, args []string, onLine process.LineHandler) (*process.Result, error)
	}

	KnowledgeStore interface {
		UpsertItem(item *knowledge.Item) error
		AddTranscript(itemID string, language string, text string) error
	}

	SummaryScheduler interface {
		Schedule(job frames.Job) (uuid.UUID, error)
	}

	// Listener receives the output of a download as it runs. Methods are
	// called on the goroutine performing the download.
	Listener interface {
		OnProgress(progress.Event)
		OnLog(line string)
	}

	// ListenerFuncs adapts a pair of functions to the Listener interface. Either
	// may be nil.
	ListenerFuncs struct {
		Progress func(progress.Event)
		Log      func(string)
	}

	// ItemSummary describes a single item ingested by a download.
	ItemSummary struct {
		ItemID        string     `json:"item_id"`
		Title         string     `json:"title"`
		MediaPath     *string    `json:"media_path"`
		ThumbnailPath *string    `json:"thumbnail_path"`
		Transcripts   []string   `json:"transcripts"`
		SummaryTaskID *uuid.UUID `json:"summary_task_id,omitempty"`
	}

	Result struct {
		OperationID uuid.UUID         `json:"operation_id"`
		Outcome     pipeline.Outcome  `json:"outcome"`
		Items       []ItemSummary     `json:"items"`
		Warnings    pipeline.Warnings `json:"warnings"`
		Err         error             `json:"-"`
	}

	// Orchestrator runs a single download request to completion. It holds no
	// per-request state and may be used by several goroutines at once.
	Orchestrator struct {
		config    Config
		runner    CommandRunner
		fetcher   MetadataFetcher
		store     KnowledgeStore
		scheduler SummaryScheduler
		validate  *validator.Validate
	}
)

func (funcs ListenerFuncs) OnProgress(event progress.Event) {
	if funcs.Progress != nil {
		funcs.Progress(event)
	}
}

func (funcs ListenerFuncs) OnLog(line string) {
	if funcs.Log != nil {
		funcs.Log(line)
	}
}

// NewOrchestrator creates an orchestrator. The scheduler may be nil, in which
// case visual summaries are never scheduled.
func NewOrchestrator(config Config, runner CommandRunner, fetcher MetadataFetcher, store KnowledgeStore, scheduler SummaryScheduler) *Orchestrator {
	return &Orchestrator{
		config:    config,
		runner:    runner,
		fetcher:   fetcher,
		store:     store,
		scheduler: scheduler,
		validate:  NewValidator(),
	}
}

// Download validates the request, runs the retrieval tool and, if knowledge base
// ingestion was requested, records every retrieved item in the knowledge store.
//
// The outcome is FAILURE when the request is invalid or the retrieval tool could not
// be launched or exited unsuccessfully. Problems encountered during ingestion are
// collected as warnings and result in a PARTIAL outcome.
func (orchestrator *Orchestrator) Download(ctx context.Context, operationID uuid.UUID, request Request, listener Listener) Result {
	result := Result{OperationID: operationID, Items: make([]ItemSummary, 0), Warnings: make(pipeline.Warnings, 0)}
	if listener == nil {
		listener = ListenerFuncs{}
	}

	fail := func(err error) Result {
		result.Err = err
		result.Outcome = pipeline.OutcomeFor(err, result.Warnings)
		return result
	}

	if err := request.Validate(orchestrator.validate); err != nil {
		return fail(err)
	}

	request, err := request.withDefaults(orchestrator.config)
	if err != nil {
		return fail(err)
	}

	if err := os.MkdirAll(request.DestinationDir, os.ModeDir|os.ModePerm); err != nil {
		return fail(fmt.Errorf("failed to create destination directory '%s': %w", request.DestinationDir, err))
	}

	args := BuildArgs(request, orchestrator.config.ExtraArgs)
	log.Emit(logger.NEW, "Starting download %s of %s (format=%s quality=%s)\n", operationID, request.SourceURL, request.Format, request.Quality)
	_, err = orchestrator.runner.Run(ctx, orchestrator.config.YtDlpPath, args, func(line string) {
		event := progress.Parse(line)
		if event.Kind == progress.KindLog {
			listener.OnLog(event.Line)
		} else {
			listener.OnProgress(event)
		}
	})
	if err != nil {
		log.Emit(logger.ERROR, "Download %s failed: %v\n", operationID, err)
		return fail(err)
	}

	if request.KnowledgeBase {
		orchestrator.ingest(ctx, request, &result)
	} else if request.VisualSummary {
		result.Warnings.Add(fmt.Errorf("visual summary skipped: it requires knowledge base ingestion"))
	}

	result.Outcome = pipeline.OutcomeFor(nil, result.Warnings)
	log.Emit(logger.SUCCESS, "Download %s complete with outcome %s (%d items, %d warnings)\n", operationID, result.Outcome, len(result.Items), len(result.Warnings))
	return result
}

// ingest resolves the metadata for the items retrieved and records each of them.
func (orchestrator *Orchestrator) ingest(ctx context.Context, request Request, result *Result) {
	metadata, err := orchestrator.fetcher.FetchMetadata(ctx, request.SourceURL, request.Playlist)
	if err != nil {
		result.Warnings.Add(fmt.Errorf("knowledge base ingestion skipped: %w", err))
		return
	}

	for _, meta := range metadata {
		result.Items = append(result.Items, orchestrator.ingestItem(request, meta, &result.Warnings))
	}
}

// ingestItem locates the files written for the item, upserts the item and appends
// every transcript found. A visual summary is scheduled if requested.
func (orchestrator *Orchestrator) ingestItem(request Request, meta Metadata, warnings *pipeline.Warnings) ItemSummary {
	summary := ItemSummary{ItemID: meta.ID, Title: meta.Title, Transcripts: make([]string, 0)}
	dir := request.DestinationDir

	var fileSize int64
	mediaPath, err := artifact.Find(artifact.Pattern{Kind: "media", Dir: dir, Title: meta.Title, Exts: artifact.MediaExtensions})
	if err == nil {
		summary.MediaPath = &mediaPath
		if info, err := os.Stat(mediaPath); err == nil {
			fileSize = info.Size()
		}
	} else if !artifact.IsNotFound(err) || request.Format != knowledge.SUBTITLES_ONLY {
		warnings.Add(err)
	}

	thumbnailPath, err := artifact.Find(artifact.Pattern{Kind: "thumbnail", Dir: dir, Title: meta.Title, Exts: artifact.ThumbnailExtensions})
	if err == nil {
		summary.ThumbnailPath = &thumbnailPath
	} else {
		warnings.Add(err)
	}

	item := &knowledge.Item{
		ItemID:          meta.ID,
		Title:           meta.Title,
		Uploader:        meta.Uploader,
		DurationSeconds: int(meta.Duration.Seconds()),
		PublishDate:     meta.PublishDate,
		Description:     meta.Description,
		ThumbnailPath:   summary.ThumbnailPath,
		MediaPath:       summary.MediaPath,
		Format:          request.Format,
		FileSize:        fileSize,
	}
	if err := orchestrator.store.UpsertItem(item); err != nil {
		warnings.Add(err)
		return summary
	}
	log.Emit(logger.SUCCESS, "Saved item %s (%s) to knowledge base\n", meta.ID, meta.Title)

	languages := request.SubtitleLanguages
	if request.Format == knowledge.SUBTITLES_ONLY {
		languages = SubtitleOnlyLanguages
	}

	files, err := transcript.Discover(dir, meta.Title, languages)
	if err != nil {
		warnings.Add(err)
	}

	for _, file := range files {
		loaded, err := transcript.Load(file)
		if err != nil {
			warnings.Add(err)
			continue
		}

		if err := orchestrator.store.AddTranscript(meta.ID, loaded.Language, loaded.Text); err != nil {
			warnings.Add(err)
			continue
		}

		summary.Transcripts = append(summary.Transcripts, loaded.Language)
	}

	if len(summary.Transcripts) == 0 {
		warnings.Add(fmt.Errorf("no subtitles found for '%s' (they may be unavailable or rate limited); search for this item will be limited", meta.Title))
	}

	if request.VisualSummary && request.Format == knowledge.VIDEO && summary.MediaPath != nil && orchestrator.scheduler != nil {
		taskID, err := orchestrator.scheduler.Schedule(frames.Job{
			ItemID:         meta.ID,
			MediaPath:      mediaPath,
			Interval:       request.SummaryInterval,
			DestinationDir: dir,
		})
		if err != nil {
			warnings.Add(fmt.Errorf("failed to schedule visual summary for %s: %w", meta.ID, err))
		} else {
			summary.SummaryTaskID = &taskID
		}
	}

	return summary
}
