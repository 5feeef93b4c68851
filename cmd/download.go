package cmd

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/hbomb79/Mnemo/internal"
	"github.com/hbomb79/Mnemo/internal/download"
	"github.com/hbomb79/Mnemo/internal/knowledge"
	"github.com/hbomb79/Mnemo/internal/progress"
	"github.com/spf13/cobra"
)

func NewDownloadCmd() *cobra.Command {
	request := download.Request{}
	var format string

	downloadCmd := &cobra.Command{
		Use:   "download <url>",
		Short: "Download a video, playlist, audio track or subtitles",
		Long: `Download the media at the URL provided using yt-dlp, waiting for the
download (and any visual summaries it schedules) to complete.

With --kb, the metadata and subtitles of every retrieved item are ingested
in to the knowledge base. With --summary, frames are sampled from each
downloaded video.`,
		Args: cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			request.SourceURL = args[0]
			request.Format = knowledge.MediaFormat(format)
			return withMnemo(func(mnemo *internal.Mnemo) error {
				return runDownload(mnemo, request)
			})
		},
	}

	flags := downloadCmd.Flags()
	flags.StringVarP(&format, "format", "f", string(knowledge.VIDEO), "Format to retrieve: video, audio, subtitles_only")
	flags.StringVarP(&request.Quality, "quality", "q", download.QualityBest, "Maximum video height (e.g. 720), or 'best'")
	flags.BoolVarP(&request.Playlist, "playlist", "p", false, "Download every entry of the playlist the URL belongs to")
	flags.StringSliceVar(&request.SubtitleLanguages, "langs", nil, "Subtitle languages to request (default: the configured knowledge base languages)")
	flags.BoolVar(&request.KnowledgeBase, "kb", false, "Ingest metadata and transcripts in to the knowledge base")
	flags.BoolVar(&request.VisualSummary, "summary", false, "Extract a visual summary of each downloaded video (implies --kb)")
	flags.Float64Var(&request.SummaryInterval, "interval", 0, "Seconds between visual summary frames (default: the configured interval)")
	flags.StringVarP(&request.DestinationDir, "dest", "d", "", "Destination directory (default: the configured download directory)")

	return downloadCmd
}

func runDownload(mnemo *internal.Mnemo, request download.Request) error {
	if request.VisualSummary {
		request.KnowledgeBase = true
	}

	ctx, cancel := signalContext()
	defer cancel()

	run := startPipeline(ctx, mnemo)
	defer run.stop()

	id, err := mnemo.Downloads().Enqueue(request)
	if err != nil {
		return err
	}

	onProgress := printDownloadProgress
	if jsonFlag {
		onProgress = func(progress.Event) {}
	} else {
		fmt.Printf("%s %s\n", headingColor.Sprint("Downloading"), request.SourceURL)
	}

	operation, err := run.awaitDownload(id, onProgress)
	if err != nil {
		return err
	}
	if !jsonFlag {
		fmt.Println()
	}

	result := operation.Result
	if result == nil {
		return fmt.Errorf("download %s completed without a result", id)
	}
	if !jsonFlag {
		printResult(result)
	}
	if result.Err != nil {
		return result.Err
	}

	var summaryTasks []uuid.UUID
	for _, item := range result.Items {
		if item.SummaryTaskID != nil {
			summaryTasks = append(summaryTasks, *item.SummaryTaskID)
		}
	}
	if len(summaryTasks) > 0 && !jsonFlag {
		fmt.Printf("%s %d visual summaries\n", headingColor.Sprint("Waiting for"), len(summaryTasks))
	}

	tasks, err := run.awaitFrames(summaryTasks)
	if err != nil {
		return err
	}
	if jsonFlag {
		return printJSON(map[string]any{"result": result, "summaries": tasks})
	}

	for _, task := range tasks {
		printTask(task)
	}

	return nil
}

func printDownloadProgress(event progress.Event) {
	if event.Kind != progress.KindProgress {
		return
	}

	fmt.Printf("\r%s %5.1f%% of %s at %s ETA %s   ", mutedColor.Sprint("[download]"), event.Percent, event.Total, event.Speed, event.ETA)
}

func printResult(result *download.Result) {
	fmt.Printf("%s %s\n", outcomeColor(result.Outcome).Sprint(result.Outcome), mutedColor.Sprint(result.OperationID))
	if result.Err != nil {
		fmt.Printf("  %s\n", failureColor.Sprint(result.Err))
	}

	for _, item := range result.Items {
		fmt.Printf("  %s (%s)\n", item.Title, item.ItemID)
		fmt.Printf("    media: %s  thumbnail: %s  transcripts: %v\n", orDash(item.MediaPath), orDash(item.ThumbnailPath), item.Transcripts)
	}

	for _, warning := range result.Warnings {
		fmt.Printf("  %s %s\n", warningColor.Sprint("warning:"), warning)
	}
}
