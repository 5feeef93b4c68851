package cmd

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/hbomb79/Mnemo/internal"
	"github.com/hbomb79/Mnemo/internal/frames"
	"github.com/spf13/cobra"
)

func NewSummarizeCmd() *cobra.Command {
	var interval float64

	summarizeCmd := &cobra.Command{
		Use:   "summarize <item_id>",
		Short: "Extract a visual summary of an item already in the knowledge base",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return withMnemo(func(mnemo *internal.Mnemo) error {
				return runSummarize(mnemo, args[0], interval)
			})
		},
	}

	summarizeCmd.Flags().Float64VarP(&interval, "interval", "i", 0, "Seconds between frames (default: the configured interval)")
	return summarizeCmd
}

func runSummarize(mnemo *internal.Mnemo, itemID string, interval float64) error {
	ctx, cancel := signalContext()
	defer cancel()

	run := startPipeline(ctx, mnemo)
	defer run.stop()

	id, err := mnemo.Frames().Summarize(itemID, interval)
	if err != nil {
		return err
	}

	if !jsonFlag {
		fmt.Printf("%s visual summary of %s\n", headingColor.Sprint("Extracting"), itemID)
	}

	tasks, err := run.awaitFrames([]uuid.UUID{id})
	if err != nil {
		return err
	}
	if jsonFlag {
		return printJSON(tasks[0])
	}

	printTask(tasks[0])
	return nil
}

func printTask(task frames.Task) {
	fmt.Printf("%s %s: %d of %d frames sampled from %s\n",
		outcomeColor(task.Outcome).Sprint(task.Outcome), task.Job.ItemID, task.Samples, task.Expected, task.Job.MediaPath)
	if task.Error != "" {
		fmt.Printf("  %s\n", failureColor.Sprint(task.Error))
	}
}
