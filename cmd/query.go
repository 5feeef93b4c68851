package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/hbomb79/Mnemo/internal"
	"github.com/spf13/cobra"
)

func NewSearchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>",
		Short: "Search the titles, descriptions and transcripts of the knowledge base",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return withMnemo(func(mnemo *internal.Mnemo) error {
				results, err := mnemo.Store().Search(strings.Join(args, " "))
				if err != nil {
					return err
				}
				if jsonFlag {
					return printJSON(results)
				}
				if len(results) == 0 {
					fmt.Println(mutedColor.Sprint("No results"))
					return nil
				}

				for _, result := range results {
					fmt.Printf("%s %s %s\n", headingColor.Sprint(result.Title), mutedColor.Sprintf("(%s)", result.ItemID), mutedColor.Sprint(result.Language))
					fmt.Printf("  %s\n\n", result.Snippet)
				}

				return nil
			})
		},
	}
}

func NewListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every item in the knowledge base",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return withMnemo(func(mnemo *internal.Mnemo) error {
				items, err := mnemo.Store().ListItems()
				if err != nil {
					return err
				}
				if jsonFlag {
					return printJSON(items)
				}

				rows := make([][]string, 0, len(items))
				for _, item := range items {
					rows = append(rows, []string{
						item.ItemID,
						item.Title,
						string(item.Format),
						orDash(&item.Uploader),
						strconv.Itoa(item.DurationSeconds),
						item.IngestedAt.Format("2006-01-02 15:04"),
					})
				}

				printTable([]string{"ID", "TITLE", "FORMAT", "UPLOADER", "DURATION", "INGESTED"}, rows)
				return nil
			})
		},
	}
}

func NewFramesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "frames <item_id>",
		Short: "List the visual summary frames of an item",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return withMnemo(func(mnemo *internal.Mnemo) error {
				if _, err := mnemo.Store().GetItem(args[0]); err != nil {
					return err
				}

				samples, err := mnemo.Store().ListFrameSamples(args[0])
				if err != nil {
					return err
				}
				if jsonFlag {
					return printJSON(samples)
				}

				rows := make([][]string, 0, len(samples))
				for _, sample := range samples {
					rows = append(rows, []string{strconv.FormatFloat(sample.Timestamp, 'f', -1, 64), sample.ImagePath})
				}

				printTable([]string{"TIMESTAMP", "IMAGE"}, rows)
				return nil
			})
		},
	}
}

func NewStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show the number of items, transcripts and frames in the knowledge base",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return withMnemo(func(mnemo *internal.Mnemo) error {
				stats, err := mnemo.Store().Stats()
				if err != nil {
					return err
				}
				if jsonFlag {
					return printJSON(stats)
				}

				printTable([]string{"ITEMS", "TRANSCRIPTS", "FRAMES"}, [][]string{{
					strconv.Itoa(stats.Items), strconv.Itoa(stats.Transcripts), strconv.Itoa(stats.FrameSamples),
				}})
				return nil
			})
		},
	}
}
