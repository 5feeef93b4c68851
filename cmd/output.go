package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/hbomb79/Mnemo/internal/pipeline"
)

var (
	headingColor = color.New(color.FgCyan, color.Bold)
	mutedColor   = color.New(color.FgHiBlack)
	successColor = color.New(color.FgGreen)
	warningColor = color.New(color.FgYellow)
	failureColor = color.New(color.FgRed, color.Bold)
)

func printJSON(value any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(value)
}

// printTable writes the rows as aligned columns beneath a coloured header.
func printTable(headers []string, rows [][]string) {
	writer := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(writer, headingColor.Sprint(strings.Join(headers, "\t")))
	for _, row := range rows {
		fmt.Fprintln(writer, strings.Join(row, "\t"))
	}
	writer.Flush()
}

func outcomeColor(outcome pipeline.Outcome) *color.Color {
	switch outcome {
	case pipeline.SUCCESS:
		return successColor
	case pipeline.PARTIAL:
		return warningColor
	default:
		return failureColor
	}
}

func orDash(value *string) string {
	if value == nil || *value == "" {
		return "-"
	}

	return *value
}
