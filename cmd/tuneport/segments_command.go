package main

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"tuneport/internal/download"
)

func newSegmentsCommand(ctx *commandContext) *cobra.Command {
	segmentsCmd := &cobra.Command{
		Use:         "segments",
		Short:       "Segment list utilities",
		Annotations: map[string]string{"skipConfigLoad": "true"},
	}
	segmentsCmd.AddCommand(newSegmentsParseCommand(ctx))
	return segmentsCmd
}

func newSegmentsParseCommand(ctx *commandContext) *cobra.Command {
	var description bool

	cmd := &cobra.Command{
		Use:   "parse [file]",
		Short: "Preview how a segment list or video description is split",
		Long: `Reads "start[-end] title" lines (or, with --description, a video ` +
			`description tracklist) from file or stdin and prints the resulting segments.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var reader io.Reader = cmd.InOrStdin()
			if len(args) == 1 && args[0] != "-" {
				file, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("open segments: %w", err)
				}
				defer file.Close()
				reader = file
			}
			data, err := io.ReadAll(reader)
			if err != nil {
				return fmt.Errorf("read segments: %w", err)
			}

			var segments []download.Segment
			if description {
				segments = download.ParseDescriptionSegments(string(data))
			} else {
				segments = download.ParseManualSegments(string(data))
			}

			if ctx.jsonOutput() {
				if segments == nil {
					segments = []download.Segment{}
				}
				return writeJSON(cmd, segments)
			}
			out := cmd.OutOrStdout()
			if len(segments) == 0 {
				fmt.Fprintln(out, "No segments found")
				return nil
			}
			fmt.Fprint(out, renderTable(
				[]string{"#", "Start", "End", "Length", "Title"},
				buildSegmentRows(segments),
				[]columnAlignment{alignRight, alignRight, alignRight, alignRight, alignLeft},
			))
			return nil
		},
	}
	cmd.Flags().BoolVar(&description, "description", false, "Parse a video description tracklist")
	return cmd
}

func buildSegmentRows(segments []download.Segment) [][]string {
	rows := make([][]string, 0, len(segments))
	for i, seg := range segments {
		end, length := "end", "-"
		if seg.End != nil {
			end = download.FormatTimestamp(*seg.End)
			length = download.FormatTimestamp(seg.Duration())
		}
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			download.FormatTimestamp(seg.Start),
			end,
			length,
			seg.Title,
		})
	}
	return rows
}
