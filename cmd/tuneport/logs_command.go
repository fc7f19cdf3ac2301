package main

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"tuneport/internal/logging"
	"tuneport/internal/logs"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var follow, raw bool
	var lines int
	var filter logs.Filter

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Display daemon logs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			path := filepath.Join(cfg.Paths.LogDir, logging.LogFileName)
			out := cmd.OutOrStdout()
			emit := func(line string) {
				if !filter.Match(line) {
					return
				}
				if !raw {
					line = formatLogLine(line)
				}
				fmt.Fprintln(out, line)
			}

			var initial []string
			var offset int64
			if lines == 0 {
				initial, offset, err = logs.ReadFrom(path, 0)
			} else {
				initial, offset, err = logs.Last(path, lines)
			}
			if err != nil {
				return fmt.Errorf("tail logs: %w", err)
			}
			initial = filter.Apply(initial)
			for _, line := range initial {
				emit(line)
			}
			if !follow {
				if len(initial) == 0 {
					fmt.Fprintln(out, "No log entries available")
				}
				return nil
			}
			return logs.Follow(cmd.Context(), path, offset, 0, emit)
		},
	}

	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Follow log output")
	cmd.Flags().IntVarP(&lines, "lines", "n", 10, "Number of lines to show (0 for all)")
	cmd.Flags().StringVar(&filter.JobID, "job", "", "Only show records for this job ID")
	cmd.Flags().StringVar(&filter.MinLevel, "level", "", "Minimum level to show (debug, info, warn, error)")
	cmd.Flags().BoolVar(&raw, "raw", false, "Print JSON records unchanged")
	return cmd
}

// formatLogLine renders a JSON log record as "TIME LEVEL component: msg k=v".
// Lines that are not JSON objects are returned unchanged.
func formatLogLine(line string) string {
	var record map[string]any
	if err := json.Unmarshal([]byte(line), &record); err != nil {
		return line
	}
	take := func(key string) string {
		value, ok := record[key]
		if !ok {
			return ""
		}
		delete(record, key)
		return fmt.Sprint(value)
	}

	var b strings.Builder
	b.WriteString(take("time"))
	b.WriteString(" ")
	b.WriteString(strings.ToUpper(take("level")))
	b.WriteString(" ")
	if component := take(logging.FieldComponent); component != "" {
		b.WriteString(component)
		b.WriteString(": ")
	}
	b.WriteString(take("msg"))

	keys := make([]string, 0, len(record))
	for key := range record {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		fmt.Fprintf(&b, " %s=%v", key, record[key])
	}
	return strings.TrimSpace(b.String())
}
