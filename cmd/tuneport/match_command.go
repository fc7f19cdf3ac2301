package main

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"tuneport/internal/catalog"
	"tuneport/internal/download"
	"tuneport/internal/logging"
	"tuneport/internal/matching"
	"tuneport/internal/metadata"
)

type scoredCandidate struct {
	Candidate matching.Candidate  `json:"candidate"`
	Score     float64             `json:"score"`
	Breakdown matching.Breakdown  `json:"breakdown"`
	Accepted  bool                `json:"accepted"`
	Level     matching.Confidence `json:"confidence"`
}

type matchReport struct {
	Query      matching.TrackQuery `json:"query"`
	Threshold  float64             `json:"threshold"`
	Result     matching.Result     `json:"result"`
	Candidates []scoredCandidate   `json:"candidates"`
}

func newMatchCommand(ctx *commandContext) *cobra.Command {
	var query matching.TrackQuery

	cmd := &cobra.Command{
		Use:   "match [url]",
		Short: "Score catalog candidates for a track without adding anything",
		Long: "Runs the same query chain and scoring the daemon uses and prints every " +
			"candidate of the winning query. Pass --title, or a video URL to read the " +
			"title from its page.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger := logging.NewNop()

			if strings.TrimSpace(query.Title) == "" {
				if len(args) == 0 {
					return errors.New("provide --title or a video url")
				}
				source, err := metadata.NewFallbackSourceFromConfig(cfg, logger)
				if err != nil {
					return err
				}
				track, err := source.Fallback(cmd.Context(), args[0])
				if err != nil {
					return fmt.Errorf("read video metadata: %w", err)
				}
				query.Title = track.Title
				if strings.TrimSpace(query.Artist) == "" {
					query.Artist = track.Artist
				}
				if query.DurationSeconds == 0 {
					query.DurationSeconds = track.DurationSeconds
				}
			}

			client, _, err := catalog.NewFromConfig(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			scorer := matching.NewScorer(cfg.EffectiveThreshold())
			matcher := matching.NewMatcher(client, scorer, cfg.Catalog.SearchLimit, logger)

			result, err := matcher.Match(cmd.Context(), query)
			if err != nil {
				return err
			}
			report := matchReport{
				Query:     matching.PrepareQuery(query),
				Threshold: scorer.EffectiveThreshold(),
				Result:    result,
			}
			if result.Query != "" {
				candidates, err := client.Search(cmd.Context(), result.Query, cfg.Catalog.SearchLimit)
				if err != nil {
					return err
				}
				report.Candidates = scoreCandidates(scorer, report.Query, candidates)
			}

			if ctx.jsonOutput() {
				return writeJSON(cmd, report)
			}
			fmt.Fprint(cmd.OutOrStdout(), renderMatchReport(report, shouldColorize(cmd.OutOrStdout())))
			return nil
		},
	}
	cmd.Flags().StringVar(&query.Title, "title", "", "Track title")
	cmd.Flags().StringVar(&query.Artist, "artist", "", "Track artist")
	cmd.Flags().IntVar(&query.DurationSeconds, "duration", 0, "Track duration in seconds")
	return cmd
}

// scoreCandidates explains every candidate, highest score first. Equal
// scores keep catalog order.
func scoreCandidates(scorer matching.Scorer, query matching.TrackQuery, candidates []matching.Candidate) []scoredCandidate {
	out := make([]scoredCandidate, 0, len(candidates))
	for _, c := range candidates {
		score, breakdown := scorer.Explain(query, c)
		out = append(out, scoredCandidate{
			Candidate: c,
			Score:     score,
			Breakdown: breakdown,
			Accepted:  scorer.IsAutoAddable(score),
			Level:     matching.ConfidenceLevel(score),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

func renderMatchReport(report matchReport, colorize bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Query: %q", report.Query.Title)
	if report.Query.Artist != "" {
		fmt.Fprintf(&b, " by %q", report.Query.Artist)
	}
	if report.Query.DurationSeconds > 0 {
		fmt.Fprintf(&b, " (%s)", download.FormatTimestamp(report.Query.DurationSeconds))
	}
	b.WriteString("\n")
	if report.Result.Query != "" {
		fmt.Fprintf(&b, "Catalog query: %s\n", report.Result.Query)
	}

	if len(report.Candidates) > 0 {
		rows := make([][]string, 0, len(report.Candidates))
		for i, c := range report.Candidates {
			rows = append(rows, []string{
				strconv.Itoa(i + 1),
				c.Candidate.Name,
				strings.Join(c.Candidate.ArtistNames, ", "),
				catalog.FormatDuration(c.Candidate.DurationMs),
				fmt.Sprintf("%.3f", c.Breakdown.Title),
				fmt.Sprintf("%.3f", c.Breakdown.Artist),
				fmt.Sprintf("%.3f", c.Breakdown.Duration),
				fmt.Sprintf("%.3f", c.Score),
			})
		}
		b.WriteString(renderTable(
			[]string{"#", "Track", "Artists", "Length", "Title", "Artist", "Duration", "Score"},
			rows,
			[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight},
		))
	}

	threshold := fmt.Sprintf("threshold %.2f", report.Threshold)
	switch {
	case report.Result.Matched():
		c := report.Result.Candidate
		b.WriteString(renderStatusLine("Decision", statusOK,
			fmt.Sprintf("would add %s (score %.3f, %s)", c.URI, report.Result.Score, threshold), colorize))
	case report.Result.Best != nil:
		b.WriteString(renderStatusLine("Decision", statusWarn,
			fmt.Sprintf("best candidate %.3f is below %s; fallback policy applies", report.Result.Score, threshold), colorize))
	default:
		b.WriteString(renderStatusLine("Decision", statusError, "no catalog candidates", colorize))
	}
	b.WriteString("\n")
	return b.String()
}
