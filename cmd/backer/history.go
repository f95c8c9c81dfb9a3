package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"backer-hq/backer/pkg/cli"
	"backer-hq/backer/pkg/journal"
)

var historyFlags struct {
	kind   string
	since  time.Duration
	limit  int
	format string
	output string
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent backup attempts",
	Long: `List commit, sync and push attempts recorded in the journal, newest first.

The journal is enabled by setting journal.path in the configuration file or
BACKER_JOURNAL_PATH.

Examples:
  # Last 20 attempts
  backer history --config config.yaml

  # Failed syncs of the last day as JSON
  backer history --kind sync --since 24h --format json

  # Export everything to CSV
  backer history --limit 0 --format csv -o history.csv`,
	RunE: showHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().StringVar(&historyFlags.kind, "kind", "", "filter by kind: commit, sync, push")
	historyCmd.Flags().DurationVar(&historyFlags.since, "since", 0, "only entries started within this duration (e.g. 24h)")
	historyCmd.Flags().IntVar(&historyFlags.limit, "limit", 20, "max results (0 for all)")
	historyCmd.Flags().StringVar(&historyFlags.format, "format", "text", "output format: text, json, csv")
	historyCmd.Flags().StringVarP(&historyFlags.output, "output", "o", "", "output file (default: stdout)")
}

func showHistory(cmd *cobra.Command, _ []string) error {
	format, err := cli.ParseOutputFormat(historyFlags.format)
	if err != nil {
		return err
	}
	query, err := historyQuery(time.Now())
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Journal.Path == "" {
		return cli.NewConfigError("journal.path", "the journal is disabled; set journal.path to record history")
	}

	store, err := openJournal(cfg, nil)
	if err != nil {
		return cli.NewCommandError("history", err)
	}
	defer store.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	entries, err := store.List(ctx, query)
	if err != nil {
		return cli.NewCommandError("history", err)
	}
	if entries == nil {
		entries = []journal.Entry{}
	}

	var out io.Writer = cmd.OutOrStdout()
	if historyFlags.output != "" {
		f, err := os.Create(historyFlags.output)
		if err != nil {
			return cli.NewCommandError("history", fmt.Errorf("failed to create output file: %w", err))
		}
		defer f.Close()
		out = f
	}

	if len(entries) == 0 && format == cli.FormatText {
		fmt.Fprintln(out, "No backup attempts recorded")
		return nil
	}
	return cli.NewFormatter(format).FormatTo(out, journal.Entries(entries))
}

// historyQuery builds the journal query from the history flags.
func historyQuery(now time.Time) (journal.Query, error) {
	q := journal.Query{Limit: historyFlags.limit}
	switch kind := journal.Kind(historyFlags.kind); kind {
	case "":
	case journal.KindCommit, journal.KindSync, journal.KindPush:
		q.Kind = kind
	default:
		return q, cli.NewConfigError("kind", fmt.Sprintf("unknown kind %q (commit, sync, push)", historyFlags.kind))
	}
	if historyFlags.limit < 0 {
		return q, cli.NewConfigError("limit", "must not be negative")
	}
	if historyFlags.since > 0 {
		q.Since = now.Add(-historyFlags.since)
	}
	return q, nil
}
