package main

import (
	"context"
	"fmt"
	"io"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/spf13/cobra"

	"backer-hq/backer/pkg/daemon"
)

var commitCmd = &cobra.Command{
	Use:   "commit",
	Short: "Commit every change now",
	Long: `Record every change in the working tree as one revision, then push it
when a remote is configured.

Commits are paused while a merge with conflicts is pending.

Examples:
  backer commit -p ~/notes
  backer commit --config config.yaml --no-push`,
	RunE: commitChanges,
}

func init() {
	rootCmd.AddCommand(commitCmd)
}

func commitChanges(cmd *cobra.Command, _ []string) error {
	return withDaemon(cmd, "commit", func(ctx context.Context, d *daemon.Daemon) error {
		report, err := d.CommitNow(ctx)
		if err != nil {
			return err
		}
		printCommitReport(cmd.OutOrStdout(), report)
		return nil
	})
}

func printCommitReport(out io.Writer, report *daemon.CommitReport) {
	if report.Paused {
		fmt.Fprintln(out, "✗ Commit paused: resolve the merge conflicts first")
		return
	}
	rec := report.Commit
	fmt.Fprintf(out, "✓ Committed %s on %s\n", short(rec.Hash), rec.Branch)
	if !rec.MergeHead.IsZero() {
		fmt.Fprintf(out, "  merged %s\n", short(rec.MergeHead))
	}
	if report.Push != nil {
		printPushResult(out, report.Push)
	}
}

// short abbreviates a revision the way git log --oneline does.
func short(h plumbing.Hash) string {
	return h.String()[:10]
}
