package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"backer-hq/backer/pkg/daemon"
	"backer-hq/backer/pkg/vcs"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Pull and merge the remote branch",
	Long: `Fetch the tracked branch from the remote and merge it into the local one.

Uncommitted changes are committed first. Conflicting files are left with
conflict markers and automatic commits pause until they are resolved.

Examples:
  backer sync -p ~/notes -u git@github.com:alice/notes.git -k ~/.ssh/id_ed25519
  backer sync --config config.yaml`,
	RunE: syncBranch,
}

func init() {
	rootCmd.AddCommand(syncCmd)
}

func syncBranch(cmd *cobra.Command, _ []string) error {
	return withDaemon(cmd, "sync", func(ctx context.Context, d *daemon.Daemon) error {
		res, err := d.SyncNow(ctx)
		if err != nil {
			return err
		}
		printSyncResult(cmd.OutOrStdout(), res)
		return nil
	})
}

func printSyncResult(out io.Writer, res *vcs.SyncResult) {
	if res == nil {
		return
	}
	if res.Fetch != nil {
		if res.Fetch.RemoteEmpty {
			fmt.Fprintf(out, "✓ %s has no %s yet\n", res.Fetch.Remote, res.Fetch.Ref)
		} else {
			fmt.Fprintf(out, "✓ Fetched %s (%s)\n", short(res.Fetch.Tip), res.Fetch.Stats)
		}
	}

	m := res.Merge
	if m == nil {
		fmt.Fprintln(out, "✗ Merge conflicts are unresolved, fetched without merging")
		return
	}
	switch m.Outcome {
	case vcs.OutcomeConflicts:
		fmt.Fprintf(out, "✗ Merge conflicts in %d file(s):\n", len(m.Conflicts))
		for _, c := range m.Conflicts {
			fmt.Fprintf(out, "  %s (%s)\n", c.Path, c.Reason)
			if c.SideFile != "" {
				fmt.Fprintf(out, "    other version in %s, remove or rename it when done\n", c.SideFile)
			}
		}
		fmt.Fprintln(out, "Resolve them to resume backups.")
	case vcs.OutcomeNoOp:
		fmt.Fprintf(out, "✓ Already up to date (%s)\n", m.Analysis)
	default:
		fmt.Fprintf(out, "✓ %s: %s\n", m.Outcome, short(m.Head))
	}
}
