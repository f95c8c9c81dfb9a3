package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"backer-hq/backer/pkg/daemon"
	"backer-hq/backer/pkg/vcs"
)

var pushCmd = &cobra.Command{
	Use:   "push",
	Short: "Push the branch to the remote",
	Long: `Push the tracked branch to the configured remote without committing.

Examples:
  backer push -p ~/notes -u git@github.com:alice/notes.git -k ~/.ssh/id_ed25519`,
	RunE: pushBranch,
}

func init() {
	rootCmd.AddCommand(pushCmd)
}

func pushBranch(cmd *cobra.Command, _ []string) error {
	return withDaemon(cmd, "push", func(ctx context.Context, d *daemon.Daemon) error {
		res, err := d.PushNow(ctx)
		if err != nil {
			return err
		}
		printPushResult(cmd.OutOrStdout(), res)
		return nil
	})
}

func printPushResult(out io.Writer, res *vcs.PushResult) {
	switch res.Outcome {
	case vcs.PushRemoteMissing:
		fmt.Fprintf(out, "✗ Remote %q is not configured, commits kept locally\n", res.Remote)
	case vcs.PushUpToDate:
		fmt.Fprintf(out, "✓ %s already up to date on %s\n", res.Ref, res.Remote)
	default:
		fmt.Fprintf(out, "✓ Pushed %s to %s (%s)\n", short(res.Head), res.Remote, res.Ref)
	}
}
