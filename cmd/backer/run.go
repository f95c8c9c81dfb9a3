package main

import (
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"backer-hq/backer/pkg/cli"
	"backer-hq/backer/pkg/config"
	"backer-hq/backer/pkg/daemon"
	"backer-hq/backer/pkg/telemetry/metrics"
	"backer-hq/backer/pkg/watch"
)

var runFlags struct {
	listen string
	dryRun bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Watch a directory and back it up continuously",
	Long: `Start the backup daemon.

The daemon opens (or initializes) the repository at --path, pulls from the
remote when one is configured, then watches the directory. Each burst of
changes is committed once the commit delay has passed since its first change,
and pushed when a remote is configured.

Examples:
  # Local backups only
  backer run -p ~/notes -n "Alice" -e alice@example.com

  # Push to a remote over SSH
  backer run -p ~/notes -u git@github.com:alice/notes.git -k ~/.ssh/id_ed25519

  # Expose /metrics and health endpoints
  backer run --config config.yaml --listen 127.0.0.1:9464

  # Validate the configuration without starting
  backer run --config config.yaml --dry-run`,
	RunE: runDaemon,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listen, "listen", "l", "", "address of the metrics and health server")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting")
}

func runDaemon(cmd *cobra.Command, _ []string) error {
	var extra []config.Override
	if runFlags.listen != "" {
		listen := runFlags.listen
		extra = append(extra, func(c *config.Config) { c.Telemetry.Metrics.Listen = listen })
	}

	sess, err := newSession(extra...)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := sess.close(); cerr != nil {
			slog.Warn("Failed to release resources", "error", cerr)
		}
	}()
	cfg := sess.cfg

	if runFlags.dryRun {
		fmt.Fprintln(cmd.OutOrStdout(), "✓ Configuration valid")
		return nil
	}

	printBanner(cmd, cfg)

	ctx, stop := cli.SetupSignalHandler(cmd.Context())
	defer stop()

	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, prometheus.NewRegistry())

	d, err := daemon.New(cfg, sess.deps(collector))
	if err != nil {
		return cli.NewCommandError("run", err)
	}

	// The repository, and its directory, must exist before watching starts.
	if err := d.Prepare(ctx); err != nil {
		return cli.NewCommandError("run", err)
	}

	monitor, err := watch.New(watch.Options{
		Root:     cfg.Watch.Path,
		Backend:  cfg.Watch.Monitor,
		Interval: cfg.Watch.Interval,
		Logger:   sess.logger.Logger,
	})
	if err != nil {
		return cli.NewCommandError("run", fmt.Errorf("failed to start change monitor: %w", err))
	}
	defer monitor.Close()
	d.SetMonitor(monitor)

	fmt.Fprintf(cmd.OutOrStdout(), "✓ Repository ready at %s\n", cfg.Watch.Path)
	if cfg.Telemetry.Metrics.Listen != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Health endpoint: http://%s/readyz\n", cfg.Telemetry.Metrics.Listen)
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Metrics endpoint: http://%s%s\n", cfg.Telemetry.Metrics.Listen, cfg.Telemetry.Metrics.Path)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "\nPress Ctrl+C to stop")

	if err := d.Run(ctx); err != nil {
		return cli.NewCommandError("run", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "✓ Stopped")
	return nil
}

func printBanner(cmd *cobra.Command, cfg *config.Config) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Backer v%s\n", Version)
	if rootFlags.cfgFile != "" {
		fmt.Fprintf(out, "Loading configuration from: %s\n", rootFlags.cfgFile)
	}
	fmt.Fprintln(out, "✓ Configuration loaded")
	fmt.Fprintf(out, "✓ Watching %s (%s monitor, commit delay %s)\n", cfg.Watch.Path, cfg.Watch.Monitor, cfg.Commit.Delay)
	if cfg.Remote.URL == "" {
		fmt.Fprintln(out, "✓ No remote configured, backups stay local")
	} else {
		fmt.Fprintf(out, "✓ Remote %s (%s)\n", cfg.Remote.Name, cfg.Remote.URL)
	}

	slog.Debug("effective configuration",
		"branch", cfg.Remote.Branch,
		"sync_schedule", cfg.Sync.Schedule,
		"push", !cfg.Sync.DisablePush,
		"journal", cfg.Journal.Path,
	)
}
