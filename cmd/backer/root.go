package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"backer-hq/backer/pkg/cli"
	"backer-hq/backer/pkg/config"
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	cfgFile     string
	path        string
	ffreq       string
	cfreq       string
	sname       string
	semail      string
	message     string
	remoteURL   string
	privateKey  string
	logLevel    string
	monitor     string
	disablePush bool
}

var rootFlags globalFlags

var rootCmd = &cobra.Command{
	Use:   "backer",
	Short: "Backer - git based directory backup",
	Long: `Backer watches a directory and records every change in a git repository.

After the first change of a burst it waits for a quiet delay and commits the
whole working tree as one revision. When a remote is configured, commits are
pushed over SSH and the branch is periodically pulled, merging remote work.

Merge conflicts are never resolved automatically: backups pause until the
conflict markers are removed by hand, and until side files such as
name~HEAD, which hold the other version of a binary or deleted file, are
removed or renamed.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	return cli.ExitCode(err)
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&rootFlags.cfgFile, "config", "", "config file path")
	pf.StringVarP(&rootFlags.path, "path", "p", "", "directory to back up")
	pf.StringVarP(&rootFlags.ffreq, "ffreq", "f", "", "monitor frequency (seconds or duration, default 2s)")
	pf.StringVarP(&rootFlags.cfreq, "cfreq", "c", "", "delay between the first change and the commit (seconds or duration, default 5s)")
	pf.StringVarP(&rootFlags.sname, "sname", "n", "", "commit author name")
	pf.StringVarP(&rootFlags.semail, "semail", "e", "", "commit author email")
	pf.StringVarP(&rootFlags.message, "defcommitmsg", "d", "", "commit message")
	pf.StringVarP(&rootFlags.remoteURL, "remoteurl", "u", "", "remote url for push and fetch")
	pf.StringVarP(&rootFlags.privateKey, "pkey", "k", "", "ssh private key used for the remote")
	pf.StringVar(&rootFlags.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	pf.StringVar(&rootFlags.monitor, "monitor", "", "change monitor (auto, fsnotify, poll)")
	pf.BoolVar(&rootFlags.disablePush, "no-push", false, "keep commits local")
}

// loadConfig builds the effective configuration from the config file,
// BACKER_* environment variables, the global flags and extra, in that order.
func loadConfig(extra ...config.Override) (*config.Config, error) {
	overrides, err := flagOverrides()
	if err != nil {
		return nil, err
	}
	overrides = append(overrides, extra...)
	if err := config.Initialize(rootFlags.cfgFile, overrides...); err != nil {
		return nil, cli.ConfigErrorFrom(err)
	}
	return config.GetConfig(), nil
}

// flagOverrides converts the global flags into configuration overrides.
// Unset flags leave file and environment values alone.
func flagOverrides() ([]config.Override, error) {
	var overrides []config.Override
	set := func(value string, apply func(*config.Config, string)) {
		if value != "" {
			overrides = append(overrides, func(c *config.Config) { apply(c, value) })
		}
	}

	set(rootFlags.path, func(c *config.Config, v string) { c.Watch.Path = v })
	set(rootFlags.sname, func(c *config.Config, v string) { c.Commit.AuthorName = v })
	set(rootFlags.semail, func(c *config.Config, v string) { c.Commit.AuthorEmail = v })
	set(rootFlags.message, func(c *config.Config, v string) { c.Commit.Message = v })
	set(rootFlags.remoteURL, func(c *config.Config, v string) { c.Remote.URL = v })
	set(rootFlags.privateKey, func(c *config.Config, v string) { c.Remote.SSHKeyPath = v })
	set(rootFlags.logLevel, func(c *config.Config, v string) { c.Telemetry.Logging.Level = v })
	set(rootFlags.monitor, func(c *config.Config, v string) { c.Watch.Monitor = v })

	if rootFlags.ffreq != "" {
		d, err := parseFrequency(rootFlags.ffreq)
		if err != nil {
			return nil, cli.NewConfigError("ffreq", err.Error())
		}
		overrides = append(overrides, func(c *config.Config) { c.Watch.Interval = d })
	}
	if rootFlags.cfreq != "" {
		d, err := parseFrequency(rootFlags.cfreq)
		if err != nil {
			return nil, cli.NewConfigError("cfreq", err.Error())
		}
		overrides = append(overrides, func(c *config.Config) { c.Commit.Delay = d })
	}
	if rootFlags.disablePush {
		overrides = append(overrides, func(c *config.Config) { c.Sync.DisablePush = true })
	}
	return overrides, nil
}

// parseFrequency accepts a whole number of seconds ("5") or a Go duration
// ("1500ms").
func parseFrequency(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		if n <= 0 {
			return 0, fmt.Errorf("must be positive, got %d", n)
		}
		return time.Duration(n) * time.Second, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid frequency %q: want seconds or a duration like 1500ms", s)
	}
	if d <= 0 {
		return 0, fmt.Errorf("must be positive, got %s", d)
	}
	return d, nil
}
