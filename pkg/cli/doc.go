/*
Package cli provides command-line helpers used by the backer command.

Output Formatting:

History and status results implement Table and render as aligned text,
JSON, or CSV:

	formatter := cli.NewFormatter(cli.FormatJSON)
	if err := formatter.FormatTo(os.Stdout, entries); err != nil {
		return err
	}

Transfer Progress:

ProgressWriter renders the remote's sideband messages during sync and push.

Signal Handling:

	ctx, stop := cli.SetupSignalHandler(context.Background())
	defer stop()

Errors:

ConfigError and CommandError carry command failures to main, where ExitCode
selects the process exit status.
*/
package cli
