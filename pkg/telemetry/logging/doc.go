// Package logging builds the daemon's structured logger.
//
// It wraps log/slog and adds:
//   - JSON or text output with a runtime-adjustable level
//   - An optional rotating log file (lumberjack)
//   - Redaction of credentials embedded in remote URLs
//   - Attempt and job fields taken from the context
//
// # Usage
//
//	logger, err := logging.New(logging.Config{
//	    Level:  "info",
//	    Format: "text",
//	    File:   "~/.local/state/backer/backer.log",
//	})
//	defer logger.Shutdown()
//
//	ctx = logging.WithAttemptID(ctx, id)
//	logger.InfoContext(ctx, "Committed", "revision", hash)
package logging
