// Backer keeps a directory backed up in git.
//
// It watches a directory, commits every burst of changes after a quiet
// delay, and keeps the branch in step with an optional remote over SSH.
//
// Usage:
//
//	# Watch ~/notes and commit locally
//	backer run -p ~/notes -n "Alice" -e alice@example.com
//
//	# Back up to a remote
//	backer run -p ~/notes -u git@github.com:alice/notes.git -k ~/.ssh/id_ed25519
//
//	# Run with a configuration file
//	backer run --config ~/.config/backer/config.yaml
//
//	# One-shot operations
//	backer commit
//	backer sync
//	backer push
//
//	# Show recent backup attempts
//	backer history --limit 20 --format json
package main

import "os"

func main() {
	os.Exit(Execute())
}
