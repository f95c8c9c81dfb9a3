// Package config provides configuration management for backer.
//
// Configuration is read from an optional YAML file, overridden by
// BACKER_SECTION_FIELD environment variables and then by command line flags.
// Unset fields receive defaults, ~ is expanded in paths, and the result is
// validated before any watching starts.
//
//	cfg, err := config.Load("~/.config/backer/config.yaml", func(c *config.Config) {
//	    c.Watch.Path = "~/notes"
//	})
//
// Example file:
//
//	watch:
//	  path: ~/notes
//	commit:
//	  delay: 5s
//	remote:
//	  url: git@github.com:alice/notes.git
//	  ssh_key_path: ~/.ssh/id_ed25519
//	sync:
//	  schedule: "@every 10m"
//
// # Validation
//
// All validation errors are collected into a single ValidationError. A
// remote URL without an SSH key is rejected unless remote.auth is "none".
package config
