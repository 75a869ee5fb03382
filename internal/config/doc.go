// Package config loads, normalizes, and validates the TOML configuration
// shared by the daemon and CLI.
//
// Load resolves the config path (explicit flag, then the user config dir,
// then a project-local clippy.toml), applies defaults for anything unset,
// expands ~ in path fields, and validates the result. The embedded sample
// config is the canonical reference for every supported key.
package config
