// Package config loads flowbit's configuration.
//
// # Resolution Order
//
//  1. Built-in defaults (see Default)
//  2. The TOML file at the given path, or ~/.config/flowbit/config.toml
//  3. Environment variables FLOWBIT_SERVER and FLOWBIT_POLL_MS
//
// Command-line flags are applied on top by the caller. A missing config file
// is not an error. Blank string values are ignored.
//
// # TOML Format
//
//	server_url = "http://127.0.0.1:8000"
//	poll_interval_ms = 1000
//	request_timeout_ms = 30000
//	max_poll_duration_ms = 0   # 0 polls until completed/error
//	retry_limit = 0            # 0 surfaces the first poll failure
//	log_file = "~/.local/state/flowbit/flowbit.log"
//
// Paths starting with ~ are expanded to the home directory.
package config
