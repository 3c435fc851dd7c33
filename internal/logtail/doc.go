// Package logtail reads the end of flowbit's own log file for the log pane.
package logtail
