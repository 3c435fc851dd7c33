// Package ui provides the Bubble Tea terminal interface for flowbit.
//
// The screen is a single page: a header bar, a file path input, the status
// line, and a scrollable trace pane holding the latest status payload.
// An optional log pane tails the flowbit log file.
//
// The model never talks to the service directly. Enter hands the typed
// path to a Submitter (the app controller) inside a tea.Cmd, and a tick
// re-reads state.Store so poll results appear without blocking input.
//
// Keys:
//
//   - enter: process the file in the input
//   - tab: switch focus between input and trace
//   - j/k, g/G, pgup/pgdown: scroll the trace
//   - s: save the trace to flowbit-<id>.json
//   - L: toggle the log pane
//   - T: cycle theme (saved to prefs)
//   - ?/h: help
//   - q (trace focused) or ctrl+c: quit
package ui
