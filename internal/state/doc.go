// Package state holds the display state shared by the controller and the
// renderers.
//
// The controller is the only writer. It moves the state through the cycle
//
//	Idle → Submitting → Polling → {Completed, Errored}
//
// using Reset, ShowProcessing, UpdateTrace, ShowTerminal and ShowError.
// Renderers read copies through Snapshot on their own schedule and compare
// Snapshot.Version to detect changes.
//
// Every display state carries a Class (processing, success, error) which the
// renderers map to a visual style. Errors keep the last trace visible so the
// payload that preceded a failure can still be inspected.
//
// Store is safe for concurrent use and its zero value is ready to use.
package state
