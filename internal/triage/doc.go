// Package triage drives the acquisition cycle: pull a frame, validate it,
// convert it to the analysis layout, scan the grid for the target color
// range, persist matched cells, release the frame, repeat.
//
// The engine runs a single sequential loop. Frame-level failures
// (incomplete readouts, transient driver stalls, conversion or storage
// problems) are logged and absorbed; the loop only ends on context
// cancellation, an exhausted frame budget, or a fatal source failure.
package triage
