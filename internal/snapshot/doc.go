// Package snapshot grabs a single frame from a configured source and writes
// it to disk, outside the triage loop. It powers the snapshot CLI command:
// warm-up frames are discarded behind a progress bar, the next complete
// frame is converted and saved, and an optional thumbnail is written next to
// it.
package snapshot
