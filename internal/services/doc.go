// Package services defines shared utilities consumed by the triage engine
// and the device/storage integrations around it.
//
// Key responsibilities:
//   - Context helpers that stamp capture session IDs, frame sequence numbers,
//     and correlation identifiers for logging and tracing.
//   - Structured error markers plus the Wrap helper that classify failures
//     into the process error taxonomy (fatal setup, no device, transient,
//     storage) and the exit-code mapping derived from it.
//
// Use these helpers when wiring new pipeline logic so operational behaviour
// (error handling, observability, retries) stays uniform across the pipeline.
package services
