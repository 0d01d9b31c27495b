package camera

import "context"

// FrameSource is the acquisition contract the triage engine drives.
//
// BeginAcquisition is called exactly once before the loop starts and fails
// fatally: a device that cannot enter streaming mode aborts the run.
// NextFrame blocks until a frame is available and returns either a Frame the
// caller now owns, an error wrapping ErrIncompleteFrame (the frame was a
// partial readout and there is nothing to own), or an error wrapping
// services.ErrTransient (retried indefinitely by the caller). EndAcquisition
// is best-effort teardown, always attempted on loop exit; its error is
// logged, never propagated.
type FrameSource interface {
	BeginAcquisition(ctx context.Context) error
	NextFrame(ctx context.Context) (*Frame, error)
	EndAcquisition() error
	Metadata() Metadata
}
