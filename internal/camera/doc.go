// Package camera owns frame acquisition: the FrameSource contract the triage
// engine consumes, the pixel formats frames arrive in, conversion into the
// fixed analysis layout, and the concrete sources behind the contract.
//
// Two sources ship with the daemon. The production source wraps an OpenCV
// VideoCapture handle (gocv) around a local V4L2 device and yields BGR or
// grayscale frames. The synthetic source generates deterministic frames in
// any supported pixel format and is used by tests, the demo run mode, and
// anywhere hardware is unavailable.
//
// Ownership rules are strict: a Frame belongs to exactly one loop iteration
// and must be released on every exit path. Release is safe to call more than
// once so early-abort paths stay simple.
package camera
