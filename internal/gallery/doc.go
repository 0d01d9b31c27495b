// Package gallery persists matched cell images and optional full frames
// to the output directory. Writes happen on a dedicated worker goroutine
// fed with copied image data, so the acquisition loop never blocks on
// disk and never shares buffers with an in-flight write.
package gallery
