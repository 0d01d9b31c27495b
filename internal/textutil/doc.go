// Package textutil sanitizes text destined for file names. Frame prefixes
// and device labels come from configuration and udev, so they can carry
// path separators or shell-special characters that must never reach the
// filesystem layer.
package textutil
