package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrConfiguration = errors.New("configuration error")
	ErrValidation    = errors.New("validation error")
	ErrNoDevice      = errors.New("no camera found")
	ErrDriver        = errors.New("camera driver error")
	ErrStorage       = errors.New("storage error")
	ErrTransient     = errors.New("transient failure")
)

// Process exit codes. Fatal setup classes and device absence get distinct
// values so supervisors can tell a misconfigured host from a missing camera.
const (
	ExitOK       = 0
	ExitRuntime  = 1
	ExitSetup    = 2
	ExitNoDevice = 3
)

// Wrap builds an error message that includes component context while tagging
// it with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// ExitCode maps an error escaping the pipeline to the process exit code.
// Context cancellation is an externally-triggered shutdown and exits clean.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, context.Canceled):
		return ExitOK
	case errors.Is(err, ErrNoDevice):
		return ExitNoDevice
	case errors.Is(err, ErrConfiguration), errors.Is(err, ErrValidation), errors.Is(err, ErrDriver):
		return ExitSetup
	default:
		return ExitRuntime
	}
}

// ClassName returns the human-readable error class used in exit diagnostics.
func ClassName(err error) string {
	switch {
	case err == nil, errors.Is(err, context.Canceled):
		return "ok"
	case errors.Is(err, ErrNoDevice):
		return "no camera found"
	case errors.Is(err, ErrConfiguration):
		return "configuration error"
	case errors.Is(err, ErrValidation):
		return "validation error"
	case errors.Is(err, ErrDriver):
		return "camera driver error"
	case errors.Is(err, ErrStorage):
		return "storage error"
	case errors.Is(err, ErrTransient):
		return "transient failure"
	default:
		return "runtime failure"
	}
}

// IsFatal reports whether an error must unwind out of the acquisition loop.
// Transient and storage classes are absorbed in-loop; everything else
// terminates the run.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTransient) || errors.Is(err, ErrStorage) {
		return false
	}
	return true
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
