package services_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/delsi82/color-recognition/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrDriver, "camera", "open", "failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrDriver) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"camera", "open", "failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapDefaultsToTransient(t *testing.T) {
	err := services.Wrap(nil, "gallery", "write", "disk hiccup", errors.New("io"))
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker for nil marker, got %v", err)
	}
}

func TestExitCodeMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, services.ExitOK},
		{"canceled", context.Canceled, services.ExitOK},
		{"no device", services.Wrap(services.ErrNoDevice, "camera", "enumerate", "none attached", nil), services.ExitNoDevice},
		{"configuration", services.Wrap(services.ErrConfiguration, "config", "load", "bad toml", nil), services.ExitSetup},
		{"driver", services.Wrap(services.ErrDriver, "camera", "begin", "stream refused", nil), services.ExitSetup},
		{"runtime", errors.New("unclassified"), services.ExitRuntime},
		{"storage", services.Wrap(services.ErrStorage, "detections", "insert", "locked", nil), services.ExitRuntime},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := services.ExitCode(tt.err); got != tt.want {
				t.Fatalf("ExitCode(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestClassNames(t *testing.T) {
	if name := services.ClassName(services.Wrap(services.ErrNoDevice, "camera", "open", "", nil)); name != "no camera found" {
		t.Fatalf("unexpected class name %q", name)
	}
	if name := services.ClassName(errors.New("boom")); name != "runtime failure" {
		t.Fatalf("unexpected class name %q", name)
	}
}

func TestIsFatal(t *testing.T) {
	if services.IsFatal(services.Wrap(services.ErrTransient, "camera", "next", "readout", nil)) {
		t.Fatal("transient errors must be absorbed in-loop")
	}
	if services.IsFatal(services.Wrap(services.ErrStorage, "detections", "insert", "busy", nil)) {
		t.Fatal("storage errors must be absorbed in-loop")
	}
	if !services.IsFatal(services.Wrap(services.ErrDriver, "camera", "begin", "refused", nil)) {
		t.Fatal("driver errors must unwind")
	}
	if services.IsFatal(nil) {
		t.Fatal("nil is not fatal")
	}
}
