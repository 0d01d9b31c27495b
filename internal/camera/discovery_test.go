package camera

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/delsi82/color-recognition/internal/services"
)

func TestDiscoverDevicesReadsSysfsNames(t *testing.T) {
	devDir := t.TempDir()
	sysDir := t.TempDir()

	for _, name := range []string{"video2", "video0", "videoX", "renderD128", "null"} {
		if err := os.WriteFile(filepath.Join(devDir, name), nil, 0o644); err != nil {
			t.Fatalf("seed %s: %v", name, err)
		}
	}
	if err := os.MkdirAll(filepath.Join(sysDir, "video0"), 0o755); err != nil {
		t.Fatalf("mkdir sysfs: %v", err)
	}
	if err := os.WriteFile(filepath.Join(sysDir, "video0", "name"), []byte("ultra hd camera\n"), 0o644); err != nil {
		t.Fatalf("seed sysfs name: %v", err)
	}

	devices, err := discoverDevices(devDir, sysDir)
	if err != nil {
		t.Fatalf("discoverDevices: %v", err)
	}
	if len(devices) != 2 {
		t.Fatalf("found %d devices, want 2: %+v", len(devices), devices)
	}
	if devices[0].Index != 0 || devices[1].Index != 2 {
		t.Fatalf("devices not sorted by index: %+v", devices)
	}
	if got, want := devices[0].Node, filepath.Join(devDir, "video0"); got != want {
		t.Fatalf("node = %q, want %q", got, want)
	}
	if got, want := devices[0].Name, "Ultra Hd Camera"; got != want {
		t.Fatalf("name = %q, want %q", got, want)
	}
	if devices[1].Name != "" {
		t.Fatalf("device without sysfs entry has name %q, want empty", devices[1].Name)
	}
}

func TestDiscoverDevicesMissingDevDir(t *testing.T) {
	_, err := discoverDevices(filepath.Join(t.TempDir(), "absent"), t.TempDir())
	if !errors.Is(err, services.ErrDriver) {
		t.Fatalf("err = %v, want driver error", err)
	}
}
