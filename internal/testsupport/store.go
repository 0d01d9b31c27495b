package testsupport

import (
	"testing"

	"github.com/delsi82/color-recognition/internal/config"
	"github.com/delsi82/color-recognition/internal/detections"
)

// MustOpenStore opens a detection store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *detections.Store {
	t.Helper()

	store, err := detections.Open(cfg.Detections.DatabasePath)
	if err != nil {
		t.Fatalf("detections.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}
