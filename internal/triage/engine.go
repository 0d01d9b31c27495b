package triage

import (
	"log/slog"
	"sync"
	"time"

	"github.com/delsi82/color-recognition/internal/camera"
	"github.com/delsi82/color-recognition/internal/config"
	"github.com/delsi82/color-recognition/internal/detections"
	"github.com/delsi82/color-recognition/internal/gallery"
	"github.com/delsi82/color-recognition/internal/logging"
	"github.com/delsi82/color-recognition/internal/notifications"
)

// Engine coordinates one acquisition session over a frame source.
type Engine struct {
	source    camera.FrameSource
	persister *gallery.Persister
	store     *detections.Store // nil when the detection index is disabled
	notifier  notifications.Service
	logger    *slog.Logger

	colorRange ColorRange
	prefix     string
	deviceID   string
	ext        string
	outputDir  string
	retryDelay time.Duration
	maxFrames  int64
	saveFull   bool

	mu            sync.RWMutex
	running       bool
	state         State
	sessionID     string
	sessionRow    int64
	startedAt     time.Time
	frameCounter  int64
	incomplete    int64
	transient     int64
	matchedFrames int64
	cellsMatched  int64
	lastError     error
	lastDetection time.Time
	deviceLabel   string
}

// NewEngine wires an engine from configuration and its collaborators.
// store may be nil; notifier and logger fall back to noop implementations.
func NewEngine(cfg *config.Config, source camera.FrameSource, persister *gallery.Persister, store *detections.Store, notifier notifications.Service, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = logging.NewNop()
	}
	if notifier == nil {
		notifier = notifications.NewService(cfg)
	}
	lower, upper := cfg.ColorBounds()
	return &Engine{
		source:     source,
		persister:  persister,
		store:      store,
		notifier:   notifier,
		logger:     logging.NewComponentLogger(logger, "triage"),
		colorRange: ColorRange{Lower: lower, Upper: upper},
		prefix:     cfg.Output.Prefix,
		deviceID:   cfg.Camera.DeviceID,
		ext:        cfg.OutputExtension(),
		outputDir:  cfg.Paths.OutputDir,
		retryDelay: cfg.RetryDelay(),
		maxFrames:  cfg.Triage.MaxFrames,
		saveFull:   cfg.Output.SaveFullFrames,
		state:      StateStopped,
	}
}

func (e *Engine) setState(s State) {
	e.mu.Lock()
	e.state = s
	e.mu.Unlock()
}

func (e *Engine) setLastError(err error) {
	e.mu.Lock()
	e.lastError = err
	e.mu.Unlock()
}

// nextFrameCounter increments the processed-frame counter and returns the
// new value. The first successfully processed frame is number 1; incomplete
// and failed frames never advance it.
func (e *Engine) nextFrameCounter() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.frameCounter++
	return e.frameCounter
}

func (e *Engine) noteIncomplete() {
	e.mu.Lock()
	e.incomplete++
	e.mu.Unlock()
}

func (e *Engine) noteTransient() {
	e.mu.Lock()
	e.transient++
	e.mu.Unlock()
}

// noteDetections records a matched frame and returns true when it carried
// the first matches of the session.
func (e *Engine) noteDetections(cells int) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	first := e.cellsMatched == 0
	e.matchedFrames++
	e.cellsMatched += int64(cells)
	e.lastDetection = time.Now()
	return first
}

func (e *Engine) processedFrames() int64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.frameCounter
}
