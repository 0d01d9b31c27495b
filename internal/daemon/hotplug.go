package daemon

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pilebones/go-udev/netlink"

	"github.com/delsi82/color-recognition/internal/camera"
	"github.com/delsi82/color-recognition/internal/config"
	"github.com/delsi82/color-recognition/internal/logging"
)

// cameraMonitor listens for udev netlink events on the video4linux subsystem
// so the daemon can restart a session when the configured camera reappears.
// This eliminates the need for udev rules that poke the CLI as root.
type cameraMonitor struct {
	logger *slog.Logger
	node   string // configured node; empty accepts any capture node
	added  chan string

	mu      sync.Mutex
	conn    *netlink.UEventConn
	quit    chan struct{}
	running bool
}

// newCameraMonitor creates a monitor for camera attach/detach events. The
// configured selector narrows events to one node when it names one.
func newCameraMonitor(cfg *config.Config, logger *slog.Logger) *cameraMonitor {
	if cfg == nil {
		return nil
	}
	return &cameraMonitor{
		logger: logging.NewComponentLogger(logger, "camera-monitor"),
		node:   camera.NodeForSelector(cfg.Camera.Device),
		added:  make(chan string, 1),
	}
}

// Start begins listening for udev netlink events.
func (m *cameraMonitor) Start(ctx context.Context) error {
	if m == nil {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return nil
	}

	conn := new(netlink.UEventConn)
	if err := conn.Connect(netlink.UdevEvent); err != nil {
		m.logger.Warn("failed to connect to netlink socket; hotplug recovery will rely on node polling",
			logging.Error(err),
			logging.String(logging.FieldEventType, "netlink_connect_failed"),
			logging.String(logging.FieldErrorHint, "ensure the daemon has permission to access netlink sockets"),
			logging.String(logging.FieldImpact, "camera reattach detection is slower"),
		)
		return nil // Non-fatal, the daemon polls for the node instead
	}

	m.conn = conn
	m.quit = make(chan struct{})
	m.running = true

	// Pass quit channel to goroutine to avoid reading m.quit without lock
	quit := m.quit
	go m.monitorLoop(ctx, quit)

	m.logger.Info("camera monitor started",
		logging.String(logging.FieldEventType, "camera_monitor_started"),
		logging.String("node", m.node),
	)

	return nil
}

// Stop shuts down the camera monitor.
func (m *cameraMonitor) Stop() {
	if m == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}

	if m.quit != nil {
		close(m.quit)
		m.quit = nil
	}

	if m.conn != nil {
		_ = m.conn.Close()
		m.conn = nil
	}

	m.running = false

	m.logger.Info("camera monitor stopped",
		logging.String(logging.FieldEventType, "camera_monitor_stopped"),
	)
}

// Running reports whether the camera monitor is active.
func (m *cameraMonitor) Running() bool {
	if m == nil {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// Added exposes attach events. A nil monitor yields a nil channel, which
// blocks forever in a select, so callers need no nil checks.
func (m *cameraMonitor) Added() <-chan string {
	if m == nil {
		return nil
	}
	return m.added
}

// monitorLoop reads netlink events and routes camera attach/detach.
func (m *cameraMonitor) monitorLoop(ctx context.Context, quit <-chan struct{}) {
	queue := make(chan netlink.UEvent)
	errs := make(chan error)

	matcher := m.buildMatcher()

	m.mu.Lock()
	conn := m.conn
	m.mu.Unlock()

	if conn == nil {
		return
	}

	monitorQuit := conn.Monitor(queue, errs, matcher)

	for {
		select {
		case <-ctx.Done():
			close(monitorQuit)
			return
		case <-quit:
			close(monitorQuit)
			return
		case uevent := <-queue:
			m.handleEvent(uevent)
		case err := <-errs:
			m.logger.Warn("camera monitor error",
				logging.Error(err),
				logging.String(logging.FieldEventType, "camera_monitor_error"),
				logging.String(logging.FieldErrorHint, "check kernel netlink subsystem"),
				logging.String(logging.FieldImpact, "hotplug recovery may be delayed"),
			)
		}
	}
}

// buildMatcher creates a matcher for capture node attach/detach events.
// Matches: SUBSYSTEM=video4linux, ACTION=add|remove
func (m *cameraMonitor) buildMatcher() netlink.Matcher {
	action := "add|remove"
	rules := &netlink.RuleDefinitions{}
	rules.AddRule(netlink.RuleDefinition{
		Action: &action,
		Env: map[string]string{
			"SUBSYSTEM": "video4linux",
		},
	})
	return rules
}

// handleEvent processes a matched uevent.
func (m *cameraMonitor) handleEvent(uevent netlink.UEvent) {
	node := m.extractDeviceNode(uevent)
	if node == "" {
		m.logger.Debug("ignoring event without device node",
			logging.String("action", string(uevent.Action)),
			logging.String("kobj", uevent.KObj),
		)
		return
	}
	if !strings.HasPrefix(filepath.Base(node), "video") {
		return
	}
	if m.node != "" && node != m.node {
		m.logger.Debug("ignoring event for non-configured node",
			logging.String("node", node),
			logging.String("configured_node", m.node),
		)
		return
	}

	switch uevent.Action {
	case netlink.ADD:
		m.logger.Info("camera attached",
			logging.String(logging.FieldEventType, "camera_attached"),
			logging.String("node", node),
		)
		select {
		case m.added <- node:
		default: // a pending wakeup already covers this attach
		}
	case netlink.REMOVE:
		m.logger.Info("camera detached",
			logging.String(logging.FieldEventType, "camera_detached"),
			logging.String("node", node),
		)
	}
}

// extractDeviceNode gets the device node path from a uevent.
func (m *cameraMonitor) extractDeviceNode(uevent netlink.UEvent) string {
	devname := uevent.Env["DEVNAME"]
	if devname == "" {
		// Try to construct from DEVPATH (e.g., /devices/pci.../video4linux/video0)
		devpath := uevent.Env["DEVPATH"]
		if devpath == "" {
			return ""
		}
		parts := strings.Split(devpath, "/")
		if len(parts) == 0 {
			return ""
		}
		devname = parts[len(parts)-1]
	}
	if !strings.HasPrefix(devname, "/dev/") {
		devname = "/dev/" + devname
	}
	return devname
}
