package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/delsi82/color-recognition/internal/config"
)

const userAgent = "ColorRec-Go/0.1.0"

// Service defines the notification surface exposed to the capture pipeline.
type Service interface {
	NotifySessionStarted(ctx context.Context, device string) error
	NotifySessionEnded(ctx context.Context, device string, frames, detections int64, duration time.Duration) error
	NotifyFirstDetection(ctx context.Context, frameName string, cellIndex int) error
	NotifyError(ctx context.Context, err error, contextLabel string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint:       topic,
		client:         &http.Client{Timeout: timeout},
		sessionStart:   cfg.Notifications.SessionStart,
		sessionEnd:     cfg.Notifications.SessionEnd,
		firstDetection: cfg.Notifications.FirstDetection,
		errors:         cfg.Notifications.Errors,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client

	sessionStart   bool
	sessionEnd     bool
	firstDetection bool
	errors         bool
}

func (n *ntfyService) NotifySessionStarted(ctx context.Context, device string) error {
	if !n.sessionStart {
		return nil
	}
	device = strings.TrimSpace(device)
	if device == "" {
		device = "default"
	}
	data := payload{
		title:   "ColorRec - Session Started",
		message: fmt.Sprintf("📷 Watching device %s", device),
		tags:    []string{"colorrec", "session", "started"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifySessionEnded(ctx context.Context, device string, frames, detections int64, duration time.Duration) error {
	if !n.sessionEnd {
		return nil
	}
	duration = duration.Round(time.Second)
	if duration < 0 {
		duration = 0
	}
	durationText := duration.String()
	if duration == 0 {
		durationText = "0s"
	}

	device = strings.TrimSpace(device)
	if device == "" {
		device = "default"
	}
	data := payload{
		title: "ColorRec - Session Ended",
		message: fmt.Sprintf("Session on %s ended: %d frames, %d detections in %s",
			device, frames, detections, durationText),
		tags: []string{"colorrec", "session", "ended"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyFirstDetection(ctx context.Context, frameName string, cellIndex int) error {
	if !n.firstDetection {
		return nil
	}
	frameName = strings.TrimSpace(frameName)
	data := payload{
		title:    "ColorRec - Detection",
		message:  fmt.Sprintf("🎯 First match of the session: %s, cell %d", frameName, cellIndex),
		tags:     []string{"colorrec", "detection"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	if !n.errors {
		return nil
	}
	var builder strings.Builder
	builder.WriteString("❌ Error")
	if contextLabel = strings.TrimSpace(contextLabel); contextLabel != "" {
		builder.WriteString(" with ")
		builder.WriteString(contextLabel)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}

	data := payload{
		title:    "ColorRec - Error",
		message:  builder.String(),
		tags:     []string{"colorrec", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "ColorRec - Test",
		message:  "🧪 Notification system test",
		tags:     []string{"colorrec", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifySessionStarted(context.Context, string) error { return nil }
func (noopService) NotifySessionEnded(context.Context, string, int64, int64, time.Duration) error {
	return nil
}
func (noopService) NotifyFirstDetection(context.Context, string, int) error { return nil }
func (noopService) NotifyError(context.Context, error, string) error        { return nil }
func (noopService) TestNotification(context.Context) error                  { return nil }
