package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/delsi82/color-recognition/internal/config"
	"github.com/delsi82/color-recognition/internal/notifications"
)

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(&cfg)
	if err := svc.NotifySessionStarted(context.Background(), "/dev/video0"); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func TestNtfyServiceFormatsPayloads(t *testing.T) {
	tests := []struct {
		name           string
		notify         func(svc notifications.Service) error
		expectTitle    string
		expectMessage  string
		expectTags     string
		expectPriority string
	}{
		{
			name: "session started",
			notify: func(svc notifications.Service) error {
				return svc.NotifySessionStarted(context.Background(), "/dev/video0")
			},
			expectTitle:   "ColorRec - Session Started",
			expectMessage: "📷 Watching device /dev/video0",
			expectTags:    "colorrec,session,started",
		},
		{
			name: "session ended",
			notify: func(svc notifications.Service) error {
				return svc.NotifySessionEnded(context.Background(), "/dev/video0", 120, 4, 90*time.Second)
			},
			expectTitle:   "ColorRec - Session Ended",
			expectMessage: "Session on /dev/video0 ended: 120 frames, 4 detections in 1m30s",
			expectTags:    "colorrec,session,ended",
		},
		{
			name: "first detection",
			notify: func(svc notifications.Service) error {
				return svc.NotifyFirstDetection(context.Background(), "capture-cam-7", 2)
			},
			expectTitle:    "ColorRec - Detection",
			expectMessage:  "🎯 First match of the session: capture-cam-7, cell 2",
			expectTags:     "colorrec,detection",
			expectPriority: "high",
		},
		{
			name: "error",
			notify: func(svc notifications.Service) error {
				return svc.NotifyError(context.Background(), errors.New("read failed"), "acquisition")
			},
			expectTitle:    "ColorRec - Error",
			expectMessage:  "❌ Error with acquisition: read failed",
			expectTags:     "colorrec,error,alert",
			expectPriority: "high",
		},
		{
			name: "test notification",
			notify: func(svc notifications.Service) error {
				return svc.TestNotification(context.Background())
			},
			expectTitle:    "ColorRec - Test",
			expectMessage:  "🧪 Notification system test",
			expectTags:     "colorrec,test",
			expectPriority: "low",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var captured struct {
				title    string
				tags     string
				priority string
				body     string
			}

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost {
					t.Fatalf("unexpected method: %s", r.Method)
				}
				captured.title = r.Header.Get("Title")
				captured.tags = r.Header.Get("Tags")
				captured.priority = r.Header.Get("Priority")
				body, err := io.ReadAll(r.Body)
				if err != nil {
					t.Fatalf("read body: %v", err)
				}
				captured.body = string(body)
				_ = r.Body.Close()
				w.WriteHeader(http.StatusOK)
			}))
			defer server.Close()

			cfg := config.Default()
			cfg.Notifications.NtfyTopic = server.URL
			cfg.Notifications.RequestTimeout = 5

			svc := notifications.NewService(&cfg)
			if err := tc.notify(svc); err != nil {
				t.Fatalf("notification returned error: %v", err)
			}

			if captured.title != tc.expectTitle {
				t.Fatalf("expected title %q, got %q", tc.expectTitle, captured.title)
			}
			if captured.body != tc.expectMessage {
				t.Fatalf("expected message %q, got %q", tc.expectMessage, captured.body)
			}
			if captured.tags != tc.expectTags {
				t.Fatalf("expected tags %q, got %q", tc.expectTags, captured.tags)
			}
			if captured.priority != tc.expectPriority {
				t.Fatalf("expected priority %q, got %q", tc.expectPriority, captured.priority)
			}
		})
	}
}

func TestNtfyServiceHonorsEventGates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("unexpected call for gated event: %s", r.URL.String())
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	cfg.Notifications.SessionStart = false
	cfg.Notifications.SessionEnd = false
	cfg.Notifications.FirstDetection = false
	cfg.Notifications.Errors = false

	svc := notifications.NewService(&cfg)
	ctx := context.Background()

	if err := svc.NotifySessionStarted(ctx, "d"); err != nil {
		t.Fatalf("gated session start: %v", err)
	}
	if err := svc.NotifySessionEnded(ctx, "d", 1, 1, time.Second); err != nil {
		t.Fatalf("gated session end: %v", err)
	}
	if err := svc.NotifyFirstDetection(ctx, "f", 0); err != nil {
		t.Fatalf("gated first detection: %v", err)
	}
	if err := svc.NotifyError(ctx, errors.New("x"), "y"); err != nil {
		t.Fatalf("gated error: %v", err)
	}
}

func TestNtfyServiceSurfacesServerErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "topic over quota", http.StatusTooManyRequests)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL

	svc := notifications.NewService(&cfg)
	if err := svc.TestNotification(context.Background()); err == nil {
		t.Fatal("expected error from non-2xx response")
	}
}
