package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"jobtrail/internal/config"
	"jobtrail/internal/notifications"
	"jobtrail/internal/stage"
)

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(&cfg)
	if err := svc.Publish(context.Background(), notifications.EventStageChanged, notifications.Payload{"company": "Acme"}); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func TestNtfyServiceFormatsPayloads(t *testing.T) {
	tests := []struct {
		name           string
		event          notifications.Event
		payload        notifications.Payload
		expectTitle    string
		expectMessage  string
		expectTags     string
		expectPriority string
	}{
		{
			name:  "application added",
			event: notifications.EventApplicationAdded,
			payload: notifications.Payload{
				"company":  "Acme Corp",
				"position": "Software Engineer",
				"stage":    stage.Applied,
			},
			expectTitle:   "Jobtrail - New Application",
			expectMessage: "📝 Tracking Software Engineer at Acme Corp (applied)",
			expectTags:    "jobtrail,application,added",
		},
		{
			name:  "stage changed",
			event: notifications.EventStageChanged,
			payload: notifications.Payload{
				"company":  "Globex",
				"position": "Data Analyst",
				"previous": stage.Applied,
				"stage":    stage.Interview,
			},
			expectTitle:   "Jobtrail - Stage Changed",
			expectMessage: "Data Analyst at Globex: applied → interview",
			expectTags:    "jobtrail,stage,interview",
		},
		{
			name:  "offer",
			event: notifications.EventStageChanged,
			payload: notifications.Payload{
				"company":  "Initech",
				"position": "Backend Engineer",
				"previous": stage.Interview,
				"stage":    stage.Offer,
			},
			expectTitle:    "Jobtrail - Offer",
			expectMessage:  "🎉 Backend Engineer at Initech: interview → offer",
			expectTags:     "jobtrail,stage,offer",
			expectPriority: "high",
		},
		{
			name:           "monitor stopped",
			event:          notifications.EventMonitorStopped,
			payload:        notifications.Payload{"reason": "mailbox authorization expired"},
			expectTitle:    "Jobtrail - Monitor Stopped",
			expectMessage:  "⏹️ Mailbox monitor stopped: mailbox authorization expired",
			expectTags:     "jobtrail,monitor,stopped",
			expectPriority: "high",
		},
		{
			name:  "error",
			event: notifications.EventMonitorError,
			payload: notifications.Payload{
				"context": "scan",
				"error":   errors.New("connection reset"),
			},
			expectTitle:    "Jobtrail - Error",
			expectMessage:  "❌ Error during scan: connection reset",
			expectTags:     "jobtrail,error,alert",
			expectPriority: "high",
		},
		{
			name:           "test",
			event:          notifications.EventTest,
			expectTitle:    "Jobtrail - Test",
			expectMessage:  "🧪 Notification system test",
			expectTags:     "jobtrail,test",
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
					t.Errorf("unexpected method: %s", r.Method)
				}
				captured.title = r.Header.Get("Title")
				captured.tags = r.Header.Get("Tags")
				captured.priority = r.Header.Get("Priority")
				body, err := io.ReadAll(r.Body)
				if err != nil {
					t.Errorf("read body: %v", err)
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
			if err := svc.Publish(context.Background(), tc.event, tc.payload); err != nil {
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

func TestNtfyServiceHonoursToggles(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected call for suppressed event: %s", r.Header.Get("Title"))
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	cfg.Notifications.StageChanges = false
	cfg.Notifications.MonitorErrors = false

	svc := notifications.NewService(&cfg)
	suppressed := []notifications.Event{
		notifications.EventApplicationAdded,
		notifications.EventStageChanged,
		notifications.EventMonitorStopped,
		notifications.EventMonitorError,
		notifications.Event("unknown"),
	}
	for _, event := range suppressed {
		if err := svc.Publish(context.Background(), event, notifications.Payload{"value": "ignored"}); err != nil {
			t.Fatalf("expected no error for suppressed event %s, got %v", event, err)
		}
	}
}

func TestNtfyServiceReportsHTTPFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "topic closed", http.StatusForbidden)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL

	err := notifications.NewService(&cfg).Publish(context.Background(), notifications.EventTest, nil)
	if err == nil || !strings.Contains(err.Error(), "403") {
		t.Fatalf("expected 403 error, got %v", err)
	}
}
