package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"jobtrail/internal/config"
)

const userAgent = "Jobtrail-Go/0.1.0"

// Event identifies a notification type.
type Event string

const (
	EventApplicationAdded Event = "application_added"
	EventStageChanged     Event = "stage_changed"
	EventMonitorStopped   Event = "monitor_stopped"
	EventMonitorError     Event = "monitor_error"
	EventTest             Event = "test"
)

// Payload carries event-specific values keyed by name.
type Payload map[string]any

// Service publishes events to the configured transport.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint:      topic,
		client:        &http.Client{Timeout: timeout},
		stageChanges:  cfg.Notifications.StageChanges,
		monitorErrors: cfg.Notifications.MonitorErrors,
	}
}

type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint      string
	client        *http.Client
	stageChanges  bool
	monitorErrors bool
}

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	msg, ok := n.format(event, payload)
	if !ok {
		return nil
	}
	return n.send(ctx, msg)
}

func (n *ntfyService) format(event Event, payload Payload) (message, bool) {
	company := payload.text("company")
	position := payload.text("position")
	switch event {
	case EventApplicationAdded:
		if !n.stageChanges {
			return message{}, false
		}
		return message{
			title: "Jobtrail - New Application",
			body:  fmt.Sprintf("📝 Tracking %s at %s (%s)", position, company, strings.ToLower(payload.textOr("stage", "applied"))),
			tags:  []string{"jobtrail", "application", "added"},
		}, true
	case EventStageChanged:
		if !n.stageChanges {
			return message{}, false
		}
		next := strings.ToLower(payload.textOr("stage", "unknown"))
		previous := strings.ToLower(payload.textOr("previous", "unknown"))
		msg := message{
			title: "Jobtrail - Stage Changed",
			body:  fmt.Sprintf("%s at %s: %s → %s", position, company, previous, next),
			tags:  []string{"jobtrail", "stage", next},
		}
		if next == "offer" {
			msg.title = "Jobtrail - Offer"
			msg.body = "🎉 " + msg.body
			msg.priority = "high"
		}
		return msg, true
	case EventMonitorStopped:
		if !n.monitorErrors {
			return message{}, false
		}
		body := "⏹️ Mailbox monitor stopped"
		if reason := payload.text("reason"); reason != "" {
			body += ": " + reason
		}
		return message{
			title:    "Jobtrail - Monitor Stopped",
			body:     body,
			tags:     []string{"jobtrail", "monitor", "stopped"},
			priority: "high",
		}, true
	case EventMonitorError:
		if !n.monitorErrors {
			return message{}, false
		}
		var builder strings.Builder
		builder.WriteString("❌ Error")
		if label := payload.text("context"); label != "" {
			builder.WriteString(" during ")
			builder.WriteString(label)
		}
		builder.WriteString(": ")
		builder.WriteString(payload.textOr("error", "unknown"))
		return message{
			title:    "Jobtrail - Error",
			body:     builder.String(),
			tags:     []string{"jobtrail", "error", "alert"},
			priority: "high",
		}, true
	case EventTest:
		return message{
			title:    "Jobtrail - Test",
			body:     "🧪 Notification system test",
			tags:     []string{"jobtrail", "test"},
			priority: "low",
		}, true
	default:
		return message{}, false
	}
}

func (n *ntfyService) send(ctx context.Context, data message) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.body))
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

func (p Payload) text(key string) string {
	if p == nil {
		return ""
	}
	value, ok := p[key]
	if !ok || value == nil {
		return ""
	}
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v)
	case fmt.Stringer:
		return strings.TrimSpace(v.String())
	case error:
		return strings.TrimSpace(v.Error())
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

func (p Payload) textOr(key, fallback string) string {
	if value := p.text(key); value != "" {
		return value
	}
	return fallback
}

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
