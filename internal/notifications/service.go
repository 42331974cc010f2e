package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"octpack/internal/config"
)

const userAgent = "octpack"

// Service is the notification surface used by the CLI.
type Service interface {
	NotifyPackCompleted(ctx context.Context, summary PackSummary) error
	NotifyPackFailed(ctx context.Context, setName string, err error) error
	NotifyRunCompleted(ctx context.Context, packed, failed int, elapsed time.Duration) error
	TestNotification(ctx context.Context) error
}

// PackSummary describes one finished archive.
type PackSummary struct {
	SetName       string
	Archive       string
	Cards         int
	Substitutions int
}

// NewService builds an ntfy-backed service, or a no-op when no topic is set.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}
	timeout := cfg.NotificationTimeout()
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
	}
}

type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyService) NotifyPackCompleted(ctx context.Context, summary PackSummary) error {
	body := fmt.Sprintf("Packed %s: %d cards", strings.TrimSpace(summary.SetName), summary.Cards)
	if summary.Substitutions > 0 {
		body += fmt.Sprintf(", %d approximate matches to review", summary.Substitutions)
	}
	if archive := strings.TrimSpace(summary.Archive); archive != "" {
		body += "\n" + archive
	}
	tags := []string{"octpack", "pack", "completed"}
	if summary.Substitutions > 0 {
		tags = append(tags, "review")
	}
	return n.send(ctx, message{title: "octpack - Pack Complete", body: body, tags: tags})
}

func (n *ntfyService) NotifyPackFailed(ctx context.Context, setName string, err error) error {
	var b strings.Builder
	b.WriteString("Pack failed for ")
	b.WriteString(strings.TrimSpace(setName))
	b.WriteString(": ")
	if err != nil {
		b.WriteString(strings.TrimSpace(err.Error()))
	} else {
		b.WriteString("unknown")
	}
	return n.send(ctx, message{
		title:    "octpack - Error",
		body:     b.String(),
		tags:     []string{"octpack", "error", "alert"},
		priority: "high",
	})
}

func (n *ntfyService) NotifyRunCompleted(ctx context.Context, packed, failed int, elapsed time.Duration) error {
	body := fmt.Sprintf("Packed %d sets in %s", packed, elapsed.Round(time.Second))
	if failed > 0 {
		body += fmt.Sprintf(" (%d failed)", failed)
	}
	return n.send(ctx, message{title: "octpack - Run Complete", body: body, tags: []string{"octpack", "run", "completed"}})
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	return n.send(ctx, message{
		title:    "octpack - Test",
		body:     "Notification system test",
		tags:     []string{"octpack", "test"},
		priority: "low",
	})
}

func (n *ntfyService) send(ctx context.Context, msg message) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(msg.body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if msg.title != "" {
		req.Header.Set("Title", msg.title)
	}
	if len(msg.tags) > 0 {
		req.Header.Set("Tags", strings.Join(msg.tags, ","))
	}
	if msg.priority != "" {
		req.Header.Set("Priority", msg.priority)
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

func (noopService) NotifyPackCompleted(context.Context, PackSummary) error            { return nil }
func (noopService) NotifyPackFailed(context.Context, string, error) error             { return nil }
func (noopService) NotifyRunCompleted(context.Context, int, int, time.Duration) error { return nil }
func (noopService) TestNotification(context.Context) error                            { return nil }
