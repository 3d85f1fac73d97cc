package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"playsync/internal/config"
)

const userAgent = "Playsync-Go/0.1.0"

// Service defines the notification surface exposed to the sync runner.
type Service interface {
	NotifyRunStarted(ctx context.Context, playlists int) error
	NotifyRunCompleted(ctx context.Context, acquired, tagged, failed int, duration time.Duration) error
	NotifyRunDegraded(ctx context.Context, failedPlaylists int, detail string) error
	NotifyFatal(ctx context.Context, err error) error
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

	client := &http.Client{Timeout: timeout}
	return &ntfyService{
		endpoint: topic,
		client:   client,
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
}

func (n *ntfyService) NotifyRunStarted(ctx context.Context, playlists int) error {
	data := payload{
		title:   "Playsync - Run Started",
		message: fmt.Sprintf("Synchronizing %d playlist(s)", playlists),
		tags:    []string{"playsync", "run", "started"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyRunCompleted(ctx context.Context, acquired, tagged, failed int, duration time.Duration) error {
	data := payload{
		title: "Playsync - Run Complete",
		message: fmt.Sprintf("Acquired %d, tagged %d, failed %d in %s",
			acquired, tagged, failed, duration.Round(time.Second)),
		tags: []string{"playsync", "run", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyRunDegraded(ctx context.Context, failedPlaylists int, detail string) error {
	detail = strings.TrimSpace(detail)
	message := fmt.Sprintf("%d playlist(s) could not be synchronized", failedPlaylists)
	if detail != "" {
		message += "\n" + detail
	}
	data := payload{
		title:    "Playsync - Run Degraded",
		message:  message,
		tags:     []string{"playsync", "run", "degraded"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyFatal(ctx context.Context, err error) error {
	data := payload{
		title:    "Playsync - Fatal",
		message:  fmt.Sprintf("Run aborted: %v", err),
		tags:     []string{"playsync", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Playsync - Test",
		message:  "Notification system test",
		tags:     []string{"playsync", "test"},
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

func (noopService) NotifyRunStarted(context.Context, int) error                           { return nil }
func (noopService) NotifyRunCompleted(context.Context, int, int, int, time.Duration) error { return nil }
func (noopService) NotifyRunDegraded(context.Context, int, string) error                  { return nil }
func (noopService) NotifyFatal(context.Context, error) error                              { return nil }
func (noopService) TestNotification(context.Context) error                                { return nil }
