package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"lapse/internal/config"
)

const userAgent = "Lapse/0.1.0"

// Service defines the notification surface exposed to pipeline components.
type Service interface {
	// Notify sends a free-form message. Insistent messages bypass the dedup
	// window and are delivered with raised priority.
	Notify(ctx context.Context, message string, insistent bool) error

	NotifyCaptureFailed(ctx context.Context, err error) error
	NotifyUploadFailed(ctx context.Context, filename string, err error) error
	NotifyBackupFailed(ctx context.Context, filename string, err error) error
	NotifyPhotoStored(ctx context.Context, filename string) error
	NotifySyncReport(ctx context.Context, date string, local, already, uploaded, failed int) error
	NotifyMontageReady(ctx context.Context, date, path string) error
	NotifyNoThumbnails(ctx context.Context, date string) error
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
		endpoint:    topic,
		mention:     strings.TrimSpace(cfg.Notifications.Mention),
		project:     cfg.Project.Name,
		client:      &http.Client{Timeout: timeout},
		dedupWindow: time.Duration(cfg.Notifications.DedupWindowSeconds) * time.Second,
		lastSent:    make(map[string]time.Time),
		now:         time.Now,
	}
}

type payload struct {
	title     string
	message   string
	tags      []string
	priority  string
	insistent bool
}

type ntfyService struct {
	endpoint    string
	mention     string
	project     string
	client      *http.Client
	dedupWindow time.Duration

	mu       sync.Mutex
	lastSent map[string]time.Time
	now      func() time.Time
}

func (n *ntfyService) Notify(ctx context.Context, message string, insistent bool) error {
	data := payload{
		title:     fmt.Sprintf("Lapse - %s", n.project),
		message:   message,
		tags:      []string{"lapse"},
		insistent: insistent,
	}
	if insistent {
		data.priority = "urgent"
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyCaptureFailed(ctx context.Context, err error) error {
	data := payload{
		title:    "Lapse - Capture Failed",
		message:  fmt.Sprintf("Camera capture failed: %s", errText(err)),
		tags:     []string{"lapse", "capture", "error"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyUploadFailed(ctx context.Context, filename string, err error) error {
	data := payload{
		title:    "Lapse - Upload Failed",
		message:  fmt.Sprintf("Upload failed for %s: %s\nPhoto continues to local backup.", filename, errText(err)),
		tags:     []string{"lapse", "upload", "error"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyBackupFailed(ctx context.Context, filename string, err error) error {
	data := payload{
		title:     "Lapse - Backup Failed",
		message:   fmt.Sprintf("Backup failed for %s: %s\nPossible storage hardware fault.", filename, errText(err)),
		tags:      []string{"lapse", "backup", "error"},
		priority:  "urgent",
		insistent: true,
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyPhotoStored(ctx context.Context, filename string) error {
	data := payload{
		title:   "Lapse - Photo Stored",
		message: fmt.Sprintf("Photo replicated: %s", filename),
		tags:    []string{"lapse", "photo", "stored"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifySyncReport(ctx context.Context, date string, local, already, uploaded, failed int) error {
	title := "Lapse - Daily Sync Complete"
	priority := ""
	if failed > 0 {
		title = "Lapse - Daily Sync Complete (with failures)"
		priority = "high"
	}
	data := payload{
		title: title,
		message: fmt.Sprintf("Sync for %s: %d local, %d already remote, %d uploaded, %d failed",
			date, local, already, uploaded, failed),
		tags:     []string{"lapse", "sync", "report"},
		priority: priority,
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyMontageReady(ctx context.Context, date, path string) error {
	data := payload{
		title:   "Lapse - Daily Montage",
		message: fmt.Sprintf("Montage for %s ready: %s", date, path),
		tags:    []string{"lapse", "montage", "ready"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyNoThumbnails(ctx context.Context, date string) error {
	data := payload{
		title:   "Lapse - No Photos Today",
		message: fmt.Sprintf("No thumbnails found for %s; skipping montage.", date),
		tags:    []string{"lapse", "montage", "empty"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:     "Lapse - Test",
		message:   "Notification system test",
		tags:      []string{"lapse", "test"},
		priority:  "low",
		insistent: true,
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}
	if !data.insistent && n.suppressed(data.title) {
		return nil
	}

	message := data.message
	if n.mention != "" {
		message = n.mention + " " + message
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(message))
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

	n.recordSent(data.title)
	return nil
}

// suppressed reports whether a message with this title was sent within the
// dedup window.
func (n *ntfyService) suppressed(title string) bool {
	if n.dedupWindow <= 0 {
		return false
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	last, ok := n.lastSent[title]
	return ok && n.now().Sub(last) < n.dedupWindow
}

func (n *ntfyService) recordSent(title string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.lastSent[title] = n.now()
}

func errText(err error) string {
	if err == nil {
		return "unknown"
	}
	return strings.TrimSpace(err.Error())
}

type noopService struct{}

func (noopService) Notify(context.Context, string, bool) error                    { return nil }
func (noopService) NotifyCaptureFailed(context.Context, error) error              { return nil }
func (noopService) NotifyUploadFailed(context.Context, string, error) error       { return nil }
func (noopService) NotifyBackupFailed(context.Context, string, error) error       { return nil }
func (noopService) NotifyPhotoStored(context.Context, string) error               { return nil }
func (noopService) NotifySyncReport(context.Context, string, int, int, int, int) error {
	return nil
}
func (noopService) NotifyMontageReady(context.Context, string, string) error { return nil }
func (noopService) NotifyNoThumbnails(context.Context, string) error         { return nil }
func (noopService) TestNotification(context.Context) error                   { return nil }
