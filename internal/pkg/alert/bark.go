package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"
)

const defaultBarkServer = "https://day.app"

// BarkReporter pushes alerts to an iOS device through the Bark API.
// The same subject is pushed at most once per throttle window.
type BarkReporter struct {
	key        string
	serverURL  string
	httpClient *http.Client

	mu         sync.Mutex
	lastPushAt map[string]time.Time
	throttle   time.Duration
	now        func() time.Time
}

func NewBarkReporter(key, serverURL string) *BarkReporter {
	serverURL = strings.TrimRight(strings.TrimSpace(serverURL), "/")
	if serverURL == "" {
		serverURL = defaultBarkServer
	}
	return &BarkReporter{
		key:        strings.TrimSpace(key),
		serverURL:  serverURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		lastPushAt: make(map[string]time.Time),
		throttle:   10 * time.Minute,
		now:        time.Now,
	}
}

type pushPayload struct {
	DeviceKey string `json:"device_key"`
	Title     string `json:"title"`
	Body      string `json:"body"`
	Group     string `json:"group,omitempty"`
}

func (b *BarkReporter) Report(ctx context.Context, subject, body string) error {
	if b.key == "" {
		return nil
	}

	b.mu.Lock()
	last, ok := b.lastPushAt[subject]
	if ok && b.now().Sub(last) < b.throttle {
		b.mu.Unlock()
		return nil
	}
	b.lastPushAt[subject] = b.now()
	b.mu.Unlock()

	payload, err := json.Marshal(pushPayload{
		DeviceKey: b.key,
		Title:     "[dailyhi] " + subject,
		Body:      body,
		Group:     "dailyhi",
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.serverURL+"/push", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := b.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("bark push: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("bark push: unexpected status %d", resp.StatusCode)
	}
	return nil
}
