// Package notify posts a best-effort shutdown notification webhook when
// the daemon goes down on a signal. Delivery failures are logged and
// otherwise ignored; shutdown never waits on a broken endpoint beyond the
// configured timeout.
package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// httpClient is a lazily-initialized retryablehttp client shared across
// sends. Initialized once via httpClientOnce.
var (
	httpClient     *retryablehttp.Client
	httpClientOnce sync.Once
)

// getHTTPClient returns the shared retryable HTTP client, initializing it
// on first call.
func getHTTPClient() *retryablehttp.Client {
	httpClientOnce.Do(func() {
		httpClient = retryablehttp.NewClient()
		httpClient.RetryMax = 2
		httpClient.RetryWaitMin = 200 * time.Millisecond
		httpClient.RetryWaitMax = time.Second
		httpClient.Logger = nil // suppress retryablehttp's default logging
	})
	return httpClient
}

// Event is the JSON payload posted to the webhook.
type Event struct {
	// Signal is the observed signal name ("interrupt" or "terminate").
	Signal string `json:"signal"`
	// PID is the daemon's process id.
	PID int `json:"pid"`
	// Hostname is the machine the daemon ran on.
	Hostname string `json:"hostname"`
	// Time is the shutdown time in RFC 3339.
	Time string `json:"time"`
}

// Send posts the shutdown event to url, bounded by timeout across all
// retries. An empty url is a no-op.
func Send(url, signalName string, timeout time.Duration) error {
	if url == "" {
		return nil
	}

	host, _ := os.Hostname()
	body, err := json.Marshal(Event{
		Signal:   signalName,
		PID:      os.Getpid(),
		Hostname: host,
		Time:     time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	req, err := retryablehttp.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := getHTTPClient()
	client.HTTPClient.Timeout = timeout

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("POST %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("POST %s: status %d", url, resp.StatusCode)
	}
	return nil
}

// SendLogged is Send with the failure path folded into a log line, for
// the shutdown sequence where nothing can be done about an error anyway.
func SendLogged(url, signalName string, timeout time.Duration) {
	if url == "" {
		return
	}
	if err := Send(url, signalName, timeout); err != nil {
		slog.Warn("shutdown notification failed", "error", err)
		return
	}
	slog.Info("shutdown notification sent", "url", url)
}
