// Package httpx holds the request plumbing shared by the HTTP speech providers.
package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Loggableim/pupcidslittletiktokhelper-sub011/internal/usecase/tts/engine"
)

const (
	DefaultTimeout = 30 * time.Second
	maxErrorBody   = 512
	maxAudioBytes  = 16 << 20
)

func DefaultClient() *http.Client {
	return &http.Client{Timeout: DefaultTimeout}
}

// PostJSON sends body as JSON and returns the raw response body. Non-2xx
// answers become *engine.StatusError.
func PostJSON(ctx context.Context, client *http.Client, engineID, url string, headers map[string]string, body any) ([]byte, string, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, "", fmt.Errorf("%s: encode request: %w", engineID, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, "", fmt.Errorf("%s: build request: %w", engineID, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Mozilla/5.0")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("%s: %w", engineID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, "", &engine.StatusError{Engine: engineID, StatusCode: resp.StatusCode, Body: string(msg)}
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxAudioBytes))
	if err != nil {
		return nil, "", fmt.Errorf("%s: read response: %w", engineID, err)
	}
	return data, resp.Header.Get("Content-Type"), nil
}
