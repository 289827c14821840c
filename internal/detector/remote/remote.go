// Package remote calls an HTTP inference service that accepts raw image bytes
// and answers with {"detections":[{"label":...,"confidence":...}]}.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/vbonduro/sintaxia/internal/detector"
)

type RemoteDetector struct {
	url    string
	client *http.Client
}

func NewRemoteDetector(url string, timeout time.Duration) *RemoteDetector {
	return &RemoteDetector{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

func (d *RemoteDetector) Detect(ctx context.Context, image []byte) ([]detector.Raw, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, bytes.NewReader(image))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", http.DetectContentType(image))

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call detector: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Error("failed to close detector response body", "error", err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("detector returned status %d: %s", resp.StatusCode, errBody)
	}

	var body struct {
		Detections []detector.Raw `json:"detections"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return body.Detections, nil
}
