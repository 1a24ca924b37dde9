package syncer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hylla/tavla/internal/app"
)

// maxResponseBytes bounds the acknowledgement body read from the remote side.
const maxResponseBytes = 8 << 20

// HTTP posts snapshots as JSON to a remote endpoint.
type HTTP struct {
	endpoint string
	client   *http.Client
}

// NewHTTP constructs an HTTP syncer. A nil client uses one with timeout.
func NewHTTP(endpoint string, client *http.Client, timeout time.Duration) (*HTTP, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return nil, errors.New("sync endpoint is required")
	}
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	return &HTTP{endpoint: endpoint, client: client}, nil
}

// Push sends snap and decodes the echoed snapshot. An empty 2xx body
// acknowledges snap as sent.
func (h *HTTP) Push(ctx context.Context, snap app.Snapshot) (app.Snapshot, error) {
	body, err := json.Marshal(snap)
	if err != nil {
		return app.Snapshot{}, fmt.Errorf("encode sync snapshot: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.endpoint, bytes.NewReader(body))
	if err != nil {
		return app.Snapshot{}, fmt.Errorf("build sync request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return app.Snapshot{}, fmt.Errorf("sync request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return app.Snapshot{}, fmt.Errorf("read sync response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return app.Snapshot{}, fmt.Errorf("sync endpoint returned %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return snap, nil
	}
	var ack app.Snapshot
	if err := json.Unmarshal(raw, &ack); err != nil {
		return app.Snapshot{}, fmt.Errorf("decode sync response: %w", err)
	}
	return ack, nil
}
