// Package predict uploads demand data to the prediction backend.
package predict

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/iwvelando/demand-dashboard/internal/forecast"
	"go.uber.org/zap"
)

// PredictPath is the backend route that accepts demand uploads.
const PredictPath = "/api/predict"

// maxResponseBytes bounds how much of a backend reply is read.
const maxResponseBytes = 32 << 20

// StatusError reports a non-2xx reply from the backend.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("backend returned %d", e.StatusCode)
}

// Config configures the prediction client.
type Config struct {
	BaseURL string
	// Timeout of zero leaves the transport default in place.
	Timeout time.Duration
}

// Client posts files to {BaseURL}/api/predict.
type Client struct {
	endpoint string
	client   *http.Client
	logger   *zap.Logger
}

// NewClient creates a prediction client.
func NewClient(logger *zap.Logger, cfg Config) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		endpoint: strings.TrimRight(cfg.BaseURL, "/") + PredictPath,
		client:   &http.Client{Timeout: cfg.Timeout},
		logger:   logger,
	}
}

// Endpoint returns the full prediction URL.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Predict sends the file as the multipart field "file" and decodes the reply.
// The file content is forwarded as-is.
func (c *Client) Predict(ctx context.Context, filename string, file io.Reader) (*forecast.Result, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", filepath.Base(filename))
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, &body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("backend not reachable: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			c.logger.Warn("failed to close prediction response",
				zap.String("op", "predict.Predict"),
				zap.Error(closeErr),
			)
		}
	}()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read prediction response: %w", err)
	}

	c.logger.Debug("prediction backend replied",
		zap.String("op", "predict.Predict"),
		zap.Int("status", resp.StatusCode),
		zap.Int("bytes", len(payload)),
		zap.Duration("duration", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: truncate(string(payload), 512)}
	}

	result, err := forecast.Decode(payload)
	if err != nil {
		return nil, fmt.Errorf("invalid prediction response: %w", err)
	}
	return result, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
