package completion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/iwvelando/demand-dashboard/pkg/constants"
	"go.uber.org/zap"
)

const maxReplyBytes = 4 << 20

// OpenRouterConfig configures the OpenRouter client.
type OpenRouterConfig struct {
	URL      string
	APIKey   string
	Model    string
	SiteURL  string
	AppTitle string
	Timeout  time.Duration
}

// OpenRouter posts chat-completion requests to an OpenAI-compatible endpoint.
type OpenRouter struct {
	cfg    OpenRouterConfig
	client *http.Client
	logger *zap.Logger
}

// Verify interface compliance
var _ Completer = (*OpenRouter)(nil)

type chatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content json.RawMessage `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// NewOpenRouter creates a client, filling unset fields with defaults.
func NewOpenRouter(logger *zap.Logger, cfg OpenRouterConfig) *OpenRouter {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.URL == "" {
		cfg.URL = constants.DefaultCompletionURL
	}
	if cfg.Model == "" {
		cfg.Model = constants.DefaultCompletionModel
	}
	if cfg.AppTitle == "" {
		cfg.AppTitle = constants.DefaultAppTitle
	}
	return &OpenRouter{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

// Complete sends messages and extracts choices[0].message.content.
func (o *OpenRouter) Complete(ctx context.Context, messages []Message) Reply {
	if o.cfg.APIKey == "" {
		o.logger.Error("completion API key is not configured",
			zap.String("op", "completion.OpenRouter.Complete"),
		)
		return missingKeyReply()
	}

	content, err := o.send(ctx, messages)
	if err != nil {
		o.logger.Error("completion request failed",
			zap.String("op", "completion.OpenRouter.Complete"),
			zap.String("model", o.cfg.Model),
			zap.Error(err),
		)
		return failureReply()
	}
	return textReply(content)
}

func (o *OpenRouter) send(ctx context.Context, messages []Message) (string, error) {
	body, err := json.Marshal(chatRequest{Model: o.cfg.Model, Messages: messages})
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.cfg.APIKey)
	if o.cfg.SiteURL != "" {
		req.Header.Set("HTTP-Referer", o.cfg.SiteURL)
	}
	req.Header.Set("X-Title", o.cfg.AppTitle)

	resp, err := o.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxReplyBytes))
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("completion endpoint returned %d", resp.StatusCode)
	}

	var decoded chatResponse
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if len(decoded.Choices) == 0 {
		return "", nil
	}

	// Content that is not a JSON string counts as empty.
	var content string
	if err := json.Unmarshal(decoded.Choices[0].Message.Content, &content); err != nil {
		return "", nil
	}
	return content, nil
}
