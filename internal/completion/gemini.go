package completion

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/iwvelando/demand-dashboard/pkg/constants"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// GeminiConfig configures the Gemini client.
type GeminiConfig struct {
	APIKey string
	Model  string
}

// Gemini completes conversations with Google's generative language API.
// A client is opened per call.
type Gemini struct {
	cfg    GeminiConfig
	logger *zap.Logger
}

// Verify interface compliance
var _ Completer = (*Gemini)(nil)

// NewGemini creates a Gemini completer.
func NewGemini(logger *zap.Logger, cfg GeminiConfig) *Gemini {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Model == "" {
		cfg.Model = constants.DefaultGeminiModel
	}
	return &Gemini{cfg: cfg, logger: logger}
}

// Complete sends the system messages as the system instruction and the rest
// as prompt parts.
func (g *Gemini) Complete(ctx context.Context, messages []Message) Reply {
	if g.cfg.APIKey == "" {
		g.logger.Error("gemini API key is not configured",
			zap.String("op", "completion.Gemini.Complete"),
		)
		return missingKeyReply()
	}

	content, err := g.generate(ctx, messages)
	if err != nil {
		g.logger.Error("gemini request failed",
			zap.String("op", "completion.Gemini.Complete"),
			zap.String("model", g.cfg.Model),
			zap.Error(err),
		)
		return failureReply()
	}
	return textReply(content)
}

func (g *Gemini) generate(ctx context.Context, messages []Message) (string, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(g.cfg.APIKey))
	if err != nil {
		return "", fmt.Errorf("failed to create gemini client: %w", err)
	}
	defer client.Close()

	model := client.GenerativeModel(g.cfg.Model)
	system, prompt := splitMessages(messages)
	if len(system) > 0 {
		model.SystemInstruction = genai.NewUserContent(system...)
	}
	if len(prompt) == 0 {
		return "", nil
	}

	resp, err := model.GenerateContent(ctx, prompt...)
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}
	return candidateText(resp), nil
}

// splitMessages separates system instructions from prompt parts.
func splitMessages(messages []Message) (system, prompt []genai.Part) {
	for _, m := range messages {
		if m.Content == "" {
			continue
		}
		if m.Role == RoleSystem {
			system = append(system, genai.Text(m.Content))
		} else {
			prompt = append(prompt, genai.Text(m.Content))
		}
	}
	return system, prompt
}

// candidateText joins the text parts of the first candidate.
func candidateText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	return b.String()
}
