// Package completion talks to chat-completion providers. Every call yields a
// displayable string: failures are turned into fixed placeholder replies
// instead of errors.
package completion

import (
	"context"
	"strings"
)

// Placeholder replies shown when no real completion is available.
const (
	PlaceholderMissingKey = "Missing API key configuration."
	PlaceholderEmpty      = "The AI went too deep and forgot what it was saying. Try again!"
	PlaceholderFailure    = "The AI exploded in a cloud of sarcasm. Try again!"
)

// Chat roles.
const (
	RoleSystem = "system"
	RoleUser   = "user"
)

// AnalystPrompt frames every request sent on behalf of the dashboard.
const AnalystPrompt = "Act as an expert forecast analyst with experience in data-driven market prediction. " +
	"Analyze the following data and provide insights, trends and future projections with reasoning."

// Message is one chat turn sent to the provider.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Reply is the outcome of a completion. OK is false when Text is a
// placeholder.
type Reply struct {
	OK   bool
	Text string
}

// Completer sends a conversation and returns the model reply. Implementations
// never return errors; failures surface as placeholder replies.
type Completer interface {
	Complete(ctx context.Context, messages []Message) Reply
}

// AnalystMessages wraps topic in the analyst system and user prompts.
func AnalystMessages(topic string) []Message {
	return []Message{
		{Role: RoleSystem, Content: AnalystPrompt},
		{Role: RoleUser, Content: AnalystPrompt + " Given inputs: " + topic},
	}
}

// Analyst asks c to analyze topic and returns the reply text.
func Analyst(ctx context.Context, c Completer, topic string) string {
	return c.Complete(ctx, AnalystMessages(topic)).Text
}

// textReply maps raw model output onto the reply contract.
func textReply(content string) Reply {
	content = strings.TrimSpace(content)
	if content == "" {
		return Reply{Text: PlaceholderEmpty}
	}
	return Reply{OK: true, Text: content}
}

func failureReply() Reply {
	return Reply{Text: PlaceholderFailure}
}

func missingKeyReply() Reply {
	return Reply{Text: PlaceholderMissingKey}
}
