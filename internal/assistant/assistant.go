// Package assistant builds the recommendation and chat requests sent to the
// completion provider and keeps the chat transcript.
package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/iwvelando/demand-dashboard/internal/completion"
	"github.com/iwvelando/demand-dashboard/internal/store"
	"go.uber.org/zap"
)

// RecommendationPrompt asks for a short inventory recommendation. It does not
// carry the forecast numbers.
const RecommendationPrompt = "Analyze this inventory demand forecast data and provide a concise 1-2 line " +
	"recommendation for inventory management. Focus on key insights and actionable advice."

// NoForecastData replaces the forecast JSON in chat prompts when the cache is
// empty.
const NoForecastData = "No forecast data available"

// ErrEmptyQuestion is returned for blank chat input.
var ErrEmptyQuestion = errors.New("question is empty")

// Introduction is the transcript every chat starts with.
var Introduction = []string{
	"Based on your historical data, I've analyzed demand patterns for the past 4 weeks.",
	"Your current inventory level of 420 units is optimal for the next week. However, I recommend reordering by Thursday to maintain a 95% service level.",
	"Expected demand spike in Week 6 (+5%) suggests increasing buffer stock by 30 units.",
}

// Message is one transcript entry.
type Message struct {
	Text  string    `json:"text"`
	IsBot bool      `json:"isBot"`
	Time  time.Time `json:"time"`
}

// Service answers recommendation and chat requests.
type Service struct {
	completer completion.Completer
	store     store.Store
	logger    *zap.Logger

	mu         sync.Mutex
	transcript []Message
	now        func() time.Time
}

// NewService creates a Service with a freshly seeded transcript.
func NewService(logger *zap.Logger, completer completion.Completer, st store.Store) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		completer: completer,
		store:     st,
		logger:    logger,
		now:       time.Now,
	}
	s.transcript = s.seed()
	return s
}

func (s *Service) seed() []Message {
	now := s.now()
	messages := make([]Message, 0, len(Introduction))
	for _, text := range Introduction {
		messages = append(messages, Message{Text: text, IsBot: true, Time: now})
	}
	return messages
}

// Recommend returns a one or two line recommendation or a placeholder.
func (s *Service) Recommend(ctx context.Context) string {
	reply := s.completer.Complete(ctx, completion.AnalystMessages(RecommendationPrompt))
	if !reply.OK {
		s.logger.Warn("recommendation unavailable",
			zap.String("op", "assistant.Recommend"),
			zap.String("reply", reply.Text),
		)
	}
	return reply.Text
}

// ChatPrompt embeds the cached forecast and the question in one prompt.
func ChatPrompt(forecastJSON, question string) string {
	return "Here is the forecast data: \n" + forecastJSON + "\n\nUser question:\n" + question
}

// Ask sends question together with the current cache contents. The cache is
// read on every call so a newer upload is always reflected.
func (s *Service) Ask(ctx context.Context, question string) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", ErrEmptyQuestion
	}

	s.appendMessage(Message{Text: question, Time: s.now()})

	reply := s.completer.Complete(ctx, completion.AnalystMessages(ChatPrompt(s.forecastJSON(ctx), question)))
	if !reply.OK {
		s.logger.Warn("chat reply unavailable",
			zap.String("op", "assistant.Ask"),
			zap.String("reply", reply.Text),
		)
	}

	s.appendMessage(Message{Text: reply.Text, IsBot: true, Time: s.now()})
	return reply.Text, nil
}

func (s *Service) forecastJSON(ctx context.Context) string {
	result, ok := s.store.Load(ctx)
	if !ok {
		return NoForecastData
	}
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		s.logger.Warn("failed to encode forecast for chat",
			zap.String("op", "assistant.Ask"),
			zap.Error(err),
		)
		return NoForecastData
	}
	return string(data)
}

func (s *Service) appendMessage(m Message) {
	s.mu.Lock()
	s.transcript = append(s.transcript, m)
	s.mu.Unlock()
}

// Transcript returns a copy of the chat history.
func (s *Service) Transcript() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.transcript))
	copy(out, s.transcript)
	return out
}

// Reset restores the introductory transcript.
func (s *Service) Reset() {
	seeded := s.seed()
	s.mu.Lock()
	s.transcript = seeded
	s.mu.Unlock()
}
