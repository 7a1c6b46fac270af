package assistant

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/iwvelando/demand-dashboard/internal/completion"
	"github.com/iwvelando/demand-dashboard/internal/store"
	"github.com/iwvelando/demand-dashboard/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder is a Completer that remembers what it was sent.
type recorder struct {
	mu    sync.Mutex
	sent  [][]completion.Message
	reply completion.Reply
}

func (r *recorder) Complete(_ context.Context, messages []completion.Message) completion.Reply {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, messages)
	return r.reply
}

func (r *recorder) lastUserContent() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	last := r.sent[len(r.sent)-1]
	return last[len(last)-1].Content
}

func TestRecommend(t *testing.T) {
	rec := &recorder{reply: completion.Reply{OK: true, Text: "Reorder 30 units by Thursday."}}
	s := NewService(nil, rec, store.NewMemoryStore(nil))

	assert.Equal(t, "Reorder 30 units by Thursday.", s.Recommend(context.Background()))
	require.Len(t, rec.sent, 1)
	assert.True(t, strings.HasSuffix(rec.lastUserContent(), "Given inputs: "+RecommendationPrompt))
}

func TestRecommendPlaceholder(t *testing.T) {
	rec := &recorder{reply: completion.Reply{Text: completion.PlaceholderFailure}}
	s := NewService(nil, rec, store.NewMemoryStore(nil))
	assert.Equal(t, completion.PlaceholderFailure, s.Recommend(context.Background()))
}

func TestAskWithoutForecast(t *testing.T) {
	rec := &recorder{reply: completion.Reply{OK: true, Text: "Upload data first."}}
	s := NewService(nil, rec, store.NewMemoryStore(nil))

	reply, err := s.Ask(context.Background(), "  what should I order?  ")
	require.NoError(t, err)
	assert.Equal(t, "Upload data first.", reply)

	prompt := rec.lastUserContent()
	assert.Contains(t, prompt, ChatPrompt(NoForecastData, "what should I order?"))
}

func TestAskReadsCacheEachTime(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore(nil)
	rec := &recorder{reply: completion.Reply{OK: true, Text: "ok"}}
	s := NewService(nil, rec, st)

	_, err := s.Ask(ctx, "first")
	require.NoError(t, err)
	assert.Contains(t, rec.lastUserContent(), NoForecastData)

	require.NoError(t, st.Save(ctx, testutil.SampleResult()))
	_, err = s.Ask(ctx, "second")
	require.NoError(t, err)

	prompt := rec.lastUserContent()
	assert.NotContains(t, prompt, NoForecastData)
	assert.Contains(t, prompt, "Here is the forecast data: \n{\n  \"")
	assert.Contains(t, prompt, `"average_demand": 157.5`)
	assert.True(t, strings.HasSuffix(prompt, "\n\nUser question:\nsecond"))
}

func TestAskEmptyQuestion(t *testing.T) {
	rec := &recorder{}
	s := NewService(nil, rec, store.NewMemoryStore(nil))

	_, err := s.Ask(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrEmptyQuestion)
	assert.Empty(t, rec.sent)
	assert.Len(t, s.Transcript(), len(Introduction))
}

func TestTranscript(t *testing.T) {
	rec := &recorder{reply: completion.Reply{Text: completion.PlaceholderEmpty}}
	s := NewService(nil, rec, store.NewMemoryStore(nil))

	initial := s.Transcript()
	require.Len(t, initial, 3)
	for i, m := range initial {
		assert.True(t, m.IsBot)
		assert.Equal(t, Introduction[i], m.Text)
	}

	_, err := s.Ask(context.Background(), "hello")
	require.NoError(t, err)

	transcript := s.Transcript()
	require.Len(t, transcript, 5)
	assert.Equal(t, Message{Text: "hello"}, Message{Text: transcript[3].Text, IsBot: transcript[3].IsBot})
	assert.True(t, transcript[4].IsBot)
	assert.Equal(t, completion.PlaceholderEmpty, transcript[4].Text)

	transcript[0].Text = "mutated"
	assert.Equal(t, Introduction[0], s.Transcript()[0].Text)

	s.Reset()
	assert.Len(t, s.Transcript(), 3)
}
