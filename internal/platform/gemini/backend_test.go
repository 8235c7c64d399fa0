package gemini

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/phrazzld/cardforge/internal/config"
	"github.com/phrazzld/cardforge/internal/domain"
	"github.com/phrazzld/cardforge/internal/generation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

type fakeModels struct {
	responses []*genai.GenerateContentResponse
	errs      []error
	calls     int
	prompts   []string
	temps     []float32
}

func (f *fakeModels) GenerateContent(
	_ context.Context,
	_ string,
	contents []*genai.Content,
	cfg *genai.GenerateContentConfig,
) (*genai.GenerateContentResponse, error) {
	i := f.calls
	f.calls++
	if len(contents) > 0 && len(contents[0].Parts) > 0 {
		f.prompts = append(f.prompts, contents[0].Parts[0].Text)
	}
	if cfg != nil && cfg.Temperature != nil {
		f.temps = append(f.temps, *cfg.Temperature)
	}
	var err error
	if i < len(f.errs) {
		err = f.errs[i]
	}
	if err != nil {
		return nil, err
	}
	if i < len(f.responses) {
		return f.responses[i], nil
	}
	return nil, errors.New("no scripted response")
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{{Text: text}}},
		}},
	}
}

func testConfig() config.LLMConfig {
	return config.LLMConfig{
		GeminiAPIKey: "test-key",
		ModelName:    "gemini-test",
		MaxRetries:   0,
		Temperature:  0.4,
	}
}

func newTestBackend(t *testing.T, models *fakeModels) *Backend {
	t.Helper()
	prompts, err := generation.LoadPrompts()
	require.NoError(t, err)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	b, err := newBackend(logger, models, testConfig(), prompts, nil)
	require.NoError(t, err)
	return b
}

func TestComplete(t *testing.T) {
	t.Run("returns concatenated text", func(t *testing.T) {
		models := &fakeModels{responses: []*genai.GenerateContentResponse{{
			Candidates: []*genai.Candidate{{
				Content: &genai.Content{Parts: []*genai.Part{{Text: "Hello, "}, {Text: "world"}}},
			}},
		}}}
		b := newTestBackend(t, models)

		text, err := b.Complete(context.Background(), "say hello")

		require.NoError(t, err)
		assert.Equal(t, "Hello, world", text)
		assert.Equal(t, []string{"say hello"}, models.prompts)
		assert.Equal(t, []float32{0.4}, models.temps)
	})

	t.Run("empty prompt", func(t *testing.T) {
		b := newTestBackend(t, &fakeModels{})

		_, err := b.Complete(context.Background(), "   ")

		assert.ErrorIs(t, err, generation.ErrEmptyPrompt)
	})

	t.Run("provider error is transient", func(t *testing.T) {
		models := &fakeModels{errs: []error{errors.New("quota exceeded")}}
		b := newTestBackend(t, models)

		_, err := b.Complete(context.Background(), "prompt")

		assert.ErrorIs(t, err, generation.ErrTransientFailure)
		assert.True(t, generation.IsTransient(err))
	})

	t.Run("safety block", func(t *testing.T) {
		models := &fakeModels{responses: []*genai.GenerateContentResponse{{
			Candidates: []*genai.Candidate{{FinishReason: genai.FinishReasonSafety}},
		}}}
		b := newTestBackend(t, models)

		_, err := b.Complete(context.Background(), "prompt")

		assert.ErrorIs(t, err, generation.ErrContentBlocked)
	})

	t.Run("no candidates", func(t *testing.T) {
		models := &fakeModels{responses: []*genai.GenerateContentResponse{{}}}
		b := newTestBackend(t, models)

		_, err := b.Complete(context.Background(), "prompt")

		assert.ErrorIs(t, err, generation.ErrEmptyResponse)
	})
}

func TestGenerateFlashcardBatch(t *testing.T) {
	models := &fakeModels{responses: []*genai.GenerateContentResponse{
		textResponse("```json\n[{\"question\": \"What is Go?\", \"answer\": \"A language\", \"difficulty\": \"facile\"}]\n```"),
	}}
	b := newTestBackend(t, models)

	cards, err := b.GenerateFlashcardBatch(context.Background(), "Go is a programming language.", 3, false)

	require.NoError(t, err)
	require.Len(t, cards, 1)
	assert.Equal(t, "What is Go?", cards[0].Front)
	assert.Equal(t, "A language", cards[0].Back)
	assert.Equal(t, domain.DifficultyEasy, cards[0].Difficulty)
	assert.Equal(t, "gemini", b.Name())
}

func TestValidateConfig(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	cfg := testConfig()
	cfg.GeminiAPIKey = ""
	assert.ErrorIs(t, validateConfig(context.Background(), logger, cfg), generation.ErrInvalidConfig)

	cfg = testConfig()
	cfg.ModelName = ""
	assert.ErrorIs(t, validateConfig(context.Background(), logger, cfg), generation.ErrInvalidConfig)

	assert.NoError(t, validateConfig(context.Background(), logger, testConfig()))
}

func TestNewBackendRejectsNilClient(t *testing.T) {
	prompts, err := generation.LoadPrompts()
	require.NoError(t, err)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	_, err = newBackend(logger, nil, testConfig(), prompts, nil)

	assert.ErrorIs(t, err, ErrNilClient)
}
