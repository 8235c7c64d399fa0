package topic

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/phrazzld/cardforge/internal/domain"
	"github.com/phrazzld/cardforge/internal/generation"
	"github.com/phrazzld/cardforge/internal/llmjson"
)

// Mode selects how topics are derived.
type Mode int

const (
	// CorpusDriven mines a sample of document chunks for dominant topics.
	CorpusDriven Mode = iota
	// QueryDriven decomposes a single user query into sub-topics.
	QueryDriven
)

// DefaultSampleChunks is how many leading chunks corpus mode reads.
const DefaultSampleChunks = 10

// Extractor derives topics with a language model.
type Extractor struct {
	completer    generation.Completer
	prompts      *generation.Prompts
	retry        generation.RetryPolicy
	logger       *slog.Logger
	sampleChunks int
}

// NewExtractor creates an Extractor. A non-positive sampleChunks uses
// DefaultSampleChunks.
func NewExtractor(
	completer generation.Completer,
	prompts *generation.Prompts,
	retry generation.RetryPolicy,
	logger *slog.Logger,
	sampleChunks int,
) (*Extractor, error) {
	if completer == nil {
		return nil, errors.New("completer cannot be nil")
	}
	if prompts == nil {
		return nil, errors.New("prompts cannot be nil")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if sampleChunks <= 0 {
		sampleChunks = DefaultSampleChunks
	}
	return &Extractor{
		completer:    completer,
		prompts:      prompts,
		retry:        retry,
		logger:       logger.With("component", "topic_extractor"),
		sampleChunks: sampleChunks,
	}, nil
}

// Extract returns between 1 and numTopics topics. In QueryDriven mode
// chunks holds the user query as its only element.
func (e *Extractor) Extract(ctx context.Context, chunks []string, numTopics int, mode Mode) []domain.Topic {
	if numTopics <= 0 {
		numTopics = 1
	}

	prompt, err := e.prompt(chunks, numTopics, mode)
	if err != nil {
		e.logger.WarnContext(ctx, "topic extraction skipped, using placeholders", "error", err)
		return Placeholders(numTopics)
	}

	text, err := e.retry.Complete(ctx, e.logger, e.completer, prompt)
	if err != nil {
		e.logger.WarnContext(ctx, "topic extraction failed, using placeholders", "error", err)
		return Placeholders(numTopics)
	}

	topics, err := ParseTopics(text, numTopics)
	if err != nil {
		e.logger.WarnContext(ctx, "topic response unusable, using placeholders",
			"error", err,
			"response_length", len(text))
		return Placeholders(numTopics)
	}

	e.logger.InfoContext(ctx, "extracted topics",
		"mode", mode.String(),
		"topic_count", len(topics))
	return topics
}

func (e *Extractor) prompt(chunks []string, numTopics int, mode Mode) (string, error) {
	if mode == QueryDriven {
		if len(chunks) == 0 || strings.TrimSpace(chunks[0]) == "" {
			return "", errors.New("query mode requires a non-empty query")
		}
		return e.prompts.QueryTopics(strings.TrimSpace(chunks[0]), numTopics)
	}

	sample := make([]string, 0, e.sampleChunks)
	for _, chunk := range chunks {
		if len(sample) == e.sampleChunks {
			break
		}
		if c := strings.TrimSpace(chunk); c != "" {
			sample = append(sample, c)
		}
	}
	if len(sample) == 0 {
		return "", errors.New("no chunk text to sample")
	}
	return e.prompts.CorpusTopics(strings.Join(sample, "\n\n"), numTopics)
}

// ParseTopics extracts up to numTopics distinct non-blank strings from a
// model response holding a JSON array.
func ParseTopics(text string, numTopics int) ([]domain.Topic, error) {
	arr, err := llmjson.DecodeArray(text, llmjson.NonEmptyStrings)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", generation.ErrParse, err)
	}

	seen := make(map[string]bool)
	topics := make([]domain.Topic, 0, numTopics)
	for _, el := range arr {
		if len(topics) == numTopics {
			break
		}
		s, ok := el.(string)
		if !ok {
			continue
		}
		s = strings.TrimSpace(s)
		key := strings.ToLower(s)
		if s == "" || seen[key] {
			continue
		}
		seen[key] = true
		topics = append(topics, domain.Topic(s))
	}

	if len(topics) == 0 {
		return nil, fmt.Errorf("%w: empty topic list", generation.ErrParse)
	}
	return topics, nil
}

// Placeholders returns "Topic 1" to "Topic n".
func Placeholders(n int) []domain.Topic {
	topics := make([]domain.Topic, n)
	for i := range topics {
		topics[i] = domain.Topic(fmt.Sprintf("Topic %d", i+1))
	}
	return topics
}

// String returns the log name of the mode.
func (m Mode) String() string {
	if m == QueryDriven {
		return "query"
	}
	return "corpus"
}
