package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/phrazzld/cardforge/internal/domain"
	"github.com/phrazzld/cardforge/internal/generation"
	"github.com/phrazzld/cardforge/internal/reflection"
	"github.com/phrazzld/cardforge/internal/retrieval"
	"github.com/phrazzld/cardforge/internal/topic"
)

// Run modes reported to the Recorder and in Result.
const (
	ModeTraditional = "traditional"
	ModeRAG         = "rag"
)

// DefaultTopK is the number of chunks retrieved per topic.
const DefaultTopK = 3

// SnippetSource produces the web snippet block for a query. It returns ""
// when there is nothing to add.
type SnippetSource interface {
	Snippets(ctx context.Context, query string) string
}

// Dependencies are the collaborators of an Orchestrator. Index, Web, Batch
// and Recorder are optional.
type Dependencies struct {
	Backend  generation.Backend
	Index    retrieval.VectorIndex
	Topics   *topic.Extractor
	Engine   *reflection.Engine
	Batch    *reflection.BatchReflector
	Web      SnippetSource
	Recorder Recorder
	Logger   *slog.Logger
}

// Settings tune a run.
type Settings struct {
	TopK int
	// BatchReflection routes reflective traditional runs through the batch
	// reflector instead of a single batch call.
	BatchReflection bool
}

// Result is the outcome of a completed run.
type Result struct {
	Cards        []domain.Flashcard `json:"cards"`
	Topics       []domain.Topic     `json:"topics,omitempty"`
	FailedTopics int                `json:"failed_topics"`
	Mode         string             `json:"mode"`
}

// Orchestrator runs generation requests. It holds no per-run state and can
// serve runs one after another.
type Orchestrator struct {
	backend  generation.Backend
	index    retrieval.VectorIndex
	topics   *topic.Extractor
	engine   *reflection.Engine
	batch    *reflection.BatchReflector
	web      SnippetSource
	recorder Recorder
	logger   *slog.Logger
	settings Settings
}

// New creates an Orchestrator.
func New(deps Dependencies, settings Settings) (*Orchestrator, error) {
	if deps.Backend == nil {
		return nil, errors.New("backend cannot be nil")
	}
	if deps.Topics == nil {
		return nil, errors.New("topic extractor cannot be nil")
	}
	if deps.Engine == nil {
		return nil, errors.New("reflection engine cannot be nil")
	}
	if deps.Logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if settings.BatchReflection && deps.Batch == nil {
		return nil, errors.New("batch reflection requires a batch reflector")
	}
	if settings.TopK <= 0 {
		settings.TopK = DefaultTopK
	}
	recorder := deps.Recorder
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &Orchestrator{
		backend:  deps.Backend,
		index:    deps.Index,
		topics:   deps.Topics,
		engine:   deps.Engine,
		batch:    deps.Batch,
		web:      deps.Web,
		recorder: recorder,
		logger:   deps.Logger.With("component", "orchestrator"),
		settings: settings,
	}, nil
}

// Run executes req. Cancelling ctx stops the run before its next document
// or topic; calls already in flight are left to finish.
func (o *Orchestrator) Run(ctx context.Context, req domain.GenerationRequest, progress ProgressFunc) (Result, error) {
	if err := req.Validate(); err != nil {
		return Result{}, err
	}

	mode := ModeTraditional
	if req.UseRAG {
		mode = ModeRAG
	}
	o.recorder.RunStarted(mode)

	logger := o.logger.With("subject_id", req.SubjectID.String(), "mode", mode)
	logger.InfoContext(ctx, "generation run started",
		"num_cards", req.NumCards,
		"document_count", len(req.Documents),
		"use_web_search", req.UseWebSearch,
		"use_reflection", req.UseReflection,
		"has_query", req.HasQuery())

	reporter := newProgressReporter(progress)
	var (
		result Result
		err    error
	)
	if req.UseRAG {
		result, err = o.runRAG(ctx, logger, req, reporter)
	} else {
		result, err = o.runTraditional(ctx, logger, req, reporter)
	}
	result.Mode = mode

	if err == nil && len(result.Cards) == 0 {
		err = ErrNoFlashcards
	}
	o.recorder.RunFinished(mode, err)
	if err != nil {
		logger.ErrorContext(ctx, "generation run failed", "error", err)
		return result, err
	}

	o.recorder.CardsProduced(len(result.Cards))
	reporter.report(100, fmt.Sprintf("Generated %d flashcards", len(result.Cards)))
	logger.InfoContext(ctx, "generation run completed",
		"card_count", len(result.Cards),
		"failed_topics", result.FailedTopics)
	return result, nil
}

func (o *Orchestrator) runTraditional(
	ctx context.Context,
	logger *slog.Logger,
	req domain.GenerationRequest,
	reporter *progressReporter,
) (Result, error) {
	reporter.report(5, "Preparing content")

	content, grounded := traditionalContent(req)
	if req.UseWebSearch && o.web != nil {
		reporter.report(15, "Searching the web")
		if block := o.web.Snippets(ctx, webQuery(req)); block != "" {
			content = content + "\n\n" + block
		}
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	useExternalKnowledge := !grounded || req.UseWebSearch

	if req.UseReflection && o.settings.BatchReflection {
		reporter.report(30, "Generating and reviewing flashcards")
		outcome, err := o.batch.Run(ctx, content, req.NumCards, useExternalKnowledge)
		if err != nil {
			return Result{}, err
		}
		o.recorder.ReflectionIterations(outcome.Iterations)
		logger.InfoContext(ctx, "batch reflection finished",
			"iterations", outcome.Iterations,
			"reason", string(outcome.Reason),
			"quality_score", outcome.Report.QualityScore)
		return Result{Cards: outcome.Cards}, nil
	}

	reporter.report(30, "Generating flashcards")
	cards, err := o.backend.GenerateFlashcardBatch(ctx, content, req.NumCards, useExternalKnowledge)
	if err != nil {
		return Result{}, err
	}
	return Result{Cards: cards}, nil
}

func (o *Orchestrator) runRAG(
	ctx context.Context,
	logger *slog.Logger,
	req domain.GenerationRequest,
	reporter *progressReporter,
) (Result, error) {
	if o.index == nil {
		return Result{}, ErrRetrievalUnavailable
	}

	reporter.report(0, "Preparing knowledge base")
	col, err := o.index.CreateOrGetCollection(ctx, req.SubjectID, req.SubjectName)
	if err != nil {
		return Result{}, fmt.Errorf("failed to open collection: %w", err)
	}

	if err := o.indexDocuments(ctx, logger, col, req.Documents, reporter); err != nil {
		return Result{}, err
	}

	reporter.report(30, "Extracting topics")
	topics, err := o.extractTopics(ctx, col, req)
	if err != nil {
		return Result{}, err
	}
	if len(topics) > req.NumCards {
		topics = topics[:req.NumCards]
	}

	var snippets string
	if req.UseWebSearch && o.web != nil {
		reporter.report(35, "Searching the web")
		snippets = o.web.Snippets(ctx, webQuery(req))
	}

	result := Result{Topics: topics, Cards: make([]domain.Flashcard, 0, req.NumCards)}
	for i, t := range topics {
		if len(result.Cards) >= req.NumCards {
			break
		}
		if err := ctx.Err(); err != nil {
			return result, err
		}

		reporter.report(scale(40, 100, i, len(topics)),
			fmt.Sprintf("Analyzing topic %d/%d: %s", i+1, len(topics), t))

		card, err := o.processTopic(ctx, col, t, req, snippets)
		if err != nil {
			if errors.Is(err, retrieval.ErrConnectivity) {
				return result, err
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return result, ctxErr
			}
			result.FailedTopics++
			o.recorder.TopicFailed()
			logger.WarnContext(ctx, "skipping topic", "topic", string(t), "error", err)
			continue
		}
		result.Cards = append(result.Cards, card)
	}
	if err := ctx.Err(); err != nil {
		return result, err
	}

	return result, nil
}

func (o *Orchestrator) indexDocuments(
	ctx context.Context,
	logger *slog.Logger,
	col retrieval.Collection,
	docs []domain.Document,
	reporter *progressReporter,
) error {
	for i, doc := range docs {
		if err := ctx.Err(); err != nil {
			return err
		}
		name := doc.Name
		if name == "" {
			name = doc.ID
		}
		reporter.report(scale(5, 30, i, len(docs)), fmt.Sprintf("Indexing %s (%d/%d)", name, i+1, len(docs)))

		indexed, err := o.index.IsIndexed(ctx, col, doc.ID)
		if err != nil {
			return fmt.Errorf("failed to check index for %s: %w", doc.ID, err)
		}
		if indexed {
			logger.DebugContext(ctx, "document already indexed", "document_id", doc.ID)
			continue
		}

		if err := o.index.Index(ctx, col, doc.ID, name, doc.Content); err != nil {
			if errors.Is(err, retrieval.ErrConnectivity) {
				return err
			}
			logger.WarnContext(ctx, "failed to index document, skipping",
				"document_id", doc.ID,
				"error", err)
		}
	}
	return nil
}

func (o *Orchestrator) extractTopics(
	ctx context.Context,
	col retrieval.Collection,
	req domain.GenerationRequest,
) ([]domain.Topic, error) {
	if req.HasQuery() {
		return o.topics.Extract(ctx, []string{strings.TrimSpace(req.UserQuery)}, req.NumCards, topic.QueryDriven), nil
	}

	texts, err := o.index.AllChunkTexts(ctx, col)
	if err != nil {
		return nil, fmt.Errorf("failed to read indexed chunks: %w", err)
	}
	return o.topics.Extract(ctx, texts, req.NumCards, topic.CorpusDriven), nil
}

func (o *Orchestrator) processTopic(
	ctx context.Context,
	col retrieval.Collection,
	t domain.Topic,
	req domain.GenerationRequest,
	snippets string,
) (domain.Flashcard, error) {
	results, err := o.index.Search(ctx, col, SearchQuery(t, req.UserQuery), o.settings.TopK)
	if err != nil {
		return domain.Flashcard{}, &TopicError{Topic: t, Err: err}
	}

	parts := make([]string, 0, len(results)+1)
	for _, r := range results {
		parts = append(parts, r.Content)
	}
	if snippets != "" {
		parts = append(parts, snippets)
	}
	source := strings.Join(parts, "\n\n")

	var outcome reflection.Outcome
	if req.UseReflection {
		outcome, err = o.engine.Reflect(ctx, t, source)
		if err != nil {
			return domain.Flashcard{}, err
		}
		o.recorder.ReflectionIterations(outcome.Iterations)
	} else {
		outcome, err = o.engine.Draft(ctx, t, source)
		if err != nil {
			return domain.Flashcard{}, err
		}
	}

	if err := outcome.Card.Validate(); err != nil {
		return domain.Flashcard{}, &TopicError{Topic: t, Err: err}
	}
	return outcome.Card, nil
}

// SearchQuery combines a topic with the user's question so retrieval
// favours chunks relevant to both.
func SearchQuery(t domain.Topic, userQuery string) string {
	q := strings.TrimSpace(userQuery)
	if q == "" {
		return string(t)
	}
	return string(t) + " " + q
}

// webQuery is the query used for web enrichment: the user's own question
// when present, otherwise the subject name.
func webQuery(req domain.GenerationRequest) string {
	if req.HasQuery() {
		return strings.TrimSpace(req.UserQuery)
	}
	return req.SubjectName
}

// traditionalContent concatenates the documents. Without documents the
// user's question becomes the content and the model must rely on its own
// knowledge, which the second result reports as false.
func traditionalContent(req domain.GenerationRequest) (string, bool) {
	parts := make([]string, 0, len(req.Documents))
	for _, doc := range req.Documents {
		if c := strings.TrimSpace(doc.Content); c != "" {
			parts = append(parts, c)
		}
	}
	if len(parts) > 0 {
		return strings.Join(parts, "\n\n"), true
	}

	var sb strings.Builder
	if req.SubjectName != "" {
		fmt.Fprintf(&sb, "Subject: %s\n", req.SubjectName)
	}
	fmt.Fprintf(&sb, "Question: %s", strings.TrimSpace(req.UserQuery))
	return sb.String(), false
}
