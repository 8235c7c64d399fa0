package generation

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"text/template"

	"github.com/phrazzld/cardforge/internal/domain"
)

// InsufficientInformation is the phrase a draft answer carries when the
// model declines because the context says nothing about the topic.
const InsufficientInformation = "Insufficient information"

//go:embed prompts/*.tmpl
var promptFS embed.FS

// Prompts renders every prompt the pipeline sends to a backend.
type Prompts struct {
	tmpl *template.Template
}

// LoadPrompts parses the embedded prompt templates.
func LoadPrompts() (*Prompts, error) {
	tmpl, err := template.New("prompts").
		Funcs(template.FuncMap{"inc": func(i int) int { return i + 1 }}).
		ParseFS(promptFS, "prompts/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse prompt templates: %v", ErrInvalidConfig, err)
	}
	return &Prompts{tmpl: tmpl}, nil
}

// BatchPromptData feeds batch.tmpl.
type BatchPromptData struct {
	Content              string
	NumCards             int
	UseExternalKnowledge bool
}

// DraftPromptData feeds draft.tmpl.
type DraftPromptData struct {
	Topic              string
	Context            string
	InsufficientMarker string
}

// CritiquePromptData feeds critique.tmpl.
type CritiquePromptData struct {
	Front   string
	Back    string
	Context string
}

// RefinePromptData feeds refine.tmpl.
type RefinePromptData struct {
	Topic    string
	Front    string
	Back     string
	Critique string
	Context  string
}

// TopicPromptData feeds topics_query.tmpl and topics_corpus.tmpl.
type TopicPromptData struct {
	Query     string
	Sample    string
	NumTopics int
}

// BatchReviewPromptData feeds batch_critique.tmpl and batch_context.tmpl.
type BatchReviewPromptData struct {
	Content  string
	Cards    []domain.Flashcard
	Issues   []string
	Critique string
}

// Batch renders the flashcard batch prompt.
func (p *Prompts) Batch(data BatchPromptData) (string, error) {
	return p.render("batch.tmpl", data)
}

// Draft renders the single-card draft prompt for one topic.
func (p *Prompts) Draft(topic, context string) (string, error) {
	return p.render("draft.tmpl", DraftPromptData{
		Topic:              topic,
		Context:            context,
		InsufficientMarker: InsufficientInformation,
	})
}

// Critique renders the free-text critique prompt.
func (p *Prompts) Critique(card domain.Flashcard, context string) (string, error) {
	return p.render("critique.tmpl", CritiquePromptData{Front: card.Front, Back: card.Back, Context: context})
}

// Refine renders the refinement prompt.
func (p *Prompts) Refine(topic string, card domain.Flashcard, critique, context string) (string, error) {
	return p.render("refine.tmpl", RefinePromptData{
		Topic:    topic,
		Front:    card.Front,
		Back:     card.Back,
		Critique: critique,
		Context:  context,
	})
}

// QueryTopics renders the prompt decomposing a user query into sub-topics.
func (p *Prompts) QueryTopics(query string, numTopics int) (string, error) {
	return p.render("topics_query.tmpl", TopicPromptData{Query: query, NumTopics: numTopics})
}

// CorpusTopics renders the prompt mining a document sample for topics.
func (p *Prompts) CorpusTopics(sample string, numTopics int) (string, error) {
	return p.render("topics_corpus.tmpl", TopicPromptData{Sample: sample, NumTopics: numTopics})
}

// BatchCritique renders the whole-batch critique prompt.
func (p *Prompts) BatchCritique(cards []domain.Flashcard, issues []string) (string, error) {
	return p.render("batch_critique.tmpl", BatchReviewPromptData{Cards: cards, Issues: issues})
}

// BatchContext renders the enriched content used to regenerate a batch.
func (p *Prompts) BatchContext(content string, cards []domain.Flashcard, critique string) (string, error) {
	return p.render("batch_context.tmpl", BatchReviewPromptData{Content: content, Cards: cards, Critique: critique})
}

func (p *Prompts) render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := p.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("failed to execute prompt template %s: %w", name, err)
	}
	return strings.TrimSpace(buf.String()), nil
}
