// Package main implements flashgen, a command that generates flashcards
// from local documents in one shot and prints them as JSON.
//
// Usage:
//
//	flashgen [options] <file>...
//
// Configuration is read the same way as the server's (CARDFORGE_*
// environment variables, config.yaml, .env). Progress and logs go to
// stderr; the result goes to stdout or the -o file.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/phrazzld/cardforge/internal/config"
	"github.com/phrazzld/cardforge/internal/domain"
	"github.com/phrazzld/cardforge/internal/orchestrator"
	"github.com/phrazzld/cardforge/internal/pipeline"
	"github.com/phrazzld/cardforge/internal/platform/logger"
	"github.com/phrazzld/cardforge/internal/task"
)

// Exit codes.
const (
	exitOK        = 0
	exitFailure   = 1
	exitUsage     = 2
	exitCancelled = 130
)

type options struct {
	subject       string
	numCards      int
	useRAG        bool
	useReflection bool
	useWeb        bool
	query         string
	output        string
	files         []string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	opts, err := parseOptions(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitUsage
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "Error loading configuration: %v\n", err)
		return exitFailure
	}
	log := logger.SetupWriter(stderr, cfg.Server)

	docs, err := loadDocuments(opts.files)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitFailure
	}

	p, err := pipeline.Build(ctx, cfg, log, nil)
	if err != nil {
		fmt.Fprintf(stderr, "Error initializing pipeline: %v\n", err)
		return exitFailure
	}

	req := domain.GenerationRequest{
		SubjectID:     uuid.New(),
		SubjectName:   opts.subject,
		Documents:     docs,
		NumCards:      opts.numCards,
		UseWebSearch:  opts.useWeb,
		UseRAG:        opts.useRAG,
		UseReflection: opts.useReflection,
		UserQuery:     opts.query,
	}

	result, err := generate(ctx, p.Orchestrator, req, log, stderr)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			fmt.Fprintln(stderr, "Generation cancelled")
			return exitCancelled
		}
		fmt.Fprintf(stderr, "Generation failed: %s\n", orchestrator.UserMessage(err))
		return exitFailure
	}

	if err := writeResult(opts.output, stdout, result); err != nil {
		fmt.Fprintf(stderr, "Error writing result: %v\n", err)
		return exitFailure
	}
	return exitOK
}

func parseOptions(args []string, stderr io.Writer) (options, error) {
	var opts options
	fs := flag.NewFlagSet("flashgen", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.subject, "subject", "", "subject name (required)")
	fs.IntVar(&opts.numCards, "n", 10, "number of flashcards to generate")
	fs.BoolVar(&opts.useRAG, "rag", false, "extract topics and generate per topic from retrieved chunks")
	fs.BoolVar(&opts.useReflection, "reflect", false, "review and improve generated cards")
	fs.BoolVar(&opts.useWeb, "web", false, "enrich content with web search snippets")
	fs.StringVar(&opts.query, "query", "", "focus the generation on this query")
	fs.StringVar(&opts.output, "o", "", "write the result to this file instead of stdout")
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: flashgen [options] <file>...\n\nOptions:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	opts.files = fs.Args()

	if strings.TrimSpace(opts.subject) == "" {
		return options{}, errors.New("-subject is required")
	}
	if opts.numCards <= 0 {
		return options{}, fmt.Errorf("-n must be positive, got %d", opts.numCards)
	}
	if len(opts.files) == 0 && strings.TrimSpace(opts.query) == "" {
		return options{}, errors.New("at least one file or a -query is required")
	}
	return opts, nil
}

// loadDocuments reads each file as plain text.
func loadDocuments(paths []string) ([]domain.Document, error) {
	docs := make([]domain.Document, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		if strings.TrimSpace(string(data)) == "" {
			return nil, fmt.Errorf("document %s is empty", path)
		}
		docs = append(docs, domain.Document{
			ID:      path,
			Name:    filepath.Base(path),
			Content: string(data),
		})
	}
	return docs, nil
}

// generate runs req as a generation task and prints its progress messages
// to progressOut. Cancelling ctx cancels the task.
func generate(
	ctx context.Context,
	gen task.Generator,
	req domain.GenerationRequest,
	log *slog.Logger,
	progressOut io.Writer,
) (orchestrator.Result, error) {
	t, err := task.NewGenerationTask(uuid.New(), req, gen, nil, log, task.DefaultMessageBuffer)
	if err != nil {
		return orchestrator.Result{}, err
	}

	go func() {
		_ = t.Execute(context.Background())
	}()

	messages := t.Messages()
	for {
		select {
		case <-ctx.Done():
			t.Cancel()
			// Keep draining so the final message is observed.
			ctx = context.Background()
		case msg, ok := <-messages:
			if !ok {
				return orchestrator.Result{}, errors.New("generation task ended without a result")
			}
			switch msg.Kind {
			case task.MessageProgress:
				fmt.Fprintf(progressOut, "[%3d%%] %s\n", msg.Progress.Percent, msg.Progress.Status)
			case task.MessageResult:
				return *msg.Result, nil
			case task.MessageError:
				return orchestrator.Result{}, msg.Err
			}
		}
	}
}

func writeResult(path string, stdout io.Writer, result orchestrator.Result) error {
	if path == "" {
		return encodeResult(stdout, result)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := encodeResult(f, result); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func encodeResult(w io.Writer, result orchestrator.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
