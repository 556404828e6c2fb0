// Package service implements the editorial question answering pipeline.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knoguchi/editorialbot/internal/answer"
	"github.com/knoguchi/editorialbot/internal/corpus"
	"github.com/knoguchi/editorialbot/internal/llm"
	"github.com/knoguchi/editorialbot/internal/ranker"
)

var (
	// ErrUpstream means the language model call failed. The formatter was
	// not run.
	ErrUpstream = errors.New("the language model is unavailable, please try again later")

	// ErrInvalidRequest wraps request validation failures.
	ErrInvalidRequest = errors.New("invalid request")
)

// MaxTopK bounds the shortlist size a caller may ask for.
const MaxTopK = 50

// AskRequest is a question to answer from the corpus.
type AskRequest struct {
	Question string `json:"question" validate:"required,max=2000"`
	// TopK overrides the configured shortlist size when positive.
	TopK int `json:"top_k" validate:"gte=0,lte=50"`
}

// RetrieveRequest asks for the shortlist only.
type RetrieveRequest struct {
	Question string `json:"question" validate:"required,max=2000"`
	TopK     int    `json:"top_k" validate:"gte=0,lte=50"`
}

// Source is a shortlisted editorial.
type Source struct {
	Position int    `json:"position"`
	Title    string `json:"title"`
	URL      string `json:"url"`
	// Overlap is the number of distinct question words the editorial shares.
	Overlap int `json:"overlap"`
}

// Answer is a formatted reply with the editorials it was built from.
type Answer struct {
	Text           string
	Sources        []Source
	Model          string
	RetrievalTime  time.Duration
	GenerationTime time.Duration
	// Unformatted is set when no text could be extracted from the reply and
	// Text holds answer.Unavailable.
	Unformatted bool
}

// CorpusProvider returns the loaded corpus.
type CorpusProvider interface {
	Get(ctx context.Context) (*corpus.Corpus, error)
}

// QAService answers questions about the editorial corpus.
type QAService struct {
	corpus    CorpusProvider
	strategy  ranker.Strategy
	completer llm.Completer
	generate  llm.Options
	topK      int
	extractor answer.Extractor
	validate  *validator.Validate
	logger    *slog.Logger
}

// QAServiceOption is a functional option for configuring QAService.
type QAServiceOption func(*QAService)

// WithTopK sets the default shortlist size.
func WithTopK(k int) QAServiceOption {
	return func(s *QAService) {
		if k > 0 {
			s.topK = min(k, MaxTopK)
		}
	}
}

// WithGenerateOptions sets the options passed to every completion call.
func WithGenerateOptions(opts llm.Options) QAServiceOption {
	return func(s *QAService) {
		s.generate = opts
	}
}

// WithExtractor replaces the default text extractor.
func WithExtractor(e answer.Extractor) QAServiceOption {
	return func(s *QAService) {
		s.extractor = e
	}
}

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) QAServiceOption {
	return func(s *QAService) {
		s.logger = logger
	}
}

// NewQAService creates a new QAService. A nil strategy means keyword ranking.
func NewQAService(provider CorpusProvider, strategy ranker.Strategy, completer llm.Completer, opts ...QAServiceOption) *QAService {
	if strategy == nil {
		strategy = ranker.Keyword{}
	}
	s := &QAService{
		corpus:    provider,
		strategy:  strategy,
		completer: completer,
		generate:  llm.Options{MaxTokens: 1000, Temperature: llm.Temperature(0.5)},
		topK:      5,
		validate:  validator.New(),
		logger:    slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Ask shortlists editorials for the question, asks the model and formats
// its reply.
func (s *QAService) Ask(ctx context.Context, req AskRequest) (*Answer, error) {
	req.Question = strings.TrimSpace(req.Question)
	if err := s.validate.Struct(req); err != nil {
		return nil, invalid(err)
	}

	retrievalStart := time.Now()
	shortlist, err := s.shortlist(ctx, req.Question, req.TopK)
	if err != nil {
		return nil, err
	}
	retrievalTime := time.Since(retrievalStart)

	generationStart := time.Now()
	prompt := BuildPrompt(shortlist, req.Question)
	completion, err := s.completer.Complete(ctx, prompt, s.generate)
	if err != nil {
		s.logger.Error("completion failed", "error", err, "model", s.model())
		return nil, fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	generationTime := time.Since(generationStart)

	text := s.extractor.Extract(completion)
	unformatted := text == answer.Unavailable
	if unformatted {
		s.logger.Warn("no text in completion", "kind", completion.Kind.String(), "model", s.model())
	} else {
		text = answer.Linkify(text)
	}

	s.logger.Debug("answered question",
		"strategy", s.strategy.Name(),
		"sources", len(shortlist),
		"retrieval_ms", retrievalTime.Milliseconds(),
		"generation_ms", generationTime.Milliseconds(),
	)

	return &Answer{
		Text:           text,
		Sources:        sources(req.Question, shortlist),
		Model:          s.model(),
		RetrievalTime:  retrievalTime,
		GenerationTime: generationTime,
		Unformatted:    unformatted,
	}, nil
}

// Retrieve returns the shortlist for a question without calling the model.
func (s *QAService) Retrieve(ctx context.Context, req RetrieveRequest) ([]Source, error) {
	req.Question = strings.TrimSpace(req.Question)
	if err := s.validate.Struct(req); err != nil {
		return nil, invalid(err)
	}

	shortlist, err := s.shortlist(ctx, req.Question, req.TopK)
	if err != nil {
		return nil, err
	}
	return sources(req.Question, shortlist), nil
}

// Ready reports whether the corpus is loaded.
func (s *QAService) Ready(ctx context.Context) error {
	_, err := s.corpus.Get(ctx)
	return err
}

func (s *QAService) shortlist(ctx context.Context, question string, topK int) ([]corpus.Document, error) {
	c, err := s.corpus.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load corpus: %w", err)
	}
	if topK <= 0 {
		topK = s.topK
	}
	return s.strategy.Shortlist(ctx, question, c, topK), nil
}

func (s *QAService) model() string {
	if s.generate.Model != "" {
		return s.generate.Model
	}
	return s.completer.Model()
}

func sources(question string, shortlist []corpus.Document) []Source {
	overlap := make(map[int]int, len(shortlist))
	for _, c := range ranker.Score(question, shortlist) {
		overlap[c.Document.Index] = c.Score
	}

	out := make([]Source, len(shortlist))
	for i, doc := range shortlist {
		out[i] = Source{
			Position: doc.Index,
			Title:    doc.Title,
			URL:      doc.URL,
			Overlap:  overlap[doc.Index],
		}
	}
	return out
}

func invalid(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return fmt.Errorf("%w: %s failed on %s", ErrInvalidRequest, strings.ToLower(fe.Field()), fe.Tag())
	}
	return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
}
