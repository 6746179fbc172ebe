package translator

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	apperrors "babelbeam/pkg/errors"
)

// Chunk budgets of the two engine passes, in characters.
const (
	PrimaryMaxLen  = 3000
	FallbackMaxLen = 800
)

// ChunkSeparator joins translated chunks.
const ChunkSeparator = "\n\n"

// Result outcome of TranslateAll
type Result struct {
	Text         string
	Engine       string
	Chunks       int
	SameLanguage bool
	UsedFallback bool
	// PrimaryErr is the cause of the primary pass failure when the fallback answered.
	PrimaryErr error
}

// Orchestrator translates text chunk by chunk with a primary engine and an
// optional fallback engine. Each pass is all-or-nothing: one failed chunk
// abandons the engine for the whole request.
type Orchestrator struct {
	primary        *TranslatorClient
	fallback       *TranslatorClient
	primaryMaxLen  int
	fallbackMaxLen int
	logger         *zap.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithMaxLengths overrides the chunk budgets. Non-positive values keep the defaults.
func WithMaxLengths(primary, fallback int) Option {
	return func(o *Orchestrator) {
		if primary > 0 {
			o.primaryMaxLen = primary
		}
		if fallback > 0 {
			o.fallbackMaxLen = fallback
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// NewOrchestrator creates an orchestrator. fallback may be nil.
func NewOrchestrator(primary, fallback *TranslatorClient, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		primary:        primary,
		fallback:       fallback,
		primaryMaxLen:  PrimaryMaxLen,
		fallbackMaxLen: FallbackMaxLen,
		logger:         zap.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// TranslateAll normalizes text and translates it from source to target.
func (o *Orchestrator) TranslateAll(ctx context.Context, text, source, target string, allowFallback bool) (*Result, error) {
	clean := Normalize(text)
	if clean == "" {
		return nil, apperrors.NewValidationError("Please enter some text first.", "text", text)
	}

	if source == target {
		return &Result{Text: clean, SameLanguage: true}, nil
	}

	translated, chunks, err := o.runPass(ctx, o.primary, clean, o.primaryMaxLen, source, target)
	if err == nil {
		return &Result{Text: translated, Engine: o.primary.Name(), Chunks: chunks}, nil
	}

	primaryErr := err
	o.logger.Warn("Primary translation pass failed",
		zap.String("engine", o.primary.Name()),
		zap.String("source", source),
		zap.String("target", target),
		zap.Error(primaryErr),
	)

	if ctx.Err() != nil {
		return nil, apperrors.NewTranslationError("Translation was cancelled", o.primary.Name(), failedChunk(primaryErr), primaryErr)
	}

	if o.fallback == nil {
		msg := fmt.Sprintf("%s translation failed and no backup translator is configured. Please try again later.", displayName(o.primary.Name()))
		return nil, apperrors.NewTranslationError(msg, o.primary.Name(), failedChunk(primaryErr), primaryErr)
	}
	if !allowFallback {
		msg := fmt.Sprintf("%s translation failed. Enable backup translator and try again.", displayName(o.primary.Name()))
		return nil, apperrors.NewTranslationError(msg, o.primary.Name(), failedChunk(primaryErr), primaryErr)
	}

	// The fallback engine has its own auto-detection, so "auto" is passed as is.
	translated, chunks, err = o.runPass(ctx, o.fallback, clean, o.fallbackMaxLen, source, target)
	if err != nil {
		o.logger.Error("Fallback translation pass failed",
			zap.String("engine", o.fallback.Name()),
			zap.Error(err),
		)
		return nil, apperrors.NewTranslationError("Translation failed: "+rootCause(err).Error(), o.fallback.Name(), failedChunk(err), err)
	}

	return &Result{
		Text:         translated,
		Engine:       o.fallback.Name(),
		Chunks:       chunks,
		UsedFallback: true,
		PrimaryErr:   primaryErr,
	}, nil
}

type chunkError struct {
	index int
	err   error
}

func (e *chunkError) Error() string {
	return fmt.Sprintf("chunk %d: %v", e.index+1, e.err)
}

func (e *chunkError) Unwrap() error {
	return e.err
}

func failedChunk(err error) int {
	if ce, ok := err.(*chunkError); ok {
		return ce.index
	}
	return -1
}

// runPass translates every chunk of text with client, in order.
func (o *Orchestrator) runPass(ctx context.Context, client *TranslatorClient, text string, maxLen int, source, target string) (string, int, error) {
	var translated []string
	for chunk := range Split(text, maxLen) {
		o.logger.Debug("Translating chunk",
			zap.String("engine", client.Name()),
			zap.Int("chunk", chunk.Index+1),
			zap.Int("chars", len([]rune(chunk.Text))),
		)

		result, err := client.Translate(ctx, chunk.Text, source, target)
		if err != nil {
			return "", len(translated), &chunkError{index: chunk.Index, err: err}
		}
		translated = append(translated, result)
	}
	return strings.Join(translated, ChunkSeparator), len(translated), nil
}

// rootCause returns the innermost wrapped error, which carries the engine's own message.
func rootCause(err error) error {
	for {
		next := stderrors.Unwrap(err)
		if next == nil {
			return err
		}
		err = next
	}
}

func displayName(engine string) string {
	switch ProviderType(engine) {
	case ProviderGoogle:
		return "Google"
	case ProviderMyMemory:
		return "MyMemory"
	case ProviderLibreTranslate:
		return "LibreTranslate"
	case ProviderOpenAI:
		return "OpenAI"
	}
	return engine
}
