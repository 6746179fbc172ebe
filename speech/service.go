package speech

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"babelbeam/lang"
	apperrors "babelbeam/pkg/errors"
)

// Service picks the voice for a language and reports failures as
// *errors.SynthesisError.
type Service struct {
	synth  Synthesizer
	logger *zap.Logger
}

// NewService creates a speech service. logger may be nil.
func NewService(synth Synthesizer, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{synth: synth, logger: logger}
}

// Supports reports whether the engine can speak language code.
func (s *Service) Supports(code string) bool {
	return s.synth.Supports(lang.VoiceFor(code).Lang)
}

// Speak returns MP3 audio of text in language code.
func (s *Service) Speak(ctx context.Context, text, code string) ([]byte, error) {
	voice := lang.VoiceFor(code)
	if !s.Supports(code) {
		return nil, apperrors.NewUnsupportedLanguageError(code)
	}
	if strings.TrimSpace(text) == "" {
		return nil, apperrors.NewSynthesisError("nothing to speak", code, nil)
	}

	audio, err := s.synth.Synthesize(ctx, text, voice)
	if err != nil {
		s.logger.Warn("Speech synthesis failed",
			zap.String("engine", s.synth.Name()),
			zap.String("lang", voice.Lang),
			zap.String("tld", voice.TLD),
			zap.Error(err),
		)
		return nil, apperrors.NewSynthesisError("audio failed", code, err)
	}

	s.logger.Debug("Speech synthesized",
		zap.String("engine", s.synth.Name()),
		zap.String("lang", voice.Lang),
		zap.Int("bytes", len(audio)),
	)
	return audio, nil
}
