// Package speech turns translated text into MP3 audio.
package speech

import (
	"context"
	"fmt"

	"babelbeam/lang"
)

// Synthesizer defines the interface for text-to-speech engines
type Synthesizer interface {
	// Synthesize returns MP3 audio for text spoken with voice
	Synthesize(ctx context.Context, text string, voice lang.Voice) ([]byte, error)

	// Supports reports whether the engine can speak language code
	Supports(code string) bool

	// Name returns the engine name
	Name() string
}

// Config speech engine configuration
type Config struct {
	Provider string // "google", "openai" or "none"

	GoogleURL string

	OpenAIKey     string
	OpenAIBaseURL string
	OpenAIModel   string // "tts-1", "tts-1-hd" or "gpt-4o-mini-tts"
	OpenAIVoice   string
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		Provider:    "google",
		GoogleURL:   DefaultGoogleTTSURL,
		OpenAIModel: "tts-1",
		OpenAIVoice: "alloy",
	}
}

// NewSynthesizer creates the engine named by config.Provider. It returns nil
// without error when speech is disabled.
func NewSynthesizer(config *Config) (Synthesizer, error) {
	if config == nil {
		config = DefaultConfig()
	}

	switch config.Provider {
	case "google", "":
		return NewGoogleSynthesizer(config.GoogleURL, nil), nil
	case "openai":
		synth, err := NewOpenAISynthesizer(config)
		if err != nil {
			return nil, err
		}
		return synth, nil
	case "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown speech provider: %s", config.Provider)
	}
}
