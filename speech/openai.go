package speech

import (
	"context"
	"fmt"
	"io"

	"github.com/sashabaranov/go-openai"

	"babelbeam/lang"
)

// OpenAISynthesizer implements Synthesizer for OpenAI TTS
type OpenAISynthesizer struct {
	client *openai.Client
	model  string
	voice  string
}

// NewOpenAISynthesizer creates a new OpenAI TTS engine
func NewOpenAISynthesizer(config *Config) (*OpenAISynthesizer, error) {
	if config.OpenAIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}

	cfg := openai.DefaultConfig(config.OpenAIKey)
	if config.OpenAIBaseURL != "" {
		cfg.BaseURL = config.OpenAIBaseURL
	}

	model := config.OpenAIModel
	if model == "" {
		model = string(openai.TTSModel1)
	}
	voice := config.OpenAIVoice
	if voice == "" {
		voice = string(openai.VoiceAlloy)
	}

	return &OpenAISynthesizer{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
		voice:  voice,
	}, nil
}

func (o *OpenAISynthesizer) Name() string {
	return "openai"
}

// Supports always reports true; the model detects the language from the text.
func (o *OpenAISynthesizer) Supports(code string) bool {
	return code != ""
}

func (o *OpenAISynthesizer) Synthesize(ctx context.Context, text string, _ lang.Voice) ([]byte, error) {
	response, err := o.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(o.model),
		Input:          text,
		Voice:          openai.SpeechVoice(o.voice),
		ResponseFormat: openai.SpeechResponseFormatMp3,
	})
	if err != nil {
		return nil, fmt.Errorf("OpenAI TTS API error: %w", err)
	}
	defer response.Close()

	data, err := io.ReadAll(response)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("OpenAI TTS returned no audio")
	}
	return data, nil
}
