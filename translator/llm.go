package translator

import (
	"context"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
)

const defaultOpenAIModel = openai.GPT4oMini

// OpenAIProvider translates through an OpenAI-compatible chat completion API.
type OpenAIProvider struct {
	*BaseProvider
	client *openai.Client
}

// NewOpenAIProvider creates the chat completion engine. APIURL, when set,
// points the client at any OpenAI-compatible server.
func NewOpenAIProvider(base *BaseProvider) (*OpenAIProvider, error) {
	if base.Config.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}
	if base.Config.Model == "" {
		base.Config.Model = defaultOpenAIModel
	}

	cfg := openai.DefaultConfig(base.Config.APIKey)
	if base.Config.APIURL != "" {
		cfg.BaseURL = base.Config.APIURL
	}
	cfg.HTTPClient = base.HTTPClient

	return &OpenAIProvider{
		BaseProvider: base,
		client:       openai.NewClientWithConfig(cfg),
	}, nil
}

func (p *OpenAIProvider) GetName() string {
	return "openai"
}

func (p *OpenAIProvider) Translate(ctx context.Context, text, source, target string) (string, error) {
	if cached, ok := p.checkCache(text, source, target); ok {
		return cached, nil
	}

	req := openai.ChatCompletionRequest{
		Model: p.Config.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt(source, target)},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
		Temperature: float32(p.Config.Temperature),
	}

	resp, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("OpenAI API error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("API returned no translation")
	}

	result := strings.TrimSpace(resp.Choices[0].Message.Content)
	if result == "" {
		return "", fmt.Errorf("API returned an empty translation")
	}

	p.saveCache(text, source, target, result)
	return result, nil
}

func systemPrompt(source, target string) string {
	from := "the detected source language"
	if source != "" && source != "auto" {
		from = fmt.Sprintf("language code %q", source)
	}
	return fmt.Sprintf("You are a professional translator. Translate the user's text from %s to language code %q. "+
		"Keep the original meaning, tone and paragraph breaks. Only return the translated text without any explanations.", from, target)
}
