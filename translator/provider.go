package translator

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ProviderType translation engine type
type ProviderType string

const (
	ProviderGoogle         ProviderType = "google"
	ProviderMyMemory       ProviderType = "mymemory"
	ProviderLibreTranslate ProviderType = "libretranslate"
	ProviderOpenAI         ProviderType = "openai"
)

// Default endpoints
const (
	DefaultGoogleURL         = "https://translate.googleapis.com/translate_a/single"
	DefaultMyMemoryURL       = "https://api.mymemory.translated.net/get"
	DefaultLibreTranslateURL = "https://libretranslate.com/translate"
)

// Provider is a translation engine. Implementations must be safe for
// sequential reuse; the orchestrator never calls one concurrently.
type Provider interface {
	Translate(ctx context.Context, text, source, target string) (string, error)
	GetName() string
}

// ProviderConfig engine configuration
type ProviderConfig struct {
	Type        ProviderType      `json:"type" mapstructure:"type"`
	APIKey      string            `json:"apiKey" mapstructure:"api_key"`
	APIURL      string            `json:"apiUrl" mapstructure:"api_url"`
	Model       string            `json:"model" mapstructure:"model"`
	Temperature float64           `json:"temperature" mapstructure:"temperature"`
	Timeout     time.Duration     `json:"timeout" mapstructure:"timeout"`
	Extra       map[string]string `json:"extra,omitempty" mapstructure:"extra"`
}

// BaseProvider shared HTTP plumbing and cache access
type BaseProvider struct {
	Config     ProviderConfig
	HTTPClient *http.Client
	Cache      *Cache
}

// NewProvider creates an engine from its configuration. cache may be nil.
func NewProvider(config ProviderConfig, cache *Cache) (Provider, error) {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	base := &BaseProvider{
		Config: config,
		HTTPClient: &http.Client{
			Timeout: timeout,
		},
		Cache: cache,
	}

	switch config.Type {
	case ProviderGoogle:
		if base.Config.APIURL == "" {
			base.Config.APIURL = DefaultGoogleURL
		}
		return &GoogleProvider{BaseProvider: base}, nil
	case ProviderMyMemory:
		if base.Config.APIURL == "" {
			base.Config.APIURL = DefaultMyMemoryURL
		}
		return &MyMemoryProvider{BaseProvider: base}, nil
	case ProviderLibreTranslate:
		if base.Config.APIURL == "" {
			base.Config.APIURL = DefaultLibreTranslateURL
		}
		return &LibreTranslateProvider{BaseProvider: base}, nil
	case ProviderOpenAI:
		return NewOpenAIProvider(base)
	default:
		return nil, fmt.Errorf("unsupported provider type: %q", config.Type)
	}
}

// doRequest executes req and returns the body of a 200 response.
func (b *BaseProvider) doRequest(req *http.Request) ([]byte, error) {
	resp, err := b.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API returned status %d: %s", resp.StatusCode, truncate(string(body), 200))
	}

	return body, nil
}

func (b *BaseProvider) checkCache(text, source, target string) (string, bool) {
	if b.Cache != nil {
		if cached, ok := b.Cache.Get(CacheKey(string(b.Config.Type), text, source, target)); ok {
			return cached, true
		}
	}
	return "", false
}

func (b *BaseProvider) saveCache(text, source, target, result string) {
	if b.Cache != nil {
		// A failed write only costs a future cache miss.
		_ = b.Cache.Set(CacheKey(string(b.Config.Type), text, source, target), result)
	}
}

// GoogleProvider Google Translate public endpoint
type GoogleProvider struct {
	*BaseProvider
}

func (p *GoogleProvider) GetName() string {
	return "google"
}

func (p *GoogleProvider) Translate(ctx context.Context, text, source, target string) (string, error) {
	if cached, ok := p.checkCache(text, source, target); ok {
		return cached, nil
	}

	params := url.Values{}
	params.Set("client", "gtx")
	params.Set("sl", source)
	params.Set("tl", target)
	params.Set("dt", "t")

	form := url.Values{}
	form.Set("q", text)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.Config.APIURL+"?"+params.Encode(), strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded;charset=utf-8")

	body, err := p.doRequest(req)
	if err != nil {
		return "", err
	}

	result, err := parseGoogleResponse(body)
	if err != nil {
		return "", err
	}

	p.saveCache(text, source, target, result)
	return result, nil
}

// parseGoogleResponse joins the translated segments of a translate_a/single
// response: [[["translated","original",...],...],...].
func parseGoogleResponse(body []byte) (string, error) {
	var raw []interface{}
	if err := json.Unmarshal(body, &raw); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	if len(raw) == 0 {
		return "", fmt.Errorf("API returned no translation")
	}

	segments, ok := raw[0].([]interface{})
	if !ok || len(segments) == 0 {
		return "", fmt.Errorf("API returned no translation")
	}

	var sb strings.Builder
	for _, seg := range segments {
		parts, ok := seg.([]interface{})
		if !ok || len(parts) == 0 {
			continue
		}
		if s, ok := parts[0].(string); ok {
			sb.WriteString(s)
		}
	}

	if sb.Len() == 0 {
		return "", fmt.Errorf("API returned no translation")
	}
	return sb.String(), nil
}

// MyMemoryProvider MyMemory translation memory API
type MyMemoryProvider struct {
	*BaseProvider
}

func (p *MyMemoryProvider) GetName() string {
	return "mymemory"
}

func (p *MyMemoryProvider) Translate(ctx context.Context, text, source, target string) (string, error) {
	if cached, ok := p.checkCache(text, source, target); ok {
		return cached, nil
	}

	params := url.Values{}
	params.Set("q", text)
	params.Set("langpair", source+"|"+target)
	if p.Config.APIKey != "" {
		params.Set("key", p.Config.APIKey)
	}
	if email := p.Config.Extra["email"]; email != "" {
		params.Set("de", email)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.Config.APIURL+"?"+params.Encode(), nil)
	if err != nil {
		return "", err
	}

	body, err := p.doRequest(req)
	if err != nil {
		return "", err
	}

	var resp struct {
		ResponseData struct {
			TranslatedText string `json:"translatedText"`
		} `json:"responseData"`
		// MyMemory sends the status as a number or as a string.
		ResponseStatus  interface{} `json:"responseStatus"`
		ResponseDetails string      `json:"responseDetails"`
	}

	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}

	if status := fmt.Sprint(resp.ResponseStatus); status != "200" && status != "<nil>" {
		return "", fmt.Errorf("API error (status %s): %s", status, resp.ResponseDetails)
	}

	result := resp.ResponseData.TranslatedText
	if result == "" {
		return "", fmt.Errorf("API returned no translation")
	}
	if strings.HasPrefix(result, "MYMEMORY WARNING") {
		return "", fmt.Errorf("API quota exceeded: %s", truncate(result, 120))
	}

	p.saveCache(text, source, target, result)
	return result, nil
}

// LibreTranslateProvider LibreTranslate API
type LibreTranslateProvider struct {
	*BaseProvider
}

func (p *LibreTranslateProvider) GetName() string {
	return "libretranslate"
}

func (p *LibreTranslateProvider) Translate(ctx context.Context, text, source, target string) (string, error) {
	if cached, ok := p.checkCache(text, source, target); ok {
		return cached, nil
	}

	reqBody := map[string]interface{}{
		"q":      text,
		"source": source,
		"target": target,
		"format": "text",
	}

	if p.Config.APIKey != "" {
		reqBody["api_key"] = p.Config.APIKey
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.Config.APIURL, strings.NewReader(string(jsonData)))
	if err != nil {
		return "", err
	}

	req.Header.Set("Content-Type", "application/json")

	body, err := p.doRequest(req)
	if err != nil {
		return "", err
	}

	var resp struct {
		TranslatedText string `json:"translatedText"`
		Error          string `json:"error,omitempty"`
	}

	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}

	if resp.Error != "" {
		return "", fmt.Errorf("translation error: %s", resp.Error)
	}

	if resp.TranslatedText == "" {
		return "", fmt.Errorf("API returned no translation")
	}

	result := resp.TranslatedText
	p.saveCache(text, source, target, result)
	return result, nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
