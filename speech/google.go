package speech

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"babelbeam/lang"
	"babelbeam/translator"
)

// DefaultGoogleTTSURL is the public translate_tts endpoint. %s is replaced by
// the voice's top-level domain, which selects the regional accent.
const DefaultGoogleTTSURL = "https://translate.google.%s/translate_tts"

// maxPieceLen is the longest text the endpoint accepts per request.
const maxPieceLen = 100

// googleLanguages lists the languages the endpoint can speak.
var googleLanguages = map[string]bool{
	"af": true, "ar": true, "bg": true, "bn": true, "bs": true, "ca": true,
	"cs": true, "cy": true, "da": true, "de": true, "el": true, "en": true,
	"eo": true, "es": true, "et": true, "fi": true, "fr": true, "gu": true,
	"hi": true, "hr": true, "hu": true, "id": true, "is": true, "it": true,
	"iw": true, "ja": true, "jw": true, "km": true, "kn": true, "ko": true,
	"la": true, "lv": true, "ml": true, "mr": true, "ms": true, "my": true,
	"ne": true, "nl": true, "no": true, "pl": true, "pt": true, "ro": true,
	"ru": true, "si": true, "sk": true, "sq": true, "sr": true, "su": true,
	"sv": true, "sw": true, "ta": true, "te": true, "th": true, "tl": true,
	"tr": true, "uk": true, "ur": true, "vi": true, "zh-CN": true, "zh-TW": true,
}

// GoogleSynthesizer speaks through Google Translate's text-to-speech endpoint.
type GoogleSynthesizer struct {
	baseURL    string
	httpClient *http.Client
}

// NewGoogleSynthesizer creates the engine. baseURL may contain a %s
// placeholder for the top-level domain; empty selects DefaultGoogleTTSURL.
func NewGoogleSynthesizer(baseURL string, httpClient *http.Client) *GoogleSynthesizer {
	if baseURL == "" {
		baseURL = DefaultGoogleTTSURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &GoogleSynthesizer{baseURL: baseURL, httpClient: httpClient}
}

func (g *GoogleSynthesizer) Name() string {
	return "google"
}

func (g *GoogleSynthesizer) Supports(code string) bool {
	return googleLanguages[code]
}

// Synthesize splits text into pieces the endpoint accepts and concatenates
// the MP3 frames of every piece.
func (g *GoogleSynthesizer) Synthesize(ctx context.Context, text string, voice lang.Voice) ([]byte, error) {
	pieces := translator.SplitAll(text, maxPieceLen)
	if len(pieces) == 0 {
		return nil, fmt.Errorf("no text to speak")
	}

	var audio bytes.Buffer
	for _, piece := range pieces {
		data, err := g.fetch(ctx, piece.Text, piece.Index, len(pieces), voice)
		if err != nil {
			return nil, fmt.Errorf("piece %d/%d: %w", piece.Index+1, len(pieces), err)
		}
		audio.Write(data)
	}
	return audio.Bytes(), nil
}

func (g *GoogleSynthesizer) fetch(ctx context.Context, text string, idx, total int, voice lang.Voice) ([]byte, error) {
	endpoint := g.baseURL
	if strings.Contains(endpoint, "%s") {
		tld := voice.TLD
		if tld == "" {
			tld = lang.DefaultTLD
		}
		endpoint = fmt.Sprintf(endpoint, tld)
	}

	params := url.Values{}
	params.Set("ie", "UTF-8")
	params.Set("client", "tw-ob")
	params.Set("tl", voice.Lang)
	params.Set("q", text)
	params.Set("idx", strconv.Itoa(idx))
	params.Set("total", strconv.Itoa(total))
	params.Set("textlen", strconv.Itoa(utf8.RuneCountInString(text)))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")
	req.Header.Set("Referer", "https://translate.google.com/")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("TTS endpoint returned status %d", resp.StatusCode)
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("TTS endpoint returned no audio")
	}
	return body, nil
}
