package models

import (
	"encoding/base64"

	"babelbeam/pipeline"
)

// TranslateRequest is the body of POST /api/translate and the form of POST /translate.
type TranslateRequest struct {
	Text          string `json:"text" form:"text"`
	Source        string `json:"source" form:"source"`
	Target        string `json:"target" form:"target"`
	AllowFallback bool   `json:"allowFallback" form:"allowFallback"`
	Audio         bool   `json:"audio" form:"audio"`
}

// ToPipeline converts the request for pipeline.Run.
func (r TranslateRequest) ToPipeline() pipeline.Request {
	return pipeline.Request{
		Text:          r.Text,
		Source:        r.Source,
		Target:        r.Target,
		AllowFallback: r.AllowFallback,
		EnableAudio:   r.Audio,
	}
}

type TranslateResponse struct {
	*pipeline.Result
	Audio string `json:"audio,omitempty"` // data URI
}

// NewTranslateResponse wraps res, inlining its audio as a data URI.
func NewTranslateResponse(res *pipeline.Result) TranslateResponse {
	return TranslateResponse{Result: res, Audio: AudioDataURI(res.Audio)}
}

// AudioDataURI encodes MP3 bytes for an <audio> src attribute. Empty input gives "".
func AudioDataURI(audio []byte) string {
	if len(audio) == 0 {
		return ""
	}
	return "data:audio/mpeg;base64," + base64.StdEncoding.EncodeToString(audio)
}

type SwapRequest struct {
	Source string `json:"source" form:"source"`
	Target string `json:"target" form:"target"`
	Text   string `json:"-" form:"text"`
}

type SelectionResponse struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// SessionResponse is the body of GET /api/result.
type SessionResponse struct {
	Source    string           `json:"source"`
	Target    string           `json:"target"`
	Input     string           `json:"input"`
	Result    *pipeline.Result `json:"result"`
	UpdatedAt string           `json:"updatedAt,omitempty"`
}

// LanguageInfo is one entry of GET /api/languages.
type LanguageInfo struct {
	Name      string `json:"name"`
	Code      string `json:"code"`
	Direction string `json:"direction"`
	Source    bool   `json:"source"`
	Target    bool   `json:"target"`
}
