// Package pipeline runs one translate request end to end: language
// resolution, chunked translation, notices and optional speech. Session state
// is passed in and returned explicitly; the caller stores it.
package pipeline

import (
	"context"
	stderrors "errors"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"babelbeam/lang"
	apperrors "babelbeam/pkg/errors"
	"babelbeam/speech"
	"babelbeam/translator"
)

// Notice messages shown next to a result.
const (
	MsgSameLanguage     = "Source and target languages are the same. Showing original text."
	MsgUsedFallback     = "Used backup translation engine for this result."
	MsgAudioUnavailable = "Audio is not available for this language."
	MsgAudioFailed      = "Translation worked, but audio failed: "
	MsgEmptyInput       = "Please enter some text first."
	MsgNothingToSpeak   = "Nothing has been translated yet."
	MsgChooseTarget     = "Choose a target language."
)

// DefaultTarget is the target selected for a new session.
const DefaultTarget = "en"

// State is the per-session memory of the page: the current selection and
// input, and the last successful translation.
type State struct {
	Source         string    `json:"source"`
	Target         string    `json:"target"`
	Input          string    `json:"input"`
	TranslatedText string    `json:"translatedText"`
	TranslatedLang string    `json:"translatedLang"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// NewState returns the state of a fresh session.
func NewState() State {
	return State{Source: lang.Auto, Target: DefaultTarget}
}

// HasResult reports whether a translation is stored.
func (s State) HasResult() bool {
	return s.TranslatedText != ""
}

// Request is one translate invocation. Source and Target accept display names
// or codes.
type Request struct {
	Text          string
	Source        string
	Target        string
	AllowFallback bool
	EnableAudio   bool
}

// Notice levels
const (
	LevelInfo    = "info"
	LevelWarning = "warning"
)

// Notice is a message shown next to a result.
type Notice struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

// Result is what the page renders for a translation.
type Result struct {
	Text      string   `json:"text"`
	Lang      string   `json:"lang"`
	LangName  string   `json:"langName"`
	Direction string   `json:"direction"`
	Align     string   `json:"align"`
	Engine    string   `json:"engine,omitempty"`
	Chunks    int      `json:"chunks"`
	Words     int      `json:"words"`
	Chars     int      `json:"chars"`
	Notices   []Notice `json:"notices,omitempty"`
	Audio     []byte   `json:"-"`
}

// Pipeline joins the translation orchestrator and the speech service.
type Pipeline struct {
	orchestrator *translator.Orchestrator
	speech       *speech.Service
	logger       *zap.Logger
	now          func() time.Time
}

// New creates a pipeline. speechService may be nil to disable audio; logger may be nil.
func New(orchestrator *translator.Orchestrator, speechService *speech.Service, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		orchestrator: orchestrator,
		speech:       speechService,
		logger:       logger,
		now:          time.Now,
	}
}

// Run translates req and returns the next session state. On error the input
// state is returned unchanged: a failed request never replaces the last result.
func (p *Pipeline) Run(ctx context.Context, st State, req Request) (State, *Result, error) {
	source, target, err := resolvePair(req.Source, req.Target)
	if err != nil {
		return st, nil, err
	}

	if strings.TrimSpace(req.Text) == "" {
		return st, nil, apperrors.NewValidationError(MsgEmptyInput, "text", req.Text)
	}

	tr, err := p.orchestrator.TranslateAll(ctx, req.Text, source, target, req.AllowFallback)
	if err != nil {
		p.logger.Warn("Translation failed",
			zap.String("source", source),
			zap.String("target", target),
			zap.Error(err),
		)
		return st, nil, err
	}

	res := newResult(tr.Text, target)
	res.Engine = tr.Engine
	res.Chunks = tr.Chunks
	res.Words, res.Chars = Count(req.Text)
	if tr.SameLanguage {
		res.Notices = append(res.Notices, Notice{Level: LevelInfo, Message: MsgSameLanguage})
	}
	if tr.UsedFallback {
		res.Notices = append(res.Notices, Notice{Level: LevelInfo, Message: MsgUsedFallback})
	}

	if req.EnableAudio {
		res.Audio, res.Notices = p.speak(ctx, res.Text, target, res.Notices)
	}

	next := State{
		Source:         source,
		Target:         target,
		Input:          req.Text,
		TranslatedText: res.Text,
		TranslatedLang: target,
		UpdatedAt:      p.now(),
	}

	p.logger.Info("Translation completed",
		zap.String("source", source),
		zap.String("target", target),
		zap.String("engine", tr.Engine),
		zap.Int("chunks", tr.Chunks),
		zap.Int("chars", res.Chars),
		zap.Bool("audio", len(res.Audio) > 0),
	)
	return next, res, nil
}

// speak synthesizes audio for a finished translation. Failures only add a
// notice; the translation stands.
func (p *Pipeline) speak(ctx context.Context, text, target string, notices []Notice) ([]byte, []Notice) {
	if p.speech == nil {
		return nil, append(notices, Notice{Level: LevelInfo, Message: MsgAudioUnavailable})
	}

	audio, err := p.speech.Speak(ctx, text, target)
	if err == nil {
		return audio, notices
	}

	var sErr *apperrors.SynthesisError
	if stderrors.As(err, &sErr) && sErr.Unsupported {
		return nil, append(notices, Notice{Level: LevelInfo, Message: MsgAudioUnavailable})
	}

	reason := err.Error()
	if cause := stderrors.Unwrap(err); cause != nil {
		reason = cause.Error()
	}
	return nil, append(notices, Notice{Level: LevelWarning, Message: MsgAudioFailed + reason})
}

// AudioAvailable reports whether audio can be produced for language code.
func (p *Pipeline) AudioAvailable(code string) bool {
	return p.speech != nil && p.speech.Supports(code)
}

// Audio synthesizes the stored translation.
func (p *Pipeline) Audio(ctx context.Context, st State) ([]byte, error) {
	if !st.HasResult() {
		return nil, apperrors.NewValidationError(MsgNothingToSpeak, "translatedText", "")
	}
	if p.speech == nil {
		return nil, apperrors.NewUnsupportedLanguageError(st.TranslatedLang)
	}
	return p.speech.Speak(ctx, st.TranslatedText, st.TranslatedLang)
}

// Swap exchanges the selected languages. An auto-detected source is refused
// and the state is returned unchanged.
func (p *Pipeline) Swap(st State, source, target string) (State, error) {
	src, tgt := lang.Resolve(orDefault(source, st.Source)), lang.Resolve(orDefault(target, st.Target))
	src, tgt, err := lang.Swap(src, tgt)
	if err != nil {
		return st, err
	}
	st.Source, st.Target = src, tgt
	return st, nil
}

// Clear drops the input and the last result. The language selection is kept.
func (p *Pipeline) Clear(st State) State {
	st.Input = ""
	st.TranslatedText = ""
	st.TranslatedLang = ""
	st.UpdatedAt = p.now()
	return st
}

// Last renders the stored translation, or nil when there is none.
func (p *Pipeline) Last(st State) *Result {
	if !st.HasResult() {
		return nil
	}
	return newResult(st.TranslatedText, st.TranslatedLang)
}

func newResult(text, target string) *Result {
	return &Result{
		Text:      text,
		Lang:      target,
		LangName:  lang.Name(target),
		Direction: lang.Direction(target),
		Align:     lang.Align(target),
	}
}

func resolvePair(source, target string) (string, string, error) {
	src := lang.Resolve(orDefault(source, lang.Auto))
	tgt := lang.Resolve(orDefault(target, DefaultTarget))
	if tgt == lang.Auto {
		return "", "", apperrors.NewValidationError(MsgChooseTarget, "target", target)
	}
	return src, tgt, nil
}

func orDefault(value, def string) string {
	if strings.TrimSpace(value) == "" {
		return def
	}
	return value
}

// Count returns the word count (whitespace separated fields) and the
// character count of the raw input.
func Count(text string) (words, chars int) {
	return len(strings.Fields(text)), utf8.RuneCountInString(text)
}
