package pipeline

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"babelbeam/lang"
	apperrors "babelbeam/pkg/errors"
	"babelbeam/speech"
	"babelbeam/translator"
)

type stubEngine struct {
	name  string
	fn    func(text, source, target string) (string, error)
	calls int
}

func (s *stubEngine) GetName() string { return s.name }

func (s *stubEngine) Translate(_ context.Context, text, source, target string) (string, error) {
	s.calls++
	return s.fn(text, source, target)
}

func prefixEngine(name, prefix string) *stubEngine {
	return &stubEngine{name: name, fn: func(text, _, _ string) (string, error) {
		return prefix + text, nil
	}}
}

func brokenEngine(name string) *stubEngine {
	return &stubEngine{name: name, fn: func(string, string, string) (string, error) {
		return "", fmt.Errorf("%s is down", name)
	}}
}

type stubSynth struct {
	supported map[string]bool
	err       error
	calls     int
}

func (s *stubSynth) Name() string { return "stub" }

func (s *stubSynth) Supports(code string) bool { return s.supported[code] }

func (s *stubSynth) Synthesize(_ context.Context, text string, _ lang.Voice) ([]byte, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return []byte("ID3" + text), nil
}

func newPipeline(primary, fallback translator.Provider, synth speech.Synthesizer) *Pipeline {
	pc := translator.NewTranslatorClient(primary).WithRetry(0, 0)
	var fc *translator.TranslatorClient
	if fallback != nil {
		fc = translator.NewTranslatorClient(fallback).WithRetry(0, 0)
	}
	var svc *speech.Service
	if synth != nil {
		svc = speech.NewService(synth, nil)
	}
	p := New(translator.NewOrchestrator(pc, fc), svc, nil)
	p.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	return p
}

func TestRun_StoresResult(t *testing.T) {
	synth := &stubSynth{supported: map[string]bool{"ur": true}}
	p := newPipeline(prefixEngine("google", "UR:"), nil, synth)

	st, res, err := p.Run(context.Background(), NewState(), Request{
		Text:        "Hello world",
		Source:      "English",
		Target:      "Urdu",
		EnableAudio: true,
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if res.Text != "UR:Hello world" || res.Lang != "ur" {
		t.Errorf("unexpected result: %+v", res)
	}
	if res.Direction != "rtl" || res.Align != "right" {
		t.Errorf("Urdu must render right-to-left, got %s/%s", res.Direction, res.Align)
	}
	if res.Words != 2 || res.Chars != 11 {
		t.Errorf("counters = %d words %d chars, want 2 and 11", res.Words, res.Chars)
	}
	if string(res.Audio) != "ID3UR:Hello world" {
		t.Errorf("Audio = %q", res.Audio)
	}
	if len(res.Notices) != 0 {
		t.Errorf("unexpected notices: %+v", res.Notices)
	}

	if st.TranslatedText != res.Text || st.TranslatedLang != "ur" {
		t.Errorf("state not updated: %+v", st)
	}
	if st.Source != "en" || st.Target != "ur" || st.Input != "Hello world" {
		t.Errorf("selection not stored: %+v", st)
	}
	if st.UpdatedAt.IsZero() {
		t.Error("UpdatedAt should be set")
	}
}

func TestRun_SameLanguageNotice(t *testing.T) {
	primary := prefixEngine("google", "X:")
	p := newPipeline(primary, nil, nil)

	_, res, err := p.Run(context.Background(), NewState(), Request{Text: "Bonjour  tout le monde", Source: "fr", Target: "French"})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.Text != "Bonjour tout le monde" {
		t.Errorf("Text = %q, want the normalized input", res.Text)
	}
	if len(res.Notices) != 1 || res.Notices[0].Message != MsgSameLanguage {
		t.Errorf("Notices = %+v", res.Notices)
	}
	if primary.calls != 0 {
		t.Errorf("engine calls = %d, want 0", primary.calls)
	}
}

func TestRun_FallbackNotice(t *testing.T) {
	p := newPipeline(brokenEngine("google"), prefixEngine("mymemory", "MM:"), nil)

	_, res, err := p.Run(context.Background(), NewState(), Request{Text: "Hi", Target: "de", AllowFallback: true})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.Text != "MM:Hi" || res.Engine != "mymemory" {
		t.Errorf("unexpected result: %+v", res)
	}
	if len(res.Notices) != 1 || res.Notices[0].Message != MsgUsedFallback {
		t.Errorf("Notices = %+v", res.Notices)
	}
}

func TestRun_FailureKeepsPreviousState(t *testing.T) {
	p := newPipeline(brokenEngine("google"), prefixEngine("mymemory", "MM:"), nil)
	prev := State{Source: "en", Target: "fr", TranslatedText: "Bonjour", TranslatedLang: "fr"}

	st, res, err := p.Run(context.Background(), prev, Request{Text: "Good night", Source: "en", Target: "es"})
	if res != nil {
		t.Error("no result may be returned on failure")
	}
	var tErr *apperrors.TranslationError
	if !stderrors.As(err, &tErr) {
		t.Fatalf("expected TranslationError, got %v", err)
	}
	if tErr.Message != "Google translation failed. Enable backup translator and try again." {
		t.Errorf("Message = %q", tErr.Message)
	}
	if st != prev {
		t.Errorf("state changed on failure: %+v", st)
	}
}

func TestRun_Validation(t *testing.T) {
	p := newPipeline(prefixEngine("google", ""), nil, nil)

	tests := []struct {
		name string
		req  Request
		msg  string
	}{
		{name: "blank text", req: Request{Text: "   \n ", Target: "fr"}, msg: MsgEmptyInput},
		{name: "auto target", req: Request{Text: "Hello", Target: "Auto Detect"}, msg: MsgChooseTarget},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := p.Run(context.Background(), NewState(), tt.req)
			var vErr *apperrors.ValidationError
			if !stderrors.As(err, &vErr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if vErr.Message != tt.msg {
				t.Errorf("Message = %q, want %q", vErr.Message, tt.msg)
			}
		})
	}
}

func TestRun_AudioNotices(t *testing.T) {
	tests := []struct {
		name      string
		synth     *stubSynth
		wantLevel string
		wantMsg   string
	}{
		{
			name:      "unsupported language",
			synth:     &stubSynth{supported: map[string]bool{}},
			wantLevel: LevelInfo,
			wantMsg:   MsgAudioUnavailable,
		},
		{
			name:      "engine failure",
			synth:     &stubSynth{supported: map[string]bool{"fr": true}, err: fmt.Errorf("rate limited")},
			wantLevel: LevelWarning,
			wantMsg:   MsgAudioFailed + "rate limited",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newPipeline(prefixEngine("google", "FR:"), nil, tt.synth)

			st, res, err := p.Run(context.Background(), NewState(), Request{Text: "Hello", Target: "fr", EnableAudio: true})
			if err != nil {
				t.Fatalf("audio problems must not fail the translation: %v", err)
			}
			if res.Text != "FR:Hello" || st.TranslatedText != "FR:Hello" {
				t.Errorf("translation should stand, got %q", res.Text)
			}
			if res.Audio != nil {
				t.Error("no audio expected")
			}
			if len(res.Notices) != 1 {
				t.Fatalf("Notices = %+v", res.Notices)
			}
			if res.Notices[0].Level != tt.wantLevel || res.Notices[0].Message != tt.wantMsg {
				t.Errorf("Notice = %+v", res.Notices[0])
			}
		})
	}
}

func TestRun_AudioDisabled(t *testing.T) {
	synth := &stubSynth{supported: map[string]bool{"fr": true}}
	p := newPipeline(prefixEngine("google", ""), nil, synth)

	_, res, err := p.Run(context.Background(), NewState(), Request{Text: "Hello", Target: "fr"})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if synth.calls != 0 || res.Audio != nil {
		t.Error("audio must not be synthesized unless requested")
	}
}

func TestRun_AudioWithoutSpeechEngine(t *testing.T) {
	p := newPipeline(prefixEngine("google", "FR:"), nil, nil)

	st, res, err := p.Run(context.Background(), NewState(), Request{Text: "Hello.", Source: "en", Target: "fr", EnableAudio: true})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if st.TranslatedText != "FR:Hello." || res.Audio != nil {
		t.Errorf("translation = %q, audio = %d bytes", st.TranslatedText, len(res.Audio))
	}
	if len(res.Notices) != 1 || res.Notices[0].Level != LevelInfo || res.Notices[0].Message != MsgAudioUnavailable {
		t.Errorf("Notices = %+v, want audio unavailable", res.Notices)
	}
}

func TestAudioAvailable(t *testing.T) {
	withSpeech := newPipeline(prefixEngine("google", ""), nil, &stubSynth{supported: map[string]bool{"fr": true}})
	if !withSpeech.AudioAvailable("fr") {
		t.Error("fr should be available")
	}
	if withSpeech.AudioAvailable("hi") {
		t.Error("hi should not be available")
	}

	if newPipeline(prefixEngine("google", ""), nil, nil).AudioAvailable("fr") {
		t.Error("no speech engine means no audio")
	}
}

func TestAudio(t *testing.T) {
	synth := &stubSynth{supported: map[string]bool{"ar": true}}
	p := newPipeline(prefixEngine("google", ""), nil, synth)

	if _, err := p.Audio(context.Background(), NewState()); err == nil {
		t.Error("expected error without a stored translation")
	}

	audio, err := p.Audio(context.Background(), State{TranslatedText: "مرحبا", TranslatedLang: "ar"})
	if err != nil {
		t.Fatalf("Audio failed: %v", err)
	}
	if string(audio) != "ID3مرحبا" {
		t.Errorf("audio = %q", audio)
	}
}

func TestSwap(t *testing.T) {
	p := newPipeline(prefixEngine("google", ""), nil, nil)

	st, err := p.Swap(State{Source: "en", Target: "fr"}, "", "")
	if err != nil {
		t.Fatalf("Swap failed: %v", err)
	}
	if st.Source != "fr" || st.Target != "en" {
		t.Errorf("Swap = %s->%s, want fr->en", st.Source, st.Target)
	}

	st, err = p.Swap(State{Source: "en", Target: "fr"}, "German", "Arabic")
	if err != nil {
		t.Fatalf("Swap failed: %v", err)
	}
	if st.Source != "ar" || st.Target != "de" {
		t.Errorf("Swap = %s->%s, want ar->de", st.Source, st.Target)
	}

	prev := NewState()
	st, err = p.Swap(prev, "", "")
	var vErr *apperrors.ValidationError
	if !stderrors.As(err, &vErr) {
		t.Fatalf("expected ValidationError for an auto source, got %v", err)
	}
	if st != prev {
		t.Errorf("refused swap changed the state: %+v", st)
	}
}

func TestClearAndLast(t *testing.T) {
	p := newPipeline(prefixEngine("google", ""), nil, nil)
	st := State{Source: "en", Target: "ar", Input: "Hi", TranslatedText: "مرحبا", TranslatedLang: "ar"}

	last := p.Last(st)
	if last == nil || last.Direction != "rtl" || last.LangName != "Arabic" {
		t.Fatalf("Last = %+v", last)
	}

	st = p.Clear(st)
	if st.Input != "" || st.HasResult() {
		t.Errorf("Clear left data behind: %+v", st)
	}
	if st.Source != "en" || st.Target != "ar" {
		t.Errorf("Clear must keep the selection: %+v", st)
	}
	if p.Last(st) != nil {
		t.Error("Last should be nil after Clear")
	}
}

func TestCount(t *testing.T) {
	tests := []struct {
		in    string
		words int
		chars int
	}{
		{"", 0, 0},
		{"   ", 0, 3},
		{"Hello world", 2, 11},
		{"مرحبا  بالعالم\n", 2, 15},
	}
	for _, tt := range tests {
		w, c := Count(tt.in)
		if w != tt.words || c != tt.chars {
			t.Errorf("Count(%q) = %d, %d; want %d, %d", tt.in, w, c, tt.words, tt.chars)
		}
	}
}

func TestRun_LongInputChunked(t *testing.T) {
	primary := prefixEngine("google", "")
	p := newPipeline(primary, nil, nil)

	text := strings.Repeat("A fairly ordinary sentence. ", 250)
	_, res, err := p.Run(context.Background(), NewState(), Request{Text: text, Source: "en", Target: "fr"})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.Chunks < 3 || primary.calls != res.Chunks {
		t.Errorf("Chunks = %d, engine calls = %d", res.Chunks, primary.calls)
	}
}
