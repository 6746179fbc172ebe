package translator

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	apperrors "babelbeam/pkg/errors"
)

// fakeProvider records calls and answers with a fixed function.
type fakeProvider struct {
	name  string
	fn    func(text, source, target string) (string, error)
	calls []string
	srcs  []string
}

func (f *fakeProvider) GetName() string { return f.name }

func (f *fakeProvider) Translate(_ context.Context, text, source, target string) (string, error) {
	f.calls = append(f.calls, text)
	f.srcs = append(f.srcs, source)
	return f.fn(text, source, target)
}

func failing(name string) *fakeProvider {
	return &fakeProvider{name: name, fn: func(string, string, string) (string, error) {
		return "", fmt.Errorf("%s unavailable", name)
	}}
}

func upper(name string) *fakeProvider {
	return &fakeProvider{name: name, fn: func(text, _, _ string) (string, error) {
		return strings.ToUpper(text), nil
	}}
}

func newTestClient(p Provider) (*TranslatorClient, *[]time.Duration) {
	var slept []time.Duration
	c := NewTranslatorClient(p)
	c.sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}
	return c, &slept
}

func TestTranslateAll_HelloWorld(t *testing.T) {
	primary := &fakeProvider{name: "google", fn: func(text, source, target string) (string, error) {
		if text != "Hello world." || source != "en" || target != "fr" {
			return "", fmt.Errorf("unexpected call %q %s->%s", text, source, target)
		}
		return "Bonjour le monde.", nil
	}}
	client, _ := newTestClient(primary)
	o := NewOrchestrator(client, nil)

	res, err := o.TranslateAll(context.Background(), "Hello world.", "en", "fr", false)
	if err != nil {
		t.Fatalf("TranslateAll failed: %v", err)
	}
	if res.Text != "Bonjour le monde." {
		t.Errorf("Text = %q, want %q", res.Text, "Bonjour le monde.")
	}
	if res.Chunks != 1 || res.Engine != "google" || res.UsedFallback {
		t.Errorf("unexpected result metadata: %+v", res)
	}
}

func TestTranslateAll_SameLanguageShortCircuit(t *testing.T) {
	primary := upper("google")
	fallback := upper("mymemory")
	pc, _ := newTestClient(primary)
	fc, _ := newTestClient(fallback)
	o := NewOrchestrator(pc, fc)

	input := "  Some\t\ttext \r\n\r\n\r\nhere  "
	res, err := o.TranslateAll(context.Background(), input, "en", "en", false)
	if err != nil {
		t.Fatalf("TranslateAll failed: %v", err)
	}
	if res.Text != Normalize(input) {
		t.Errorf("Text = %q, want %q", res.Text, Normalize(input))
	}
	if !res.SameLanguage {
		t.Error("SameLanguage should be set")
	}
	if len(primary.calls)+len(fallback.calls) != 0 {
		t.Errorf("expected zero engine calls, got %d", len(primary.calls)+len(fallback.calls))
	}
}

func TestTranslateAll_EmptyInputRejected(t *testing.T) {
	primary := upper("google")
	pc, _ := newTestClient(primary)
	o := NewOrchestrator(pc, nil)

	_, err := o.TranslateAll(context.Background(), " \n\t ", "en", "fr", true)
	var vErr *apperrors.ValidationError
	if !stderrors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if len(primary.calls) != 0 {
		t.Error("no engine call expected for empty input")
	}
}

func TestTranslateAll_JoinsChunksInOrder(t *testing.T) {
	primary := upper("google")
	pc, _ := newTestClient(primary)
	o := NewOrchestrator(pc, nil, WithMaxLengths(12, 0))

	res, err := o.TranslateAll(context.Background(), "first para\nsecond para", "en", "de", false)
	if err != nil {
		t.Fatalf("TranslateAll failed: %v", err)
	}
	if res.Text != "FIRST PARA\n\nSECOND PARA" {
		t.Errorf("Text = %q", res.Text)
	}
	if res.Chunks != 2 {
		t.Errorf("Chunks = %d, want 2", res.Chunks)
	}
}

func TestTranslateAll_RetriesTransientFailure(t *testing.T) {
	attempts := 0
	primary := &fakeProvider{name: "google", fn: func(text, _, _ string) (string, error) {
		attempts++
		if attempts < 3 {
			return "", fmt.Errorf("temporary failure")
		}
		return "ok", nil
	}}
	pc, slept := newTestClient(primary)
	fallback := upper("mymemory")
	fc, _ := newTestClient(fallback)
	o := NewOrchestrator(pc, fc)

	res, err := o.TranslateAll(context.Background(), "Hello.", "en", "fr", true)
	if err != nil {
		t.Fatalf("TranslateAll failed: %v", err)
	}
	if res.Text != "ok" || res.UsedFallback {
		t.Errorf("unexpected result: %+v", res)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
	if len(*slept) != 2 {
		t.Fatalf("slept %d times, want 2", len(*slept))
	}
	for _, d := range *slept {
		if d != 500*time.Millisecond {
			t.Errorf("backoff = %v, want 500ms", d)
		}
	}
	if len(fallback.calls) != 0 {
		t.Error("fallback must not be called when primary recovers")
	}
}

func TestTranslateAll_FallbackTrigger(t *testing.T) {
	primary := failing("google")
	fallback := upper("mymemory")
	pc, _ := newTestClient(primary)
	fc, _ := newTestClient(fallback)
	fc.WithRetry(0, 0)
	o := NewOrchestrator(pc, fc)

	text := strings.Repeat("This sentence ends with two marks!! ", 100)
	res, err := o.TranslateAll(context.Background(), text, "auto", "fr", true)
	if err != nil {
		t.Fatalf("TranslateAll failed: %v", err)
	}

	// Primary: one chunk, three attempts.
	if len(primary.calls) != 3 {
		t.Errorf("primary calls = %d, want 3", len(primary.calls))
	}
	if len(fallback.calls) < 2 {
		t.Fatalf("fallback should receive several chunks, got %d", len(fallback.calls))
	}
	for i, c := range fallback.calls {
		if n := utf8.RuneCountInString(c); n > FallbackMaxLen {
			t.Errorf("fallback chunk %d has %d characters, want <= %d", i, n, FallbackMaxLen)
		}
	}
	for _, src := range fallback.srcs {
		if src != "auto" {
			t.Errorf("fallback source = %q, want auto", src)
		}
	}

	var want []string
	for _, c := range fallback.calls {
		want = append(want, strings.ToUpper(c))
	}
	if res.Text != strings.Join(want, "\n\n") {
		t.Error("fallback output is not the ordered join of its chunks")
	}
	if !res.UsedFallback || res.Engine != "mymemory" || res.PrimaryErr == nil {
		t.Errorf("unexpected result metadata: %+v", res)
	}
}

func TestTranslateAll_NoFallbackFailure(t *testing.T) {
	primary := failing("google")
	fallback := upper("mymemory")
	pc, _ := newTestClient(primary)
	fc, _ := newTestClient(fallback)
	o := NewOrchestrator(pc, fc)

	res, err := o.TranslateAll(context.Background(), "Hello world.", "en", "fr", false)
	if res != nil {
		t.Error("no partial result may be returned on failure")
	}

	var tErr *apperrors.TranslationError
	if !stderrors.As(err, &tErr) {
		t.Fatalf("expected TranslationError, got %v", err)
	}
	if tErr.Engine != "google" {
		t.Errorf("Engine = %q, want google", tErr.Engine)
	}
	if !strings.Contains(tErr.Error(), "google unavailable") {
		t.Errorf("error should carry the underlying cause, got %q", tErr.Error())
	}
	if len(fallback.calls) != 0 {
		t.Errorf("fallback calls = %d, want 0", len(fallback.calls))
	}
}

func TestTranslateAll_FailureMessages(t *testing.T) {
	tests := []struct {
		name          string
		withFallback  bool
		allowFallback bool
		want          string
	}{
		{
			name:          "fallback configured but not allowed",
			withFallback:  true,
			allowFallback: false,
			want:          "Google translation failed. Enable backup translator and try again.",
		},
		{
			name:          "no fallback configured",
			withFallback:  false,
			allowFallback: true,
			want:          "Google translation failed and no backup translator is configured. Please try again later.",
		},
		{
			name:          "no fallback configured and not allowed",
			withFallback:  false,
			allowFallback: false,
			want:          "Google translation failed and no backup translator is configured. Please try again later.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pc, _ := newTestClient(failing("google"))
			var fc *TranslatorClient
			if tt.withFallback {
				fc, _ = newTestClient(upper("mymemory"))
			}
			o := NewOrchestrator(pc, fc)

			_, err := o.TranslateAll(context.Background(), "Hello world.", "en", "fr", tt.allowFallback)
			var tErr *apperrors.TranslationError
			if !stderrors.As(err, &tErr) {
				t.Fatalf("expected TranslationError, got %v", err)
			}
			if tErr.Message != tt.want {
				t.Errorf("Message = %q, want %q", tErr.Message, tt.want)
			}
		})
	}
}

func TestTranslateAll_AllOrNothingPerPass(t *testing.T) {
	// The second primary chunk always fails, the first succeeds.
	primary := &fakeProvider{name: "google", fn: func(text, _, _ string) (string, error) {
		if strings.HasPrefix(text, "second") {
			return "", fmt.Errorf("rejected")
		}
		return "P:" + text, nil
	}}
	fallback := &fakeProvider{name: "mymemory", fn: func(text, _, _ string) (string, error) {
		return "F:" + text, nil
	}}
	pc, _ := newTestClient(primary)
	fc, _ := newTestClient(fallback)
	o := NewOrchestrator(pc, fc, WithMaxLengths(12, 12))

	res, err := o.TranslateAll(context.Background(), "first para\nsecond para", "en", "fr", true)
	if err != nil {
		t.Fatalf("TranslateAll failed: %v", err)
	}
	if res.Text != "F:first para\n\nF:second para" {
		t.Errorf("Text = %q, every chunk must come from the fallback engine", res.Text)
	}
}

func TestTranslateAll_FallbackAlsoFails(t *testing.T) {
	pc, _ := newTestClient(failing("google"))
	fc, _ := newTestClient(failing("mymemory"))
	o := NewOrchestrator(pc, fc)

	_, err := o.TranslateAll(context.Background(), "Hello world.", "en", "fr", true)
	var tErr *apperrors.TranslationError
	if !stderrors.As(err, &tErr) {
		t.Fatalf("expected TranslationError, got %v", err)
	}
	if tErr.Engine != "mymemory" {
		t.Errorf("Engine = %q, want mymemory", tErr.Engine)
	}
	if tErr.Chunk != 0 {
		t.Errorf("Chunk = %d, want 0", tErr.Chunk)
	}
	if tErr.Message != "Translation failed: mymemory unavailable" {
		t.Errorf("Message = %q", tErr.Message)
	}
}

func TestTranslateAll_CancelledSkipsFallback(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	primary := &fakeProvider{name: "google", fn: func(string, string, string) (string, error) {
		cancel()
		return "", context.Canceled
	}}
	fallback := upper("mymemory")
	pc, _ := newTestClient(primary)
	fc, _ := newTestClient(fallback)
	o := NewOrchestrator(pc, fc)

	_, err := o.TranslateAll(ctx, "Hello world.", "en", "fr", true)
	if err == nil {
		t.Fatal("expected error after cancellation")
	}
	if len(fallback.calls) != 0 {
		t.Error("fallback must not run after cancellation")
	}
}
