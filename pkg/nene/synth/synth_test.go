package synth

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jholhewres/nene/pkg/nene/catalog"
	"github.com/jholhewres/nene/pkg/nene/llm"
	"github.com/jholhewres/nene/pkg/nene/recency"
	"github.com/jholhewres/nene/pkg/nene/router"
)

// fakeGenerator returns scripted outputs in order and records every call.
type fakeGenerator struct {
	outputs []string
	errs    []error

	calls []generatorCall
}

type generatorCall struct {
	system string
	user   string
	opts   llm.GenerateOptions
}

func (f *fakeGenerator) Generate(_ context.Context, system, user string, opts llm.GenerateOptions) (string, error) {
	i := len(f.calls)
	f.calls = append(f.calls, generatorCall{system: system, user: user, opts: opts})

	var err error
	if i < len(f.errs) {
		err = f.errs[i]
	}
	var out string
	if i < len(f.outputs) {
		out = f.outputs[i]
	}
	return out, err
}

const (
	testPersona  = "You are Nene, a cheerful shop assistant. Always answer in Thai."
	testFallback = "ขอโทษนะคะ ตอนนี้เนเน่ตอบไม่ได้ ลองใหม่อีกครั้งนะคะ"
)

func newTestSynth(gen Generator, rec *recency.Store) *Synthesizer {
	cat := catalog.Build(map[string]string{
		"greeting":  "สวัสดีค่ะ ยินดีต้อนรับนะคะ",
		"greeting2": "หวัดดีค่า มาแล้วเหรอคะ",
		"thanks":    "ยินดีค่ะ",
	})
	v := NewValidator("Thai", []string{"Han", "Hangul", "Hiragana", "Katakana"}, 5)
	return New(gen, cat, rec, v, Config{
		Persona:  testPersona,
		Fallback: testFallback,
	}, nil)
}

func TestSynthesizeFallbackOnPersistentError(t *testing.T) {
	gen := &fakeGenerator{errs: []error{errors.New("api down"), errors.New("api down")}}
	rec := recency.New(10)
	s := newTestSynth(gen, rec)

	got := s.Synthesize(context.Background(), "hello",
		router.Result{Group: "greeting", Confidence: 0.9}, "greeting")

	if got != testFallback {
		t.Errorf("expected fallback, got %q", got)
	}
	if len(gen.calls) != 2 {
		t.Errorf("expected 2 attempts, got %d", len(gen.calls))
	}
	if rec.Len("greeting") != 0 {
		t.Error("fallback must not be written to recency")
	}
}

func TestSynthesizeRetryAfterEmptyOutput(t *testing.T) {
	gen := &fakeGenerator{outputs: []string{"", "สวัสดีค่ะ มาอีกแล้วนะคะ"}}
	rec := recency.New(10)
	s := newTestSynth(gen, rec)

	got := s.Synthesize(context.Background(), "hi",
		router.Result{Group: "greeting", Confidence: 0.9}, "greeting")

	if got != "สวัสดีค่ะ มาอีกแล้วนะคะ" {
		t.Fatalf("expected retry output, got %q", got)
	}
	if len(gen.calls) != 2 {
		t.Fatalf("expected 2 attempts, got %d", len(gen.calls))
	}

	// Retry must be stricter: appended script instruction, lower temperature.
	retry := gen.calls[1]
	if !strings.HasPrefix(retry.system, testPersona) {
		t.Error("persona missing from retry system instruction")
	}
	if !strings.Contains(retry.system, "Thai script only") {
		t.Errorf("retry system not stricter: %q", retry.system)
	}
	if retry.opts.Temperature >= gen.calls[0].opts.Temperature {
		t.Errorf("retry temperature %v not lower than %v",
			retry.opts.Temperature, gen.calls[0].opts.Temperature)
	}

	// The retried text, not the first output, is the one recorded.
	if recs := rec.Recent("greeting", 0); len(recs) != 1 || recs[0] != got {
		t.Errorf("recency = %v, want [%q]", recs, got)
	}
}

func TestSynthesizeWrongScriptTriggersRetry(t *testing.T) {
	gen := &fakeGenerator{outputs: []string{"Hello! Welcome back!", "สวัสดีค่ะ"}}
	rec := recency.New(10)
	s := newTestSynth(gen, rec)

	got := s.Synthesize(context.Background(), "hi",
		router.Result{Group: "greeting", Confidence: 0.9}, "greeting")

	if got != "สวัสดีค่ะ" {
		t.Errorf("expected retried Thai output, got %q", got)
	}
}

func TestSynthesizeConfidentMatchContext(t *testing.T) {
	gen := &fakeGenerator{outputs: []string{"สวัสดีค่ะ วันนี้มาไวจัง"}}
	rec := recency.New(10)
	rec.Remember("greeting", "สวัสดีค่ะ A")
	rec.Remember("greeting", "สวัสดีค่ะ B")
	s := newTestSynth(gen, rec)

	got := s.Synthesize(context.Background(), "hello!",
		router.Result{Group: "greeting", Confidence: 0.9}, "greeting")

	user := gen.calls[0].user
	if !strings.Contains(user, "สวัสดีค่ะ ยินดีต้อนรับนะคะ") {
		t.Errorf("exemplars missing from context:\n%s", user)
	}
	if !strings.Contains(user, "สวัสดีค่ะ A") || !strings.Contains(user, "สวัสดีค่ะ B") {
		t.Errorf("recent history missing from context:\n%s", user)
	}
	if !strings.Contains(user, "hello!") {
		t.Errorf("input missing from context:\n%s", user)
	}
	if gen.calls[0].system != testPersona {
		t.Errorf("persona not passed verbatim: %q", gen.calls[0].system)
	}

	// Accepted text becomes the 3rd recency entry.
	recs := rec.Recent("greeting", 0)
	if len(recs) != 3 || recs[2] != got {
		t.Errorf("recency after synthesis = %v", recs)
	}
}

func TestSynthesizeLowConfidenceNoExemplars(t *testing.T) {
	gen := &fakeGenerator{outputs: []string{"สวัสดีค่ะ"}}
	s := newTestSynth(gen, recency.New(10))

	s.Synthesize(context.Background(), "what is the meaning of life",
		router.Result{Group: "greeting", Confidence: 0.3}, "greeting")

	user := gen.calls[0].user
	if strings.Contains(user, "ยินดีต้อนรับ") {
		t.Errorf("exemplars must not appear below threshold:\n%s", user)
	}
	if !strings.Contains(user, "Respond freely") {
		t.Errorf("free-response instruction missing:\n%s", user)
	}
}

func TestSynthesizeNoMatchNoExemplars(t *testing.T) {
	gen := &fakeGenerator{outputs: []string{"สวัสดีค่ะ"}}
	s := newTestSynth(gen, recency.New(10))

	s.Synthesize(context.Background(), "random text", router.NoMatch, "none")

	if strings.Contains(gen.calls[0].user, "references") {
		t.Errorf("no-match context should have no references:\n%s", gen.calls[0].user)
	}
}

func TestSynthesizeSeeded(t *testing.T) {
	gen := &fakeGenerator{outputs: []string{"อรุณสวัสดิ์ค่ะ ตื่นมารับแดดกันเถอะ"}}
	rec := recency.New(10)
	s := newTestSynth(gen, rec)

	got := s.SynthesizeSeeded(context.Background(),
		"Morning greeting to all subscribers",
		[]string{"อรุณสวัสดิ์ค่ะ", "เช้าแล้วน้า ตื่นได้แล้ว"},
		"morning")

	user := gen.calls[0].user
	if !strings.Contains(user, "อรุณสวัสดิ์ค่ะ") {
		t.Errorf("seed examples missing from context:\n%s", user)
	}
	if !strings.Contains(user, "Morning greeting") {
		t.Errorf("meaning missing from context:\n%s", user)
	}
	if recs := rec.Recent("morning", 0); len(recs) != 1 || recs[0] != got {
		t.Errorf("seeded output not recorded under slot key: %v", recs)
	}
}

func TestSynthesizeExemplarCap(t *testing.T) {
	table := map[string]string{}
	for i := 0; i < 10; i++ {
		key := "greeting"
		if i > 0 {
			key = "greeting" + string(rune('0'+i))
		}
		table[key] = "สวัสดี variant " + string(rune('0'+i))
	}
	cat := catalog.Build(table)
	v := NewValidator("Thai", nil, 0)
	gen := &fakeGenerator{outputs: []string{"สวัสดีค่ะ"}}
	s := New(gen, cat, recency.New(10), v, Config{Persona: testPersona, Fallback: testFallback}, nil)

	s.Synthesize(context.Background(), "hi",
		router.Result{Group: "greeting", Confidence: 1}, "greeting")

	count := strings.Count(gen.calls[0].user, "สวัสดี variant")
	if count != 6 {
		t.Errorf("expected 6 exemplars in context, got %d", count)
	}
}
