// Package synth turns a routing verdict (or a schedule seed) into final reply
// text. Flow: build generation context from exemplars + recent history →
// generate → validate → one stricter retry → fixed fallback. The caller never
// sees an error or an empty string, and only accepted output enters the
// recency store.
package synth

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jholhewres/nene/pkg/nene/catalog"
	"github.com/jholhewres/nene/pkg/nene/llm"
	"github.com/jholhewres/nene/pkg/nene/recency"
	"github.com/jholhewres/nene/pkg/nene/router"
)

// Generator is the external generation capability.
type Generator interface {
	Generate(ctx context.Context, system, user string, opts llm.GenerateOptions) (string, error)
}

// Config tunes the synthesis pipeline.
type Config struct {
	// Persona is the system instruction passed verbatim to every generation
	// call, on both the chat and schedule paths.
	Persona string

	// Fallback is returned when generation fails or stays invalid after the
	// retry. Must itself be persona- and language-appropriate.
	Fallback string

	// ConfidenceThreshold gates whether a routed group's exemplars are used
	// as context (default 0.65).
	ConfidenceThreshold float64

	// MaxExemplars caps how many exemplars enter the context (default 6).
	MaxExemplars int

	// MaxRecent caps how many recent texts enter the context (default 6).
	MaxRecent int

	// Temperature for the first attempt (default 0.9).
	Temperature float64

	// RetryTemperature for the stricter retry (default 0.2).
	RetryTemperature float64

	// MaxTokens caps generation length (default 300).
	MaxTokens int
}

func (c *Config) applyDefaults() {
	if c.ConfidenceThreshold <= 0 {
		c.ConfidenceThreshold = 0.65
	}
	if c.MaxExemplars <= 0 {
		c.MaxExemplars = 6
	}
	if c.MaxRecent <= 0 {
		c.MaxRecent = 6
	}
	if c.Temperature <= 0 {
		c.Temperature = 0.9
	}
	if c.RetryTemperature <= 0 {
		c.RetryTemperature = 0.2
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = 300
	}
}

// Synthesizer produces fresh in-persona reply text.
type Synthesizer struct {
	gen       Generator
	catalog   *catalog.Catalog
	recency   *recency.Store
	validator *Validator
	cfg       Config
	logger    *slog.Logger
}

// New creates a Synthesizer. The validator decides what "looks sane" means
// for the persona's language.
func New(gen Generator, cat *catalog.Catalog, rec *recency.Store, validator *Validator, cfg Config, logger *slog.Logger) *Synthesizer {
	if logger == nil {
		logger = slog.Default()
	}
	cfg.applyDefaults()

	return &Synthesizer{
		gen:       gen,
		catalog:   cat,
		recency:   rec,
		validator: validator,
		cfg:       cfg,
		logger:    logger.With("component", "synth"),
	}
}

// Synthesize produces the reply for an inbound message given its routing
// verdict. Exemplars are only used when the router matched a group with
// confidence at or above the threshold; otherwise the model answers freely in
// persona. Never returns an empty string.
func (s *Synthesizer) Synthesize(ctx context.Context, input string, route router.Result, recencyKey string) string {
	var exemplars []string
	if route.Group != catalog.None && route.Confidence >= s.cfg.ConfidenceThreshold {
		exemplars = s.catalog.Exemplars(route.Group)
	}
	return s.run(ctx, input, exemplars, recencyKey)
}

// SynthesizeSeeded produces a scheduled message. The router is bypassed: the
// slot's meaning is the input and its seed examples act as exemplars.
func (s *Synthesizer) SynthesizeSeeded(ctx context.Context, meaning string, examples []string, recencyKey string) string {
	return s.run(ctx, meaning, examples, recencyKey)
}

func (s *Synthesizer) run(ctx context.Context, input string, exemplars []string, recencyKey string) string {
	// Read recency before generating so the context reflects what was
	// actually said up to this point.
	recent := s.recency.Recent(recencyKey, s.cfg.MaxRecent)
	userContext := s.buildContext(input, exemplars, recent)

	text, err := s.attempt(ctx, s.cfg.Persona, userContext, s.cfg.Temperature)
	if err != nil {
		s.logger.Warn("generation rejected, retrying stricter",
			"key", recencyKey, "error", err)

		stricter := s.cfg.Persona + "\n\n" + s.stricterInstruction()
		text, err = s.attempt(ctx, stricter, userContext, s.cfg.RetryTemperature)
	}
	if err != nil {
		s.logger.Warn("generation failed after retry, using fallback",
			"key", recencyKey, "error", err)
		return s.cfg.Fallback
	}

	// Only validated output enters recency memory; the fallback never does.
	s.recency.Remember(recencyKey, text)
	return text
}

// attempt runs one generation call and validates the output.
func (s *Synthesizer) attempt(ctx context.Context, system, userContext string, temperature float64) (string, error) {
	text, err := s.gen.Generate(ctx, system, userContext, llm.GenerateOptions{
		Temperature: temperature,
		MaxTokens:   s.cfg.MaxTokens,
	})
	if err != nil {
		return "", err
	}

	text = strings.TrimSpace(text)
	if err := s.validator.Validate(text); err != nil {
		return "", fmt.Errorf("output validation: %w", err)
	}
	return text, nil
}

func (s *Synthesizer) stricterInstruction() string {
	script := s.validator.ExpectedScript()
	if script == "" {
		return "Reply in the expected language only. Do not mix in other languages."
	}
	return fmt.Sprintf("Reply using the %s script only. Do not use any other language or script.", script)
}

// buildContext assembles the user-side prompt: references, anti-repetition
// history, then the actual input.
func (s *Synthesizer) buildContext(input string, exemplars, recent []string) string {
	var b strings.Builder

	if len(exemplars) > 0 {
		b.WriteString("Style and meaning references. Convey the same meaning, do not copy verbatim:\n")
		for i, ex := range exemplars {
			if i >= s.cfg.MaxExemplars {
				break
			}
			b.WriteString("- ")
			b.WriteString(ex)
			b.WriteString("\n")
		}
	} else {
		b.WriteString("No confident intent match. Respond freely, staying in persona.\n")
	}

	if len(recent) > 0 {
		b.WriteString("\nPreviously said. Avoid repeating the same structure or wording:\n")
		for _, r := range recent {
			b.WriteString("- ")
			b.WriteString(r)
			b.WriteString("\n")
		}
	}

	b.WriteString("\nMessage to respond to:\n")
	b.WriteString(input)
	return b.String()
}
