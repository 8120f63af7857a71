// Package bot implements the main orchestrator for nene.
// Message flow: receive → remember sender → route intent → synthesize reply →
// send. A parallel dispatcher fires the daily broadcast slots through the
// same synthesis machinery.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jholhewres/nene/pkg/nene/catalog"
	"github.com/jholhewres/nene/pkg/nene/channels"
	"github.com/jholhewres/nene/pkg/nene/llm"
	"github.com/jholhewres/nene/pkg/nene/recency"
	"github.com/jholhewres/nene/pkg/nene/registry"
	"github.com/jholhewres/nene/pkg/nene/router"
	"github.com/jholhewres/nene/pkg/nene/scheduler"
	"github.com/jholhewres/nene/pkg/nene/synth"
)

// Capabilities bundles the external AI capabilities. A zero value means
// "build an LLM client from the config"; tests inject fakes here.
type Capabilities struct {
	Classifier router.Classifier
	Generator  synth.Generator
}

// Bot is the main orchestrator for nene.
type Bot struct {
	config *Config

	// channelMgr manages communication channels.
	channelMgr *channels.Manager

	// catalog holds the exemplar groups, built once from the reply table.
	catalog *catalog.Catalog

	// recencyStore tracks recently emitted texts per group/slot.
	recencyStore *recency.Store

	// recipients is the broadcast audience, grown from inbound senders.
	recipients *registry.Registry

	// router classifies inbound text into intent groups.
	router *router.Router

	// synthesizer produces fresh in-persona reply text.
	synthesizer *synth.Synthesizer

	// dispatcher fires the daily broadcast slots.
	dispatcher *scheduler.Dispatcher

	// history is the dispatch log (nil when disabled).
	history scheduler.DispatchLog

	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a Bot with all dependencies wired from the config.
func New(cfg *Config, caps Capabilities, logger *slog.Logger) (*Bot, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}

	if caps.Classifier == nil || caps.Generator == nil {
		client := llm.New(cfg.API.APIKey, cfg.Model, llm.Options{BaseURL: cfg.API.BaseURL}, logger)
		if caps.Classifier == nil {
			caps.Classifier = client
		}
		if caps.Generator == nil {
			caps.Generator = client
		}
	}

	cat := catalog.Build(cfg.Replies)
	if cat.Len() == 0 {
		return nil, fmt.Errorf("reply table is empty: nothing to route to")
	}

	rec := recency.New(cfg.Recency.MaxPerKey)
	validator := synth.NewValidator(
		cfg.Language.Script,
		cfg.Language.ForbiddenScripts,
		cfg.Language.MaxForeignLetters,
	)

	synthesizer := synth.New(caps.Generator, cat, rec, validator, synth.Config{
		Persona:             cfg.Persona,
		Fallback:            cfg.Fallback,
		ConfidenceThreshold: cfg.Routing.ConfidenceThreshold,
		MaxRecent:           cfg.Recency.ContextEntries,
	}, logger)

	b := &Bot{
		config:       cfg,
		channelMgr:   channels.NewManager(logger.With("component", "channels")),
		catalog:      cat,
		recencyStore: rec,
		recipients:   registry.New(),
		router:       router.New(cat, caps.Classifier, logger),
		synthesizer:  synthesizer,
		logger:       logger,
	}

	location := time.Local
	if cfg.Timezone != "" {
		loc, err := time.LoadLocation(cfg.Timezone)
		if err != nil {
			return nil, fmt.Errorf("invalid timezone %q: %w", cfg.Timezone, err)
		}
		location = loc
	}

	if cfg.History.Enabled {
		history, err := scheduler.OpenSQLiteDispatchLog(cfg.History.Path)
		if err != nil {
			return nil, fmt.Errorf("opening dispatch history: %w", err)
		}
		b.history = history
	}

	b.dispatcher = scheduler.New(
		cfg.Slots,
		synthesizer,
		&channelPusher{mgr: b.channelMgr, channel: cfg.Channels.Default},
		b.recipients,
		b.history,
		location,
		logger,
	)

	return b, nil
}

// Start initializes and starts all subsystems.
// Missing capability credentials are fatal here; everything after startup is
// recovered locally.
func (b *Bot) Start(ctx context.Context) error {
	if b.config.API.APIKey == "" {
		return fmt.Errorf("LLM API key not configured (nene config set-key, or NENE_API_KEY)")
	}

	b.ctx, b.cancel = context.WithCancel(ctx)

	b.logger.Info("starting nene",
		"name", b.config.Name,
		"model", b.config.Model,
		"groups", b.catalog.Len(),
		"slots", len(b.config.Slots),
	)

	if err := b.channelMgr.Start(b.ctx); err != nil {
		return fmt.Errorf("failed to start channels: %w", err)
	}

	if err := b.dispatcher.Start(b.ctx); err != nil {
		return fmt.Errorf("failed to start dispatcher: %w", err)
	}

	go b.messageLoop()

	b.logger.Info("nene started")
	return nil
}

// Stop gracefully shuts down all subsystems.
func (b *Bot) Stop() {
	b.logger.Info("stopping nene...")

	if b.cancel != nil {
		b.cancel()
	}

	b.dispatcher.Stop()
	b.channelMgr.Stop()

	if b.history != nil {
		if err := b.history.Close(); err != nil {
			b.logger.Error("failed to close dispatch history", "error", err)
		}
	}

	b.logger.Info("nene stopped")
}

// ChannelManager returns the channel manager for external registration.
func (b *Bot) ChannelManager() *channels.Manager {
	return b.channelMgr
}

// Respond runs the route → synthesize pipeline for one input and returns the
// reply text. Used by the inbound path and the CLI chat command.
func (b *Bot) Respond(ctx context.Context, text string) string {
	result := b.router.Route(ctx, text)

	// The recency key is the matched group, or "none" for the generic path.
	return b.synthesizer.Synthesize(ctx, text, result, string(result.Group))
}

// messageLoop is the main loop processing messages from all channels.
func (b *Bot) messageLoop() {
	for {
		select {
		case msg, ok := <-b.channelMgr.Messages():
			if !ok {
				return
			}
			go b.handleMessage(msg)

		case <-b.ctx.Done():
			return
		}
	}
}

// handleMessage processes one inbound message end to end. Every failure mode
// downstream resolves to some in-persona text, so the only way to stay silent
// is the transport itself failing.
func (b *Bot) handleMessage(msg *channels.IncomingMessage) {
	start := time.Now()
	logger := b.logger.With(
		"channel", msg.Channel,
		"from", msg.From,
		"msg_id", msg.ID,
	)

	// Remember the sender for future broadcasts before anything can fail.
	b.recipients.Remember(msg.From)

	reply := b.Respond(b.ctx, msg.Content)

	var err error
	if msg.ReplyToken != "" {
		err = b.channelMgr.Reply(b.ctx, msg.Channel, msg.ReplyToken, reply)
	} else {
		err = b.channelMgr.Push(b.ctx, msg.Channel, msg.From, reply)
	}
	if err != nil {
		logger.Error("failed to send reply", "error", err)
		return
	}

	logger.Info("message processed",
		"duration_ms", time.Since(start).Milliseconds(),
	)
}

// channelPusher adapts the channel manager to the dispatcher's Pusher.
type channelPusher struct {
	mgr     *channels.Manager
	channel string
}

func (p *channelPusher) Push(ctx context.Context, to, text string) error {
	return p.mgr.Push(ctx, p.channel, to, text)
}
