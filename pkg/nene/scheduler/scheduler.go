// Package scheduler implements the daily broadcast dispatcher. Uses
// robfig/cron for recurrence: each configured slot becomes one cron entry
// that fires at its time of day, synthesizes a fresh message seeded with the
// slot's meaning and examples, and pushes it to every known recipient.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
)

// Slot is one recurring broadcast, fixed at startup.
type Slot struct {
	// ID identifies the slot and keys its recency history.
	ID string `yaml:"id"`

	// Meaning is the prompt describing what the message should convey.
	Meaning string `yaml:"meaning"`

	// Examples are sample phrasings used as style references.
	Examples []string `yaml:"examples"`

	// At is the local time of day the slot fires, "HH:MM".
	At string `yaml:"at"`
}

// Synthesizer is the message synthesis capability used by the dispatcher.
type Synthesizer interface {
	SynthesizeSeeded(ctx context.Context, meaning string, examples []string, recencyKey string) string
}

// Pusher delivers one message to one recipient.
type Pusher interface {
	Push(ctx context.Context, to, text string) error
}

// Recipients provides the broadcast audience at fire time.
type Recipients interface {
	Snapshot() []string
}

// Dispatcher fires slots on schedule and broadcasts the synthesized text.
type Dispatcher struct {
	slots      []Slot
	synth      Synthesizer
	pusher     Pusher
	recipients Recipients
	history    DispatchLog
	location   *time.Location

	cron   *cron.Cron
	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a Dispatcher. history may be nil (firings are then only
// logged). location defaults to time.Local.
func New(slots []Slot, synth Synthesizer, pusher Pusher, recipients Recipients, history DispatchLog, location *time.Location, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	if location == nil {
		location = time.Local
	}

	return &Dispatcher{
		slots:      slots,
		synth:      synth,
		pusher:     pusher,
		recipients: recipients,
		history:    history,
		location:   location,
		logger:     logger.With("component", "dispatcher"),
	}
}

// Start registers all slots and begins the cron loop. Invalid slot times are
// fatal: the schedule is static configuration and a bad entry means a broken
// deployment, not a runtime condition to recover from.
func (d *Dispatcher) Start(ctx context.Context) error {
	d.ctx, d.cancel = context.WithCancel(ctx)
	d.cron = cron.New(cron.WithLocation(d.location))

	for _, slot := range d.slots {
		spec, err := cronSpec(slot.At)
		if err != nil {
			return fmt.Errorf("slot %q: %w", slot.ID, err)
		}

		// Capture for the closure; each slot fires independently so a slow
		// or failing slot cannot block the others.
		s := slot
		if _, err := d.cron.AddFunc(spec, func() { d.fire(s) }); err != nil {
			return fmt.Errorf("slot %q: registering cron entry: %w", slot.ID, err)
		}

		d.logger.Info("slot scheduled", "slot", slot.ID, "at", slot.At)
	}

	d.cron.Start()
	d.logger.Info("dispatcher started", "slots", len(d.slots), "timezone", d.location.String())
	return nil
}

// Stop halts the cron loop. Firings already in progress run to completion.
func (d *Dispatcher) Stop() {
	if d.cancel != nil {
		d.cancel()
	}
	if d.cron != nil {
		d.cron.Stop()
	}
	d.logger.Info("dispatcher stopped")
}

// fire synthesizes the slot's message and pushes it to every recipient known
// at fire time. Per-recipient failures are isolated: one bad recipient never
// aborts the batch, and the dispatch record is written regardless.
func (d *Dispatcher) fire(slot Slot) {
	ctx := d.ctx
	if ctx == nil {
		ctx = context.Background()
	}

	start := time.Now()
	text := d.synth.SynthesizeSeeded(ctx, slot.Meaning, slot.Examples, slot.ID)

	// Snapshot before sending: recipients added mid-dispatch wait for the
	// next firing.
	audience := d.recipients.Snapshot()

	var failures int
	for _, id := range audience {
		if err := d.pusher.Push(ctx, id, text); err != nil {
			failures++
			d.logger.Warn("push failed",
				"slot", slot.ID,
				"recipient", id,
				"error", err,
			)
		}
	}

	d.logger.Info("slot fired",
		"slot", slot.ID,
		"recipients", len(audience),
		"failures", failures,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if d.history != nil {
		rec := &Record{
			ID:         uuid.NewString(),
			SlotID:     slot.ID,
			Text:       text,
			FiredAt:    start.UTC(),
			Recipients: len(audience),
			Failures:   failures,
		}
		if err := d.history.Record(rec); err != nil {
			d.logger.Error("failed to record dispatch", "slot", slot.ID, "error", err)
		}
	}
}

// cronSpec translates "HH:MM" into a 5-field daily cron expression.
func cronSpec(at string) (string, error) {
	parts := strings.SplitN(at, ":", 2)
	if len(parts) != 2 {
		return "", fmt.Errorf("invalid time %q, want HH:MM", at)
	}

	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return "", fmt.Errorf("invalid hour in %q", at)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return "", fmt.Errorf("invalid minute in %q", at)
	}

	return fmt.Sprintf("%d %d * * *", minute, hour), nil
}
