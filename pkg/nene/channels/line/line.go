// Package line implements the LINE channel for nene using the LINE Messaging
// API — no external dependencies beyond HTTP.
//
// Inbound: LINE delivers events to a webhook endpoint; every request carries
// an X-Line-Signature header (base64 HMAC-SHA256 of the raw body, keyed by
// the channel secret) that is verified before any parsing.
// Outbound: the reply endpoint consumes the event's single-use reply token;
// the push endpoint addresses a user id directly.
package line

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/jholhewres/nene/pkg/nene/channels"
)

// Config holds LINE channel configuration.
type Config struct {
	// ChannelSecret signs webhook payloads (from the LINE developer console).
	ChannelSecret string `yaml:"channel_secret"`

	// ChannelToken is the long-lived channel access token for the
	// Messaging API.
	ChannelToken string `yaml:"channel_token"`

	// ListenAddr is the webhook server bind address.
	ListenAddr string `yaml:"listen_addr"`

	// WebhookPath is the path LINE posts events to.
	WebhookPath string `yaml:"webhook_path"`

	// APIBase overrides the Messaging API endpoint (tests only).
	APIBase string `yaml:"api_base"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		ListenAddr:  ":5000",
		WebhookPath: "/callback",
		APIBase:     "https://api.line.me",
	}
}

// Line implements channels.Channel over the LINE Messaging API.
type Line struct {
	cfg    Config
	logger *slog.Logger
	client *http.Client

	// server is the webhook HTTP server.
	server *http.Server

	// messages forwards incoming text messages to the bot.
	messages chan *channels.IncomingMessage

	connected  atomic.Bool
	lastMsg    atomic.Value // time.Time
	errorCount atomic.Int64

	// closeOnce guards the messages channel against double close.
	closeOnce sync.Once

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a new LINE channel instance.
func New(cfg Config, logger *slog.Logger) *Line {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":5000"
	}
	if cfg.WebhookPath == "" {
		cfg.WebhookPath = "/callback"
	}
	if cfg.APIBase == "" {
		cfg.APIBase = "https://api.line.me"
	}
	cfg.APIBase = strings.TrimRight(cfg.APIBase, "/")

	return &Line{
		cfg:      cfg,
		logger:   logger.With("component", "line"),
		client:   &http.Client{Timeout: 30 * time.Second},
		messages: make(chan *channels.IncomingMessage, 256),
	}
}

// ---------- Channel Interface ----------

// Name returns "line".
func (l *Line) Name() string { return "line" }

// Connect starts the webhook server for receiving events.
func (l *Line) Connect(ctx context.Context) error {
	if l.cfg.ChannelSecret == "" {
		return fmt.Errorf("line: channel_secret is required")
	}
	if l.cfg.ChannelToken == "" {
		return fmt.Errorf("line: channel_token is required")
	}

	l.ctx, l.cancel = context.WithCancel(ctx)

	mux := http.NewServeMux()
	mux.HandleFunc(l.cfg.WebhookPath, l.handleWebhook)

	l.server = &http.Server{
		Addr:              l.cfg.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		l.logger.Info("webhook server listening",
			"addr", l.cfg.ListenAddr,
			"path", l.cfg.WebhookPath,
		)
		if err := l.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.logger.Error("webhook server stopped", "error", err)
			l.connected.Store(false)
		}
	}()

	l.connected.Store(true)
	return nil
}

// Disconnect shuts down the webhook server and closes the message stream.
func (l *Line) Disconnect() error {
	if l.cancel != nil {
		l.cancel()
	}
	l.connected.Store(false)

	if l.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := l.server.Shutdown(ctx); err != nil {
			return fmt.Errorf("shutting down webhook server: %w", err)
		}
	}

	l.closeOnce.Do(func() { close(l.messages) })
	return nil
}

// Receive returns the stream of incoming text messages.
func (l *Line) Receive() <-chan *channels.IncomingMessage {
	return l.messages
}

// IsConnected reports whether the webhook server is up.
func (l *Line) IsConnected() bool {
	return l.connected.Load()
}

// Health returns the channel health status.
func (l *Line) Health() channels.HealthStatus {
	status := channels.HealthStatus{
		Connected:  l.connected.Load(),
		ErrorCount: l.errorCount.Load(),
	}
	if t, ok := l.lastMsg.Load().(time.Time); ok {
		status.LastMessage = t
	}
	return status
}

// ---------- Outbound ----------

// textMessage is a LINE text message object.
type textMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Reply answers an event using its reply token. Reply tokens are single-use
// and expire quickly, so failures are final (no retry by push).
func (l *Line) Reply(ctx context.Context, replyToken, text string) error {
	body := struct {
		ReplyToken string        `json:"replyToken"`
		Messages   []textMessage `json:"messages"`
	}{
		ReplyToken: replyToken,
		Messages:   []textMessage{{Type: "text", Text: text}},
	}
	return l.post(ctx, "/v2/bot/message/reply", body)
}

// Push sends a message directly to a user id.
func (l *Line) Push(ctx context.Context, to, text string) error {
	body := struct {
		To       string        `json:"to"`
		Messages []textMessage `json:"messages"`
	}{
		To:       to,
		Messages: []textMessage{{Type: "text", Text: text}},
	}
	return l.post(ctx, "/v2/bot/message/push", body)
}

func (l *Line) post(ctx context.Context, path string, body any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshaling %s payload: %w", path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.cfg.APIBase+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+l.cfg.ChannelToken)

	resp, err := l.client.Do(req)
	if err != nil {
		l.errorCount.Add(1)
		return fmt.Errorf("LINE API request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		l.errorCount.Add(1)
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("LINE API %s returned %d: %s", path, resp.StatusCode, respBody)
	}

	l.errorCount.Store(0)
	return nil
}

// ---------- Inbound ----------

// webhookPayload is the LINE webhook request body.
type webhookPayload struct {
	Events []struct {
		Type       string `json:"type"`
		ReplyToken string `json:"replyToken"`
		Timestamp  int64  `json:"timestamp"`
		Source     struct {
			Type   string `json:"type"`
			UserID string `json:"userId"`
		} `json:"source"`
		Message struct {
			ID   string `json:"id"`
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"message"`
	} `json:"events"`
}

// handleWebhook verifies the signature and forwards text message events.
// LINE expects a 200 quickly; event processing happens downstream.
func (l *Line) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !l.connected.Load() {
		http.Error(w, "shutting down", http.StatusServiceUnavailable)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		http.Error(w, "read error", http.StatusBadRequest)
		return
	}

	if !l.validSignature(body, r.Header.Get("X-Line-Signature")) {
		l.logger.Warn("webhook signature mismatch", "remote", r.RemoteAddr)
		http.Error(w, "invalid signature", http.StatusBadRequest)
		return
	}

	var payload webhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		l.logger.Warn("malformed webhook payload", "error", err)
		http.Error(w, "bad payload", http.StatusBadRequest)
		return
	}

	for _, ev := range payload.Events {
		if ev.Type != "message" || ev.Message.Type != "text" {
			continue
		}

		id := ev.Message.ID
		if id == "" {
			id = uuid.NewString()
		}

		msg := &channels.IncomingMessage{
			ID:         id,
			Channel:    "line",
			From:       ev.Source.UserID,
			ReplyToken: ev.ReplyToken,
			Content:    ev.Message.Text,
			Timestamp:  time.UnixMilli(ev.Timestamp),
		}

		l.lastMsg.Store(time.Now())

		select {
		case l.messages <- msg:
		default:
			l.logger.Warn("message buffer full, dropping event", "msg_id", id)
		}
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// validSignature checks the X-Line-Signature header against the channel
// secret: base64(HMAC-SHA256(secret, body)).
func (l *Line) validSignature(body []byte, signature string) bool {
	if signature == "" {
		return false
	}

	expected, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, []byte(l.cfg.ChannelSecret))
	mac.Write(body)
	return hmac.Equal(expected, mac.Sum(nil))
}
