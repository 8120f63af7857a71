package line

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

const testSecret = "test-channel-secret"

func sign(body string) string {
	mac := hmac.New(sha256.New, []byte(testSecret))
	mac.Write([]byte(body))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func newTestLine() *Line {
	cfg := DefaultConfig()
	cfg.ChannelSecret = testSecret
	cfg.ChannelToken = "test-token"
	l := New(cfg, nil)
	l.connected.Store(true)
	return l
}

const sampleEvent = `{"events":[{"type":"message","replyToken":"rt-1","timestamp":1700000000000,` +
	`"source":{"type":"user","userId":"U1234"},` +
	`"message":{"id":"m1","type":"text","text":"สวัสดี"}}]}`

func TestWebhookValidSignature(t *testing.T) {
	l := newTestLine()

	req := httptest.NewRequest(http.MethodPost, "/callback", strings.NewReader(sampleEvent))
	req.Header.Set("X-Line-Signature", sign(sampleEvent))
	rec := httptest.NewRecorder()

	l.handleWebhook(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	select {
	case msg := <-l.Receive():
		if msg.From != "U1234" || msg.Content != "สวัสดี" || msg.ReplyToken != "rt-1" {
			t.Errorf("unexpected message: %+v", msg)
		}
		if msg.Channel != "line" || msg.ID != "m1" {
			t.Errorf("unexpected metadata: %+v", msg)
		}
	case <-time.After(time.Second):
		t.Fatal("no message forwarded")
	}
}

func TestWebhookBadSignature(t *testing.T) {
	l := newTestLine()

	req := httptest.NewRequest(http.MethodPost, "/callback", strings.NewReader(sampleEvent))
	req.Header.Set("X-Line-Signature", sign("different body"))
	rec := httptest.NewRecorder()

	l.handleWebhook(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad signature, got %d", rec.Code)
	}
	select {
	case msg := <-l.Receive():
		t.Errorf("message forwarded despite bad signature: %+v", msg)
	default:
	}
}

func TestWebhookMissingSignature(t *testing.T) {
	l := newTestLine()

	req := httptest.NewRequest(http.MethodPost, "/callback", strings.NewReader(sampleEvent))
	rec := httptest.NewRecorder()

	l.handleWebhook(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for missing signature, got %d", rec.Code)
	}
}

func TestWebhookIgnoresNonTextEvents(t *testing.T) {
	l := newTestLine()

	body := `{"events":[{"type":"follow","source":{"type":"user","userId":"U9"}},` +
		`{"type":"message","source":{"type":"user","userId":"U9"},` +
		`"message":{"id":"m2","type":"sticker"}}]}`
	req := httptest.NewRequest(http.MethodPost, "/callback", strings.NewReader(body))
	req.Header.Set("X-Line-Signature", sign(body))
	rec := httptest.NewRecorder()

	l.handleWebhook(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	select {
	case msg := <-l.Receive():
		t.Errorf("non-text event forwarded: %+v", msg)
	default:
	}
}

func TestReplyAndPush(t *testing.T) {
	type apiCall struct {
		path string
		body map[string]any
	}
	var calls []apiCall

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-token" {
			t.Errorf("unexpected auth: %q", auth)
		}
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		calls = append(calls, apiCall{path: r.URL.Path, body: body})
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cfg := DefaultConfig()
	cfg.ChannelSecret = testSecret
	cfg.ChannelToken = "test-token"
	cfg.APIBase = srv.URL
	l := New(cfg, nil)

	if err := l.Reply(context.Background(), "rt-9", "ตอบกลับ"); err != nil {
		t.Fatalf("Reply failed: %v", err)
	}
	if err := l.Push(context.Background(), "U77", "ประกาศ"); err != nil {
		t.Fatalf("Push failed: %v", err)
	}

	if len(calls) != 2 {
		t.Fatalf("expected 2 API calls, got %d", len(calls))
	}
	if calls[0].path != "/v2/bot/message/reply" || calls[0].body["replyToken"] != "rt-9" {
		t.Errorf("unexpected reply call: %+v", calls[0])
	}
	if calls[1].path != "/v2/bot/message/push" || calls[1].body["to"] != "U77" {
		t.Errorf("unexpected push call: %+v", calls[1])
	}
}

func TestPushErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"message":"invalid user"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	cfg := DefaultConfig()
	cfg.ChannelSecret = testSecret
	cfg.ChannelToken = "test-token"
	cfg.APIBase = srv.URL
	l := New(cfg, nil)

	if err := l.Push(context.Background(), "bad", "x"); err == nil {
		t.Fatal("expected error on non-200 response")
	}
	if l.Health().ErrorCount != 1 {
		t.Errorf("error count not tracked: %+v", l.Health())
	}
}

func TestConnectRequiresCredentials(t *testing.T) {
	l := New(DefaultConfig(), nil)
	if err := l.Connect(context.Background()); err == nil {
		t.Fatal("expected error without credentials")
	}
}
