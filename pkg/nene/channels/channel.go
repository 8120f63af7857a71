// Package channels defines the interfaces and types for nene communication
// channels. A channel receives inbound events from a messaging platform and
// exposes the platform's reply (token-bound, synchronous path) and push
// (free-form broadcast) capabilities in a unified way.
package channels

import (
	"context"
	"time"
)

// Channel defines the interface every communication channel must implement.
type Channel interface {
	// Name returns the channel identifier (e.g. "line").
	Name() string

	// Connect establishes the connection to the messaging platform.
	Connect(ctx context.Context) error

	// Disconnect gracefully closes the connection.
	Disconnect() error

	// Reply answers an inbound event using its single-use reply token.
	Reply(ctx context.Context, replyToken, text string) error

	// Push sends a message to a recipient outside any inbound event.
	Push(ctx context.Context, to, text string) error

	// Receive returns a Go channel that emits incoming messages.
	Receive() <-chan *IncomingMessage

	// IsConnected returns true if the channel is connected.
	IsConnected() bool

	// Health returns the channel health status.
	Health() HealthStatus
}

// IncomingMessage represents a text message received from any channel.
type IncomingMessage struct {
	// ID is the unique message identifier in the source channel.
	ID string

	// Channel identifies the source channel (e.g. "line").
	Channel string

	// From is the sender identifier on the platform.
	From string

	// ReplyToken is the platform token for answering this event.
	// May be empty on platforms without a reply path.
	ReplyToken string

	// Content is the text content of the message.
	Content string

	// Timestamp is when the message was sent.
	Timestamp time.Time
}

// HealthStatus describes the current state of a channel.
type HealthStatus struct {
	// Connected indicates whether the channel is currently connected.
	Connected bool

	// LastMessage is when the last inbound message arrived.
	LastMessage time.Time

	// ErrorCount is the number of consecutive send errors.
	ErrorCount int64
}
