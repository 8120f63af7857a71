// manager.go manages multiple communication channels at once, providing a
// single entry point for receiving messages from every platform and routing
// replies and pushes back to the right one.
package channels

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Manager orchestrates registered channels, aggregating incoming messages
// into a single stream and routing outgoing traffic.
type Manager struct {
	// channels stores all registered channels, indexed by name.
	channels map[string]Channel

	// messages is the aggregated stream of messages from all channels.
	messages chan *IncomingMessage

	logger *slog.Logger

	// listenWg tracks listener goroutines for safe shutdown.
	listenWg sync.WaitGroup

	mu     sync.RWMutex
	ctx    context.Context
	cancel context.CancelFunc
}

// NewManager creates a channel manager with the given logger.
func NewManager(logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}

	return &Manager{
		channels: make(map[string]Channel),
		messages: make(chan *IncomingMessage, 256),
		logger:   logger,
	}
}

// Register adds a channel to the manager. Must be called before Start.
func (m *Manager) Register(ch Channel) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	name := ch.Name()
	if _, exists := m.channels[name]; exists {
		return fmt.Errorf("channel %q already registered", name)
	}

	m.channels[name] = ch
	m.logger.Info("channel registered", "channel", name)
	return nil
}

// Start connects all registered channels and begins listening for messages.
// Channels that fail to connect are logged but do not block the others.
// Returns an error only when channels were registered and none connected.
func (m *Manager) Start(ctx context.Context) error {
	m.ctx, m.cancel = context.WithCancel(ctx)

	// Snapshot under lock to avoid racing with Register.
	m.mu.RLock()
	snapshot := make(map[string]Channel, len(m.channels))
	for k, v := range m.channels {
		snapshot[k] = v
	}
	m.mu.RUnlock()

	if len(snapshot) == 0 {
		m.logger.Warn("no channels registered, running without messaging")
		return nil
	}

	var connected int
	for name, ch := range snapshot {
		if err := ch.Connect(m.ctx); err != nil {
			m.logger.Error("failed to connect channel",
				"channel", name,
				"error", err,
			)
			continue
		}

		connected++
		m.logger.Info("channel connected", "channel", name)

		m.listenWg.Add(1)
		go func(c Channel) {
			defer m.listenWg.Done()
			m.listenChannel(c)
		}(ch)
	}

	if connected == 0 {
		return fmt.Errorf("no channel connected successfully")
	}

	m.logger.Info("channel manager started", "channels_connected", connected)
	return nil
}

// Stop disconnects all channels gracefully. Channels are disconnected first
// so their Receive streams close and the listener goroutines can drain before
// the aggregated stream is closed.
func (m *Manager) Stop() {
	m.mu.RLock()
	for name, ch := range m.channels {
		if err := ch.Disconnect(); err != nil {
			m.logger.Error("error disconnecting channel",
				"channel", name,
				"error", err,
			)
		}
	}
	m.mu.RUnlock()

	if m.cancel != nil {
		m.cancel()
	}

	m.listenWg.Wait()

	close(m.messages)
	m.logger.Info("channel manager stopped")
}

// Messages returns the aggregated stream of messages from all platforms.
func (m *Manager) Messages() <-chan *IncomingMessage {
	return m.messages
}

// Reply answers an inbound event through the channel it arrived on.
func (m *Manager) Reply(ctx context.Context, channelName, replyToken, text string) error {
	ch, err := m.connectedChannel(channelName)
	if err != nil {
		return err
	}
	return ch.Reply(ctx, replyToken, text)
}

// Push sends a message to a recipient through the named channel.
func (m *Manager) Push(ctx context.Context, channelName, to, text string) error {
	ch, err := m.connectedChannel(channelName)
	if err != nil {
		return err
	}
	return ch.Push(ctx, to, text)
}

// Channel returns a specific channel by name.
func (m *Manager) Channel(name string) (Channel, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ch, ok := m.channels[name]
	return ch, ok
}

// HealthAll returns the health status of every registered channel.
func (m *Manager) HealthAll() map[string]HealthStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()

	statuses := make(map[string]HealthStatus, len(m.channels))
	for name, ch := range m.channels {
		statuses[name] = ch.Health()
	}
	return statuses
}

func (m *Manager) connectedChannel(name string) (Channel, error) {
	m.mu.RLock()
	ch, exists := m.channels[name]
	m.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("channel %q not found", name)
	}
	if !ch.IsConnected() {
		return nil, fmt.Errorf("channel %q disconnected", name)
	}
	return ch, nil
}

// listenChannel forwards one channel's messages into the aggregated stream.
func (m *Manager) listenChannel(ch Channel) {
	for msg := range ch.Receive() {
		select {
		case m.messages <- msg:
		case <-m.ctx.Done():
			return
		}
	}
}
