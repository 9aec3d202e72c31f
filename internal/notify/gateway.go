// Package notify provides a unified interface for outbound notification channels (email, logs).
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// ChannelEmail is the channel name used for email delivery.
const ChannelEmail = "email"

// Message is a notification to deliver via any channel.
type Message struct {
	Channel string
	To      string // address on the channel, e.g. an email address
	Name    string // recipient display name
	Subject string
	Text    string
	HTML    string
}

// Channel is the interface each delivery backend must implement.
type Channel interface {
	Send(ctx context.Context, msg Message) error
}

// Gateway routes messages to registered channels.
type Gateway struct {
	channels map[string]Channel
	mu       sync.RWMutex
}

// NewGateway creates a new notification gateway.
func NewGateway() *Gateway {
	return &Gateway{
		channels: make(map[string]Channel),
	}
}

// Register adds a channel to the gateway.
func (g *Gateway) Register(name string, ch Channel) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.channels[name] = ch
	slog.Info("notify channel registered", "channel", name)
}

// HasChannel returns true if the named channel is registered.
func (g *Gateway) HasChannel(name string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.channels[name]
	return ok
}

// Send dispatches a message to the appropriate channel.
func (g *Gateway) Send(ctx context.Context, msg Message) error {
	g.mu.RLock()
	ch, ok := g.channels[msg.Channel]
	g.mu.RUnlock()

	if !ok {
		return fmt.Errorf("unknown channel: %s", msg.Channel)
	}

	return ch.Send(ctx, msg)
}

// LogChannel writes messages to the log instead of delivering them.
type LogChannel struct{}

func (LogChannel) Send(_ context.Context, msg Message) error {
	slog.Info("notification",
		"channel", msg.Channel,
		"to", msg.To,
		"subject", msg.Subject,
		"text", msg.Text,
	)
	return nil
}

// MockChannel is a test double for Channel.
type MockChannel struct {
	mu   sync.Mutex
	Sent []Message
	Err  error
}

func (m *MockChannel) Send(_ context.Context, msg Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Sent = append(m.Sent, msg)
	return nil
}

// Messages returns a copy of the sent messages.
func (m *MockChannel) Messages() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Message{}, m.Sent...)
}
