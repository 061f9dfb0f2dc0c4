// Package outs routes bot replies to the adapter of the platform they answer.
package outs

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/Loggableim/pupcidslittletiktokhelper-sub011/internal/domain"
)

var ErrNoSender = errors.New("outs: no sender registered")

// Sender is implemented by every chat adapter that can write to its platform.
type Sender interface {
	SendMessage(ctx context.Context, platform domain.Platform, channelID, text string) error
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(ctx context.Context, platform domain.Platform, channelID, text string) error

func (f SenderFunc) SendMessage(ctx context.Context, platform domain.Platform, channelID, text string) error {
	return f(ctx, platform, channelID, text)
}

// Observer sees every reply that was delivered.
type Observer func(platform domain.Platform, channelID, text string)

type MultiSender struct {
	mu       sync.RWMutex
	senders  map[domain.Platform]Sender
	observer Observer
}

var _ domain.OutgoingMessagePort = (*MultiSender)(nil)

func NewMultiSender() *MultiSender {
	return &MultiSender{
		senders: make(map[domain.Platform]Sender),
	}
}

func (m *MultiSender) Register(platform domain.Platform, sender Sender) {
	if m == nil || sender == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.senders[platform] = sender
}

func (m *MultiSender) Unregister(platform domain.Platform) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.senders, platform)
}

func (m *MultiSender) SetObserver(fn Observer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observer = fn
}

// Platforms lists the platforms with a registered sender, sorted.
func (m *MultiSender) Platforms() []domain.Platform {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.Platform, 0, len(m.senders))
	for p := range m.senders {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (m *MultiSender) SendMessage(ctx context.Context, platform domain.Platform, channelID, text string) error {
	if m == nil {
		return ErrNoSender
	}
	m.mu.RLock()
	sender, ok := m.senders[platform]
	observer := m.observer
	m.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w for platform %s", ErrNoSender, platform)
	}

	if err := sender.SendMessage(ctx, platform, channelID, text); err != nil {
		return err
	}
	if observer != nil {
		observer(platform, channelID, text)
	}
	return nil
}
