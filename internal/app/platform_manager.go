package app

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/Loggableim/pupcidslittletiktokhelper-sub011/internal/domain"
	"github.com/Loggableim/pupcidslittletiktokhelper-sub011/internal/interface/outs"
)

// ChatAdapter is a platform connection: it pushes chat in and sends replies out.
type ChatAdapter interface {
	outs.Sender
	SetHandler(h domain.MessageHandler)
	Start(ctx context.Context) error
}

type tokenUpdater interface {
	UpdateAccessToken(token string)
}

type ManagerConfig struct {
	Context  context.Context
	MultiOut *outs.MultiSender
	Logger   *log.Logger
}

// PlatformManager starts and stops chat adapters and keeps the reply router
// in sync with what is running.
type PlatformManager struct {
	ctx      context.Context
	multiOut *outs.MultiSender
	logger   *log.Logger

	handlerMu sync.RWMutex
	handler   domain.MessageHandler

	mu      sync.RWMutex
	running map[domain.Platform]*platformRuntime
	wg      sync.WaitGroup
}

type platformRuntime struct {
	cancel    context.CancelFunc
	adapter   ChatAdapter
	channelID string
	done      chan struct{}
}

func NewPlatformManager(cfg ManagerConfig) *PlatformManager {
	ctx := cfg.Context
	if ctx == nil {
		ctx = context.Background()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &PlatformManager{
		ctx:      ctx,
		multiOut: cfg.MultiOut,
		logger:   logger.WithPrefix("platforms"),
		running:  make(map[domain.Platform]*platformRuntime),
	}
}

func (m *PlatformManager) SetHandler(handler domain.MessageHandler) {
	m.handlerMu.Lock()
	m.handler = handler
	m.handlerMu.Unlock()

	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, rt := range m.running {
		rt.adapter.SetHandler(handler)
	}
}

func (m *PlatformManager) getHandler() domain.MessageHandler {
	m.handlerMu.RLock()
	defer m.handlerMu.RUnlock()
	return m.handler
}

// Enable starts adapter for platform, replacing whatever ran there before.
func (m *PlatformManager) Enable(platform domain.Platform, channelID string, adapter ChatAdapter) {
	m.Disable(platform)

	if h := m.getHandler(); h != nil {
		adapter.SetHandler(h)
	}
	if m.multiOut != nil {
		m.multiOut.Register(platform, adapter)
	}

	ctx, cancel := context.WithCancel(m.ctx)
	rt := &platformRuntime{
		cancel:    cancel,
		adapter:   adapter,
		channelID: channelID,
		done:      make(chan struct{}),
	}

	m.mu.Lock()
	m.running[platform] = rt
	m.mu.Unlock()

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer close(rt.done)
		err := adapter.Start(ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			m.logger.Error("adapter stopped", "platform", platform, "err", err)
			m.drop(platform, rt)
		}
	}()

	m.logger.Info("platform enabled", "platform", platform, "channel", channelID)
}

// drop forgets rt if it is still the runtime registered for platform.
func (m *PlatformManager) drop(platform domain.Platform, rt *platformRuntime) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running[platform] != rt {
		return
	}
	delete(m.running, platform)
	if m.multiOut != nil {
		m.multiOut.Unregister(platform)
	}
}

func (m *PlatformManager) Disable(platform domain.Platform) {
	m.mu.Lock()
	rt, ok := m.running[platform]
	if ok {
		delete(m.running, platform)
	}
	m.mu.Unlock()
	if !ok {
		return
	}

	rt.cancel()
	if m.multiOut != nil {
		m.multiOut.Unregister(platform)
	}
	m.logger.Info("platform disabled", "platform", platform)
}

// UpdateToken hands a refreshed access token to a running adapter.
func (m *PlatformManager) UpdateToken(platform domain.Platform, token string) bool {
	m.mu.RLock()
	rt, ok := m.running[platform]
	m.mu.RUnlock()
	if !ok {
		return false
	}
	u, ok := rt.adapter.(tokenUpdater)
	if !ok {
		return false
	}
	u.UpdateAccessToken(token)
	return true
}

func (m *PlatformManager) ChannelID(platform domain.Platform) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if rt, ok := m.running[platform]; ok {
		return rt.channelID
	}
	return ""
}

func (m *PlatformManager) Running() []domain.Platform {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.Platform, 0, len(m.running))
	for p := range m.running {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Shutdown stops every adapter and waits for them to return.
func (m *PlatformManager) Shutdown() {
	for _, p := range m.Running() {
		m.Disable(p)
	}
	m.wg.Wait()
}
