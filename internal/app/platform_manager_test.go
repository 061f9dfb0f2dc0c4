package app

import (
	"context"
	"errors"
	"io"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/Loggableim/pupcidslittletiktokhelper-sub011/internal/domain"
	"github.com/Loggableim/pupcidslittletiktokhelper-sub011/internal/interface/outs"
)

type fakeAdapter struct {
	mu      sync.Mutex
	handler domain.MessageHandler
	token   string
	started chan struct{}
	fail    error
	sent    int
}

func newFakeAdapter() *fakeAdapter {
	return &fakeAdapter{started: make(chan struct{})}
}

func (f *fakeAdapter) SetHandler(h domain.MessageHandler) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handler = h
}

func (f *fakeAdapter) Start(ctx context.Context) error {
	close(f.started)
	if f.fail != nil {
		return f.fail
	}
	<-ctx.Done()
	return ctx.Err()
}

func (f *fakeAdapter) SendMessage(context.Context, domain.Platform, string, string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent++
	return nil
}

func (f *fakeAdapter) UpdateAccessToken(token string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.token = token
}

func (f *fakeAdapter) hasHandler() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.handler != nil
}

func waitStarted(t *testing.T, f *fakeAdapter) {
	t.Helper()
	select {
	case <-f.started:
	case <-time.After(time.Second):
		t.Fatal("adapter not started")
	}
}

func TestPlatformManagerLifecycle(t *testing.T) {
	out := outs.NewMultiSender()
	m := NewPlatformManager(ManagerConfig{MultiOut: out, Logger: log.New(io.Discard)})
	m.SetHandler(func(context.Context, domain.Message) error { return nil })

	kick := newFakeAdapter()
	m.Enable(domain.PlatformKick, "34", kick)
	waitStarted(t, kick)

	if !kick.hasHandler() {
		t.Fatal("handler not propagated")
	}
	if m.ChannelID(domain.PlatformKick) != "34" {
		t.Fatalf("channel = %q", m.ChannelID(domain.PlatformKick))
	}
	if err := out.SendMessage(context.Background(), domain.PlatformKick, "34", "hola"); err != nil || kick.sent != 1 {
		t.Fatalf("reply not routed: %v", err)
	}
	if !m.UpdateToken(domain.PlatformKick, "new") || kick.token != "new" {
		t.Fatal("token not forwarded")
	}
	if m.UpdateToken(domain.PlatformTwitch, "x") {
		t.Fatal("token accepted for a stopped platform")
	}

	m.Disable(domain.PlatformKick)
	if len(m.Running()) != 0 || len(out.Platforms()) != 0 {
		t.Fatalf("running=%v senders=%v", m.Running(), out.Platforms())
	}
	m.Shutdown()
}

func TestPlatformManagerDropsFailedAdapter(t *testing.T) {
	out := outs.NewMultiSender()
	m := NewPlatformManager(ManagerConfig{MultiOut: out, Logger: log.New(io.Discard)})

	bad := newFakeAdapter()
	bad.fail = errors.New("join refused")
	m.Enable(domain.PlatformTwitch, "#pupcid", bad)
	good := newFakeAdapter()
	m.Enable(domain.PlatformKick, "34", good)
	waitStarted(t, good)

	deadline := time.Now().Add(time.Second)
	for len(m.Running()) != 1 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if got := m.Running(); !reflect.DeepEqual(got, []domain.Platform{domain.PlatformKick}) {
		t.Fatalf("running = %v", got)
	}
	if got := out.Platforms(); !reflect.DeepEqual(got, []domain.Platform{domain.PlatformKick}) {
		t.Fatalf("senders = %v", got)
	}

	m.Shutdown()
	if len(m.Running()) != 0 {
		t.Fatal("shutdown left adapters running")
	}
}
