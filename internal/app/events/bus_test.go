package events

import (
	"io"
	"testing"

	"github.com/charmbracelet/log"
)

func TestBusPublishSubscribe(t *testing.T) {
	bus := NewBus(log.New(io.Discard))
	ch, unsubscribe := bus.Subscribe(TopicTTSStarted)
	defer unsubscribe()

	bus.Publish(TopicTTSStarted, "hello")
	bus.Publish(TopicTTSEnded, "ignored")

	select {
	case got := <-ch:
		if got != "hello" {
			t.Fatalf("payload = %v", got)
		}
	default:
		t.Fatal("expected a message")
	}
	select {
	case got := <-ch:
		t.Fatalf("unexpected message %v", got)
	default:
	}
}

func TestBusDropsWhenFull(t *testing.T) {
	bus := NewBus(log.New(io.Discard))
	_, unsubscribe := bus.Subscribe(TopicTTSStatus)
	defer unsubscribe()

	for i := 0; i < defaultBufferSize+5; i++ {
		bus.Publish(TopicTTSStatus, i)
	}
	if got := bus.Drops(TopicTTSStatus); got != 5 {
		t.Fatalf("drops = %d, want 5", got)
	}
}

func TestBusUnsubscribeClosesChannel(t *testing.T) {
	bus := NewBus(log.New(io.Discard))
	ch, unsubscribe := bus.Subscribe(TopicTTSError)
	unsubscribe()
	unsubscribe()

	if _, ok := <-ch; ok {
		t.Fatal("channel should be closed")
	}
	bus.Publish(TopicTTSError, "after")
}

func TestBusClose(t *testing.T) {
	bus := NewBus(log.New(io.Discard))
	ch, unsubscribe := bus.Subscribe(TopicTTSReady)
	bus.Close()
	unsubscribe()

	if _, ok := <-ch; ok {
		t.Fatal("channel should be closed after Close")
	}
	bus.Publish(TopicTTSReady, "x")

	late, _ := bus.Subscribe(TopicTTSReady)
	if _, ok := <-late; ok {
		t.Fatal("subscribing to a closed bus yields a closed channel")
	}
}
