package events

import (
	"sync"

	"github.com/charmbracelet/log"
)

const (
	TopicChatMessage  = "chat:message"
	TopicNotification = "notifications:event"
	TopicAppError     = "app:error"

	TopicTTSStatus   = "tts:status"
	TopicTTSEnqueued = "tts:enqueued"
	TopicTTSReady    = "tts:ready"
	TopicTTSStarted  = "tts:started"
	TopicTTSEnded    = "tts:ended"
	TopicTTSError    = "tts:error"
	TopicTTSCleared  = "tts:cleared"
	TopicTTSSkipped  = "tts:skipped"

	defaultBufferSize = 128
)

// TTSTopics lists the bus topics forwarded to overlay and dashboard clients.
// tts:ready carries audio and goes out through domain.TTSEventPublisher.
var TTSTopics = []string{
	TopicTTSStatus,
	TopicTTSEnqueued,
	TopicTTSStarted,
	TopicTTSEnded,
	TopicTTSError,
	TopicTTSCleared,
	TopicTTSSkipped,
}

// Bus is an in-process fan-out. Slow subscribers lose messages instead of
// blocking publishers.
type Bus struct {
	mu        sync.RWMutex
	subs      map[string]map[int]chan any
	nextSubID int
	closed    bool
	logger    *log.Logger

	dropMu     sync.Mutex
	dropCounts map[string]uint64
}

func NewBus(logger *log.Logger) *Bus {
	if logger == nil {
		logger = log.Default()
	}
	return &Bus{
		subs:       make(map[string]map[int]chan any),
		dropCounts: make(map[string]uint64),
		logger:     logger.WithPrefix("events"),
	}
}

func (b *Bus) Publish(topic string, payload any) {
	if b == nil || topic == "" {
		return
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	for _, ch := range b.subs[topic] {
		select {
		case ch <- payload:
		default:
			b.recordDrop(topic)
		}
	}
}

// Subscribe returns a buffered channel for topic and a func that detaches it.
// The channel is closed on unsubscribe or Close.
func (b *Bus) Subscribe(topic string) (<-chan any, func()) {
	ch := make(chan any, defaultBufferSize)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	if b.subs[topic] == nil {
		b.subs[topic] = make(map[int]chan any)
	}
	id := b.nextSubID
	b.nextSubID++
	b.subs[topic][id] = ch
	b.mu.Unlock()

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			subs, ok := b.subs[topic]
			if !ok {
				return
			}
			if _, ok := subs[id]; !ok {
				return
			}
			delete(subs, id)
			if len(subs) == 0 {
				delete(b.subs, topic)
			}
			close(ch)
		})
	}
	return ch, unsubscribe
}

func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for topic, subs := range b.subs {
		for _, ch := range subs {
			close(ch)
		}
		delete(b.subs, topic)
	}
}

// Drops reports how many messages were lost for topic.
func (b *Bus) Drops(topic string) uint64 {
	b.dropMu.Lock()
	defer b.dropMu.Unlock()
	return b.dropCounts[topic]
}

func (b *Bus) recordDrop(topic string) {
	b.dropMu.Lock()
	defer b.dropMu.Unlock()
	b.dropCounts[topic]++
	if n := b.dropCounts[topic]; n%100 == 1 {
		b.logger.Warn("dropping messages", "topic", topic, "total", n)
	}
}
