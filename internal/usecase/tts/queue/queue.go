// Package queue orders pending speech requests by priority, FIFO on ties.
// It is not safe for concurrent use; the runner guards it.
package queue

import (
	"container/heap"
	"errors"
	"sort"
	"time"

	"github.com/Loggableim/pupcidslittletiktokhelper-sub011/internal/domain"
)

const DefaultMaxSize = 50

var ErrQueueFull = errors.New("queue: full")

// Priority weights.
const (
	TeamLevelWeight = 10
	SubscriberBonus = 5
	GiftBonus       = 20
	ManualBonus     = 50
)

// Priority scores a request. It is computed once at enqueue time.
func Priority(teamLevel int, isSubscriber bool, source domain.RequestSource) int {
	p := teamLevel * TeamLevelWeight
	if isSubscriber {
		p += SubscriberBonus
	}
	switch source {
	case domain.SourceGift:
		p += GiftBonus
	case domain.SourceManual:
		p += ManualBonus
	}
	return p
}

type Item struct {
	Request    domain.SynthesisRequest
	Priority   int
	EnqueuedAt time.Time

	seq uint64
}

func (it Item) before(other Item) bool {
	if it.Priority != other.Priority {
		return it.Priority > other.Priority
	}
	return it.seq < other.seq
}

type Queue struct {
	items   itemHeap
	maxSize int
	seq     uint64
}

func New(maxSize int) *Queue {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	return &Queue{maxSize: maxSize}
}

// Push inserts req and returns its 1-based position among pending items.
// A full queue rejects the newcomer; nothing is evicted.
func (q *Queue) Push(req domain.SynthesisRequest, priority int, now time.Time) (int, error) {
	if len(q.items) >= q.maxSize {
		return 0, ErrQueueFull
	}
	q.seq++
	it := Item{Request: req, Priority: priority, EnqueuedAt: now, seq: q.seq}
	heap.Push(&q.items, it)
	return q.position(it), nil
}

func (q *Queue) Pop() (Item, bool) {
	if len(q.items) == 0 {
		return Item{}, false
	}
	return heap.Pop(&q.items).(Item), true
}

func (q *Queue) Len() int {
	return len(q.items)
}

func (q *Queue) MaxSize() int {
	return q.maxSize
}

// SetMaxSize changes the cap. Items above a lowered cap stay queued, new pushes
// are rejected until the queue drains below it.
func (q *Queue) SetMaxSize(n int) {
	if n > 0 {
		q.maxSize = n
	}
}

// Clear drops every pending item and returns how many were removed.
func (q *Queue) Clear() int {
	n := len(q.items)
	q.items = nil
	return n
}

// Snapshot returns pending items in dequeue order.
func (q *Queue) Snapshot() []Item {
	out := append([]Item(nil), q.items...)
	sort.Slice(out, func(i, j int) bool { return out[i].before(out[j]) })
	return out
}

// Remove drops the item with the given request id.
func (q *Queue) Remove(id string) bool {
	for i, it := range q.items {
		if it.Request.ID == id {
			heap.Remove(&q.items, i)
			return true
		}
	}
	return false
}

func (q *Queue) position(it Item) int {
	pos := 1
	for _, other := range q.items {
		if other.seq != it.seq && other.before(it) {
			pos++
		}
	}
	return pos
}

type itemHeap []Item

func (h itemHeap) Len() int           { return len(h) }
func (h itemHeap) Less(i, j int) bool { return h[i].before(h[j]) }
func (h itemHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *itemHeap) Push(x any) {
	*h = append(*h, x.(Item))
}

func (h *itemHeap) Pop() any {
	old := *h
	n := len(old)
	it := old[n-1]
	*h = old[:n-1]
	return it
}
