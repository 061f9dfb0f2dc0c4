// Package ratelimit implements the per-user sliding window applied to speech
// submissions.
package ratelimit

import (
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/simplelru"
)

const (
	DefaultMax      = 3
	DefaultWindow   = 60 * time.Second
	DefaultCapacity = 1000
)

// Limiter keeps one window of timestamps per user in a bounded LRU. Evicting a
// user resets their window.
type Limiter struct {
	mu      sync.Mutex
	max     int
	window  time.Duration
	windows *simplelru.LRU[string, []time.Time]
	now     func() time.Time
}

func New(max int, window time.Duration, capacity int) *Limiter {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if window <= 0 {
		window = DefaultWindow
	}
	windows, err := simplelru.NewLRU[string, []time.Time](capacity, nil)
	if err != nil {
		panic(err)
	}
	return &Limiter{
		max:     max,
		window:  window,
		windows: windows,
		now:     time.Now,
	}
}

// Allow records a submission for userID and reports whether it fits in the
// window. A max of zero or less disables limiting.
func (l *Limiter) Allow(userID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.max <= 0 {
		return true
	}
	now := l.now()
	stamps, _ := l.windows.Get(userID)
	stamps = prune(stamps, now.Add(-l.window))
	if len(stamps) >= l.max {
		l.windows.Add(userID, stamps)
		return false
	}
	l.windows.Add(userID, append(stamps, now))
	return true
}

// Undo drops the newest recorded submission for userID, for requests that
// were allowed but never accepted downstream.
func (l *Limiter) Undo(userID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.max <= 0 {
		return
	}
	stamps, ok := l.windows.Peek(userID)
	if !ok || len(stamps) == 0 {
		return
	}
	l.windows.Add(userID, stamps[:len(stamps)-1])
}

// Remaining returns how many submissions userID has left in the current window.
func (l *Limiter) Remaining(userID string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.max <= 0 {
		return -1
	}
	stamps, _ := l.windows.Peek(userID)
	left := l.max - len(prune(stamps, l.now().Add(-l.window)))
	if left < 0 {
		return 0
	}
	return left
}

func (l *Limiter) Reset(userID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.windows.Remove(userID)
}

// SetLimits changes the policy; existing windows are kept and re-evaluated.
func (l *Limiter) SetLimits(max int, window time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.max = max
	if window > 0 {
		l.window = window
	}
}

func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.windows.Len()
}

func prune(stamps []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(stamps) && !stamps[i].After(cutoff) {
		i++
	}
	if i == 0 {
		return stamps
	}
	return append([]time.Time(nil), stamps[i:]...)
}
