package ledger

import (
	"sync"
	"time"

	"panel-auth/internal/domain"
)

// DefaultCapacity bounds the attempt log when no size is configured.
const DefaultCapacity = 1000

// Ledger is a bounded, append-only log of login attempts. Once full, the
// oldest entry is evicted on every append. It is an operational log, not
// an audit trail.
type Ledger struct {
	mu       sync.Mutex
	entries  []domain.LoginAttempt
	capacity int
}

// New creates a ledger retaining at most capacity entries.
func New(capacity int) *Ledger {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Ledger{capacity: capacity}
}

// Record appends an attempt, evicting the oldest entry at capacity.
func (l *Ledger) Record(attempt domain.LoginAttempt) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.entries) == l.capacity {
		copy(l.entries, l.entries[1:])
		l.entries[len(l.entries)-1] = attempt
		return
	}
	l.entries = append(l.entries, attempt)
}

// RecentFailures counts failed password guesses for username within the
// trailing window, walking back from the newest entry. A success resets
// the count; challenge-gated rejections are not guesses and are skipped.
func (l *Ledger) RecentFailures(username string, window time.Duration) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := time.Now().Add(-window)
	count := 0
	for i := len(l.entries) - 1; i >= 0; i-- {
		entry := l.entries[i]
		if entry.Username != username {
			continue
		}
		if entry.Timestamp.Before(cutoff) || entry.Success {
			break
		}
		if entry.ChallengeRequired {
			continue
		}
		count++
	}
	return count
}

// Recent returns up to limit entries, most recent first. limit <= 0
// returns everything retained.
func (l *Ledger) Recent(limit int) []domain.LoginAttempt {
	l.mu.Lock()
	defer l.mu.Unlock()

	if limit <= 0 || limit > len(l.entries) {
		limit = len(l.entries)
	}
	out := make([]domain.LoginAttempt, limit)
	for i := 0; i < limit; i++ {
		out[i] = l.entries[len(l.entries)-1-i]
	}
	return out
}

// Len reports how many entries are currently retained.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
