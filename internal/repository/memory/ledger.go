package memory

import (
	"context"
	"sync"
	"time"
)

// TokenLedger is an in-process repository.TokenLedger. Entries are pruned
// lazily on each Consume.
type TokenLedger struct {
	mu      sync.Mutex
	entries map[string]time.Time
	now     func() time.Time
}

func NewTokenLedger() *TokenLedger {
	return &TokenLedger{entries: make(map[string]time.Time), now: time.Now}
}

func (l *TokenLedger) Consume(_ context.Context, id string, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for k, exp := range l.entries {
		if !now.Before(exp) {
			delete(l.entries, k)
		}
	}

	if _, seen := l.entries[id]; seen {
		return false, nil
	}
	l.entries[id] = now.Add(ttl)
	return true, nil
}

// Len returns the number of unexpired entries seen at the last Consume.
func (l *TokenLedger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
