package memory

import (
	"context"
	"sync"
	"time"
)

// TokenDenylist is an in-memory implementation of app.TokenDenylist.
// Entries are swept lazily once their token would have expired anyway.
type TokenDenylist struct {
	mu      sync.Mutex
	revoked map[string]time.Time
	now     func() time.Time
}

func NewTokenDenylist() *TokenDenylist {
	return NewTokenDenylistWithClock(time.Now)
}

// NewTokenDenylistWithClock is test-only for deterministic expiry.
func NewTokenDenylistWithClock(now func() time.Time) *TokenDenylist {
	return &TokenDenylist{revoked: make(map[string]time.Time), now: now}
}

func (d *TokenDenylist) Revoke(_ context.Context, tokenID string, until time.Time) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	now := d.now()
	if !until.After(now) {
		return nil
	}
	d.revoked[tokenID] = until
	d.sweepLocked(now)
	return nil
}

func (d *TokenDenylist) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	until, ok := d.revoked[tokenID]
	if !ok {
		return false, nil
	}
	if !until.After(d.now()) {
		delete(d.revoked, tokenID)
		return false, nil
	}
	return true, nil
}

// Len reports how many token ids are currently tracked.
func (d *TokenDenylist) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.revoked)
}

func (d *TokenDenylist) sweepLocked(now time.Time) {
	for id, until := range d.revoked {
		if !until.After(now) {
			delete(d.revoked, id)
		}
	}
}
