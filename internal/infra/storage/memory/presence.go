package memory

import (
	"context"
	"sort"
	"sync"

	"taskchat/internal/app/chatsync"
)

// PresenceStore keeps the last reported set of online identities.
type PresenceStore struct {
	mu     sync.RWMutex
	online map[string]struct{}
}

func NewPresenceStore() *PresenceStore {
	return &PresenceStore{online: make(map[string]struct{})}
}

// Replace swaps the whole set. Empty ids are ignored.
func (p *PresenceStore) Replace(ctx context.Context, ids []string) error {
	next := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id != "" {
			next[id] = struct{}{}
		}
	}
	p.mu.Lock()
	p.online = next
	p.mu.Unlock()
	return nil
}

// Online returns the ids in ascending order.
func (p *PresenceStore) Online(ctx context.Context) ([]string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]string, 0, len(p.online))
	for id := range p.online {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}

var _ chatsync.PresenceStore = (*PresenceStore)(nil)
