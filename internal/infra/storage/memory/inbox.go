package memory

import (
	"context"
	"sync"

	"taskchat/internal/app/chatsync"
)

// DefaultInboxCapacity bounds how many keys Inbox remembers.
const DefaultInboxCapacity = 4096

// Inbox remembers recently processed push event keys. The oldest key is
// forgotten once capacity is reached.
type Inbox struct {
	mu       sync.Mutex
	capacity int
	seen     map[string]struct{}
	order    []string
}

func NewInbox(capacity int) *Inbox {
	if capacity <= 0 {
		capacity = DefaultInboxCapacity
	}
	return &Inbox{capacity: capacity, seen: make(map[string]struct{}, capacity)}
}

// Seen records key and reports whether it had been recorded before.
func (i *Inbox) Seen(ctx context.Context, key string) (bool, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if _, ok := i.seen[key]; ok {
		return true, nil
	}
	if len(i.order) >= i.capacity {
		oldest := i.order[0]
		i.order = i.order[1:]
		delete(i.seen, oldest)
	}
	i.seen[key] = struct{}{}
	i.order = append(i.order, key)
	return false, nil
}

func (i *Inbox) Len() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return len(i.order)
}

var _ chatsync.Inbox = (*Inbox)(nil)
