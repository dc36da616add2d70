package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Memory is an in-process Store used for local runs and tests. Records are
// kept per collection in insertion order and every append broadcasts a fresh
// snapshot to active subscribers.
type Memory struct {
	mu          sync.Mutex
	collections map[string][]Record
	subscribers map[string][]*Subscription
	now         func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		collections: make(map[string][]Record),
		subscribers: make(map[string][]*Subscription),
		now:         time.Now,
	}
}

// Append stores the record with an assigned id and creation time and notifies
// subscribers of the collection.
func (m *Memory) Append(_ context.Context, collection string, rec Record) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec.ID = uuid.NewString()
	rec.CreatedAt = m.now()
	m.collections[collection] = append(m.collections[collection], rec)

	snapshot := m.snapshotLocked(collection)
	for _, sub := range m.subscribers[collection] {
		sub.push(snapshot)
	}

	return rec.ID, nil
}

// Subscribe registers a live view of the collection. The current snapshot is
// delivered immediately, then again after every append.
func (m *Memory) Subscribe(_ context.Context, collection string) (*Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var sub *Subscription
	sub = newSubscription(func() {
		m.mu.Lock()
		defer m.mu.Unlock()

		subs := m.subscribers[collection]
		for i, candidate := range subs {
			if candidate == sub {
				m.subscribers[collection] = append(subs[:i], subs[i+1:]...)
				break
			}
		}
		close(sub.updates)
	})

	m.subscribers[collection] = append(m.subscribers[collection], sub)
	sub.push(m.snapshotLocked(collection))

	return sub, nil
}

func (m *Memory) snapshotLocked(collection string) []Record {
	records := m.collections[collection]
	snapshot := make([]Record, len(records))
	copy(snapshot, records)
	return snapshot
}
