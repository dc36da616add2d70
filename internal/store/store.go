// Package store provides append-only ordered record collections with live
// snapshot subscriptions. The agents treat it as a passive external
// dependency: no updates, no deletes, ordering by server-assigned creation
// time.
package store

import (
	"context"
	"sync"
	"time"
)

// Record is one durable entry in a collection. ID and CreatedAt are assigned
// by the store on append; Fields carries the record payload.
type Record struct {
	ID        string
	CreatedAt time.Time
	CreatedBy string
	Fields    map[string]any
}

// Store is an ordered-collection abstraction. Append writes a record and
// returns its store-assigned id. Subscribe delivers full ordered snapshots of
// a collection whenever it changes, ascending by creation time; consumers
// replace their cached view on every update (last write wins).
type Store interface {
	Append(ctx context.Context, collection string, rec Record) (string, error)
	Subscribe(ctx context.Context, collection string) (*Subscription, error)
}

// Subscription is a scoped handle on a live collection view. Close releases
// it; updates delivery is at-least-once while the subscription is open.
type Subscription struct {
	updates chan []Record

	once   sync.Once
	cancel func()
}

func newSubscription(cancel func()) *Subscription {
	return &Subscription{
		updates: make(chan []Record, 1),
		cancel:  cancel,
	}
}

// Updates returns the snapshot channel. The channel is closed when the
// subscription is torn down.
func (s *Subscription) Updates() <-chan []Record {
	return s.updates
}

// Close tears the subscription down. Safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() {
		if s.cancel != nil {
			s.cancel()
		}
	})
}

// push replaces any pending snapshot with the latest one instead of blocking
// on a slow consumer.
func (s *Subscription) push(snapshot []Record) {
	for {
		select {
		case s.updates <- snapshot:
			return
		default:
			select {
			case <-s.updates:
			default:
			}
		}
	}
}
