package memory

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/thymlegram/thymlegram/internal/store"
)

// Event channels are buffered; a consumer that falls this far behind loses
// events, same as a dropped realtime connection. The next poll re-syncs it.
const subscriptionBuffer = 32

type subscription struct {
	store *Store
	table string
	ch    chan store.Event
	once  sync.Once
}

func (sub *subscription) Events() <-chan store.Event { return sub.ch }

func (sub *subscription) Unsubscribe() {
	sub.once.Do(func() {
		// Close under the store lock so emit never sends on a closed channel.
		sub.store.mu.Lock()
		delete(sub.store.subs[sub.table], sub)
		close(sub.ch)
		sub.store.mu.Unlock()
	})
}

func (s *Store) Subscribe(_ context.Context, table string) (store.Subscription, error) {
	sub := &subscription{store: s, table: table, ch: make(chan store.Event, subscriptionBuffer)}
	s.mu.Lock()
	if s.subs[table] == nil {
		s.subs[table] = make(map[*subscription]struct{})
	}
	s.subs[table][sub] = struct{}{}
	s.mu.Unlock()
	return sub, nil
}

func (s *Store) emit(table string, op store.Op, newRow, oldRow any) {
	ev := store.Event{Table: table, Op: op}
	if newRow != nil {
		ev.New, _ = json.Marshal(newRow)
	}
	if oldRow != nil {
		ev.Old, _ = json.Marshal(oldRow)
	}

	s.mu.Lock()
	for sub := range s.subs[table] {
		select {
		case sub.ch <- ev:
		default:
		}
	}
	s.mu.Unlock()
}
