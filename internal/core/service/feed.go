package service

import (
	"fmt"
	"sort"
	"sync"

	"github.com/restkeep/stockfeed/internal/core/domain"
	"github.com/restkeep/stockfeed/internal/port"
)

// FeedService maintains the display list: the full result of the latest
// snapshot, re-sorted descending by the server-assigned timestamp on every
// delivery. The list is always a total re-derivation, never an incremental
// merge, so it self-heals across missed events.
type FeedService struct {
	store      port.DocumentStore
	collection string

	onUpdate func([]domain.InventoryItem)
	onError  func(error)

	mu      sync.Mutex
	items   []domain.InventoryItem
	current *subscription
}

func NewFeedService(store port.DocumentStore, collection string, onUpdate func([]domain.InventoryItem), onError func(error)) *FeedService {
	return &FeedService{
		store:      store,
		collection: collection,
		onUpdate:   onUpdate,
		onError:    onError,
	}
}

// Subscribe opens the standing query. It refuses while the session is not
// ready. The returned handle is idempotent; after it runs, late snapshot
// callbacks from this subscription no longer touch the display list, and a
// subscription superseded by a newer one can never overwrite it either.
func (f *FeedService) Subscribe(session domain.Session) (port.Unsubscribe, error) {
	if !session.Ready || session.UserID == "" {
		return nil, ErrNotReady
	}

	sub := &subscription{feed: f}

	f.mu.Lock()
	f.current = sub
	f.mu.Unlock()

	unsub, err := f.store.Subscribe(f.collection, sub.deliver, sub.fail)
	if err != nil {
		f.mu.Lock()
		if f.current == sub {
			f.current = nil
		}
		f.mu.Unlock()
		return nil, fmt.Errorf("%w: %v", ErrSubscription, err)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			sub.closed = true
			if f.current == sub {
				f.current = nil
			}
			f.mu.Unlock()
			unsub()
		})
	}, nil
}

// Items returns a copy of the current display list.
func (f *FeedService) Items() []domain.InventoryItem {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.InventoryItem, len(f.items))
	copy(out, f.items)
	return out
}

type subscription struct {
	feed   *FeedService
	closed bool // guarded by feed.mu
}

func (s *subscription) deliver(records []domain.InventoryItem) {
	f := s.feed

	items := make([]domain.InventoryItem, len(records))
	copy(items, records)
	sortDisplay(items)

	f.mu.Lock()
	if s.closed || f.current != s {
		f.mu.Unlock()
		return
	}
	f.items = items
	onUpdate := f.onUpdate
	f.mu.Unlock()

	if onUpdate != nil {
		out := make([]domain.InventoryItem, len(items))
		copy(out, items)
		onUpdate(out)
	}
}

func (s *subscription) fail(err error) {
	f := s.feed

	f.mu.Lock()
	if s.closed || f.current != s {
		f.mu.Unlock()
		return
	}
	onError := f.onError
	f.mu.Unlock()

	// The previous display list stays visible on transport errors.
	if onError != nil {
		onError(fmt.Errorf("%w: %v", ErrSubscription, err))
	}
}

// sortDisplay orders items newest first by server timestamp. Items whose
// write has not committed yet carry no timestamp; they sort after every
// tokened item but are never dropped.
func sortDisplay(items []domain.InventoryItem) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i].Timestamp, items[j].Timestamp
		if a == nil {
			return false
		}
		if b == nil {
			return true
		}
		return a.After(*b)
	})
}
