package port

import (
	"context"

	"github.com/restkeep/stockfeed/internal/core/domain"
)

// Unsubscribe detaches a listener or subscription. Safe to call more than
// once; after the first call no further callback fires.
type Unsubscribe func()

type DocumentStore interface {
	// AddItem writes a new record into the collection. The store assigns the
	// document id and the ordering timestamp at commit time; item.ID and
	// item.Timestamp are ignored. The timestamp may not be visible until a
	// later snapshot.
	AddItem(ctx context.Context, collection string, item domain.InventoryItem) (string, error)

	// Subscribe opens a standing query on the collection. onNext receives the
	// full current result set, unsorted, and may fire arbitrarily many times,
	// including once immediately and on every remote write. onErr receives
	// transport errors without closing the subscription.
	Subscribe(collection string, onNext func([]domain.InventoryItem), onErr func(error)) (Unsubscribe, error)
}
