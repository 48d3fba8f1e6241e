package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/restkeep/stockfeed/internal/core/domain"
	"github.com/restkeep/stockfeed/internal/port"
)

// Submitter validates and writes new items. The store assigns the ordering
// timestamp at commit; the submitter never inserts into the display list
// itself, so a write becomes visible only through the subscription.
type Submitter struct {
	store      port.DocumentStore
	session    *SessionManager
	collection string
}

func NewSubmitter(store port.DocumentStore, session *SessionManager, collection string) *Submitter {
	return &Submitter{
		store:      store,
		session:    session,
		collection: collection,
	}
}

// Submit writes one item tagged with the current user id. Precondition
// order: fields first, readiness second. A non-numeric quantity on an
// otherwise complete form is a dependent-system failure and is returned
// verbatim rather than classified.
func (s *Submitter) Submit(ctx context.Context, fields domain.ItemFields) error {
	if !fields.Complete() {
		return ErrFieldsRequired
	}

	sess := s.session.Session()
	if s.store == nil || !sess.Ready {
		return ErrNotReady
	}

	qty, err := strconv.Atoi(strings.TrimSpace(fields.Quantity))
	if err != nil {
		return err
	}

	item := domain.InventoryItem{
		Date:     fields.Date,
		Item:     fields.Item,
		ItemSize: fields.ItemSize,
		Quantity: qty,
		AddedBy:  sess.UserID,
	}

	if _, err := s.store.AddItem(ctx, s.collection, item); err != nil {
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}
	return nil
}
