package port

import (
	"context"

	"github.com/restkeep/stockfeed/internal/core/domain"
)

type ArchiveRepository interface {
	// SaveItems upserts a snapshot of the feed. Idempotent: replaying the
	// same snapshot leaves the archive unchanged.
	SaveItems(ctx context.Context, items []domain.InventoryItem) error

	// ListItems returns the archived items, newest first.
	ListItems(ctx context.Context) ([]domain.InventoryItem, error)
}
