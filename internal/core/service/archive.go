package service

import (
	"github.com/restkeep/stockfeed/internal/core/domain"
)

// ArchiveService buffers feed snapshots for the archiver's worker pool.
// Snapshots are self-contained full result sets, so dropping an older queued
// snapshot when a newer one arrives loses nothing.
type ArchiveService struct {
	queue chan []domain.InventoryItem
}

func NewArchiveService(queueSize int) *ArchiveService {
	return &ArchiveService{
		queue: make(chan []domain.InventoryItem, queueSize),
	}
}

// Enqueue hands a snapshot to the workers. When the queue is full the oldest
// pending snapshot is discarded in favor of the new one.
func (s *ArchiveService) Enqueue(items []domain.InventoryItem) {
	for {
		select {
		case s.queue <- items:
			return
		default:
			select {
			case <-s.queue:
			default:
			}
		}
	}
}

func (s *ArchiveService) Queue() <-chan []domain.InventoryItem {
	return s.queue
}

func (s *ArchiveService) Close() {
	close(s.queue)
}
