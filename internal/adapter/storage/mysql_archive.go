package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/restkeep/stockfeed/internal/core/domain"
)

// MySQLArchive mirrors the live feed into MySQL for durable reporting. The
// client never reads it; only the archiver writes and exports from it.
//
// Expected schema:
//
//	CREATE TABLE IF NOT EXISTS inventory_items (
//	    id        VARCHAR(64) PRIMARY KEY,
//	    date      VARCHAR(32)  NOT NULL,
//	    item      VARCHAR(255) NOT NULL,
//	    item_size VARCHAR(255) NOT NULL,
//	    quantity  INT          NOT NULL,
//	    added_by  VARCHAR(128) NOT NULL,
//	    ts        DATETIME(6)  NULL
//	);
type MySQLArchive struct {
	db *sql.DB
}

func NewMySQLArchive(db *sql.DB) *MySQLArchive {
	return &MySQLArchive{db: db}
}

func (m *MySQLArchive) SaveItems(ctx context.Context, items []domain.InventoryItem) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, item := range items {
		var ts sql.NullTime
		if item.Timestamp != nil {
			ts = sql.NullTime{Time: *item.Timestamp, Valid: true}
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO inventory_items (id, date, item, item_size, quantity, added_by, ts)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON DUPLICATE KEY UPDATE
				date = VALUES(date), item = VALUES(item), item_size = VALUES(item_size),
				quantity = VALUES(quantity), added_by = VALUES(added_by), ts = VALUES(ts)`,
			item.ID, item.Date, item.Item, item.ItemSize, item.Quantity, item.AddedBy, ts,
		)
		if err != nil {
			return fmt.Errorf("upsert item %s: %w", item.ID, err)
		}
	}

	return tx.Commit()
}

func (m *MySQLArchive) ListItems(ctx context.Context) ([]domain.InventoryItem, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT id, date, item, item_size, quantity, added_by, ts
		FROM inventory_items
		ORDER BY ts IS NULL, ts DESC`)
	if err != nil {
		return nil, fmt.Errorf("query items: %w", err)
	}
	defer rows.Close()

	var items []domain.InventoryItem
	for rows.Next() {
		var item domain.InventoryItem
		var ts sql.NullTime
		if err := rows.Scan(&item.ID, &item.Date, &item.Item, &item.ItemSize,
			&item.Quantity, &item.AddedBy, &ts); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		if ts.Valid {
			t := ts.Time
			item.Timestamp = &t
		}
		items = append(items, item)
	}
	return items, rows.Err()
}
