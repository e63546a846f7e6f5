package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// PriceSnapshot is one imported price document.
type PriceSnapshot struct {
	ID         string
	Timestamp  int64 // source timestamp, unix milliseconds
	Source     string
	Content    []byte
	ImportedAt time.Time
	Prices     int
}

// PricePoint is one price of one snapshot.
type PricePoint struct {
	SnapshotID string
	Timestamp  int64
	Price      float64
}

// PriceStore handles price snapshot access.
type PriceStore struct {
	db *DB
}

// NewPriceStore creates a new PriceStore.
func NewPriceStore(db *DB) *PriceStore {
	return &PriceStore{db: db}
}

// ImportSnapshot stores a validated price document together with its
// individual prices and returns the new snapshot id.
func (s *PriceStore) ImportSnapshot(ctx context.Context, timestamp int64, prices map[string]float64, content []byte, source string) (string, error) {
	id := uuid.NewString()

	err := s.db.InTransaction(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO price_snapshots (id, timestamp, source, content, imported_at)
			VALUES (?, ?, ?, ?, ?)
		`, id, timestamp, source, content, formatTime(time.Now()))
		if err != nil {
			return fmt.Errorf("inserting price snapshot: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO price_points (snapshot_id, price_key, price)
			VALUES (?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("preparing price insert: %w", err)
		}
		defer stmt.Close()

		for key, price := range prices {
			if _, err := stmt.ExecContext(ctx, id, key, price); err != nil {
				return fmt.Errorf("inserting price for %s: %w", key, err)
			}
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// LatestSnapshot returns the snapshot with the newest source timestamp, or
// nil if the store holds none.
func (s *PriceStore) LatestSnapshot(ctx context.Context) (*PriceSnapshot, error) {
	snaps, err := s.listSnapshots(ctx, 1, true)
	if err != nil {
		return nil, err
	}
	if len(snaps) == 0 {
		return nil, nil
	}
	return &snaps[0], nil
}

// ListSnapshots returns up to limit snapshots, newest first, without content.
func (s *PriceStore) ListSnapshots(ctx context.Context, limit int) ([]PriceSnapshot, error) {
	return s.listSnapshots(ctx, limit, false)
}

func (s *PriceStore) listSnapshots(ctx context.Context, limit int, withContent bool) ([]PriceSnapshot, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT s.id, s.timestamp, s.source, s.imported_at,
		       s.content,
		       (SELECT COUNT(*) FROM price_points p WHERE p.snapshot_id = s.id)
		FROM price_snapshots s
		ORDER BY s.timestamp DESC, s.imported_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying price snapshots: %w", err)
	}
	defer rows.Close()

	var snaps []PriceSnapshot
	for rows.Next() {
		var snap PriceSnapshot
		var importedAt string
		if err := rows.Scan(&snap.ID, &snap.Timestamp, &snap.Source, &importedAt, &snap.Content, &snap.Prices); err != nil {
			return nil, fmt.Errorf("scanning price snapshot: %w", err)
		}
		if snap.ImportedAt, err = parseTime(importedAt); err != nil {
			return nil, err
		}
		if !withContent {
			snap.Content = nil
		}
		snaps = append(snaps, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating price snapshots: %w", err)
	}
	return snaps, nil
}

// PriceHistory returns the stored prices of one key, newest first.
func (s *PriceStore) PriceHistory(ctx context.Context, priceKey string, limit int) ([]PricePoint, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT p.snapshot_id, s.timestamp, p.price
		FROM price_points p
		JOIN price_snapshots s ON s.id = p.snapshot_id
		WHERE p.price_key = ?
		ORDER BY s.timestamp DESC, s.imported_at DESC
		LIMIT ?
	`, priceKey, limit)
	if err != nil {
		return nil, fmt.Errorf("querying price history: %w", err)
	}
	defer rows.Close()

	var points []PricePoint
	for rows.Next() {
		var p PricePoint
		if err := rows.Scan(&p.SnapshotID, &p.Timestamp, &p.Price); err != nil {
			return nil, fmt.Errorf("scanning price point: %w", err)
		}
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating price history: %w", err)
	}
	return points, nil
}

// PruneSnapshots deletes all but the keep newest snapshots and returns how
// many were removed.
func (s *PriceStore) PruneSnapshots(ctx context.Context, keep int) (int, error) {
	if keep < 0 {
		return 0, errors.New("keep must not be negative")
	}

	var removed int64
	err := s.db.InTransaction(ctx, func(tx *sql.Tx) error {
		const stale = `
			SELECT id FROM price_snapshots
			ORDER BY timestamp DESC, imported_at DESC
			LIMIT -1 OFFSET ?`

		if _, err := tx.ExecContext(ctx,
			`DELETE FROM price_points WHERE snapshot_id IN (`+stale+`)`, keep,
		); err != nil {
			return fmt.Errorf("deleting stale price points: %w", err)
		}

		res, err := tx.ExecContext(ctx,
			`DELETE FROM price_snapshots WHERE id IN (`+stale+`)`, keep,
		)
		if err != nil {
			return fmt.Errorf("deleting stale price snapshots: %w", err)
		}
		removed, err = res.RowsAffected()
		if err != nil {
			return fmt.Errorf("counting deleted snapshots: %w", err)
		}
		return nil
	})
	return int(removed), err
}
