package repository

import (
	"context"
	"database/sql"
	"fmt"
)

// IndexInfo describes one index of the store.
type IndexInfo struct {
	Name  string `json:"name"`
	Table string `json:"table"`
}

// CompactStats reports the database size around a VACUUM.
type CompactStats struct {
	BytesBefore int64 `json:"bytesBefore"`
	BytesAfter  int64 `json:"bytesAfter"`
}

// MaintenanceRepo runs store-wide housekeeping.
type MaintenanceRepo struct {
	db *sql.DB
}

func NewMaintenanceRepo(conn *sql.DB) *MaintenanceRepo {
	return &MaintenanceRepo{db: conn}
}

// ListIndexes returns the explicitly created indexes.
func (r *MaintenanceRepo) ListIndexes(ctx context.Context) ([]IndexInfo, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT name, tbl_name FROM sqlite_master
		WHERE type = 'index' AND sql IS NOT NULL
		ORDER BY tbl_name, name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []IndexInfo{}
	for rows.Next() {
		var ix IndexInfo
		if err := rows.Scan(&ix.Name, &ix.Table); err != nil {
			return nil, err
		}
		out = append(out, ix)
	}
	return out, rows.Err()
}

func (r *MaintenanceRepo) size(ctx context.Context) (int64, error) {
	var pages, pageSize int64
	if err := r.db.QueryRowContext(ctx, `PRAGMA page_count`).Scan(&pages); err != nil {
		return 0, err
	}
	if err := r.db.QueryRowContext(ctx, `PRAGMA page_size`).Scan(&pageSize); err != nil {
		return 0, err
	}
	return pages * pageSize, nil
}

// Compact rebuilds the database file to reclaim free pages.
func (r *MaintenanceRepo) Compact(ctx context.Context) (*CompactStats, error) {
	before, err := r.size(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := r.db.ExecContext(ctx, `VACUUM`); err != nil {
		return nil, fmt.Errorf("vacuum: %w", err)
	}
	after, err := r.size(ctx)
	if err != nil {
		return nil, err
	}
	return &CompactStats{BytesBefore: before, BytesAfter: after}, nil
}
