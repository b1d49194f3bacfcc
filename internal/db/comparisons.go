package db

import (
	"context"
	"fmt"
	"time"
)

// SaveComparison caches a computed comparison
func (db *DB) SaveComparison(ctx context.Context, c *Comparison) error {
	err := db.pool.QueryRow(ctx,
		`INSERT INTO version_comparisons (version_a, version_b, differences, similarity, recommendation, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id`,
		c.VersionA, c.VersionB, []byte(c.Differences), c.Similarity, c.Recommendation, c.CreatedAt,
	).Scan(&c.ID)
	if err != nil {
		return fmt.Errorf("failed to save comparison: %w", err)
	}
	return nil
}

// GetComparison returns the newest cached comparison of a and b, in either
// order, created after since.
func (db *DB) GetComparison(ctx context.Context, a, b string, since time.Time) (*Comparison, error) {
	var c Comparison
	var diff []byte
	err := db.pool.QueryRow(ctx,
		`SELECT id, version_a, version_b, differences, similarity, recommendation, created_at
		 FROM version_comparisons
		 WHERE ((version_a = $1 AND version_b = $2) OR (version_a = $2 AND version_b = $1))
		   AND created_at > $3
		 ORDER BY created_at DESC
		 LIMIT 1`,
		a, b, since,
	).Scan(&c.ID, &c.VersionA, &c.VersionB, &diff, &c.Similarity, &c.Recommendation, &c.CreatedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get comparison: %w", err)
	}
	c.Differences = diff
	return &c, nil
}

// CleanupComparisons deletes comparisons created before the cutoff and
// returns how many were removed.
func (db *DB) CleanupComparisons(ctx context.Context, before time.Time) (int64, error) {
	result, err := db.pool.Exec(ctx,
		`DELETE FROM version_comparisons WHERE created_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup comparisons: %w", err)
	}
	return result.RowsAffected(), nil
}
