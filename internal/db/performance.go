package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// AddPerformance adds delta to the counters of a version, creating the row
// on first use. The version must exist.
func (db *DB) AddPerformance(ctx context.Context, versionID string, delta PerformanceDelta) error {
	feedback := []string{}
	if delta.Feedback != "" {
		feedback = append(feedback, delta.Feedback)
	}
	feedbackJSON, err := json.Marshal(feedback)
	if err != nil {
		return fmt.Errorf("failed to marshal feedback: %w", err)
	}

	var scoreSum, scoreCount int
	if delta.ATSScore != nil {
		scoreSum = *delta.ATSScore
		scoreCount = 1
	}

	_, err = db.pool.Exec(ctx,
		`INSERT INTO version_performance (version_id, applications_sent, interviews, ats_score_sum, ats_score_count, feedback)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (version_id) DO UPDATE SET
		     applications_sent = version_performance.applications_sent + EXCLUDED.applications_sent,
		     interviews        = version_performance.interviews + EXCLUDED.interviews,
		     ats_score_sum     = version_performance.ats_score_sum + EXCLUDED.ats_score_sum,
		     ats_score_count   = version_performance.ats_score_count + EXCLUDED.ats_score_count,
		     feedback          = version_performance.feedback || EXCLUDED.feedback,
		     updated_at        = NOW()`,
		versionID, delta.Applications, delta.Interviews, scoreSum, scoreCount, feedbackJSON,
	)
	if err != nil {
		return fmt.Errorf("failed to update performance: %w", err)
	}
	return nil
}

const performanceColumns = `p.version_id, p.applications_sent, p.interviews, p.ats_score_sum,
	p.ats_score_count, p.feedback, p.updated_at`

func scanPerformance(row pgx.Row) (*Performance, error) {
	var p Performance
	var feedback []byte
	if err := row.Scan(&p.VersionID, &p.ApplicationsSent, &p.Interviews, &p.ATSScoreSum,
		&p.ATSScoreCount, &feedback, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.Feedback = feedback
	return &p, nil
}

// GetPerformance returns the counters of a version, or nil if nothing was
// recorded yet.
func (db *DB) GetPerformance(ctx context.Context, versionID string) (*Performance, error) {
	p, err := scanPerformance(db.pool.QueryRow(ctx,
		`SELECT `+performanceColumns+` FROM version_performance p WHERE p.version_id = $1`, versionID))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get performance: %w", err)
	}
	return p, nil
}

// ListPerformance returns the counters of every unarchived version visible
// to owner (the owner's versions plus guest versions; nil means guest only).
func (db *DB) ListPerformance(ctx context.Context, owner *uuid.UUID) ([]Performance, error) {
	query := `SELECT ` + performanceColumns + `
		FROM version_performance p
		JOIN resume_versions v ON v.id = p.version_id
		WHERE v.archived_at IS NULL AND `
	args := []any{}
	if owner != nil {
		query += "(v.owner_id = $1 OR v.owner_id IS NULL)"
		args = append(args, *owner)
	} else {
		query += "v.owner_id IS NULL"
	}
	query += " ORDER BY p.version_id"

	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list performance: %w", err)
	}
	defer rows.Close()

	result := []Performance{}
	for rows.Next() {
		p, err := scanPerformance(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan performance: %w", err)
		}
		result = append(result, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list performance: %w", err)
	}
	return result, nil
}
