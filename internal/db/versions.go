package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ErrNotFound is returned by mutations whose target row does not exist.
// Reads return (nil, nil) instead.
var ErrNotFound = errors.New("not found")

const versionColumns = `id, owner_id, name, parent_id, target_company, target_position, jd_hash,
	content, score, notes, is_active, archived_at, created_at, updated_at`

func scanVersion(row pgx.Row) (*Version, error) {
	var v Version
	var content, score []byte
	err := row.Scan(&v.ID, &v.OwnerID, &v.Name, &v.ParentID, &v.TargetCompany, &v.TargetPosition, &v.JDHash,
		&content, &score, &v.Notes, &v.IsActive, &v.ArchivedAt, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		return nil, err
	}
	v.Content = content
	if len(score) > 0 {
		v.Score = score
	}
	return &v, nil
}

// CreateVersion inserts a version. CreatedAt and UpdatedAt are taken from v.
func (db *DB) CreateVersion(ctx context.Context, v *Version) error {
	var score any
	if len(v.Score) > 0 {
		score = []byte(v.Score)
	}
	_, err := db.pool.Exec(ctx,
		`INSERT INTO resume_versions (id, owner_id, name, parent_id, target_company, target_position, jd_hash,
		                              content, score, notes, is_active, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, FALSE, $11, $12)`,
		v.ID, v.OwnerID, v.Name, v.ParentID, v.TargetCompany, v.TargetPosition, v.JDHash,
		[]byte(v.Content), score, v.Notes, v.CreatedAt, v.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create version: %w", err)
	}
	return nil
}

// GetVersion retrieves a version by ID, archived or not
func (db *DB) GetVersion(ctx context.Context, id string) (*Version, error) {
	v, err := scanVersion(db.pool.QueryRow(ctx,
		`SELECT `+versionColumns+` FROM resume_versions WHERE id = $1`, id))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get version: %w", err)
	}
	return v, nil
}

// ListVersions retrieves versions newest first
func (db *DB) ListVersions(ctx context.Context, filters VersionFilters) ([]Version, error) {
	if filters.Limit == 0 {
		filters.Limit = 100
	}

	query := `SELECT ` + versionColumns + ` FROM resume_versions WHERE `
	args := []any{}
	argNum := 1

	if filters.OwnerID != nil {
		query += fmt.Sprintf("(owner_id = $%d OR owner_id IS NULL)", argNum)
		args = append(args, *filters.OwnerID)
		argNum++
	} else {
		query += "owner_id IS NULL"
	}
	if !filters.IncludeArchived {
		query += " AND archived_at IS NULL"
	}
	if filters.Company != "" {
		query += fmt.Sprintf(" AND target_company ILIKE $%d", argNum)
		args = append(args, "%"+filters.Company+"%")
		argNum++
	}

	query += fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT $%d", argNum)
	args = append(args, filters.Limit)

	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list versions: %w", err)
	}
	defer rows.Close()

	versions := []Version{}
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan version: %w", err)
		}
		versions = append(versions, *v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list versions: %w", err)
	}
	return versions, nil
}

// UpdateVersion applies the non-nil fields of u and bumps updated_at.
func (db *DB) UpdateVersion(ctx context.Context, id string, u VersionUpdate) error {
	sets := []string{}
	args := []any{}
	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if u.Name != nil {
		add("name", *u.Name)
	}
	if u.TargetCompany != nil {
		add("target_company", *u.TargetCompany)
	}
	if u.TargetPosition != nil {
		add("target_position", *u.TargetPosition)
	}
	if u.Notes != nil {
		add("notes", *u.Notes)
	}
	if u.Content != nil {
		add("content", []byte(u.Content))
	}
	if u.Score != nil {
		add("score", []byte(u.Score))
	}

	query := "UPDATE resume_versions SET updated_at = NOW()"
	for _, s := range sets {
		query += ", " + s
	}
	args = append(args, id)
	query += fmt.Sprintf(" WHERE id = $%d", len(args))

	result, err := db.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update version: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetActiveVersion makes id the only active version of its ownership scope.
// Both updates run in one transaction.
func (db *DB) SetActiveVersion(ctx context.Context, id string) error {
	return db.withTx(ctx, func(tx pgx.Tx) error {
		var owner *uuid.UUID
		err := tx.QueryRow(ctx,
			`SELECT owner_id FROM resume_versions WHERE id = $1 AND archived_at IS NULL FOR UPDATE`, id,
		).Scan(&owner)
		if err != nil {
			if isNoRows(err) {
				return ErrNotFound
			}
			return fmt.Errorf("failed to lock version: %w", err)
		}

		if _, err := tx.Exec(ctx,
			`UPDATE resume_versions SET is_active = FALSE
			 WHERE owner_id IS NOT DISTINCT FROM $1 AND is_active AND id <> $2`,
			owner, id,
		); err != nil {
			return fmt.Errorf("failed to clear active version: %w", err)
		}
		if _, err := tx.Exec(ctx,
			`UPDATE resume_versions SET is_active = TRUE WHERE id = $1`, id,
		); err != nil {
			return fmt.Errorf("failed to set active version: %w", err)
		}
		return nil
	})
}

// GetActiveVersion returns the active version of a scope; nil owner is the
// guest scope.
func (db *DB) GetActiveVersion(ctx context.Context, owner *uuid.UUID) (*Version, error) {
	v, err := scanVersion(db.pool.QueryRow(ctx,
		`SELECT `+versionColumns+` FROM resume_versions
		 WHERE is_active AND archived_at IS NULL AND owner_id IS NOT DISTINCT FROM $1
		 LIMIT 1`, owner))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get active version: %w", err)
	}
	return v, nil
}

// ArchiveVersion soft-deletes a version and clears its active flag.
func (db *DB) ArchiveVersion(ctx context.Context, id string) error {
	result, err := db.pool.Exec(ctx,
		`UPDATE resume_versions SET archived_at = NOW(), is_active = FALSE, updated_at = NOW()
		 WHERE id = $1 AND archived_at IS NULL`, id)
	if err != nil {
		return fmt.Errorf("failed to archive version: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteVersion removes a version and every comparison that references it.
func (db *DB) DeleteVersion(ctx context.Context, id string) error {
	return db.withTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`DELETE FROM version_comparisons WHERE version_a = $1 OR version_b = $1`, id,
		); err != nil {
			return fmt.Errorf("failed to delete comparisons: %w", err)
		}
		result, err := tx.Exec(ctx, `DELETE FROM resume_versions WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("failed to delete version: %w", err)
		}
		if result.RowsAffected() == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// ClaimGuestVersions moves the listed guest versions to owner. Claimed
// versions are deactivated so the owner's scope keeps at most one active
// version. Returns the number of versions claimed.
func (db *DB) ClaimGuestVersions(ctx context.Context, owner uuid.UUID, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	result, err := db.pool.Exec(ctx,
		`UPDATE resume_versions SET owner_id = $1, is_active = FALSE, updated_at = NOW()
		 WHERE id = ANY($2) AND owner_id IS NULL`,
		owner, ids,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to claim guest versions: %w", err)
	}
	return result.RowsAffected(), nil
}
