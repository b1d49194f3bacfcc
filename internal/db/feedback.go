package db

import (
	"context"
	"fmt"
)

// CreateFeedback stores a feedback message and fills in its ID and timestamp
func (db *DB) CreateFeedback(ctx context.Context, f *Feedback) error {
	err := db.pool.QueryRow(ctx,
		`INSERT INTO feedback (user_id, name, email, subject, message, delivered)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, created_at`,
		f.UserID, f.Name, f.Email, f.Subject, f.Message, f.Delivered,
	).Scan(&f.ID, &f.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create feedback: %w", err)
	}
	return nil
}
