package store

import (
	"context"
	"database/sql"
	"time"
)

type FeedbackStore interface {
	Create(ctx context.Context, fb *Feedback) (int64, error)
	Get(ctx context.Context, id int64) (*Feedback, error)
	List(ctx context.Context, status string, limit int) ([]Feedback, error)
	SetStatus(ctx context.Context, id int64, status string) error
}

type feedbackStore struct {
	db *sql.DB
}

func NewFeedbackStore(db *sql.DB) FeedbackStore {
	return &feedbackStore{db: db}
}

func (s *feedbackStore) Create(ctx context.Context, fb *Feedback) (int64, error) {
	now := time.Now().UTC()
	fb.CreatedAt = now
	fb.UpdatedAt = now
	if fb.Status == "" {
		fb.Status = FeedbackNew
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO feedback(user_id, kind, message, page, screenshot_key, status, created_at, updated_at)
		VALUES(?,?,?,?,?,?,?,?)`,
		fb.UserID, fb.Kind, fb.Message, fb.Page, fb.ScreenshotKey, fb.Status, now, now)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	fb.ID = id
	return id, nil
}

func (s *feedbackStore) Get(ctx context.Context, id int64) (*Feedback, error) {
	var fb Feedback
	err := s.db.QueryRowContext(ctx, `SELECT id, user_id, kind, message, page, screenshot_key, status, created_at, updated_at FROM feedback WHERE id=?`, id).
		Scan(&fb.ID, &fb.UserID, &fb.Kind, &fb.Message, &fb.Page, &fb.ScreenshotKey, &fb.Status, &fb.CreatedAt, &fb.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &fb, nil
}

func (s *feedbackStore) List(ctx context.Context, status string, limit int) ([]Feedback, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	q := `SELECT id, user_id, kind, message, page, screenshot_key, status, created_at, updated_at FROM feedback`
	args := []any{}
	if status != "" {
		q += ` WHERE status=?`
		args = append(args, status)
	}
	q += ` ORDER BY created_at DESC, id DESC LIMIT ?`
	args = append(args, limit)
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []Feedback{}
	for rows.Next() {
		var fb Feedback
		if err := rows.Scan(&fb.ID, &fb.UserID, &fb.Kind, &fb.Message, &fb.Page, &fb.ScreenshotKey, &fb.Status, &fb.CreatedAt, &fb.UpdatedAt); err != nil {
			return nil, err
		}
		res = append(res, fb)
	}
	return res, rows.Err()
}

func (s *feedbackStore) SetStatus(ctx context.Context, id int64, status string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE feedback SET status=?, updated_at=? WHERE id=?`, status, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	return affectedOrNoRows(res)
}
