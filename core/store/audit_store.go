package store

import (
	"context"
	"database/sql"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
)

const (
	auditDefaultLimit = 100
	auditMaxLimit     = 1000
)

type AuditStore interface {
	Log(ctx context.Context, username, action, details string) error
	List(ctx context.Context, f AuditFilter) ([]AuditRecord, error)
}

// AuditFilter narrows the audit trail. Zero fields match everything.
type AuditFilter struct {
	Since        time.Time
	Username     string
	ActionPrefix string
	Limit        int
}

type AuditRecord struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Action    string    `json:"action"`
	Details   string    `json:"details"`
	CreatedAt time.Time `json:"created_at"`
}

type auditStore struct {
	db *sql.DB
}

func NewAuditStore(db *sql.DB) AuditStore {
	return &auditStore{db: db}
}

func (s *auditStore) Log(ctx context.Context, username, action, details string) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO audit_log(username, action, details, created_at) VALUES(?,?,?,?)`,
		strings.ToLower(strings.TrimSpace(username)), action, details, time.Now().UTC())
	return err
}

func (s *auditStore) List(ctx context.Context, f AuditFilter) ([]AuditRecord, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = auditDefaultLimit
	}
	if limit > auditMaxLimit {
		limit = auditMaxLimit
	}
	b := sq.Select("id", "username", "action", "details", "created_at").From("audit_log")
	if !f.Since.IsZero() {
		b = b.Where(sq.GtOrEq{"created_at": f.Since.UTC()})
	}
	if u := strings.ToLower(strings.TrimSpace(f.Username)); u != "" {
		b = b.Where(sq.Eq{"username": u})
	}
	if p := strings.TrimSpace(f.ActionPrefix); p != "" {
		b = b.Where(sq.Like{"action": p + "%"})
	}
	q, args, err := b.OrderBy("created_at DESC", "id DESC").Limit(uint64(limit)).ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []AuditRecord{}
	for rows.Next() {
		var r AuditRecord
		if err := rows.Scan(&r.ID, &r.Username, &r.Action, &r.Details, &r.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, r)
	}
	return res, rows.Err()
}
