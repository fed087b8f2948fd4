package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"
)

type SQLStore struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

func (s *SQLStore) DB() *sql.DB {
	return s.db
}

type rowScanner interface {
	Scan(dest ...any) error
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

func nullableID(id *int64) any {
	if id == nil || *id == 0 {
		return nil
	}
	return *id
}

func nullableTime(ts *time.Time) any {
	if ts == nil {
		return nil
	}
	return *ts
}

func marshalJSON(v any) string {
	if v == nil {
		return "[]"
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "[]"
	}
	return string(b)
}

func unmarshalJSON(raw string, target any) {
	clean := strings.TrimSpace(raw)
	if clean == "" {
		return
	}
	_ = json.Unmarshal([]byte(clean), target)
}

func withTx(ctx context.Context, db *sql.DB, fn func(*sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

func affectedOrNoRows(res sql.Result) error {
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// shiftInScope moves the row at from to to inside a positioned scope, shifting the rows between.
func shiftInScope(ctx context.Context, tx *sql.Tx, table, scopeCol string, scopeID int64, from, to int) error {
	var err error
	if to > from {
		_, err = tx.ExecContext(ctx, `UPDATE `+table+` SET position=position-1 WHERE `+scopeCol+`=? AND position>? AND position<=?`, scopeID, from, to)
	} else if to < from {
		_, err = tx.ExecContext(ctx, `UPDATE `+table+` SET position=position+1 WHERE `+scopeCol+`=? AND position>=? AND position<?`, scopeID, to, from)
	}
	return err
}

func maxPosition(ctx context.Context, tx *sql.Tx, table, scopeCol string, scopeID int64) (int, error) {
	var max int
	err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(position), 0) FROM `+table+` WHERE `+scopeCol+`=?`, scopeID).Scan(&max)
	return max, err
}
