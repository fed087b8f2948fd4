package store

import (
	"context"
	"database/sql"
	"time"
)

// Counted resources. Collaborators are scoped to a show, the rest to the owner (scope 0).
const (
	ResourceShows         = "shows"
	ResourceArchivedShows = "archived_shows"
	ResourceProps         = "props"
	ResourcePackingLists  = "packing_lists"
	ResourceBoards        = "boards"
	ResourceCollaborators = "collaborators"
)

type CountersStore interface {
	Acquire(ctx context.Context, userID int64, resource string, scopeID int64, limit int) (int, error)
	Release(ctx context.Context, userID int64, resource string, scopeID int64) error
	Get(ctx context.Context, userID int64, resource string, scopeID int64) (int, error)
	ListByUser(ctx context.Context, userID int64) ([]Counter, error)
	Recount(ctx context.Context, userID int64) ([]Counter, error)
}

type countersStore struct {
	db *sql.DB
}

func NewCountersStore(db *sql.DB) CountersStore {
	return &countersStore{db: db}
}

// Acquire takes one slot and returns the new count. The row is created and incremented in
// one conditional upsert, so concurrent callers cannot both pass the last free slot.
// A negative limit means unlimited.
func (s *countersStore) Acquire(ctx context.Context, userID int64, resource string, scopeID int64, limit int) (int, error) {
	if limit == 0 {
		return 0, ErrLimitReached
	}
	q := `
		INSERT INTO user_counters(user_id, resource, scope_id, count, updated_at) VALUES(?,?,?,1,?)
		ON CONFLICT(user_id, resource, scope_id) DO UPDATE SET count=user_counters.count+1, updated_at=excluded.updated_at`
	args := []any{userID, resource, scopeID, time.Now().UTC()}
	if limit > 0 {
		q += ` WHERE user_counters.count < ?`
		args = append(args, limit)
	}
	var n int
	err := s.db.QueryRowContext(ctx, q+` RETURNING count`, args...).Scan(&n)
	if err == sql.ErrNoRows {
		return 0, ErrLimitReached
	}
	if err != nil {
		return 0, err
	}
	return n, nil
}

func (s *countersStore) Release(ctx context.Context, userID int64, resource string, scopeID int64) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE user_counters SET count=count-1, updated_at=?
		WHERE user_id=? AND resource=? AND scope_id=? AND count > 0`,
		time.Now().UTC(), userID, resource, scopeID)
	return err
}

func (s *countersStore) Get(ctx context.Context, userID int64, resource string, scopeID int64) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT count FROM user_counters WHERE user_id=? AND resource=? AND scope_id=?`,
		userID, resource, scopeID).Scan(&n)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return n, err
}

func (s *countersStore) ListByUser(ctx context.Context, userID int64) ([]Counter, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id, resource, scope_id, count, updated_at FROM user_counters
		WHERE user_id=? ORDER BY resource, scope_id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []Counter{}
	for rows.Next() {
		var c Counter
		if err := rows.Scan(&c.UserID, &c.Resource, &c.ScopeID, &c.Count, &c.UpdatedAt); err != nil {
			return nil, err
		}
		res = append(res, c)
	}
	return res, rows.Err()
}

// Recount rebuilds the owner's counters from the resource tables. Rows are updated in
// place so a concurrent Acquire never finds its row missing.
func (s *countersStore) Recount(ctx context.Context, userID int64) ([]Counter, error) {
	now := time.Now().UTC()
	var counters []Counter
	err := withTx(ctx, s.db, func(tx *sql.Tx) error {
		owned := []struct {
			resource string
			query    string
			args     []any
		}{
			{ResourceShows, `SELECT COUNT(*) FROM shows WHERE owner_id=? AND status=?`, []any{userID, ShowStatusActive}},
			{ResourceArchivedShows, `SELECT COUNT(*) FROM shows WHERE owner_id=? AND status=?`, []any{userID, ShowStatusArchived}},
			{ResourceProps, `SELECT COUNT(*) FROM props WHERE owner_id=?`, []any{userID}},
			{ResourcePackingLists, `SELECT COUNT(*) FROM pack_lists WHERE owner_id=?`, []any{userID}},
			{ResourceBoards, `SELECT COUNT(*) FROM boards WHERE owner_id=?`, []any{userID}},
		}
		for _, o := range owned {
			var n int
			if err := tx.QueryRowContext(ctx, o.query, o.args...).Scan(&n); err != nil {
				return err
			}
			counters = append(counters, Counter{UserID: userID, Resource: o.resource, Count: n, UpdatedAt: now})
		}
		rows, err := tx.QueryContext(ctx, `
			SELECT s.id, COUNT(m.id) FROM shows s
			LEFT JOIN show_members m ON m.show_id=s.id AND m.user_id<>s.owner_id
			WHERE s.owner_id=? GROUP BY s.id ORDER BY s.id`, userID)
		if err != nil {
			return err
		}
		for rows.Next() {
			c := Counter{UserID: userID, Resource: ResourceCollaborators, UpdatedAt: now}
			if err := rows.Scan(&c.ScopeID, &c.Count); err != nil {
				rows.Close()
				return err
			}
			counters = append(counters, c)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return err
		}
		rows.Close()
		for _, c := range counters {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO user_counters(user_id, resource, scope_id, count, updated_at) VALUES(?,?,?,?,?)
				ON CONFLICT(user_id, resource, scope_id) DO UPDATE SET count=excluded.count, updated_at=excluded.updated_at`,
				c.UserID, c.Resource, c.ScopeID, c.Count, c.UpdatedAt); err != nil {
				return err
			}
		}
		// collaborator slots of shows that are gone
		_, err = tx.ExecContext(ctx, `
			DELETE FROM user_counters WHERE user_id=? AND resource=?
			AND scope_id NOT IN (SELECT id FROM shows WHERE owner_id=?)`, userID, ResourceCollaborators, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return counters, nil
}
