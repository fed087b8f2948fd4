package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"
)

type SessionStore interface {
	SaveSession(ctx context.Context, sess *SessionRecord) error
	GetSession(ctx context.Context, id string) (*SessionRecord, error)
	ListByUser(ctx context.Context, userID int64) ([]SessionRecord, error)
	DeleteSession(ctx context.Context, id string, by string) error
	DeleteAllForUser(ctx context.Context, userID int64, by string) error
	UpdateActivity(ctx context.Context, id string, now time.Time, extendBy time.Duration) error
	UpdateRolesForUser(ctx context.Context, userID int64, roles []string) error
	PurgeExpired(ctx context.Context, before time.Time) (int64, error)
}

type sessionsStore struct {
	db *sql.DB
}

func NewSessionsStore(db *sql.DB) SessionStore {
	return &sessionsStore{db: db}
}

const sessionColumns = `id, user_id, username, roles, csrf_token, ip, user_agent, created_at, last_seen_at, expires_at, revoked, revoked_at, revoked_by`

func (s *sessionsStore) SaveSession(ctx context.Context, sess *SessionRecord) error {
	now := time.Now().UTC()
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = now
	}
	if sess.LastSeenAt.IsZero() {
		sess.LastSeenAt = sess.CreatedAt
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions(`+sessionColumns+`) VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT(id) DO UPDATE SET roles=excluded.roles, csrf_token=excluded.csrf_token, last_seen_at=excluded.last_seen_at,
			expires_at=excluded.expires_at, revoked=excluded.revoked, revoked_at=excluded.revoked_at, revoked_by=excluded.revoked_by`,
		sess.ID, sess.UserID, sess.Username, toJSON(sess.Roles), sess.CSRFToken, sess.IP, sess.UserAgent,
		sess.CreatedAt, sess.LastSeenAt, sess.ExpiresAt, boolToInt(sess.Revoked), nullableTime(sess.RevokedAt), sess.RevokedBy)
	return err
}

func scanSession(row rowScanner) (*SessionRecord, error) {
	var sr SessionRecord
	var rolesStr string
	var revoked int
	var revokedAt sql.NullTime
	if err := row.Scan(&sr.ID, &sr.UserID, &sr.Username, &rolesStr, &sr.CSRFToken, &sr.IP, &sr.UserAgent, &sr.CreatedAt, &sr.LastSeenAt, &sr.ExpiresAt, &revoked, &revokedAt, &sr.RevokedBy); err != nil {
		return nil, err
	}
	sr.Revoked = revoked == 1
	sr.RevokedAt = timePtr(revokedAt)
	if sr.LastSeenAt.IsZero() {
		sr.LastSeenAt = sr.CreatedAt
	}
	_ = json.Unmarshal([]byte(rolesStr), &sr.Roles)
	return &sr, nil
}

func (s *sessionsStore) GetSession(ctx context.Context, id string) (*SessionRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id=?`, id)
	sr, err := scanSession(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	if sr.Revoked {
		return nil, nil
	}
	if time.Now().After(sr.ExpiresAt) {
		_ = s.DeleteSession(ctx, id, "system")
		return nil, nil
	}
	return sr, nil
}

func (s *sessionsStore) DeleteSession(ctx context.Context, id string, by string) error {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `UPDATE sessions SET revoked=1, revoked_at=?, revoked_by=?, expires_at=? WHERE id=?`, now, by, now, id)
	return err
}

func (s *sessionsStore) DeleteAllForUser(ctx context.Context, userID int64, by string) error {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `UPDATE sessions SET revoked=1, revoked_at=?, revoked_by=?, expires_at=? WHERE user_id=? AND revoked=0`, now, by, now, userID)
	return err
}

func (s *sessionsStore) UpdateActivity(ctx context.Context, id string, now time.Time, extendBy time.Duration) error {
	_, err := s.db.ExecContext(ctx, `UPDATE sessions SET last_seen_at=?, expires_at=? WHERE id=? AND revoked=0`, now, now.Add(extendBy), id)
	return err
}

// UpdateRolesForUser keeps live sessions in step after a role assignment changes.
func (s *sessionsStore) UpdateRolesForUser(ctx context.Context, userID int64, roles []string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE sessions SET roles=? WHERE user_id=? AND revoked=0`, toJSON(roles), userID)
	return err
}

func (s *sessionsStore) PurgeExpired(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at < ?`, before.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *sessionsStore) ListByUser(ctx context.Context, userID int64) ([]SessionRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE user_id=? AND revoked=0 AND expires_at > ? ORDER BY last_seen_at DESC`, userID, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []SessionRecord
	for rows.Next() {
		sr, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, *sr)
	}
	return res, rows.Err()
}
