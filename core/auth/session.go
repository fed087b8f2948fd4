package auth

import (
	"context"
	"errors"
	"time"

	"props-bible/config"
	"props-bible/core/store"

	"github.com/gofrs/uuid/v5"
)

type SessionManager struct {
	cfg      *config.AppConfig
	sessions store.SessionStore
}

func NewSessionManager(cfg *config.AppConfig, sessions store.SessionStore) *SessionManager {
	return &SessionManager{cfg: cfg, sessions: sessions}
}

func (m *SessionManager) ttl() time.Duration {
	if m.cfg == nil || m.cfg.SessionTTL <= 0 {
		return 12 * time.Hour
	}
	return m.cfg.SessionTTL
}

func (m *SessionManager) Create(ctx context.Context, user *store.User, roles []string, ip, userAgent string) (*store.SessionRecord, error) {
	if user == nil {
		return nil, errors.New("nil user")
	}
	id, err := uuid.NewV7()
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	secret := ""
	if m.cfg != nil {
		secret = m.cfg.CSRFKey
	}
	sess := &store.SessionRecord{
		ID:         id.String(),
		UserID:     user.ID,
		Username:   user.Username,
		Roles:      roles,
		IP:         ip,
		UserAgent:  userAgent,
		CSRFToken:  GenerateCSRF(secret, id.String(), now),
		CreatedAt:  now,
		LastSeenAt: now,
		ExpiresAt:  now.Add(m.ttl()),
	}
	if err := m.sessions.SaveSession(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// Lookup returns the live session or nil when missing, revoked or expired.
func (m *SessionManager) Lookup(ctx context.Context, id string) (*store.SessionRecord, error) {
	if id == "" {
		return nil, nil
	}
	sess, err := m.sessions.GetSession(ctx, id)
	if err != nil || sess == nil {
		return nil, err
	}
	if sess.Revoked || time.Now().UTC().After(sess.ExpiresAt) {
		return nil, nil
	}
	return sess, nil
}

func (m *SessionManager) Touch(ctx context.Context, id string, now time.Time) error {
	return m.sessions.UpdateActivity(ctx, id, now, m.ttl())
}

func (m *SessionManager) Destroy(ctx context.Context, id, by string) error {
	return m.sessions.DeleteSession(ctx, id, by)
}
