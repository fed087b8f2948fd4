package store

import (
	"context"
	"database/sql"
	"strings"
	"time"
)

type InvitationsStore interface {
	Create(ctx context.Context, inv *Invitation) (int64, error)
	Get(ctx context.Context, id int64) (*Invitation, error)
	GetByToken(ctx context.Context, tokenID string) (*Invitation, error)
	ListByShow(ctx context.Context, showID int64) ([]Invitation, error)
	Revoke(ctx context.Context, id int64) error
	Accept(ctx context.Context, id int64, m *ShowMember, at time.Time) (int64, error)
}

type invitationsStore struct {
	db *sql.DB
}

func NewInvitationsStore(db *sql.DB) InvitationsStore {
	return &invitationsStore{db: db}
}

const invitationColumns = `id, token_id, show_id, email, role_id, invited_by, status, expires_at, accepted_by, accepted_at, created_at`

func scanInvitation(row rowScanner) (*Invitation, error) {
	var inv Invitation
	var acceptedBy sql.NullInt64
	var acceptedAt sql.NullTime
	if err := row.Scan(&inv.ID, &inv.TokenID, &inv.ShowID, &inv.Email, &inv.RoleID, &inv.InvitedBy, &inv.Status, &inv.ExpiresAt,
		&acceptedBy, &acceptedAt, &inv.CreatedAt); err != nil {
		return nil, err
	}
	inv.AcceptedBy = idPtr(acceptedBy)
	inv.AcceptedAt = timePtr(acceptedAt)
	return &inv, nil
}

func (s *invitationsStore) Create(ctx context.Context, inv *Invitation) (int64, error) {
	inv.CreatedAt = time.Now().UTC()
	inv.Email = strings.ToLower(strings.TrimSpace(inv.Email))
	if inv.Status == "" {
		inv.Status = InvitationPending
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO invitations(token_id, show_id, email, role_id, invited_by, status, expires_at, created_at)
		VALUES(?,?,?,?,?,?,?,?)`,
		inv.TokenID, inv.ShowID, inv.Email, inv.RoleID, inv.InvitedBy, inv.Status, inv.ExpiresAt.UTC(), inv.CreatedAt)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	inv.ID = id
	return id, nil
}

func (s *invitationsStore) get(ctx context.Context, where string, arg any) (*Invitation, error) {
	inv, err := scanInvitation(s.db.QueryRowContext(ctx, `SELECT `+invitationColumns+` FROM invitations WHERE `+where, arg))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return inv, nil
}

func (s *invitationsStore) Get(ctx context.Context, id int64) (*Invitation, error) {
	return s.get(ctx, `id=?`, id)
}

func (s *invitationsStore) GetByToken(ctx context.Context, tokenID string) (*Invitation, error) {
	return s.get(ctx, `token_id=?`, tokenID)
}

func (s *invitationsStore) ListByShow(ctx context.Context, showID int64) ([]Invitation, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+invitationColumns+` FROM invitations WHERE show_id=? ORDER BY created_at DESC, id DESC`, showID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []Invitation{}
	for rows.Next() {
		inv, err := scanInvitation(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, *inv)
	}
	return res, rows.Err()
}

func (s *invitationsStore) Revoke(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `UPDATE invitations SET status=? WHERE id=? AND status=?`, InvitationRevoked, id, InvitationPending)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrVersionConflict
	}
	return nil
}

// Accept flips a pending invitation and seats the member in one transaction. A second
// accept loses the race with ErrVersionConflict; an existing membership gives ErrDuplicate
// and leaves the invitation pending.
func (s *invitationsStore) Accept(ctx context.Context, id int64, m *ShowMember, at time.Time) (int64, error) {
	at = at.UTC()
	m.RoleID = strings.ToLower(strings.TrimSpace(m.RoleID))
	m.CreatedAt = at
	err := withTx(ctx, s.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `UPDATE invitations SET status=?, accepted_by=?, accepted_at=? WHERE id=? AND status=?`,
			InvitationAccepted, m.UserID, at, id, InvitationPending)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrVersionConflict
		}
		var seated int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(1) FROM show_members WHERE show_id=? AND user_id=?`, m.ShowID, m.UserID).Scan(&seated); err != nil {
			return err
		}
		if seated > 0 {
			return ErrDuplicate
		}
		res, err = tx.ExecContext(ctx, `INSERT INTO show_members(show_id, user_id, role_id, added_by, created_at) VALUES(?,?,?,?,?)`,
			m.ShowID, m.UserID, m.RoleID, m.AddedBy, m.CreatedAt)
		if err != nil {
			return err
		}
		m.ID, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return 0, err
	}
	return m.ID, nil
}
