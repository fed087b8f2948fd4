package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"
)

type ShowsStore interface {
	Create(ctx context.Context, show *Show, ownerRole string) (int64, error)
	Get(ctx context.Context, id int64) (*Show, error)
	ListForUser(ctx context.Context, userID int64, includeArchived bool) ([]Show, error)
	Update(ctx context.Context, show *Show) error
	SetStatus(ctx context.Context, id int64, from, to string, at time.Time) error
	SetActs(ctx context.Context, id int64, acts []Act) error
	SetLogo(ctx context.Context, id int64, key string) error
	Delete(ctx context.Context, id int64) error

	Members(ctx context.Context, showID int64) ([]ShowMember, error)
	Member(ctx context.Context, showID, userID int64) (*ShowMember, error)
	AddMember(ctx context.Context, m *ShowMember) (int64, error)
	UpdateMemberRole(ctx context.Context, showID, userID int64, roleID string) error
	RemoveMember(ctx context.Context, showID, userID int64) error
}

type showsStore struct {
	db *sql.DB
}

func NewShowsStore(db *sql.DB) ShowsStore {
	return &showsStore{db: db}
}

const showColumns = `id, owner_id, name, description, venue, company, starts_on, ends_on, status, acts, logo_key, archived_at, created_at, updated_at`

func scanShow(row rowScanner) (*Show, error) {
	var sh Show
	var startsOn, endsOn, archivedAt sql.NullTime
	var actsRaw string
	if err := row.Scan(&sh.ID, &sh.OwnerID, &sh.Name, &sh.Description, &sh.Venue, &sh.Company, &startsOn, &endsOn,
		&sh.Status, &actsRaw, &sh.LogoKey, &archivedAt, &sh.CreatedAt, &sh.UpdatedAt); err != nil {
		return nil, err
	}
	sh.StartsOn = timePtr(startsOn)
	sh.EndsOn = timePtr(endsOn)
	sh.ArchivedAt = timePtr(archivedAt)
	sh.Acts = []Act{}
	_ = json.Unmarshal([]byte(actsRaw), &sh.Acts)
	return &sh, nil
}

// Create inserts the show and records the owner as its first member.
func (s *showsStore) Create(ctx context.Context, show *Show, ownerRole string) (int64, error) {
	now := time.Now().UTC()
	show.Status = ShowStatusActive
	show.CreatedAt = now
	show.UpdatedAt = now
	if show.Acts == nil {
		show.Acts = []Act{}
	}
	var id int64
	err := withTx(ctx, s.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO shows(owner_id, name, description, venue, company, starts_on, ends_on, status, acts, logo_key, created_at, updated_at)
			VALUES(?,?,?,?,?,?,?,?,?,?,?,?)`,
			show.OwnerID, show.Name, show.Description, show.Venue, show.Company, nullableTime(show.StartsOn), nullableTime(show.EndsOn),
			show.Status, toJSON(show.Acts), show.LogoKey, now, now)
		if err != nil {
			return err
		}
		id, err = res.LastInsertId()
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `INSERT INTO show_members(show_id, user_id, role_id, added_by, created_at) VALUES(?,?,?,?,?)`,
			id, show.OwnerID, ownerRole, show.OwnerID, now)
		return err
	})
	if err != nil {
		return 0, err
	}
	show.ID = id
	return id, nil
}

func (s *showsStore) Get(ctx context.Context, id int64) (*Show, error) {
	sh, err := scanShow(s.db.QueryRowContext(ctx, `SELECT `+showColumns+` FROM shows WHERE id=?`, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return sh, nil
}

func (s *showsStore) ListForUser(ctx context.Context, userID int64, includeArchived bool) ([]Show, error) {
	q := `SELECT ` + showColumns + ` FROM shows
		WHERE (owner_id=? OR id IN (SELECT show_id FROM show_members WHERE user_id=?))`
	args := []any{userID, userID}
	if !includeArchived {
		q += ` AND status=?`
		args = append(args, ShowStatusActive)
	}
	q += ` ORDER BY created_at DESC, id DESC`
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []Show{}
	for rows.Next() {
		sh, err := scanShow(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, *sh)
	}
	return res, rows.Err()
}

func (s *showsStore) Update(ctx context.Context, show *Show) error {
	show.UpdatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		UPDATE shows SET name=?, description=?, venue=?, company=?, starts_on=?, ends_on=?, updated_at=? WHERE id=?`,
		show.Name, show.Description, show.Venue, show.Company, nullableTime(show.StartsOn), nullableTime(show.EndsOn), show.UpdatedAt, show.ID)
	if err != nil {
		return err
	}
	return affectedOrNoRows(res)
}

// SetStatus moves the show only if it is still in the expected status.
func (s *showsStore) SetStatus(ctx context.Context, id int64, from, to string, at time.Time) error {
	var archivedAt any
	if to == ShowStatusArchived {
		archivedAt = at.UTC()
	}
	res, err := s.db.ExecContext(ctx, `UPDATE shows SET status=?, archived_at=?, updated_at=? WHERE id=? AND status=?`,
		to, archivedAt, at.UTC(), id, from)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrVersionConflict
	}
	return nil
}

func (s *showsStore) SetActs(ctx context.Context, id int64, acts []Act) error {
	if acts == nil {
		acts = []Act{}
	}
	res, err := s.db.ExecContext(ctx, `UPDATE shows SET acts=?, updated_at=? WHERE id=?`, toJSON(acts), time.Now().UTC(), id)
	if err != nil {
		return err
	}
	return affectedOrNoRows(res)
}

func (s *showsStore) SetLogo(ctx context.Context, id int64, key string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE shows SET logo_key=?, updated_at=? WHERE id=?`, key, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	return affectedOrNoRows(res)
}

func (s *showsStore) Delete(ctx context.Context, id int64) error {
	return withTx(ctx, s.db, func(tx *sql.Tx) error {
		// children are listed explicitly; sqlite only cascades with foreign_keys on
		for _, q := range []string{
			`DELETE FROM pack_container_props WHERE container_id IN (SELECT c.id FROM pack_containers c JOIN pack_lists l ON l.id=c.pack_list_id WHERE l.show_id=?)`,
			`DELETE FROM pack_containers WHERE pack_list_id IN (SELECT id FROM pack_lists WHERE show_id=?)`,
			`DELETE FROM pack_lists WHERE show_id=?`,
			`DELETE FROM prop_status_history WHERE prop_id IN (SELECT id FROM props WHERE show_id=?)`,
			`DELETE FROM props WHERE show_id=?`,
			`DELETE FROM shopping_options WHERE item_id IN (SELECT id FROM shopping_items WHERE show_id=?)`,
			`DELETE FROM shopping_items WHERE show_id=?`,
			`DELETE FROM invitations WHERE show_id=?`,
			`DELETE FROM show_members WHERE show_id=?`,
			`UPDATE boards SET show_id=NULL WHERE show_id=?`,
		} {
			if _, err := tx.ExecContext(ctx, q, id); err != nil {
				return err
			}
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM shows WHERE id=?`, id)
		if err != nil {
			return err
		}
		return affectedOrNoRows(res)
	})
}

func (s *showsStore) Members(ctx context.Context, showID int64) ([]ShowMember, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT m.id, m.show_id, m.user_id, u.username, u.full_name, m.role_id, m.added_by, m.created_at
		FROM show_members m JOIN users u ON u.id=m.user_id
		WHERE m.show_id=? ORDER BY m.created_at, m.id`, showID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []ShowMember{}
	for rows.Next() {
		var m ShowMember
		if err := rows.Scan(&m.ID, &m.ShowID, &m.UserID, &m.Username, &m.FullName, &m.RoleID, &m.AddedBy, &m.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, m)
	}
	return res, rows.Err()
}

func (s *showsStore) Member(ctx context.Context, showID, userID int64) (*ShowMember, error) {
	var m ShowMember
	err := s.db.QueryRowContext(ctx, `
		SELECT m.id, m.show_id, m.user_id, u.username, u.full_name, m.role_id, m.added_by, m.created_at
		FROM show_members m JOIN users u ON u.id=m.user_id
		WHERE m.show_id=? AND m.user_id=?`, showID, userID).
		Scan(&m.ID, &m.ShowID, &m.UserID, &m.Username, &m.FullName, &m.RoleID, &m.AddedBy, &m.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}

func (s *showsStore) AddMember(ctx context.Context, m *ShowMember) (int64, error) {
	existing, err := s.Member(ctx, m.ShowID, m.UserID)
	if err != nil {
		return 0, err
	}
	if existing != nil {
		return 0, ErrDuplicate
	}
	m.RoleID = strings.ToLower(strings.TrimSpace(m.RoleID))
	m.CreatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `INSERT INTO show_members(show_id, user_id, role_id, added_by, created_at) VALUES(?,?,?,?,?)`,
		m.ShowID, m.UserID, m.RoleID, m.AddedBy, m.CreatedAt)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	m.ID = id
	return id, nil
}

func (s *showsStore) UpdateMemberRole(ctx context.Context, showID, userID int64, roleID string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE show_members SET role_id=? WHERE show_id=? AND user_id=?`, strings.ToLower(strings.TrimSpace(roleID)), showID, userID)
	if err != nil {
		return err
	}
	return affectedOrNoRows(res)
}

func (s *showsStore) RemoveMember(ctx context.Context, showID, userID int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM show_members WHERE show_id=? AND user_id=?`, showID, userID)
	if err != nil {
		return err
	}
	return affectedOrNoRows(res)
}
