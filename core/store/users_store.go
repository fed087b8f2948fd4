package store

import (
	"context"
	"database/sql"
	"strings"
	"time"
)

type UsersStore interface {
	FindByUsername(ctx context.Context, username string) (*User, []string, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	Get(ctx context.Context, userID int64) (*User, []string, error)
	Create(ctx context.Context, user *User, roles []string) (int64, error)
	List(ctx context.Context) ([]UserWithRoles, error)
	SetRoles(ctx context.Context, userID int64, roles []string) error
	SetPlan(ctx context.Context, userID int64, plan string) error
	SetActive(ctx context.Context, userID int64, active bool) error
	UpdatePassword(ctx context.Context, userID int64, hash, salt string) error
	TouchLogin(ctx context.Context, userID int64, at time.Time) error
	CountWithRole(ctx context.Context, roleID string) (int, error)
	ListOwnerIDs(ctx context.Context) ([]int64, error)
}

type usersStore struct {
	db *sql.DB
}

func NewUsersStore(db *sql.DB) UsersStore {
	return &usersStore{db: db}
}

const userColumns = `id, username, email, full_name, password_hash, salt, password_set, active, plan, last_login_at, created_at, updated_at`

func (s *usersStore) FindByUsername(ctx context.Context, username string) (*User, []string, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE username=?`, strings.ToLower(strings.TrimSpace(username)))
	return s.scanUserWithRoles(ctx, row)
}

func (s *usersStore) FindByEmail(ctx context.Context, email string) (*User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE LOWER(email)=? ORDER BY id LIMIT 1`, strings.ToLower(strings.TrimSpace(email)))
	return scanUser(row)
}

func (s *usersStore) Get(ctx context.Context, userID int64) (*User, []string, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id=?`, userID)
	return s.scanUserWithRoles(ctx, row)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*User, error) {
	u := User{}
	var passwordSet, active int
	var lastLogin sql.NullTime
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.FullName, &u.PasswordHash, &u.Salt, &passwordSet, &active, &u.Plan, &lastLogin, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	u.PasswordSet = passwordSet == 1
	u.Active = active == 1
	u.LastLoginAt = timePtr(lastLogin)
	return &u, nil
}

func (s *usersStore) scanUserWithRoles(ctx context.Context, row *sql.Row) (*User, []string, error) {
	u, err := scanUser(row)
	if err != nil || u == nil {
		return nil, nil, err
	}
	roles, err := s.rolesForUser(ctx, u.ID)
	if err != nil {
		return nil, nil, err
	}
	return u, roles, nil
}

func (s *usersStore) Create(ctx context.Context, user *User, roles []string) (int64, error) {
	now := time.Now().UTC()
	user.Username = strings.ToLower(strings.TrimSpace(user.Username))
	user.CreatedAt = now
	user.UpdatedAt = now
	var id int64
	err := withTx(ctx, s.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO users(username, email, full_name, password_hash, salt, password_set, active, plan, created_at, updated_at)
			VALUES(?,?,?,?,?,?,?,?,?,?)`,
			user.Username, strings.TrimSpace(user.Email), user.FullName, user.PasswordHash, user.Salt,
			boolToInt(user.PasswordSet), boolToInt(user.Active), user.Plan, now, now)
		if err != nil {
			return err
		}
		id, err = res.LastInsertId()
		if err != nil {
			return err
		}
		return assignRolesTx(ctx, tx, id, roles)
	})
	if err != nil {
		return 0, err
	}
	user.ID = id
	return id, nil
}

func (s *usersStore) List(ctx context.Context) ([]UserWithRoles, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY username`)
	if err != nil {
		return nil, err
	}
	var users []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()
	out := make([]UserWithRoles, 0, len(users))
	for _, u := range users {
		roles, err := s.rolesForUser(ctx, u.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, UserWithRoles{User: u, Roles: roles})
	}
	return out, nil
}

func (s *usersStore) SetRoles(ctx context.Context, userID int64, roles []string) error {
	return withTx(ctx, s.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM user_roles WHERE user_id=?`, userID); err != nil {
			return err
		}
		if err := assignRolesTx(ctx, tx, userID, roles); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `UPDATE users SET updated_at=? WHERE id=?`, time.Now().UTC(), userID)
		return err
	})
}

func (s *usersStore) SetPlan(ctx context.Context, userID int64, plan string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE users SET plan=?, updated_at=? WHERE id=?`, plan, time.Now().UTC(), userID)
	if err != nil {
		return err
	}
	return affectedOrNoRows(res)
}

func (s *usersStore) SetActive(ctx context.Context, userID int64, active bool) error {
	res, err := s.db.ExecContext(ctx, `UPDATE users SET active=?, updated_at=? WHERE id=?`, boolToInt(active), time.Now().UTC(), userID)
	if err != nil {
		return err
	}
	return affectedOrNoRows(res)
}

func (s *usersStore) UpdatePassword(ctx context.Context, userID int64, hash, salt string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE users SET password_hash=?, salt=?, password_set=1, updated_at=? WHERE id=?`, hash, salt, time.Now().UTC(), userID)
	return err
}

func (s *usersStore) TouchLogin(ctx context.Context, userID int64, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `UPDATE users SET last_login_at=? WHERE id=?`, at.UTC(), userID)
	return err
}

// CountWithRole counts platform assignments, show memberships and pending invitations
// holding the job role.
func (s *usersStore) CountWithRole(ctx context.Context, roleID string) (int, error) {
	var direct, members, pending int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM user_roles WHERE role_id=?`, roleID).Scan(&direct); err != nil {
		return 0, err
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM show_members WHERE role_id=?`, roleID).Scan(&members); err != nil {
		return 0, err
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM invitations WHERE role_id=? AND status=?`, roleID, InvitationPending).Scan(&pending); err != nil {
		return 0, err
	}
	return direct + members + pending, nil
}

func (s *usersStore) ListOwnerIDs(ctx context.Context) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM users ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func assignRolesTx(ctx context.Context, tx *sql.Tx, userID int64, roles []string) error {
	seen := map[string]struct{}{}
	for _, r := range roles {
		r = strings.ToLower(strings.TrimSpace(r))
		if r == "" {
			continue
		}
		if _, ok := seen[r]; ok {
			continue
		}
		seen[r] = struct{}{}
		if _, err := tx.ExecContext(ctx, `INSERT INTO user_roles(user_id, role_id) VALUES(?, ?)`, userID, r); err != nil {
			return err
		}
	}
	return nil
}

func (s *usersStore) rolesForUser(ctx context.Context, userID int64) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT role_id FROM user_roles WHERE user_id=? ORDER BY role_id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	roles := []string{}
	for rows.Next() {
		var r string
		if err := rows.Scan(&r); err != nil {
			return nil, err
		}
		roles = append(roles, r)
	}
	return roles, rows.Err()
}
