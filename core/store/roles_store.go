package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"props-bible/core/jobroles"
)

type RolesStore interface {
	List(ctx context.Context) ([]jobroles.Role, error)
	ListCustom(ctx context.Context) ([]jobroles.Role, error)
	Get(ctx context.Context, roleID string) (*jobroles.Role, error)
	Create(ctx context.Context, role jobroles.Role) error
	Update(ctx context.Context, role jobroles.Role, expectedVersion int) error
	Delete(ctx context.Context, roleID string) error
	EnsureBuiltIn(ctx context.Context, roles []jobroles.Role) error
}

type rolesStore struct {
	db *sql.DB
}

func NewRolesStore(db *sql.DB) RolesStore {
	return &rolesStore{db: db}
}

const roleColumns = `role_id, name, description, category, hierarchy, permissions, built_in, customizable, based_on, version, created_by, created_at, updated_at`

func scanRole(row rowScanner) (*jobroles.Role, error) {
	var r jobroles.Role
	var category, permsRaw string
	var builtIn, customizable int
	if err := row.Scan(&r.ID, &r.Name, &r.Description, &category, &r.Hierarchy, &permsRaw, &builtIn, &customizable, &r.BasedOn, &r.Version, &r.CreatedBy, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	r.Category = jobroles.RoleCategory(category)
	_ = json.Unmarshal([]byte(permsRaw), &r.Permissions)
	r.IsCustom = builtIn == 0
	r.IsCustomizable = customizable == 1
	return &r, nil
}

func (s *rolesStore) list(ctx context.Context, where string) ([]jobroles.Role, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+roleColumns+` FROM roles `+where+` ORDER BY hierarchy, role_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []jobroles.Role
	for rows.Next() {
		r, err := scanRole(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, *r)
	}
	return res, rows.Err()
}

func (s *rolesStore) List(ctx context.Context) ([]jobroles.Role, error) {
	return s.list(ctx, "")
}

func (s *rolesStore) ListCustom(ctx context.Context) ([]jobroles.Role, error) {
	return s.list(ctx, "WHERE built_in=0")
}

func (s *rolesStore) Get(ctx context.Context, roleID string) (*jobroles.Role, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+roleColumns+` FROM roles WHERE role_id=?`, strings.ToLower(strings.TrimSpace(roleID)))
	r, err := scanRole(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return r, nil
}

func (s *rolesStore) Create(ctx context.Context, role jobroles.Role) error {
	existing, err := s.Get(ctx, role.ID)
	if err != nil {
		return err
	}
	if existing != nil {
		return ErrDuplicate
	}
	if role.CreatedAt.IsZero() {
		role.CreatedAt = time.Now().UTC()
	}
	if role.UpdatedAt.IsZero() {
		role.UpdatedAt = role.CreatedAt
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO roles(`+roleColumns+`) VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		role.ID, role.Name, role.Description, string(role.Category), role.Hierarchy, toJSON(jobroles.ActionStrings(role.Permissions)),
		0, boolToInt(role.IsCustomizable), role.BasedOn, role.Version, role.CreatedBy, role.CreatedAt, role.UpdatedAt)
	return err
}

// Update writes role only if the stored version still equals expectedVersion.
func (s *rolesStore) Update(ctx context.Context, role jobroles.Role, expectedVersion int) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE roles SET name=?, description=?, permissions=?, version=?, updated_at=?
		WHERE role_id=? AND version=? AND built_in=0`,
		role.Name, role.Description, toJSON(jobroles.ActionStrings(role.Permissions)), role.Version, role.UpdatedAt,
		role.ID, expectedVersion)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	existing, err := s.Get(ctx, role.ID)
	if err != nil {
		return err
	}
	if existing == nil || !existing.IsCustom {
		return sql.ErrNoRows
	}
	return ErrVersionConflict
}

func (s *rolesStore) Delete(ctx context.Context, roleID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM roles WHERE role_id=? AND built_in=0`, roleID)
	if err != nil {
		return err
	}
	return affectedOrNoRows(res)
}

// EnsureBuiltIn upserts the static registry so the table always mirrors the code.
func (s *rolesStore) EnsureBuiltIn(ctx context.Context, roles []jobroles.Role) error {
	now := time.Now().UTC()
	return withTx(ctx, s.db, func(tx *sql.Tx) error {
		for _, r := range roles {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO roles(`+roleColumns+`) VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?)
				ON CONFLICT(role_id) DO UPDATE SET name=excluded.name, description=excluded.description, category=excluded.category,
					hierarchy=excluded.hierarchy, permissions=excluded.permissions, built_in=1, customizable=excluded.customizable,
					updated_at=excluded.updated_at`,
				r.ID, r.Name, r.Description, string(r.Category), r.Hierarchy, toJSON(jobroles.ActionStrings(r.Permissions)),
				1, boolToInt(r.IsCustomizable), "", 1, "system", now, now); err != nil {
				return err
			}
		}
		return nil
	})
}
