package store

import (
	"context"
	"database/sql"
	"time"
)

type PackingStore interface {
	ListByShow(ctx context.Context, showID int64) ([]PackList, error)
	Get(ctx context.Context, id int64) (*PackList, error)
	GetWithContents(ctx context.Context, id int64) (*PackList, error)
	Create(ctx context.Context, pl *PackList) (int64, error)
	Update(ctx context.Context, pl *PackList) error
	Delete(ctx context.Context, id int64) error

	GetContainer(ctx context.Context, id int64) (*PackContainer, error)
	CreateContainer(ctx context.Context, c *PackContainer) (int64, error)
	UpdateContainer(ctx context.Context, c *PackContainer) error
	DeleteContainer(ctx context.Context, id int64) error
	PutProp(ctx context.Context, containerID, propID int64, quantity int) error
	RemoveProp(ctx context.Context, containerID, propID int64) error
}

type packingStore struct {
	db *sql.DB
}

func NewPackingStore(db *sql.DB) PackingStore {
	return &packingStore{db: db}
}

const packListColumns = `id, show_id, owner_id, name, description, created_by, created_at, updated_at`

func scanPackList(row rowScanner) (*PackList, error) {
	var pl PackList
	if err := row.Scan(&pl.ID, &pl.ShowID, &pl.OwnerID, &pl.Name, &pl.Description, &pl.CreatedBy, &pl.CreatedAt, &pl.UpdatedAt); err != nil {
		return nil, err
	}
	return &pl, nil
}

func (s *packingStore) ListByShow(ctx context.Context, showID int64) ([]PackList, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+packListColumns+` FROM pack_lists WHERE show_id=? ORDER BY name, id`, showID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []PackList{}
	for rows.Next() {
		pl, err := scanPackList(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, *pl)
	}
	return res, rows.Err()
}

func (s *packingStore) Get(ctx context.Context, id int64) (*PackList, error) {
	pl, err := scanPackList(s.db.QueryRowContext(ctx, `SELECT `+packListColumns+` FROM pack_lists WHERE id=?`, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return pl, nil
}

// GetWithContents loads containers and their props and derives weight totals.
func (s *packingStore) GetWithContents(ctx context.Context, id int64) (*PackList, error) {
	pl, err := s.Get(ctx, id)
	if err != nil || pl == nil {
		return pl, err
	}
	containers, err := s.containers(ctx, id)
	if err != nil {
		return nil, err
	}
	byID := map[int64]int{}
	for i := range containers {
		byID[containers[i].ID] = i
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT cp.id, cp.container_id, cp.prop_id, p.name, p.weight_kg, cp.quantity, cp.created_at
		FROM pack_container_props cp
		JOIN pack_containers c ON c.id=cp.container_id
		JOIN props p ON p.id=cp.prop_id
		WHERE c.pack_list_id=?
		ORDER BY cp.container_id, p.name, cp.id`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var cp ContainerProp
		if err := rows.Scan(&cp.ID, &cp.ContainerID, &cp.PropID, &cp.PropName, &cp.WeightKg, &cp.Quantity, &cp.CreatedAt); err != nil {
			return nil, err
		}
		if idx, ok := byID[cp.ContainerID]; ok {
			containers[idx].Props = append(containers[idx].Props, cp)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range containers {
		ApplyContainerTotals(&containers[i])
	}
	pl.Containers = containers
	return pl, nil
}

// ApplyContainerTotals sums prop weight * quantity. OverWeight is informational only.
func ApplyContainerTotals(c *PackContainer) {
	total := 0.0
	for _, p := range c.Props {
		total += p.WeightKg * float64(p.Quantity)
	}
	c.TotalWeightKg = total
	c.OverWeight = c.MaxWeightKg > 0 && total > c.MaxWeightKg
}

func (s *packingStore) Create(ctx context.Context, pl *PackList) (int64, error) {
	now := time.Now().UTC()
	pl.CreatedAt = now
	pl.UpdatedAt = now
	res, err := s.db.ExecContext(ctx, `INSERT INTO pack_lists(show_id, owner_id, name, description, created_by, created_at, updated_at) VALUES(?,?,?,?,?,?,?)`,
		pl.ShowID, pl.OwnerID, pl.Name, pl.Description, pl.CreatedBy, now, now)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	pl.ID = id
	return id, nil
}

func (s *packingStore) Update(ctx context.Context, pl *PackList) error {
	pl.UpdatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `UPDATE pack_lists SET name=?, description=?, updated_at=? WHERE id=?`, pl.Name, pl.Description, pl.UpdatedAt, pl.ID)
	if err != nil {
		return err
	}
	return affectedOrNoRows(res)
}

func (s *packingStore) Delete(ctx context.Context, id int64) error {
	return withTx(ctx, s.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM pack_container_props WHERE container_id IN (SELECT id FROM pack_containers WHERE pack_list_id=?)`, id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM pack_containers WHERE pack_list_id=?`, id); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM pack_lists WHERE id=?`, id)
		if err != nil {
			return err
		}
		return affectedOrNoRows(res)
	})
}

const containerColumns = `id, pack_list_id, name, kind, max_weight_kg, location, notes, position, created_at, updated_at`

func scanContainer(row rowScanner) (*PackContainer, error) {
	var c PackContainer
	if err := row.Scan(&c.ID, &c.PackListID, &c.Name, &c.Kind, &c.MaxWeightKg, &c.Location, &c.Notes, &c.Position, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	c.Props = []ContainerProp{}
	return &c, nil
}

func (s *packingStore) containers(ctx context.Context, packListID int64) ([]PackContainer, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+containerColumns+` FROM pack_containers WHERE pack_list_id=? ORDER BY position, id`, packListID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []PackContainer{}
	for rows.Next() {
		c, err := scanContainer(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, *c)
	}
	return res, rows.Err()
}

func (s *packingStore) GetContainer(ctx context.Context, id int64) (*PackContainer, error) {
	c, err := scanContainer(s.db.QueryRowContext(ctx, `SELECT `+containerColumns+` FROM pack_containers WHERE id=?`, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return c, nil
}

func (s *packingStore) CreateContainer(ctx context.Context, c *PackContainer) (int64, error) {
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now
	var id int64
	err := withTx(ctx, s.db, func(tx *sql.Tx) error {
		var maxPos sql.NullInt64
		if err := tx.QueryRowContext(ctx, `SELECT MAX(position) FROM pack_containers WHERE pack_list_id=?`, c.PackListID).Scan(&maxPos); err != nil {
			return err
		}
		c.Position = 1
		if maxPos.Valid {
			c.Position = int(maxPos.Int64) + 1
		}
		res, err := tx.ExecContext(ctx, `
			INSERT INTO pack_containers(pack_list_id, name, kind, max_weight_kg, location, notes, position, created_at, updated_at)
			VALUES(?,?,?,?,?,?,?,?,?)`,
			c.PackListID, c.Name, c.Kind, c.MaxWeightKg, c.Location, c.Notes, c.Position, now, now)
		if err != nil {
			return err
		}
		id, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return 0, err
	}
	c.ID = id
	return id, nil
}

func (s *packingStore) UpdateContainer(ctx context.Context, c *PackContainer) error {
	c.UpdatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `UPDATE pack_containers SET name=?, kind=?, max_weight_kg=?, location=?, notes=?, updated_at=? WHERE id=?`,
		c.Name, c.Kind, c.MaxWeightKg, c.Location, c.Notes, c.UpdatedAt, c.ID)
	if err != nil {
		return err
	}
	return affectedOrNoRows(res)
}

func (s *packingStore) DeleteContainer(ctx context.Context, id int64) error {
	return withTx(ctx, s.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM pack_container_props WHERE container_id=?`, id); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM pack_containers WHERE id=?`, id)
		if err != nil {
			return err
		}
		return affectedOrNoRows(res)
	})
}

// PutProp adds the prop to the container or replaces its quantity.
func (s *packingStore) PutProp(ctx context.Context, containerID, propID int64, quantity int) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO pack_container_props(container_id, prop_id, quantity, created_at) VALUES(?,?,?,?)
		ON CONFLICT(container_id, prop_id) DO UPDATE SET quantity=excluded.quantity`,
		containerID, propID, quantity, time.Now().UTC())
	return err
}

func (s *packingStore) RemoveProp(ctx context.Context, containerID, propID int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM pack_container_props WHERE container_id=? AND prop_id=?`, containerID, propID)
	if err != nil {
		return err
	}
	return affectedOrNoRows(res)
}
