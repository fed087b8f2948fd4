package store

import (
	"context"
	"database/sql"
	"time"
)

type ShoppingStore interface {
	ListByShow(ctx context.Context, showID int64, f ShoppingFilter) ([]ShoppingItem, error)
	Get(ctx context.Context, id int64) (*ShoppingItem, error)
	Create(ctx context.Context, item *ShoppingItem) (int64, error)
	Update(ctx context.Context, item *ShoppingItem) error
	SetStatus(ctx context.Context, id int64, from, to string, decidedBy int64) error
	Delete(ctx context.Context, id int64) error
	AddOption(ctx context.Context, opt *ShoppingOption) (int64, error)
	SelectOption(ctx context.Context, itemID, optionID int64) error
}

type shoppingStore struct {
	db *sql.DB
}

func NewShoppingStore(db *sql.DB) ShoppingStore {
	return &shoppingStore{db: db}
}

const shoppingColumns = `id, show_id, item_type, name, description, quantity, budget, status, selected_option_id, requested_by, decided_by, created_at, updated_at`

func scanShoppingItem(row rowScanner) (*ShoppingItem, error) {
	var it ShoppingItem
	var selected sql.NullInt64
	if err := row.Scan(&it.ID, &it.ShowID, &it.Type, &it.Name, &it.Description, &it.Quantity, &it.Budget, &it.Status, &selected,
		&it.RequestedBy, &it.DecidedBy, &it.CreatedAt, &it.UpdatedAt); err != nil {
		return nil, err
	}
	it.SelectedOptionID = idPtr(selected)
	it.Options = []ShoppingOption{}
	return &it, nil
}

func (s *shoppingStore) ListByShow(ctx context.Context, showID int64, f ShoppingFilter) ([]ShoppingItem, error) {
	q := `SELECT ` + shoppingColumns + ` FROM shopping_items WHERE show_id=?`
	args := []any{showID}
	if f.Type != "" {
		q += ` AND item_type=?`
		args = append(args, f.Type)
	}
	if f.Status != "" {
		q += ` AND status=?`
		args = append(args, f.Status)
	}
	q += ` ORDER BY created_at DESC, id DESC`
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	items := []ShoppingItem{}
	for rows.Next() {
		it, err := scanShoppingItem(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		items = append(items, *it)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()
	if len(items) == 0 {
		return items, nil
	}
	ids := make([]int64, 0, len(items))
	idx := map[int64]int{}
	for i, it := range items {
		ids = append(ids, it.ID)
		idx[it.ID] = i
	}
	opts, err := s.options(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, o := range opts {
		i := idx[o.ItemID]
		items[i].Options = append(items[i].Options, o)
	}
	return items, nil
}

func (s *shoppingStore) options(ctx context.Context, itemIDs []int64) ([]ShoppingOption, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, item_id, shop, url, price, notes, created_by, created_at
		FROM shopping_options WHERE item_id IN (`+placeholders(len(itemIDs))+`) ORDER BY price, id`, toAny(itemIDs)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []ShoppingOption
	for rows.Next() {
		var o ShoppingOption
		if err := rows.Scan(&o.ID, &o.ItemID, &o.Shop, &o.URL, &o.Price, &o.Notes, &o.CreatedBy, &o.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, o)
	}
	return res, rows.Err()
}

func (s *shoppingStore) Get(ctx context.Context, id int64) (*ShoppingItem, error) {
	it, err := scanShoppingItem(s.db.QueryRowContext(ctx, `SELECT `+shoppingColumns+` FROM shopping_items WHERE id=?`, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	opts, err := s.options(ctx, []int64{id})
	if err != nil {
		return nil, err
	}
	it.Options = append(it.Options, opts...)
	return it, nil
}

func (s *shoppingStore) Create(ctx context.Context, item *ShoppingItem) (int64, error) {
	now := time.Now().UTC()
	item.CreatedAt = now
	item.UpdatedAt = now
	if item.Status == "" {
		item.Status = ShoppingPending
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO shopping_items(show_id, item_type, name, description, quantity, budget, status, requested_by, decided_by, created_at, updated_at)
		VALUES(?,?,?,?,?,?,?,?,?,?,?)`,
		item.ShowID, item.Type, item.Name, item.Description, item.Quantity, item.Budget, item.Status, item.RequestedBy, 0, now, now)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	item.ID = id
	return id, nil
}

func (s *shoppingStore) Update(ctx context.Context, item *ShoppingItem) error {
	item.UpdatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `UPDATE shopping_items SET item_type=?, name=?, description=?, quantity=?, budget=?, updated_at=? WHERE id=?`,
		item.Type, item.Name, item.Description, item.Quantity, item.Budget, item.UpdatedAt, item.ID)
	if err != nil {
		return err
	}
	return affectedOrNoRows(res)
}

// SetStatus moves the item only if it is still in the expected status.
func (s *shoppingStore) SetStatus(ctx context.Context, id int64, from, to string, decidedBy int64) error {
	res, err := s.db.ExecContext(ctx, `UPDATE shopping_items SET status=?, decided_by=?, updated_at=? WHERE id=? AND status=?`,
		to, decidedBy, time.Now().UTC(), id, from)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrVersionConflict
	}
	return nil
}

func (s *shoppingStore) Delete(ctx context.Context, id int64) error {
	return withTx(ctx, s.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM shopping_options WHERE item_id=?`, id); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM shopping_items WHERE id=?`, id)
		if err != nil {
			return err
		}
		return affectedOrNoRows(res)
	})
}

func (s *shoppingStore) AddOption(ctx context.Context, opt *ShoppingOption) (int64, error) {
	opt.CreatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `INSERT INTO shopping_options(item_id, shop, url, price, notes, created_by, created_at) VALUES(?,?,?,?,?,?,?)`,
		opt.ItemID, opt.Shop, opt.URL, opt.Price, opt.Notes, opt.CreatedBy, opt.CreatedAt)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	opt.ID = id
	return id, nil
}

func (s *shoppingStore) SelectOption(ctx context.Context, itemID, optionID int64) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE shopping_items SET selected_option_id=?, updated_at=?
		WHERE id=? AND EXISTS (SELECT 1 FROM shopping_options WHERE id=? AND item_id=?)`,
		optionID, time.Now().UTC(), itemID, optionID, itemID)
	if err != nil {
		return err
	}
	return affectedOrNoRows(res)
}
