package store

import (
	"context"
	"database/sql"
	"time"

	"props-bible/boards"
)

const listColumns = `id, board_id, name, position, created_at, updated_at`

func scanList(row rowScanner) (*boards.List, error) {
	var l boards.List
	if err := row.Scan(&l.ID, &l.BoardID, &l.Name, &l.Position, &l.CreatedAt, &l.UpdatedAt); err != nil {
		return nil, err
	}
	return &l, nil
}

func (s *SQLStore) CreateList(ctx context.Context, list *boards.List) (int64, error) {
	now := time.Now().UTC()
	err := withTx(ctx, s.db, func(tx *sql.Tx) error {
		max, err := maxPosition(ctx, tx, "board_lists", "board_id", list.BoardID)
		if err != nil {
			return err
		}
		list.Position = max + 1
		res, err := tx.ExecContext(ctx, `INSERT INTO board_lists(board_id, name, position, created_at, updated_at) VALUES(?,?,?,?,?)`,
			list.BoardID, list.Name, list.Position, now, now)
		if err != nil {
			return err
		}
		list.ID, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return 0, err
	}
	list.CreatedAt = now
	list.UpdatedAt = now
	return list.ID, nil
}

func (s *SQLStore) RenameList(ctx context.Context, listID int64, name string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE board_lists SET name=?, updated_at=? WHERE id=?`, name, time.Now().UTC(), listID)
	if err != nil {
		return err
	}
	return affectedOrNoRows(res)
}

func (s *SQLStore) MoveList(ctx context.Context, listID int64, position int) (*boards.List, error) {
	var list *boards.List
	err := withTx(ctx, s.db, func(tx *sql.Tx) error {
		var err error
		list, err = scanList(tx.QueryRowContext(ctx, `SELECT `+listColumns+` FROM board_lists WHERE id=?`, listID))
		if err != nil {
			return err
		}
		max, err := maxPosition(ctx, tx, "board_lists", "board_id", list.BoardID)
		if err != nil {
			return err
		}
		if position <= 0 || position > max {
			position = max
		}
		if position == list.Position {
			return nil
		}
		if err := shiftInScope(ctx, tx, "board_lists", "board_id", list.BoardID, list.Position, position); err != nil {
			return err
		}
		now := time.Now().UTC()
		if _, err := tx.ExecContext(ctx, `UPDATE board_lists SET position=?, updated_at=? WHERE id=?`, position, now, listID); err != nil {
			return err
		}
		list.Position = position
		list.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, err
	}
	return list, nil
}

func (s *SQLStore) DeleteList(ctx context.Context, listID int64) error {
	return withTx(ctx, s.db, func(tx *sql.Tx) error {
		var boardID int64
		var position int
		if err := tx.QueryRowContext(ctx, `SELECT board_id, position FROM board_lists WHERE id=?`, listID).Scan(&boardID, &position); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM board_cards WHERE list_id=?`, listID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM board_lists WHERE id=?`, listID); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `UPDATE board_lists SET position=position-1 WHERE board_id=? AND position>?`, boardID, position)
		return err
	})
}

func (s *SQLStore) GetList(ctx context.Context, listID int64) (*boards.List, error) {
	l, err := scanList(s.db.QueryRowContext(ctx, `SELECT `+listColumns+` FROM board_lists WHERE id=?`, listID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return l, nil
}

func (s *SQLStore) ListLists(ctx context.Context, boardID int64) ([]boards.List, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+listColumns+` FROM board_lists WHERE board_id=? ORDER BY position, id`, boardID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []boards.List{}
	for rows.Next() {
		l, err := scanList(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, *l)
	}
	return res, rows.Err()
}
