package store

import (
	"context"
	"database/sql"
	"time"

	"props-bible/boards"
)

const boardColumns = `id, owner_id, show_id, name, description, position, created_at, updated_at`

func scanBoard(row rowScanner) (*boards.Board, error) {
	var b boards.Board
	var showID sql.NullInt64
	if err := row.Scan(&b.ID, &b.OwnerID, &showID, &b.Name, &b.Description, &b.Position, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return nil, err
	}
	if showID.Valid {
		id := showID.Int64
		b.ShowID = &id
	}
	return &b, nil
}

// CreateBoard appends the board to the owner's order and creates its initial lists.
func (s *SQLStore) CreateBoard(ctx context.Context, board *boards.Board, lists []string) (int64, error) {
	now := time.Now().UTC()
	err := withTx(ctx, s.db, func(tx *sql.Tx) error {
		max, err := maxPosition(ctx, tx, "boards", "owner_id", board.OwnerID)
		if err != nil {
			return err
		}
		board.Position = max + 1
		res, err := tx.ExecContext(ctx, `
			INSERT INTO boards(owner_id, show_id, name, description, position, created_at, updated_at)
			VALUES(?,?,?,?,?,?,?)`,
			board.OwnerID, nullableID(board.ShowID), board.Name, board.Description, board.Position, now, now)
		if err != nil {
			return err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		board.ID = id
		for i, name := range lists {
			if _, err := tx.ExecContext(ctx, `INSERT INTO board_lists(board_id, name, position, created_at, updated_at) VALUES(?,?,?,?,?)`,
				id, name, i+1, now, now); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	board.CreatedAt = now
	board.UpdatedAt = now
	return board.ID, nil
}

func (s *SQLStore) UpdateBoard(ctx context.Context, board *boards.Board) error {
	board.UpdatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `UPDATE boards SET name=?, description=?, updated_at=? WHERE id=?`,
		board.Name, board.Description, board.UpdatedAt, board.ID)
	if err != nil {
		return err
	}
	return affectedOrNoRows(res)
}

func (s *SQLStore) MoveBoard(ctx context.Context, boardID int64, position int) (*boards.Board, error) {
	var board *boards.Board
	err := withTx(ctx, s.db, func(tx *sql.Tx) error {
		var err error
		board, err = scanBoard(tx.QueryRowContext(ctx, `SELECT `+boardColumns+` FROM boards WHERE id=?`, boardID))
		if err != nil {
			return err
		}
		max, err := maxPosition(ctx, tx, "boards", "owner_id", board.OwnerID)
		if err != nil {
			return err
		}
		if position <= 0 || position > max {
			position = max
		}
		if position == board.Position {
			return nil
		}
		if err := shiftInScope(ctx, tx, "boards", "owner_id", board.OwnerID, board.Position, position); err != nil {
			return err
		}
		now := time.Now().UTC()
		if _, err := tx.ExecContext(ctx, `UPDATE boards SET position=?, updated_at=? WHERE id=?`, position, now, boardID); err != nil {
			return err
		}
		board.Position = position
		board.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, err
	}
	return board, nil
}

func (s *SQLStore) DeleteBoard(ctx context.Context, boardID int64) error {
	return withTx(ctx, s.db, func(tx *sql.Tx) error {
		var ownerID int64
		var position int
		if err := tx.QueryRowContext(ctx, `SELECT owner_id, position FROM boards WHERE id=?`, boardID).Scan(&ownerID, &position); err != nil {
			return err
		}
		for _, q := range []string{
			`DELETE FROM board_cards WHERE board_id=?`,
			`DELETE FROM board_lists WHERE board_id=?`,
			`DELETE FROM boards WHERE id=?`,
		} {
			if _, err := tx.ExecContext(ctx, q, boardID); err != nil {
				return err
			}
		}
		_, err := tx.ExecContext(ctx, `UPDATE boards SET position=position-1 WHERE owner_id=? AND position>?`, ownerID, position)
		return err
	})
}

func (s *SQLStore) GetBoard(ctx context.Context, boardID int64) (*boards.Board, error) {
	b, err := scanBoard(s.db.QueryRowContext(ctx, `SELECT `+boardColumns+` FROM boards WHERE id=?`, boardID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return b, nil
}

func (s *SQLStore) ListBoards(ctx context.Context, filter boards.BoardFilter) ([]boards.Board, error) {
	q := `SELECT ` + boardColumns + ` FROM boards WHERE (owner_id=? AND show_id IS NULL)`
	args := []any{filter.OwnerID}
	if len(filter.ShowIDs) > 0 {
		q += ` OR show_id IN (` + placeholders(len(filter.ShowIDs)) + `)`
		args = append(args, toAny(filter.ShowIDs)...)
	}
	q += ` ORDER BY position, id`
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []boards.Board{}
	for rows.Next() {
		b, err := scanBoard(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, *b)
	}
	return res, rows.Err()
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	out := make([]byte, 0, n*2)
	for i := 0; i < n; i++ {
		if i > 0 {
			out = append(out, ',')
		}
		out = append(out, '?')
	}
	return string(out)
}

func toAny(items []int64) []any {
	out := make([]any, 0, len(items))
	for _, v := range items {
		out = append(out, v)
	}
	return out
}
