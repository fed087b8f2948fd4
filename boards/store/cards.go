package store

import (
	"context"
	"database/sql"
	"time"

	"props-bible/boards"
)

const cardColumns = `id, board_id, list_id, title, description, due_date, assignees, completed, completed_at, position, created_by, created_at, updated_at`

func scanCard(row rowScanner) (*boards.Card, error) {
	var c boards.Card
	var due, completedAt sql.NullTime
	var assignees string
	var completed int
	if err := row.Scan(&c.ID, &c.BoardID, &c.ListID, &c.Title, &c.Description, &due, &assignees, &completed, &completedAt,
		&c.Position, &c.CreatedBy, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	if due.Valid {
		t := due.Time
		c.DueDate = &t
	}
	if completedAt.Valid {
		t := completedAt.Time
		c.CompletedAt = &t
	}
	c.Completed = completed == 1
	c.Assignees = []int64{}
	unmarshalJSON(assignees, &c.Assignees)
	return &c, nil
}

func (s *SQLStore) getCardTx(ctx context.Context, tx *sql.Tx, cardID int64) (*boards.Card, error) {
	return scanCard(tx.QueryRowContext(ctx, `SELECT `+cardColumns+` FROM board_cards WHERE id=?`, cardID))
}

// CreateCard appends the card to the end of its list.
func (s *SQLStore) CreateCard(ctx context.Context, card *boards.Card) (int64, error) {
	now := time.Now().UTC()
	err := withTx(ctx, s.db, func(tx *sql.Tx) error {
		max, err := maxPosition(ctx, tx, "board_cards", "list_id", card.ListID)
		if err != nil {
			return err
		}
		card.Position = max + 1
		res, err := tx.ExecContext(ctx, `
			INSERT INTO board_cards(board_id, list_id, title, description, due_date, assignees, completed, completed_at, position, created_by, created_at, updated_at)
			VALUES(?,?,?,?,?,?,?,?,?,?,?,?)`,
			card.BoardID, card.ListID, card.Title, card.Description, nullableTime(card.DueDate), marshalJSON(card.Assignees),
			boolToInt(card.Completed), nullableTime(card.CompletedAt), card.Position, card.CreatedBy, now, now)
		if err != nil {
			return err
		}
		card.ID, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return 0, err
	}
	card.CreatedAt = now
	card.UpdatedAt = now
	return card.ID, nil
}

func (s *SQLStore) UpdateCard(ctx context.Context, card *boards.Card) error {
	res, err := s.db.ExecContext(ctx, `UPDATE board_cards SET title=?, description=?, due_date=?, assignees=?, updated_at=? WHERE id=?`,
		card.Title, card.Description, nullableTime(card.DueDate), marshalJSON(card.Assignees), time.Now().UTC(), card.ID)
	if err != nil {
		return err
	}
	return affectedOrNoRows(res)
}

// MoveCard closes the gap in the source list and opens one at position in the target list.
// A position <= 0 or past the end appends.
func (s *SQLStore) MoveCard(ctx context.Context, cardID, listID int64, position int) (*boards.Card, error) {
	var card *boards.Card
	err := withTx(ctx, s.db, func(tx *sql.Tx) error {
		var err error
		card, err = s.getCardTx(ctx, tx, cardID)
		if err != nil {
			return err
		}
		max, err := maxPosition(ctx, tx, "board_cards", "list_id", listID)
		if err != nil {
			return err
		}
		if card.ListID == listID {
			if position <= 0 || position > max {
				position = max
			}
			if position == card.Position {
				return nil
			}
			if err := shiftInScope(ctx, tx, "board_cards", "list_id", listID, card.Position, position); err != nil {
				return err
			}
		} else {
			if position <= 0 || position > max+1 {
				position = max + 1
			}
			if _, err := tx.ExecContext(ctx, `UPDATE board_cards SET position=position-1 WHERE list_id=? AND position>?`, card.ListID, card.Position); err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, `UPDATE board_cards SET position=position+1 WHERE list_id=? AND position>=?`, listID, position); err != nil {
				return err
			}
		}
		now := time.Now().UTC()
		if _, err := tx.ExecContext(ctx, `UPDATE board_cards SET list_id=?, position=?, updated_at=? WHERE id=?`, listID, position, now, cardID); err != nil {
			return err
		}
		card.ListID = listID
		card.Position = position
		card.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, err
	}
	return card, nil
}

func (s *SQLStore) SetCardCompleted(ctx context.Context, cardID int64, completed bool, at time.Time) (*boards.Card, error) {
	var completedAt *time.Time
	if completed {
		completedAt = &at
	}
	res, err := s.db.ExecContext(ctx, `UPDATE board_cards SET completed=?, completed_at=?, updated_at=? WHERE id=?`,
		boolToInt(completed), nullableTime(completedAt), at, cardID)
	if err != nil {
		return nil, err
	}
	if err := affectedOrNoRows(res); err != nil {
		return nil, err
	}
	return s.GetCard(ctx, cardID)
}

func (s *SQLStore) DeleteCard(ctx context.Context, cardID int64) error {
	return withTx(ctx, s.db, func(tx *sql.Tx) error {
		card, err := s.getCardTx(ctx, tx, cardID)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM board_cards WHERE id=?`, cardID); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `UPDATE board_cards SET position=position-1 WHERE list_id=? AND position>?`, card.ListID, card.Position)
		return err
	})
}

func (s *SQLStore) GetCard(ctx context.Context, cardID int64) (*boards.Card, error) {
	c, err := scanCard(s.db.QueryRowContext(ctx, `SELECT `+cardColumns+` FROM board_cards WHERE id=?`, cardID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return c, nil
}

func (s *SQLStore) ListCards(ctx context.Context, boardID int64) ([]boards.Card, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+cardColumns+` FROM board_cards WHERE board_id=? ORDER BY list_id, position, id`, boardID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []boards.Card{}
	for rows.Next() {
		c, err := scanCard(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, *c)
	}
	return res, rows.Err()
}
