package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"props-bible/core/store"
	"props-bible/props"

	sq "github.com/Masterminds/squirrel"
)

type SQLStore struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

func (s *SQLStore) DB() *sql.DB {
	return s.db
}

var propColumns = []string{
	"id", "show_id", "owner_id", "name", "description", "category", "status", "quantity", "price", "currency",
	"weight_kg", "location", "act", "scene", "tags", "images", "source", "notes", "assigned_to", "created_by",
	"created_at", "updated_at",
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProp(row rowScanner) (*props.Prop, error) {
	var p props.Prop
	var tags, images string
	var assigned sql.NullInt64
	if err := row.Scan(&p.ID, &p.ShowID, &p.OwnerID, &p.Name, &p.Description, &p.Category, &p.Status, &p.Quantity,
		&p.Price, &p.Currency, &p.WeightKg, &p.Location, &p.Act, &p.Scene, &tags, &images, &p.Source, &p.Notes,
		&assigned, &p.CreatedBy, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.Tags = []string{}
	p.Images = []props.Image{}
	unmarshalJSON(tags, &p.Tags)
	unmarshalJSON(images, &p.Images)
	if assigned.Valid {
		id := assigned.Int64
		p.AssignedTo = &id
	}
	return &p, nil
}

func applyFilter(b sq.SelectBuilder, f props.Filter) sq.SelectBuilder {
	b = b.Where(sq.Eq{"show_id": f.ShowID})
	if f.Status != "" {
		b = b.Where(sq.Eq{"status": string(f.Status)})
	}
	if c := props.NormalizeCategory(f.Category); c != "" {
		b = b.Where(sq.Eq{"category": c})
	}
	if loc := strings.TrimSpace(f.Location); loc != "" {
		b = b.Where(sq.Eq{"location": loc})
	}
	if f.AssignedTo > 0 {
		b = b.Where(sq.Eq{"assigned_to": f.AssignedTo})
	}
	if f.Act > 0 {
		b = b.Where(sq.Eq{"act": f.Act})
	}
	if tag := props.NormalizeTags([]string{f.Tag}); len(tag) == 1 {
		// tags are stored as a JSON array of normalized strings
		raw, _ := json.Marshal(tag[0])
		b = b.Where(sq.Expr(`tags LIKE ? ESCAPE '\'`, "%"+escapeLike(string(raw))+"%"))
	}
	if q := strings.ToLower(strings.TrimSpace(f.Search)); q != "" {
		pat := "%" + escapeLike(q) + "%"
		b = b.Where(sq.Or{
			sq.Expr(`LOWER(name) LIKE ? ESCAPE '\'`, pat),
			sq.Expr(`LOWER(description) LIKE ? ESCAPE '\'`, pat),
			sq.Expr(`LOWER(notes) LIKE ? ESCAPE '\'`, pat),
		})
	}
	return b
}

func escapeLike(v string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(v)
}

// List returns one page of props and the total number matching the filter.
func (s *SQLStore) List(ctx context.Context, f props.Filter) ([]props.Prop, int, error) {
	limit := f.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}
	countQ, countArgs, err := applyFilter(sq.Select("COUNT(*)").From("props"), f).ToSql()
	if err != nil {
		return nil, 0, err
	}
	var total int
	if err := s.db.QueryRowContext(ctx, countQ, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}
	q, args, err := applyFilter(sq.Select(propColumns...).From("props"), f).
		OrderBy("name", "id").
		Limit(uint64(limit)).
		Offset(uint64(offset)).
		ToSql()
	if err != nil {
		return nil, 0, err
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	res := []props.Prop{}
	for rows.Next() {
		p, err := scanProp(rows)
		if err != nil {
			return nil, 0, err
		}
		res = append(res, *p)
	}
	return res, total, rows.Err()
}

func (s *SQLStore) Get(ctx context.Context, id int64) (*props.Prop, error) {
	q, args, err := sq.Select(propColumns...).From("props").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, err
	}
	p, err := scanProp(s.db.QueryRowContext(ctx, q, args...))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return p, nil
}

// Create inserts the prop and its first history entry.
func (s *SQLStore) Create(ctx context.Context, p *props.Prop) (int64, error) {
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	err := withTx(ctx, s.db, func(tx *sql.Tx) error {
		q, args, err := sq.Insert("props").
			Columns(propColumns[1:]...).
			Values(p.ShowID, p.OwnerID, p.Name, p.Description, p.Category, string(p.Status), p.Quantity, p.Price, p.Currency,
				p.WeightKg, p.Location, p.Act, p.Scene, marshalJSON(p.Tags), marshalJSON(p.Images), p.Source, p.Notes,
				nullableID(p.AssignedTo), p.CreatedBy, now, now).
			ToSql()
		if err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, q, args...)
		if err != nil {
			return err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		p.ID = id
		return insertHistory(ctx, tx, id, "", p.Status, "created", p.CreatedBy, now)
	})
	if err != nil {
		return 0, err
	}
	return p.ID, nil
}

func insertHistory(ctx context.Context, tx *sql.Tx, propID int64, from, to props.Status, note string, actor int64, at time.Time) error {
	q, args, err := sq.Insert("prop_status_history").
		Columns("prop_id", "from_status", "to_status", "note", "changed_by", "created_at").
		Values(propID, string(from), string(to), note, actor, at).
		ToSql()
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, q, args...)
	return err
}

func (s *SQLStore) Update(ctx context.Context, p *props.Prop) error {
	p.UpdatedAt = time.Now().UTC()
	q, args, err := sq.Update("props").SetMap(map[string]any{
		"name":        p.Name,
		"description": p.Description,
		"category":    p.Category,
		"quantity":    p.Quantity,
		"price":       p.Price,
		"currency":    p.Currency,
		"weight_kg":   p.WeightKg,
		"location":    p.Location,
		"act":         p.Act,
		"scene":       p.Scene,
		"tags":        marshalJSON(p.Tags),
		"source":      p.Source,
		"notes":       p.Notes,
		"assigned_to": nullableID(p.AssignedTo),
		"updated_at":  p.UpdatedAt,
	}).Where(sq.Eq{"id": p.ID}).ToSql()
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, q, args...)
	if err != nil {
		return err
	}
	return affectedOrNoRows(res)
}

func (s *SQLStore) Delete(ctx context.Context, id int64) error {
	return withTx(ctx, s.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM prop_status_history WHERE prop_id=?`, id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM pack_container_props WHERE prop_id=?`, id); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM props WHERE id=?`, id)
		if err != nil {
			return err
		}
		return affectedOrNoRows(res)
	})
}

// SetStatus moves the prop only if it is still in status from.
func (s *SQLStore) SetStatus(ctx context.Context, id int64, from, to props.Status, note string, actor int64) error {
	now := time.Now().UTC()
	return withTx(ctx, s.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `UPDATE props SET status=?, updated_at=? WHERE id=? AND status=?`, string(to), now, id, string(from))
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return store.ErrVersionConflict
		}
		return insertHistory(ctx, tx, id, from, to, note, actor, now)
	})
}

func (s *SQLStore) History(ctx context.Context, propID int64) ([]props.StatusChange, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, prop_id, from_status, to_status, note, changed_by, created_at
		FROM prop_status_history WHERE prop_id=? ORDER BY created_at DESC, id DESC`, propID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []props.StatusChange{}
	for rows.Next() {
		var c props.StatusChange
		if err := rows.Scan(&c.ID, &c.PropID, &c.From, &c.To, &c.Note, &c.ChangedBy, &c.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, c)
	}
	return res, rows.Err()
}

func (s *SQLStore) SetImages(ctx context.Context, id int64, images []props.Image) error {
	stored := make([]props.Image, len(images))
	for i, img := range images {
		img.URL = ""
		stored[i] = img
	}
	res, err := s.db.ExecContext(ctx, `UPDATE props SET images=?, updated_at=? WHERE id=?`, marshalJSON(stored), time.Now().UTC(), id)
	if err != nil {
		return err
	}
	return affectedOrNoRows(res)
}

func (s *SQLStore) Categories(ctx context.Context, showID int64) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT category FROM props WHERE show_id=? AND category<>'' ORDER BY category`, showID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []string{}
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		res = append(res, c)
	}
	return res, rows.Err()
}

func (s *SQLStore) CountByStatus(ctx context.Context, showID int64) (map[props.Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM props WHERE show_id=? GROUP BY status`, showID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := map[props.Status]int{}
	for rows.Next() {
		var st string
		var n int
		if err := rows.Scan(&st, &n); err != nil {
			return nil, err
		}
		res[props.Status(st)] = n
	}
	return res, rows.Err()
}
