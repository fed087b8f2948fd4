package boards

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"props-bible/core/subscription"
	"props-bible/core/utils"
)

type Store interface {
	CreateBoard(ctx context.Context, board *Board, lists []string) (int64, error)
	UpdateBoard(ctx context.Context, board *Board) error
	MoveBoard(ctx context.Context, boardID int64, position int) (*Board, error)
	DeleteBoard(ctx context.Context, boardID int64) error
	GetBoard(ctx context.Context, boardID int64) (*Board, error)
	ListBoards(ctx context.Context, filter BoardFilter) ([]Board, error)

	CreateList(ctx context.Context, list *List) (int64, error)
	RenameList(ctx context.Context, listID int64, name string) error
	MoveList(ctx context.Context, listID int64, position int) (*List, error)
	DeleteList(ctx context.Context, listID int64) error
	GetList(ctx context.Context, listID int64) (*List, error)
	ListLists(ctx context.Context, boardID int64) ([]List, error)

	CreateCard(ctx context.Context, card *Card) (int64, error)
	UpdateCard(ctx context.Context, card *Card) error
	MoveCard(ctx context.Context, cardID, listID int64, position int) (*Card, error)
	SetCardCompleted(ctx context.Context, cardID int64, completed bool, at time.Time) (*Card, error)
	DeleteCard(ctx context.Context, cardID int64) error
	GetCard(ctx context.Context, cardID int64) (*Card, error)
	ListCards(ctx context.Context, boardID int64) ([]Card, error)
}

type Limits interface {
	Acquire(ctx context.Context, ownerID int64, resource string, scopeID int64) (subscription.Decision, error)
	ReleaseQuiet(ctx context.Context, ownerID int64, resource string, scopeID int64)
}

type Service struct {
	store  Store
	limits Limits
	logger *utils.Logger
	now    func() time.Time
}

func NewService(store Store, limits Limits, logger *utils.Logger) *Service {
	return &Service{store: store, limits: limits, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

func (s *Service) Store() Store {
	return s.store
}

func cleanName(raw string, max int) (string, error) {
	name := strings.TrimSpace(raw)
	if name == "" {
		return "", fmt.Errorf("%w: name required", ErrInvalidInput)
	}
	if len(name) > max {
		return "", fmt.Errorf("%w: name too long", ErrInvalidInput)
	}
	return name, nil
}

func mapStoreErr(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// CreateBoard counts the board against ownerID, which is the show owner for show boards.
func (s *Service) CreateBoard(ctx context.Context, ownerID int64, showID *int64, name, description string) (*Board, error) {
	clean, err := cleanName(name, 120)
	if err != nil {
		return nil, err
	}
	board := &Board{OwnerID: ownerID, ShowID: showID, Name: clean, Description: strings.TrimSpace(description)}
	if _, err := s.limits.Acquire(ctx, ownerID, subscription.ResourceBoards, 0); err != nil {
		return nil, err
	}
	if _, err := s.store.CreateBoard(ctx, board, DefaultLists); err != nil {
		s.limits.ReleaseQuiet(ctx, ownerID, subscription.ResourceBoards, 0)
		return nil, err
	}
	return s.Board(ctx, board.ID)
}

// Board loads a board with its lists and cards in position order.
func (s *Service) Board(ctx context.Context, id int64) (*Board, error) {
	board, err := s.store.GetBoard(ctx, id)
	if err != nil {
		return nil, err
	}
	if board == nil {
		return nil, ErrNotFound
	}
	lists, err := s.store.ListLists(ctx, id)
	if err != nil {
		return nil, err
	}
	cards, err := s.store.ListCards(ctx, id)
	if err != nil {
		return nil, err
	}
	idx := make(map[int64]int, len(lists))
	for i := range lists {
		lists[i].Cards = []Card{}
		idx[lists[i].ID] = i
	}
	for _, c := range cards {
		if i, ok := idx[c.ListID]; ok {
			lists[i].Cards = append(lists[i].Cards, c)
		}
	}
	board.Lists = lists
	return board, nil
}

func (s *Service) UpdateBoard(ctx context.Context, board *Board, name, description string) (*Board, error) {
	clean, err := cleanName(name, 120)
	if err != nil {
		return nil, err
	}
	board.Name = clean
	board.Description = strings.TrimSpace(description)
	if err := s.store.UpdateBoard(ctx, board); err != nil {
		return nil, mapStoreErr(err)
	}
	return board, nil
}

func (s *Service) DeleteBoard(ctx context.Context, board *Board) error {
	if err := s.store.DeleteBoard(ctx, board.ID); err != nil {
		return mapStoreErr(err)
	}
	s.limits.ReleaseQuiet(ctx, board.OwnerID, subscription.ResourceBoards, 0)
	return nil
}

func (s *Service) MoveBoard(ctx context.Context, board *Board, position int) (*Board, error) {
	moved, err := s.store.MoveBoard(ctx, board.ID, position)
	return moved, mapStoreErr(err)
}

func (s *Service) AddList(ctx context.Context, board *Board, name string) (*List, error) {
	clean, err := cleanName(name, 80)
	if err != nil {
		return nil, err
	}
	list := &List{BoardID: board.ID, Name: clean}
	if _, err := s.store.CreateList(ctx, list); err != nil {
		return nil, err
	}
	list.Cards = []Card{}
	return list, nil
}

func (s *Service) RenameList(ctx context.Context, list *List, name string) (*List, error) {
	clean, err := cleanName(name, 80)
	if err != nil {
		return nil, err
	}
	if err := s.store.RenameList(ctx, list.ID, clean); err != nil {
		return nil, mapStoreErr(err)
	}
	list.Name = clean
	return list, nil
}

func (s *Service) MoveList(ctx context.Context, list *List, position int) (*List, error) {
	moved, err := s.store.MoveList(ctx, list.ID, position)
	return moved, mapStoreErr(err)
}

// DeleteList drops the list with its cards.
func (s *Service) DeleteList(ctx context.Context, list *List) error {
	return mapStoreErr(s.store.DeleteList(ctx, list.ID))
}

func normalizeAssignees(in []int64) []int64 {
	seen := map[int64]struct{}{}
	out := make([]int64, 0, len(in))
	for _, id := range in {
		if id <= 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func (s *Service) AddCard(ctx context.Context, list *List, card *Card, actor int64) (*Card, error) {
	title, err := cleanName(card.Title, 300)
	if err != nil {
		return nil, err
	}
	card.Title = title
	card.Description = strings.TrimSpace(card.Description)
	card.BoardID = list.BoardID
	card.ListID = list.ID
	card.CreatedBy = actor
	card.Assignees = normalizeAssignees(card.Assignees)
	card.Position = 0
	if _, err := s.store.CreateCard(ctx, card); err != nil {
		return nil, err
	}
	return card, nil
}

func (s *Service) UpdateCard(ctx context.Context, card *Card) (*Card, error) {
	title, err := cleanName(card.Title, 300)
	if err != nil {
		return nil, err
	}
	card.Title = title
	card.Description = strings.TrimSpace(card.Description)
	card.Assignees = normalizeAssignees(card.Assignees)
	if err := s.store.UpdateCard(ctx, card); err != nil {
		return nil, mapStoreErr(err)
	}
	return s.store.GetCard(ctx, card.ID)
}

// MoveCard places the card at position in listID, which must belong to the same board.
func (s *Service) MoveCard(ctx context.Context, card *Card, listID int64, position int) (*Card, error) {
	target, err := s.store.GetList(ctx, listID)
	if err != nil {
		return nil, err
	}
	if target == nil || target.BoardID != card.BoardID {
		return nil, fmt.Errorf("%w: list is not on this board", ErrInvalidInput)
	}
	moved, err := s.store.MoveCard(ctx, card.ID, listID, position)
	return moved, mapStoreErr(err)
}

func (s *Service) CompleteCard(ctx context.Context, card *Card) (*Card, error) {
	if card.Completed {
		return card, nil
	}
	done, err := s.store.SetCardCompleted(ctx, card.ID, true, s.now())
	return done, mapStoreErr(err)
}

func (s *Service) ReopenCard(ctx context.Context, card *Card) (*Card, error) {
	if !card.Completed {
		return card, nil
	}
	open, err := s.store.SetCardCompleted(ctx, card.ID, false, s.now())
	return open, mapStoreErr(err)
}

func (s *Service) DeleteCard(ctx context.Context, card *Card) error {
	return mapStoreErr(s.store.DeleteCard(ctx, card.ID))
}
