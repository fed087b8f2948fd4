package boards_test

import (
	"context"
	"path/filepath"
	"testing"

	"props-bible/boards"
	boardsstore "props-bible/boards/store"
	"props-bible/config"
	"props-bible/core/jobroles"
	cstore "props-bible/core/store"
	"props-bible/core/subscription"
	"props-bible/core/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService(t *testing.T, plan string) (*boards.Service, int64) {
	t.Helper()
	logger := utils.NewLogger()
	db, err := cstore.NewDB(&config.AppConfig{DBPath: filepath.Join(t.TempDir(), "boards.db")}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, cstore.ApplyMigrations(context.Background(), db, logger))
	users := cstore.NewUsersStore(db)
	owner, err := users.Create(context.Background(), &cstore.User{Username: "sm", Active: true, Plan: plan}, []string{jobroles.DefaultRoleID})
	require.NoError(t, err)
	limits := subscription.NewService(users, cstore.NewCountersStore(db), "free", nil)
	return boards.NewService(boardsstore.NewStore(db), limits, logger), owner
}

func cardTitles(l boards.List) []string {
	out := []string{}
	for _, c := range l.Cards {
		out = append(out, c.Title)
	}
	return out
}

func TestCreateBoardHasDefaultListsAndLimit(t *testing.T) {
	svc, owner := newService(t, "free")
	ctx := context.Background()
	b, err := svc.CreateBoard(ctx, owner, nil, " Get-in week ", "")
	require.NoError(t, err)
	assert.Equal(t, "Get-in week", b.Name)
	require.Len(t, b.Lists, 3)
	assert.Equal(t, "To do", b.Lists[0].Name)

	_, err = svc.CreateBoard(ctx, owner, nil, "Second", "")
	require.ErrorIs(t, err, subscription.ErrLimitReached)

	require.NoError(t, svc.DeleteBoard(ctx, b))
	_, err = svc.CreateBoard(ctx, owner, nil, "Second", "")
	require.NoError(t, err)

	_, err = svc.CreateBoard(ctx, owner, nil, "  ", "")
	assert.ErrorIs(t, err, boards.ErrInvalidInput)
}

func TestMoveCardsShiftsPositions(t *testing.T) {
	svc, owner := newService(t, "pro")
	ctx := context.Background()
	b, err := svc.CreateBoard(ctx, owner, nil, "Tech", "")
	require.NoError(t, err)
	todo, doing := b.Lists[0], b.Lists[1]

	var cards []*boards.Card
	for _, title := range []string{"a", "b", "c"} {
		c, err := svc.AddCard(ctx, &todo, &boards.Card{Title: title}, owner)
		require.NoError(t, err)
		cards = append(cards, c)
	}
	assert.Equal(t, 3, cards[2].Position)

	_, err = svc.MoveCard(ctx, cards[2], todo.ID, 1)
	require.NoError(t, err)
	full, err := svc.Board(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a", "b"}, cardTitles(full.Lists[0]))

	a, err := svc.Store().GetCard(ctx, cards[0].ID)
	require.NoError(t, err)
	_, err = svc.MoveCard(ctx, a, doing.ID, 0)
	require.NoError(t, err)
	full, err = svc.Board(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "b"}, cardTitles(full.Lists[0]))
	assert.Equal(t, []string{"a"}, cardTitles(full.Lists[1]))
	assert.Equal(t, 2, full.Lists[0].Cards[1].Position)

	other, err := svc.CreateBoard(ctx, owner, nil, "Other", "")
	require.NoError(t, err)
	_, err = svc.MoveCard(ctx, a, other.Lists[0].ID, 1)
	assert.ErrorIs(t, err, boards.ErrInvalidInput)
}

func TestCompleteReopenAndDelete(t *testing.T) {
	svc, owner := newService(t, "pro")
	ctx := context.Background()
	b, err := svc.CreateBoard(ctx, owner, nil, "Strike", "")
	require.NoError(t, err)
	list := b.Lists[0]
	c1, err := svc.AddCard(ctx, &list, &boards.Card{Title: "pack swords", Assignees: []int64{owner, owner, 0}}, owner)
	require.NoError(t, err)
	assert.Equal(t, []int64{owner}, c1.Assignees)
	c2, err := svc.AddCard(ctx, &list, &boards.Card{Title: "label crates"}, owner)
	require.NoError(t, err)

	done, err := svc.CompleteCard(ctx, c1)
	require.NoError(t, err)
	assert.True(t, done.Completed)
	require.NotNil(t, done.CompletedAt)
	open, err := svc.ReopenCard(ctx, done)
	require.NoError(t, err)
	assert.False(t, open.Completed)
	assert.Nil(t, open.CompletedAt)

	require.NoError(t, svc.DeleteCard(ctx, c1))
	left, err := svc.Store().GetCard(ctx, c2.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, left.Position)
	assert.ErrorIs(t, svc.DeleteCard(ctx, c1), boards.ErrNotFound)
}

func TestListMoveAndDelete(t *testing.T) {
	svc, owner := newService(t, "pro")
	ctx := context.Background()
	b, err := svc.CreateBoard(ctx, owner, nil, "Lists", "")
	require.NoError(t, err)
	extra, err := svc.AddList(ctx, b, "Blocked")
	require.NoError(t, err)
	assert.Equal(t, 4, extra.Position)

	_, err = svc.MoveList(ctx, extra, 1)
	require.NoError(t, err)
	lists, err := svc.Store().ListLists(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "Blocked", lists[0].Name)
	assert.Equal(t, "To do", lists[1].Name)

	require.NoError(t, svc.DeleteList(ctx, &lists[1]))
	lists, err = svc.Store().ListLists(ctx, b.ID)
	require.NoError(t, err)
	require.Len(t, lists, 3)
	assert.Equal(t, []int{1, 2, 3}, []int{lists[0].Position, lists[1].Position, lists[2].Position})
}
