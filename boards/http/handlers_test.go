package boardshttp

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"testing"

	"props-bible/boards"
	boardsstore "props-bible/boards/store"
	"props-bible/config"
	"props-bible/core/auth"
	"props-bible/core/jobroles"
	"props-bible/core/rbac"
	cstore "props-bible/core/store"
	"props-bible/core/subscription"
	"props-bible/core/utils"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type env struct {
	router http.Handler
	users  cstore.UsersStore
	shows  cstore.ShowsStore
	show   *cstore.Show
	owner  *cstore.User
}

func newEnv(t *testing.T) *env {
	t.Helper()
	logger := utils.NewLogger()
	db, err := cstore.NewDB(&config.AppConfig{DBPath: filepath.Join(t.TempDir(), "bh.db")}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	ctx := context.Background()
	require.NoError(t, cstore.ApplyMigrations(ctx, db, logger))
	users := cstore.NewUsersStore(db)
	shows := cstore.NewShowsStore(db)
	id, err := users.Create(ctx, &cstore.User{Username: "owner", Active: true, Plan: "pro"}, nil)
	require.NoError(t, err)
	owner, _, err := users.Get(ctx, id)
	require.NoError(t, err)
	show := &cstore.Show{OwnerID: id, Name: "Cats"}
	_, err = shows.Create(ctx, show, jobroles.OwnerRoleID)
	require.NoError(t, err)

	svc := boards.NewService(boardsstore.NewStore(db), subscription.NewService(users, cstore.NewCountersStore(db), "free", nil), logger)
	policy, err := rbac.NewPolicy(rbac.DefaultRoles())
	require.NoError(t, err)
	h := NewHandler(svc, users, shows, policy, cstore.NewAuditStore(db))
	r := chi.NewRouter()
	RegisterRoutes(RouteDeps{Router: r, WithSession: func(next http.HandlerFunc) http.HandlerFunc { return next }, Handler: h})
	return &env{router: r, users: users, shows: shows, show: show, owner: owner}
}

func (e *env) member(t *testing.T, name, role string) *cstore.User {
	t.Helper()
	ctx := context.Background()
	id, err := e.users.Create(ctx, &cstore.User{Username: name, Active: true}, nil)
	require.NoError(t, err)
	_, err = e.shows.AddMember(ctx, &cstore.ShowMember{ShowID: e.show.ID, UserID: id, RoleID: role})
	require.NoError(t, err)
	u, _, err := e.users.Get(ctx, id)
	require.NoError(t, err)
	return u
}

func (e *env) do(u *cstore.User, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	sess := &cstore.SessionRecord{UserID: u.ID, Username: u.Username}
	req = req.WithContext(context.WithValue(req.Context(), auth.SessionContextKey, sess))
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

func TestShowBoardFlow(t *testing.T) {
	e := newEnv(t)
	rr := e.do(e.owner, http.MethodPost, "/boards", `{"name":"Tech week","show_id":`+strconv.FormatInt(e.show.ID, 10)+`}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var b boards.Board
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &b))
	require.Len(t, b.Lists, 3)
	listPath := "/board-lists/" + strconv.FormatInt(b.Lists[0].ID, 10)

	viewer := e.member(t, "viewer", "viewer")
	rr = e.do(viewer, http.MethodGet, "/boards/"+strconv.FormatInt(b.ID, 10), "")
	assert.Equal(t, http.StatusOK, rr.Code)
	rr = e.do(viewer, http.MethodPost, listPath+"/cards", `{"title":"nope"}`)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = e.do(e.owner, http.MethodPost, listPath+"/cards", `{"title":"Rig flown chair","due_date":"2026-11-01","assignees":[`+strconv.FormatInt(viewer.ID, 10)+`]}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var card boards.Card
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &card))
	require.NotNil(t, card.DueDate)

	rr = e.do(e.owner, http.MethodPost, listPath+"/cards", `{"title":"x","assignees":[424242]}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	cardPath := "/board-cards/" + strconv.FormatInt(card.ID, 10)
	rr = e.do(e.owner, http.MethodPost, cardPath+"/move", `{"list_id":`+strconv.FormatInt(b.Lists[2].ID, 10)+`}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	rr = e.do(e.owner, http.MethodPost, cardPath+"/complete", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"completed":true`)

	rr = e.do(viewer, http.MethodGet, "/boards", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Tech week")
}

func TestPersonalBoardIsPrivate(t *testing.T) {
	e := newEnv(t)
	rr := e.do(e.owner, http.MethodPost, "/boards", `{"name":"My notes"}`)
	require.Equal(t, http.StatusCreated, rr.Code)
	var b boards.Board
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &b))

	other := e.member(t, "sm", "stage_manager")
	rr = e.do(other, http.MethodGet, "/boards/"+strconv.FormatInt(b.ID, 10), "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	rr = e.do(other, http.MethodGet, "/boards", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.NotContains(t, rr.Body.String(), "My notes")
}
