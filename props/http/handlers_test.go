package propshttp

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"props-bible/config"
	"props-bible/core/auth"
	"props-bible/core/jobroles"
	"props-bible/core/labels"
	"props-bible/core/objectstore"
	"props-bible/core/rbac"
	cstore "props-bible/core/store"
	"props-bible/core/subscription"
	"props-bible/core/utils"
	"props-bible/props"
	propsstore "props-bible/props/store"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type env struct {
	router http.Handler
	svc    *props.Service
	users  cstore.UsersStore
	shows  cstore.ShowsStore
	show   *cstore.Show
	owner  *cstore.User
}

func newEnv(t *testing.T) *env {
	t.Helper()
	dir := t.TempDir()
	logger := utils.NewLogger()
	db, err := cstore.NewDB(&config.AppConfig{DBPath: filepath.Join(dir, "http.db")}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	ctx := context.Background()
	require.NoError(t, cstore.ApplyMigrations(ctx, db, logger))

	users := cstore.NewUsersStore(db)
	shows := cstore.NewShowsStore(db)
	ownerID, err := users.Create(ctx, &cstore.User{Username: "producer", Active: true, Plan: "pro"}, nil)
	require.NoError(t, err)
	owner, _, err := users.Get(ctx, ownerID)
	require.NoError(t, err)
	show := &cstore.Show{OwnerID: ownerID, Name: "Tempest"}
	_, err = shows.Create(ctx, show, jobroles.OwnerRoleID)
	require.NoError(t, err)

	objects, err := objectstore.NewFS(filepath.Join(dir, "objects"), 1<<20)
	require.NoError(t, err)
	limits := subscription.NewService(users, cstore.NewCountersStore(db), "free", nil)
	svc := props.NewService(propsstore.NewStore(db), limits, objects, labels.NewGenerator(config.LabelsConfig{}), "", logger)
	policy, err := rbac.NewPolicy(rbac.DefaultRoles())
	require.NoError(t, err)
	h := NewHandler(svc, users, shows, policy, cstore.NewAuditStore(db), 1<<20)

	r := chi.NewRouter()
	RegisterRoutes(RouteDeps{Router: r, WithSession: func(next http.HandlerFunc) http.HandlerFunc { return next }, Handler: h})
	return &env{router: r, svc: svc, users: users, shows: shows, show: show, owner: owner}
}

func (e *env) member(t *testing.T, name, role string) *cstore.User {
	t.Helper()
	ctx := context.Background()
	id, err := e.users.Create(ctx, &cstore.User{Username: name, Active: true}, nil)
	require.NoError(t, err)
	_, err = e.shows.AddMember(ctx, &cstore.ShowMember{ShowID: e.show.ID, UserID: id, RoleID: role, AddedBy: e.owner.ID})
	require.NoError(t, err)
	u, _, err := e.users.Get(ctx, id)
	require.NoError(t, err)
	return u
}

func (e *env) do(t *testing.T, u *cstore.User, method, path string, body []byte, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if u != nil {
		sess := &cstore.SessionRecord{ID: "s-" + u.Username, UserID: u.ID, Username: u.Username}
		req = req.WithContext(context.WithValue(req.Context(), auth.SessionContextKey, sess))
	}
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

func (e *env) propsPath(suffix string) string {
	return "/shows/" + itoa(e.show.ID) + "/props" + suffix
}

func itoa(v int64) string {
	return strconv.FormatInt(v, 10)
}

func (e *env) createProp(t *testing.T, body string) props.Prop {
	t.Helper()
	rr := e.do(t, e.owner, http.MethodPost, e.propsPath("/"), []byte(body), "application/json")
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var p props.Prop
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &p))
	return p
}

func TestCreateAndGetProp(t *testing.T) {
	e := newEnv(t)
	p := e.createProp(t, `{"name":"Staff","category":"Hand Props","price":40,"currency":"gbp"}`)
	assert.Equal(t, "hand props", p.Category)
	assert.Equal(t, 40.0, p.Price)

	rr := e.do(t, e.owner, http.MethodGet, e.propsPath("/"+itoa(p.ID)), nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"GBP"`)

	rr = e.do(t, nil, http.MethodGet, e.propsPath("/"), nil, "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestViewerSeesPropsWithoutCosts(t *testing.T) {
	e := newEnv(t)
	p := e.createProp(t, `{"name":"Book","price":15}`)
	viewer := e.member(t, "viewer1", "viewer")

	rr := e.do(t, viewer, http.MethodGet, e.propsPath("/"+itoa(p.ID)), nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	var got props.Prop
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Zero(t, got.Price)
	assert.True(t, got.CostsHidden)

	rr = e.do(t, viewer, http.MethodPost, e.propsPath("/"), []byte(`{"name":"Cloak"}`), "application/json")
	assert.Equal(t, http.StatusForbidden, rr.Code)
	rr = e.do(t, viewer, http.MethodDelete, e.propsPath("/"+itoa(p.ID)), nil, "")
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestCrewSeesOnlyAssigned(t *testing.T) {
	e := newEnv(t)
	crew := e.member(t, "deckhand", "crew")
	mine := e.createProp(t, `{"name":"Rope","assigned_to":`+itoa(crew.ID)+`}`)
	other := e.createProp(t, `{"name":"Anchor"}`)

	rr := e.do(t, crew, http.MethodGet, e.propsPath("/"), nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	var list struct {
		Items []props.Prop `json:"items"`
		Total int          `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &list))
	require.Len(t, list.Items, 1)
	assert.Equal(t, mine.ID, list.Items[0].ID)

	rr = e.do(t, crew, http.MethodGet, e.propsPath("/"+itoa(other.ID)), nil, "")
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = e.do(t, crew, http.MethodPost, e.propsPath("/"+itoa(mine.ID)+"/status"), []byte(`{"status":"in_use","note":"act 2"}`), "application/json")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Contains(t, rr.Body.String(), `"in_use"`)
}

func TestAssigneeMustBeMember(t *testing.T) {
	e := newEnv(t)
	rr := e.do(t, e.owner, http.MethodPost, e.propsPath("/"), []byte(`{"name":"Hat","assigned_to":999}`), "application/json")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestOutsiderIsForbidden(t *testing.T) {
	e := newEnv(t)
	id, err := e.users.Create(context.Background(), &cstore.User{Username: "stranger", Active: true}, nil)
	require.NoError(t, err)
	stranger, _, err := e.users.Get(context.Background(), id)
	require.NoError(t, err)
	rr := e.do(t, stranger, http.MethodGet, e.propsPath("/"), nil, "")
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = e.do(t, e.owner, http.MethodGet, "/shows/9999/props/", nil, "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestUploadImageAndLabel(t *testing.T) {
	e := newEnv(t)
	p := e.createProp(t, `{"name":"Mask"}`)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("caption", "front"))
	hdr := make(map[string][]string)
	hdr["Content-Disposition"] = []string{`form-data; name="file"; filename="mask.png"`}
	hdr["Content-Type"] = []string{"image/png"}
	part, err := mw.CreatePart(hdr)
	require.NoError(t, err)
	_, _ = part.Write([]byte("\x89PNG fake"))
	require.NoError(t, mw.Close())

	rr := e.do(t, e.owner, http.MethodPost, e.propsPath("/"+itoa(p.ID)+"/images"), body.Bytes(), mw.FormDataContentType())
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var img props.Image
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &img))
	assert.True(t, img.IsMain)
	assert.True(t, strings.HasPrefix(img.URL, "/api/shows/"))

	rr = e.do(t, e.owner, http.MethodGet, e.propsPath("/"+itoa(p.ID)+"/label.png"), nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "image/png", rr.Header().Get("Content-Type"))

	rr = e.do(t, e.owner, http.MethodDelete, e.propsPath("/"+itoa(p.ID)+"/images?key="+img.Key), nil, "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
}

func TestExportCSV(t *testing.T) {
	e := newEnv(t)
	e.createProp(t, `{"name":"Goblet","price":3}`)
	rr := e.do(t, e.owner, http.MethodGet, e.propsPath("/export.csv"), nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Disposition"), "Tempest-props.csv")
	assert.Contains(t, rr.Body.String(), "Goblet")
	assert.Contains(t, rr.Body.String(), "price")

	viewer := e.member(t, "viewer2", "viewer")
	rr = e.do(t, viewer, http.MethodGet, e.propsPath("/export.csv"), nil, "")
	assert.Equal(t, http.StatusForbidden, rr.Code)
}
