package api

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"props-bible/api/handlers"
	"props-bible/boards"
	boardshttp "props-bible/boards/http"
	boardsstore "props-bible/boards/store"
	"props-bible/config"
	"props-bible/core/auth"
	"props-bible/core/invites"
	"props-bible/core/labels"
	"props-bible/core/mailer"
	"props-bible/core/objectstore"
	"props-bible/core/rbac"
	"props-bible/core/store"
	"props-bible/core/subscription"
	"props-bible/core/utils"
	"props-bible/props"
	propshttp "props-bible/props/http"
	propsstore "props-bible/props/store"

	"github.com/stretchr/testify/require"
)

const testPassword = "Curtain-Call-2024"

type testEnv struct {
	srv   *Server
	cfg   *config.AppConfig
	db    *sql.DB
	users store.UsersStore
	shows store.ShowsStore
	deps  ServerDeps
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.AppConfig{
		DBPath:       filepath.Join(dir, "api.db"),
		SessionTTL:   time.Hour,
		CSRFKey:      "csrf-test-key",
		Pepper:       "pepper",
		MetricsToken: "metrics-secret",
		Storage:      config.StorageConfig{Backend: "fs", Dir: filepath.Join(dir, "objects"), UploadMaxBytes: 1 << 20},
		Limits:       config.LimitsConfig{DefaultPlan: "free", ReconcileCron: "@every 1h"},
		Invitations: config.InviteConfig{
			SigningKey:  "invite-test-key",
			TTL:         time.Hour,
			PublicURL:   "https://props.example.test",
			RatePerHour: 30,
			Burst:       5,
		},
		Security: config.SecurityConfig{LoginRatePerMin: 50},
	}
	logger := utils.NewLogger()
	ctx := context.Background()
	db, err := store.NewDB(cfg, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, store.ApplyMigrations(ctx, db, logger))

	users := store.NewUsersStore(db)
	sessions := store.NewSessionsStore(db)
	roles := store.NewRolesStore(db)
	audits := store.NewAuditStore(db)
	shows := store.NewShowsStore(db)

	policy, err := rbac.NewPolicy(rbac.DefaultRoles())
	require.NoError(t, err)
	require.NoError(t, rbac.EnsureBuiltInAndRefresh(ctx, roles, policy))

	limits := subscription.NewService(users, store.NewCountersStore(db), cfg.Limits.DefaultPlan, logger)
	reconciler, err := subscription.NewReconciler(limits, users, cfg.Limits.ReconcileCron, logger)
	require.NoError(t, err)
	objects, err := objectstore.NewFS(cfg.Storage.Dir, cfg.Storage.UploadMaxBytes)
	require.NoError(t, err)
	signer, err := invites.NewSigner(cfg.Invitations.SigningKey, cfg.Invitations.TTL)
	require.NoError(t, err)
	invitesSvc := invites.NewService(invites.Deps{
		Invitations: store.NewInvitationsStore(db),
		Shows:       shows,
		Roles:       roles,
		Policy:      policy,
		Limits:      limits,
		Signer:      signer,
		Limiter:     invites.NewSendLimiter(cfg.Invitations.RatePerHour, cfg.Invitations.Burst),
		Mailer:      mailer.New(cfg.SMTP, logger),
		PublicURL:   cfg.Invitations.PublicURL,
		Logger:      logger,
	})
	labelGen := labels.NewGenerator(cfg.Labels)
	propsSvc := props.NewService(propsstore.NewStore(db), limits, objects, labelGen, cfg.Invitations.PublicURL, logger)
	boardsSvc := boards.NewService(boardsstore.NewStore(db), limits, logger)

	deps := ServerDeps{
		DB:             db,
		Users:          users,
		Sessions:       sessions,
		SessionManager: auth.NewSessionManager(cfg, sessions),
		Roles:          roles,
		Audits:         audits,
		Shows:          shows,
		Packing:        store.NewPackingStore(db),
		Shopping:       store.NewShoppingStore(db),
		Feedback:       store.NewFeedbackStore(db),
		Policy:         policy,
		Limits:         limits,
		Reconciler:     reconciler,
		Invites:        invitesSvc,
		Objects:        objects,
		Labels:         labelGen,
		PropsService:   propsSvc,
		Props:          propshttp.NewHandler(propsSvc, users, shows, policy, audits, cfg.Storage.UploadMaxBytes),
		Boards:         boardshttp.NewHandler(boardsSvc, users, shows, policy, audits),
	}
	return &testEnv{
		srv:   NewServer(cfg, logger, deps),
		cfg:   cfg,
		db:    db,
		users: users,
		shows: shows,
		deps:  deps,
	}
}

// addUser creates an active user with a password; global roles are platform-wide.
func (e *testEnv) addUser(t *testing.T, username, email, plan string, globalRoles ...string) *store.User {
	t.Helper()
	ph, err := auth.HashPassword(testPassword, e.cfg.Pepper)
	require.NoError(t, err)
	u := &store.User{
		Username:     username,
		Email:        email,
		PasswordHash: ph.Hash,
		Salt:         ph.Salt,
		PasswordSet:  true,
		Active:       true,
		Plan:         plan,
	}
	id, err := e.users.Create(context.Background(), u, globalRoles)
	require.NoError(t, err)
	u.ID = id
	return u
}

type testClient struct {
	env     *testEnv
	session string
	csrf    string
}

func (e *testEnv) anonymous() *testClient {
	return &testClient{env: e}
}

func (e *testEnv) login(t *testing.T, username string) *testClient {
	t.Helper()
	c := &testClient{env: e}
	rr := c.do(t, http.MethodPost, "/api/auth/login", map[string]string{"username": username, "password": testPassword})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	for _, ck := range rr.Result().Cookies() {
		switch ck.Name {
		case handlers.SessionCookieName:
			c.session = ck.Value
		case handlers.CSRFCookieName:
			c.csrf = ck.Value
		}
	}
	require.NotEmpty(t, c.session)
	require.NotEmpty(t, c.csrf)
	return c
}

func (c *testClient) request(method, path string, body any) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.session != "" {
		req.AddCookie(&http.Cookie{Name: handlers.SessionCookieName, Value: c.session})
		req.AddCookie(&http.Cookie{Name: handlers.CSRFCookieName, Value: c.csrf})
		req.Header.Set("X-CSRF-Token", c.csrf)
	}
	return req
}

func (c *testClient) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	return c.send(c.request(method, path, body))
}

func (c *testClient) send(req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	c.env.srv.router.ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder, out any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), out), rr.Body.String())
}

// createShow posts a show as the client and returns its id.
func (c *testClient) createShow(t *testing.T, name string) int64 {
	t.Helper()
	rr := c.do(t, http.MethodPost, "/api/shows", map[string]string{"name": name})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var show store.Show
	decodeBody(t, rr, &show)
	require.NotZero(t, show.ID)
	return show.ID
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
