package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"props-bible/config"
	"props-bible/core/auth"
	"props-bible/core/jobroles"
	"props-bible/core/rbac"
	"props-bible/core/store"
	"props-bible/core/subscription"
	"props-bible/core/utils"
)

type UsersHandler struct {
	cfg      *config.AppConfig
	users    store.UsersStore
	sessions store.SessionStore
	roles    store.RolesStore
	policy   *rbac.Policy
	audits   store.AuditStore
	logger   *utils.Logger
}

func NewUsersHandler(cfg *config.AppConfig, users store.UsersStore, sessions store.SessionStore, roles store.RolesStore, policy *rbac.Policy, audits store.AuditStore, logger *utils.Logger) *UsersHandler {
	return &UsersHandler{cfg: cfg, users: users, sessions: sessions, roles: roles, policy: policy, audits: audits, logger: logger}
}

type userPayload struct {
	Username string   `json:"username"`
	FullName string   `json:"full_name"`
	Email    string   `json:"email"`
	Password string   `json:"password"`
	Roles    []string `json:"roles"`
	Plan     string   `json:"plan"`
}

var errUnknownRoles = errors.New("unknown roles")

// knownRoles normalizes ids and checks each against the built-in registry and
// stored custom roles.
func knownRoles(ctx context.Context, rs store.RolesStore, in []string) ([]string, error) {
	out := make([]string, 0, len(in))
	seen := map[string]struct{}{}
	for _, raw := range in {
		id := strings.ToLower(strings.TrimSpace(raw))
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if jobroles.IsBuiltIn(id) {
			out = append(out, id)
			continue
		}
		role, err := rs.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if role == nil {
			return nil, errUnknownRoles
		}
		out = append(out, id)
	}
	return out, nil
}

// roleLookup resolves ids the way knownRoles accepts them.
func roleLookup(rs store.RolesStore) auth.RoleLookup {
	return func(ctx context.Context, id string) (*jobroles.Role, error) {
		if r, ok := jobroles.Get(id); ok {
			return &r, nil
		}
		return rs.Get(ctx, id)
	}
}

// writeGrantError maps CheckGrant failures. It reports false for nil.
func writeGrantError(w http.ResponseWriter, err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, auth.ErrGrantOutranks):
		http.Error(w, "roles.outranksYou", http.StatusForbidden)
	case errors.Is(err, jobroles.ErrUnknownRole):
		http.Error(w, "roles.unknown", http.StatusBadRequest)
	default:
		http.Error(w, "server error", http.StatusInternalServerError)
	}
	return true
}

func (h *UsersHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.users.List(r.Context())
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	if list == nil {
		list = []store.UserWithRoles{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": list})
}

func (h *UsersHandler) Create(w http.ResponseWriter, r *http.Request) {
	sr := sessionFrom(r)
	var payload userPayload
	if err := decodeJSON(r, &payload); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	username := strings.ToLower(strings.TrimSpace(payload.Username))
	if err := utils.ValidateUsername(username); err != nil {
		http.Error(w, "accounts.invalidUsername", http.StatusBadRequest)
		return
	}
	if err := utils.ValidatePassword(payload.Password); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	plan := strings.TrimSpace(payload.Plan)
	if plan == "" && h.cfg != nil {
		plan = h.cfg.Limits.DefaultPlan
	}
	if !subscription.IsKnownPlan(plan) {
		http.Error(w, "limits.unknownPlan", http.StatusBadRequest)
		return
	}
	roles, err := knownRoles(r.Context(), h.roles, payload.Roles)
	if errors.Is(err, errUnknownRoles) {
		http.Error(w, "roles.unknown", http.StatusBadRequest)
		return
	}
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	if writeGrantError(w, auth.CheckGrant(r.Context(), roleLookup(h.roles), h.policy, auth.PlatformGrantor(sr.Roles), roles...)) {
		return
	}
	if existing, _, _ := h.users.FindByUsername(r.Context(), username); existing != nil {
		http.Error(w, "accounts.userExists", http.StatusConflict)
		return
	}
	email, err := utils.NormalizeEmail(payload.Email)
	if err != nil {
		http.Error(w, "accounts.invalidEmail", http.StatusBadRequest)
		return
	}
	ph, err := auth.HashPassword(payload.Password, h.cfg.Pepper)
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	user := &store.User{
		Username:     username,
		FullName:     strings.TrimSpace(payload.FullName),
		Email:        email,
		PasswordHash: ph.Hash,
		Salt:         ph.Salt,
		PasswordSet:  true,
		Active:       true,
		Plan:         plan,
	}
	id, err := h.users.Create(r.Context(), user, roles)
	if errors.Is(err, store.ErrDuplicate) {
		http.Error(w, "accounts.userExists", http.StatusConflict)
		return
	}
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	user.ID = id
	_ = h.audits.Log(r.Context(), sr.Username, "accounts.user_create", username)
	writeJSON(w, http.StatusCreated, store.UserWithRoles{User: *user, Roles: roles})
}

func (h *UsersHandler) target(w http.ResponseWriter, r *http.Request) (*store.User, bool) {
	id := pathID(r, "id")
	if id <= 0 {
		http.Error(w, "bad request", http.StatusBadRequest)
		return nil, false
	}
	user, _, err := h.users.Get(r.Context(), id)
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return nil, false
	}
	if user == nil {
		http.Error(w, "not found", http.StatusNotFound)
		return nil, false
	}
	return user, true
}

func (h *UsersHandler) SetRoles(w http.ResponseWriter, r *http.Request) {
	sr := sessionFrom(r)
	user, ok := h.target(w, r)
	if !ok {
		return
	}
	var payload struct {
		Roles []string `json:"roles"`
	}
	if err := decodeJSON(r, &payload); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	roles, err := knownRoles(r.Context(), h.roles, payload.Roles)
	if errors.Is(err, errUnknownRoles) {
		http.Error(w, "roles.unknown", http.StatusBadRequest)
		return
	}
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	// The caller must be able to grant both what the target holds now and what it gets.
	_, current, err := h.users.Get(r.Context(), user.ID)
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	grantor := auth.PlatformGrantor(sr.Roles)
	if writeGrantError(w, auth.CheckGrant(r.Context(), roleLookup(h.roles), h.policy, grantor, append(current, roles...)...)) {
		return
	}
	if err := h.users.SetRoles(r.Context(), user.ID, roles); err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	if err := h.sessions.UpdateRolesForUser(r.Context(), user.ID, roles); err != nil && h.logger != nil {
		h.logger.Errorf("refresh session roles for %s: %v", user.Username, err)
	}
	_ = h.audits.Log(r.Context(), sr.Username, "accounts.roles_set", user.Username+": "+strings.Join(roles, ","))
	writeJSON(w, http.StatusOK, map[string]any{"id": user.ID, "roles": roles})
}

func (h *UsersHandler) SetPlan(w http.ResponseWriter, r *http.Request) {
	sr := sessionFrom(r)
	user, ok := h.target(w, r)
	if !ok {
		return
	}
	var payload struct {
		Plan string `json:"plan"`
	}
	if err := decodeJSON(r, &payload); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	plan := strings.ToLower(strings.TrimSpace(payload.Plan))
	if !subscription.IsKnownPlan(plan) {
		http.Error(w, "limits.unknownPlan", http.StatusBadRequest)
		return
	}
	if err := h.users.SetPlan(r.Context(), user.ID, plan); err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	_ = h.audits.Log(r.Context(), sr.Username, "limits.plan_set", user.Username+": "+plan)
	writeJSON(w, http.StatusOK, map[string]any{"id": user.ID, "plan": plan})
}

func (h *UsersHandler) SetActive(w http.ResponseWriter, r *http.Request) {
	sr := sessionFrom(r)
	user, ok := h.target(w, r)
	if !ok {
		return
	}
	var payload struct {
		Active bool `json:"active"`
	}
	if err := decodeJSON(r, &payload); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	if user.ID == sr.UserID && !payload.Active {
		http.Error(w, "accounts.cannotDisableSelf", http.StatusBadRequest)
		return
	}
	if err := h.users.SetActive(r.Context(), user.ID, payload.Active); err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	if !payload.Active {
		_ = h.sessions.DeleteAllForUser(r.Context(), user.ID, sr.Username)
	}
	_ = h.audits.Log(r.Context(), sr.Username, "accounts.active_set", user.Username)
	writeJSON(w, http.StatusOK, map[string]any{"id": user.ID, "active": payload.Active})
}
