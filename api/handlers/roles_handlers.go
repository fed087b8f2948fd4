package handlers

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strings"
	"time"

	"props-bible/core/auth"
	"props-bible/core/jobroles"
	"props-bible/core/rbac"
	"props-bible/core/store"
	"props-bible/core/utils"
)

// RolesHandler serves the job-role catalogue: built-in roles plus stored custom ones.
type RolesHandler struct {
	roles  store.RolesStore
	users  store.UsersStore
	policy *rbac.Policy
	audits store.AuditStore
	logger *utils.Logger
}

func NewRolesHandler(roles store.RolesStore, users store.UsersStore, policy *rbac.Policy, audits store.AuditStore, logger *utils.Logger) *RolesHandler {
	return &RolesHandler{roles: roles, users: users, policy: policy, audits: audits, logger: logger}
}

func (h *RolesHandler) all(ctx context.Context) ([]jobroles.Role, error) {
	out := jobroles.Roles()
	custom, err := h.roles.ListCustom(ctx)
	if err != nil {
		return nil, err
	}
	out = append(out, custom...)
	jobroles.SortByHierarchy(out)
	return out, nil
}

func (h *RolesHandler) lookup(ctx context.Context, id string) (*jobroles.Role, error) {
	if r, ok := jobroles.Get(id); ok {
		return &r, nil
	}
	return h.roles.Get(ctx, strings.ToLower(strings.TrimSpace(id)))
}

func (h *RolesHandler) refresh(ctx context.Context) {
	if err := rbac.RefreshFromStore(ctx, h.roles, h.policy); err != nil && h.logger != nil {
		h.logger.Errorf("roles policy refresh: %v", err)
	}
}

func (h *RolesHandler) List(w http.ResponseWriter, r *http.Request) {
	roles, err := h.all(r.Context())
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	if cat := strings.TrimSpace(r.URL.Query().Get("category")); cat != "" {
		filtered := make([]jobroles.Role, 0, len(roles))
		for _, role := range roles {
			if string(role.Category) == cat {
				filtered = append(filtered, role)
			}
		}
		roles = filtered
	}
	writeJSON(w, http.StatusOK, map[string]any{"roles": roles})
}

func (h *RolesHandler) Get(w http.ResponseWriter, r *http.Request) {
	role, err := h.lookup(r.Context(), urlParam(r, "role_id"))
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	if role == nil {
		http.Error(w, "roles.notFound", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, role)
}

func (h *RolesHandler) Hierarchy(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"roles": jobroles.ByHierarchy()})
}

func (h *RolesHandler) Categories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"role_categories":       jobroles.KnownRoleCategories(),
		"permission_categories": jobroles.PermissionCategories(),
	})
}

func (h *RolesHandler) Matrix(w http.ResponseWriter, r *http.Request) {
	roles, err := h.all(r.Context())
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, jobroles.PermissionMatrix(roles...))
}

func (h *RolesHandler) Compare(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	a, err := h.lookup(r.Context(), q.Get("a"))
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	b, err := h.lookup(r.Context(), q.Get("b"))
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	if a == nil || b == nil {
		http.Error(w, "roles.notFound", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, jobroles.Compare(*a, *b))
}

func (h *RolesHandler) Validate(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Permissions []string `json:"permissions"`
	}
	if err := decodeJSON(r, &payload); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, jobroles.ValidateStrings(payload.Permissions))
}

func writeRoleError(w http.ResponseWriter, err error) {
	var verr *jobroles.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "roles.invalidPermissions", "validation": verr.Result})
	case errors.Is(err, jobroles.ErrUnknownRole):
		http.Error(w, "roles.unknownBase", http.StatusBadRequest)
	case errors.Is(err, jobroles.ErrNotCustomizable):
		http.Error(w, "roles.notCustomizable", http.StatusBadRequest)
	case errors.Is(err, jobroles.ErrBuiltInRole):
		http.Error(w, "roles.builtIn", http.StatusForbidden)
	case errors.Is(err, jobroles.ErrInvalidRole):
		http.Error(w, "roles.invalid", http.StatusBadRequest)
	case errors.Is(err, store.ErrDuplicate):
		http.Error(w, "roles.exists", http.StatusConflict)
	case errors.Is(err, store.ErrVersionConflict):
		http.Error(w, "roles.versionConflict", http.StatusConflict)
	case errors.Is(err, sql.ErrNoRows):
		http.Error(w, "roles.notFound", http.StatusNotFound)
	default:
		http.Error(w, "server error", http.StatusInternalServerError)
	}
}

func (h *RolesHandler) Create(w http.ResponseWriter, r *http.Request) {
	sr := sessionFrom(r)
	var in jobroles.CustomRoleInput
	if err := decodeJSON(r, &in); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	in.CreatedBy = sr.Username
	role, err := jobroles.NewCustomRole(in, time.Now())
	if err != nil {
		writeRoleError(w, err)
		return
	}
	if writeGrantError(w, auth.CheckActions(h.policy, auth.PlatformGrantor(sr.Roles), role.Permissions)) {
		return
	}
	if err := h.roles.Create(r.Context(), role); err != nil {
		writeRoleError(w, err)
		return
	}
	h.refresh(r.Context())
	_ = h.audits.Log(r.Context(), sr.Username, "roles.create", role.ID)
	writeJSON(w, http.StatusCreated, role)
}

func (h *RolesHandler) Update(w http.ResponseWriter, r *http.Request) {
	sr := sessionFrom(r)
	id := strings.ToLower(strings.TrimSpace(urlParam(r, "role_id")))
	if jobroles.IsBuiltIn(id) {
		writeRoleError(w, jobroles.ErrBuiltInRole)
		return
	}
	var payload struct {
		jobroles.CustomRoleUpdate
		Version int `json:"version"`
	}
	if err := decodeJSON(r, &payload); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	current, err := h.roles.Get(r.Context(), id)
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	if current == nil {
		http.Error(w, "roles.notFound", http.StatusNotFound)
		return
	}
	if payload.Version <= 0 {
		http.Error(w, "roles.versionRequired", http.StatusBadRequest)
		return
	}
	if payload.Version != current.Version {
		writeRoleError(w, store.ErrVersionConflict)
		return
	}
	updated, err := jobroles.ApplyCustomUpdate(*current, payload.CustomRoleUpdate, time.Now())
	if err != nil {
		writeRoleError(w, err)
		return
	}
	if writeGrantError(w, auth.CheckActions(h.policy, auth.PlatformGrantor(sr.Roles), updated.Permissions)) {
		return
	}
	if err := h.roles.Update(r.Context(), updated, payload.Version); err != nil {
		writeRoleError(w, err)
		return
	}
	h.refresh(r.Context())
	_ = h.audits.Log(r.Context(), sr.Username, "roles.update", updated.ID)
	writeJSON(w, http.StatusOK, updated)
}

func (h *RolesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	sr := sessionFrom(r)
	id := strings.ToLower(strings.TrimSpace(urlParam(r, "role_id")))
	if jobroles.IsBuiltIn(id) {
		writeRoleError(w, jobroles.ErrBuiltInRole)
		return
	}
	n, err := h.users.CountWithRole(r.Context(), id)
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	if n > 0 {
		writeJSON(w, http.StatusConflict, map[string]any{"error": "roles.inUse", "assigned": n})
		return
	}
	if err := h.roles.Delete(r.Context(), id); err != nil {
		writeRoleError(w, err)
		return
	}
	h.refresh(r.Context())
	_ = h.audits.Log(r.Context(), sr.Username, "roles.delete", id)
	w.WriteHeader(http.StatusNoContent)
}
