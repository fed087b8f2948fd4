package handlers

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"props-bible/config"
	"props-bible/core/auth"
	"props-bible/core/jobroles"
	"props-bible/core/objectstore"
	"props-bible/core/rbac"
	"props-bible/core/store"
	"props-bible/core/subscription"
	"props-bible/core/utils"
	"props-bible/props"
)

type ShowsHandler struct {
	cfg     *config.AppConfig
	users   store.UsersStore
	shows   store.ShowsStore
	roles   store.RolesStore
	limits  *subscription.Service
	objects objectstore.Store
	props   *props.Service
	audits  store.AuditStore
	logger  *utils.Logger
	scope   showScope
}

func NewShowsHandler(cfg *config.AppConfig, users store.UsersStore, shows store.ShowsStore, roles store.RolesStore, policy *rbac.Policy,
	limits *subscription.Service, objects objectstore.Store, propsSvc *props.Service, audits store.AuditStore, logger *utils.Logger) *ShowsHandler {
	return &ShowsHandler{
		cfg: cfg, users: users, shows: shows, roles: roles, limits: limits, objects: objects,
		props: propsSvc, audits: audits, logger: logger,
		scope: showScope{users: users, shows: shows, policy: policy},
	}
}

type showPayload struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Venue       string `json:"venue"`
	Company     string `json:"company"`
	StartsOn    string `json:"starts_on"`
	EndsOn      string `json:"ends_on"`
}

func parseDay(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, raw); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, fmt.Errorf("bad date %q", raw)
}

func (p showPayload) apply(sh *store.Show) error {
	sh.Name = strings.TrimSpace(p.Name)
	if sh.Name == "" || len(sh.Name) > 200 {
		return errors.New("shows.nameRequired")
	}
	sh.Description = strings.TrimSpace(p.Description)
	sh.Venue = strings.TrimSpace(p.Venue)
	sh.Company = strings.TrimSpace(p.Company)
	starts, err := parseDay(p.StartsOn)
	if err != nil {
		return errors.New("shows.badDate")
	}
	ends, err := parseDay(p.EndsOn)
	if err != nil {
		return errors.New("shows.badDate")
	}
	if starts != nil && ends != nil && ends.Before(*starts) {
		return errors.New("shows.endsBeforeStart")
	}
	sh.StartsOn = starts
	sh.EndsOn = ends
	return nil
}

func (h *ShowsHandler) List(w http.ResponseWriter, r *http.Request) {
	user, _, err := currentUser(r, h.users)
	if err != nil || user == nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	includeArchived := r.URL.Query().Get("archived") == "1" || r.URL.Query().Get("archived") == "true"
	items, err := h.shows.ListForUser(r.Context(), user.ID, includeArchived)
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	if items == nil {
		items = []store.Show{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

// Create is open to every account: the creator owns the show and the plan's shows
// limit is the only gate. create_shows is not checked here.
func (h *ShowsHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, _, err := currentUser(r, h.users)
	if err != nil || user == nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	var payload showPayload
	if err := decodeJSON(r, &payload); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	show := &store.Show{OwnerID: user.ID, Status: store.ShowStatusActive, Acts: []store.Act{}}
	if err := payload.apply(show); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if _, err := h.limits.Acquire(r.Context(), user.ID, subscription.ResourceShows, 0); err != nil {
		if writeLimitError(w, err) {
			return
		}
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	id, err := h.shows.Create(r.Context(), show, jobroles.OwnerRoleID)
	if err != nil {
		h.limits.ReleaseQuiet(r.Context(), user.ID, subscription.ResourceShows, 0)
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	_ = h.audits.Log(r.Context(), user.Username, "shows.create", fmt.Sprintf("show=%d", id))
	created, err := h.shows.Get(r.Context(), id)
	if err != nil || created == nil {
		show.ID = id
		created = show
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *ShowsHandler) Get(w http.ResponseWriter, r *http.Request) {
	_, acc, ok := h.scope.require(w, r, jobroles.ActionViewShows)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"show":        acc.Show,
		"roles":       acc.Roles,
		"is_owner":    acc.IsOwner,
		"permissions": showPermissions(acc.Can),
	})
}

func showPermissions(can func(jobroles.Action) bool) []jobroles.Action {
	out := []jobroles.Action{}
	for _, a := range jobroles.AllActions() {
		if can(a) {
			out = append(out, a)
		}
	}
	return out
}

func (h *ShowsHandler) Update(w http.ResponseWriter, r *http.Request) {
	user, acc, ok := h.scope.require(w, r, jobroles.ActionEditShows)
	if !ok {
		return
	}
	var payload showPayload
	if err := decodeJSON(r, &payload); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	show := *acc.Show
	if err := payload.apply(&show); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.shows.Update(r.Context(), &show); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			http.Error(w, "shows.notFound", http.StatusNotFound)
			return
		}
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	_ = h.audits.Log(r.Context(), user.Username, "shows.update", fmt.Sprintf("show=%d", show.ID))
	updated, _ := h.shows.Get(r.Context(), show.ID)
	if updated == nil {
		updated = &show
	}
	writeJSON(w, http.StatusOK, updated)
}

// Archive moves the show from the owner's active slot into an archived slot.
func (h *ShowsHandler) Archive(w http.ResponseWriter, r *http.Request) {
	user, acc, ok := h.scope.require(w, r, jobroles.ActionArchiveShows)
	if !ok {
		return
	}
	show := acc.Show
	if show.Status == store.ShowStatusArchived {
		http.Error(w, "shows.alreadyArchived", http.StatusConflict)
		return
	}
	if _, err := h.limits.Acquire(r.Context(), show.OwnerID, subscription.ResourceArchivedShows, 0); err != nil {
		if writeLimitError(w, err) {
			return
		}
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	if err := h.shows.SetStatus(r.Context(), show.ID, store.ShowStatusActive, store.ShowStatusArchived, time.Now().UTC()); err != nil {
		h.limits.ReleaseQuiet(r.Context(), show.OwnerID, subscription.ResourceArchivedShows, 0)
		if errors.Is(err, store.ErrVersionConflict) {
			http.Error(w, "shows.statusChanged", http.StatusConflict)
			return
		}
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	h.limits.ReleaseQuiet(r.Context(), show.OwnerID, subscription.ResourceShows, 0)
	_ = h.audits.Log(r.Context(), user.Username, "shows.archive", fmt.Sprintf("show=%d", show.ID))
	updated, _ := h.shows.Get(r.Context(), show.ID)
	writeJSON(w, http.StatusOK, updated)
}

func (h *ShowsHandler) Unarchive(w http.ResponseWriter, r *http.Request) {
	user, acc, ok := h.scope.require(w, r, jobroles.ActionArchiveShows)
	if !ok {
		return
	}
	show := acc.Show
	if show.Status != store.ShowStatusArchived {
		http.Error(w, "shows.notArchived", http.StatusConflict)
		return
	}
	if _, err := h.limits.Acquire(r.Context(), show.OwnerID, subscription.ResourceShows, 0); err != nil {
		if writeLimitError(w, err) {
			return
		}
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	if err := h.shows.SetStatus(r.Context(), show.ID, store.ShowStatusArchived, store.ShowStatusActive, time.Now().UTC()); err != nil {
		h.limits.ReleaseQuiet(r.Context(), show.OwnerID, subscription.ResourceShows, 0)
		if errors.Is(err, store.ErrVersionConflict) {
			http.Error(w, "shows.statusChanged", http.StatusConflict)
			return
		}
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	h.limits.ReleaseQuiet(r.Context(), show.OwnerID, subscription.ResourceArchivedShows, 0)
	_ = h.audits.Log(r.Context(), user.Username, "shows.unarchive", fmt.Sprintf("show=%d", show.ID))
	updated, _ := h.shows.Get(r.Context(), show.ID)
	writeJSON(w, http.StatusOK, updated)
}

func (h *ShowsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user, acc, ok := h.scope.require(w, r, jobroles.ActionDeleteShows)
	if !ok {
		return
	}
	show := acc.Show
	var objs props.ShowObjects
	if h.props != nil {
		var err error
		if objs, err = h.props.CollectShowObjects(r.Context(), show.ID); err != nil {
			http.Error(w, "server error", http.StatusInternalServerError)
			return
		}
	}
	if err := h.shows.Delete(r.Context(), show.ID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			http.Error(w, "shows.notFound", http.StatusNotFound)
			return
		}
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	// blobs go only once the rows are gone
	if h.props != nil {
		h.props.DropShowObjects(r.Context(), objs)
	}
	h.dropObject(r, show.LogoKey)
	if show.Status == store.ShowStatusArchived {
		h.limits.ReleaseQuiet(r.Context(), show.OwnerID, subscription.ResourceArchivedShows, 0)
	} else {
		h.limits.ReleaseQuiet(r.Context(), show.OwnerID, subscription.ResourceShows, 0)
	}
	// props, packing lists and collaborators went with the show rows
	if _, err := h.limits.Recount(r.Context(), show.OwnerID); err != nil && h.logger != nil {
		h.logger.Errorf("recount after show %d delete: %v", show.ID, err)
	}
	_ = h.audits.Log(r.Context(), user.Username, "shows.delete", fmt.Sprintf("show=%d name=%s", show.ID, show.Name))
	w.WriteHeader(http.StatusNoContent)
}

func (h *ShowsHandler) dropObject(r *http.Request, key string) {
	if key == "" || h.objects == nil {
		return
	}
	if err := h.objects.Delete(r.Context(), key); err != nil && !errors.Is(err, objectstore.ErrNotFound) && h.logger != nil {
		h.logger.Errorf("object delete %s: %v", key, err)
	}
}

// normalizeActs trims names, orders acts and scenes by number and rejects duplicates.
func normalizeActs(in []store.Act) ([]store.Act, error) {
	out := make([]store.Act, 0, len(in))
	seenActs := map[int]struct{}{}
	for _, a := range in {
		if a.Number <= 0 {
			return nil, errors.New("shows.badActNumber")
		}
		if _, dup := seenActs[a.Number]; dup {
			return nil, errors.New("shows.duplicateAct")
		}
		seenActs[a.Number] = struct{}{}
		act := store.Act{Number: a.Number, Name: strings.TrimSpace(a.Name), Scenes: make([]store.Scene, 0, len(a.Scenes))}
		seenScenes := map[int]struct{}{}
		for _, sc := range a.Scenes {
			if sc.Number <= 0 {
				return nil, errors.New("shows.badSceneNumber")
			}
			if _, dup := seenScenes[sc.Number]; dup {
				return nil, errors.New("shows.duplicateScene")
			}
			seenScenes[sc.Number] = struct{}{}
			act.Scenes = append(act.Scenes, store.Scene{Number: sc.Number, Name: strings.TrimSpace(sc.Name)})
		}
		sort.Slice(act.Scenes, func(i, j int) bool { return act.Scenes[i].Number < act.Scenes[j].Number })
		out = append(out, act)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

func (h *ShowsHandler) SetActs(w http.ResponseWriter, r *http.Request) {
	user, acc, ok := h.scope.require(w, r, jobroles.ActionManageActsScenes)
	if !ok {
		return
	}
	var payload struct {
		Acts []store.Act `json:"acts"`
	}
	if err := decodeJSON(r, &payload); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	acts, err := normalizeActs(payload.Acts)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.shows.SetActs(r.Context(), acc.Show.ID, acts); err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	_ = h.audits.Log(r.Context(), user.Username, "shows.acts", fmt.Sprintf("show=%d acts=%d", acc.Show.ID, len(acts)))
	writeJSON(w, http.StatusOK, map[string]any{"acts": acts})
}

func (h *ShowsHandler) Team(w http.ResponseWriter, r *http.Request) {
	_, acc, ok := h.scope.require(w, r, jobroles.ActionViewTeam)
	if !ok {
		return
	}
	members, err := h.shows.Members(r.Context(), acc.Show.ID)
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	if members == nil {
		members = []store.ShowMember{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"members": members})
}

func (h *ShowsHandler) memberRole(r *http.Request, raw string) (string, error) {
	id := strings.ToLower(strings.TrimSpace(raw))
	if id == "" {
		id = jobroles.DefaultRoleID
	}
	ids, err := knownRoles(r.Context(), h.roles, []string{id})
	if err != nil {
		return "", err
	}
	return ids[0], nil
}

// AddMember joins an existing account to the show directly.
func (h *ShowsHandler) AddMember(w http.ResponseWriter, r *http.Request) {
	user, acc, ok := h.scope.require(w, r, jobroles.ActionInviteUsers)
	if !ok {
		return
	}
	var payload struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		RoleID   string `json:"role_id"`
	}
	if err := decodeJSON(r, &payload); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	roleID, err := h.memberRole(r, payload.RoleID)
	if errors.Is(err, errUnknownRoles) {
		http.Error(w, "roles.unknown", http.StatusBadRequest)
		return
	}
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	if writeGrantError(w, auth.CheckGrant(r.Context(), roleLookup(h.roles), h.scope.policy, acc.Grantor(), roleID)) {
		return
	}
	var target *store.User
	switch {
	case strings.TrimSpace(payload.Username) != "":
		target, _, err = h.users.FindByUsername(r.Context(), strings.ToLower(strings.TrimSpace(payload.Username)))
	case strings.TrimSpace(payload.Email) != "":
		target, err = h.users.FindByEmail(r.Context(), strings.ToLower(strings.TrimSpace(payload.Email)))
	default:
		http.Error(w, "shows.memberRequired", http.StatusBadRequest)
		return
	}
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	if target == nil || !target.Active {
		http.Error(w, "accounts.userNotFound", http.StatusNotFound)
		return
	}
	show := acc.Show
	if target.ID == show.OwnerID {
		http.Error(w, "shows.alreadyMember", http.StatusConflict)
		return
	}
	if existing, _ := h.shows.Member(r.Context(), show.ID, target.ID); existing != nil {
		http.Error(w, "shows.alreadyMember", http.StatusConflict)
		return
	}
	if _, err := h.limits.Acquire(r.Context(), show.OwnerID, subscription.ResourceCollaborators, show.ID); err != nil {
		if writeLimitError(w, err) {
			return
		}
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	m := &store.ShowMember{ShowID: show.ID, UserID: target.ID, RoleID: roleID, AddedBy: user.ID}
	id, err := h.shows.AddMember(r.Context(), m)
	if err != nil {
		h.limits.ReleaseQuiet(r.Context(), show.OwnerID, subscription.ResourceCollaborators, show.ID)
		if errors.Is(err, store.ErrDuplicate) {
			http.Error(w, "shows.alreadyMember", http.StatusConflict)
			return
		}
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	m.ID = id
	m.Username = target.Username
	m.FullName = target.FullName
	_ = h.audits.Log(r.Context(), user.Username, "shows.member_add", fmt.Sprintf("show=%d user=%s role=%s", show.ID, target.Username, roleID))
	writeJSON(w, http.StatusCreated, m)
}

func (h *ShowsHandler) UpdateMemberRole(w http.ResponseWriter, r *http.Request) {
	user, acc, ok := h.scope.require(w, r, jobroles.ActionAssignRoles)
	if !ok {
		return
	}
	memberID := pathID(r, "user_id")
	if memberID == acc.Show.OwnerID {
		http.Error(w, "shows.ownerRoleFixed", http.StatusBadRequest)
		return
	}
	var payload struct {
		RoleID string `json:"role_id"`
	}
	if err := decodeJSON(r, &payload); err != nil || strings.TrimSpace(payload.RoleID) == "" {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	roleID, err := h.memberRole(r, payload.RoleID)
	if errors.Is(err, errUnknownRoles) {
		http.Error(w, "roles.unknown", http.StatusBadRequest)
		return
	}
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	current, err := h.shows.Member(r.Context(), acc.Show.ID, memberID)
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	if current == nil {
		http.Error(w, "shows.memberNotFound", http.StatusNotFound)
		return
	}
	if writeGrantError(w, auth.CheckGrant(r.Context(), roleLookup(h.roles), h.scope.policy, acc.Grantor(), current.RoleID, roleID)) {
		return
	}
	if err := h.shows.UpdateMemberRole(r.Context(), acc.Show.ID, memberID, roleID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			http.Error(w, "shows.memberNotFound", http.StatusNotFound)
			return
		}
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	_ = h.audits.Log(r.Context(), user.Username, "shows.member_role", fmt.Sprintf("show=%d user=%d role=%s", acc.Show.ID, memberID, roleID))
	m, _ := h.shows.Member(r.Context(), acc.Show.ID, memberID)
	writeJSON(w, http.StatusOK, m)
}

// RemoveMember drops a collaborator. Members may always leave on their own.
func (h *ShowsHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	user, acc, ok := h.scope.access(w, r)
	if !ok {
		return
	}
	memberID := pathID(r, "user_id")
	if memberID != user.ID && !acc.Can(jobroles.ActionRemoveUsers) {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}
	show := acc.Show
	if memberID == show.OwnerID {
		http.Error(w, "shows.ownerCannotLeave", http.StatusBadRequest)
		return
	}
	if err := h.shows.RemoveMember(r.Context(), show.ID, memberID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			http.Error(w, "shows.memberNotFound", http.StatusNotFound)
			return
		}
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	h.limits.ReleaseQuiet(r.Context(), show.OwnerID, subscription.ResourceCollaborators, show.ID)
	_ = h.audits.Log(r.Context(), user.Username, "shows.member_remove", fmt.Sprintf("show=%d user=%d", show.ID, memberID))
	w.WriteHeader(http.StatusNoContent)
}

func (h *ShowsHandler) maxUpload() int64 {
	if h.cfg != nil && h.cfg.Storage.UploadMaxBytes > 0 {
		return h.cfg.Storage.UploadMaxBytes
	}
	return 10 << 20
}

func (h *ShowsHandler) UploadLogo(w http.ResponseWriter, r *http.Request) {
	user, acc, ok := h.scope.require(w, r, jobroles.ActionEditShows)
	if !ok {
		return
	}
	if !parseMultipart(w, r, h.maxUpload()) {
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "shows.fileRequired", http.StatusBadRequest)
		return
	}
	defer file.Close()
	ct := header.Header.Get("Content-Type")
	if !objectstore.IsImage(ct) {
		http.Error(w, "files.unsupportedType", http.StatusUnsupportedMediaType)
		return
	}
	show := acc.Show
	obj, err := h.objects.Put(r.Context(), fmt.Sprintf("shows/%d/logo", show.ID), header.Filename, ct, file)
	if err != nil {
		writeObjectError(w, err)
		return
	}
	if err := h.shows.SetLogo(r.Context(), show.ID, obj.Key); err != nil {
		h.dropObject(r, obj.Key)
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	h.dropObject(r, show.LogoKey)
	_ = h.audits.Log(r.Context(), user.Username, "shows.logo", fmt.Sprintf("show=%d key=%s", show.ID, obj.Key))
	writeJSON(w, http.StatusOK, map[string]any{"key": obj.Key, "url": props.ImageURL(show.ID, obj.Key)})
}
