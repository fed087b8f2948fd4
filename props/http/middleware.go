package propshttp

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"props-bible/core/auth"
	"props-bible/core/rbac"
	cstore "props-bible/core/store"
	"props-bible/core/subscription"
	"props-bible/props"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	svc       *props.Service
	users     cstore.UsersStore
	shows     cstore.ShowsStore
	policy    *rbac.Policy
	audits    cstore.AuditStore
	maxUpload int64
}

func NewHandler(svc *props.Service, users cstore.UsersStore, shows cstore.ShowsStore, policy *rbac.Policy, audits cstore.AuditStore, maxUpload int64) *Handler {
	if maxUpload <= 0 {
		maxUpload = 10 << 20
	}
	return &Handler{svc: svc, users: users, shows: shows, policy: policy, audits: audits, maxUpload: maxUpload}
}

func (h *Handler) currentUser(r *http.Request) (*cstore.User, []string, error) {
	val := r.Context().Value(auth.SessionContextKey)
	if val == nil {
		return nil, nil, errors.New("no session")
	}
	sess := val.(*cstore.SessionRecord)
	return h.users.FindByUsername(r.Context(), sess.Username)
}

// showAccess resolves the caller and their standing in the show named by {show_id}.
func (h *Handler) showAccess(w http.ResponseWriter, r *http.Request) (*cstore.User, *auth.ShowAccess, bool) {
	user, roles, err := h.currentUser(r)
	if err != nil || user == nil {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return nil, nil, false
	}
	showID := parseInt64Default(chi.URLParam(r, "show_id"), 0)
	if showID == 0 {
		respondError(w, http.StatusBadRequest, "bad request")
		return nil, nil, false
	}
	acc, err := auth.ResolveShowAccess(r.Context(), h.shows, h.policy, user, roles, showID)
	switch {
	case errors.Is(err, auth.ErrShowNotFound):
		respondError(w, http.StatusNotFound, "shows.notFound")
		return nil, nil, false
	case errors.Is(err, auth.ErrShowForbidden):
		respondError(w, http.StatusForbidden, "forbidden")
		return nil, nil, false
	case err != nil:
		respondError(w, http.StatusInternalServerError, "server error")
		return nil, nil, false
	}
	return user, acc, true
}

func canSee(acc *auth.ShowAccess, user *cstore.User, p *props.Prop) bool {
	if acc.Can(props.PermViewAll) {
		return true
	}
	return acc.Can(props.PermViewAssigned) && p.AssignedTo != nil && *p.AssignedTo == user.ID
}

// loadProp fetches {id} and hides props of other shows or outside the caller's view.
func (h *Handler) loadProp(w http.ResponseWriter, r *http.Request, user *cstore.User, acc *auth.ShowAccess) (*props.Prop, bool) {
	id := parseInt64Default(chi.URLParam(r, "id"), 0)
	if id == 0 {
		respondError(w, http.StatusBadRequest, "bad request")
		return nil, false
	}
	p, err := h.svc.Store().Get(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "server error")
		return nil, false
	}
	if p == nil || p.ShowID != acc.Show.ID || !canSee(acc, user, p) {
		respondError(w, http.StatusNotFound, "props.notFound")
		return nil, false
	}
	return p, true
}

// present adds image URLs and strips costs the caller may not see.
func present(acc *auth.ShowAccess, p *props.Prop) *props.Prop {
	props.WithURLs(p)
	if !acc.Can(props.PermCosts) {
		p.Price = 0
		p.Currency = ""
		p.CostsHidden = true
	}
	return p
}

func respondServiceError(w http.ResponseWriter, err error) {
	var limitErr *subscription.LimitError
	switch {
	case errors.As(err, &limitErr):
		respondJSON(w, http.StatusPaymentRequired, map[string]any{"error": "limits.reached", "decision": limitErr.Decision})
	case errors.Is(err, props.ErrInvalidInput):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, props.ErrNotFound):
		respondError(w, http.StatusNotFound, "props.notFound")
	case errors.Is(err, props.ErrConflict):
		respondError(w, http.StatusConflict, "props.conflict")
	case errors.Is(err, props.ErrForbidden):
		respondError(w, http.StatusForbidden, "forbidden")
	default:
		respondError(w, http.StatusInternalServerError, "server error")
	}
}

func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	http.Error(w, msg, status)
}

func parseMultipartFormLimited(w http.ResponseWriter, r *http.Request, maxBytes int64) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+1)
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, http.StatusRequestEntityTooLarge, "payload too large")
			return err
		}
		respondError(w, http.StatusBadRequest, "bad request")
		return err
	}
	return nil
}

func parseIntDefault(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(strings.TrimSpace(val))
	if err != nil {
		return def
	}
	return parsed
}

func parseInt64Default(val string, def int64) int64 {
	if val == "" {
		return def
	}
	parsed, err := strconv.ParseInt(strings.TrimSpace(val), 10, 64)
	if err != nil {
		return def
	}
	return parsed
}
