package boardshttp

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"props-bible/boards"
	"props-bible/core/auth"
	"props-bible/core/rbac"
	cstore "props-bible/core/store"
	"props-bible/core/subscription"
)

type Handler struct {
	svc    *boards.Service
	users  cstore.UsersStore
	shows  cstore.ShowsStore
	policy *rbac.Policy
	audits cstore.AuditStore
}

func NewHandler(svc *boards.Service, users cstore.UsersStore, shows cstore.ShowsStore, policy *rbac.Policy, audits cstore.AuditStore) *Handler {
	return &Handler{svc: svc, users: users, shows: shows, policy: policy, audits: audits}
}

func (h *Handler) currentUser(r *http.Request) (*cstore.User, []string, error) {
	val := r.Context().Value(auth.SessionContextKey)
	if val == nil {
		return nil, nil, errors.New("no session")
	}
	sess := val.(*cstore.SessionRecord)
	return h.users.FindByUsername(r.Context(), sess.Username)
}

// boardAllowed: personal boards belong to their owner only; show boards follow the
// caller's job roles in that show.
func (h *Handler) boardAllowed(r *http.Request, user *cstore.User, roles []string, board *boards.Board, perm rbac.Permission) bool {
	if board.ShowID == nil {
		return board.OwnerID == user.ID
	}
	acc, err := auth.ResolveShowAccess(r.Context(), h.shows, h.policy, user, roles, *board.ShowID)
	if err != nil {
		return false
	}
	return acc.Can(perm)
}

func (h *Handler) loadBoard(w http.ResponseWriter, r *http.Request, user *cstore.User, roles []string, id int64, perm rbac.Permission) (*boards.Board, bool) {
	board, err := h.svc.Store().GetBoard(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "server error")
		return nil, false
	}
	if board == nil || !h.boardAllowed(r, user, roles, board, boards.PermView) {
		respondError(w, http.StatusNotFound, "boards.notFound")
		return nil, false
	}
	if perm != boards.PermView && !h.boardAllowed(r, user, roles, board, perm) {
		respondError(w, http.StatusForbidden, "forbidden")
		return nil, false
	}
	return board, true
}

func (h *Handler) loadList(w http.ResponseWriter, r *http.Request, user *cstore.User, roles []string, perm rbac.Permission) (*boards.List, *boards.Board, bool) {
	id := parseInt64Default(urlParam(r, "id"), 0)
	list, err := h.svc.Store().GetList(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "server error")
		return nil, nil, false
	}
	if list == nil {
		respondError(w, http.StatusNotFound, "boards.listNotFound")
		return nil, nil, false
	}
	board, ok := h.loadBoard(w, r, user, roles, list.BoardID, perm)
	return list, board, ok
}

func (h *Handler) loadCard(w http.ResponseWriter, r *http.Request, user *cstore.User, roles []string, perm rbac.Permission) (*boards.Card, *boards.Board, bool) {
	id := parseInt64Default(urlParam(r, "id"), 0)
	card, err := h.svc.Store().GetCard(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "server error")
		return nil, nil, false
	}
	if card == nil {
		respondError(w, http.StatusNotFound, "boards.cardNotFound")
		return nil, nil, false
	}
	board, ok := h.loadBoard(w, r, user, roles, card.BoardID, perm)
	return card, board, ok
}

func respondServiceError(w http.ResponseWriter, err error) {
	var limitErr *subscription.LimitError
	switch {
	case errors.As(err, &limitErr):
		respondJSON(w, http.StatusPaymentRequired, map[string]any{"error": "limits.reached", "decision": limitErr.Decision})
	case errors.Is(err, boards.ErrInvalidInput):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, boards.ErrNotFound):
		respondError(w, http.StatusNotFound, "boards.notFound")
	case errors.Is(err, boards.ErrConflict):
		respondError(w, http.StatusConflict, "boards.conflict")
	case errors.Is(err, boards.ErrForbidden):
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
