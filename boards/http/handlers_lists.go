package boardshttp

import (
	"encoding/json"
	"fmt"
	"net/http"

	"props-bible/boards"
)

type namePayload struct {
	Name string `json:"name"`
}

type movePayload struct {
	ListID   int64 `json:"list_id"`
	Position int   `json:"position"`
}

func (h *Handler) CreateList(w http.ResponseWriter, r *http.Request) {
	user, roles, err := h.currentUser(r)
	if err != nil || user == nil {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	board, ok := h.loadBoard(w, r, user, roles, parseInt64Default(urlParam(r, "id"), 0), boards.PermEdit)
	if !ok {
		return
	}
	var payload namePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "bad request")
		return
	}
	list, err := h.svc.AddList(r.Context(), board, payload.Name)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	boards.Log(h.audits, r.Context(), user.Username, boards.AuditListCreate, fmt.Sprintf("board=%d list=%d", board.ID, list.ID))
	respondJSON(w, http.StatusCreated, list)
}

func (h *Handler) RenameList(w http.ResponseWriter, r *http.Request) {
	user, roles, err := h.currentUser(r)
	if err != nil || user == nil {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	list, _, ok := h.loadList(w, r, user, roles, boards.PermEdit)
	if !ok {
		return
	}
	var payload namePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "bad request")
		return
	}
	updated, err := h.svc.RenameList(r.Context(), list, payload.Name)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, updated)
}

func (h *Handler) MoveList(w http.ResponseWriter, r *http.Request) {
	user, roles, err := h.currentUser(r)
	if err != nil || user == nil {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	list, _, ok := h.loadList(w, r, user, roles, boards.PermEdit)
	if !ok {
		return
	}
	var payload movePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "bad request")
		return
	}
	moved, err := h.svc.MoveList(r.Context(), list, payload.Position)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, moved)
}

func (h *Handler) DeleteList(w http.ResponseWriter, r *http.Request) {
	user, roles, err := h.currentUser(r)
	if err != nil || user == nil {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	list, board, ok := h.loadList(w, r, user, roles, boards.PermDelete)
	if !ok {
		return
	}
	if err := h.svc.DeleteList(r.Context(), list); err != nil {
		respondServiceError(w, err)
		return
	}
	boards.Log(h.audits, r.Context(), user.Username, boards.AuditListDelete, fmt.Sprintf("board=%d list=%d", board.ID, list.ID))
	w.WriteHeader(http.StatusNoContent)
}
