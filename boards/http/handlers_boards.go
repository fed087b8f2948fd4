package boardshttp

import (
	"encoding/json"
	"fmt"
	"net/http"

	"props-bible/boards"
	"props-bible/core/auth"
)

func (h *Handler) ListBoards(w http.ResponseWriter, r *http.Request) {
	user, roles, err := h.currentUser(r)
	if err != nil || user == nil {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	filter := boards.BoardFilter{OwnerID: user.ID}
	if showID := parseInt64Default(r.URL.Query().Get("show_id"), 0); showID > 0 {
		acc, err := auth.ResolveShowAccess(r.Context(), h.shows, h.policy, user, roles, showID)
		if err != nil || !acc.Can(boards.PermView) {
			respondError(w, http.StatusNotFound, "shows.notFound")
			return
		}
		filter.OwnerID = 0
		filter.ShowIDs = []int64{showID}
	} else {
		shows, err := h.shows.ListForUser(r.Context(), user.ID, false)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "server error")
			return
		}
		for _, sh := range shows {
			acc, err := auth.ResolveShowAccess(r.Context(), h.shows, h.policy, user, roles, sh.ID)
			if err == nil && acc.Can(boards.PermView) {
				filter.ShowIDs = append(filter.ShowIDs, sh.ID)
			}
		}
	}
	items, err := h.svc.Store().ListBoards(r.Context(), filter)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "server error")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *Handler) CreateBoard(w http.ResponseWriter, r *http.Request) {
	user, roles, err := h.currentUser(r)
	if err != nil || user == nil {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var payload struct {
		ShowID      *int64 `json:"show_id"`
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "bad request")
		return
	}
	ownerID := user.ID
	if payload.ShowID != nil && *payload.ShowID > 0 {
		acc, err := auth.ResolveShowAccess(r.Context(), h.shows, h.policy, user, roles, *payload.ShowID)
		if err != nil {
			respondError(w, http.StatusNotFound, "shows.notFound")
			return
		}
		if !acc.Can(boards.PermCreate) {
			respondError(w, http.StatusForbidden, "forbidden")
			return
		}
		ownerID = acc.Show.OwnerID
	} else {
		payload.ShowID = nil
	}
	board, err := h.svc.CreateBoard(r.Context(), ownerID, payload.ShowID, payload.Name, payload.Description)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	boards.Log(h.audits, r.Context(), user.Username, boards.AuditBoardCreate, fmt.Sprintf("board=%d", board.ID))
	respondJSON(w, http.StatusCreated, board)
}

func (h *Handler) GetBoard(w http.ResponseWriter, r *http.Request) {
	user, roles, err := h.currentUser(r)
	if err != nil || user == nil {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	board, ok := h.loadBoard(w, r, user, roles, parseInt64Default(urlParam(r, "id"), 0), boards.PermView)
	if !ok {
		return
	}
	full, err := h.svc.Board(r.Context(), board.ID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, full)
}

func (h *Handler) UpdateBoard(w http.ResponseWriter, r *http.Request) {
	user, roles, err := h.currentUser(r)
	if err != nil || user == nil {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	board, ok := h.loadBoard(w, r, user, roles, parseInt64Default(urlParam(r, "id"), 0), boards.PermEdit)
	if !ok {
		return
	}
	var payload struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "bad request")
		return
	}
	updated, err := h.svc.UpdateBoard(r.Context(), board, payload.Name, payload.Description)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	boards.Log(h.audits, r.Context(), user.Username, boards.AuditBoardUpdate, fmt.Sprintf("board=%d", board.ID))
	respondJSON(w, http.StatusOK, updated)
}

func (h *Handler) MoveBoard(w http.ResponseWriter, r *http.Request) {
	user, roles, err := h.currentUser(r)
	if err != nil || user == nil {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	board, ok := h.loadBoard(w, r, user, roles, parseInt64Default(urlParam(r, "id"), 0), boards.PermEdit)
	if !ok {
		return
	}
	var payload struct {
		Position int `json:"position"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "bad request")
		return
	}
	moved, err := h.svc.MoveBoard(r.Context(), board, payload.Position)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, moved)
}

func (h *Handler) DeleteBoard(w http.ResponseWriter, r *http.Request) {
	user, roles, err := h.currentUser(r)
	if err != nil || user == nil {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	board, ok := h.loadBoard(w, r, user, roles, parseInt64Default(urlParam(r, "id"), 0), boards.PermDelete)
	if !ok {
		return
	}
	if err := h.svc.DeleteBoard(r.Context(), board); err != nil {
		respondServiceError(w, err)
		return
	}
	boards.Log(h.audits, r.Context(), user.Username, boards.AuditBoardDelete, fmt.Sprintf("board=%d name=%s", board.ID, board.Name))
	w.WriteHeader(http.StatusNoContent)
}
