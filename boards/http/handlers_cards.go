package boardshttp

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"props-bible/boards"
)

type cardPayload struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	DueDate     string  `json:"due_date"`
	Assignees   []int64 `json:"assignees"`
}

func parseDue(raw string) (*time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, true
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			t = t.UTC()
			return &t, true
		}
	}
	return nil, false
}

// checkAssignees requires every assignee of a show board to be on the show team.
func (h *Handler) checkAssignees(r *http.Request, board *boards.Board, ids []int64, actor int64) bool {
	for _, id := range ids {
		if board.ShowID == nil {
			if id != actor && id != board.OwnerID {
				return false
			}
			continue
		}
		m, err := h.shows.Member(r.Context(), *board.ShowID, id)
		if err != nil || m == nil {
			return false
		}
	}
	return true
}

func (h *Handler) CreateCard(w http.ResponseWriter, r *http.Request) {
	user, roles, err := h.currentUser(r)
	if err != nil || user == nil {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	list, board, ok := h.loadList(w, r, user, roles, boards.PermCreate)
	if !ok {
		return
	}
	var payload cardPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "bad request")
		return
	}
	due, ok := parseDue(payload.DueDate)
	if !ok {
		respondError(w, http.StatusBadRequest, "boards.badDueDate")
		return
	}
	if !h.checkAssignees(r, board, payload.Assignees, user.ID) {
		respondError(w, http.StatusBadRequest, "boards.assigneeNotMember")
		return
	}
	card, err := h.svc.AddCard(r.Context(), list, &boards.Card{Title: payload.Title, Description: payload.Description, DueDate: due, Assignees: payload.Assignees}, user.ID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	boards.Log(h.audits, r.Context(), user.Username, boards.AuditCardCreate, fmt.Sprintf("board=%d card=%d", board.ID, card.ID))
	respondJSON(w, http.StatusCreated, card)
}

func (h *Handler) UpdateCard(w http.ResponseWriter, r *http.Request) {
	user, roles, err := h.currentUser(r)
	if err != nil || user == nil {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	card, board, ok := h.loadCard(w, r, user, roles, boards.PermEdit)
	if !ok {
		return
	}
	payload := cardPayload{Title: card.Title, Description: card.Description, Assignees: card.Assignees}
	if card.DueDate != nil {
		payload.DueDate = card.DueDate.Format(time.RFC3339)
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "bad request")
		return
	}
	due, ok := parseDue(payload.DueDate)
	if !ok {
		respondError(w, http.StatusBadRequest, "boards.badDueDate")
		return
	}
	if !h.checkAssignees(r, board, payload.Assignees, user.ID) {
		respondError(w, http.StatusBadRequest, "boards.assigneeNotMember")
		return
	}
	card.Title = payload.Title
	card.Description = payload.Description
	card.DueDate = due
	card.Assignees = payload.Assignees
	updated, err := h.svc.UpdateCard(r.Context(), card)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, updated)
}

func (h *Handler) MoveCard(w http.ResponseWriter, r *http.Request) {
	user, roles, err := h.currentUser(r)
	if err != nil || user == nil {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	card, _, ok := h.loadCard(w, r, user, roles, boards.PermEdit)
	if !ok {
		return
	}
	var payload movePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "bad request")
		return
	}
	if payload.ListID == 0 {
		payload.ListID = card.ListID
	}
	moved, err := h.svc.MoveCard(r.Context(), card, payload.ListID, payload.Position)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	boards.Log(h.audits, r.Context(), user.Username, boards.AuditCardMove, fmt.Sprintf("card=%d list=%d pos=%d", card.ID, moved.ListID, moved.Position))
	respondJSON(w, http.StatusOK, moved)
}

func (h *Handler) CompleteCard(w http.ResponseWriter, r *http.Request) {
	h.toggleCard(w, r, true)
}

func (h *Handler) ReopenCard(w http.ResponseWriter, r *http.Request) {
	h.toggleCard(w, r, false)
}

func (h *Handler) toggleCard(w http.ResponseWriter, r *http.Request, completed bool) {
	user, roles, err := h.currentUser(r)
	if err != nil || user == nil {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	card, _, ok := h.loadCard(w, r, user, roles, boards.PermEdit)
	if !ok {
		return
	}
	action := boards.AuditCardReopen
	var res *boards.Card
	if completed {
		action = boards.AuditCardClose
		res, err = h.svc.CompleteCard(r.Context(), card)
	} else {
		res, err = h.svc.ReopenCard(r.Context(), card)
	}
	if err != nil {
		respondServiceError(w, err)
		return
	}
	boards.Log(h.audits, r.Context(), user.Username, action, fmt.Sprintf("card=%d", card.ID))
	respondJSON(w, http.StatusOK, res)
}

func (h *Handler) DeleteCard(w http.ResponseWriter, r *http.Request) {
	user, roles, err := h.currentUser(r)
	if err != nil || user == nil {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	card, _, ok := h.loadCard(w, r, user, roles, boards.PermDelete)
	if !ok {
		return
	}
	if err := h.svc.DeleteCard(r.Context(), card); err != nil {
		respondServiceError(w, err)
		return
	}
	boards.Log(h.audits, r.Context(), user.Username, boards.AuditCardDelete, fmt.Sprintf("card=%d", card.ID))
	w.WriteHeader(http.StatusNoContent)
}
